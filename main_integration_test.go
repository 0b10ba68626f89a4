package main

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/cubescan/internal/facecolor"
	"github.com/example/cubescan/internal/facestore"
	"github.com/example/cubescan/internal/handlers"
	"github.com/example/cubescan/internal/solver"
	"github.com/example/cubescan/internal/usecase"
)

// gatedSolver blocks every Solve until release is closed.
type gatedSolver struct {
	started chan struct{}
	release chan struct{}
}

func (s *gatedSolver) Solve(ctx context.Context, _ string) (string, error) {
	select {
	case <-s.started:
	default:
		close(s.started)
	}
	select {
	case <-s.release:
		return "U' R'", nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func newAPIServer(s solver.Solver) *http.Server {
	gin.SetMode(gin.TestMode)
	uc := usecase.NewCubeUseCase(
		facecolor.New(facecolor.NewPerceptual()),
		facestore.NewMemory(time.Hour, zap.NewNop()),
		s, nil, nil, zap.NewNop(),
		usecase.Options{SolverTimeout: 5 * time.Second},
	)
	router := gin.New()
	handlers.RegisterRoutes(router, uc, nil, handlers.Options{})
	return &http.Server{Handler: router}
}

func TestServerDrainsInFlightSolve(t *testing.T) {
	gated := &gatedSolver{started: make(chan struct{}), release: make(chan struct{})}
	defer func() {
		select {
		case <-gated.release:
		default:
			close(gated.release)
		}
	}()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	server := newAPIServer(gated)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- serveHTTPServerWithListener(ctx, server, 2*time.Second, zap.NewNop(), listener)
	}()

	addr := listener.Addr().String()
	waitForServer(t, addr)

	facelets, err := solver.Apply(solver.Solved, "R U")
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	body := `{"facelet_string":"` + facelets + `"}`

	client := &http.Client{Timeout: 3 * time.Second}
	respCh := make(chan *http.Response, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := client.Post("http://"+addr+"/api/solve", "application/json", strings.NewReader(body))
		if err != nil {
			errCh <- err
			return
		}
		respCh <- resp
	}()

	select {
	case <-gated.started:
	case err := <-errCh:
		t.Fatalf("request failed before reaching the solver: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("solve did not start in time")
	}

	cancel()
	time.Sleep(50 * time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("server exited with a request in flight: %v", err)
	default:
	}

	close(gated.release)

	select {
	case resp := <-respCh:
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("unexpected status: %d", resp.StatusCode)
		}
		var payload struct {
			OK       bool     `json:"ok"`
			Solution string   `json:"solution"`
			Moves    []string `json:"moves"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if !payload.OK || payload.Solution != "U' R'" || len(payload.Moves) != 2 {
			t.Fatalf("unexpected response %+v", payload)
		}
	case err := <-errCh:
		t.Fatalf("request failed: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("request did not complete")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("server did not shut down cleanly: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("server did not exit after shutdown")
	}

	if conn, err := net.DialTimeout("tcp", addr, 100*time.Millisecond); err == nil {
		conn.Close()
		t.Fatal("listener still accepting after shutdown")
	}
}

func TestServeHTTPServerReturnsListenError(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to create listener: %v", err)
	}
	defer busy.Close()

	server := &http.Server{Addr: busy.Addr().String(), Handler: http.NewServeMux()}
	if err := serveHTTPServer(context.Background(), server, time.Second, zap.NewNop()); err == nil {
		t.Fatal("expected an error for an address already in use")
	}
}

func waitForServer(t *testing.T, addr string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		conn, err := net.DialTimeout("tcp", addr, 50*time.Millisecond)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("server %s did not become ready", addr)
}
