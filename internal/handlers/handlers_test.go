package handlers

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/cubescan/internal/auth"
	"github.com/example/cubescan/internal/facecolor"
	"github.com/example/cubescan/internal/facestore"
	"github.com/example/cubescan/internal/solver"
	"github.com/example/cubescan/internal/usecase"
)

type stubSolver struct {
	solution string
	err      error
}

func (s *stubSolver) Solve(context.Context, string) (string, error) {
	return s.solution, s.err
}

func newTestRouter(t *testing.T, s solver.Solver, tokens *auth.Tokens, maxBody int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	uc := usecase.NewCubeUseCase(
		facecolor.New(facecolor.NewPerceptual()),
		facestore.NewMemory(time.Hour, zap.NewNop()),
		s, nil, nil, zap.NewNop(),
		usecase.Options{LowConfidence: 0.15},
	)
	router := gin.New()
	RegisterRoutes(router, uc, tokens, Options{MaxBodyBytes: maxBody})
	return router
}

func solidFaceDataURL(t *testing.T, c color.RGBA) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 90, 90))
	for y := 0; y < 90; y++ {
		for x := 0; x < 90; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}, token string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	var decoded map[string]interface{}
	if resp.Body.Len() > 0 {
		if err := json.Unmarshal(resp.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("response is not JSON: %s", resp.Body.String())
		}
	}
	return resp, decoded
}

func TestHealth(t *testing.T) {
	router := newTestRouter(t, &stubSolver{}, nil, 0)
	resp, body := doJSON(t, router, http.MethodGet, "/health", nil, "")
	if resp.Code != http.StatusOK || body["status"] != "ok" {
		t.Fatalf("unexpected health response %d %v", resp.Code, body)
	}
}

func TestScanClassifiesFace(t *testing.T) {
	router := newTestRouter(t, &stubSolver{}, nil, 0)
	resp, body := doJSON(t, router, http.MethodPost, "/api/scan", gin.H{
		"session_id": "s1",
		"face_index": 1,
		"image":      solidFaceDataURL(t, color.RGBA{R: 255, A: 255}),
	}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %v", resp.Code, body)
	}
	if body["ok"] != true || body["center"] != "R" || body["message"] != "Face 1 recorded" {
		t.Fatalf("unexpected body %v", body)
	}
	colors, _ := body["colors"].([]interface{})
	if len(colors) != 9 {
		t.Fatalf("expected 9 colors, got %v", body["colors"])
	}
	for _, c := range colors {
		if c != "R" {
			t.Fatalf("expected all red, got %v", colors)
		}
	}
	grid, _ := body["grid"].([]interface{})
	if len(grid) != 3 {
		t.Fatalf("expected 3 rows, got %v", body["grid"])
	}
	if body["strategy"] != "lab" {
		t.Fatalf("unexpected strategy %v", body["strategy"])
	}

	resp, body = doJSON(t, router, http.MethodGet, "/api/sessions/s1/faces", nil, "")
	if resp.Code != http.StatusOK || body["complete"] != false {
		t.Fatalf("unexpected faces response %d %v", resp.Code, body)
	}
	faces, _ := body["faces"].([]interface{})
	if len(faces) != 6 || faces[0] != nil || faces[1] == nil {
		t.Fatalf("unexpected faces %v", body["faces"])
	}
}

func TestScanRejectsLargeBody(t *testing.T) {
	router := newTestRouter(t, &stubSolver{}, nil, 1024)
	resp, _ := doJSON(t, router, http.MethodPost, "/api/scan", gin.H{
		"session_id": "s1",
		"image":      strings.Repeat("A", 4096),
	}, "")
	if resp.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected status %d, got %d", http.StatusRequestEntityTooLarge, resp.Code)
	}
}

func TestScanRejectsUnsupportedContentType(t *testing.T) {
	router := newTestRouter(t, &stubSolver{}, nil, 0)
	req := httptest.NewRequest(http.MethodPost, "/api/scan", strings.NewReader("session_id=s1"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("expected status %d, got %d", http.StatusUnsupportedMediaType, resp.Code)
	}
}

func TestScanRejectsBadInput(t *testing.T) {
	router := newTestRouter(t, &stubSolver{}, nil, 0)
	img := solidFaceDataURL(t, color.RGBA{B: 255, A: 255})
	cases := map[string]interface{}{
		"missing session": gin.H{"image": img},
		"missing image":   gin.H{"session_id": "s1"},
		"face index":      gin.H{"session_id": "s1", "face_index": 7, "image": img},
		"bad image":       gin.H{"session_id": "s1", "image": "data:image/png;base64,aGVsbG8="},
		"bad field type":  gin.H{"session_id": "s1", "face_index": "one", "image": img},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			resp, decoded := doJSON(t, router, http.MethodPost, "/api/scan", body, "")
			if resp.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %v", resp.Code, decoded)
			}
			if decoded["ok"] != false || decoded["error"] == "" {
				t.Fatalf("unexpected error body %v", decoded)
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	router := newTestRouter(t, &stubSolver{}, nil, 0)

	resp, body := doJSON(t, router, http.MethodPost, "/api/sessions", nil, "")
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	sessionID, _ := body["session_id"].(string)
	if sessionID == "" || body["expires_in"] != float64(3600) {
		t.Fatalf("unexpected session body %v", body)
	}
	if _, ok := body["token"]; ok {
		t.Fatal("no token expected when tokens are disabled")
	}

	resp, _ = doJSON(t, router, http.MethodGet, "/api/sessions/"+sessionID+"/faces", nil, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 before any scan, got %d", resp.Code)
	}

	resp, _ = doJSON(t, router, http.MethodPost, "/api/scan", gin.H{
		"session_id": sessionID,
		"image":      solidFaceDataURL(t, color.RGBA{R: 255, G: 255, B: 255, A: 255}),
	}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("scan failed: %d", resp.Code)
	}

	resp, body = doJSON(t, router, http.MethodGet, "/api/sessions/"+sessionID+"/facelets", nil, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for incomplete cube, got %d: %v", resp.Code, body)
	}

	resp, _ = doJSON(t, router, http.MethodDelete, "/api/sessions/"+sessionID, nil, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 on delete, got %d", resp.Code)
	}
	resp, _ = doJSON(t, router, http.MethodDelete, "/api/sessions/"+sessionID, nil, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", resp.Code)
	}
}

func TestFullScanThenSolve(t *testing.T) {
	router := newTestRouter(t, &stubSolver{solution: ""}, nil, 0)
	scheme := []color.RGBA{
		{R: 255, G: 255, B: 255, A: 255}, // U white
		{R: 255, A: 255},                 // R red
		{G: 255, A: 255},                 // F green
		{R: 255, G: 255, A: 255},         // D yellow
		{R: 255, G: 165, A: 255},         // L orange
		{B: 255, A: 255},                 // B blue
	}
	for i, c := range scheme {
		resp, body := doJSON(t, router, http.MethodPost, "/api/scan", gin.H{
			"session_id": "full",
			"face_index": i,
			"image":      solidFaceDataURL(t, c),
		}, "")
		if resp.Code != http.StatusOK {
			t.Fatalf("scan %d failed: %d %v", i, resp.Code, body)
		}
	}

	resp, body := doJSON(t, router, http.MethodGet, "/api/sessions/full/facelets", nil, "")
	if resp.Code != http.StatusOK || body["facelet_string"] != solver.Solved {
		t.Fatalf("unexpected facelets %d %v", resp.Code, body)
	}

	resp, body = doJSON(t, router, http.MethodPost, "/api/solve", gin.H{"session_id": "full"}, "")
	if resp.Code != http.StatusOK || body["solution"] != "" {
		t.Fatalf("unexpected solve %d %v", resp.Code, body)
	}
}

func TestSolveReportsCounts(t *testing.T) {
	router := newTestRouter(t, &stubSolver{}, nil, 0)
	resp, body := doJSON(t, router, http.MethodPost, "/api/solve", gin.H{
		"facelet_string": "R" + solver.Solved[1:],
	}, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
	counts, _ := body["counts"].(map[string]interface{})
	if counts["U"] != float64(8) || counts["R"] != float64(10) {
		t.Fatalf("unexpected counts %v", body)
	}
	if !strings.Contains(fmt.Sprint(body["detail"]), "U count=8") {
		t.Fatalf("detail should name the bad count: %v", body["detail"])
	}
}

func TestSolveStatuses(t *testing.T) {
	cases := []struct {
		name string
		s    *stubSolver
		want int
	}{
		{"ok", &stubSolver{solution: "R U R' U'"}, http.StatusOK},
		{"unavailable", &stubSolver{err: fmt.Errorf("%w: down", solver.ErrSolverUnavailable)}, http.StatusServiceUnavailable},
		{"solver error", &stubSolver{err: fmt.Errorf("%w: parity error", solver.ErrSolver)}, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := newTestRouter(t, tc.s, nil, 0)
			resp, body := doJSON(t, router, http.MethodPost, "/api/solve", gin.H{"facelet_string": solver.Solved}, "")
			if resp.Code != tc.want {
				t.Fatalf("expected %d, got %d: %v", tc.want, resp.Code, body)
			}
			if tc.want == http.StatusOK {
				moves, _ := body["moves"].([]interface{})
				if len(moves) != 4 || body["request_id"] == "" {
					t.Fatalf("unexpected body %v", body)
				}
			}
		})
	}
}

func TestSolveRequiresInput(t *testing.T) {
	router := newTestRouter(t, &stubSolver{}, nil, 0)
	resp, _ := doJSON(t, router, http.MethodPost, "/api/solve", gin.H{}, "")
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestHistoryRoutesWithoutDatabase(t *testing.T) {
	router := newTestRouter(t, &stubSolver{}, nil, 0)
	resp, _ := doJSON(t, router, http.MethodGet, "/api/metrics", nil, "")
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
	resp, _ = doJSON(t, router, http.MethodGet, "/api/solves/unknown", nil, "")
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSessionTokens(t *testing.T) {
	router := newTestRouter(t, &stubSolver{}, auth.NewTokens("test-secret"), 0)

	_, body := doJSON(t, router, http.MethodPost, "/api/sessions", nil, "")
	sessionID, _ := body["session_id"].(string)
	token, _ := body["token"].(string)
	if sessionID == "" || token == "" {
		t.Fatalf("expected session and token, got %v", body)
	}

	scan := gin.H{"session_id": sessionID, "image": solidFaceDataURL(t, color.RGBA{G: 255, A: 255})}
	resp, _ := doJSON(t, router, http.MethodPost, "/api/scan", scan, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", resp.Code)
	}
	resp, _ = doJSON(t, router, http.MethodPost, "/api/scan", scan, token)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", resp.Code)
	}

	other := gin.H{"session_id": "someone-else", "image": scan["image"]}
	resp, _ = doJSON(t, router, http.MethodPost, "/api/scan", other, token)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for another session, got %d", resp.Code)
	}

	resp, _ = doJSON(t, router, http.MethodPost, "/api/solve", gin.H{"session_id": sessionID}, "")
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 solving a session without token, got %d", resp.Code)
	}
	resp, _ = doJSON(t, router, http.MethodPost, "/api/solve", gin.H{"facelet_string": solver.Solved}, "")
	if resp.Code != http.StatusOK {
		t.Fatalf("anonymous solve by facelets should pass, got %d", resp.Code)
	}
}
