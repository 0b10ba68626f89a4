package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/example/cubescan/internal/logging"
	"github.com/example/cubescan/internal/repository"
	"github.com/example/cubescan/internal/solver"
)

// SolveInput names the cube to solve: either a facelet string, or a session
// whose six scanned faces are assembled when the string is empty.
type SolveInput struct {
	Facelets  string
	SessionID string
}

// SolveResult is a solution and the request it was recorded under.
type SolveResult struct {
	RequestID string
	Facelets  string
	Solution  string
	Moves     []string
	Cached    bool
}

// SolveRecord is a past solve as returned by GetSolve.
type SolveRecord struct {
	RequestID string    `json:"request_id"`
	SessionID string    `json:"session_id,omitempty"`
	Facelets  string    `json:"facelet_string"`
	Solution  string    `json:"solution"`
	MoveCount int       `json:"move_count"`
	Success   bool      `json:"success"`
	ErrorKind string    `json:"error_kind,omitempty"`
	LatencyMs int64     `json:"latency_ms"`
	CreatedAt time.Time `json:"created_at"`
}

// Solve validates the cube, consults the solution cache and runs the solver.
func (uc *CubeUseCase) Solve(ctx context.Context, in SolveInput) (*SolveResult, error) {
	requestID := uuid.NewString()
	opLogger := logging.WithSession(logging.WithOperation(uc.logger, "usecase.solve", requestID), in.SessionID)

	facelets := strings.TrimSpace(in.Facelets)
	if facelets == "" {
		if in.SessionID == "" {
			return nil, fmt.Errorf("%w: facelet_string or session_id required", ErrInvalidInput)
		}
		assembled, err := uc.Facelets(ctx, in.SessionID)
		if err != nil {
			return nil, err
		}
		facelets = assembled
	}

	if err := solver.Validate(facelets); err != nil {
		return nil, err
	}

	start := uc.now()
	solution, cached := uc.cachedSolution(ctx, requestID, facelets)
	var err error
	if !cached {
		solveCtx, cancel := context.WithTimeout(ctx, uc.opts.SolverTimeout)
		solution, err = uc.solver.Solve(solveCtx, facelets)
		cancel()
	}
	latency := uc.now().Sub(start)

	record := &SolveRecord{
		RequestID: requestID,
		SessionID: in.SessionID,
		Facelets:  facelets,
		Solution:  solution,
		MoveCount: len(strings.Fields(solution)),
		Success:   err == nil,
		ErrorKind: errorKind(err),
		LatencyMs: latency.Milliseconds(),
		CreatedAt: uc.now().UTC(),
	}
	uc.saveSolve(ctx, opLogger, record)

	if err != nil {
		opLogger.Warn("solve failed", zap.Error(err), zap.String("error_kind", record.ErrorKind))
		return nil, err
	}

	if !cached {
		uc.cacheSolution(ctx, requestID, facelets, solution)
	}
	uc.cacheRecord(ctx, record)

	opLogger.Info("cube solved",
		zap.Int("moves", record.MoveCount),
		zap.Bool("cached", cached),
		zap.Duration("elapsed", latency))

	return &SolveResult{
		RequestID: requestID,
		Facelets:  facelets,
		Solution:  solution,
		Moves:     strings.Fields(solution),
		Cached:    cached,
	}, nil
}

// GetSolve retrieves a past solve from the cache or from history.
func (uc *CubeUseCase) GetSolve(ctx context.Context, requestID string) (*SolveRecord, error) {
	if record, ok := uc.cachedRecord(ctx, requestID); ok {
		return record, nil
	}

	if uc.history == nil {
		return nil, ErrNotFound
	}
	log, err := uc.history.FindSolve(ctx, requestID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &SolveRecord{
		RequestID: log.RequestID,
		SessionID: log.SessionID,
		Facelets:  log.Facelets,
		Solution:  log.Solution,
		MoveCount: log.MoveCount,
		Success:   log.Success,
		ErrorKind: log.ErrorKind,
		LatencyMs: log.LatencyMs,
		CreatedAt: log.CreatedAt,
	}, nil
}

func (uc *CubeUseCase) saveSolve(ctx context.Context, opLogger *zap.Logger, record *SolveRecord) {
	if uc.history == nil {
		return
	}
	log := &repository.SolveLog{
		RequestID: record.RequestID,
		SessionID: record.SessionID,
		Facelets:  record.Facelets,
		Solution:  record.Solution,
		MoveCount: record.MoveCount,
		Success:   record.Success,
		ErrorKind: record.ErrorKind,
		LatencyMs: record.LatencyMs,
		CreatedAt: record.CreatedAt,
	}
	if err := uc.history.SaveSolve(ctx, log); err != nil {
		opLogger.Warn("failed to persist solve log", zap.Error(err))
	}
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, solver.ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, solver.ErrSolverUnavailable):
		return "unavailable"
	default:
		return "solver_error"
	}
}
