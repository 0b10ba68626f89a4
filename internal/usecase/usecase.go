// Package usecase holds the scan and solve workflows behind the HTTP API.
package usecase

import (
	"context"
	"errors"
	"image"
	"time"

	"go.uber.org/zap"

	"github.com/example/cubescan/internal/facecolor"
	"github.com/example/cubescan/internal/facestore"
	"github.com/example/cubescan/internal/imagesource"
	"github.com/example/cubescan/internal/repository"
	"github.com/example/cubescan/internal/retry"
	"github.com/example/cubescan/internal/solver"
)

var (
	// ErrInvalidInput reports a malformed request field.
	ErrInvalidInput = errors.New("invalid input")
	// ErrHistoryDisabled is returned by history lookups when no database is
	// configured.
	ErrHistoryDisabled = errors.New("history disabled")
	// ErrNotFound is returned when a solve record does not exist.
	ErrNotFound = errors.New("not found")
)

// Classifier labels the stickers of one face image.
type Classifier interface {
	Classify(img image.Image) facecolor.Scan
	Strategy() string
}

// HistoryRepository defines the persistence operations needed by the use case.
type HistoryRepository interface {
	SaveScan(ctx context.Context, log *repository.ScanLog) error
	SaveSolve(ctx context.Context, log *repository.SolveLog) error
	FindSolve(ctx context.Context, requestID string) (*repository.SolveLog, error)
	AggregateMetrics(ctx context.Context) (*repository.MetricsAggregation, error)
}

// Options tunes the use case. Zero values fall back to defaults.
type Options struct {
	LowConfidence    float64
	MaxImagePixels   int64
	SolutionCacheTTL time.Duration
	SolverTimeout    time.Duration
}

// CubeUseCase encapsulates the scan, session and solve flows.
type CubeUseCase struct {
	classifier Classifier
	store      facestore.Store
	solver     solver.Solver
	history    HistoryRepository
	cache      Cache
	logger     *zap.Logger
	opts       Options
	policy     retry.Policy
	now        func() time.Time
	decoder    imagesource.Decoder
}

// NewCubeUseCase constructs a new use case instance. history and cache may
// be nil to disable persistence and solution caching.
func NewCubeUseCase(classifier Classifier, store facestore.Store, s solver.Solver, history HistoryRepository, cache Cache, logger *zap.Logger, opts Options) *CubeUseCase {
	if opts.SolutionCacheTTL <= 0 {
		opts.SolutionCacheTTL = 24 * time.Hour
	}
	if opts.SolverTimeout <= 0 {
		opts.SolverTimeout = 10 * time.Second
	}
	return &CubeUseCase{
		classifier: classifier,
		store:      store,
		solver:     s,
		history:    history,
		cache:      cache,
		logger:     logger.Named("cube_usecase"),
		opts:       opts,
		policy:     retry.DefaultPolicy,
		now:        time.Now,
		decoder:    imagesource.Decoder{MaxPixels: opts.MaxImagePixels},
	}
}

// HistoryEnabled reports whether scans and solves are persisted.
func (uc *CubeUseCase) HistoryEnabled() bool {
	return uc.history != nil
}

// SessionTTL is how long an idle session is kept by the face store.
func (uc *CubeUseCase) SessionTTL() time.Duration {
	return uc.store.TTL()
}

func (uc *CubeUseCase) withRedisRetry(ctx context.Context, requestID, operation string, fn func() error) error {
	return retry.Do(ctx, uc.policy, uc.logger, operation, requestID, fn)
}

func (uc *CubeUseCase) withRedisGet(ctx context.Context, requestID, operation, key string) (string, error) {
	var result string
	err := uc.withRedisRetry(ctx, requestID, operation, func() error {
		value, err := uc.cache.Get(ctx, key)
		if err != nil {
			return err
		}
		result = value
		return nil
	})
	if err != nil {
		return "", err
	}
	return result, nil
}
