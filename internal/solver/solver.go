// Package solver turns a 54-character facelet string into a move sequence
// that solves the cube, using Kociemba's two-phase search.
package solver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// FaceletCount is the length of a facelet string.
const FaceletCount = 54

// DefaultMaxDepth is the longest solution the local solver looks for.
const DefaultMaxDepth = 24

// Solved is the facelet string of a solved cube.
const Solved = "UUUUUUUUURRRRRRRRRFFFFFFFFFDDDDDDDDDLLLLLLLLLBBBBBBBBB"

var (
	// ErrInvalidState reports a facelet string with the wrong length or
	// letter counts. Callers can inspect the details with *ValidationError.
	ErrInvalidState = errors.New("invalid cube state")
	// ErrSolverUnavailable reports that the solving capability could not be
	// reached or loaded.
	ErrSolverUnavailable = errors.New("solver unavailable")
	// ErrSolver covers every other failure: unsolvable piece arrangements,
	// no solution within the depth limit, cancelled searches.
	ErrSolver = errors.New("solver error")
)

// Solver solves facelet strings.
type Solver interface {
	Solve(ctx context.Context, facelets string) (string, error)
}

// ValidationError describes why a facelet string was rejected before search.
type ValidationError struct {
	Length  int
	Counts  map[string]int
	Invalid []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if e.Length != FaceletCount {
		parts = append(parts, fmt.Sprintf("length=%d, want %d", e.Length, FaceletCount))
	}
	for _, face := range faceLetters {
		if n := e.Counts[string(face)]; n != 9 {
			parts = append(parts, fmt.Sprintf("%c count=%d", face, n))
		}
	}
	if len(e.Invalid) > 0 {
		parts = append(parts, fmt.Sprintf("invalid characters %s", strings.Join(e.Invalid, "")))
	}
	return fmt.Sprintf("%v: %s", ErrInvalidState, strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidState }

// Validate checks the length and letter counts of a facelet string.
func Validate(facelets string) error {
	counts := make(map[string]int, len(faceLetters))
	for _, face := range faceLetters {
		counts[string(face)] = 0
	}
	var invalid []string
	seen := map[rune]bool{}
	for _, r := range facelets {
		if strings.ContainsRune(faceLetters, r) {
			counts[string(r)]++
			continue
		}
		if !seen[r] {
			seen[r] = true
			invalid = append(invalid, string(r))
		}
	}
	ok := len(facelets) == FaceletCount && len(invalid) == 0
	for _, n := range counts {
		if n != 9 {
			ok = false
		}
	}
	if ok {
		return nil
	}
	return &ValidationError{Length: len(facelets), Counts: counts, Invalid: invalid}
}

// Option configures a Local solver.
type Option func(*Local)

// WithMaxDepth caps the solution length. Values outside 1..29 are ignored.
func WithMaxDepth(depth int) Option {
	return func(l *Local) {
		if depth > 0 && depth <= maxSearchDepth {
			l.maxDepth = depth
		}
	}
}

// WithLogger sets the logger used for table loading and search reports.
func WithLogger(logger *zap.Logger) Option {
	return func(l *Local) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// Local runs the two-phase search in process. The move and pruning tables
// are built once per process on first use and shared by all Local values.
type Local struct {
	maxDepth int
	logger   *zap.Logger
}

// NewLocal builds an in-process solver.
func NewLocal(opts ...Option) *Local {
	l := &Local{maxDepth: DefaultMaxDepth, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

var shared struct {
	once  sync.Once
	ready chan struct{}
	t     *tables
	err   error
}

func init() {
	shared.ready = make(chan struct{})
}

func loadTables(logger *zap.Logger) <-chan struct{} {
	shared.once.Do(func() {
		go func() {
			defer close(shared.ready)
			defer func() {
				if r := recover(); r != nil {
					shared.err = fmt.Errorf("%w: building tables: %v", ErrSolverUnavailable, r)
					logger.Error("solver tables failed", zap.Error(shared.err))
				}
			}()
			start := time.Now()
			shared.t = buildTables()
			logger.Info("solver tables ready", zap.Duration("elapsed", time.Since(start)))
		}()
	})
	return shared.ready
}

func (l *Local) tables(ctx context.Context) (*tables, error) {
	select {
	case <-loadTables(l.logger):
		if shared.err != nil {
			return nil, shared.err
		}
		return shared.t, nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: tables still loading: %v", ErrSolverUnavailable, ctx.Err())
	}
}

// Warm starts building the tables and waits until they are ready.
func (l *Local) Warm(ctx context.Context) error {
	_, err := l.tables(ctx)
	return err
}

// Solve returns a move sequence such as "R U R' U'" that solves facelets,
// or "" when the cube is already solved.
func (l *Local) Solve(ctx context.Context, facelets string) (string, error) {
	moves, err := l.SolveMoves(ctx, facelets)
	if err != nil {
		return "", err
	}
	return FormatMoves(moves), nil
}

// SolveMoves is Solve returning the parsed moves.
func (l *Local) SolveMoves(ctx context.Context, facelets string) ([]Move, error) {
	c, err := parseCube(facelets)
	if err != nil {
		return nil, err
	}
	if c.isSolved() {
		return nil, nil
	}
	t, err := l.tables(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	moves, err := newSearch(t, &c, l.maxDepth).run(ctx)
	if err != nil {
		return nil, err
	}
	l.logger.Debug("cube solved",
		zap.Int("moves", len(moves)),
		zap.Duration("elapsed", time.Since(start)))
	return moves, nil
}

// Verify reports whether facelets describes a cube that can be solved,
// without searching.
func Verify(facelets string) error {
	_, err := parseCube(facelets)
	return err
}

// Apply turns the cube described by facelets through moves and returns the
// resulting facelet string.
func Apply(facelets, moves string) (string, error) {
	c, err := parseCube(facelets)
	if err != nil {
		return "", err
	}
	seq, err := ParseMoves(moves)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSolver, err)
	}
	for _, m := range seq {
		face := &moveCubes[strings.IndexByte(faceLetters, m.Face)]
		for i := 0; i < m.Turns; i++ {
			c.multiply(face)
		}
	}
	return c.facelets(), nil
}

func parseCube(facelets string) (cubieCube, error) {
	if err := Validate(facelets); err != nil {
		return cubieCube{}, err
	}
	for face := 0; face < 6; face++ {
		if facelets[9*face+4] != faceLetters[face] {
			return cubieCube{}, fmt.Errorf("%w: center of face %d is %c, want %c",
				ErrSolver, face, facelets[9*face+4], faceLetters[face])
		}
	}
	c := cubieFromFacelets(facelets)
	if err := c.verify(); err != nil {
		return cubieCube{}, err
	}
	return c, nil
}
