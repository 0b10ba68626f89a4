// Package facestore keeps the faces scanned so far for each session.
package facestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/cubescan/internal/facecolor"
)

// FaceCount is the number of slots per session.
const FaceCount = 6

// DefaultTTL is how long a session survives without writes.
const DefaultTTL = 2 * time.Hour

var (
	// ErrSessionNotFound is returned for unknown, expired or deleted sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrFaceIndex is returned for a face index outside [0, FaceCount).
	ErrFaceIndex = errors.New("face index out of range")
)

// FaceState holds one optional grid per face slot.
type FaceState [FaceCount]*facecolor.FaceGrid

// Complete reports whether every slot holds a grid.
func (s FaceState) Complete() bool {
	return len(s.Missing()) == 0
}

// Missing lists the empty slots in ascending order.
func (s FaceState) Missing() []int {
	var missing []int
	for i, g := range s {
		if g == nil {
			missing = append(missing, i)
		}
	}
	return missing
}

// Store records scanned faces per session. Writing a slot that already
// holds a grid replaces it; concurrent writes to one slot are
// last-write-wins.
type Store interface {
	Record(ctx context.Context, sessionID string, faceIndex int, grid facecolor.FaceGrid) error
	Faces(ctx context.Context, sessionID string) (FaceState, error)
	Delete(ctx context.Context, sessionID string) error
	// TTL is how long a session lives after its last write.
	TTL() time.Duration
}

func checkIndex(faceIndex int) error {
	if faceIndex < 0 || faceIndex >= FaceCount {
		return fmt.Errorf("%w: %d", ErrFaceIndex, faceIndex)
	}
	return nil
}
