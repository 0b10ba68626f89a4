package facestore

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/example/cubescan/internal/facecolor"
)

type session struct {
	mu      sync.Mutex
	faces   FaceState
	expires time.Time
}

// Memory is an in-process Store. Sessions expire lazily on access and are
// swept by Run.
type Memory struct {
	mu       sync.RWMutex
	sessions map[string]*session
	ttl      time.Duration
	now      func() time.Time
	logger   *zap.Logger
}

var _ Store = (*Memory)(nil)

// NewMemory builds a memory store. A non-positive ttl means DefaultTTL.
func NewMemory(ttl time.Duration, logger *zap.Logger) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Memory{
		sessions: make(map[string]*session),
		ttl:      ttl,
		now:      time.Now,
		logger:   logger.Named("face_store"),
	}
}

func (m *Memory) TTL() time.Duration { return m.ttl }

// Record stores grid in the given slot and refreshes the session TTL.
func (m *Memory) Record(_ context.Context, sessionID string, faceIndex int, grid facecolor.FaceGrid) error {
	if err := checkIndex(faceIndex); err != nil {
		return err
	}

	now := m.now()
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if !ok || s.expiredAt(now) {
		s = &session{}
		m.sessions[sessionID] = s
	}
	// Lock the session before releasing the map so a sweep cannot drop it
	// between lookup and write.
	s.mu.Lock()
	m.mu.Unlock()
	defer s.mu.Unlock()

	g := grid
	s.faces[faceIndex] = &g
	s.expires = now.Add(m.ttl)
	return nil
}

// Faces returns a copy of the session's slots.
func (m *Memory) Faces(_ context.Context, sessionID string) (FaceState, error) {
	m.mu.RLock()
	s, ok := m.sessions[sessionID]
	m.mu.RUnlock()
	if !ok {
		return FaceState{}, ErrSessionNotFound
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expiredAt(m.now()) {
		return FaceState{}, ErrSessionNotFound
	}
	var out FaceState
	for i, g := range s.faces {
		if g != nil {
			c := *g
			out[i] = &c
		}
	}
	return out, nil
}

// Delete tears the session down.
func (m *Memory) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, sessionID)
	if s.expiredAt(m.now()) {
		return ErrSessionNotFound
	}
	return nil
}

// Len reports the number of sessions held, including expired ones not yet
// swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	for id, s := range m.sessions {
		s.mu.Lock()
		expired := s.expiredAt(now)
		s.mu.Unlock()
		if expired {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed
}

// Run sweeps expired sessions every interval until ctx is done.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = m.ttl / 4
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := m.Sweep(); n > 0 {
				m.logger.Debug("expired sessions swept", zap.Int("count", n))
			}
		}
	}
}

func (s *session) expiredAt(now time.Time) bool {
	return !s.expires.IsZero() && !now.Before(s.expires)
}
