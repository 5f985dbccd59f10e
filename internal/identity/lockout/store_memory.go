package lockout

import (
	"context"
	"sync"
	"time"
)

type counter struct {
	failures  int
	expiresAt time.Time
}

// InMemory is a process-local lockout store.
type InMemory struct {
	mu       sync.Mutex
	counters map[string]*counter
	now      func() time.Time
}

func NewInMemory() *InMemory {
	return &InMemory{counters: make(map[string]*counter), now: time.Now}
}

// NewInMemoryWithClock is used by tests that need to move time forward.
func NewInMemoryWithClock(now func() time.Time) *InMemory {
	return &InMemory{counters: make(map[string]*counter), now: now}
}

func (s *InMemory) RecordFailure(_ context.Context, key string, window time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	c, ok := s.counters[key]
	if !ok || !now.Before(c.expiresAt) {
		c = &counter{expiresAt: now.Add(window)}
		s.counters[key] = c
	}
	c.failures++
	return c.failures, nil
}

func (s *InMemory) Failures(_ context.Context, key string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.counters[key]
	if !ok || !s.now().Before(c.expiresAt) {
		return 0, nil
	}
	return c.failures, nil
}

func (s *InMemory) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.counters, key)
	return nil
}
