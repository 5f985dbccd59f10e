package ops

import (
	"math/rand/v2"
	"sync"

	audit "provenant/pkg/platform/audit"
)

// Sampler keeps a fraction of ops events per action. Rates are clamped to
// [0, 1]; an action without an override uses the fallback rate.
type Sampler struct {
	mu       sync.RWMutex
	fallback float64
	rates    map[string]float64
	random   func() float64
}

// NewSampler creates a sampler with the given fallback rate.
func NewSampler(fallback float64) *Sampler {
	return &Sampler{
		fallback: clampRate(fallback),
		rates:    make(map[string]float64),
		random:   rand.Float64,
	}
}

// WithRate overrides the rate for one action and returns the sampler so
// overrides can be chained at wiring time.
func (s *Sampler) WithRate(action audit.AuditEvent, rate float64) *Sampler {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rates[string(action)] = clampRate(rate)
	return s
}

// ShouldSample reports whether the event should be kept.
func (s *Sampler) ShouldSample(action string) bool {
	rate := s.rateFor(action)
	switch rate {
	case 0:
		return false
	case 1:
		return true
	}
	return s.random() < rate
}

func (s *Sampler) rateFor(action string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if rate, ok := s.rates[action]; ok {
		return rate
	}
	return s.fallback
}

func clampRate(rate float64) float64 {
	return min(max(rate, 0), 1)
}
