// Package ops provides a sampled, fire-and-forget tracker for operational events.
package ops

import (
	"context"
	"log/slog"
	"time"

	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/circuit"
)

// Tracker samples operational events and writes them to the store, shedding
// writes while the store is failing.
type Tracker struct {
	store   audit.Store
	sampler *Sampler
	breaker *circuit.Breaker
	metrics *Metrics
	logger  *slog.Logger
}

type Option func(*Tracker)

func WithSampler(s *Sampler) Option {
	return func(t *Tracker) { t.sampler = s }
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(t *Tracker) { t.breaker = b }
}

func WithMetrics(m *Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// New creates a tracker. Without options every event is kept and the breaker
// opens after five consecutive store failures.
func New(store audit.Store, opts ...Option) *Tracker {
	t := &Tracker{
		store:   store,
		sampler: NewSampler(1.0),
		breaker: circuit.New("audit-ops", circuit.WithFailureThreshold(5), circuit.WithCooldown(time.Minute)),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Emit never returns an error; ops events are best-effort.
func (t *Tracker) Emit(ctx context.Context, event audit.Event) error {
	if !t.sampler.ShouldSample(event.Action) {
		if t.metrics != nil {
			t.metrics.IncSampled()
		}
		return nil
	}
	if !t.breaker.Allow() {
		if t.metrics != nil {
			t.metrics.IncCircuitBreakerDropped()
		}
		return nil
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	event.Category = audit.CategoryOperations

	if err := t.store.Append(ctx, event); err != nil {
		_, change := t.breaker.RecordFailure()
		if t.metrics != nil {
			t.metrics.IncPersistFailures()
			if change.Opened {
				t.metrics.SetCircuitBreakerState(true)
			}
		}
		if t.logger != nil {
			t.logger.WarnContext(ctx, "ops audit write failed",
				"action", event.Action,
				"error", err,
			)
		}
		return nil
	}

	_, change := t.breaker.RecordSuccess()
	if t.metrics != nil {
		t.metrics.IncTracked()
		if change.Closed {
			t.metrics.SetCircuitBreakerState(false)
		}
	}
	return nil
}
