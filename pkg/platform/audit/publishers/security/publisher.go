// Package security provides a non-blocking audit publisher for security events.
//
// Emit never blocks the request path: events land in a bounded ring buffer
// that drops the oldest entry when full. A worker drains the buffer into the
// audit store.
package security

import (
	"context"
	"time"

	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/ringbuffer"
)

// Publisher buffers security events for asynchronous persistence.
type Publisher struct {
	buffer *ringbuffer.RingBuffer[audit.Event]
}

// New creates a security publisher with the given buffer capacity.
func New(capacity int) *Publisher {
	return &Publisher{buffer: ringbuffer.New[audit.Event](capacity)}
}

// Emit enqueues the event. It only fails when ctx is already done.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.Severity == "" {
		event.Severity = audit.SeverityWarning
	}
	event.Category = audit.CategorySecurity
	p.buffer.Enqueue(event)
	return nil
}

// DequeueBatch hands up to n buffered events to the drain worker.
func (p *Publisher) DequeueBatch(n int) []audit.Event {
	return p.buffer.DequeueBatch(n)
}

// Requeue returns events the worker failed to persist.
func (p *Publisher) Requeue(events []audit.Event) {
	for _, e := range events {
		p.buffer.Enqueue(e)
	}
}

// Pending returns the number of buffered events.
func (p *Publisher) Pending() int { return p.buffer.Len() }

// Dropped returns the number of events discarded for capacity.
func (p *Publisher) Dropped() int64 { return p.buffer.Dropped() }
