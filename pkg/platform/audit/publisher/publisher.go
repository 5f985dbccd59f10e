// Package publisher routes audit events to the publisher for their category.
package publisher

import (
	"context"

	audit "provenant/pkg/platform/audit"
)

// Emitter is implemented by each category publisher.
type Emitter interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Dispatcher is the single audit entry point handed to services. The event's
// category is always derived from its action.
type Dispatcher struct {
	compliance Emitter
	security   Emitter
	ops        Emitter
}

// NewDispatcher wires the three category publishers. A nil emitter drops
// events of that category.
func NewDispatcher(compliance, security, ops Emitter) *Dispatcher {
	return &Dispatcher{compliance: compliance, security: security, ops: ops}
}

// Emit forwards the event. Only compliance failures are returned to callers.
func (d *Dispatcher) Emit(ctx context.Context, event audit.Event) error {
	category := audit.AuditEvent(event.Action).Category()
	event.Category = category

	var target Emitter
	switch category {
	case audit.CategoryCompliance:
		target = d.compliance
	case audit.CategorySecurity:
		target = d.security
	default:
		target = d.ops
	}
	if target == nil {
		return nil
	}
	return target.Emit(ctx, event)
}
