package publisher

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	audit "provenant/pkg/platform/audit"
	"provenant/pkg/platform/audit/publishers/compliance"
	"provenant/pkg/platform/audit/publishers/ops"
	"provenant/pkg/platform/audit/publishers/security"
	"provenant/pkg/platform/audit/store/memory"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error { return errors.New("db down") }

func TestDispatcher_RoutesByCategory(t *testing.T) {
	store := memory.NewInMemoryStore()
	sec := security.New(10)
	d := NewDispatcher(compliance.New(store), sec, ops.New(store))
	ctx := context.Background()

	require.NoError(t, d.Emit(ctx, audit.Event{Subject: "cert-1", Action: string(audit.EventCertificateIssued)}))
	require.NoError(t, d.Emit(ctx, audit.Event{Subject: "cert-1", Action: string(audit.EventCertificateTampered)}))
	require.NoError(t, d.Emit(ctx, audit.Event{Subject: "cert-1", Action: string(audit.EventVerificationPerformed)}))

	events := store.ListBySubject("cert-1")
	require.Len(t, events, 2, "security events wait in the buffer")
	assert.Equal(t, audit.CategoryCompliance, events[0].Category)
	assert.Equal(t, audit.CategoryOperations, events[1].Category)

	assert.Equal(t, 1, sec.Pending())
	buffered := sec.DequeueBatch(10)
	assert.Equal(t, audit.SeverityWarning, buffered[0].Severity)
}

func TestDispatcher_ComplianceFailsClosed(t *testing.T) {
	d := NewDispatcher(compliance.New(failingStore{}), nil, ops.New(failingStore{}))
	ctx := context.Background()

	err := d.Emit(ctx, audit.Event{Subject: "p-1", Action: string(audit.EventProductRegistered)})
	require.Error(t, err)

	err = d.Emit(ctx, audit.Event{Subject: "p-1", Action: string(audit.EventScanLogQueried)})
	assert.NoError(t, err, "ops events are best-effort")

	err = d.Emit(ctx, audit.Event{Subject: "p-1", Action: string(audit.EventAuthFailed)})
	assert.NoError(t, err, "nil security emitter drops")
}

func TestOpsTracker_BreakerSheds(t *testing.T) {
	store := &countingStore{err: errors.New("down")}
	tr := ops.New(store)
	for range 10 {
		_ = tr.Emit(context.Background(), audit.Event{Action: string(audit.EventVerificationPerformed)})
	}
	assert.Equal(t, 5, store.calls, "breaker opens after five failures")
}

type countingStore struct {
	calls int
	err   error
}

func (c *countingStore) Append(context.Context, audit.Event) error {
	c.calls++
	return c.err
}
