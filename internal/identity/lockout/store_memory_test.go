package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "provenant/pkg/domain"
)

func TestInMemory_WindowExpiry(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewInMemoryWithClock(func() time.Time { return now })
	ctx := context.Background()
	key := Key(id.RoleCustomer, "Acme")
	assert.Equal(t, "lockout:customer:acme", key)

	for i := 1; i <= 3; i++ {
		n, err := store.RecordFailure(ctx, key, 15*time.Minute)
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	now = now.Add(15 * time.Minute)
	n, err := store.Failures(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, n, "window elapsed")

	n, err = store.RecordFailure(ctx, key, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	require.NoError(t, store.Clear(ctx, key))
	n, _ = store.Failures(ctx, key)
	assert.Zero(t, n)
}
