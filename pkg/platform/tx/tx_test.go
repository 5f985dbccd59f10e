package tx

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextTransaction(t *testing.T) {
	ctx := context.Background()
	assert.False(t, Active(ctx))
	assert.Equal(t, ctx, WithTx(ctx, nil))

	tx := &sql.Tx{}
	withTx := WithTx(ctx, tx)
	require.True(t, Active(withTx))
	got, ok := From(withTx)
	require.True(t, ok)
	assert.Same(t, tx, got)
}

func TestInlineRunner(t *testing.T) {
	called := false
	err := Inline().RunInTx(context.Background(), func(ctx context.Context) error {
		called = true
		assert.False(t, Active(ctx))
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
}
