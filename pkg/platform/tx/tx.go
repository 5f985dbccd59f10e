package tx

import (
	"context"
	"database/sql"
)

type ctxKey struct{}

// WithTx puts tx on the context. Postgres stores and the compliance audit
// store pick it up so a business write and its audit row commit together.
// A nil tx leaves ctx unchanged.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, ctxKey{}, tx)
}

// From returns the transaction carried by ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKey{}).(*sql.Tx)
	return tx, ok
}

// Active reports whether ctx already carries a transaction. Nested RunInTx
// calls and row locks that only make sense inside a transaction check it.
func Active(ctx context.Context) bool {
	_, ok := From(ctx)
	return ok
}
