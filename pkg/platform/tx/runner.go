package tx

import "context"

// Runner runs fn inside a transaction. The transaction, if any, travels on the
// context passed to fn so stores and the compliance audit store share it.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type inline struct{}

// Inline returns a Runner that calls fn directly. In-memory stores use it.
func Inline() Runner {
	return inline{}
}

func (inline) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
