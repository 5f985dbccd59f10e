// Package lockout counts failed logins per username within a window.
package lockout

import (
	"context"
	"strings"
	"time"

	id "provenant/pkg/domain"
)

// Key builds the lockout key for a login attempt. Usernames are namespaced by
// role, so the key is too.
func Key(role id.Role, username string) string {
	return "lockout:" + role.String() + ":" + strings.ToLower(username)
}

// Store tracks consecutive failures. Counters expire window after the first
// failure in the window.
type Store interface {
	RecordFailure(ctx context.Context, key string, window time.Duration) (int, error)
	Failures(ctx context.Context, key string) (int, error)
	Clear(ctx context.Context, key string) error
}
