// Package sentinel holds the store-level facts that services translate into
// coded domain errors. Stores return them, optionally wrapped; handlers never
// see them directly.
package sentinel

import "errors"

var (
	// ErrNotFound means no row matched the key.
	ErrNotFound = errors.New("not found")
	// ErrConflict means a unique key (username, serial, scan id) is taken.
	ErrConflict = errors.New("conflict")
	// ErrAlreadyUsed means a certificate id was already issued. Certificate
	// ids are never reused, even after revocation.
	ErrAlreadyUsed = errors.New("already used")
)
