// Package secrets hashes and verifies principal passwords with bcrypt.
package secrets

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	dErrors "provenant/pkg/domain-errors"
)

const (
	MinPasswordLen = 8
	// MaxPasswordLen is bcrypt's input limit.
	MaxPasswordLen = 72
)

// Hasher hashes passwords at a fixed cost and holds a dummy hash so unknown
// usernames cost the same as wrong passwords.
type Hasher struct {
	cost  int
	dummy []byte
}

// NewHasher builds a hasher. It pays one bcrypt round up front for the dummy hash.
func NewHasher(cost int) (*Hasher, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return nil, fmt.Errorf("bcrypt cost %d out of range", cost)
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), cost)
	if err != nil {
		return nil, fmt.Errorf("could not build dummy hash: %w", err)
	}
	return &Hasher{cost: cost, dummy: dummy}, nil
}

// ValidatePassword checks length bounds.
func ValidatePassword(password string) error {
	if len(password) < MinPasswordLen {
		return dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if len(password) > MaxPasswordLen {
		return dErrors.New(dErrors.CodeValidation, "password must be at most 72 bytes")
	}
	return nil
}

// Hash creates a bcrypt hash of the password.
func (h *Hasher) Hash(password string) (string, error) {
	if err := ValidatePassword(password); err != nil {
		return "", err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "password is too long")
		}
		return "", fmt.Errorf("could not hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether password matches hash. An empty hash is compared
// against the dummy hash and always fails.
func (h *Hasher) Verify(password, hash string) bool {
	target := []byte(hash)
	if hash == "" {
		target = h.dummy
	}
	err := bcrypt.CompareHashAndPassword(target, []byte(password))
	return err == nil && hash != ""
}
