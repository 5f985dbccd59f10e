package models

import (
	"regexp"
	"strings"
	"time"

	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

var usernamePattern = regexp.MustCompile(`^[a-z0-9._@-]{3,64}$`)

// Principal is an authenticated actor: an Admin or a Customer.
//
// Invariants:
//   - Username is unique within its role namespace, never across roles
//   - Username is lower-cased and matches [a-z0-9._@-]{3,64}
//   - PasswordHash is never empty
//   - Principals are never hard-deleted; deactivation is a soft flag
type Principal struct {
	ID           id.PrincipalID `json:"id"`
	Role         id.Role        `json:"role"`
	Username     string         `json:"username"`
	DisplayName  string         `json:"display_name,omitempty"`
	PasswordHash string         `json:"-"`
	IsActive     bool           `json:"is_active"`
	LastLogin    *time.Time     `json:"last_login,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// NormalizeUsername trims and lower-cases a username.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

// NewPrincipal constructs an active principal.
func NewPrincipal(principalID id.PrincipalID, role id.Role, username, displayName, passwordHash string, now time.Time) (*Principal, error) {
	if principalID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "principal id cannot be nil")
	}
	if !role.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "invalid role")
	}
	username = NormalizeUsername(username)
	if !usernamePattern.MatchString(username) {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "username must be 3-64 characters of a-z, 0-9, '.', '_', '@' or '-'")
	}
	if passwordHash == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "password hash cannot be empty")
	}
	displayName = strings.TrimSpace(displayName)
	if len(displayName) > 128 {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "display name must be 128 characters or less")
	}
	return &Principal{
		ID:           principalID,
		Role:         role,
		Username:     username,
		DisplayName:  displayName,
		PasswordHash: passwordHash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanDeactivate checks if the principal can be deactivated.
// Use with ApplyDeactivation in Execute callbacks.
func (p *Principal) CanDeactivate() error {
	if !p.IsActive {
		return dErrors.New(dErrors.CodeInvalidState, "principal is already inactive")
	}
	return nil
}

// ApplyDeactivation marks the principal inactive.
func (p *Principal) ApplyDeactivation(now time.Time) {
	p.IsActive = false
	p.UpdatedAt = now
}

// RecordLogin stamps a successful authentication.
func (p *Principal) RecordLogin(now time.Time) {
	p.LastLogin = &now
}

func (p *Principal) IsAdmin() bool    { return p.Role == id.RoleAdmin }
func (p *Principal) IsCustomer() bool { return p.Role == id.RoleCustomer }
