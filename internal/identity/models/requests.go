package models

import (
	"strings"

	"provenant/internal/identity/secrets"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
)

// RegisterRequest carries the fields needed to create a principal.
type RegisterRequest struct {
	Role        id.Role
	Username    string
	Password    string
	DisplayName string
	// ActorID is the admin performing the registration, empty for bootstrap.
	ActorID string
}

func (r *RegisterRequest) Validate() error {
	if !r.Role.IsValid() {
		return dErrors.New(dErrors.CodeValidation, "role must be admin or customer")
	}
	if strings.TrimSpace(r.Username) == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	return secrets.ValidatePassword(r.Password)
}

// Session is the result of a successful login.
type Session struct {
	AccessToken string
	TokenType   string
	ExpiresIn   int
	Principal   *Principal
}
