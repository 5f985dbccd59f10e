package handler

import (
	"strings"

	dErrors "provenant/pkg/domain-errors"
)

// LoginRequest is the body of POST /auth/{role}/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (r *LoginRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Username) > 64 || len(r.Password) > 128 {
		return dErrors.New(dErrors.CodeValidation, "credentials too long")
	}
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" || r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "username and password are required")
	}
	return nil
}

// RegisterPrincipalRequest is the body of POST /admin/customers and /admin/admins.
type RegisterPrincipalRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
}

func (r *RegisterPrincipalRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Username = strings.TrimSpace(r.Username)
	if r.Username == "" {
		return dErrors.New(dErrors.CodeValidation, "username is required")
	}
	if r.Password == "" {
		return dErrors.New(dErrors.CodeValidation, "password is required")
	}
	return nil
}
