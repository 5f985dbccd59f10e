package handler

import (
	"time"

	"provenant/internal/identity/models"
)

type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type PrincipalResponse struct {
	ID          string     `json:"id"`
	Role        string     `json:"role"`
	Username    string     `json:"username"`
	DisplayName string     `json:"display_name,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func FromPrincipal(p *models.Principal) PrincipalResponse {
	return PrincipalResponse{
		ID:          p.ID.String(),
		Role:        p.Role.String(),
		Username:    p.Username,
		DisplayName: p.DisplayName,
		IsActive:    p.IsActive,
		LastLogin:   p.LastLogin,
		CreatedAt:   p.CreatedAt,
	}
}
