package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"provenant/internal/identity/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

// Service defines the identity operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, actor id.Actor, req models.RegisterRequest) (*models.Principal, error)
	Authenticate(ctx context.Context, role id.Role, username, password string) (*models.Session, error)
	Deactivate(ctx context.Context, actor id.Actor, principalID id.PrincipalID) (*models.Principal, error)
}

// Handler serves login and principal management endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the login endpoints.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/auth/admin/login", h.loginFor(id.RoleAdmin))
	r.Post("/auth/customer/login", h.loginFor(id.RoleCustomer))
}

// RegisterAdmin mounts principal management. The router must already enforce the admin role.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/customers", h.registerFor(id.RoleCustomer))
	r.Post("/admin/admins", h.registerFor(id.RoleAdmin))
	r.Post("/admin/principals/{id}/deactivate", h.HandleDeactivate)
}

func (h *Handler) loginFor(role id.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		req, ok := httputil.DecodeAndPrepare[LoginRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}

		session, err := h.service.Authenticate(ctx, role, req.Username, req.Password)
		if err != nil {
			h.logger.WarnContext(ctx, "login failed",
				"request_id", requestID,
				"role", role,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}

		h.logger.InfoContext(ctx, "login succeeded",
			"request_id", requestID,
			"principal_id", session.Principal.ID,
			"role", role,
		)
		httputil.WriteJSON(w, http.StatusOK, LoginResponse{
			AccessToken: session.AccessToken,
			TokenType:   session.TokenType,
			ExpiresIn:   session.ExpiresIn,
		})
	}
}

func (h *Handler) registerFor(role id.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := requestcontext.RequestID(ctx)

		req, ok := httputil.DecodeAndPrepare[RegisterPrincipalRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}

		principal, err := h.service.Register(ctx, requestcontext.Actor(ctx), models.RegisterRequest{
			Role:        role,
			Username:    req.Username,
			Password:    req.Password,
			DisplayName: req.DisplayName,
		})
		if err != nil {
			h.logger.ErrorContext(ctx, "principal registration failed",
				"request_id", requestID,
				"role", role,
				"error", err,
			)
			httputil.WriteError(w, err)
			return
		}

		httputil.WriteJSON(w, http.StatusCreated, FromPrincipal(principal))
	}
}

// HandleDeactivate handles POST /admin/principals/{id}/deactivate.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	principalID, err := id.ParsePrincipalID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid principal id"))
		return
	}

	principal, err := h.service.Deactivate(ctx, requestcontext.Actor(ctx), principalID)
	if err != nil {
		h.logger.ErrorContext(ctx, "principal deactivation failed",
			"request_id", requestID,
			"principal_id", principalID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, FromPrincipal(principal))
}
