package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"provenant/internal/verification/models"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

type Service interface {
	Verify(ctx context.Context, req models.Request) (*models.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterPublic mounts the unauthenticated verification endpoints. Callers
// wrap the router with the per-IP rate limiter.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Post("/verify", h.HandleVerify)
	r.Get("/verify", h.HandleVerifyQR)
}

// HandleVerify handles POST /verify.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[VerifyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.verify(w, r, models.Request{Identifier: req.Identifier, Location: req.Location})
}

// HandleVerifyQR handles GET /verify?cert=..., the QR code landing URL.
func (h *Handler) HandleVerifyQR(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	identifier := q.Get("cert")
	if identifier == "" {
		identifier = q.Get("certificate_id")
	}
	if identifier == "" {
		identifier = q.Get("serial")
	}
	if strings.TrimSpace(identifier) == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "cert query parameter is required"))
		return
	}
	h.verify(w, r, models.Request{Identifier: identifier, Location: strings.TrimSpace(q.Get("location"))})
}

func (h *Handler) verify(w http.ResponseWriter, r *http.Request, req models.Request) {
	ctx := r.Context()
	result, err := h.service.Verify(ctx, req)
	if err != nil {
		h.logger.ErrorContext(ctx, "verification failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	httputil.WriteJSON(w, http.StatusOK, FromResult(result))
}
