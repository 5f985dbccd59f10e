package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"provenant/internal/certificate/models"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

// Service defines the certificate operations exposed over HTTP.
type Service interface {
	Issue(ctx context.Context, actor id.Actor, req models.IssueRequest) (*models.Certificate, error)
	Revoke(ctx context.Context, actor id.Actor, certificateID id.CertificateID, reason string) (*models.Certificate, error)
	Get(ctx context.Context, certificateID id.CertificateID) (*models.Certificate, error)
	ResolveEffectiveStatus(c *models.Certificate, now time.Time) models.Status
	QRPayload(c *models.Certificate) string
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts certificate administration endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/certificates", h.HandleIssue)
	r.Get("/admin/certificates/{certificate_id}", h.HandleGet)
	r.Post("/admin/certificates/{certificate_id}/revoke", h.HandleRevoke)
}

// HandleIssue handles POST /admin/certificates.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[IssueRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	cert, err := h.service.Issue(ctx, requestcontext.Actor(ctx), models.IssueRequest{
		ProductID:  req.ParsedProductID(),
		ExpiryDate: req.ParsedExpiryDate(),
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "certificate issuance failed",
			"request_id", requestID,
			"product_id", req.ProductID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "certificate issued",
		"request_id", requestID,
		"certificate_id", cert.CertificateID,
		"product_id", cert.ProductID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, h.toResponse(ctx, cert))
}

// HandleGet handles GET /admin/certificates/{certificate_id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	certificateID, err := id.ParseCertificateID(chi.URLParam(r, "certificate_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	cert, err := h.service.Get(ctx, certificateID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.toResponse(ctx, cert))
}

// HandleRevoke handles POST /admin/certificates/{certificate_id}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	certificateID, err := id.ParseCertificateID(chi.URLParam(r, "certificate_id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var reason string
	if r.ContentLength != 0 {
		req, ok := httputil.DecodeAndPrepare[RevokeRequest](w, r, h.logger, ctx, requestID)
		if !ok {
			return
		}
		reason = req.Reason
	}

	cert, err := h.service.Revoke(ctx, requestcontext.Actor(ctx), certificateID, reason)
	if err != nil {
		h.logger.ErrorContext(ctx, "certificate revocation failed",
			"request_id", requestID,
			"certificate_id", certificateID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "certificate revoked",
		"request_id", requestID,
		"certificate_id", certificateID,
	)
	httputil.WriteJSON(w, http.StatusOK, h.toResponse(ctx, cert))
}

func (h *Handler) toResponse(ctx context.Context, cert *models.Certificate) CertificateResponse {
	return FromCertificate(cert, h.service.ResolveEffectiveStatus(cert, requestcontext.Now(ctx)), h.service.QRPayload(cert))
}
