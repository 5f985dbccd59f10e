package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"provenant/internal/scanlog/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

// Service defines the scan history queries exposed over HTTP.
type Service interface {
	QueryForCustomer(ctx context.Context, actor id.Actor, customerID id.PrincipalID, filter models.Filter) ([]*models.ScanLog, error)
	SummaryForCustomer(ctx context.Context, actor id.Actor, customerID id.PrincipalID, since *time.Time) (*models.Summary, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterCustomer mounts the caller's own scan history.
func (h *Handler) RegisterCustomer(r chi.Router) {
	r.Get("/me/scans", h.HandleListMine)
	r.Get("/me/scans/summary", h.HandleSummaryMine)
}

// RegisterAdmin mounts scan history for any customer.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/customers/{id}/scans", h.HandleListForCustomer)
}

// HandleListMine handles GET /me/scans.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, requestcontext.PrincipalID(r.Context()))
}

// HandleListForCustomer handles GET /admin/customers/{id}/scans.
func (h *Handler) HandleListForCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := id.ParsePrincipalID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid customer id"))
		return
	}
	h.list(w, r, customerID)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request, customerID id.PrincipalID) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	filter, err := parseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if err := filter.Normalize(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	scans, err := h.service.QueryForCustomer(ctx, requestcontext.Actor(ctx), customerID, filter)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "scan query failed",
				"request_id", requestID,
				"customer_id", customerID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromScans(scans, filter))
}

// HandleSummaryMine handles GET /me/scans/summary.
func (h *Handler) HandleSummaryMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	since, err := parseTime(r.URL.Query(), "since")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	summary, err := h.service.SummaryForCustomer(ctx, requestcontext.Actor(ctx), requestcontext.PrincipalID(ctx), since)
	if err != nil {
		h.logger.ErrorContext(ctx, "scan summary failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromSummary(summary, since))
}
