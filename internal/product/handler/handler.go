package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"provenant/internal/product/models"
	id "provenant/pkg/domain"
	dErrors "provenant/pkg/domain-errors"
	"provenant/pkg/platform/httputil"
	"provenant/pkg/requestcontext"
)

// Service defines the product registry operations exposed over HTTP.
type Service interface {
	RegisterProduct(ctx context.Context, actor id.Actor, req models.RegisterRequest) (*models.Product, error)
	Lookup(ctx context.Context, serial string) (*models.Product, error)
	ListForCustomer(ctx context.Context, customerID id.PrincipalID) ([]*models.Product, error)
	TransferOwnership(ctx context.Context, actor id.Actor, productID id.ProductID, newOwnerID id.PrincipalID) (*models.Product, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterAdmin mounts admin product endpoints.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/products", h.HandleRegister)
	r.Get("/admin/products/{serial}", h.HandleLookup)
	r.Post("/admin/products/{id}/transfer", h.HandleTransfer)
}

// RegisterCustomer mounts customer product endpoints.
func (h *Handler) RegisterCustomer(r chi.Router) {
	r.Get("/me/products", h.HandleListMine)
}

// HandleRegister handles POST /admin/products.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterProductRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	product, err := h.service.RegisterProduct(ctx, requestcontext.Actor(ctx), models.RegisterRequest{
		OwnerID:      req.ParsedOwnerID(),
		SerialNumber: req.SerialNumber,
		Name:         req.Name,
		Description:  req.Description,
	})
	if err != nil {
		h.logger.ErrorContext(ctx, "product registration failed",
			"request_id", requestID,
			"serial_number", req.SerialNumber,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "product registered",
		"request_id", requestID,
		"product_id", product.ID,
		"serial_number", product.SerialNumber,
	)
	httputil.WriteJSON(w, http.StatusCreated, FromProduct(product))
}

// HandleLookup handles GET /admin/products/{serial}.
func (h *Handler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	product, err := h.service.Lookup(ctx, chi.URLParam(r, "serial"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProduct(product))
}

// HandleTransfer handles POST /admin/products/{id}/transfer.
func (h *Handler) HandleTransfer(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	productID, err := id.ParseProductID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid product id"))
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransferRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	product, err := h.service.TransferOwnership(ctx, requestcontext.Actor(ctx), productID, req.ParsedOwnerID())
	if err != nil {
		h.logger.ErrorContext(ctx, "product transfer failed",
			"request_id", requestID,
			"product_id", productID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProduct(product))
}

// HandleListMine handles GET /me/products.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	products, err := h.service.ListForCustomer(ctx, requestcontext.PrincipalID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "list products failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromProducts(products))
}
