package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	certhandler "provenant/internal/certificate/handler"
	identityhandler "provenant/internal/identity/handler"
	"provenant/internal/platform/config"
	"provenant/internal/platform/metrics"
	platformmw "provenant/internal/platform/middleware"
	producthandler "provenant/internal/product/handler"
	scanhandler "provenant/internal/scanlog/handler"
	verificationhandler "provenant/internal/verification/handler"
	id "provenant/pkg/domain"
	"provenant/pkg/platform/httputil"
	adminmw "provenant/pkg/platform/middleware/admin"
	authmw "provenant/pkg/platform/middleware/auth"
	"provenant/pkg/platform/middleware/metadata"
	"provenant/pkg/platform/middleware/ratelimit"
	"provenant/pkg/platform/middleware/request"
	"provenant/pkg/platform/middleware/requesttime"
)

// newRouter mounts every module behind the shared middleware chain. Route
// groups carry the role checks; handlers never inspect tokens.
func newRouter(cfg config.Config, svc *services, limiter *ratelimit.Middleware, logger *slog.Logger) http.Handler {
	identity := identityhandler.New(svc.identity, logger)
	products := producthandler.New(svc.products, logger)
	certificates := certhandler.New(svc.certificates, logger)
	scans := scanhandler.New(svc.scans, logger)
	verification := verificationhandler.New(svc.verification, logger)

	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(logger))
	r.Use(request.Logger(logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(platformmw.LatencyMiddleware(metrics.New()))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.With(adminmw.RequireOpsToken(cfg.Server.OpsToken, logger)).Handle("/metrics", promhttp.Handler())

	// Login and verification are unauthenticated, so both share the per-IP limiter.
	r.Group(func(r chi.Router) {
		r.Use(limiter.Handler)
		identity.RegisterPublic(r)
		verification.RegisterPublic(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireRole(svc.tokens, id.RoleAdmin, logger))
		identity.RegisterAdmin(r)
		products.RegisterAdmin(r)
		certificates.RegisterAdmin(r)
		scans.RegisterAdmin(r)
	})

	r.Group(func(r chi.Router) {
		r.Use(authmw.RequireRole(svc.tokens, id.RoleCustomer, logger))
		products.RegisterCustomer(r)
		scans.RegisterCustomer(r)
	})

	return r
}
