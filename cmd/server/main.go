package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"provenant/internal/platform/config"
	"provenant/internal/platform/httpserver"
	"provenant/internal/platform/logger"
	"provenant/pkg/platform/middleware/ratelimit"
)

const limiterSweepInterval = time.Minute

// main wires dependencies, exposes the HTTP router and runs the background
// loops until a shutdown signal arrives. Business logic lives in the internal
// service packages.
func main() {
	cfg, err := config.FromEnv()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	in, err := openInfra(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer in.close()

	auditor := buildAudit(cfg, in, log)
	svc, err := buildServices(cfg, in, auditor, log)
	if err != nil {
		return err
	}

	if cfg.Auth.BootstrapAdmin != "" {
		if _, err := svc.identity.EnsureAdmin(ctx, cfg.Auth.BootstrapAdmin, cfg.Auth.BootstrapSecret); err != nil {
			return err
		}
	}

	limiter := ratelimit.New(cfg.Verification.RateLimitPerMinute, cfg.Verification.RateLimitBurst, log,
		ratelimit.WithDisabled(cfg.Verification.RateLimitDisabled),
	)
	srv := httpserver.New(cfg.Server.Addr, newRouter(cfg, svc, limiter, log))

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("starting provenant", "addr", cfg.Server.Addr, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error { return auditor.drain.Run(gctx) })
	g.Go(func() error { return svc.recorder.Run(gctx) })
	if auditor.relay != nil {
		g.Go(func() error { return auditor.relay.Run(gctx) })
	}

	g.Go(func() error {
		ticker := time.NewTicker(limiterSweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := limiter.Sweep(); n > 0 {
					log.Debug("rate limiter swept idle clients", "removed", n)
				}
			}
		}
	})

	return g.Wait()
}
