// Package main is the entrypoint for the partscan API server.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/mkurosawa/partscan/internal/api"
	"github.com/mkurosawa/partscan/internal/api/handler"
	mw "github.com/mkurosawa/partscan/internal/api/middleware"
	"github.com/mkurosawa/partscan/internal/api/response"
	"github.com/mkurosawa/partscan/internal/cache"
	"github.com/mkurosawa/partscan/internal/config"
	"github.com/mkurosawa/partscan/internal/job"
	"github.com/mkurosawa/partscan/internal/raster"
)

const (
	version         = "0.1.0"
	shutdownTimeout = 30 * time.Second
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded",
		"env", cfg.Server.Env,
		"default_backend", cfg.OCR.DefaultBackend,
		"fallback_order", cfg.OCR.FallbackOrder)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Optional Redis-backed rate limiting
	var rateLimit *mw.RateLimit
	var limiter cache.Limiter
	if cfg.Redis.URL != "" {
		redisLimiter, err := cache.NewRedisLimiter(cfg.Redis.URL)
		if err != nil {
			return fmt.Errorf("create redis limiter: %w", err)
		}
		defer redisLimiter.Close()

		if err := redisLimiter.Ping(ctx); err != nil {
			return fmt.Errorf("ping redis: %w", err)
		}
		limiter = redisLimiter
		rateLimit = mw.NewRateLimit(limiter, 60)
		slog.Info("redis connected, rate limiting enabled")
	} else {
		slog.Info("no REDIS_URL configured, rate limiting disabled")
	}

	// 3. Job service over the mupdf rasterizer
	store := job.NewStore()
	svc := job.NewService(store, raster.NewFitzRasterizer(cfg.Raster.DPI), cfg)

	// 4. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: rateLimit,

		HealthHandler:      healthHandler(limiter),
		SubmitJobHandler:   handler.NewSubmitJobHandler(svc),
		JobStatusHandler:   handler.NewJobStatusHandler(svc),
		JobResultsHandler:  handler.NewJobResultsHandler(svc),
		JobFailuresHandler: handler.NewJobFailuresHandler(svc),
		RetryJobHandler:    handler.NewRetryJobHandler(svc),
		CandidatesHandler:  handler.NewCandidatesHandler(svc),
		DownloadHandler:    handler.NewDownloadHandler(svc),
	}

	router := api.NewRouter(deps)

	// 5. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler reports liveness plus Redis connectivity when the limiter
// is configured. Jobs run in memory, so there is no database to check.
func healthHandler(limiter cache.Limiter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{}

		if limiter != nil {
			checks["redis"] = "ok"
			if err := limiter.Ping(r.Context()); err != nil {
				checks["redis"] = "degraded"
			}
		}

		for _, state := range checks {
			if state != "ok" {
				response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
					"One or more services degraded", checks)
				return
			}
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"version":  version,
			"services": checks,
		})
	}
}
