package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-health/meridian/internal/app"
	"github.com/meridian-health/meridian/internal/dashboard"
	dashboardhttp "github.com/meridian-health/meridian/internal/dashboard/http"
	"github.com/meridian-health/meridian/internal/metrics"
	"github.com/meridian-health/meridian/internal/metricsource"
	"github.com/meridian-health/meridian/internal/observability"
	"github.com/meridian-health/meridian/internal/platform/cache"
	"github.com/meridian-health/meridian/internal/rbac"
	"github.com/meridian-health/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, dashboard cache disabled", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient == nil {
			return
		}
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	registry, err := rbac.NewRegistry()
	if err != nil {
		logger.Error("build capability registry", slog.Any("error", err))
		os.Exit(1)
	}
	resolver := rbac.NewResolver(registry)

	obs := observability.NewMetrics()

	sourceClient := metricsource.NewClient(metricsource.Config{
		DataServiceURL:    cfg.DataServiceURL,
		BillingServiceURL: cfg.BillingServiceURL,
		DomainTimeout:     cfg.DomainTimeout,
		RevenueTimeout:    cfg.RevenueTimeout,
	}, logger, obs)

	synth := metrics.NewSynthesizer(logger)
	composer := dashboard.NewComposer(resolver, sourceClient, synth, logger, obs)

	var viewCache *dashboard.ViewCache
	if redisClient != nil {
		viewCache = dashboard.NewViewCache(redisClient, cfg.DashboardCacheTTL)
	}

	var inspector *asynq.Inspector
	if redisClient != nil {
		inspector = asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("asynq inspector close", slog.Any("error", err))
			}
		}()
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		RBACMiddleware:     rbac.Middleware{Resolver: resolver, Logger: logger},
		DashboardHandler:   dashboardhttp.NewHandler(composer, viewCache, logger),
		PermissionsHandler: &rbac.PermissionsHandler{Resolver: resolver},
		JobsHandler:        jobs.NewHandler(inspector, logger),
		Metrics:            obs,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
