package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"

	"github.com/meridian-health/meridian/internal/app"
	"github.com/meridian-health/meridian/internal/dashboard"
	"github.com/meridian-health/meridian/internal/metrics"
	"github.com/meridian-health/meridian/internal/metricsource"
	"github.com/meridian-health/meridian/internal/platform/cache"
	"github.com/meridian-health/meridian/internal/rbac"
	"github.com/meridian-health/meridian/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
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
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
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

	sourceClient := metricsource.NewClient(metricsource.Config{
		DataServiceURL:    cfg.DataServiceURL,
		BillingServiceURL: cfg.BillingServiceURL,
		DomainTimeout:     cfg.DomainTimeout,
		RevenueTimeout:    cfg.RevenueTimeout,
	}, logger, nil)

	composer := dashboard.NewComposer(resolver, sourceClient, metrics.NewSynthesizer(logger), logger, nil)
	viewCache := dashboard.NewViewCache(redisClient, cfg.DashboardCacheTTL)

	warmupJob := jobs.NewDashboardWarmupJob(composer, viewCache, logger, nil)

	warmupTask, err := jobs.NewDashboardWarmupTask(jobs.DashboardWarmupPayload{})
	if err != nil {
		logger.Error("build warmup task", slog.Any("error", err))
		os.Exit(1)
	}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: redisOpts,
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskDashboardWarmup, Handler: warmupJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "*/15 * * * *", Task: warmupTask, Options: []asynq.Option{asynq.Queue(jobs.QueueDefault)}},
		},
	})
	if err != nil {
		logger.Error("build worker", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("starting worker")
	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("worker stopped")
}
