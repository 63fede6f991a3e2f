package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/reduc/agenda/internal/app"
	"github.com/reduc/agenda/internal/audit"
	"github.com/reduc/agenda/internal/directory"
	jobmetrics "github.com/reduc/agenda/internal/jobs"
	"github.com/reduc/agenda/internal/platform/db"
	"github.com/reduc/agenda/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The worker never mints tokens.
	cfg, err := app.ReadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	metrics := jobmetrics.NewMetrics(prometheus.DefaultRegisterer)

	dir := directory.NewAuthenticator(cfg.DirectoryConfig(), directory.NewDialer(cfg.DirectoryConfig()), logger)

	auditJob := jobs.NewAuditWriteJob(audit.NewPGStore(pool), metrics, logger)
	probeJob := jobs.NewDirectoryProbeJob(dir, metrics, logger)

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts:   asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:      logger,
		Concurrency: cfg.WorkerConcurrency,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAuditWrite, Handler: auditJob.Handle},
			{Type: jobs.TaskDirectoryProbe, Handler: probeJob.Handle},
		},
		Cron: []jobs.CronRegistration{
			jobs.DirectoryProbeCron(cfg.DirectoryProbeCron),
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
