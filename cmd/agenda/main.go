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
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/reduc/agenda/internal/app"
	"github.com/reduc/agenda/internal/audit"
	audithttp "github.com/reduc/agenda/internal/audit/http"
	"github.com/reduc/agenda/internal/auth"
	"github.com/reduc/agenda/internal/directory"
	directoryhttp "github.com/reduc/agenda/internal/directory/http"
	"github.com/reduc/agenda/internal/observability"
	"github.com/reduc/agenda/internal/platform/cache"
	"github.com/reduc/agenda/internal/platform/db"
	"github.com/reduc/agenda/internal/rbac"
	"github.com/reduc/agenda/internal/users"
	"github.com/reduc/agenda/jobs"
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

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

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

	metrics := observability.NewMetrics()

	dir := directory.NewAuthenticator(cfg.DirectoryConfig(), directory.NewDialer(cfg.DirectoryConfig()), logger).WithObserver(metrics)

	rbacRepo := rbac.NewRepository(dbpool)
	resolver := rbac.NewResolver(rbacRepo)
	rbacMiddleware := rbac.Middleware{Roles: resolver, Logger: logger}

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	recorder, closeRecorder, err := buildAuditRecorder(cfg, dbpool, redisOpts, logger)
	if err != nil {
		logger.Error("init audit recorder", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeRecorder()

	tokens, err := auth.NewTokenIssuer(cfg.TokenConfig())
	if err != nil {
		logger.Error("init token issuer", slog.Any("error", err))
		os.Exit(1)
	}

	deps := auth.Dependencies{
		Directory: dir,
		Users:     auth.NewRepository(dbpool),
		Roles:     resolver,
		Tokens:    tokens,
		Audit:     recorder,
		Observer:  metrics,
		Logger:    logger,
	}
	if cfg.RefreshSingleUse {
		deps.Ledger = auth.NewRedisLedger(redisClient)
	}
	authService := auth.NewService(deps)
	cookies := auth.NewCookieManager(cfg.CookieConfig())
	guard := auth.NewGuard(tokens, authService, cookies, recorder, logger)
	authHandler := auth.NewHandler(logger, authService, guard, cookies, cfg.LoginRateLimit)

	rbacHandler := rbac.NewHandler(logger, resolver, rbacMiddleware)

	usersService := users.NewService(users.NewRepository(dbpool), logger)
	usersHandler := users.NewHandler(logger, usersService, rbacMiddleware)

	directoryHandler := directoryhttp.NewHandler(logger, dir, rbacMiddleware)

	auditService := audit.NewService(audit.NewPGStore(dbpool))
	auditHandler := audithttp.NewHandler(logger, auditService, rbacMiddleware)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:           logger,
		Config:           cfg,
		Guard:            guard,
		AuthHandler:      authHandler,
		RBACHandler:      rbacHandler,
		UsersHandler:     usersHandler,
		DirectoryHandler: directoryHandler,
		AuditHandler:     auditHandler,
		JobHandler:       jobHandler,
		Metrics:          metrics,
		Readiness: map[string]app.ReadinessCheck{
			"postgres":  dbpool.Ping,
			"redis":     func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
			"directory": dir.Probe,
		},
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

// buildAuditRecorder picks the audit sink. Entries go straight to postgres
// unless AUDIT_QUEUE hands them to the worker; AUDIT_ASYNC moves the write off
// the request path either way.
func buildAuditRecorder(cfg *app.Config, pool *pgxpool.Pool, redisOpts asynq.RedisClientOpt, logger *slog.Logger) (audit.Recorder, func(), error) {
	var (
		recorder audit.Recorder = audit.NewPGStore(pool)
		closers  []func()
	)
	if cfg.AuditQueue {
		client, err := jobs.NewClient(redisOpts)
		if err != nil {
			return nil, nil, err
		}
		recorder = jobs.NewQueueRecorder(client)
		closers = append(closers, func() {
			if err := client.Close(); err != nil {
				logger.Warn("asynq client close", slog.Any("error", err))
			}
		})
	}
	if cfg.AuditAsync {
		async := audit.NewAsync(recorder, logger, 5*time.Second)
		recorder = async
		closers = append([]func(){async.Wait}, closers...)
	}
	return recorder, func() {
		for _, fn := range closers {
			fn()
		}
	}, nil
}
