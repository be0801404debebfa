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

	"github.com/lyceum-app/lyceum/internal/accounts"
	"github.com/lyceum-app/lyceum/internal/app"
	"github.com/lyceum-app/lyceum/internal/audit"
	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/identity"
	"github.com/lyceum-app/lyceum/internal/observability"
	"github.com/lyceum-app/lyceum/internal/platform/cache"
	"github.com/lyceum-app/lyceum/internal/platform/db"
	"github.com/lyceum-app/lyceum/jobs"
)

func main() {
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
	recorder := audit.NewRecorder(dbpool, logger)

	roleRepo := authz.NewRepository(dbpool)
	identityRepo := identity.NewRepository(dbpool)
	roleCache := authz.NewRoleCache(redisClient, cfg.RoleCacheTTL)
	store := authz.NewStore(roleRepo, identityRepo, roleCache, recorder, logger)
	if err := store.SeedSystemRoles(ctx); err != nil {
		logger.Error("seed system roles", slog.Any("error", err))
		os.Exit(1)
	}

	observer := authz.MultiObserver{
		authz.NewLogObserver(logger),
		metrics,
		audit.NewDecisionObserver(recorder),
	}
	endpoints := authz.NewEndpointTable(cfg.EndpointDefaultAllow, app.DefaultEndpointRules()...)
	engine := authz.NewEngine(store, endpoints, authz.DefaultSelfAccessRules(), observer)

	tokens := identity.NewTokens(cfg.AuthTokenSecret, cfg.AuthTokenTTL)
	denylist := identity.NewDenylist(redisClient)
	resolver := identity.NewResolver(tokens, denylist, logger)
	mw := authz.Middleware{Engine: engine, Resolver: resolver, Logger: logger}

	authService := identity.NewService(identityRepo, tokens, denylist)
	authHandler := identity.NewHandler(logger, authService)
	authzHandler := authz.NewHandler(logger, store, engine, mw)
	accountsService := accounts.NewService(identityRepo, store, recorder)
	accountsHandler := accounts.NewHandler(logger, accountsService, mw)

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobsHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		AuthzMiddleware: mw,
		AuthHandler:     authHandler,
		AuthzHandler:    authzHandler,
		AccountsHandler: accountsHandler,
		AuditHandler:    audit.RecentHandler(recorder),
		JobsHandler:     jobsHandler,
		Metrics:         metrics,
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
