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
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/shipdesk/shipdesk/internal/app"
	lifecyclehttp "github.com/shipdesk/shipdesk/internal/lifecycle/http"
	"github.com/shipdesk/shipdesk/internal/masterdata"
	"github.com/shipdesk/shipdesk/internal/observability"
	"github.com/shipdesk/shipdesk/internal/platform/cache"
	"github.com/shipdesk/shipdesk/internal/platform/db"
	"github.com/shipdesk/shipdesk/internal/rbac"
	"github.com/shipdesk/shipdesk/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	metrics := observability.NewMetrics()

	var pool *pgxpool.Pool
	if cfg.UsesPostgres() {
		pool, err = db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			logger.Error("connect postgres", slog.Any("error", err))
			os.Exit(1)
		}
		defer pool.Close()
		if cfg.RunMigrations {
			applied, err := db.Migrate(ctx, pool)
			if err != nil {
				logger.Error("migrate", slog.Any("error", err))
				os.Exit(1)
			}
			logger.Info("migrations applied", slog.Any("files", applied))
		}
	} else {
		logger.Warn("memory store driver selected, data is not persisted")
	}

	var redisClient *redis.Client
	redisClient, err = cache.New(ctx, cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB})
	if err != nil {
		logger.Warn("redis unavailable, running without decision cache and queued imports", slog.Any("error", err))
		redisClient = nil
	} else {
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	var (
		rbacService        *rbac.Service
		permissionsHandler *rbac.PermissionsHandler
	)
	rbacMiddleware := rbac.Middleware{Logger: logger}
	if pool != nil {
		var decisions rbac.DecisionCache
		if redisClient != nil {
			decisions = rbac.NewRedisCache(redisClient, cfg.RBACCacheTTL)
		}
		rbacService = rbac.NewService(rbac.NewRepository(pool), decisions, logger)
		rbacMiddleware.Service = rbacService
		permissionsHandler = rbac.NewPermissionsHandler(logger, rbacService, rbacMiddleware)
	}

	var (
		enqueuer   lifecyclehttp.ImportEnqueuer
		jobHandler *jobs.Handler
	)
	if redisClient != nil {
		redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
		jobClient, err := jobs.NewClient(redisOpts)
		if err != nil {
			logger.Error("init job client", slog.Any("error", err))
			os.Exit(1)
		}
		defer func() {
			if err := jobClient.Close(); err != nil {
				logger.Warn("job client close", slog.Any("error", err))
			}
		}()
		enqueuer = jobClient

		inspector := asynq.NewInspector(redisOpts)
		defer func() {
			if err := inspector.Close(); err != nil {
				logger.Warn("inspector close", slog.Any("error", err))
			}
		}()
		jobHandler = jobs.NewHandler(inspector, logger)
	}

	masterDataHandler := masterdata.NewHandler(logger, rbacMiddleware, masterdata.Options{
		Pool:                pool,
		Observer:            metrics,
		Enqueuer:            enqueuer,
		AsyncThreshold:      cfg.ImportAsyncThreshold,
		ImportRatePerMinute: cfg.ImportRatePerMinute,
	})
	if pool != nil {
		added, err := rbac.NewRepository(pool).EnsurePermissions(ctx, masterDataHandler.Catalogue())
		if err != nil {
			logger.Error("seed permission catalogue", slog.Any("error", err))
			os.Exit(1)
		}
		if added > 0 {
			logger.Info("permission catalogue updated", slog.Int("added", added))
		}
	}

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		MasterDataHandler:  masterDataHandler,
		PermissionsHandler: permissionsHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("store", cfg.StoreDriver),
		)
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
