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
	"github.com/redis/go-redis/v9"

	"github.com/mobistock/mobistock/internal/app"
	"github.com/mobistock/mobistock/internal/migration"
	"github.com/mobistock/mobistock/internal/platform/db"
	"github.com/mobistock/mobistock/internal/settings"
	storepg "github.com/mobistock/mobistock/internal/store/postgres"
	"github.com/mobistock/mobistock/internal/sync"
	"github.com/mobistock/mobistock/jobs"
)

// queueEnqueuer adapts the jobs client to the sync handler.
type queueEnqueuer struct {
	client *jobs.Client
}

func (q queueEnqueuer) EnqueueBatch(ctx context.Context, records []sync.ChangeRecord) error {
	_, err := q.client.EnqueueSyncApply(ctx, jobs.SyncApplyPayload{Records: records})
	return err
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := storepg.EnsureSchema(ctx, pool); err != nil {
		logger.Error("ensure schema", slog.Any("error", err))
		os.Exit(1)
	}
	store := storepg.New(pool)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	set := settings.NewRedis(redisClient)
	if cfg.StoreID != "" {
		if err := set.Set(ctx, settings.KeyThisStoreID, cfg.StoreID); err != nil {
			logger.Error("seed store id", slog.Any("error", err))
			os.Exit(1)
		}
	}

	// Data migrations run to completion before anything touches the store.
	runner := migration.NewRunner(store, set, logger)
	if err := runner.Run(ctx, cfg.AppVersion); err != nil {
		logger.Error("data migration", slog.Any("error", err))
		os.Exit(1)
	}

	integrator := sync.NewIntegrator(store, set, sync.LoggerSink{Logger: logger})
	integrator.SetChunkSize(cfg.SyncChunkSize)

	queueClient := jobs.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := queueClient.Close(); err != nil {
			logger.Warn("queue close", slog.Any("error", err))
		}
	}()

	syncHandler := sync.NewHandler(logger, integrator, queueEnqueuer{client: queueClient})

	router := app.NewRouter(app.RouterParams{
		Logger:      logger,
		Config:      cfg,
		SyncHandler: syncHandler,
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
