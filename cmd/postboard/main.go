package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/postboard/postboard/internal/app"
	"github.com/postboard/postboard/internal/observability"
	"github.com/postboard/postboard/internal/platform/cache"
	"github.com/postboard/postboard/internal/platform/db"
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
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("postboard exited", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	var pool *pgxpool.Pool
	if cfg.StoreDriver == app.StoreDriverPostgres {
		if cfg.DBAutoMigrate {
			if err := db.Migrate(cfg.PGDSN); err != nil {
				return err
			}
			logger.Info("database migrations applied")
		}
		var err error
		pool, err = db.New(ctx, cfg.PGDSN, db.PoolOptions{MaxConns: cfg.PGMaxConns})
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	redisClient, err := cache.New(ctx, cache.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		logger.Warn("redis ping", slog.Any("error", err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	metrics := observability.NewMetrics()
	metrics.Registerer().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	handler, err := app.BuildHandler(cfg, logger, app.Deps{
		Pool:    pool,
		Redis:   redisClient,
		Metrics: metrics,
	})
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      handler,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("http server listening", slog.String("addr", cfg.AppAddr), slog.String("store", cfg.StoreDriver))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppShutdownGrace)
		defer cancel()
		logger.Info("shutting down http server")
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
