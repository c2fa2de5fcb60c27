package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"tesoreria/internal/audit"
	"tesoreria/internal/config"
	"tesoreria/internal/services"
	"tesoreria/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting projection-worker")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	var recorder audit.Recorder
	if cfg.AMQPURL != "" {
		client, err := audit.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without audit trail", "error", err)
		} else {
			defer client.Close()
			recorder = client
		}
	}

	projector := services.NewProjector(repo, recorder)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Projection worker configured",
		"interval", cfg.ProjectionInterval,
		"sqlite_db", cfg.SQLiteDBPath)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Run one pass on startup, then on every tick.
		if count, err := projector.ProjectAll(ctx, time.Now()); err != nil {
			logger.Error("Initial projection pass failed", "error", err)
		} else {
			logger.Info("Initial projection pass complete", "instances_created", count)
		}

		ticker := time.NewTicker(cfg.ProjectionInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case now := <-ticker.C:
				count, err := projector.ProjectAll(ctx, now)
				if err != nil {
					logger.Error("Projection pass failed", "error", err)
					continue
				}
				logger.Info("Projection pass complete",
					"instances_created", count,
					"next_check", now.Add(cfg.ProjectionInterval).Format("15:04:05"))
			}
		}
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Error("Projection worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Projection worker shutdown complete")
}
