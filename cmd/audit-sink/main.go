// Consumes the audit trail queue and writes each entry to the
// structured log. Meant as the default sink when no external audit
// system is attached.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"tesoreria/internal/audit"
	"tesoreria/internal/config"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	logger.Info("Starting audit-sink")

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the audit sink")
		os.Exit(1)
	}

	client, err := audit.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("Consuming audit trail", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)

	err = client.Consume(ctx, func(e *audit.Entry) error {
		logger.Info("Audit entry",
			"action", e.Action,
			"entity_type", e.EntityType,
			"entity_id", e.EntityID,
			"owner_id", e.OwnerID,
			"timestamp", e.Timestamp.Format("2006-01-02T15:04:05Z07:00"))
		return nil
	})
	if err != nil && err != context.Canceled {
		logger.Error("Audit consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Audit sink shutdown complete")
}
