// One-shot export of the upcoming payment schedule to Google Sheets.
// Meant to run from cron or CI.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"tesoreria/internal/config"
	"tesoreria/internal/export"
	"tesoreria/internal/storage"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	owner := flag.String("owner", "", "owner whose schedule to export")
	flag.Parse()
	if *owner == "" {
		logger.Error("Missing required -owner flag")
		os.Exit(1)
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateExport(); err != nil {
		logger.Error("Export configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	writer, err := export.NewGoogleClient(ctx,
		cfg.GoogleSpreadsheetID,
		cfg.GoogleSheetName,
		cfg.GoogleCredentialsFile,
		cfg.GoogleCredentialsJSON)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", "error", err)
		os.Exit(1)
	}

	exporter := export.NewExporter(repo, writer)
	rows, err := exporter.Export(ctx, *owner, time.Now(), cfg.ExportHorizonDays)
	if err != nil {
		logger.Error("Export failed", "error", err, "owner", *owner)
		os.Exit(1)
	}

	logger.Info("Export complete",
		"owner", *owner,
		"rows", rows,
		"spreadsheet", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)
}
