package main

import (
	"context"
	"errors"
	"os"
	"time"

	"skledger/internal/amqp"
	"skledger/internal/cli"
	"skledger/internal/config"
	"skledger/internal/export"
	applog "skledger/internal/log"
	"skledger/internal/sheets"
	gsheet "skledger/internal/sheets/google"
	"skledger/internal/worker"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentWorker, (*config.Config).ValidateWorker)
	logger.Info("Starting skledger-worker")

	repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	var publishers []sheets.SnapshotPublisher
	if cfg.ExportDir != "" {
		publishers = append(publishers, export.DirWriter{Dir: cfg.ExportDir})
		logger.Info("Workbook export enabled", "dir", cfg.ExportDir)
	}
	if cfg.GoogleSpreadsheetID != "" {
		pub, err := gsheet.New(context.Background(), cfg.GoogleSpreadsheetID)
		if err != nil {
			logger.Error("Failed to initialize Google Sheets publisher",
				applog.FieldError, err,
				"error_type", applog.ErrorTypeConfiguration)
			os.Exit(1)
		}
		publishers = append(publishers, pub)
		logger.Info("Google Sheets publishing enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client",
			applog.FieldError, err,
			"error_type", applog.ErrorTypeNetwork)
		os.Exit(1)
	}
	defer amqpClient.Close()

	exporter := worker.NewExportWorker(repo, cfg.AccountColumnLimit, publishers...)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// Catch up on anything saved while the worker was down.
	logger.Info("Exporting stored periods")
	if err := exporter.ExportAll(ctx, repo); err != nil {
		logger.Error("Startup export failed", applog.FieldError, err)
	}

	logger.Info("Consuming period saved messages", "queue", cfg.AMQPQueue)
	if err := amqpClient.ConsumePeriodSaved(ctx, exporter.HandlePeriodSaved); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped")
}
