package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"skledger/internal/backend"
	"skledger/internal/cache"
	"skledger/internal/cli"
	apphttp "skledger/internal/http"
	"skledger/internal/ledger"
	applog "skledger/internal/log"
)

func main() {
	cfg, logger := cli.LoadAndValidateConfig(applog.ComponentApp, nil)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.Logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend",
			applog.FieldError, err,
			"backend", cfg.DataBackend,
			"error_type", applog.ErrorTypeDatabase)
		os.Exit(1)
	}

	snapshots := cache.NewSnapshotCache(64, 30*time.Minute)
	controller := ledger.NewController(result.Backend, ledger.Config{
		AutosaveDelay: cfg.AutosaveDelay,
		AccountLimit:  cfg.AccountColumnLimit,
		OnChange:      snapshots.Invalidate,
	})

	deps := apphttp.Deps{
		Ledger:    controller,
		Lister:    result.Backend,
		Snapshots: snapshots,
	}
	if p, ok := result.Backend.(backend.Pinger); ok {
		deps.Health = p
	}
	srv := apphttp.NewServer(":"+cfg.Port, deps)

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup failed", applog.FieldError, err)
			}
		}
	})

	logger.Info("Starting skledger server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"autosave_delay", cfg.AutosaveDelay,
		"account_limit", controller.AccountLimit())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
