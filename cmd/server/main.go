package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/nuptia/admin/internal/backend"
	"github.com/nuptia/admin/internal/config"
	"github.com/nuptia/admin/internal/importer"
	"github.com/nuptia/admin/internal/logging"
	"github.com/nuptia/admin/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	// Load and validate configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Setup structured logging based on config
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"backend_url", cfg.Backend.URL,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	// Client for the hosted backend (creation requests + operator checks)
	client := backend.New(backend.Options{
		URL:            cfg.Backend.URL,
		ServiceKey:     cfg.Backend.ServiceKey,
		RequestTimeout: cfg.Backend.RequestTimeout,
	})

	// Import service with config
	service := importer.NewService(client, importer.Options{
		MaxConcurrent:   cfg.Import.MaxConcurrent,
		MaxWaitTime:     cfg.Import.MaxWaitTime,
		ResultRetention: cfg.Import.ResultRetention,
	})

	// Create server with config
	server := web.NewServer(service, client, cfg)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Wait for active import runs to complete (with timeout)
		if active := service.Limiter().ActiveCount(); active > 0 {
			slog.Info("waiting for import runs to complete", "active", active)
			if err := service.Limiter().WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("import runs did not complete in time", "error", err)
			} else {
				slog.Info("all import runs completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	// Start server (uses addr from config internally)
	slog.Info("server starting", "addr", cfg.Server.Addr())
	if err := server.Start(); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
