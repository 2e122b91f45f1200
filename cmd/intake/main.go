package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	httpadapter "github.com/couchcryptid/case-intake/internal/adapter/http"
	"github.com/couchcryptid/case-intake/internal/app"
	"github.com/couchcryptid/case-intake/internal/config"
	"github.com/couchcryptid/case-intake/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	a := app.New(cfg, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// A data file that cannot be read is never overwritten: refuse to start.
	if err := a.Service.Open(ctx); err != nil {
		logger.Error("failed to load cases", "path", cfg.CasesFile, "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, a.Service, logger)

	// Start HTTP server.
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if err := a.Close(shutdownCtx); err != nil {
		logger.Error("final save failed", "path", cfg.CasesFile, "error", err)
	}

	logger.Info("shutdown complete")
}
