package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/omniretail/omnidesk/internal/api"
	"github.com/omniretail/omnidesk/internal/api/uistatic"
	"github.com/omniretail/omnidesk/internal/config"
	"github.com/omniretail/omnidesk/internal/observability"
	"github.com/omniretail/omnidesk/internal/omni"
)

func main() {
	cfg, err := config.LoadFromEnv("omnidesk-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	startCtx, cancelStart := context.WithTimeout(context.Background(), 30*time.Second)
	agent, err := omni.NewFromConfig(startCtx, cfg, logger)
	cancelStart()
	if err != nil {
		logger.Error("failed to initialize agent", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("agent ready", slog.Int("stores", len(agent.Definitions())))

	handler := api.NewHandler(cfg, api.Dependencies{
		Logger:            logger,
		Agent:             agent,
		UI:                uistatic.Handler(),
		Readiness:         api.CheckStores(agent),
		DependencyTimeout: 2 * time.Second,
	})
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server", slog.String("addr", cfg.HTTP.Address))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
