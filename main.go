package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jobtrack/application-tracker/internal/auth"
	"github.com/jobtrack/application-tracker/internal/config"
	"github.com/jobtrack/application-tracker/internal/dispatch"
	"github.com/jobtrack/application-tracker/internal/logging"
	"github.com/jobtrack/application-tracker/internal/notify"
	"github.com/jobtrack/application-tracker/internal/server"
	"github.com/jobtrack/application-tracker/internal/storage"
	"github.com/jobtrack/application-tracker/internal/tracker"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the wired services. The caller must defer app.Close().
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	store   storage.Storage
	jobs    *dispatch.Dispatcher
	tracker *tracker.Service
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	logger := logging.New(cfg.Log, os.Stderr)

	store, err := storage.NewStorage(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	notifier, err := notify.NewNotifier(cfg.Notify)
	if err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to initialize notifier: %w", err)
	}
	if p, ok := notifier.(interface{ Ping(context.Context) error }); ok {
		timeout := cfg.Notify.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		if err := p.Ping(ctx); err != nil {
			logger.Warn("notifier is not reachable, inserts will still succeed", "type", cfg.Notify.Type, "error", err)
		}
		cancel()
	}

	jobs := dispatch.New(cfg.Dispatch, logger)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		jobs:    jobs,
		tracker: tracker.NewService(store, jobs, notifier, logger, tracker.RealClock{}),
	}, nil
}

func (a *app) authService() *auth.Service {
	return auth.NewService(a.cfg.Auth, a.store, nil)
}

func (a *app) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Dispatch.TaskTimeout+time.Second)
	defer cancel()
	if err := a.jobs.Shutdown(ctx); err != nil {
		a.logger.Warn("pending side effects abandoned", "error", err)
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("failed to close storage", "error", err)
	}
}

// serve runs the HTTP API until SIGINT/SIGTERM.
func serve(a *app) error {
	httpServer := server.NewServer(a.cfg.Server, server.Deps{
		Tracker:     a.tracker,
		Auth:        a.authService(),
		Logger:      a.logger,
		RequireAuth: a.cfg.Auth.Required,
	})

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.Info("starting HTTP server", "port", a.cfg.Server.Port, "storage", a.cfg.Storage.Type)
		if err := httpServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-sigChan:
		a.logger.Info("shutdown signal received, gracefully shutting down")
	case runErr = <-serverErr:
		a.logger.Error("HTTP server error", "error", runErr)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		a.logger.Error("HTTP server shutdown error", "error", err)
	}

	a.logger.Info("shutdown complete")
	return runErr
}
