// Sentinel dead-man's-switch supervisor: serves the check-in HTTP API and
// runs the watchdog loop that fires warning and final actions.
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/juju/clock"

	"github.com/detrin/sentinel/pkg/actions"
	"github.com/detrin/sentinel/pkg/api"
	"github.com/detrin/sentinel/pkg/cleanup"
	"github.com/detrin/sentinel/pkg/config"
	"github.com/detrin/sentinel/pkg/database"
	"github.com/detrin/sentinel/pkg/services"
	"github.com/detrin/sentinel/pkg/store"
	"github.com/detrin/sentinel/pkg/version"
	"github.com/detrin/sentinel/pkg/watchdog"
)

// schedulerDrainTimeout bounds how long shutdown waits for an in-flight
// watchdog tick. Executions cut off here stay in 'running' state and are
// reaped at next startup.
const schedulerDrainTimeout = 30 * time.Second

func main() {
	// Load .env from the working directory when present
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment",
			"error", err)
	} else {
		slog.Info("Loaded environment from .env")
	}

	slog.Info("Starting sentinel", "version", version.Full())

	ctx := context.Background()

	// 1. Load configuration
	cfg, err := config.LoadFromEnv()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Connect to the database and apply migrations
	dbConfig, err := database.LoadConfigFromEnv()
	if err != nil {
		slog.Error("Failed to load database config", "error", err)
		os.Exit(1)
	}

	dbClient, err := database.NewClient(ctx, dbConfig)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			slog.Error("Error closing database client", "error", err)
		}
	}()
	slog.Info("Connected to PostgreSQL database")

	// 3. Wire the store, action drivers and domain service
	st := store.New(dbClient.DB())
	dispatcher := actions.NewDispatcher(cfg)
	switchService := services.NewSwitchService(st)
	slog.Info("Services initialized")

	// 4. Start the watchdog loop (before the HTTP server, so recovery of
	// orphaned executions happens before new check-ins arrive)
	runner := watchdog.NewRunner(st, dispatcher, clock.WallClock)
	scheduler := watchdog.NewScheduler(st, runner, clock.WallClock)
	scheduler.Start(ctx)

	// 5. Start the retention loop
	retention := cleanup.NewService(&cfg.Retention, st)
	retention.Start(ctx)

	// 6. Start HTTP server (non-blocking)
	httpServer := api.NewServer(cfg, dbClient, switchService, scheduler)
	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", cfg.BindAddress)
		if err := httpServer.Start(cfg.BindAddress); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			errCh <- err
		}
	}()

	slog.Info("Sentinel started successfully", "bind_address", cfg.BindAddress)

	// 7. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 8. Graceful shutdown: stop HTTP intake first, then drain the watchdog
	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	schedulerDone := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(schedulerDone)
	}()

	select {
	case <-schedulerDone:
		slog.Info("Watchdog stopped gracefully")
	case <-time.After(schedulerDrainTimeout):
		slog.Warn("Watchdog drain timeout exceeded, in-flight executions will be reaped at next startup")
	}

	retention.Stop()

	slog.Info("Shutdown complete")
}
