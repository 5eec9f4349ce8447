package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/applytrack/applytrack/internal/reminder"
	"github.com/spf13/cobra"
)

// scheduledSweepTimeout bounds a sweep started by the daily trigger.
const scheduledSweepTimeout = 30 * time.Minute

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, task workers and reminder trigger",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, log, db, cleanup, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		app, err := newApplication(ctx, cfg, log, db)
		if err != nil {
			return fmt.Errorf("failed to initialize application: %w", err)
		}
		return app.serve(ctx)
	},
}

// serve runs until ctx ends, then shuts down the HTTP server, the trigger
// and the worker pool in that order.
func (app *application) serve(ctx context.Context) error {
	if err := app.pool.Start(ctx); err != nil {
		return fmt.Errorf("failed to start worker pool: %w", err)
	}

	var trigger *reminder.Trigger
	if app.config.Reminder.Enabled {
		loc, err := app.config.Reminder.Location()
		if err != nil {
			return err
		}
		trigger, err = reminder.NewTrigger(app.sweeper, loc, app.config.Reminder.GateHour,
			scheduledSweepTimeout, app.logger)
		if err != nil {
			return err
		}
		trigger.Start()
		app.logger.Info("next reminder sweep scheduled", "at", trigger.Next())
	}

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", app.config.Server.Port),
		Handler:           app.router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		app.logger.Info("starting server", "port", app.config.Server.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		app.logger.Info("shutting down server")
	case err := <-serverErr:
		if err != nil {
			app.logger.Error("server failed", "error", err)
			runErr = fmt.Errorf("server error: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		app.logger.Error("server shutdown failed", "error", err)
	}
	if trigger != nil {
		if err := trigger.Stop(shutdownCtx); err != nil {
			app.logger.Warn("reminder trigger did not stop cleanly", "error", err)
		}
	}

	poolCtx, cancelPool := context.WithTimeout(context.Background(), app.config.Worker.ShutdownTimeout)
	defer cancelPool()
	if err := app.pool.Stop(poolCtx); err != nil {
		app.logger.Warn("worker pool did not drain cleanly", "error", err)
	}

	app.logger.Info("server shutdown completed")
	return runErr
}
