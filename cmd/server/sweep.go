package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run one reminder sweep and exit",
	Long: `Runs the follow-up reminder sweep once, for use from an external scheduler.
Before the configured gate hour the sweep does nothing. Applications already
reminded are skipped, so repeated runs on the same day send nothing new.`,
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

		n, err := app.sweeper.RunOnce(ctx)
		if err != nil {
			return fmt.Errorf("reminder sweep failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "reminders sent: %d\n", n)
		return nil
	},
}
