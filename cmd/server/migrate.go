package main

import (
	"fmt"
	"strings"

	"github.com/applytrack/applytrack/internal/platform/postgres"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:       "migrate [command]",
	Short:     "Apply or inspect database migrations",
	Long:      "Runs a goose migration command against the configured database. Commands: " + strings.Join(postgres.MigrationCommands, ", ") + ". Defaults to up.",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: postgres.MigrationCommands,
	RunE: func(cmd *cobra.Command, args []string) error {
		command := "up"
		if len(args) == 1 {
			command = args[0]
		}

		ctx := cmd.Context()
		_, log, db, cleanup, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		if err := postgres.Migrate(ctx, db, command, log); err != nil {
			return fmt.Errorf("migrate %s: %w", command, err)
		}
		return nil
	},
}
