// Package main is the applytrack server: HTTP API, background analysis
// workers and the daily follow-up reminder sweep.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "applytrack",
	Short: "Job application tracker backend",
	Long: `applytrack runs the job application tracker backend: CV analysis and
fit-score tasks on a durable PostgreSQL queue, and a daily sweep that emails
follow-up reminders for applications due tomorrow.

Configuration is read from an optional config file and APPLYTRACK_*
environment variables. A .env file in the working directory is loaded first.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to a config file (yaml, json or toml)")
	rootCmd.AddCommand(serveCmd, sweepCmd, migrateCmd)
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
