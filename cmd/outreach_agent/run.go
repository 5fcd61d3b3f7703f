package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/executor"
	"github.com/jonathan/outreach-agent/internal/observability"
	"github.com/jonathan/outreach-agent/internal/orchestrator"
)

var runCommand = &cobra.Command{
	Use:   "run",
	Short: "Perform a single scheduling pass and exit",
	Long: `Reseed rate counters from the audit trail, evaluate every eligible
candidate in every active campaign once, and exit. Intended for cron-driven
deployments that do not keep the serve process running.`,
	RunE: runOnceCmd,
}

var (
	runDatabaseURL string
	runVerbose     bool
	runTimeout     int
)

func init() {
	runCommand.Flags().StringVar(&runDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	runCommand.Flags().IntVar(&runTimeout, "timeout", 300, "Overall pass deadline in seconds")
	runCommand.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(runCommand)
}

func runOnceCmd(_ *cobra.Command, _ []string) error {
	databaseURL := runDatabaseURL
	if databaseURL == "" {
		databaseURL = os.Getenv("DATABASE_URL")
	}
	if databaseURL == "" {
		return fmt.Errorf("a database is required: pass --db-url or set DATABASE_URL")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(runTimeout)*time.Second)
	defer cancel()

	database, err := db.Connect(ctx, databaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()
	if err := database.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log, err := observability.NewLogger(runVerbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	engine := orchestrator.New(database, &executor.DryRun{}, log)
	return engine.RunOnce(ctx)
}
