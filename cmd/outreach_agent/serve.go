package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonathan/outreach-agent/internal/config"
	"github.com/jonathan/outreach-agent/internal/db"
	"github.com/jonathan/outreach-agent/internal/executor"
	"github.com/jonathan/outreach-agent/internal/observability"
	"github.com/jonathan/outreach-agent/internal/orchestrator"
	"github.com/jonathan/outreach-agent/internal/server"
	"github.com/jonathan/outreach-agent/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the engine and its REST API server",
	Long: `Start the scheduling engine and an HTTP server exposing campaign, candidate,
approval, and audit endpoints.

Configuration can be loaded from a JSON file using --config. Command-line
arguments override config file values; DATABASE_URL and LISTEN_ADDR override
both.`,
	RunE: runServe,
}

var (
	serveConfigPath   string
	serveAddr         string
	serveDatabaseURL  string
	serveDryRun       bool
	serveTickInterval int
	serveWorkers      int
	serveVerbose      bool
)

func init() {
	serveCmd.Flags().StringVar(&serveConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "HTTP listen address (defaults to :8080)")
	serveCmd.Flags().StringVar(&serveDatabaseURL, "db-url", "", "PostgreSQL connection URL (optional, defaults to DATABASE_URL env var)")
	serveCmd.Flags().BoolVar(&serveDryRun, "dry-run", false, "Simulate dispatches instead of sending (also forced when no database is configured)")
	serveCmd.Flags().IntVar(&serveTickInterval, "tick-interval", 0, "Scheduler tick period in seconds")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", 0, "Per-campaign candidate concurrency")
	serveCmd.Flags().BoolVarP(&serveVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(serveCmd)
}

func loadServeConfig(cmd *cobra.Command) (config.Config, error) {
	var cfg config.Config
	if serveConfigPath != "" {
		loaded, err := config.LoadConfig(serveConfigPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to load config: %w", err)
		}
		if err := loaded.Validate(); err != nil {
			return cfg, err
		}
		cfg = *loaded
	}

	cfg.LoadEnv()

	// CLI flags take priority, but only when explicitly set.
	if cmd.Flags().Changed("addr") {
		cfg.ListenAddr = serveAddr
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = serveDatabaseURL
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = serveDryRun
	}
	if cmd.Flags().Changed("tick-interval") {
		cfg.TickIntervalSeconds = serveTickInterval
	}
	if cmd.Flags().Changed("workers") {
		cfg.Workers = serveWorkers
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = serveVerbose
	}

	cfg = cfg.MergeWithDefaults(config.Defaults())
	return cfg, cfg.Validate()
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadServeConfig(cmd)
	if err != nil {
		return err
	}

	log, err := observability.NewLogger(cfg.Verbose)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	st, cleanup, err := openStore(ctx, &cfg, log)
	if err != nil {
		return err
	}
	defer cleanup()

	// Channel adapters (the pieces that actually deliver a message) plug in
	// as executor.Executor implementations. Until one is configured every
	// dispatch is simulated.
	if !cfg.DryRun {
		log.Warn("no delivery channel configured, dispatches will be simulated")
	}
	exec := executor.WithTimeout(
		&executor.DryRun{Latency: 200 * time.Millisecond},
		time.Duration(cfg.DispatchTimeoutSeconds)*time.Second,
	)

	engine := orchestrator.New(st, exec, log,
		orchestrator.WithTickInterval(time.Duration(cfg.TickIntervalSeconds)*time.Second),
		orchestrator.WithWorkers(cfg.Workers),
		orchestrator.WithRetryBackoff(time.Duration(cfg.RetryBackoffSeconds)*time.Second),
	)
	if err := engine.Start(ctx); err != nil {
		return fmt.Errorf("failed to start engine: %w", err)
	}
	defer engine.Stop()

	srv := server.New(server.Config{Addr: cfg.ListenAddr}, st, engine, log)
	return srv.Start()
}

// openStore connects to PostgreSQL when a URL is configured, otherwise falls
// back to the in-memory store and forces dry-run mode.
func openStore(ctx context.Context, cfg *config.Config, log *zap.Logger) (store.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Warn("no DATABASE_URL configured, using in-memory store (state is lost on exit)")
		cfg.DryRun = true
		return store.NewMemory(), func() {}, nil
	}

	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := database.Migrate(ctx); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return database, database.Close, nil
}
