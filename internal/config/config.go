// Package config provides configuration loading and validation for the
// engine and its CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

// Config represents the engine configuration that can be loaded from a JSON
// file, environment variables, or CLI flags. All fields are optional;
// missing values use defaults.
type Config struct {
	// Server
	ListenAddr string `json:"listen_addr,omitempty"` // HTTP listen address, e.g. ":8080"

	// Engine
	TickIntervalSeconds    int  `json:"tick_interval_seconds,omitempty"`    // Scheduler tick period
	Workers                int  `json:"workers,omitempty"`                  // Per-campaign candidate concurrency
	RetryBackoffSeconds    int  `json:"retry_backoff_seconds,omitempty"`    // Wait after a failed dispatch
	DispatchTimeoutSeconds int  `json:"dispatch_timeout_seconds,omitempty"` // Per-dispatch deadline
	DryRun                 bool `json:"dry_run,omitempty"`                  // Simulate dispatches instead of sending

	// Behavior
	Verbose     bool   `json:"verbose,omitempty"`      // Print detailed debug information
	DatabaseURL string `json:"database_url,omitempty"` // PostgreSQL connection URL
}

// Defaults returns the configuration applied when nothing overrides it.
func Defaults() Config {
	return Config{
		ListenAddr:             ":8080",
		TickIntervalSeconds:    30,
		Workers:                8,
		RetryBackoffSeconds:    900,
		DispatchTimeoutSeconds: 30,
	}
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// LoadEnv loads a .env file if present and overlays recognized environment
// variables onto the config. Environment values win over file values.
func (c *Config) LoadEnv() {
	// Missing .env is fine; explicit environment still applies.
	_ = godotenv.Load()

	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.TickIntervalSeconds < 0 {
		return fmt.Errorf("config error: 'tick_interval_seconds' must be non-negative")
	}
	if c.Workers < 0 {
		return fmt.Errorf("config error: 'workers' must be non-negative")
	}
	if c.RetryBackoffSeconds < 0 {
		return fmt.Errorf("config error: 'retry_backoff_seconds' must be non-negative")
	}
	if c.DispatchTimeoutSeconds < 0 {
		return fmt.Errorf("config error: 'dispatch_timeout_seconds' must be non-negative")
	}
	return nil
}

// MergeWithDefaults returns a new Config with zero-valued fields filled from
// defaults. This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.ListenAddr == "" {
		result.ListenAddr = defaults.ListenAddr
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}
	if result.TickIntervalSeconds == 0 {
		result.TickIntervalSeconds = defaults.TickIntervalSeconds
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}
	if result.RetryBackoffSeconds == 0 {
		result.RetryBackoffSeconds = defaults.RetryBackoffSeconds
	}
	if result.DispatchTimeoutSeconds == 0 {
		result.DispatchTimeoutSeconds = defaults.DispatchTimeoutSeconds
	}
	if defaults.DryRun {
		result.DryRun = true
	}
	if defaults.Verbose {
		result.Verbose = true
	}

	return result
}
