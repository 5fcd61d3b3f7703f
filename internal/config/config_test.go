package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_ValidJSON(t *testing.T) {
	// Create temp config file
	content := `{
		"listen_addr": ":9090",
		"database_url": "postgres://localhost/outreach",
		"tick_interval_seconds": 10,
		"workers": 4,
		"dry_run": true,
		"verbose": true
	}`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	require.NotNil(t, cfg)

	assert.Equal(t, ":9090", cfg.ListenAddr)
	assert.Equal(t, "postgres://localhost/outreach", cfg.DatabaseURL)
	assert.Equal(t, 10, cfg.TickIntervalSeconds)
	assert.Equal(t, 4, cfg.Workers)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.Verbose)
}

func TestLoadConfig_InvalidJSON(t *testing.T) {
	content := `{ invalid json }`

	tmpFile := filepath.Join(t.TempDir(), "config.json")
	err := os.WriteFile(tmpFile, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(tmpFile)
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to parse config JSON")
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.json")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "failed to read config file")
}

func TestLoadConfig_EmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config path is empty")
}

func TestValidate_NegativeValues(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"negative tick interval", Config{TickIntervalSeconds: -1}},
		{"negative workers", Config{Workers: -4}},
		{"negative retry backoff", Config{RetryBackoffSeconds: -10}},
		{"negative dispatch timeout", Config{DispatchTimeoutSeconds: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Validate())
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	cfg := Defaults()
	assert.NoError(t, cfg.Validate())
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{ListenAddr: ":7000", Workers: 2}
	merged := cfg.MergeWithDefaults(Defaults())

	// Explicit values survive the merge.
	assert.Equal(t, ":7000", merged.ListenAddr)
	assert.Equal(t, 2, merged.Workers)

	// Unset values pick up defaults.
	assert.Equal(t, 30, merged.TickIntervalSeconds)
	assert.Equal(t, 900, merged.RetryBackoffSeconds)
	assert.Equal(t, 30, merged.DispatchTimeoutSeconds)
	assert.False(t, merged.DryRun)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://env-host/outreach")
	t.Setenv("LISTEN_ADDR", ":6000")

	cfg := Config{DatabaseURL: "postgres://file-host/outreach"}
	cfg.LoadEnv()

	assert.Equal(t, "postgres://env-host/outreach", cfg.DatabaseURL)
	assert.Equal(t, ":6000", cfg.ListenAddr)
}
