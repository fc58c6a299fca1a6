package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func chTempDir(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	origDir, _ := os.Getwd()
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(origDir) })
}

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no config.yaml is found
	chTempDir(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "prepforge.db", cfg.Store.DatabaseURL)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30, cfg.Server.RatePerMinute)
	assert.Equal(t, 5, cfg.Server.MaxImageSizeMB)
	assert.Equal(t, "claude-sonnet-4-5-20250929", cfg.Anthropic.Model)
	assert.Equal(t, 4096, cfg.Anthropic.MaxTokens)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, 1000, cfg.Retry.BaseDelayMs)
	assert.Equal(t, 24, cfg.Cache.TTLHours)
	assert.Equal(t, 1000, cfg.Cache.MaxEntries)
	assert.Equal(t, "python3", cfg.Sandbox.PythonPath)
	assert.Equal(t, 30, cfg.Sandbox.MaxTimeoutSecs)
	assert.Equal(t, 5, cfg.Batch.MaxConcurrent)
	assert.Contains(t, cfg.Pricing.Anthropic, "claude-sonnet-4-5-20250929")
	assert.Contains(t, cfg.Pricing.OpenAI, "gpt-4o-mini")
}

func TestLoadFromYAML(t *testing.T) {
	chTempDir(t)

	yaml := `
store:
  driver: postgres
  database_url: postgres://localhost/prepforge
log:
  level: debug
  format: console
server:
  port: 9090
cache:
  ttl_hours: 1
  max_entries: 10
retry:
  max_attempts: 5
`
	require.NoError(t, os.WriteFile("config.yaml", []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/prepforge", cfg.Store.DatabaseURL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 1, cfg.Cache.TTLHours)
	assert.Equal(t, 10, cfg.Cache.MaxEntries)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	// Untouched keys keep their defaults.
	assert.Equal(t, 1000, cfg.Retry.BaseDelayMs)
}

func TestLoadFromEnv(t *testing.T) {
	chTempDir(t)

	t.Setenv("PREPFORGE_ANTHROPIC_KEY", "sk-test")
	t.Setenv("PREPFORGE_SERVER_PORT", "7070")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.Anthropic.Key)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestInitLogger(t *testing.T) {
	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NotNil(t, zap.L())

	require.NoError(t, InitLogger(LogConfig{Level: "info", Format: "json"}))

	err := InitLogger(LogConfig{Level: "not-a-level"})
	assert.Error(t, err)
}
