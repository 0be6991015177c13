package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultAppConfig(), cfg)
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
remote:
  base_url: https://sync.example.com
  max_retries: -2
notifications:
  interval_sec: 0
display:
  currency_symbol: "$"
`), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "https://sync.example.com", cfg.Remote.BaseURL)
	assert.Zero(t, cfg.Remote.MaxRetries)
	assert.Equal(t, 60, cfg.Notifications.IntervalSec)
	assert.Equal(t, "$", cfg.Display.CurrencySymbol)
	assert.Equal(t, DefaultAppConfig().AI.ClaudeModel, cfg.AI.ClaudeModel)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	cfg := DefaultAppConfig()
	cfg.Remote.BaseURL = "http://localhost:8080"
	cfg.Log.Level = "debug"
	require.NoError(t, SaveConfig(path, cfg))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080", loaded.Remote.BaseURL)
	assert.Equal(t, "debug", loaded.Log.Level)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("THEORA_REMOTE_URL", "https://env.example.com")
	t.Setenv("THEORA_LOG_LEVEL", "warn")
	t.Setenv("THEORA_GEMINI_API_KEY", "g-key")

	env, err := LoadEnv()
	require.NoError(t, err)
	assert.Equal(t, "g-key", env.GeminiAPIKey)

	cfg := DefaultAppConfig()
	env.Override(cfg)
	assert.Equal(t, "https://env.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, "warn", cfg.Log.Level)
}
