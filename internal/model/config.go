package model

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/viper"
)

// StorageConfig locates the local durable store.
type StorageConfig struct {
	// Path is the SQLite database file. ":memory:" keeps everything in RAM.
	Path string `mapstructure:"path" yaml:"path"`
}

// RemoteConfig holds settings for the optional remote document store.
// An empty BaseURL runs the client in local-only mode.
type RemoteConfig struct {
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	TimeoutSec int    `mapstructure:"timeout_sec" yaml:"timeout_sec"`
	MaxRetries int    `mapstructure:"max_retries" yaml:"max_retries"`
}

// Timeout returns the per-request timeout.
func (c RemoteConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// AIConfig holds settings for the AI text generation providers.
type AIConfig struct {
	ClaudeModel string `mapstructure:"claude_model" yaml:"claude_model"`
	GeminiModel string `mapstructure:"gemini_model" yaml:"gemini_model"`
	MaxTokens   int    `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// NotificationConfig controls the background notification task.
type NotificationConfig struct {
	IntervalSec int `mapstructure:"interval_sec" yaml:"interval_sec"`
}

// Interval returns the tick period of the notification task.
func (c NotificationConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSec) * time.Second
}

// DisplayConfig holds UI/rendering preferences.
type DisplayConfig struct {
	Theme          string `mapstructure:"theme" yaml:"theme"`
	CurrencySymbol string `mapstructure:"currency_symbol" yaml:"currency_symbol"`
}

// LogConfig controls the logger.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	Storage       StorageConfig      `mapstructure:"storage" yaml:"storage"`
	Remote        RemoteConfig       `mapstructure:"remote" yaml:"remote"`
	AI            AIConfig           `mapstructure:"ai" yaml:"ai"`
	Notifications NotificationConfig `mapstructure:"notifications" yaml:"notifications"`
	Display       DisplayConfig      `mapstructure:"display" yaml:"display"`
	Log           LogConfig          `mapstructure:"log" yaml:"log"`
}

// DefaultConfigPath returns the default path for the configuration file,
// located at ~/.config/theora/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "theora", "config.yaml")
}

// DefaultStoragePath returns ~/.config/theora/theora.db.
func DefaultStoragePath() string {
	return filepath.Join(filepath.Dir(DefaultConfigPath()), "theora.db")
}

// DefaultAppConfig returns a sensible default configuration.
func DefaultAppConfig() *AppConfig {
	return &AppConfig{
		Storage: StorageConfig{Path: DefaultStoragePath()},
		Remote: RemoteConfig{
			TimeoutSec: 15,
			MaxRetries: 3,
		},
		AI: AIConfig{
			ClaudeModel: "claude-sonnet-4-5-20250929",
			GeminiModel: "gemini-2.5-flash",
			MaxTokens:   512,
		},
		Notifications: NotificationConfig{IntervalSec: 60},
		Display: DisplayConfig{
			Theme:          "default",
			CurrencySymbol: "₦",
		},
		Log: LogConfig{Level: "info"},
	}
}

// LoadConfig reads configuration from the given YAML file path using Viper.
// If the file does not exist, it returns a default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	def := DefaultAppConfig()

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("storage.path", def.Storage.Path)
	v.SetDefault("remote.timeout_sec", def.Remote.TimeoutSec)
	v.SetDefault("remote.max_retries", def.Remote.MaxRetries)
	v.SetDefault("ai.claude_model", def.AI.ClaudeModel)
	v.SetDefault("ai.gemini_model", def.AI.GeminiModel)
	v.SetDefault("ai.max_tokens", def.AI.MaxTokens)
	v.SetDefault("notifications.interval_sec", def.Notifications.IntervalSec)
	v.SetDefault("display.theme", def.Display.Theme)
	v.SetDefault("display.currency_symbol", def.Display.CurrencySymbol)
	v.SetDefault("log.level", def.Log.Level)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return def, nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return def, nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := DefaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Notifications.IntervalSec <= 0 {
		cfg.Notifications.IntervalSec = def.Notifications.IntervalSec
	}
	if cfg.Remote.MaxRetries < 0 {
		cfg.Remote.MaxRetries = 0
	}

	return cfg, nil
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("storage", cfg.Storage)
	v.Set("remote", cfg.Remote)
	v.Set("ai", cfg.AI)
	v.Set("notifications", cfg.Notifications)
	v.Set("display", cfg.Display)
	v.Set("log", cfg.Log)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}

// Env holds secrets and deployment overrides read from THEORA_* variables.
// Example: THEORA_ANTHROPIC_API_KEY, THEORA_REMOTE_URL.
type Env struct {
	ConfigPath      string `envconfig:"CONFIG"`
	AnthropicAPIKey string `envconfig:"ANTHROPIC_API_KEY"`
	GeminiAPIKey    string `envconfig:"GEMINI_API_KEY"`
	RemoteURL       string `envconfig:"REMOTE_URL"`
	RemoteToken     string `envconfig:"REMOTE_TOKEN"`
	LogLevel        string `envconfig:"LOG_LEVEL"`
}

// LoadEnv parses THEORA_* environment variables.
func LoadEnv() (*Env, error) {
	var env Env
	if err := envconfig.Process("THEORA", &env); err != nil {
		return nil, fmt.Errorf("processing environment: %w", err)
	}
	return &env, nil
}

// Override applies non-empty environment values on top of cfg.
func (e *Env) Override(cfg *AppConfig) {
	if e.RemoteURL != "" {
		cfg.Remote.BaseURL = e.RemoteURL
	}
	if e.LogLevel != "" {
		cfg.Log.Level = e.LogLevel
	}
}
