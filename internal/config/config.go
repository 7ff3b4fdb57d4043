// Package config provides application configuration management with
// multi-source priority.
//
// Configuration sources (highest to lowest priority):
//  1. Environment variables (MYSTUFF_* runtime override)
//  2. Config file (~/.mystuff/config.yaml)
//  3. Default values (sensible defaults for quick start)
//
// Main configuration categories:
//   - Backend: base URL and request timeout for the My Stuff API
//   - Client: outbound request rate limit
//   - Chat: history window sent with each query
//   - Storage: data directory for tokens and local state
//
// Error Handling:
//   - Uses sentinel errors for Go-idiomatic error checking with errors.Is()
//   - Wrap with context using fmt.Errorf("%w: details", ErrXxx)
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

var (
	// ErrConfigNil indicates the configuration is nil.
	ErrConfigNil = errors.New("configuration is nil")

	// ErrInvalidBaseURL indicates the backend base URL is malformed.
	ErrInvalidBaseURL = errors.New("invalid base URL")

	// ErrInvalidTimeout indicates the request timeout is out of range.
	ErrInvalidTimeout = errors.New("invalid request timeout")

	// ErrInvalidRateLimit indicates the request rate limit is out of range.
	ErrInvalidRateLimit = errors.New("invalid rate limit")

	// ErrInvalidHistoryWindow indicates the chat history window is out of range.
	ErrInvalidHistoryWindow = errors.New("invalid history window")
)

const (
	// DefaultBaseURL is the backend address used when nothing is configured.
	// Matches the backend's local development default.
	DefaultBaseURL = "http://localhost:8000"

	// DefaultTimeoutSeconds bounds a single API request. Query responses can
	// take a while on large documents, so this is generous.
	DefaultTimeoutSeconds = 120

	// DefaultRateLimit is the client-side request budget (requests/second).
	DefaultRateLimit = 10

	// DefaultHistoryWindow is the number of prior messages sent as context
	// with each query. 0 sends the entire transcript; the backend receives
	// full chat history unless the user caps it.
	DefaultHistoryWindow = 0

	// MaxHistoryWindow is the largest configurable cap, keeping request
	// bodies bounded when a cap is set.
	MaxHistoryWindow = 500

	// dataDirName is the per-user state directory under $HOME.
	dataDirName = ".mystuff"
)

// Config stores application configuration.
type Config struct {
	// Backend connection
	BaseURL        string `mapstructure:"base_url" json:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" json:"timeout_seconds"`

	// Client-side rate limit (requests per second, 0 disables)
	RateLimit int `mapstructure:"rate_limit" json:"rate_limit"`

	// Number of prior messages sent as chat history with each query
	// (0 = entire transcript)
	HistoryWindow int `mapstructure:"history_window" json:"history_window"`

	// DataDir holds tokens, UI state and the legacy chat transcript.
	// Empty means ~/.mystuff.
	DataDir string `mapstructure:"data_dir" json:"data_dir"`
}

// Load loads configuration.
// Priority: Environment variables > Configuration file > Default values
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("getting user home directory: %w", err)
	}

	configDir := filepath.Join(home, dataDirName)

	// Ensure directory exists (0750: tokens live here)
	if err := os.MkdirAll(configDir, 0o750); err != nil {
		return nil, fmt.Errorf("creating config directory: %w", err)
	}

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configDir)
	viper.AddConfigPath(".") // Also support current directory

	setDefaults(configDir)
	bindEnvVariables()

	// Read configuration file (if exists)
	if err := viper.ReadInConfig(); err != nil {
		// Configuration file not found is not an error, use default values
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	// Validate immediately (fail-fast)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets all default configuration values.
func setDefaults(configDir string) {
	viper.SetDefault("base_url", DefaultBaseURL)
	viper.SetDefault("timeout_seconds", DefaultTimeoutSeconds)
	viper.SetDefault("rate_limit", DefaultRateLimit)
	viper.SetDefault("history_window", DefaultHistoryWindow)
	viper.SetDefault("data_dir", configDir)
}

// bindEnvVariables binds environment variable overrides explicitly.
func bindEnvVariables() {
	// BindEnv only errors on an empty key; keys here are constants.
	_ = viper.BindEnv("base_url", "MYSTUFF_BASE_URL")
	_ = viper.BindEnv("timeout_seconds", "MYSTUFF_TIMEOUT_SECONDS")
	_ = viper.BindEnv("rate_limit", "MYSTUFF_RATE_LIMIT")
	_ = viper.BindEnv("history_window", "MYSTUFF_HISTORY_WINDOW")
	_ = viper.BindEnv("data_dir", "MYSTUFF_DATA_DIR")
}

// Validate checks all configuration values and returns the first problem
// found as a wrapped sentinel error.
func (c *Config) Validate() error {
	if c == nil {
		return ErrConfigNil
	}

	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: %q (want http(s)://host[:port])", ErrInvalidBaseURL, c.BaseURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%w: scheme %q not supported", ErrInvalidBaseURL, u.Scheme)
	}

	if c.TimeoutSeconds <= 0 || c.TimeoutSeconds > 600 {
		return fmt.Errorf("%w: %d (want 1-600 seconds)", ErrInvalidTimeout, c.TimeoutSeconds)
	}

	if c.RateLimit < 0 || c.RateLimit > 1000 {
		return fmt.Errorf("%w: %d (want 0-1000 requests/second)", ErrInvalidRateLimit, c.RateLimit)
	}

	if c.HistoryWindow < 0 || c.HistoryWindow > MaxHistoryWindow {
		return fmt.Errorf("%w: %d (want 0-%d, 0 sends the full transcript)", ErrInvalidHistoryWindow, c.HistoryWindow, MaxHistoryWindow)
	}

	return nil
}
