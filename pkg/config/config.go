// Package config provides configuration loading and validation for the price oracle.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Load loads configuration from a YAML file and environment variables.
func Load(path string) (*Config, error) {
	// Validate and sanitize path
	cleanPath := filepath.Clean(path)
	absPath, err := filepath.Abs(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	// Read config file
	data, err := os.ReadFile(absPath) // #nosec G304 -- Path sanitized with filepath.Clean and filepath.Abs
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in YAML
	expanded := os.ExpandEnv(string(data))

	// Parse YAML
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(&cfg)

	return &cfg, nil
}

// applyDefaults sets default values for optional fields.
func applyDefaults(cfg *Config) {
	if cfg.Pair == "" {
		cfg.Pair = "ETH/USD"
	}

	// Server defaults
	if cfg.Server.HTTP.Addr == "" {
		cfg.Server.HTTP.Addr = ":8080"
	}
	if cfg.Server.WebSocket.Enabled && cfg.Server.WebSocket.Addr == "" {
		cfg.Server.WebSocket.Addr = ":8081"
	}

	// Oracle defaults
	if cfg.Oracle.MaxStaleness.ToDuration() == 0 {
		cfg.Oracle.MaxStaleness = Duration(90 * time.Minute)
	}
	if cfg.Oracle.TWAPWindow.ToDuration() == 0 {
		cfg.Oracle.TWAPWindow = Duration(30 * time.Minute)
	}
	if cfg.Oracle.MinWindow.ToDuration() == 0 {
		cfg.Oracle.MinWindow = Duration(5 * time.Minute)
	}
	if cfg.Oracle.DeviationBps == 0 {
		cfg.Oracle.DeviationBps = 500
	}
	if cfg.Oracle.Capacity == 0 {
		cfg.Oracle.Capacity = 100
	}

	// Feed and pool defaults
	if cfg.Feed.Timeout.ToDuration() == 0 {
		cfg.Feed.Timeout = Duration(10 * time.Second)
	}
	if cfg.Pool.Timeout.ToDuration() == 0 {
		cfg.Pool.Timeout = Duration(10 * time.Second)
	}
	if cfg.Pool.Token0Decimals == 0 {
		cfg.Pool.Token0Decimals = 18
	}
	if cfg.Pool.Token1Decimals == 0 {
		cfg.Pool.Token1Decimals = 18
	}

	// Keeper defaults
	if cfg.Keeper.Interval.ToDuration() == 0 {
		cfg.Keeper.Interval = Duration(60 * time.Second)
	}

	// Storage defaults
	if cfg.Storage.MaxEvents == 0 {
		cfg.Storage.MaxEvents = 10000
	}

	// Metrics defaults
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		cfg.Metrics.Addr = ":9091"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}

	// Logging defaults
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}
}
