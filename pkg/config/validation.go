package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Validate checks configuration for errors
func Validate(cfg *Config) error {
	if strings.TrimSpace(cfg.Pair) == "" {
		return ErrPairRequired
	}

	if err := validateOracleConfig(&cfg.Oracle, &cfg.Keeper); err != nil {
		return fmt.Errorf("oracle config: %w", err)
	}

	if err := validateFeedConfig(&cfg.Feed); err != nil {
		return fmt.Errorf("feed config: %w", err)
	}

	if err := validatePoolConfig(&cfg.Pool); err != nil {
		return fmt.Errorf("pool config: %w", err)
	}

	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

func validateOracleConfig(cfg *OracleConfig, keeper *KeeperConfig) error {
	if cfg.Capacity < 2 {
		return ErrCapacityTooSmall
	}
	if cfg.TWAPWindow.ToDuration() < cfg.MinWindow.ToDuration() {
		return ErrWindowBelowMinimum
	}
	if cfg.DeviationBps <= 0 {
		return ErrDeviationNotPositive
	}
	if keeper.Interval.ToDuration() <= 0 {
		return ErrKeeperIntervalNotPositive
	}

	// The ring must retain history past the query window even once slots start
	// being recycled, otherwise consults can outlive the oldest stored
	// observation under a perfectly healthy keeper.
	retention := time.Duration(cfg.Capacity) * keeper.Interval.ToDuration()
	if retention < 2*cfg.TWAPWindow.ToDuration() {
		return ErrRingDoesNotCoverWindow
	}

	return nil
}

func validateFeedConfig(cfg *FeedConfig) error {
	if cfg.RPCURL == "" {
		return ErrFeedRPCURLRequired
	}
	if cfg.Address == "" {
		return ErrFeedAddressRequired
	}
	return nil
}

func validatePoolConfig(cfg *PoolConfig) error {
	if cfg.RPCURL == "" {
		return ErrPoolRPCURLRequired
	}
	if cfg.Address == "" {
		return ErrPoolAddressRequired
	}
	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.Cert == "" || cfg.HTTP.TLS.Key == "" {
			return ErrTLSFilesRequired
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Cert); err != nil {
			return fmt.Errorf("TLS cert file not found: %s", cfg.HTTP.TLS.Cert)
		}
		if _, err := os.Stat(cfg.HTTP.TLS.Key); err != nil {
			return fmt.Errorf("TLS key file not found: %s", cfg.HTTP.TLS.Key)
		}
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	switch strings.ToLower(cfg.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic":
		return nil
	default:
		return fmt.Errorf("%w: %s", ErrInvalidLogLevel, cfg.Level)
	}
}
