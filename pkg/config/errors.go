// Package config provides configuration loading and validation for the price oracle.
package config

import "errors"

var (
	// ErrPairRequired indicates that the asset pair is not configured.
	ErrPairRequired = errors.New("pair must be specified")
	// ErrFeedAddressRequired indicates that the primary feed address is missing.
	ErrFeedAddressRequired = errors.New("feed address must be specified")
	// ErrFeedRPCURLRequired indicates that the primary feed RPC URL is missing.
	ErrFeedRPCURLRequired = errors.New("feed rpc_url must be specified")
	// ErrPoolAddressRequired indicates that the pool address is missing.
	ErrPoolAddressRequired = errors.New("pool address must be specified")
	// ErrPoolRPCURLRequired indicates that the pool RPC URL is missing.
	ErrPoolRPCURLRequired = errors.New("pool rpc_url must be specified")
	// ErrCapacityTooSmall indicates that the observation ring cannot support consults.
	ErrCapacityTooSmall = errors.New("oracle capacity must be at least 2")
	// ErrWindowBelowMinimum indicates that the TWAP window is below the consult floor.
	ErrWindowBelowMinimum = errors.New("twap_window must not be below min_window")
	// ErrDeviationNotPositive indicates a non-positive deviation threshold.
	ErrDeviationNotPositive = errors.New("deviation_bps must be positive")
	// ErrKeeperIntervalNotPositive indicates a non-positive keeper interval.
	ErrKeeperIntervalNotPositive = errors.New("keeper interval must be positive")
	// ErrRingDoesNotCoverWindow indicates that capacity x keeper interval cannot
	// retain enough history to answer consults over the configured window.
	ErrRingDoesNotCoverWindow = errors.New("capacity x keeper interval must cover at least twice the twap_window")
	// ErrTLSFilesRequired indicates TLS is enabled without cert or key.
	ErrTLSFilesRequired = errors.New("TLS cert and key must be specified when TLS is enabled")
	// ErrInvalidLogLevel indicates an unknown logging level.
	ErrInvalidLogLevel = errors.New("invalid logging level")
)
