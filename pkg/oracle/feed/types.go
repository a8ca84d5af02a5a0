// Package feed provides primary price feed access and round validation.
package feed

import (
	"context"
	"math/big"
	"time"
)

// RoundData is a single raw reading from a push-style price feed. Answer is the
// unscaled integer value reported by the feed; UpdatedAt is zero when the round
// was never finalized.
type RoundData struct {
	RoundID         uint64
	Answer          *big.Int
	StartedAt       time.Time
	UpdatedAt       time.Time
	AnsweredInRound uint64
}

// Feed is the external push-style price feed collaborator. Implementations
// take no write access to the upstream feed.
type Feed interface {
	// Name returns a short identifier for logging and metrics.
	Name() string

	// Decimals returns the fixed decimal scale of Answer values.
	Decimals() uint8

	// LatestRoundData returns the most recent round reported by the feed.
	LatestRoundData(ctx context.Context) (RoundData, error)
}
