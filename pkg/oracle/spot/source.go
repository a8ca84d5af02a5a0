// Package spot provides instantaneous price sources for the TWAP keeper.
package spot

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrZeroLiquidity indicates a pool with an empty reserve.
	ErrZeroLiquidity = errors.New("zero liquidity in pool")
	// ErrClientNotInitialized indicates the source was used before Initialize.
	ErrClientNotInitialized = errors.New("client not initialized")
)

// Source is a read-only spot price collaborator. Implementations return the
// current instantaneous price in the same units the accumulator expects.
type Source interface {
	// Name returns a short identifier for logging and metrics.
	Name() string

	// SpotPrice returns the current instantaneous price.
	SpotPrice(ctx context.Context) (decimal.Decimal, error)
}
