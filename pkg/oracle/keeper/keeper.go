// Package keeper drives the TWAP accumulator from a spot price source on a
// fixed cadence.
package keeper

import (
	"context"
	"time"

	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/metrics"
	"tc.com/price-oracle/pkg/oracle/spot"
	"tc.com/price-oracle/pkg/oracle/twap"
)

// Keeper periodically reads the spot source and appends the observation to
// the accumulator. It never retries within a tick: a failed read is logged and
// counted, and the next tick is the retry.
type Keeper struct {
	pair     string
	source   spot.Source
	acc      *twap.Accumulator
	interval time.Duration
	logger   *logging.Logger
}

// New creates a keeper polling source every interval.
func New(pair string, source spot.Source, acc *twap.Accumulator, interval time.Duration, logger *logging.Logger) *Keeper {
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Keeper{
		pair:     pair,
		source:   source,
		acc:      acc,
		interval: interval,
		logger:   logger,
	}
}

// Start collects once immediately, then on every tick until the context is
// canceled. It blocks.
func (k *Keeper) Start(ctx context.Context) error {
	k.logger.Info("Starting keeper",
		"pair", k.pair,
		"source", k.source.Name(),
		"interval", k.interval.String())

	k.collect(ctx)

	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			k.logger.Info("Keeper stopped", "pair", k.pair)
			return ctx.Err()
		case <-ticker.C:
			k.collect(ctx)
		}
	}
}

// collect performs a single spot read and records it.
func (k *Keeper) collect(ctx context.Context) {
	readCtx, cancel := context.WithTimeout(ctx, k.interval)
	defer cancel()

	price, err := k.source.SpotPrice(readCtx)
	if err != nil {
		k.logger.Warn("Spot read failed", "source", k.source.Name(), "error", err)
		metrics.RecordKeeperError(k.source.Name())
		return
	}

	if err := k.acc.RecordNow(price); err != nil {
		k.logger.Warn("Failed to record observation", "price", price.String(), "error", err)
		metrics.RecordKeeperError(k.source.Name())
		return
	}

	metrics.RecordObservation(k.pair)
	k.logger.Debug("Recorded spot observation", "pair", k.pair, "price", price.String())
}
