package oracle

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/metrics"
	"tc.com/price-oracle/pkg/oracle/feed"
	"tc.com/price-oracle/pkg/oracle/twap"
)

// DefaultDeviationBps is the primary/secondary disagreement threshold.
const DefaultDeviationBps = 500

// Config holds the oracle's immutable construction parameters.
type Config struct {
	Pair         string
	Feed         feed.Feed
	Accumulator  *twap.Accumulator
	MaxStaleness time.Duration
	TWAPWindow   time.Duration
	DeviationBps int64
	Logger       *logging.Logger
}

// Oracle serves a single trustworthy price per request by attempting the
// primary feed and the TWAP accumulator, cross-checking them when both
// succeed, and degrading through an explicit health state machine instead of
// failing the caller. The injected feed and accumulator are never mutated or
// replaced after construction.
type Oracle struct {
	pair         string
	feed         feed.Feed
	acc          *twap.Accumulator
	maxStaleness time.Duration
	twapWindow   time.Duration
	deviationBps decimal.Decimal
	logger       *logging.Logger
	now          func() time.Time

	mu       sync.Mutex
	health   Health
	lastGood decimal.Decimal

	subscribersMu sync.RWMutex
	subscribers   []chan<- Event
}

// New creates an oracle in the primary state with no cached price.
func New(cfg Config) (*Oracle, error) {
	if cfg.Feed == nil {
		return nil, ErrNilFeed
	}
	if cfg.Accumulator == nil {
		return nil, ErrNilAccumulator
	}
	if cfg.DeviationBps <= 0 {
		cfg.DeviationBps = DefaultDeviationBps
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNoopLogger()
	}

	o := &Oracle{
		pair:         cfg.Pair,
		feed:         cfg.Feed,
		acc:          cfg.Accumulator,
		maxStaleness: cfg.MaxStaleness,
		twapWindow:   cfg.TWAPWindow,
		deviationBps: decimal.NewFromInt(cfg.DeviationBps),
		logger:       cfg.Logger,
		now:          time.Now,
		health:       HealthPrimary,
		lastGood:     decimal.Zero,
	}
	metrics.RecordHealthState(o.pair, int(HealthPrimary))
	return o, nil
}

// GetPrice returns the least-stale trustworthy price available.
//
// Both source reads are non-propagating: a failure on one side never prevents
// evaluating the other. The only error this method returns is ErrNoGoodPrice,
// when both sources are unusable and no prior good price was ever cached.
func (o *Oracle) GetPrice(ctx context.Context) (decimal.Decimal, error) {
	now := o.now()

	primary, primaryOK := o.readPrimary(ctx, now)
	secondary, secondaryOK := o.readSecondary(now)

	o.mu.Lock()
	defer o.mu.Unlock()

	switch {
	case primaryOK && secondaryOK:
		dev := deviationBps(primary, secondary)
		metrics.RecordDeviation(o.pair, dev.InexactFloat64())

		if dev.LessThanOrEqual(o.deviationBps) {
			o.setStateLocked(HealthPrimary, now)
			o.lastGood = primary
			metrics.RecordPriceRequest(o.pair, "primary")
			return primary, nil
		}

		// Sources disagree: trust the manipulation-resistant side.
		o.notify(Event{
			Type:         EventDeviationDetected,
			Pair:         o.pair,
			Primary:      primary,
			Secondary:    secondary,
			DeviationBps: dev,
			Timestamp:    now,
		})
		o.logger.Warn("Price sources disagree",
			"primary", primary.String(),
			"secondary", secondary.String(),
			"deviation_bps", dev.String())

		o.setStateLocked(HealthSecondary, now)
		o.lastGood = secondary
		metrics.RecordPriceRequest(o.pair, "secondary")
		return secondary, nil

	case primaryOK:
		// No cross-check possible; the primary stands alone.
		o.setStateLocked(HealthPrimary, now)
		o.lastGood = primary
		metrics.RecordPriceRequest(o.pair, "primary")
		return primary, nil

	case secondaryOK:
		o.setStateLocked(HealthSecondary, now)
		o.lastGood = secondary
		metrics.RecordPriceRequest(o.pair, "secondary")
		return secondary, nil

	default:
		o.setStateLocked(HealthUntrusted, now)

		if o.lastGood.Sign() > 0 {
			o.notify(Event{
				Type:      EventFallbackToLastGood,
				Pair:      o.pair,
				Price:     o.lastGood,
				Timestamp: now,
			})
			o.logger.Warn("Both sources unusable, serving cached price",
				"price", o.lastGood.String())
			metrics.RecordPriceRequest(o.pair, "fallback")
			return o.lastGood, nil
		}

		metrics.RecordPriceRequest(o.pair, "error")
		return decimal.Zero, ErrNoGoodPrice
	}
}

// Status returns the current health state.
func (o *Oracle) Status() Health {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.health
}

// LastGoodPrice returns the cached price, zero when no good price was ever
// served.
func (o *Oracle) LastGoodPrice() decimal.Decimal {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastGood
}

// Pair returns the asset pair this oracle serves.
func (o *Oracle) Pair() string {
	return o.pair
}

// readPrimary attempts the primary feed and validates the round. Any failure
// folds into a false result.
func (o *Oracle) readPrimary(ctx context.Context, now time.Time) (decimal.Decimal, bool) {
	rd, err := o.feed.LatestRoundData(ctx)
	if err != nil {
		o.logger.Debug("Primary feed read failed", "feed", o.feed.Name(), "error", err)
		metrics.RecordValidationFailure(o.feed.Name(), "feed_call")
		return decimal.Zero, false
	}

	price, err := feed.Validate(rd, o.feed.Decimals(), o.maxStaleness, now)
	if err != nil {
		o.logger.Debug("Primary feed rejected", "feed", o.feed.Name(), "error", err)
		metrics.RecordValidationFailure(o.feed.Name(), validationReason(err))
		return decimal.Zero, false
	}

	return price, true
}

// readSecondary attempts the TWAP consult. Any failure folds into a false
// result.
func (o *Oracle) readSecondary(now time.Time) (decimal.Decimal, bool) {
	price, err := o.acc.Consult(o.twapWindow, now)
	if err != nil {
		o.logger.Debug("Secondary consult failed", "error", err)
		return decimal.Zero, false
	}
	return price, true
}

// setStateLocked transitions the health state and notifies subscribers.
// Re-entering the current state is silent. Must be called with o.mu held.
func (o *Oracle) setStateLocked(next Health, now time.Time) {
	if next == o.health {
		return
	}
	prev := o.health
	o.health = next

	metrics.RecordHealthState(o.pair, int(next))
	o.logger.Info("Oracle health state changed",
		"from", prev.String(),
		"to", next.String())

	o.notify(Event{
		Type:      EventStateChanged,
		Pair:      o.pair,
		From:      prev,
		To:        next,
		FromState: prev.String(),
		ToState:   next.String(),
		Timestamp: now,
	})
}

// deviationBps measures the disagreement between two prices in basis points,
// relative to the larger of the two. The larger denominator is deliberately
// conservative so disagreement is not flagged too aggressively.
func deviationBps(a, b decimal.Decimal) decimal.Decimal {
	larger := a
	if b.GreaterThan(a) {
		larger = b
	}
	if larger.Sign() == 0 {
		return decimal.Zero
	}
	diff := a.Sub(b).Abs()
	q, _ := diff.Mul(decimal.NewFromInt(10000)).QuoRem(larger, 18)
	return q
}

// validationReason maps validator errors to a metrics label.
func validationReason(err error) string {
	switch {
	case errors.Is(err, feed.ErrNonPositiveAnswer):
		return "non_positive_answer"
	case errors.Is(err, feed.ErrIncompleteRound):
		return "incomplete_round"
	case errors.Is(err, feed.ErrStalePrice):
		return "stale_price"
	case errors.Is(err, feed.ErrStaleRound):
		return "stale_round"
	default:
		return "other"
	}
}
