// Package twap provides a time-weighted average price accumulator.
//
// The accumulator keeps a fixed-capacity ring of observations, each carrying a
// cumulative sum of price x elapsed-seconds. A window query reconstructs the
// average price between two points of the cumulative series without rescanning
// the history. Divisions round toward zero at 18 fractional digits, so a
// reconstructed average never rounds upward past the true value.
package twap

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/metrics"
)

// DefaultMinWindow is the floor below which consults are rejected: shorter
// windows degenerate toward spot price and lose manipulation resistance.
const DefaultMinWindow = 5 * time.Minute

// divisionScale is the number of fractional digits kept by truncating divisions.
const divisionScale = 18

// Observation is one stored ring entry. Cumulative values are monotonically
// non-decreasing in insertion order; the very first observation is always zero.
type Observation struct {
	Cumulative decimal.Decimal
	Timestamp  time.Time
}

// Accumulator is an append-only rolling history of spot observations. Slots
// are recycled in ring order once the capacity is reached; nothing is ever
// deleted outright.
type Accumulator struct {
	logger    *logging.Logger
	capacity  int
	minWindow time.Duration

	mu     sync.RWMutex
	ring   []Observation
	cursor int // next write position
	count  int // observations written, saturating at capacity

	// The spot value still accumulating, not yet closed off into a slot.
	lastPrice decimal.Decimal
	lastTime  time.Time
}

// New creates an accumulator with the given ring capacity and minimum
// consult window. A non-positive minWindow falls back to DefaultMinWindow.
func New(capacity int, minWindow time.Duration, logger *logging.Logger) (*Accumulator, error) {
	if capacity < 2 {
		return nil, ErrInvalidCapacity
	}
	if minWindow <= 0 {
		minWindow = DefaultMinWindow
	}
	if logger == nil {
		logger = logging.NewNoopLogger()
	}
	return &Accumulator{
		logger:    logger,
		capacity:  capacity,
		minWindow: minWindow,
		ring:      make([]Observation, capacity),
	}, nil
}

// RecordNow records a spot observation at the current wall-clock time.
func (a *Accumulator) RecordNow(spot decimal.Decimal) error {
	return a.Record(spot, time.Now())
}

// Record appends a spot observation taken at the given time.
//
// The previous spot price is what accumulates over the elapsed interval; the
// new price only starts accumulating from this instant forward. Observation
// times must strictly increase.
func (a *Accumulator) Record(spot decimal.Decimal, now time.Time) error {
	if spot.Sign() <= 0 {
		return ErrZeroPrice
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	// First observation seeds the series with cumulative zero.
	if a.count == 0 {
		a.ring[0] = Observation{Cumulative: decimal.Zero, Timestamp: now}
		a.cursor = 1 % a.capacity
		a.count = 1
		a.lastPrice = spot
		a.lastTime = now
		return nil
	}

	if !now.After(a.lastTime) {
		return ErrNonIncreasingTime
	}

	elapsed := decimal.NewFromFloat(now.Sub(a.lastTime).Seconds())
	latest := a.latestLocked()
	cumulative := latest.Cumulative.Add(a.lastPrice.Mul(elapsed))

	a.ring[a.cursor] = Observation{Cumulative: cumulative, Timestamp: now}
	a.cursor = (a.cursor + 1) % a.capacity
	if a.count < a.capacity {
		a.count++
	}
	a.lastPrice = spot
	a.lastTime = now

	a.logger.Debug("Recorded observation",
		"spot", spot.String(),
		"cumulative", cumulative.String(),
		"count", a.count)

	return nil
}

// ConsultNow computes the TWAP over the window ending at the current time.
func (a *Accumulator) ConsultNow(window time.Duration) (decimal.Decimal, error) {
	return a.Consult(window, time.Now())
}

// Consult computes the time-weighted average price over [now-window, now].
//
// The latest stored cumulative is extended to now using the still-accumulating
// spot price, so queries do not require a write. The anchor point is the
// newest stored observation at or before the window start, found by walking
// the ring backward from the second-most-recent entry.
func (a *Accumulator) Consult(window time.Duration, now time.Time) (decimal.Decimal, error) {
	start := time.Now()
	defer func() {
		metrics.RecordConsult(time.Since(start))
	}()

	if window < a.minWindow {
		return decimal.Zero, ErrWindowTooShort
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	if a.count < 2 {
		return decimal.Zero, ErrInsufficientHistory
	}

	latest := a.latestLocked()
	sinceWrite := decimal.NewFromFloat(now.Sub(latest.Timestamp).Seconds())
	extended := latest.Cumulative.Add(a.lastPrice.Mul(sinceWrite))

	target := now.Add(-window)

	// Walk backward from the second-most-recent entry. The walk is bounded by
	// the stored history, so a fully recycled ring costs at most capacity-1
	// steps.
	steps := a.count - 1
	if steps > a.capacity-1 {
		steps = a.capacity - 1
	}

	idx := a.latestIndexLocked()
	var anchor *Observation
	for i := 0; i < steps; i++ {
		idx = (idx - 1 + a.capacity) % a.capacity
		if !a.ring[idx].Timestamp.After(target) {
			anchor = &a.ring[idx]
			break
		}
	}
	if anchor == nil {
		return decimal.Zero, ErrObservationTooOld
	}

	span := decimal.NewFromFloat(now.Sub(anchor.Timestamp).Seconds())
	if span.Sign() <= 0 {
		return decimal.Zero, ErrInsufficientHistory
	}

	return divTruncate(extended.Sub(anchor.Cumulative), span), nil
}

// DeviationBps returns |spot - twap| * 10000 / twap, truncated toward zero.
func (a *Accumulator) DeviationBps(spot decimal.Decimal, window time.Duration, now time.Time) (decimal.Decimal, error) {
	avg, err := a.Consult(window, now)
	if err != nil {
		return decimal.Zero, err
	}
	diff := spot.Sub(avg).Abs()
	return divTruncate(diff.Mul(decimal.NewFromInt(10000)), avg), nil
}

// Count returns the number of stored observations.
func (a *Accumulator) Count() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.count
}

// Capacity returns the ring capacity.
func (a *Accumulator) Capacity() int {
	return a.capacity
}

// MinWindow returns the minimum consult window.
func (a *Accumulator) MinWindow() time.Duration {
	return a.minWindow
}

// LastObservation returns the most recent stored observation.
func (a *Accumulator) LastObservation() (Observation, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.count == 0 {
		return Observation{}, false
	}
	return a.latestLocked(), true
}

// latestIndexLocked returns the ring index of the most recent observation.
// Must be called with the lock held and count > 0.
func (a *Accumulator) latestIndexLocked() int {
	return (a.cursor - 1 + a.capacity) % a.capacity
}

// latestLocked returns the most recent observation. Must be called with the
// lock held and count > 0.
func (a *Accumulator) latestLocked() Observation {
	return a.ring[a.latestIndexLocked()]
}

// divTruncate divides a by b rounding toward zero at 18 fractional digits.
func divTruncate(a, b decimal.Decimal) decimal.Decimal {
	q, _ := a.QuoRem(b, divisionScale)
	return q
}
