package twap

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-oracle/pkg/logging"
)

func newTestAccumulator(t *testing.T, capacity int) *Accumulator {
	t.Helper()
	acc, err := New(capacity, time.Minute, logging.NewNoopLogger())
	require.NoError(t, err)
	return acc
}

func TestNew_InvalidCapacity(t *testing.T) {
	_, err := New(1, time.Minute, logging.NewNoopLogger())
	require.ErrorIs(t, err, ErrInvalidCapacity)

	_, err = New(0, time.Minute, logging.NewNoopLogger())
	require.ErrorIs(t, err, ErrInvalidCapacity)
}

func TestRecord_RejectsZeroPrice(t *testing.T) {
	acc := newTestAccumulator(t, 10)
	now := time.Now()

	err := acc.Record(decimal.Zero, now)
	require.ErrorIs(t, err, ErrZeroPrice)

	err = acc.Record(decimal.NewFromInt(-1), now)
	require.ErrorIs(t, err, ErrZeroPrice)

	assert.Equal(t, 0, acc.Count())
}

func TestRecord_FirstObservationSeedsZero(t *testing.T) {
	acc := newTestAccumulator(t, 10)
	now := time.Now()

	require.NoError(t, acc.Record(decimal.NewFromInt(100), now))
	require.Equal(t, 1, acc.Count())

	obs, ok := acc.LastObservation()
	require.True(t, ok)
	assert.True(t, obs.Cumulative.IsZero())
	assert.True(t, obs.Timestamp.Equal(now))
}

func TestRecord_NonIncreasingTime(t *testing.T) {
	acc := newTestAccumulator(t, 10)
	now := time.Now()

	require.NoError(t, acc.Record(decimal.NewFromInt(100), now))

	err := acc.Record(decimal.NewFromInt(100), now)
	require.ErrorIs(t, err, ErrNonIncreasingTime)

	err = acc.Record(decimal.NewFromInt(100), now.Add(-time.Second))
	require.ErrorIs(t, err, ErrNonIncreasingTime)

	assert.Equal(t, 1, acc.Count())
}

func TestRecord_CumulativeMonotone(t *testing.T) {
	acc := newTestAccumulator(t, 10)
	now := time.Now()

	prices := []int64{100, 150, 120, 300, 5}
	prev := decimal.Zero
	for i, p := range prices {
		require.NoError(t, acc.Record(decimal.NewFromInt(p), now.Add(time.Duration(i)*time.Minute)))
		obs, ok := acc.LastObservation()
		require.True(t, ok)
		assert.True(t, obs.Cumulative.GreaterThanOrEqual(prev),
			"cumulative decreased: %s < %s", obs.Cumulative, prev)
		prev = obs.Cumulative
	}
}

// Prices 100, 150, 120 at t=0s, 60s, 120s and a consult at t=180s give the
// worked cumulative series 0, 6000, 15000 and a 180s average of 123.33.
func TestConsult_ThreePointSeries(t *testing.T) {
	acc := newTestAccumulator(t, 10)
	base := time.Now()

	require.NoError(t, acc.Record(decimal.NewFromInt(100), base))
	require.NoError(t, acc.Record(decimal.NewFromInt(150), base.Add(60*time.Second)))
	require.NoError(t, acc.Record(decimal.NewFromInt(120), base.Add(120*time.Second)))

	obs, ok := acc.LastObservation()
	require.True(t, ok)
	assert.True(t, obs.Cumulative.Equal(decimal.NewFromInt(15000)), "got %s", obs.Cumulative)

	// Extended cumulative at 180s: 15000 + 120*60 = 22200; anchor is the seed
	// at t=0, so the average is 22200/180.
	avg, err := acc.Consult(3*time.Minute, base.Add(180*time.Second))
	require.NoError(t, err)

	want := decimal.RequireFromString("123.333333333333333333")
	assert.True(t, avg.Equal(want), "got %s, want %s", avg, want)
}

func TestConsult_WindowTooShort(t *testing.T) {
	acc := newTestAccumulator(t, 10)

	_, err := acc.Consult(30*time.Second, time.Now())
	require.ErrorIs(t, err, ErrWindowTooShort)
}

func TestConsult_InsufficientHistory(t *testing.T) {
	acc := newTestAccumulator(t, 10)
	now := time.Now()

	_, err := acc.Consult(time.Minute, now)
	require.ErrorIs(t, err, ErrInsufficientHistory)

	require.NoError(t, acc.Record(decimal.NewFromInt(100), now))
	_, err = acc.Consult(time.Minute, now.Add(time.Minute))
	require.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestConsult_ObservationTooOld(t *testing.T) {
	acc := newTestAccumulator(t, 3)
	base := time.Now()

	// Fill and recycle the ring so the oldest surviving entry is recent.
	for i := 0; i < 6; i++ {
		require.NoError(t, acc.Record(decimal.NewFromInt(100), base.Add(time.Duration(i)*time.Minute)))
	}

	// Every surviving observation is newer than now-window.
	_, err := acc.Consult(time.Hour, base.Add(6*time.Minute))
	require.ErrorIs(t, err, ErrObservationTooOld)
}

func TestConsult_RingWraparound(t *testing.T) {
	acc := newTestAccumulator(t, 4)
	base := time.Now()

	// Constant price across many recycles: the TWAP must stay exact.
	for i := 0; i < 20; i++ {
		require.NoError(t, acc.Record(decimal.NewFromInt(250), base.Add(time.Duration(i)*time.Minute)))
	}
	require.Equal(t, 4, acc.Count())

	avg, err := acc.Consult(2*time.Minute, base.Add(19*time.Minute))
	require.NoError(t, err)
	assert.True(t, avg.Equal(decimal.NewFromInt(250)), "got %s", avg)
}

func TestConsult_BoundedByObservedRange(t *testing.T) {
	acc := newTestAccumulator(t, 32)
	base := time.Now()

	prices := []int64{90, 140, 100, 130, 110, 95, 125}
	lo, hi := decimal.NewFromInt(90), decimal.NewFromInt(140)
	for i, p := range prices {
		require.NoError(t, acc.Record(decimal.NewFromInt(p), base.Add(time.Duration(i)*time.Minute)))
	}

	avg, err := acc.Consult(5*time.Minute, base.Add(6*time.Minute))
	require.NoError(t, err)
	assert.True(t, avg.GreaterThanOrEqual(lo), "avg %s below observed range", avg)
	assert.True(t, avg.LessThanOrEqual(hi), "avg %s above observed range", avg)
}

func TestConsult_ExtendsLatestToNow(t *testing.T) {
	acc := newTestAccumulator(t, 10)
	base := time.Now()

	require.NoError(t, acc.Record(decimal.NewFromInt(100), base))
	require.NoError(t, acc.Record(decimal.NewFromInt(200), base.Add(time.Minute)))

	// The 200 price has been live for the second minute of the window, so a
	// 2 minute consult averages 100 and 200 evenly.
	avg, err := acc.Consult(2*time.Minute, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, avg.Equal(decimal.NewFromInt(150)), "got %s", avg)
}

func TestDeviationBps(t *testing.T) {
	acc := newTestAccumulator(t, 10)
	base := time.Now()

	require.NoError(t, acc.Record(decimal.NewFromInt(100), base))
	require.NoError(t, acc.Record(decimal.NewFromInt(100), base.Add(time.Minute)))

	// TWAP is exactly 100; a 105 spot deviates by 500 bps.
	dev, err := acc.DeviationBps(decimal.NewFromInt(105), time.Minute, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, dev.Equal(decimal.NewFromInt(500)), "got %s", dev)

	// Deviation is symmetric around the average.
	dev, err = acc.DeviationBps(decimal.NewFromInt(95), time.Minute, base.Add(2*time.Minute))
	require.NoError(t, err)
	assert.True(t, dev.Equal(decimal.NewFromInt(500)), "got %s", dev)
}

func TestDeviationBps_PropagatesConsultError(t *testing.T) {
	acc := newTestAccumulator(t, 10)

	_, err := acc.DeviationBps(decimal.NewFromInt(100), time.Minute, time.Now())
	require.ErrorIs(t, err, ErrInsufficientHistory)
}
