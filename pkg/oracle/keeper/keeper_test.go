package keeper

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-oracle/pkg/logging"
	"tc.com/price-oracle/pkg/oracle/twap"
)

// stubSource counts reads and can be told to fail.
type stubSource struct {
	price decimal.Decimal
	fail  atomic.Bool
	reads atomic.Int64
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) SpotPrice(_ context.Context) (decimal.Decimal, error) {
	s.reads.Add(1)
	if s.fail.Load() {
		return decimal.Zero, errors.New("source down")
	}
	return s.price, nil
}

func TestKeeper_CollectsImmediately(t *testing.T) {
	acc, err := twap.New(10, time.Minute, logging.NewNoopLogger())
	require.NoError(t, err)

	src := &stubSource{price: decimal.NewFromInt(3000)}
	k := New("ETH/USD", src, acc, time.Hour, logging.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- k.Start(ctx)
	}()

	// The first collection happens before the first tick.
	require.Eventually(t, func() bool {
		return acc.Count() == 1
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, int64(1), src.reads.Load())
}

func TestKeeper_CollectsOnTicks(t *testing.T) {
	acc, err := twap.New(10, time.Minute, logging.NewNoopLogger())
	require.NoError(t, err)

	src := &stubSource{price: decimal.NewFromInt(3000)}
	k := New("ETH/USD", src, acc, 10*time.Millisecond, logging.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- k.Start(ctx)
	}()

	require.Eventually(t, func() bool {
		return acc.Count() >= 3
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestKeeper_SourceFailureDoesNotStop(t *testing.T) {
	acc, err := twap.New(10, time.Minute, logging.NewNoopLogger())
	require.NoError(t, err)

	src := &stubSource{price: decimal.NewFromInt(3000)}
	src.fail.Store(true)

	k := New("ETH/USD", src, acc, 10*time.Millisecond, logging.NewNoopLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- k.Start(ctx)
	}()

	// Failing reads record nothing but the loop keeps polling.
	require.Eventually(t, func() bool {
		return src.reads.Load() >= 3
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, acc.Count())

	// Recovery on a later tick.
	src.fail.Store(false)
	require.Eventually(t, func() bool {
		return acc.Count() >= 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done
}
