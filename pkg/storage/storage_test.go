package storage

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tc.com/price-oracle/pkg/oracle"
)

func newTestJournal(t *testing.T, maxEvents int) *Journal {
	t.Helper()
	j, err := New(maxEvents, filepath.Join(t.TempDir(), "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = j.Close()
	})
	return j
}

func TestJournal_Roundtrip(t *testing.T) {
	j := newTestJournal(t, 100)
	now := time.Now()

	err := j.AddEvent(oracle.Event{
		Type:         oracle.EventDeviationDetected,
		Pair:         "ETH/USD",
		Primary:      decimal.NewFromInt(3300),
		Secondary:    decimal.NewFromInt(3000),
		DeviationBps: decimal.RequireFromString("909.09"),
		Timestamp:    now,
	})
	require.NoError(t, err)

	events, err := j.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 1)

	ev := events[0]
	assert.Equal(t, "ETH/USD", ev.Pair)
	assert.Equal(t, string(oracle.EventDeviationDetected), ev.Type)
	assert.Equal(t, "3300", ev.Primary)
	assert.Equal(t, "3000", ev.Secondary)
	assert.Equal(t, "909.09", ev.DeviationBps)
	assert.Empty(t, ev.Price)
	assert.True(t, ev.CreatedAt.Equal(now))
}

func TestJournal_StateChange(t *testing.T) {
	j := newTestJournal(t, 100)

	err := j.AddEvent(oracle.Event{
		Type:      oracle.EventStateChanged,
		Pair:      "ETH/USD",
		FromState: "primary",
		ToState:   "secondary",
		Timestamp: time.Now(),
	})
	require.NoError(t, err)

	events, err := j.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "primary", events[0].FromState)
	assert.Equal(t, "secondary", events[0].ToState)
	assert.Empty(t, events[0].Primary)
}

func TestJournal_NewestFirst(t *testing.T) {
	j := newTestJournal(t, 100)
	base := time.Now()

	for i := 0; i < 5; i++ {
		err := j.AddEvent(oracle.Event{
			Type:      oracle.EventStateChanged,
			Pair:      fmt.Sprintf("PAIR-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	events, err := j.RecentEvents(3)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "PAIR-4", events[0].Pair)
	assert.Equal(t, "PAIR-3", events[1].Pair)
	assert.Equal(t, "PAIR-2", events[2].Pair)
}

func TestJournal_Rotation(t *testing.T) {
	j := newTestJournal(t, 3)
	base := time.Now()

	for i := 0; i < 10; i++ {
		err := j.AddEvent(oracle.Event{
			Type:      oracle.EventStateChanged,
			Pair:      fmt.Sprintf("PAIR-%d", i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	n, err := j.CountEvents()
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// Only the newest three survive.
	events, err := j.RecentEvents(10)
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, "PAIR-9", events[0].Pair)
	assert.Equal(t, "PAIR-7", events[2].Pair)
}

func TestJournal_EmptyReadback(t *testing.T) {
	j := newTestJournal(t, 100)

	events, err := j.RecentEvents(10)
	require.NoError(t, err)
	assert.Empty(t, events)

	n, err := j.CountEvents()
	require.NoError(t, err)
	assert.Zero(t, n)
}
