package oracle

import (
	"time"

	"github.com/shopspring/decimal"

	"tc.com/price-oracle/pkg/metrics"
)

// EventType identifies a monitoring event emitted by the oracle.
type EventType string

const (
	// EventStateChanged fires when the health state transitions. Re-entering
	// the current state is silent.
	EventStateChanged EventType = "state_changed"
	// EventDeviationDetected fires when both sources are usable but disagree
	// beyond the configured threshold.
	EventDeviationDetected EventType = "deviation_detected"
	// EventFallbackToLastGood fires when neither source is usable and the
	// cached price is served instead.
	EventFallbackToLastGood EventType = "fallback_to_last_good"
)

// Event is a monitoring notification. Fields are populated per type:
// state changes carry From/To, deviations carry both source prices and the
// measured deviation, fallbacks carry the cached price.
type Event struct {
	Type         EventType       `json:"type"`
	Pair         string          `json:"pair"`
	From         Health          `json:"-"`
	To           Health          `json:"-"`
	FromState    string          `json:"from_state,omitempty"`
	ToState      string          `json:"to_state,omitempty"`
	Primary      decimal.Decimal `json:"primary,omitempty"`
	Secondary    decimal.Decimal `json:"secondary,omitempty"`
	Price        decimal.Decimal `json:"price,omitempty"`
	DeviationBps decimal.Decimal `json:"deviation_bps,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Subscribe registers a channel to receive monitoring events. Delivery is
// best-effort: a full channel drops the event rather than blocking the price
// request path.
func (o *Oracle) Subscribe(ch chan<- Event) {
	o.subscribersMu.Lock()
	defer o.subscribersMu.Unlock()
	o.subscribers = append(o.subscribers, ch)
}

// notify fans an event out to all subscribers without blocking.
func (o *Oracle) notify(ev Event) {
	metrics.RecordEvent(o.pair, string(ev.Type))

	o.subscribersMu.RLock()
	defer o.subscribersMu.RUnlock()

	for _, ch := range o.subscribers {
		select {
		case ch <- ev:
		default:
			o.logger.Warn("Subscriber channel full, dropping event",
				"type", string(ev.Type))
		}
	}
}
