// Package oracle composes the primary feed and the TWAP accumulator into a
// failover price oracle with an explicit health state machine.
package oracle

// Health is the oracle's trust level in its available sources.
type Health int

const (
	// HealthPrimary means the primary feed is serving prices.
	HealthPrimary Health = iota
	// HealthSecondary means the TWAP accumulator is serving prices, either
	// because the primary is unusable or because the sources disagree.
	HealthSecondary
	// HealthUntrusted means neither source is usable and only the cached last
	// good price, if any, is available.
	HealthUntrusted
)

// String returns the lowercase state name.
func (h Health) String() string {
	switch h {
	case HealthPrimary:
		return "primary"
	case HealthSecondary:
		return "secondary"
	case HealthUntrusted:
		return "untrusted"
	default:
		return "unknown"
	}
}
