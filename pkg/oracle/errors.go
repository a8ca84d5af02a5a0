package oracle

import "errors"

var (
	// ErrNoGoodPrice indicates both sources are unusable and no cached price
	// exists. Callers must treat this as fatal for the request and refuse to
	// act rather than guess.
	ErrNoGoodPrice = errors.New("no good price available")
	// ErrNilFeed indicates the oracle was constructed without a primary feed.
	ErrNilFeed = errors.New("primary feed is required")
	// ErrNilAccumulator indicates the oracle was constructed without an accumulator.
	ErrNilAccumulator = errors.New("accumulator is required")
)
