// Package feed provides primary price feed access and round validation.
package feed

import "errors"

var (
	// ErrNonPositiveAnswer indicates the feed reported a zero or negative value.
	ErrNonPositiveAnswer = errors.New("feed answer is not positive")
	// ErrIncompleteRound indicates the round was never finalized (zero update time).
	ErrIncompleteRound = errors.New("feed round is not complete")
	// ErrStalePrice indicates the reading is older than the allowed staleness.
	ErrStalePrice = errors.New("feed price is stale")
	// ErrStaleRound indicates the answer was carried over from a prior round.
	ErrStaleRound = errors.New("feed answer is from a stale round")
	// ErrFeedCall indicates the upstream feed call itself failed.
	ErrFeedCall = errors.New("feed call failed")
)
