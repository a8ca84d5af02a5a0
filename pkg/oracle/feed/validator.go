package feed

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Validate applies the four soundness checks to a raw feed reading and, on
// success, normalizes the integer answer into a decimal price. The checks run
// in a fixed order and the first failure wins:
//
//  1. the answer must be strictly positive (feeds may legitimately report
//     negative values for non-price data, so positivity is checked rather
//     than assumed),
//  2. the round must be finalized (non-zero update time),
//  3. the reading must be younger than maxStaleness,
//  4. the answer must belong to the current round, not carried over from an
//     earlier one.
//
// Normalization happens exactly once, here: all downstream arithmetic works on
// the returned decimal price.
func Validate(rd RoundData, decimals uint8, maxStaleness time.Duration, now time.Time) (decimal.Decimal, error) {
	if rd.Answer == nil || rd.Answer.Sign() <= 0 {
		return decimal.Zero, fmt.Errorf("%w: round %d", ErrNonPositiveAnswer, rd.RoundID)
	}

	if rd.UpdatedAt.IsZero() {
		return decimal.Zero, fmt.Errorf("%w: round %d", ErrIncompleteRound, rd.RoundID)
	}

	if age := now.Sub(rd.UpdatedAt); age >= maxStaleness {
		return decimal.Zero, fmt.Errorf("%w: age %s exceeds %s", ErrStalePrice, age, maxStaleness)
	}

	if rd.AnsweredInRound < rd.RoundID {
		return decimal.Zero, fmt.Errorf("%w: answered in %d, current %d", ErrStaleRound, rd.AnsweredInRound, rd.RoundID)
	}

	return Normalize(rd, decimals), nil
}

// Normalize applies the feed's decimal scale to the raw integer answer.
func Normalize(rd RoundData, decimals uint8) decimal.Decimal {
	return decimal.NewFromBigInt(rd.Answer, -int32(decimals))
}
