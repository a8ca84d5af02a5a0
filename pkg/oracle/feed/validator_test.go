package feed

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRound(now time.Time) RoundData {
	return RoundData{
		RoundID:         100,
		Answer:          big.NewInt(300000000000), // 3000 at 8 decimals
		StartedAt:       now.Add(-2 * time.Minute),
		UpdatedAt:       now.Add(-1 * time.Minute),
		AnsweredInRound: 100,
	}
}

func TestValidate_Success(t *testing.T) {
	now := time.Now()
	rd := validRound(now)

	price, err := Validate(rd, 8, time.Hour, now)
	require.NoError(t, err)
	assert.True(t, price.Equal(decimal.NewFromInt(3000)), "got %s", price)
}

func TestValidate_NonPositiveAnswer(t *testing.T) {
	now := time.Now()

	rd := validRound(now)
	rd.Answer = big.NewInt(0)
	_, err := Validate(rd, 8, time.Hour, now)
	require.ErrorIs(t, err, ErrNonPositiveAnswer)

	rd.Answer = big.NewInt(-1)
	_, err = Validate(rd, 8, time.Hour, now)
	require.ErrorIs(t, err, ErrNonPositiveAnswer)

	rd.Answer = nil
	_, err = Validate(rd, 8, time.Hour, now)
	require.ErrorIs(t, err, ErrNonPositiveAnswer)
}

func TestValidate_IncompleteRound(t *testing.T) {
	now := time.Now()
	rd := validRound(now)
	rd.UpdatedAt = time.Time{}

	_, err := Validate(rd, 8, time.Hour, now)
	require.ErrorIs(t, err, ErrIncompleteRound)
}

func TestValidate_StalePrice(t *testing.T) {
	now := time.Now()
	rd := validRound(now)
	rd.UpdatedAt = now.Add(-2 * time.Hour)

	_, err := Validate(rd, 8, time.Hour, now)
	require.ErrorIs(t, err, ErrStalePrice)
}

func TestValidate_StaleExactBoundary(t *testing.T) {
	now := time.Now()
	rd := validRound(now)
	// Age exactly equal to maxStaleness is already stale.
	rd.UpdatedAt = now.Add(-time.Hour)

	_, err := Validate(rd, 8, time.Hour, now)
	require.ErrorIs(t, err, ErrStalePrice)
}

func TestValidate_StaleRound(t *testing.T) {
	now := time.Now()
	rd := validRound(now)
	rd.AnsweredInRound = 99

	_, err := Validate(rd, 8, time.Hour, now)
	require.ErrorIs(t, err, ErrStaleRound)
}

func TestValidate_CheckOrder(t *testing.T) {
	now := time.Now()

	// A round that fails every check reports the non-positive answer first.
	rd := RoundData{
		RoundID:         100,
		Answer:          big.NewInt(-5),
		UpdatedAt:       time.Time{},
		AnsweredInRound: 99,
	}
	_, err := Validate(rd, 8, time.Hour, now)
	require.ErrorIs(t, err, ErrNonPositiveAnswer)

	// With a positive answer, the incomplete round is reported before
	// staleness.
	rd.Answer = big.NewInt(1)
	_, err = Validate(rd, 8, time.Hour, now)
	require.ErrorIs(t, err, ErrIncompleteRound)
}

func TestNormalize(t *testing.T) {
	rd := RoundData{Answer: big.NewInt(123456789)}

	assert.True(t, Normalize(rd, 8).Equal(decimal.RequireFromString("1.23456789")))
	assert.True(t, Normalize(rd, 0).Equal(decimal.NewFromInt(123456789)))

	// 18 decimal feeds keep full precision.
	rd.Answer, _ = new(big.Int).SetString("3000000000000000000000", 10)
	assert.True(t, Normalize(rd, 18).Equal(decimal.NewFromInt(3000)))
}
