// Package twap provides a time-weighted average price accumulator.
package twap

import "errors"

var (
	// ErrZeroPrice indicates a non-positive spot price was offered for recording.
	ErrZeroPrice = errors.New("spot price must be positive")
	// ErrNonIncreasingTime indicates an observation older than the last recorded one.
	ErrNonIncreasingTime = errors.New("observation time must increase")
	// ErrWindowTooShort indicates a consult window below the configured minimum.
	ErrWindowTooShort = errors.New("window below configured minimum")
	// ErrInsufficientHistory indicates fewer than two recorded observations.
	ErrInsufficientHistory = errors.New("insufficient observation history")
	// ErrObservationTooOld indicates no stored observation is old enough for the window.
	ErrObservationTooOld = errors.New("no observation old enough for window")
	// ErrInvalidCapacity indicates a ring capacity below two.
	ErrInvalidCapacity = errors.New("capacity must be at least 2")
)
