package memory

import "errors"

var (
	// ErrInvalidMaxTurns is returned when the per-session turn bound is not positive.
	ErrInvalidMaxTurns = errors.New("max turns must be greater than 0")

	// ErrInvalidIdleTTL is returned when the idle eviction timeout is not positive.
	ErrInvalidIdleTTL = errors.New("idle ttl must be greater than 0")
)
