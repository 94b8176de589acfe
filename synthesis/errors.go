package synthesis

import "errors"

var (
	// ErrCompleterRequired is returned when no ai.Completer is supplied.
	ErrCompleterRequired = errors.New("completer is required")

	// ErrInvalidTimeout is returned for a non-positive synthesis timeout.
	ErrInvalidTimeout = errors.New("timeout must be greater than 0")

	// ErrInvalidMaxTokens is returned for a non-positive token limit.
	ErrInvalidMaxTokens = errors.New("max tokens must be greater than 0")

	// ErrInvalidConfidence is returned for confidence values outside [0,1].
	ErrInvalidConfidence = errors.New("confidence must be between 0 and 1")
)
