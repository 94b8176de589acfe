package ai

import "errors"

var (
	// ErrConfigRequired indicates a required configuration value is missing.
	ErrConfigRequired = errors.New("ai config: value is required")

	// ErrUnknownBackend indicates an unsupported completion backend.
	ErrUnknownBackend = errors.New("ai config: unknown completion backend")

	// ErrInvalidTemperature indicates a temperature outside [0,2].
	ErrInvalidTemperature = errors.New("ai config: temperature must be between 0 and 2")

	// ErrEmptyCompletion indicates the model returned no usable text.
	ErrEmptyCompletion = errors.New("model returned an empty completion")
)
