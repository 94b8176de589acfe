package moderation

import "errors"

var (
	// ErrGateRequired is returned when a Watcher is created without a gate.
	ErrGateRequired = errors.New("moderation gate is required")

	// ErrPolicyPathRequired is returned when a Watcher is created without a policy path.
	ErrPolicyPathRequired = errors.New("policy path is required")

	// ErrInvalidPolicy indicates a policy that failed to parse or compile.
	ErrInvalidPolicy = errors.New("invalid moderation policy")
)
