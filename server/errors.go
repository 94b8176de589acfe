package server

import "errors"

// ErrAssistantRequired is returned by New when no assistant is given.
var ErrAssistantRequired = errors.New("assistant is required")
