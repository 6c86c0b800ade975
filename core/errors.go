package core

import "errors"

var (
	// ErrSessionNotFound is returned by stores for an unknown session key.
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists is returned when creating a session under a taken key.
	ErrSessionExists = errors.New("session already exists")

	// ErrAgentNotFound is returned when a transfer names an agent outside the tree.
	ErrAgentNotFound = errors.New("agent not found")

	// ErrMaxTurnsExceeded is returned when an invocation needs more model calls
	// than the runner allows.
	ErrMaxTurnsExceeded = errors.New("max turns exceeded")
)
