package types

import "errors"

var (
	// ErrNotFound reports a lookup for a job, checkpoint, or agent that
	// is not registered
	ErrNotFound = errors.New("not found")

	// ErrUnknownCommand reports a command envelope whose type is not one
	// of the CommandType variants
	ErrUnknownCommand = errors.New("unknown command")
)
