package workflow

import "errors"

var (
	// ErrInvalidTransition is returned when a state transition is not allowed
	ErrInvalidTransition = errors.New("invalid state transition")

	// ErrInvalidState is returned when a state is not valid
	ErrInvalidState = errors.New("invalid state")

	// ErrConcurrentUpdate is returned when another writer advanced the
	// request between our read and our compare-and-swap
	ErrConcurrentUpdate = errors.New("concurrent update detected")
)
