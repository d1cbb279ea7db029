// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostloop

import (
	"errors"
	"fmt"
)

// Standard errors.
var (
	// ErrLoopAlreadyRunning is returned when Run is called on a loop that
	// is already running.
	ErrLoopAlreadyRunning = errors.New("hostloop: loop is already running")

	// ErrLoopTerminated is returned when operations are attempted on a
	// terminated loop.
	ErrLoopTerminated = errors.New("hostloop: loop has been terminated")

	// ErrReentrantRun is returned when Run is called from within the loop
	// itself.
	ErrReentrantRun = errors.New("hostloop: cannot call Run from within the loop")

	// ErrTimerNotFound is returned by CancelTimer for an unknown, fired or
	// already cancelled timer.
	ErrTimerNotFound = errors.New("hostloop: timer not found")

	// ErrNilCallback is returned when a nil callback is registered.
	ErrNilCallback = errors.New("hostloop: callback is nil")
)

// PanicError wraps a value recovered from a panicking callback.
type PanicError struct {
	// Value is the value passed to panic.
	Value any
}

// Error implements the error interface.
func (e PanicError) Error() string {
	return fmt.Sprintf("hostloop: callback panicked: %v", e.Value)
}

// Unwrap returns the panic value if it is an error.
func (e PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
