// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// Standard errors.
var (
	// ErrClosed is returned when the other side of a bridge is gone: a send
	// after the receiver was closed, or a receive after every sender was.
	ErrClosed = errors.New("hostbridge: channel closed")

	// ErrAlreadySent is returned by a second send on a One-Shot Channel, or a
	// second TrySet on a [OnceCell].
	ErrAlreadySent = errors.New("hostbridge: value already sent")

	// ErrWouldBlock is returned by non-blocking operations that cannot
	// complete immediately. It is the same value as [iox.ErrWouldBlock].
	ErrWouldBlock = iox.ErrWouldBlock

	// ErrTimerOverflow is the cause of the [RangeError] returned when a timer
	// delay exceeds [MaxTimerDelay].
	ErrTimerOverflow = errors.New("hostbridge: timer delay overflow")

	// ErrLocked is returned by host sources and sinks when an exclusive
	// reader or writer is already held.
	ErrLocked = errors.New("hostbridge: stream is locked")

	// ErrReleased is returned when operating on an adapter whose reader or
	// writer handle has already been released.
	ErrReleased = errors.New("hostbridge: stream handle released")

	// ErrWriteInFlight is returned when a write, close or abort is requested
	// while another is still outstanding on the same [WriteStream].
	ErrWriteInFlight = errors.New("hostbridge: write already in flight")

	// ErrStreamDropped is the reason passed to the host when an adapter is
	// released without an explicit close.
	ErrStreamDropped = errors.New("hostbridge: stream dropped")
)

// IsWouldBlock reports whether err is, or wraps, [ErrWouldBlock].
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// SendError is returned by a failed send. It hands the unsent value back to
// the caller, instead of discarding it.
type SendError[T any] struct {
	// Value is the value that was not sent.
	Value T
	// Err is the reason, [ErrClosed] or [ErrAlreadySent].
	Err error
}

// Error implements the error interface.
func (e *SendError[T]) Error() string {
	if e.Err == nil {
		return "hostbridge: send failed"
	}
	return e.Err.Error()
}

// Unwrap returns the reason for use with [errors.Is] and [errors.As].
func (e *SendError[T]) Unwrap() error {
	return e.Err
}

// AbortError represents an error that occurs when an operation is aborted.
type AbortError struct {
	// Reason contains the abort reason provided to [AbortHandle.Abort].
	Reason any
}

// Error implements the error interface.
func (e *AbortError) Error() string {
	if e.Reason == nil {
		return "hostbridge: operation aborted"
	}
	if s, ok := e.Reason.(string); ok {
		return "hostbridge: operation aborted: " + s
	}
	if err, ok := e.Reason.(error); ok {
		return "hostbridge: operation aborted: " + err.Error()
	}
	return fmt.Sprintf("hostbridge: operation aborted: %v", e.Reason)
}

// Is implements errors.Is support for AbortError.
func (e *AbortError) Is(target error) bool {
	_, ok := target.(*AbortError)
	return ok
}

// Unwrap returns the underlying error if Reason is an error type.
func (e *AbortError) Unwrap() error {
	if err, ok := e.Reason.(error); ok {
		return err
	}
	return nil
}

// RangeError represents a value that is not within the range the host
// accepts.
type RangeError struct {
	Cause   error
	Message string
}

// Error implements the error interface.
func (e *RangeError) Error() string {
	if e.Message == "" {
		return "range error"
	}
	return e.Message
}

// Unwrap returns the underlying cause for use with [errors.Is] and [errors.As].
func (e *RangeError) Unwrap() error {
	return e.Cause
}

// reasonError converts an abort reason into an error, for handing to host
// cancel and abort callbacks.
func reasonError(reason any) error {
	switch r := reason.(type) {
	case nil:
		return &AbortError{}
	case error:
		return r
	default:
		return &AbortError{Reason: r}
	}
}
