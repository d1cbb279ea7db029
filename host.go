// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"time"
)

// TimerID identifies a host timer, for [Host.ClearTimer].
type TimerID uint64

// ListenerID identifies a host event listener, for [Host.RemoveListener].
type ListenerID uint64

// Host is the registration primitive consumed by the bridges in this
// package: register a callback, get back a token to remove it later.
//
// Callbacks are invoked by the host, zero or more times, outside the
// caller's control flow. A host invokes all callbacks from one goroutine
// (its loop), which is what makes [ModeLocal] primitives usable from them.
//
// See the hostloop package for an event loop implementation, and the
// hosttest package for a manually driven fake.
type Host interface {
	// SetTimeout calls fn once, after delay.
	SetTimeout(delay time.Duration, fn func()) (TimerID, error)

	// SetInterval calls fn every period, until cleared.
	SetInterval(period time.Duration, fn func()) (TimerID, error)

	// ClearTimer cancels a timeout or interval. Unknown or already fired
	// ids are ignored.
	ClearTimer(id TimerID)

	// AddListener calls fn for every event of the given type.
	AddListener(event string, fn func(payload any)) (ListenerID, error)

	// RemoveListener removes a listener, reporting whether it was found.
	RemoveListener(id ListenerID) bool
}
