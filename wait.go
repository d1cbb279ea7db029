// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"context"
)

// Wait drives fut to completion on the calling goroutine, blocking between
// polls. It must not be called from a host's loop goroutine, and the
// primitives behind fut must be usable from the caller's goroutine (see
// [ModeAtomic]).
//
// The returned error is ctx.Err() if ctx ended first, in which case the
// status is [Pending].
func Wait[T any](ctx context.Context, fut Future[T]) (T, Status, error) {
	wake := make(chan struct{}, 1)
	w := chanWaker(wake)
	for {
		v, status := fut.Poll(w)
		if status != Pending {
			return v, status, nil
		}
		select {
		case <-ctx.Done():
			var zero T
			return zero, Pending, ctx.Err()
		case <-wake:
		}
	}
}

// Collect drains s until it reaches a terminal status, which is returned
// alongside every item received. See [Wait] for the blocking caveats.
func Collect[T any](ctx context.Context, s Stream[T]) ([]T, Status, error) {
	wake := make(chan struct{}, 1)
	w := chanWaker(wake)
	var items []T
	for {
		v, status := s.PollNext(w)
		switch status {
		case Ready:
			items = append(items, v)
			continue
		case Pending:
		default:
			return items, status, nil
		}
		select {
		case <-ctx.Done():
			return items, Pending, ctx.Err()
		case <-wake:
		}
	}
}

func chanWaker(ch chan struct{}) Waker {
	return WakerFunc(func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	})
}
