// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostloop

import (
	"code.hybscloud.com/atomix"
	"github.com/joeycumines/go-hostbridge"
)

// Spawn drives fut to completion on the loop goroutine. It is polled once
// immediately, then again each time its waker is woken; wakes that arrive
// while a poll is already queued are merged.
//
// The result is delivered through a [hostbridge.ModeAtomic] one-shot, so
// the receiver may be awaited from any goroutine, e.g. with
// [hostbridge.Wait]. It resolves [hostbridge.Ready] with the value, or
// [hostbridge.Closed] if fut completed without one, panicked, or the loop
// terminated first.
func Spawn[T any](l *Loop, fut hostbridge.Future[T]) (*hostbridge.OneShotReceiver[T], error) {
	tx, rx := hostbridge.NewOneShot[T](hostbridge.WithMode(hostbridge.ModeAtomic))
	t := &spawned[T]{loop: l, fut: fut, tx: tx}
	t.queued.Store(1)
	if err := l.Submit(t.run); err != nil {
		tx.Close()
		return nil, err
	}
	return rx, nil
}

// spawned is a future being driven by a loop. It is its own waker.
type spawned[T any] struct {
	loop   *Loop
	fut    hostbridge.Future[T]
	tx     *hostbridge.OneShotSender[T]
	queued atomix.Uint64
	done   bool
}

// Wake implements [hostbridge.Waker]. It may be called from any goroutine.
func (t *spawned[T]) Wake() {
	if !t.queued.CompareAndSwapAcqRel(0, 1) {
		return
	}
	if err := t.loop.Submit(t.run); err != nil {
		// nothing will poll again
		t.tx.Close()
	}
}

func (t *spawned[T]) run() {
	t.queued.StoreRelease(0)
	if t.done {
		return
	}

	completed := false
	defer func() {
		if !completed {
			// Poll panicked, safeExecute logs it
			t.done = true
			t.tx.Close()
		}
	}()

	v, status := t.fut.Poll(t)
	completed = true
	if status == hostbridge.Pending {
		return
	}
	t.done = true
	if status == hostbridge.Ready {
		_ = t.tx.TrySend(v)
	}
	t.tx.Close()
}
