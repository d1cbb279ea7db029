// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"errors"
	"sync/atomic"
)

// oneShotCore is the shared state of a One-Shot Channel. There are two
// implementations, see localOneShot and atomicOneShot.
type oneShotCore[T any] interface {
	// send stores v and wakes the receiver, or fails with ErrClosed or
	// ErrAlreadySent.
	send(v T) error
	addSender()
	// dropSender wakes the receiver if it was the last sender and nothing
	// was sent.
	dropSender()
	poll(w Waker) (T, Status)
	closeReceiver()
}

// OneShotSender is the producing side of a One-Shot Channel. Exactly one
// send, across all clones, can succeed.
type OneShotSender[T any] struct {
	core    oneShotCore[T]
	dropped atomic.Bool
}

// OneShotReceiver is the consuming side of a One-Shot Channel, and
// implements [Future]. It resolves [Ready] with the sent value, or [Closed]
// if every sender was dropped without sending.
type OneShotReceiver[T any] struct {
	core oneShotCore[T]
	done bool
}

// NewOneShot creates a One-Shot Channel. The backing strategy is chosen by
// [WithMode], defaulting to [DefaultMode].
func NewOneShot[T any](opts ...Option) (*OneShotSender[T], *OneShotReceiver[T]) {
	cfg := resolveOptions(opts)
	var core oneShotCore[T]
	if cfg.mode == ModeAtomic {
		core = newAtomicOneShot[T]()
	} else {
		core = newLocalOneShot[T]()
	}
	return &OneShotSender[T]{core: core}, &OneShotReceiver[T]{core: core}
}

// TrySend sends v. It fails with a [*SendError] carrying v, wrapping
// [ErrAlreadySent] if any clone already sent, or [ErrClosed] if the receiver
// or this sender was closed.
func (s *OneShotSender[T]) TrySend(v T) error {
	if s.dropped.Load() {
		return &SendError[T]{Value: v, Err: ErrClosed}
	}
	if err := s.core.send(v); err != nil {
		return &SendError[T]{Value: v, Err: err}
	}
	return nil
}

// MustSend is like [OneShotSender.TrySend], but panics if a value was
// already sent. It reports false if the receiver is gone.
func (s *OneShotSender[T]) MustSend(v T) bool {
	err := s.TrySend(v)
	if errors.Is(err, ErrAlreadySent) {
		panic("hostbridge: one-shot value already sent")
	}
	return err == nil
}

// Clone returns another sender for the same channel.
func (s *OneShotSender[T]) Clone() *OneShotSender[T] {
	clone := &OneShotSender[T]{core: s.core}
	if s.dropped.Load() {
		clone.dropped.Store(true)
		return clone
	}
	s.core.addSender()
	return clone
}

// Close drops this sender. If it was the last one and nothing was sent, the
// receiver resolves [Closed]. Close is idempotent.
func (s *OneShotSender[T]) Close() {
	if s.dropped.CompareAndSwap(false, true) {
		s.core.dropSender()
	}
}

// Poll implements [Future]. Polling again after a non-[Pending] result
// panics: the value slot is single use.
func (r *OneShotReceiver[T]) Poll(w Waker) (T, Status) {
	if r.done {
		panic("hostbridge: one-shot receiver polled after completion")
	}
	v, status := r.core.poll(w)
	if status != Pending {
		r.done = true
	}
	return v, status
}

// Close drops the receiver. Later sends fail with [ErrClosed], and a
// later Poll resolves [Closed], even if a value was already sent.
func (r *OneShotReceiver[T]) Close() {
	r.core.closeReceiver()
}
