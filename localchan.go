// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"sync"
	"sync/atomic"
	"weak"

	"github.com/eapache/queue"
)

// chanCore is the state shared by every [Sender] and the [Receiver] of one
// Local Channel. Only the receiver removes from buf; only senders append.
type chanCore[T any] struct {
	buf     *queue.Queue
	waker   Waker
	mu      sync.Mutex
	senders int
	closed  bool
}

// Sender is the producing side of a Local Channel. It is typically captured
// by a host callback. Senders hold a weak reference to the channel, so they
// never keep a dropped receiver's buffer alive.
type Sender[T any] struct {
	core    weak.Pointer[chanCore[T]]
	dropped atomic.Bool
}

// Receiver is the consuming side of a Local Channel, and implements
// [Stream]. It owns the channel.
type Receiver[T any] struct {
	core *chanCore[T]
}

// NewLocalChannel creates an unbounded, FIFO, multi-producer single-consumer
// channel. Sends never block; the receiver is polled.
//
// The channel closes permanently once every sender has been closed (see
// [Sender.Close]) and the buffer has been drained.
func NewLocalChannel[T any]() (*Sender[T], *Receiver[T]) {
	core := &chanCore[T]{
		buf:     queue.New(),
		senders: 1,
	}
	return &Sender[T]{core: weak.Make(core)}, &Receiver[T]{core: core}
}

// TrySend appends v and wakes the receiver. It fails with a [*SendError]
// wrapping [ErrClosed], carrying v, if the receiver is gone or this sender
// was closed.
func (s *Sender[T]) TrySend(v T) error {
	core := s.core.Value()
	if core == nil || s.dropped.Load() {
		return &SendError[T]{Value: v, Err: ErrClosed}
	}

	core.mu.Lock()
	if core.closed {
		core.mu.Unlock()
		return &SendError[T]{Value: v, Err: ErrClosed}
	}
	core.buf.Add(v)
	waker := core.waker
	core.waker = nil
	core.mu.Unlock()

	if waker != nil {
		waker.Wake()
	}
	return nil
}

// Clone returns a new sender for the same channel. The channel stays open
// until every clone has been closed. Cloning a closed sender returns a
// closed sender.
func (s *Sender[T]) Clone() *Sender[T] {
	clone := &Sender[T]{core: s.core}
	core := s.core.Value()
	if core == nil || s.dropped.Load() {
		clone.dropped.Store(true)
		return clone
	}
	core.mu.Lock()
	core.senders++
	core.mu.Unlock()
	return clone
}

// Close drops this sender. When the last sender is dropped, a pending
// receiver is woken so it can observe the closure. Close is idempotent.
func (s *Sender[T]) Close() {
	if !s.dropped.CompareAndSwap(false, true) {
		return
	}
	core := s.core.Value()
	if core == nil {
		return
	}

	core.mu.Lock()
	core.senders--
	var waker Waker
	if core.senders == 0 {
		waker = core.waker
		core.waker = nil
	}
	core.mu.Unlock()

	if waker != nil {
		waker.Wake()
	}
}

// PollNext returns the front value if present. With the buffer empty, it
// returns [Closed] if no sender remains (and forever after), or stores w,
// replacing any previously stored waker, and returns [Pending].
func (r *Receiver[T]) PollNext(w Waker) (T, Status) {
	var zero T
	core := r.core

	core.mu.Lock()
	defer core.mu.Unlock()

	if core.buf.Length() > 0 {
		return core.buf.Remove().(T), Ready
	}
	if core.closed || core.senders == 0 {
		core.waker = nil
		return zero, Closed
	}
	core.waker = w
	return zero, Pending
}

// TryRecv is the non-blocking form of [Receiver.PollNext]. It returns
// [ErrWouldBlock] when the buffer is empty but senders remain, and
// [ErrClosed] once the channel is permanently closed.
func (r *Receiver[T]) TryRecv() (T, error) {
	var zero T
	core := r.core

	core.mu.Lock()
	defer core.mu.Unlock()

	if core.buf.Length() > 0 {
		return core.buf.Remove().(T), nil
	}
	if core.closed || core.senders == 0 {
		return zero, ErrClosed
	}
	return zero, ErrWouldBlock
}

// Len returns the number of buffered values.
func (r *Receiver[T]) Len() int {
	r.core.mu.Lock()
	defer r.core.mu.Unlock()
	return r.core.buf.Length()
}

// Close drops the receiver. Buffered values are discarded, and every later
// send fails, handing its value back. Close is idempotent.
func (r *Receiver[T]) Close() {
	core := r.core
	core.mu.Lock()
	defer core.mu.Unlock()
	if core.closed {
		return
	}
	core.closed = true
	core.waker = nil
	core.buf = queue.New()
}
