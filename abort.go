// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"context"
	"sync"
	"time"
)

// AbortSignal is the observing side of a shared cancellation flag.
//
// Once aborted, a signal never reverts. Every waiter registered before the
// transition is woken exactly once, at the transition; anything registered
// after it observes the abort immediately.
//
// Thread Safety:
// AbortSignal is safe for concurrent access from multiple goroutines.
//
// Usage:
//
//	handle, signal := hostbridge.NewAbortHandle()
//
//	signal.OnAbort(func(reason any) {
//	    fmt.Println("Aborted with reason:", reason)
//	})
//
//	fut := hostbridge.NewAbortable(work, signal)
//
//	// elsewhere
//	handle.Abort("user cancelled")
type AbortSignal struct { //nolint:govet // betteralign:ignore
	entries []abortEntry
	reason  any
	done    chan struct{}
	nextID  uint64
	mu      sync.RWMutex
	aborted bool
}

// abortEntry is a registered waiter: exactly one of fn or waker is set.
type abortEntry struct {
	fn    func(reason any)
	waker Waker
	id    uint64
}

func newAbortSignal() *AbortSignal {
	return &AbortSignal{nextID: 1}
}

// Aborted returns true if the signal has been aborted. It never blocks.
func (s *AbortSignal) Aborted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.aborted
}

// Reason returns the abort reason, or nil if not aborted.
func (s *AbortSignal) Reason() any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reason
}

// Err returns an [*AbortError] carrying the reason if the signal has been
// aborted, or nil otherwise.
func (s *AbortSignal) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.aborted {
		return &AbortError{Reason: s.reason}
	}
	return nil
}

// Done returns a channel that is closed when the signal is aborted.
func (s *AbortSignal) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.done == nil {
		s.done = make(chan struct{})
		if s.aborted {
			close(s.done)
		}
	}
	return s.done
}

// OnAbort registers a callback to be invoked when the signal is aborted,
// returning an id for [AbortSignal.RemoveListener].
//
// If the signal is already aborted, the callback is invoked immediately and
// the returned id is 0. Callbacks run in registration order.
func (s *AbortSignal) OnAbort(handler func(reason any)) uint64 {
	if handler == nil {
		return 0
	}

	s.mu.Lock()
	if s.aborted {
		reason := s.reason
		s.mu.Unlock()
		handler(reason)
		return 0
	}
	id := s.nextID
	s.nextID++
	s.entries = append(s.entries, abortEntry{id: id, fn: handler})
	s.mu.Unlock()
	return id
}

// RemoveListener removes a callback or waiter by id. It reports whether the
// id was found.
func (s *AbortSignal) RemoveListener(id uint64) bool {
	if id == 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, entry := range s.entries {
		if entry.id == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			return true
		}
	}
	return false
}

// register adds w as a waiter. The flag check and the registration happen
// under the same lock, so an abort either sees the waiter, or the caller
// sees aborted == true.
func (s *AbortSignal) register(w Waker) (id uint64, aborted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.aborted {
		return 0, true
	}
	id = s.nextID
	s.nextID++
	s.entries = append(s.entries, abortEntry{id: id, waker: w})
	return id, false
}

// abort transitions the signal. Waiters are invoked outside the lock.
func (s *AbortSignal) abort(reason any) {
	s.mu.Lock()
	if s.aborted {
		s.mu.Unlock()
		return
	}
	s.aborted = true
	s.reason = reason
	entries := s.entries
	s.entries = nil
	if s.done != nil {
		close(s.done)
	}
	s.mu.Unlock()

	for _, entry := range entries {
		if entry.waker != nil {
			entry.waker.Wake()
		} else {
			entry.fn(reason)
		}
	}
}

// AbortHandle is the controlling side of a shared cancellation flag.
//
// Thread Safety:
// AbortHandle is safe for concurrent access from multiple goroutines.
type AbortHandle struct {
	signal *AbortSignal
}

// NewAbortHandle creates a handle and its signal.
func NewAbortHandle() (*AbortHandle, *AbortSignal) {
	h := &AbortHandle{signal: newAbortSignal()}
	return h, h.signal
}

// Signal returns the signal associated with this handle.
func (h *AbortHandle) Signal() *AbortSignal {
	return h.signal
}

// Abort sets the flag and wakes every registered waiter exactly once. If
// reason is nil, an [*AbortError] is used. Calling Abort more than once has
// no additional effect; the original reason is kept.
func (h *AbortHandle) Abort(reason any) {
	if reason == nil {
		reason = &AbortError{}
	}
	h.signal.abort(reason)
}

// Aborted reports whether [AbortHandle.Abort] has been called.
func (h *AbortHandle) Aborted() bool {
	return h.signal.Aborted()
}

// Abortable makes any [Future] cancellable. Every poll checks the signal
// first; once it is aborted, Poll returns [Aborted] without polling the
// wrapped future again.
type Abortable[T any] struct {
	fut        Future[T]
	signal     *AbortSignal
	waker      Waker
	id         uint64
	mu         sync.Mutex
	registered bool
	aborted    bool
}

// NewAbortable wraps fut. A nil signal never aborts.
func NewAbortable[T any](fut Future[T], signal *AbortSignal) *Abortable[T] {
	return &Abortable[T]{fut: fut, signal: signal}
}

// Poll implements [Future].
func (a *Abortable[T]) Poll(w Waker) (T, Status) {
	var zero T
	if a.aborted {
		return zero, Aborted
	}
	if a.signal == nil {
		return a.fut.Poll(w)
	}

	// the waker is stored before the flag is read, so an abort landing
	// between here and the return of Pending still reaches w
	a.mu.Lock()
	a.waker = w
	a.mu.Unlock()

	if !a.registered {
		a.registered = true
		id, aborted := a.signal.register(WakerFunc(a.wake))
		if aborted {
			a.aborted = true
			return zero, Aborted
		}
		a.id = id
	} else if a.signal.Aborted() {
		a.aborted = true
		return zero, Aborted
	}

	v, status := a.fut.Poll(w)
	if status != Pending {
		a.signal.RemoveListener(a.id)
	}
	return v, status
}

// Err returns the [*AbortError] once Poll has returned [Aborted].
func (a *Abortable[T]) Err() error {
	if !a.aborted {
		return nil
	}
	return a.signal.Err()
}

func (a *Abortable[T]) wake() {
	a.mu.Lock()
	w := a.waker
	a.mu.Unlock()
	if w != nil {
		w.Wake()
	}
}

// AbortAny returns a signal that aborts when any of signals does, with the
// reason of the first. Nil signals are ignored; with no signals, the result
// never aborts.
func AbortAny(signals ...*AbortSignal) *AbortSignal {
	composite := newAbortSignal()
	for _, sig := range signals {
		if sig != nil && sig.Aborted() {
			composite.abort(sig.Reason())
			return composite
		}
	}
	var once sync.Once
	for _, sig := range signals {
		if sig == nil {
			continue
		}
		sig.OnAbort(func(reason any) {
			once.Do(func() {
				composite.abort(reason)
			})
		})
	}
	return composite
}

// AbortAfter returns a handle that aborts itself after d, with
// [context.DeadlineExceeded] as the reason. Aborting it early clears the
// host timer.
func AbortAfter(host Host, d time.Duration) (*AbortHandle, error) {
	delay, err := timerDelay(d)
	if err != nil {
		return nil, err
	}
	handle, signal := NewAbortHandle()
	id, err := host.SetTimeout(delay, func() {
		handle.Abort(context.DeadlineExceeded)
	})
	if err != nil {
		return nil, err
	}
	signal.OnAbort(func(any) {
		host.ClearTimer(id)
	})
	return handle, nil
}
