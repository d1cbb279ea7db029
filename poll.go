// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

// Status is the outcome of a single poll.
type Status uint8

const (
	// Pending indicates the operation cannot complete yet. The waker passed
	// to the poll has been stored, and will be woken on the next change.
	Pending Status = iota

	// Ready indicates a value was produced.
	Ready

	// Closed indicates completion without a value: the producing side is
	// gone, or (for streams) the sequence has ended.
	Closed

	// Aborted indicates an [Abortable] observed its signal.
	Aborted

	// Failed indicates a host-side failure, see the producer's Err method.
	Failed
)

// String returns a human-readable representation of the status.
func (s Status) String() string {
	switch s {
	case Pending:
		return "Pending"
	case Ready:
		return "Ready"
	case Closed:
		return "Closed"
	case Aborted:
		return "Aborted"
	case Failed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Done reports whether the status is anything other than [Pending].
func (s Status) Done() bool {
	return s != Pending
}

// Waker is a stored continuation, resumed when a primitive's state changes.
//
// Wake may be called from any goroutine, more than once, and after the
// operation it was registered for has completed. Implementations must
// tolerate all of these.
type Waker interface {
	Wake()
}

// WakerFunc adapts a func to [Waker]. A nil WakerFunc is a no-op.
type WakerFunc func()

// Wake calls f, if it is non-nil.
func (f WakerFunc) Wake() {
	if f != nil {
		f()
	}
}

// NoopWaker discards wakes. Useful for a single speculative poll.
var NoopWaker Waker = WakerFunc(nil)

// Future is a single-resolution pollable.
//
// Polling again after a non-[Pending] result is a programming error unless
// the implementation documents otherwise.
type Future[T any] interface {
	Poll(w Waker) (T, Status)
}

// Stream is a multi-value pollable. [Ready] yields an item; any other
// non-[Pending] status is terminal, and is repeated by every later poll.
type Stream[T any] interface {
	PollNext(w Waker) (T, Status)
}

// FutureFunc adapts a func to [Future].
type FutureFunc[T any] func(w Waker) (T, Status)

// Poll calls f.
func (f FutureFunc[T]) Poll(w Waker) (T, Status) { return f(w) }

// StreamFunc adapts a func to [Stream].
type StreamFunc[T any] func(w Waker) (T, Status)

// PollNext calls f.
func (f StreamFunc[T]) PollNext(w Waker) (T, Status) { return f(w) }

// ReadyFuture returns a [Future] that is immediately [Ready] with v.
func ReadyFuture[T any](v T) Future[T] {
	return FutureFunc[T](func(Waker) (T, Status) { return v, Ready })
}

// wakeAll wakes each non-nil waker in order.
func wakeAll(wakers []Waker) {
	for _, w := range wakers {
		if w != nil {
			w.Wake()
		}
	}
}
