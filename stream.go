// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

// ReadResult is the outcome of one [Reader.Read].
type ReadResult struct {
	// Err is set if the source failed. Chunk and Done are ignored.
	Err error

	// Chunk is the data read. It is nil when Done is set.
	Chunk []byte

	// Done indicates the source is exhausted.
	Done bool
}

// Source is a host chunked data source. At most one [Reader] may be held
// at a time.
type Source interface {
	// GetReader acquires the exclusive reader, failing with [ErrLocked] if
	// it is already held.
	GetReader() (Reader, error)

	// Tee splits an unlocked source into two that each see all remaining
	// data. The original is consumed; its underlying resources are
	// released only once both halves are done.
	Tee() (Source, Source, error)

	// Cancel tells an unlocked source the consumer has lost interest.
	Cancel(reason error) error
}

// Reader is the exclusive reading handle of a [Source].
type Reader interface {
	// Read requests the next chunk. The host calls cb exactly once, possibly
	// before Read returns.
	Read(cb func(ReadResult))

	// Cancel cancels the source through the lock. Any outstanding Read
	// completes with Done.
	Cancel(reason error)

	// ReleaseLock gives up the exclusive handle. Any outstanding Read
	// completes with [ErrReleased].
	ReleaseLock()
}

// Sink is a host chunked data sink. At most one [Writer] may be held at a
// time, and Close and Abort fail with [ErrLocked] while one is.
type Sink interface {
	// GetWriter acquires the exclusive writer.
	GetWriter() (Writer, error)

	// Close flushes and closes the sink, calling cb with the outcome.
	Close(cb func(error))

	// Abort discards the sink, calling cb with the outcome.
	Abort(reason error, cb func(error))
}

// Writer is the exclusive writing handle of a [Sink].
type Writer interface {
	// Write writes one chunk, calling cb with the outcome.
	Write(chunk []byte, cb func(error))

	// ReleaseLock gives up the exclusive handle.
	ReleaseLock()
}

// callbackFuture starts op, which must call its argument exactly once, and
// returns a [Future] of the reported error. The future may be polled again
// after resolving.
func callbackFuture(mode Mode, op func(cb func(error))) Future[error] {
	tx, rx := NewOneShot[error](WithMode(mode))
	op(func(err error) {
		_ = tx.TrySend(err)
		tx.Close()
	})
	var (
		result error
		done   bool
	)
	return FutureFunc[error](func(w Waker) (error, Status) {
		if done {
			return result, Ready
		}
		err, status := rx.Poll(w)
		switch status {
		case Pending:
			return nil, Pending
		case Ready:
			result = err
		default:
			result = ErrClosed
		}
		done = true
		return result, Ready
	})
}
