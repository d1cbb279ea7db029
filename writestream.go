// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// WriteStream adapts a host [Sink] into writes that return futures.
//
// The writer is acquired lazily, by the first Write, and at most one write
// may be in flight. Close and Abort release the writer before signalling
// the sink. A stream that is released without Close is aborted.
//
// WriteStream is not safe for concurrent use. With [ModeAtomic], the host
// callbacks completing its futures may run on another goroutine.
type WriteStream struct {
	sink     Sink
	writer   Writer
	inflight *atomic.Bool
	logger   *logiface.Logger[logiface.Event]
	mode     Mode
	// finished is set by Close, Abort or Release
	finished bool
}

// NewWriteStream wraps sink. No writer is acquired until the first Write.
func NewWriteStream(sink Sink, opts ...Option) *WriteStream {
	cfg := resolveOptions(opts)
	return &WriteStream{
		sink:   sink,
		logger: cfg.logger,
		mode:   cfg.mode,
	}
}

// Write writes chunk. The future resolves [Ready] with the sink's error,
// which is nil on success. It fails immediately with [ErrWriteInFlight]
// while a previous write has not completed, or with [ErrClosed] after
// Close or Abort.
func (s *WriteStream) Write(chunk []byte) Future[error] {
	if s.finished {
		return ReadyFuture[error](ErrClosed)
	}
	if s.inflight != nil && s.inflight.Load() {
		return ReadyFuture[error](ErrWriteInFlight)
	}
	if s.writer == nil {
		writer, err := s.sink.GetWriter()
		if err != nil {
			return ReadyFuture(err)
		}
		s.writer = writer
	}

	inflight := new(atomic.Bool)
	inflight.Store(true)
	s.inflight = inflight
	writer := s.writer
	return callbackFuture(s.mode, func(cb func(error)) {
		writer.Write(chunk, func(err error) {
			inflight.Store(false)
			cb(err)
		})
	})
}

// Close releases the writer, then closes the sink. A second Close, or a
// Close after Abort, fails with [ErrClosed].
func (s *WriteStream) Close() Future[error] {
	if s.finished {
		return ReadyFuture[error](ErrClosed)
	}
	s.finished = true
	s.releaseWriter()
	return callbackFuture(s.mode, s.sink.Close)
}

// Abort releases the writer, then aborts the sink with reason. A nil
// reason is replaced with an [*AbortError].
func (s *WriteStream) Abort(reason error) Future[error] {
	if s.finished {
		return ReadyFuture[error](ErrClosed)
	}
	s.finished = true
	if reason == nil {
		reason = &AbortError{}
	}
	s.releaseWriter()
	return callbackFuture(s.mode, func(cb func(error)) {
		s.sink.Abort(reason, cb)
	})
}

// Release drops the stream. If it was neither closed nor aborted, the sink
// is aborted with [ErrStreamDropped]. Release is idempotent.
func (s *WriteStream) Release() {
	if s.finished {
		return
	}
	s.logger.Debug().Log(`write stream: released without close, aborting`)
	s.Abort(ErrStreamDropped)
}

func (s *WriteStream) releaseWriter() {
	if s.writer == nil {
		return
	}
	s.writer.ReleaseLock()
	s.writer = nil
	s.logger.Debug().Log(`write stream: writer released`)
}
