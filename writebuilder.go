// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"fmt"
	"sync"

	"github.com/joeycumines/logiface"
)

// WriteBuilder configures a custom [Sink], built from start, write, close
// and abort callbacks, and wraps it in a [WriteStream].
type WriteBuilder struct {
	start func(c *WriteController) error
	write func(chunk []byte, c *WriteController) error
	close func() error
	abort func(reason error) error
}

// NewWriteBuilder returns an empty builder.
func NewWriteBuilder() *WriteBuilder {
	return &WriteBuilder{}
}

// Start sets the callback run once, during Build.
func (b *WriteBuilder) Start(fn func(c *WriteController) error) *WriteBuilder {
	b.start = fn
	return b
}

// Write sets the callback run for each chunk. An error fails the sink.
func (b *WriteBuilder) Write(fn func(chunk []byte, c *WriteController) error) *WriteBuilder {
	b.write = fn
	return b
}

// Close sets the callback run when the stream is closed.
func (b *WriteBuilder) Close(fn func() error) *WriteBuilder {
	b.close = fn
	return b
}

// Abort sets the callback run when the stream is aborted, including when
// it is released without being closed.
func (b *WriteBuilder) Abort(fn func(reason error) error) *WriteBuilder {
	b.abort = fn
	return b
}

// Build creates the sink and its stream.
func (b *WriteBuilder) Build(opts ...Option) (*WriteStream, error) {
	cfg := resolveOptions(opts)
	handle, _ := NewAbortHandle()
	sink := &callbackSink{
		write:  b.write,
		close:  b.close,
		abort:  b.abort,
		handle: handle,
		logger: cfg.logger,
	}
	sink.ctrl = &WriteController{sink: sink}

	if b.start != nil {
		if err := b.start(sink.ctrl); err != nil {
			handle.Abort(err)
			return nil, fmt.Errorf("hostbridge: write builder start: %w", err)
		}
	}
	return NewWriteStream(sink, opts...), nil
}

// WriteController controls a custom sink.
//
// Thread Safety:
// WriteController is safe for concurrent access from multiple goroutines.
type WriteController struct {
	sink *callbackSink
}

// Error fails the sink: subsequent writes, and Close, report err.
func (c *WriteController) Error(err error) {
	c.sink.fail(err)
}

// Signal is aborted when the sink is aborted or fails.
func (c *WriteController) Signal() *AbortSignal {
	return c.sink.handle.Signal()
}

// callbackSink is the [Sink] behind a [WriteBuilder].
type callbackSink struct {
	err    error
	ctrl   *WriteController
	write  func(chunk []byte, c *WriteController) error
	close  func() error
	abort  func(reason error) error
	handle *AbortHandle
	writer *callbackWriter
	logger *logiface.Logger[logiface.Event]
	mu     sync.Mutex
	closed bool
}

type callbackWriter struct {
	sink     *callbackSink
	released bool
}

func (s *callbackSink) fail(err error) {
	if err == nil {
		err = &AbortError{}
	}
	s.mu.Lock()
	if s.err != nil || s.closed {
		s.mu.Unlock()
		return
	}
	s.err = err
	s.mu.Unlock()
	s.handle.Abort(err)
}

func (s *callbackSink) GetWriter() (Writer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.writer != nil {
		return nil, ErrLocked
	}
	s.writer = &callbackWriter{sink: s}
	return s.writer, nil
}

func (s *callbackSink) Close(cb func(error)) {
	s.mu.Lock()
	var err error
	switch {
	case s.writer != nil:
		err = ErrLocked
	case s.err != nil:
		err = s.err
	case s.closed:
		err = ErrClosed
	default:
		s.closed = true
	}
	s.mu.Unlock()

	if err == nil && s.close != nil {
		err = s.close()
	}
	cb(err)
}

func (s *callbackSink) Abort(reason error, cb func(error)) {
	s.mu.Lock()
	var err error
	switch {
	case s.writer != nil:
		err = ErrLocked
	case s.closed:
		err = ErrClosed
	default:
		s.closed = true
		if s.err == nil {
			s.err = reason
		}
	}
	s.mu.Unlock()

	if err == nil {
		s.handle.Abort(reason)
		if s.abort != nil {
			err = s.abort(reason)
		}
		if err != nil {
			s.logger.Warning().
				Err(err).
				Log(`write builder: abort failed`)
		}
	}
	cb(err)
}

func (w *callbackWriter) Write(chunk []byte, cb func(error)) {
	s := w.sink
	s.mu.Lock()
	var err error
	switch {
	case w.released:
		err = ErrReleased
	case s.err != nil:
		err = s.err
	case s.closed:
		err = ErrClosed
	}
	s.mu.Unlock()

	if err == nil && s.write != nil {
		if err = s.write(chunk, s.ctrl); err != nil {
			s.fail(err)
		}
	}
	cb(err)
}

func (w *callbackWriter) ReleaseLock() {
	s := w.sink
	s.mu.Lock()
	defer s.mu.Unlock()
	if w.released {
		return
	}
	w.released = true
	if s.writer == w {
		s.writer = nil
	}
}
