// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"fmt"
	"sync"

	"github.com/eapache/queue"
	"github.com/joeycumines/logiface"
)

// ReadBuilder configures a custom [Source], built from start, pull and
// cancel callbacks, and wraps it in a [ReadStream].
//
// Usage:
//
//	stream, err := hostbridge.NewReadBuilder().
//	    Start(func(c *hostbridge.ReadController) error {
//	        c.Enqueue([]byte("hello"))
//	        return c.Close()
//	    }).
//	    Build()
type ReadBuilder struct {
	start  func(c *ReadController) error
	pull   func(c *ReadController) error
	cancel func(reason error) error
}

// NewReadBuilder returns an empty builder.
func NewReadBuilder() *ReadBuilder {
	return &ReadBuilder{}
}

// Start sets the callback run once, during Build. A start error fails
// Build.
func (b *ReadBuilder) Start(fn func(c *ReadController) error) *ReadBuilder {
	b.start = fn
	return b
}

// Pull sets the callback run whenever a read finds the queue below its
// high water mark (see [WithHighWaterMark]). A pull error fails the stream.
func (b *ReadBuilder) Pull(fn func(c *ReadController) error) *ReadBuilder {
	b.pull = fn
	return b
}

// Cancel sets the callback run, at most once, when every consumer of the
// source has cancelled it. Closing the built stream before it is exhausted
// cancels it.
func (b *ReadBuilder) Cancel(fn func(reason error) error) *ReadBuilder {
	b.cancel = fn
	return b
}

// Build creates the source and its stream. The controller's
// [ReadController.Signal] is aborted when the stream is closed, so producer
// side work (timers, listeners) can stop deterministically.
func (b *ReadBuilder) Build(opts ...Option) (*ReadStream, error) {
	cfg := resolveOptions(opts)
	handle, signal := NewAbortHandle()

	state := &queueState{
		pull:          b.pull,
		cancel:        b.cancel,
		signal:        signal,
		logger:        cfg.logger,
		highWaterMark: cfg.highWaterMark,
		branches:      make(map[*queueBranch]struct{}),
	}
	state.ctrl = &ReadController{state: state}
	root := state.newBranch(nil)

	if b.start != nil {
		if err := b.start(state.ctrl); err != nil {
			handle.Abort(err)
			return nil, fmt.Errorf("hostbridge: read builder start: %w", err)
		}
	}

	stream := NewReadStream(root, opts...)
	stream.onClose = func() {
		handle.Abort(ErrStreamDropped)
	}
	return stream, nil
}

// ReadController feeds a custom source.
//
// Thread Safety:
// ReadController is safe for concurrent access from multiple goroutines.
type ReadController struct {
	state *queueState
}

// Enqueue appends chunk to every branch of the source. It fails with
// [ErrClosed] once the source is closed, errored, or cancelled.
func (c *ReadController) Enqueue(chunk []byte) error {
	return c.state.enqueue(chunk)
}

// Close ends the source once queued chunks are drained.
func (c *ReadController) Close() error {
	return c.state.close()
}

// Error fails the source, discarding queued chunks.
func (c *ReadController) Error(err error) {
	c.state.fail(err)
}

// DesiredSize returns the number of chunks the source may queue before
// reaching its high water mark. It is zero once closed or errored.
func (c *ReadController) DesiredSize() int {
	c.state.mu.Lock()
	defer c.state.mu.Unlock()
	return c.state.desiredSize()
}

// Signal is aborted when the stream built alongside this controller is
// closed.
func (c *ReadController) Signal() *AbortSignal {
	return c.state.signal
}

// queueState is the shared state of a builder source and all of its tee
// branches.
type queueState struct {
	err           error
	ctrl          *ReadController
	pull          func(c *ReadController) error
	cancel        func(reason error) error
	signal        *AbortSignal
	logger        *logiface.Logger[logiface.Event]
	branches      map[*queueBranch]struct{}
	highWaterMark int
	mu            sync.Mutex
	closed        bool
	cancelled     bool
	pulling       bool
}

// queueBranch is one [Source] view over a queueState.
type queueBranch struct {
	state   *queueState
	chunks  *queue.Queue
	reader  *queueReader
	waiting func(ReadResult)
	gone    bool
}

type queueReader struct {
	branch   *queueBranch
	released bool
}

// delivery is a read callback and its result, invoked outside the lock.
type delivery struct {
	cb  func(ReadResult)
	res ReadResult
}

func deliver(ds []delivery) {
	for _, d := range ds {
		d.cb(d.res)
	}
}

func (s *queueState) newBranch(from *queueBranch) *queueBranch {
	b := &queueBranch{state: s, chunks: queue.New()}
	if from != nil {
		for i := 0; i < from.chunks.Length(); i++ {
			b.chunks.Add(from.chunks.Get(i))
		}
	}
	s.branches[b] = struct{}{}
	return b
}

func (s *queueState) desiredSize() int {
	if s.closed || s.err != nil || s.cancelled {
		return 0
	}
	var longest int
	for b := range s.branches {
		if n := b.chunks.Length(); n > longest {
			longest = n
		}
	}
	return s.highWaterMark - longest
}

func (s *queueState) enqueue(chunk []byte) error {
	s.mu.Lock()
	if s.closed || s.err != nil || s.cancelled {
		s.mu.Unlock()
		return ErrClosed
	}
	var ds []delivery
	for b := range s.branches {
		if b.waiting != nil {
			ds = append(ds, delivery{b.waiting, ReadResult{Chunk: chunk}})
			b.waiting = nil
		} else {
			b.chunks.Add(chunk)
		}
	}
	s.mu.Unlock()

	deliver(ds)
	return nil
}

func (s *queueState) close() error {
	s.mu.Lock()
	if s.closed || s.err != nil || s.cancelled {
		s.mu.Unlock()
		return ErrClosed
	}
	s.closed = true
	var ds []delivery
	for b := range s.branches {
		if b.waiting != nil && b.chunks.Length() == 0 {
			ds = append(ds, delivery{b.waiting, ReadResult{Done: true}})
			b.waiting = nil
		}
	}
	s.mu.Unlock()

	deliver(ds)
	return nil
}

func (s *queueState) fail(err error) {
	if err == nil {
		err = &AbortError{}
	}
	s.mu.Lock()
	if s.closed || s.err != nil || s.cancelled {
		s.mu.Unlock()
		return
	}
	s.err = err
	var ds []delivery
	for b := range s.branches {
		b.chunks = queue.New()
		if b.waiting != nil {
			ds = append(ds, delivery{b.waiting, ReadResult{Err: err}})
			b.waiting = nil
		}
	}
	s.mu.Unlock()

	deliver(ds)
}

// maybePull runs the pull callback if a read is waiting, or the queue is
// below its high water mark. It does not recurse.
func (s *queueState) maybePull() {
	s.mu.Lock()
	if s.pull == nil || s.pulling || s.desiredSize() <= 0 {
		s.mu.Unlock()
		return
	}
	s.pulling = true
	s.mu.Unlock()

	err := s.pull(s.ctrl)

	s.mu.Lock()
	s.pulling = false
	s.mu.Unlock()

	if err != nil {
		s.logger.Debug().
			Err(err).
			Log(`read builder: pull failed`)
		s.fail(err)
	}
}

// removeBranch drops b, cancelling the source once no branches remain.
func (s *queueState) removeBranch(b *queueBranch, reason error) {
	s.mu.Lock()
	if b.gone {
		s.mu.Unlock()
		return
	}
	b.gone = true
	b.chunks = queue.New()
	delete(s.branches, b)
	var ds []delivery
	if b.waiting != nil {
		ds = append(ds, delivery{b.waiting, ReadResult{Done: true}})
		b.waiting = nil
	}
	var cancel func(reason error) error
	if len(s.branches) == 0 && !s.cancelled && !s.closed && s.err == nil {
		s.cancelled = true
		cancel = s.cancel
	}
	s.mu.Unlock()

	deliver(ds)
	if cancel != nil {
		if err := cancel(reason); err != nil {
			s.logger.Warning().
				Err(err).
				Log(`read builder: cancel failed`)
		}
	}
}

func (b *queueBranch) GetReader() (Reader, error) {
	s := b.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.reader != nil {
		return nil, ErrLocked
	}
	b.reader = &queueReader{branch: b}
	return b.reader, nil
}

func (b *queueBranch) Tee() (Source, Source, error) {
	s := b.state
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.reader != nil {
		return nil, nil, ErrLocked
	}
	if b.gone {
		return nil, nil, ErrReleased
	}
	left, right := s.newBranch(b), s.newBranch(b)
	b.gone = true
	delete(s.branches, b)
	return left, right, nil
}

func (b *queueBranch) Cancel(reason error) error {
	s := b.state
	s.mu.Lock()
	locked := b.reader != nil
	s.mu.Unlock()
	if locked {
		return ErrLocked
	}
	s.removeBranch(b, reason)
	return nil
}

func (r *queueReader) Read(cb func(ReadResult)) {
	b := r.branch
	s := b.state

	s.mu.Lock()
	var res ReadResult
	switch {
	case r.released:
		res.Err = ErrReleased
	case b.waiting != nil:
		res.Err = fmt.Errorf("hostbridge: concurrent read: %w", ErrLocked)
	case b.chunks.Length() != 0:
		res.Chunk = b.chunks.Remove().([]byte)
	case s.err != nil:
		res.Err = s.err
	case b.gone || s.closed || s.cancelled:
		res.Done = true
	default:
		b.waiting = cb
		cb = nil
	}
	s.mu.Unlock()

	if cb != nil {
		cb(res)
	}
	s.maybePull()
}

func (r *queueReader) Cancel(reason error) {
	s := r.branch.state
	s.mu.Lock()
	released := r.released
	s.mu.Unlock()
	if !released {
		s.removeBranch(r.branch, reason)
	}
}

func (r *queueReader) ReleaseLock() {
	b := r.branch
	s := b.state
	s.mu.Lock()
	if r.released {
		s.mu.Unlock()
		return
	}
	r.released = true
	if b.reader == r {
		b.reader = nil
	}
	cb := b.waiting
	b.waiting = nil
	s.mu.Unlock()

	if cb != nil {
		cb(ReadResult{Err: ErrReleased})
	}
}
