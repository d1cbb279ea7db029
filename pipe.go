// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"sync"

	"github.com/joeycumines/logiface"
)

type pipeOptions struct {
	signal        *AbortSignal
	logger        *logiface.Logger[logiface.Event]
	preventClose  bool
	preventAbort  bool
	preventCancel bool
}

// PipeOption configures [PipeTo].
type PipeOption interface {
	applyPipe(*pipeOptions)
}

type pipeOptionImpl struct {
	applyFunc func(*pipeOptions)
}

func (o *pipeOptionImpl) applyPipe(opts *pipeOptions) {
	o.applyFunc(opts)
}

// PreventClose leaves the destination open when the source is exhausted.
func PreventClose() PipeOption {
	return &pipeOptionImpl{func(opts *pipeOptions) {
		opts.preventClose = true
	}}
}

// PreventAbort leaves the destination alone when the source fails, or the
// pipe is aborted.
func PreventAbort() PipeOption {
	return &pipeOptionImpl{func(opts *pipeOptions) {
		opts.preventAbort = true
	}}
}

// PreventCancel leaves the source open when the destination fails, or the
// pipe is aborted.
func PreventCancel() PipeOption {
	return &pipeOptionImpl{func(opts *pipeOptions) {
		opts.preventCancel = true
	}}
}

// WithPipeSignal aborts the pipe when signal is aborted.
func WithPipeSignal(signal *AbortSignal) PipeOption {
	return &pipeOptionImpl{func(opts *pipeOptions) {
		opts.signal = signal
	}}
}

// WithPipeLogger sets the logger used by the pipe.
func WithPipeLogger(logger *logiface.Logger[logiface.Event]) PipeOption {
	return &pipeOptionImpl{func(opts *pipeOptions) {
		opts.logger = logger
	}}
}

// Pipe moves every chunk of a [ReadStream] into a [WriteStream]. It is a
// [Future] of the error that stopped it, nil if the source was exhausted
// and the destination closed cleanly. It may be polled again after
// resolving.
type Pipe struct {
	src     *ReadStream
	dst     *WriteStream
	handle  *AbortHandle
	signal  *AbortSignal
	write   Future[error]
	finish  Future[error]
	failure error
	result  error
	waker   Waker
	cfg     pipeOptions
	id      uint64
	mu      sync.Mutex
	started bool
	done    bool
}

// PipeTo creates a [Pipe]. Nothing happens until it is polled.
func PipeTo(src *ReadStream, dst *WriteStream, opts ...PipeOption) *Pipe {
	p := &Pipe{src: src, dst: dst}
	for _, opt := range opts {
		if opt != nil {
			opt.applyPipe(&p.cfg)
		}
	}
	var signal *AbortSignal
	p.handle, signal = NewAbortHandle()
	if p.cfg.signal != nil {
		signal = AbortAny(signal, p.cfg.signal)
	}
	p.signal = signal
	return p
}

// Abort stops the pipe, with an [*AbortError] as the reason. It takes effect
// at the next poll.
func (p *Pipe) Abort() {
	p.handle.Abort(nil)
}

// Poll implements [Future].
func (p *Pipe) Poll(w Waker) (error, Status) {
	if p.done {
		return p.result, Ready
	}

	p.mu.Lock()
	p.waker = w
	p.mu.Unlock()
	if !p.started {
		p.started = true
		p.id = p.signal.OnAbort(func(any) { p.wake() })
	}

	if p.finish == nil && p.signal.Aborted() {
		err := p.signal.Err()
		if !p.cfg.preventCancel {
			p.src.Close()
		}
		if p.cfg.preventAbort {
			return p.complete(err)
		}
		p.failure = err
		p.finish = p.dst.Abort(err)
	}

	for {
		if p.finish != nil {
			err, status := p.finish.Poll(w)
			if status == Pending {
				return nil, Pending
			}
			if p.failure != nil {
				err = p.failure
			}
			return p.complete(err)
		}

		if p.write != nil {
			err, status := p.write.Poll(w)
			if status == Pending {
				return nil, Pending
			}
			p.write = nil
			if err != nil {
				if !p.cfg.preventCancel {
					p.src.Close()
				}
				return p.complete(err)
			}
		}

		chunk, status := p.src.PollNext(w)
		switch status {
		case Ready:
			p.write = p.dst.Write(chunk)
		case Pending:
			return nil, Pending
		case Failed:
			err := p.src.Err()
			if p.cfg.preventAbort {
				return p.complete(err)
			}
			p.failure = err
			p.finish = p.dst.Abort(err)
		default:
			if p.cfg.preventClose {
				return p.complete(nil)
			}
			p.finish = p.dst.Close()
		}
	}
}

func (p *Pipe) complete(err error) (error, Status) {
	p.done = true
	p.result = err
	p.signal.RemoveListener(p.id)
	p.mu.Lock()
	p.waker = nil
	p.mu.Unlock()
	b := p.cfg.logger.Debug()
	if err != nil {
		b = b.Err(err)
	}
	b.Log(`pipe finished`)
	return err, Ready
}

func (p *Pipe) wake() {
	p.mu.Lock()
	w := p.waker
	p.mu.Unlock()
	if w != nil {
		w.Wake()
	}
}
