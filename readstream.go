// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"github.com/joeycumines/logiface"
)

// ReadStream adapts a host [Source] into a [Stream] of chunks.
//
// The reader is acquired on the first poll, and at most one read is ever
// outstanding. Once the source reports the end of data the stream yields
// [Closed] forever; once it reports an error, [Failed] forever, with the
// error available from Err. Either way the reader is released at that
// point, or at Close if that comes first, exactly once.
//
// ReadStream is not safe for concurrent use. With [ModeAtomic], the host
// callbacks feeding it may run on another goroutine.
type ReadStream struct {
	source  Source
	reader  Reader
	pending *OneShotReceiver[ReadResult]
	err     error
	logger  *logiface.Logger[logiface.Event]
	// onClose runs once, at Close
	onClose  func()
	buf      []byte
	mode     Mode
	terminal Status
	released bool
	closed   bool
}

// NewReadStream wraps source. No reader is acquired until the first poll.
func NewReadStream(source Source, opts ...Option) *ReadStream {
	cfg := resolveOptions(opts)
	return &ReadStream{
		source: source,
		logger: cfg.logger,
		mode:   cfg.mode,
	}
}

// PollNext implements [Stream]. Data left over from [ReadStream.PollRead]
// is returned before any new chunk.
func (s *ReadStream) PollNext(w Waker) ([]byte, Status) {
	if len(s.buf) != 0 {
		chunk := s.buf
		s.buf = nil
		return chunk, Ready
	}
	return s.pollChunk(w)
}

// PollRead copies buffered and newly read data into p. It returns [Ready]
// with n > 0 as soon as any data was copied, rather than waiting to fill p.
// Data that does not fit is kept for the next call.
func (s *ReadStream) PollRead(w Waker, p []byte) (int, Status) {
	var n int
	for n < len(p) {
		if len(s.buf) != 0 {
			c := copy(p[n:], s.buf)
			s.buf = s.buf[c:]
			n += c
			continue
		}
		chunk, status := s.pollChunk(w)
		switch status {
		case Ready:
			s.buf = chunk
		case Pending:
			if n == 0 {
				return 0, Pending
			}
			return n, Ready
		default:
			if n != 0 {
				return n, Ready
			}
			return 0, status
		}
	}
	return n, Ready
}

// ReadRemaining returns a [Future] of all remaining data, including any
// left over from [ReadStream.PollRead]. It resolves [Failed] if the source
// fails.
func (s *ReadStream) ReadRemaining() Future[[]byte] {
	var (
		result []byte
		status = Pending
	)
	result = append(result, s.buf...)
	s.buf = nil
	return FutureFunc[[]byte](func(w Waker) ([]byte, Status) {
		for status == Pending {
			chunk, st := s.pollChunk(w)
			switch st {
			case Ready:
				result = append(result, chunk...)
			case Pending:
				return nil, Pending
			case Closed:
				status = Ready
			default:
				result = nil
				status = st
			}
		}
		return result, status
	})
}

// Err returns the error reported by the source, if any.
func (s *ReadStream) Err() error {
	return s.err
}

// Tee splits the stream into two that each see all remaining data. It
// fails with [ErrLocked] once the reader has been acquired. On success, s
// is consumed, and behaves as if closed.
func (s *ReadStream) Tee() (*ReadStream, *ReadStream, error) {
	if s.closed {
		return nil, nil, ErrReleased
	}
	if s.reader != nil {
		return nil, nil, ErrLocked
	}
	a, b, err := s.source.Tee()
	if err != nil {
		return nil, nil, err
	}
	s.closed = true
	s.terminal = Closed

	left := &ReadStream{source: a, logger: s.logger, mode: s.mode}
	right := &ReadStream{source: b, logger: s.logger, mode: s.mode}
	if onClose := s.onClose; onClose != nil {
		// both halves must close before the parent hook runs
		remaining := 2
		hook := func() {
			remaining--
			if remaining == 0 {
				onClose()
			}
		}
		left.onClose, right.onClose = hook, hook
	}
	s.onClose = nil
	return left, right, nil
}

// Close stops the stream. If it was not already terminal, the source is
// cancelled, with [ErrStreamDropped] as the reason, including when a read
// is in flight. The reader is then released. Close is idempotent.
func (s *ReadStream) Close() {
	if s.closed {
		return
	}
	s.closed = true

	if s.terminal == Pending {
		s.terminal = Closed
		if s.reader != nil {
			s.reader.Cancel(ErrStreamDropped)
		} else if err := s.source.Cancel(ErrStreamDropped); err != nil {
			s.logger.Warning().
				Err(err).
				Log(`read stream: cancel failed`)
		}
	}
	if s.pending != nil {
		s.pending.Close()
		s.pending = nil
	}
	s.release()
	s.buf = nil

	if s.onClose != nil {
		onClose := s.onClose
		s.onClose = nil
		onClose()
	}
}

func (s *ReadStream) pollChunk(w Waker) ([]byte, Status) {
	for {
		if s.terminal != Pending {
			return nil, s.terminal
		}

		if s.reader == nil {
			reader, err := s.source.GetReader()
			if err != nil {
				s.finish(Failed, err)
				return nil, Failed
			}
			s.reader = reader
		}

		if s.pending == nil {
			tx, rx := NewOneShot[ReadResult](WithMode(s.mode))
			s.pending = rx
			s.reader.Read(func(res ReadResult) {
				_ = tx.TrySend(res)
				tx.Close()
			})
		}

		res, status := s.pending.Poll(w)
		if status == Pending {
			return nil, Pending
		}
		s.pending = nil

		switch {
		case status == Ready && res.Err != nil:
			s.finish(Failed, res.Err)
		case status != Ready || res.Done:
			s.finish(Closed, nil)
		case len(res.Chunk) != 0:
			return res.Chunk, Ready
		}
	}
}

func (s *ReadStream) finish(status Status, err error) {
	s.terminal = status
	s.err = err
	if err != nil {
		s.logger.Debug().
			Err(err).
			Log(`read stream: source failed`)
	}
	s.release()
}

func (s *ReadStream) release() {
	if s.reader == nil || s.released {
		return
	}
	s.released = true
	s.reader.ReleaseLock()
	s.logger.Debug().Log(`read stream: reader released`)
}
