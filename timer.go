// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/joeycumines/logiface"
)

// MaxTimerDelay is the largest delay or period a host timer accepts: the
// host APIs take a signed 32-bit count of milliseconds.
const MaxTimerDelay = time.Duration(math.MaxInt32) * time.Millisecond

// timerDelay validates d. Negative delays clamp to zero; delays above
// MaxTimerDelay fail rather than truncate.
func timerDelay(d time.Duration) (time.Duration, error) {
	if d < 0 {
		return 0, nil
	}
	if d > MaxTimerDelay {
		return 0, &RangeError{
			Message: fmt.Sprintf("hostbridge: timer delay %s exceeds %s", d, MaxTimerDelay),
			Cause:   ErrTimerOverflow,
		}
	}
	return d, nil
}

// Interval is a repeating host timer whose callback results are delivered,
// in order, through a Local Channel. It implements [Stream].
type Interval[T any] struct {
	host   Host
	rx     *Receiver[T]
	logger *logiface.Logger[logiface.Event]
	id     TimerID
	closed bool
}

// NewInterval registers fn with the host's repeating timer. Each return
// value of fn becomes one item of the stream.
//
// Construction fails with a [*RangeError] wrapping [ErrTimerOverflow] if
// period exceeds [MaxTimerDelay].
func NewInterval[T any](host Host, period time.Duration, fn func() T, opts ...Option) (*Interval[T], error) {
	period, err := timerDelay(period)
	if err != nil {
		return nil, err
	}
	cfg := resolveOptions(opts)

	tx, rx := NewLocalChannel[T]()
	var timerID atomic.Uint64
	id, err := host.SetInterval(period, func() {
		if err := tx.TrySend(fn()); err != nil {
			// receiver gone, stop ticking
			tx.Close()
			if id := timerID.Load(); id != 0 {
				host.ClearTimer(TimerID(id))
			}
		}
	})
	if err != nil {
		rx.Close()
		return nil, fmt.Errorf("hostbridge: set interval: %w", err)
	}
	timerID.Store(uint64(id))

	return &Interval[T]{
		host:   host,
		rx:     rx,
		logger: cfg.logger,
		id:     id,
	}, nil
}

// ID returns the host timer id.
func (i *Interval[T]) ID() TimerID {
	return i.id
}

// PollNext implements [Stream]. It yields [Closed] after Close.
func (i *Interval[T]) PollNext(w Waker) (T, Status) {
	return i.rx.PollNext(w)
}

// Close cancels the host timer and releases the callback. It is
// idempotent.
func (i *Interval[T]) Close() {
	if i.closed {
		return
	}
	i.closed = true
	i.host.ClearTimer(i.id)
	i.rx.Close()
	i.logger.Debug().
		Uint64(`timer`, uint64(i.id)).
		Log(`interval cleared`)
}

// Leak consumes the handle, leaving the host timer running. The returned
// receiver is the only remaining owner: closing it stops the timer at its
// next tick.
func (i *Interval[T]) Leak() *Receiver[T] {
	i.closed = true
	return i.rx
}

// SpawnInterval is [NewInterval] followed by [Interval.Leak].
func SpawnInterval[T any](host Host, period time.Duration, fn func() T, opts ...Option) (*Receiver[T], error) {
	i, err := NewInterval(host, period, fn, opts...)
	if err != nil {
		return nil, err
	}
	return i.Leak(), nil
}

// Timeout is a one-shot host timer whose callback result is delivered
// through a One-Shot Channel. It implements [Future].
type Timeout[T any] struct {
	host   Host
	tx     *OneShotSender[T]
	rx     *OneShotReceiver[T]
	logger *logiface.Logger[logiface.Event]
	id     TimerID
	closed bool
}

// NewTimeout registers fn with the host to run once after delay. The
// One-Shot backing strategy follows [WithMode].
//
// Construction fails with a [*RangeError] wrapping [ErrTimerOverflow] if
// delay exceeds [MaxTimerDelay].
func NewTimeout[T any](host Host, delay time.Duration, fn func() T, opts ...Option) (*Timeout[T], error) {
	delay, err := timerDelay(delay)
	if err != nil {
		return nil, err
	}
	cfg := resolveOptions(opts)

	tx, rx := NewOneShot[T](opts...)
	id, err := host.SetTimeout(delay, func() {
		_ = tx.TrySend(fn())
		tx.Close()
	})
	if err != nil {
		tx.Close()
		rx.Close()
		return nil, fmt.Errorf("hostbridge: set timeout: %w", err)
	}

	return &Timeout[T]{
		host:   host,
		tx:     tx,
		rx:     rx,
		logger: cfg.logger,
		id:     id,
	}, nil
}

// Sleep returns a [Timeout] that resolves after d.
func Sleep(host Host, d time.Duration, opts ...Option) (*Timeout[struct{}], error) {
	return NewTimeout(host, d, func() struct{} { return struct{}{} }, opts...)
}

// ID returns the host timer id.
func (t *Timeout[T]) ID() TimerID {
	return t.id
}

// Poll implements [Future]. After Close, it resolves [Closed].
func (t *Timeout[T]) Poll(w Waker) (T, Status) {
	return t.rx.Poll(w)
}

// Close cancels the host timer and releases the callback. It is
// idempotent.
func (t *Timeout[T]) Close() {
	if t.closed {
		return
	}
	t.closed = true
	t.host.ClearTimer(t.id)
	t.tx.Close()
	t.rx.Close()
	t.logger.Debug().
		Uint64(`timer`, uint64(t.id)).
		Log(`timeout cleared`)
}

// Leak consumes the handle, leaving the host timer armed, and returns the
// receiver that will observe it.
func (t *Timeout[T]) Leak() *OneShotReceiver[T] {
	t.closed = true
	return t.rx
}
