// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"fmt"
	"sync/atomic"

	"github.com/joeycumines/logiface"
)

// EventStream delivers every occurrence of a host event, in dispatch order.
// It implements [Stream].
type EventStream[T any] struct {
	host   Host
	rx     *Receiver[T]
	logger *logiface.Logger[logiface.Event]
	event  string
	id     ListenerID
	closed bool
}

// Listen registers exactly one host listener for event, converting each
// payload with convert. A nil convert type-asserts the payload, yielding
// the zero value on mismatch.
func Listen[T any](host Host, event string, convert func(payload any) T, opts ...Option) (*EventStream[T], error) {
	cfg := resolveOptions(opts)
	convert = payloadConverter(convert)

	tx, rx := NewLocalChannel[T]()
	var listenerID atomic.Uint64
	id, err := host.AddListener(event, func(payload any) {
		if err := tx.TrySend(convert(payload)); err != nil {
			tx.Close()
			if id := listenerID.Load(); id != 0 {
				host.RemoveListener(ListenerID(id))
			}
		}
	})
	if err != nil {
		rx.Close()
		return nil, fmt.Errorf("hostbridge: listen %q: %w", event, err)
	}
	listenerID.Store(uint64(id))

	return &EventStream[T]{
		host:   host,
		rx:     rx,
		logger: cfg.logger,
		event:  event,
		id:     id,
	}, nil
}

// PollNext implements [Stream].
func (s *EventStream[T]) PollNext(w Waker) (T, Status) {
	return s.rx.PollNext(w)
}

// Close removes the host listener. It is idempotent.
func (s *EventStream[T]) Close() {
	if s.closed {
		return
	}
	s.closed = true
	removed := s.host.RemoveListener(s.id)
	s.rx.Close()
	s.logger.Debug().
		Str(`event`, s.event).
		Bool(`removed`, removed).
		Log(`listener removed`)
}

// EventFuture resolves with the first occurrence of a host event. It
// implements [Future].
type EventFuture[T any] struct {
	host   Host
	tx     *OneShotSender[T]
	rx     *OneShotReceiver[T]
	id     ListenerID
	closed bool
}

// Once registers a host listener that is removed after its first call.
func Once[T any](host Host, event string, convert func(payload any) T, opts ...Option) (*EventFuture[T], error) {
	convert = payloadConverter(convert)

	tx, rx := NewOneShot[T](opts...)
	var (
		listenerID atomic.Uint64
		fired      atomic.Bool
	)
	id, err := host.AddListener(event, func(payload any) {
		if !fired.CompareAndSwap(false, true) {
			return
		}
		_ = tx.TrySend(convert(payload))
		tx.Close()
		if id := listenerID.Load(); id != 0 {
			host.RemoveListener(ListenerID(id))
		}
	})
	if err != nil {
		tx.Close()
		rx.Close()
		return nil, fmt.Errorf("hostbridge: listen %q: %w", event, err)
	}
	listenerID.Store(uint64(id))
	if fired.Load() {
		// dispatched during AddListener
		host.RemoveListener(id)
	}

	return &EventFuture[T]{
		host: host,
		tx:   tx,
		rx:   rx,
		id:   id,
	}, nil
}

// Poll implements [Future].
func (f *EventFuture[T]) Poll(w Waker) (T, Status) {
	return f.rx.Poll(w)
}

// Close removes the host listener, if it has not fired. It is idempotent.
func (f *EventFuture[T]) Close() {
	if f.closed {
		return
	}
	f.closed = true
	f.host.RemoveListener(f.id)
	f.tx.Close()
	f.rx.Close()
}

func payloadConverter[T any](convert func(payload any) T) func(payload any) T {
	if convert != nil {
		return convert
	}
	return func(payload any) T {
		v, _ := payload.(T)
		return v
	}
}
