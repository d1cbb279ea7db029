// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

const (
	localEmpty uint8 = iota
	localFull
	localTaken
)

// localOneShot is the single-goroutine One-Shot core.
type localOneShot[T any] struct {
	value        T
	waker        Waker
	senders      int
	state        uint8
	sent         bool
	receiverGone bool
}

func newLocalOneShot[T any]() *localOneShot[T] {
	return &localOneShot[T]{senders: 1}
}

func (x *localOneShot[T]) send(v T) error {
	if x.receiverGone {
		return ErrClosed
	}
	if x.sent {
		return ErrAlreadySent
	}
	x.sent = true
	x.value = v
	x.state = localFull
	x.wake()
	return nil
}

func (x *localOneShot[T]) addSender() {
	x.senders++
}

func (x *localOneShot[T]) dropSender() {
	x.senders--
	if x.senders == 0 && !x.sent {
		x.wake()
	}
}

func (x *localOneShot[T]) poll(w Waker) (T, Status) {
	var zero T
	switch {
	case x.state == localFull:
		v := x.value
		x.value = zero
		x.state = localTaken
		return v, Ready
	case x.state == localTaken, x.senders == 0:
		x.state = localTaken
		return zero, Closed
	default:
		x.waker = w
		return zero, Pending
	}
}

func (x *localOneShot[T]) closeReceiver() {
	var zero T
	x.receiverGone = true
	x.state = localTaken
	x.value = zero
	x.waker = nil
}

func (x *localOneShot[T]) wake() {
	if w := x.waker; w != nil {
		x.waker = nil
		w.Wake()
	}
}
