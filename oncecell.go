// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"sync"
)

// OnceCell is a value that is set at most once, and can be awaited by any
// number of futures. The zero value is an empty cell, ready to use.
type OnceCell[T any] struct {
	value   T
	waiters map[uint64]Waker
	nextID  uint64
	mu      sync.Mutex
	set     bool
}

// TrySet sets the value, waking every pending [OnceCell.Get] future. It
// fails with a [*SendError] wrapping [ErrAlreadySent] if the cell is
// already set.
func (c *OnceCell[T]) TrySet(v T) error {
	c.mu.Lock()
	if c.set {
		c.mu.Unlock()
		return &SendError[T]{Value: v, Err: ErrAlreadySent}
	}
	c.value = v
	c.set = true
	wakers := make([]Waker, 0, len(c.waiters))
	for _, w := range c.waiters {
		wakers = append(wakers, w)
	}
	c.waiters = nil
	c.mu.Unlock()

	wakeAll(wakers)
	return nil
}

// TryGet returns the value, if set.
func (c *OnceCell[T]) TryGet() (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.set
}

// Get returns a [Future] that resolves once the cell is set. Unlike a
// one-shot receiver, it may be polled again after resolving.
func (c *OnceCell[T]) Get() Future[T] {
	c.mu.Lock()
	c.nextID++
	id := c.nextID
	c.mu.Unlock()
	return FutureFunc[T](func(w Waker) (T, Status) {
		return c.poll(id, w)
	})
}

func (c *OnceCell[T]) poll(id uint64, w Waker) (T, Status) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.set {
		return c.value, Ready
	}
	if c.waiters == nil {
		c.waiters = make(map[uint64]Waker)
	}
	c.waiters[id] = w
	var zero T
	return zero, Pending
}
