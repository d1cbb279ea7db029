// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"github.com/eapache/queue"
)

// localLock is the single-goroutine Mutex strategy. A release with waiters
// hands the lock directly to the front waiter, so no later TryLock can
// overtake it.
type localLock struct {
	waiters *queue.Queue
	locked  bool
}

func newLocalLock() *localLock {
	return &localLock{waiters: queue.New()}
}

func (l *localLock) tryLock() bool {
	if l.locked {
		return false
	}
	l.locked = true
	return true
}

func (l *localLock) poll(wt *lockWaiter, w Waker) bool {
	if wt.granted {
		wt.granted = false
		return true
	}
	if l.tryLock() {
		return true
	}
	wt.waker = w
	if !wt.inQueue {
		wt.inQueue = true
		l.waiters.Add(wt)
	}
	return false
}

func (l *localLock) unlock() {
	for l.waiters.Length() > 0 {
		wt := l.waiters.Remove().(*lockWaiter)
		wt.inQueue = false
		if wt.abandon {
			continue
		}
		// stays locked, ownership moves to wt
		wt.granted = true
		if w := wt.waker; w != nil {
			w.Wake()
		}
		return
	}
	l.locked = false
}

func (l *localLock) cancel(wt *lockWaiter) {
	switch {
	case wt.granted:
		wt.granted = false
		l.unlock()
	case wt.inQueue:
		wt.abandon = true
	}
	wt.waker = nil
}
