// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"golang.org/x/sys/cpu"
)

// atomicLock is the cross-goroutine Mutex strategy: a CAS flag plus a
// lock-free waiter stack.
//
// Releases store the flag before popping, and waiters push before their
// final CAS attempt, so a waiter either acquires, or is visible to the
// release that frees the lock.
type atomicLock struct { // betteralign:ignore
	_      cpu.CacheLinePad
	locked atomix.Uint64
	_      cpu.CacheLinePad
	head   atomic.Pointer[lockWaiter]
}

func (l *atomicLock) tryLock() bool {
	return l.locked.CompareAndSwapAcqRel(0, 1)
}

func (l *atomicLock) poll(wt *lockWaiter, w Waker) bool {
	if l.tryLock() {
		wt.cancelled.StoreRelease(true)
		return true
	}
	wt.shared.register(w)
	if wt.queued.CompareAndSwapAcqRel(0, 1) {
		l.push(wt)
	}
	if l.tryLock() {
		// still on the stack, the next pop skips it
		wt.cancelled.StoreRelease(true)
		return true
	}
	return false
}

func (l *atomicLock) unlock() {
	l.locked.StoreRelease(0)
	l.wakeOne()
}

func (l *atomicLock) cancel(wt *lockWaiter) {
	wt.cancelled.StoreRelease(true)
	wt.shared.clear()
	// wt may have been the one woken by the last release
	if l.locked.LoadAcquire() == 0 {
		l.wakeOne()
	}
}

func (l *atomicLock) push(wt *lockWaiter) {
	sw := spin.Wait{}
	for {
		head := l.head.Load()
		wt.next = head
		if l.head.CompareAndSwap(head, wt) {
			return
		}
		sw.Once()
	}
}

// wakeOne detaches the whole stack, wakes the oldest live waiter, and
// pushes the remaining live waiters back in their original order. Detaching
// with a swap keeps concurrent releases from racing on individual nodes.
func (l *atomicLock) wakeOne() {
	var live []*lockWaiter // newest first
	for n := l.head.Swap(nil); n != nil; {
		next := n.next
		n.next = nil
		if n.cancelled.LoadAcquire() {
			n.queued.StoreRelease(0)
		} else {
			live = append(live, n)
		}
		n = next
	}
	if len(live) == 0 {
		return
	}
	chosen := live[len(live)-1]
	chosen.queued.StoreRelease(0)
	for i := len(live) - 2; i >= 0; i-- {
		l.push(live[i])
	}
	chosen.shared.wake()
}
