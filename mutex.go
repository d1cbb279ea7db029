// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostbridge

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// lockImpl is a Mutex backing strategy, see localLock and atomicLock.
type lockImpl interface {
	tryLock() bool
	// poll attempts to acquire on behalf of wt, registering w if it cannot.
	poll(wt *lockWaiter, w Waker) bool
	// unlock releases the lock, waking one waiter if any exist.
	unlock()
	// cancel abandons wt, passing the lock on if it was handed to wt.
	cancel(wt *lockWaiter)
}

// lockWaiter is one pending [LockFuture].
type lockWaiter struct {
	next      *lockWaiter
	waker     Waker // local only
	shared    atomicWaker
	queued    atomix.Uint64
	cancelled atomix.Bool

	// local only
	inQueue bool
	granted bool
	abandon bool
}

// Mutex provides mutual exclusion that suspends rather than blocks.
//
// With [ModeLocal], waiters are granted the lock in strict FIFO order. With
// [ModeAtomic], the waiter list is lock-free and fairness is best-effort.
// Both guarantee at most one outstanding guard, and that every release
// wakes one waiter when any exist.
type Mutex[T any] struct {
	impl  lockImpl
	value T
}

// NewMutex creates a Mutex protecting value.
func NewMutex[T any](value T, opts ...Option) *Mutex[T] {
	cfg := resolveOptions(opts)
	m := &Mutex[T]{value: value}
	if cfg.mode == ModeAtomic {
		m.impl = &atomicLock{}
	} else {
		m.impl = newLocalLock()
	}
	return m
}

// TryLock acquires the lock if it is free, without suspending.
func (m *Mutex[T]) TryLock() (*MutexGuard[T], bool) {
	if !m.impl.tryLock() {
		return nil, false
	}
	return &MutexGuard[T]{m: m}, true
}

// Lock returns a [Future] that resolves with a guard once the lock is
// acquired.
func (m *Mutex[T]) Lock() *LockFuture[T] {
	return &LockFuture[T]{m: m, wt: &lockWaiter{}}
}

// MutexGuard grants access to the protected value until Unlock.
type MutexGuard[T any] struct {
	m        *Mutex[T]
	released atomic.Bool
}

// Value returns a pointer to the protected value. It must not be used after
// Unlock.
func (g *MutexGuard[T]) Value() *T {
	return &g.m.value
}

// Unlock releases the lock. It is idempotent.
func (g *MutexGuard[T]) Unlock() {
	if g.released.CompareAndSwap(false, true) {
		g.m.impl.unlock()
	}
}

// LockFuture is a pending [Mutex.Lock].
type LockFuture[T any] struct {
	m    *Mutex[T]
	wt   *lockWaiter
	done bool
}

// Poll implements [Future]. It panics if polled after resolving or being
// cancelled.
func (f *LockFuture[T]) Poll(w Waker) (*MutexGuard[T], Status) {
	if f.done {
		panic("hostbridge: lock future polled after completion")
	}
	if f.m.impl.poll(f.wt, w) {
		f.done = true
		return &MutexGuard[T]{m: f.m}, Ready
	}
	return nil, Pending
}

// Cancel abandons the lock attempt. If the lock had already been handed to
// this future, it is passed on. Cancel is a no-op once Poll has resolved.
func (f *LockFuture[T]) Cancel() {
	if f.done {
		return
	}
	f.done = true
	f.m.impl.cancel(f.wt)
}
