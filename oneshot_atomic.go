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

// One-Shot states (multi-goroutine variant).
//
//	oneShotUninit  → oneShotWorking  [send begins writing the value]
//	oneShotWorking → oneShotInit     [value published]
//	oneShotInit    → oneShotTaken    [receiver consumed the value]
//	oneShotUninit  → oneShotTaken    [last sender dropped, no value]
//
// oneShotTaken is terminal. The receiver distinguishes the two ways into it
// by which transition it performed itself.
const (
	oneShotUninit uint64 = iota
	oneShotWorking
	oneShotInit
	oneShotTaken
)

// atomicOneShot is the lock-free One-Shot core.
type atomicOneShot[T any] struct { // betteralign:ignore
	_       cpu.CacheLinePad
	state   atomix.Uint64
	_       cpu.CacheLinePad
	senders atomix.Int64
	gone    atomix.Bool
	waker   atomicWaker
	value   T
}

func newAtomicOneShot[T any]() *atomicOneShot[T] {
	x := &atomicOneShot[T]{}
	x.senders.StoreRelaxed(1)
	return x
}

func (x *atomicOneShot[T]) send(v T) error {
	if x.gone.LoadAcquire() {
		return ErrClosed
	}
	if !x.state.CompareAndSwapAcqRel(oneShotUninit, oneShotWorking) {
		return ErrAlreadySent
	}
	x.value = v
	x.state.CompareAndSwapAcqRel(oneShotWorking, oneShotInit)
	x.waker.wake()
	return nil
}

func (x *atomicOneShot[T]) addSender() {
	x.senders.AddAcqRel(1)
}

func (x *atomicOneShot[T]) dropSender() {
	if x.senders.AddAcqRel(-1) != 0 {
		return
	}
	if x.state.CompareAndSwapAcqRel(oneShotUninit, oneShotTaken) {
		x.waker.wake()
	}
}

func (x *atomicOneShot[T]) poll(w Waker) (T, Status) {
	var zero T
	// register before reading the state, so a publish racing with this
	// poll always finds the waker
	x.waker.register(w)
	sw := spin.Wait{}
	for {
		switch x.state.LoadAcquire() {
		case oneShotUninit:
			return zero, Pending
		case oneShotWorking:
			// bounded: the sender is between two stores
			sw.Once()
		case oneShotInit:
			if x.state.CompareAndSwapAcqRel(oneShotInit, oneShotTaken) {
				x.waker.clear()
				v := x.value
				x.value = zero
				return v, Ready
			}
		default:
			x.waker.clear()
			return zero, Closed
		}
	}
}

func (x *atomicOneShot[T]) closeReceiver() {
	x.gone.StoreRelease(true)
	x.state.StoreRelease(oneShotTaken)
	x.waker.clear()
}

// atomicWaker holds at most one waker. A wake consumes it.
type atomicWaker struct {
	p atomic.Pointer[wakerCell]
}

type wakerCell struct {
	w Waker
}

func (a *atomicWaker) register(w Waker) {
	a.p.Store(&wakerCell{w: w})
}

func (a *atomicWaker) clear() {
	a.p.Store(nil)
}

func (a *atomicWaker) wake() {
	if c := a.p.Swap(nil); c != nil && c.w != nil {
		c.w.Wake()
	}
}
