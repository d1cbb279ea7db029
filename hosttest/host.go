// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package hosttest provides a manually driven [hostbridge.Host], and other
// helpers for testing code built on hostbridge.
package hosttest

import (
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/go-hostbridge"
)

// MinInterval is the smallest interval period, smaller periods are raised
// to it.
const MinInterval = time.Millisecond

// Host is a fake [hostbridge.Host] with a manual clock. Timers fire only
// during Advance, and listeners only during Dispatch, both synchronously on
// the calling goroutine. The zero value is not usable, see New.
type Host struct {
	err       error
	timers    map[hostbridge.TimerID]*timer
	cleared   map[hostbridge.TimerID]struct{}
	listeners map[string][]*listener
	byID      map[hostbridge.ListenerID]*listener
	now       time.Duration
	nextTimer uint64
	nextID    uint64
	mu        sync.Mutex
}

type timer struct {
	fn     func()
	id     hostbridge.TimerID
	when   time.Duration
	period time.Duration
}

type listener struct {
	fn      func(payload any)
	event   string
	id      hostbridge.ListenerID
	removed bool
}

var _ hostbridge.Host = (*Host)(nil)

// New returns a host with its clock at zero.
func New() *Host {
	return &Host{
		timers:    make(map[hostbridge.TimerID]*timer),
		cleared:   make(map[hostbridge.TimerID]struct{}),
		listeners: make(map[string][]*listener),
		byID:      make(map[hostbridge.ListenerID]*listener),
	}
}

// Fail makes every subsequent registration fail with err. A nil err
// restores normal behavior.
func (h *Host) Fail(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

// Now returns the time elapsed on the manual clock.
func (h *Host) Now() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.now
}

// SetTimeout implements [hostbridge.Host].
func (h *Host) SetTimeout(delay time.Duration, fn func()) (hostbridge.TimerID, error) {
	return h.addTimer(delay, 0, fn)
}

// SetInterval implements [hostbridge.Host].
func (h *Host) SetInterval(period time.Duration, fn func()) (hostbridge.TimerID, error) {
	if period < MinInterval {
		period = MinInterval
	}
	return h.addTimer(period, period, fn)
}

func (h *Host) addTimer(delay, period time.Duration, fn func()) (hostbridge.TimerID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return 0, h.err
	}
	if delay > hostbridge.MaxTimerDelay {
		return 0, &hostbridge.RangeError{
			Message: fmt.Sprintf("hosttest: timer delay %s exceeds %s", delay, hostbridge.MaxTimerDelay),
			Cause:   hostbridge.ErrTimerOverflow,
		}
	}
	if delay < 0 {
		delay = 0
	}
	h.nextTimer++
	t := &timer{
		id:     hostbridge.TimerID(h.nextTimer),
		when:   h.now + delay,
		period: period,
		fn:     fn,
	}
	h.timers[t.id] = t
	return t.id, nil
}

// ClearTimer implements [hostbridge.Host]. Clearing a known id, armed or
// not, is recorded for [Host.Cleared].
func (h *Host) ClearTimer(id hostbridge.TimerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if id == 0 || uint64(id) > h.nextTimer {
		return
	}
	delete(h.timers, id)
	h.cleared[id] = struct{}{}
}

// Cleared reports whether ClearTimer was called for id.
func (h *Host) Cleared(id hostbridge.TimerID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.cleared[id]
	return ok
}

// PendingTimers returns the number of armed timers.
func (h *Host) PendingTimers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.timers)
}

// Advance moves the clock forward by d, firing due timers in deadline
// order (ties in registration order), and returns how many callbacks ran.
// Intervals fire once per elapsed period. Callbacks run without internal
// locks held, and may register or clear timers.
func (h *Host) Advance(d time.Duration) int {
	var fired int
	h.mu.Lock()
	target := h.now + d
	for {
		t := h.nextDue(target)
		if t == nil {
			break
		}
		h.now = t.when
		if t.period > 0 {
			t.when += t.period
		} else {
			delete(h.timers, t.id)
		}
		fn := t.fn
		h.mu.Unlock()
		fn()
		fired++
		h.mu.Lock()
	}
	h.now = target
	h.mu.Unlock()
	return fired
}

func (h *Host) nextDue(target time.Duration) *timer {
	var next *timer
	for _, t := range h.timers {
		if t.when > target {
			continue
		}
		if next == nil || t.when < next.when || (t.when == next.when && t.id < next.id) {
			next = t
		}
	}
	return next
}

// AddListener implements [hostbridge.Host].
func (h *Host) AddListener(event string, fn func(payload any)) (hostbridge.ListenerID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return 0, h.err
	}
	h.nextID++
	entry := &listener{
		id:    hostbridge.ListenerID(h.nextID),
		event: event,
		fn:    fn,
	}
	h.listeners[event] = append(h.listeners[event], entry)
	h.byID[entry.id] = entry
	return entry.id, nil
}

// RemoveListener implements [hostbridge.Host].
func (h *Host) RemoveListener(id hostbridge.ListenerID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry, ok := h.byID[id]
	if !ok {
		return false
	}
	delete(h.byID, id)
	entry.removed = true
	h.listeners[entry.event] = slices.DeleteFunc(slices.Clone(h.listeners[entry.event]), func(e *listener) bool {
		return e == entry
	})
	if len(h.listeners[entry.event]) == 0 {
		delete(h.listeners, entry.event)
	}
	return true
}

// ListenerCount returns the number of listeners registered for event.
func (h *Host) ListenerCount(event string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.listeners[event])
}

// Dispatch calls every listener of event with payload, synchronously, and
// returns how many were called. Listeners removed mid-dispatch are skipped.
func (h *Host) Dispatch(event string, payload any) int {
	h.mu.Lock()
	entries := h.listeners[event]
	h.mu.Unlock()

	var called int
	for _, entry := range entries {
		h.mu.Lock()
		removed := entry.removed
		h.mu.Unlock()
		if removed {
			continue
		}
		entry.fn(payload)
		called++
	}
	return called
}

// Waker is a [hostbridge.Waker] that counts wakes.
type Waker struct {
	n atomic.Int64
}

// Wake implements [hostbridge.Waker].
func (w *Waker) Wake() {
	w.n.Add(1)
}

// Count returns the number of wakes so far.
func (w *Waker) Count() int {
	return int(w.n.Load())
}

// Reset zeroes the count, returning the previous value.
func (w *Waker) Reset() int {
	return int(w.n.Swap(0))
}
