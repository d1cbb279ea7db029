// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostloop

import (
	"container/heap"
	"fmt"
	"time"

	"github.com/joeycumines/go-hostbridge"
)

// MinInterval is the smallest period accepted by SetInterval, smaller
// periods are raised to it.
const MinInterval = time.Millisecond

// timer is a scheduled callback. Cancelled timers stay in the heap until
// popped.
type timer struct {
	when      time.Time
	fn        func()
	id        hostbridge.TimerID
	period    time.Duration
	cancelled bool
}

// timerHeap is a min-heap of timers ordered by deadline, then id.
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].when.Equal(h[j].when) {
		return h[i].id < h[j].id
	}
	return h[i].when.Before(h[j].when)
}
func (h timerHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *timerHeap) Push(x any) {
	*h = append(*h, x.(*timer))
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// SetTimeout implements [hostbridge.Host]. Delays above
// [hostbridge.MaxTimerDelay] fail with a [*hostbridge.RangeError].
func (l *Loop) SetTimeout(delay time.Duration, fn func()) (hostbridge.TimerID, error) {
	return l.addTimer(delay, 0, fn)
}

// SetInterval implements [hostbridge.Host]. Periods below [MinInterval]
// are raised to it.
func (l *Loop) SetInterval(period time.Duration, fn func()) (hostbridge.TimerID, error) {
	if period < MinInterval {
		period = MinInterval
	}
	return l.addTimer(period, period, fn)
}

// ClearTimer implements [hostbridge.Host].
func (l *Loop) ClearTimer(id hostbridge.TimerID) {
	_ = l.CancelTimer(id)
}

// CancelTimer cancels a timer, failing with [ErrTimerNotFound] if it is
// unknown, has fired, or was already cancelled.
func (l *Loop) CancelTimer(id hostbridge.TimerID) error {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	t, ok := l.active[id]
	if !ok {
		return ErrTimerNotFound
	}
	t.cancelled = true
	delete(l.active, id)
	return nil
}

// PendingTimers returns the number of armed timers.
func (l *Loop) PendingTimers() int {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	return len(l.active)
}

func (l *Loop) addTimer(delay, period time.Duration, fn func()) (hostbridge.TimerID, error) {
	if fn == nil {
		return 0, ErrNilCallback
	}
	if delay > hostbridge.MaxTimerDelay {
		return 0, &hostbridge.RangeError{
			Message: fmt.Sprintf("hostloop: timer delay %s exceeds %s", delay, hostbridge.MaxTimerDelay),
			Cause:   hostbridge.ErrTimerOverflow,
		}
	}
	if delay < 0 {
		delay = 0
	}
	if !l.state.CanAcceptWork() {
		return 0, ErrLoopTerminated
	}

	l.timerMu.Lock()
	l.nextTimerID++
	t := &timer{
		id:     hostbridge.TimerID(l.nextTimerID),
		when:   time.Now().Add(delay),
		period: period,
		fn:     fn,
	}
	heap.Push(&l.timers, t)
	l.active[t.id] = t
	l.timerMu.Unlock()

	// the deadline poll is waiting on may now be too late
	l.signal()
	return t.id, nil
}

// nextTimerDelay returns the time until the earliest live timer.
func (l *Loop) nextTimerDelay(now time.Time) (time.Duration, bool) {
	l.timerMu.Lock()
	defer l.timerMu.Unlock()
	for len(l.timers) != 0 && l.timers[0].cancelled {
		heap.Pop(&l.timers)
	}
	if len(l.timers) == 0 {
		return 0, false
	}
	return l.timers[0].when.Sub(now), true
}

// runTimers executes all timers due at now. Intervals are re-armed
// relative to now before their callback runs, so a callback may clear its
// own interval.
func (l *Loop) runTimers(now time.Time) {
	for {
		l.timerMu.Lock()
		if len(l.timers) == 0 || l.timers[0].when.After(now) {
			l.timerMu.Unlock()
			return
		}
		t := heap.Pop(&l.timers).(*timer)
		if t.cancelled {
			l.timerMu.Unlock()
			continue
		}
		if t.period > 0 {
			t.when = now.Add(t.period)
			heap.Push(&l.timers, t)
		} else {
			delete(l.active, t.id)
		}
		fn := t.fn
		l.timerMu.Unlock()

		l.safeExecute(fn)
	}
}
