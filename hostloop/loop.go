// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostloop

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"github.com/eapache/queue"
	"github.com/joeycumines/go-hostbridge"
	"github.com/joeycumines/logiface"
)

// Loop is a single goroutine event loop implementing [hostbridge.Host].
//
// Every task, timer callback and listener runs on the goroutine that
// called Run, one at a time, which is what allows [hostbridge.ModeLocal]
// primitives to be fed from them. Registration methods are safe to call
// from any goroutine.
type Loop struct { // betteralign:ignore
	state     fastState
	tasks     *queue.Queue
	timers    timerHeap
	active    map[hostbridge.TimerID]*timer
	listeners map[string][]*listener
	byID      map[hostbridge.ListenerID]*listener
	logger    *logiface.Logger[logiface.Event]
	wake      chan struct{}
	// loopDone is closed when Run returns
	loopDone        chan struct{}
	stopOnce        sync.Once
	mu              sync.Mutex
	timerMu         sync.Mutex
	listenerMu      sync.RWMutex
	inflight        atomix.Int64
	loopGoroutineID atomix.Uint64
	id              uint64
	nextTimerID     uint64
	nextListenerID  uint64
	tickBudget      int
}

var loopIDCounter atomic.Uint64

var _ hostbridge.Host = (*Loop)(nil)

// New creates a new loop. It does nothing until Run is called.
func New(opts ...LoopOption) (*Loop, error) {
	cfg, err := resolveLoopOptions(opts)
	if err != nil {
		return nil, err
	}
	return &Loop{
		id:         loopIDCounter.Add(1),
		tasks:      queue.New(),
		active:     make(map[hostbridge.TimerID]*timer),
		listeners:  make(map[string][]*listener),
		byID:       make(map[hostbridge.ListenerID]*listener),
		logger:     cfg.logger,
		tickBudget: cfg.tickBudget,
		wake:       make(chan struct{}, 1),
		loopDone:   make(chan struct{}),
	}, nil
}

// Run runs the loop and blocks until it is stopped, via Shutdown or ctx.
//
// To run in a separate goroutine, use: `go loop.Run(ctx)`.
func (l *Loop) Run(ctx context.Context) error {
	if l.isLoopThread() {
		return ErrReentrantRun
	}

	if !l.state.TryTransition(StateAwake, StateRunning) {
		if l.state.Load() == StateTerminated {
			return ErrLoopTerminated
		}
		return ErrLoopAlreadyRunning
	}

	defer close(l.loopDone)

	return l.run(ctx)
}

// Shutdown stops the loop once queued tasks have run. Pending timers are
// discarded. It blocks until termination completes or ctx expires.
func (l *Loop) Shutdown(ctx context.Context) error {
	var result error
	l.stopOnce.Do(func() {
		result = l.shutdownImpl(ctx)
	})
	if result == nil && l.state.Load() != StateTerminated {
		return ErrLoopTerminated
	}
	return result
}

func (l *Loop) shutdownImpl(ctx context.Context) error {
	for {
		current := l.state.Load()
		if current == StateTerminated || current == StateTerminating {
			return ErrLoopTerminated
		}
		if l.state.TryTransition(current, StateTerminating) {
			if current == StateAwake {
				l.state.Store(StateTerminated)
				return nil
			}
			break
		}
	}

	l.signal()

	select {
	case <-l.loopDone:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current state.
func (l *Loop) State() LoopState {
	return l.state.Load()
}

// Submit queues fn to run on the loop. Tasks submitted while the loop is
// terminating still run.
func (l *Loop) Submit(fn func()) error {
	if fn == nil {
		return ErrNilCallback
	}

	// counted before the state check, see shutdown
	l.inflight.Add(1)
	defer l.inflight.Add(-1)

	if l.state.Load() == StateTerminated {
		return ErrLoopTerminated
	}

	l.mu.Lock()
	l.tasks.Add(fn)
	l.mu.Unlock()

	l.signal()
	return nil
}

func (l *Loop) run(ctx context.Context) error {
	l.loopGoroutineID.Store(getGoroutineID())
	defer l.loopGoroutineID.Store(0)

	l.logger.Debug().
		Uint64(`loop`, l.id).
		Log(`loop started`)

	for {
		if err := ctx.Err(); err != nil {
			for {
				current := l.state.Load()
				if current == StateTerminating || l.state.TryTransition(current, StateTerminating) {
					break
				}
			}
			l.shutdown()
			return err
		}

		if l.state.Load() == StateTerminating {
			l.shutdown()
			return nil
		}

		l.tick()
		l.poll(ctx)
	}
}

// tick runs up to tickBudget queued tasks, then every due timer.
func (l *Loop) tick() {
	for i := 0; i < l.tickBudget; i++ {
		fn, ok := l.popTask()
		if !ok {
			break
		}
		l.safeExecute(fn)
	}
	l.runTimers(time.Now())
}

// poll blocks until there is work, or the next timer is due.
func (l *Loop) poll(ctx context.Context) {
	l.mu.Lock()
	queued := l.tasks.Length()
	l.mu.Unlock()
	if queued != 0 || l.state.Load() != StateRunning {
		return
	}

	var timerC <-chan time.Time
	if d, ok := l.nextTimerDelay(time.Now()); ok {
		if d <= 0 {
			return
		}
		t := time.NewTimer(d)
		defer t.Stop()
		timerC = t.C
	}

	select {
	case <-l.wake:
	case <-timerC:
	case <-ctx.Done():
	}
}

func (l *Loop) popTask() (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.tasks.Length() == 0 {
		return nil, false
	}
	return l.tasks.Remove().(func()), true
}

func (l *Loop) drainTasks() (n int) {
	for {
		fn, ok := l.popTask()
		if !ok {
			return n
		}
		n++
		l.safeExecute(fn)
	}
}

// shutdown runs every queued task, then terminates. Submitters that passed
// the state check before Terminated was stored are waited for, so their
// tasks are not lost.
func (l *Loop) shutdown() {
	l.drainTasks()
	l.state.Store(StateTerminated)

	backoff := iox.Backoff{}
	for l.inflight.Load() != 0 {
		backoff.Wait()
	}
	n := l.drainTasks()

	l.timerMu.Lock()
	dropped := len(l.active)
	l.timers = nil
	l.active = make(map[hostbridge.TimerID]*timer)
	l.timerMu.Unlock()

	l.listenerMu.Lock()
	l.listeners = make(map[string][]*listener)
	l.byID = make(map[hostbridge.ListenerID]*listener)
	l.listenerMu.Unlock()

	l.logger.Debug().
		Uint64(`loop`, l.id).
		Int(`late_tasks`, n).
		Int(`dropped_timers`, dropped).
		Log(`loop terminated`)
}

// signal wakes poll. It never blocks.
func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// safeExecute executes fn with panic recovery.
func (l *Loop) safeExecute(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Err().
				Uint64(`loop`, l.id).
				Err(PanicError{Value: r}).
				Log(`callback panicked`)
		}
	}()
	fn()
}

// isLoopThread checks if we're on the loop goroutine.
func (l *Loop) isLoopThread() bool {
	loopID := l.loopGoroutineID.Load()
	if loopID == 0 {
		return false
	}
	return getGoroutineID() == loopID
}

// getGoroutineID returns the current goroutine's ID.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] >= '0' && buf[i] <= '9' {
			id = id*10 + uint64(buf[i]-'0')
		} else {
			break
		}
	}
	return id
}
