// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package hostloop provides an event loop that implements
// [hostbridge.Host].
//
// # Architecture
//
// A [Loop] owns one goroutine (the one that calls [Loop.Run]). Tasks
// submitted with [Loop.Submit], timer callbacks and event listeners all run
// on it, one at a time. Each tick runs a bounded batch of tasks (see
// [WithTickBudget]), then every due timer, then blocks until more work
// arrives or the next timer is due.
//
// # Driving Futures
//
// [Spawn] polls a [hostbridge.Future] on the loop, re-polling whenever it
// is woken. Because everything runs on the loop goroutine,
// [hostbridge.ModeLocal] primitives can be used freely by spawned futures
// and the callbacks feeding them.
//
//	loop, _ := hostloop.New()
//	go loop.Run(ctx)
//
//	rx, _ := hostloop.Spawn(loop, hostbridge.FutureFunc[int](func(w hostbridge.Waker) (int, hostbridge.Status) {
//	    // ...
//	}))
//	v, status, err := hostbridge.Wait(ctx, rx)
//
// # Shutdown
//
// [Loop.Shutdown] runs every queued task, then discards pending timers and
// listeners. Cancelling the context passed to Run has the same effect.
package hostloop
