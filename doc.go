// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

// Package hostbridge turns callback-driven host events into pollable futures
// and streams, with cooperative cancellation.
//
// # Architecture
//
// A host environment (see [Host]) owns the event loop and invokes registered
// callbacks zero or more times. Each bridge in this package registers exactly
// one host callback and routes what it receives through a small shared state:
//
//   - [NewLocalChannel]: unbounded multi-producer, single-consumer queue, for
//     callbacks that fire repeatedly (intervals, event listeners)
//   - [NewOneShot]: single value transfer, for callbacks that fire once
//     (timeouts, a completed read or write request)
//   - [NewAbortHandle]: shared cancellation flag, composable with any
//     [Future] via [NewAbortable]
//   - [NewMutex]: mutual exclusion that suspends instead of blocking
//
// Built on those are the host adapters: [Interval], [Timeout], [Sleep],
// [Listen], [Once], [ReadStream], [WriteStream] and [PipeTo].
//
// # Polling
//
// Futures and streams are polled with a [Waker]. A poll that cannot complete
// returns [Pending] and stores the waker; the bridge wakes it when its state
// changes. Nothing in this package blocks, except [Wait] and [Collect], which
// exist for callers that live outside the host loop.
//
// # Execution Modes
//
// The One-Shot Channel and the Mutex each have two interchangeable backing
// strategies, selected by [Mode]:
//
//   - [ModeLocal]: plain fields, for use from a single goroutine (the host
//     loop goroutine, typically)
//   - [ModeAtomic]: atomic state machines, safe across goroutines
//
// [DefaultMode] is [ModeLocal] unless the module is built with the
// hostbridge_atomic build tag. Callers never need to know which strategy is
// active.
//
// # Lifetimes
//
// Every handle has an explicit, idempotent Close (or Release, for
// [WriteStream]), which synchronously releases its host-side registration
// (timer, listener, reader or writer lock). Nothing is deferred to a
// finalizer.
package hostbridge
