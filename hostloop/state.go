// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostloop

import (
	"code.hybscloud.com/atomix"
	"golang.org/x/sys/cpu"
)

// LoopState represents the current state of the loop.
//
//	StateAwake → StateRunning             [Run]
//	StateAwake → StateTerminated          [Shutdown before Run]
//	StateRunning → StateTerminating       [Shutdown, or Run's ctx done]
//	StateTerminating → StateTerminated    [queued tasks drained]
//	StateTerminated → (terminal)
type LoopState uint64

const (
	// StateAwake indicates the loop has been created but not started.
	StateAwake LoopState = iota
	// StateRunning indicates the loop is processing tasks and timers.
	StateRunning
	// StateTerminating indicates shutdown has been requested but not
	// completed.
	StateTerminating
	// StateTerminated indicates the loop has stopped.
	StateTerminated
)

// String returns a human-readable representation of the state.
func (s LoopState) String() string {
	switch s {
	case StateAwake:
		return "Awake"
	case StateRunning:
		return "Running"
	case StateTerminating:
		return "Terminating"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free state machine with cache-line padding.
type fastState struct { // betteralign:ignore
	_ cpu.CacheLinePad
	v atomix.Uint64
	_ cpu.CacheLinePad
}

func (s *fastState) Load() LoopState {
	return LoopState(s.v.LoadAcquire())
}

// Store is for irreversible states only (Terminated).
func (s *fastState) Store(state LoopState) {
	s.v.StoreRelease(uint64(state))
}

func (s *fastState) TryTransition(from, to LoopState) bool {
	return s.v.CompareAndSwapAcqRel(uint64(from), uint64(to))
}

func (s *fastState) CanAcceptWork() bool {
	return s.Load() != StateTerminated
}
