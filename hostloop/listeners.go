// Copyright 2026 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package hostloop

import (
	"code.hybscloud.com/atomix"
	"github.com/joeycumines/go-hostbridge"
)

// listener is a registered event callback.
type listener struct {
	fn      func(payload any)
	event   string
	id      hostbridge.ListenerID
	removed atomix.Bool
}

// AddListener implements [hostbridge.Host]. Listeners for one event run in
// registration order.
func (l *Loop) AddListener(event string, fn func(payload any)) (hostbridge.ListenerID, error) {
	if fn == nil {
		return 0, ErrNilCallback
	}
	if !l.state.CanAcceptWork() {
		return 0, ErrLoopTerminated
	}

	l.listenerMu.Lock()
	defer l.listenerMu.Unlock()
	l.nextListenerID++
	entry := &listener{
		id:    hostbridge.ListenerID(l.nextListenerID),
		event: event,
		fn:    fn,
	}
	l.listeners[event] = append(l.listeners[event], entry)
	l.byID[entry.id] = entry
	return entry.id, nil
}

// RemoveListener implements [hostbridge.Host]. A listener removed during a
// dispatch is not called by the remainder of that dispatch.
func (l *Loop) RemoveListener(id hostbridge.ListenerID) bool {
	l.listenerMu.Lock()
	defer l.listenerMu.Unlock()
	entry, ok := l.byID[id]
	if !ok {
		return false
	}
	delete(l.byID, id)
	entry.removed.Store(true)

	entries := l.listeners[entry.event]
	for i, e := range entries {
		if e == entry {
			// copy, a dispatch may be iterating the old slice
			next := make([]*listener, 0, len(entries)-1)
			next = append(next, entries[:i]...)
			next = append(next, entries[i+1:]...)
			if len(next) == 0 {
				delete(l.listeners, entry.event)
			} else {
				l.listeners[entry.event] = next
			}
			break
		}
	}
	return true
}

// ListenerCount returns the number of listeners registered for event.
func (l *Loop) ListenerCount(event string) int {
	l.listenerMu.RLock()
	defer l.listenerMu.RUnlock()
	return len(l.listeners[event])
}

// Dispatch queues delivery of payload to every listener of event, on the
// loop goroutine.
func (l *Loop) Dispatch(event string, payload any) error {
	return l.Submit(func() {
		l.dispatch(event, payload)
	})
}

func (l *Loop) dispatch(event string, payload any) {
	l.listenerMu.RLock()
	entries := l.listeners[event]
	l.listenerMu.RUnlock()

	for _, entry := range entries {
		if entry.removed.Load() {
			continue
		}
		l.safeExecute(func() {
			entry.fn(payload)
		})
	}
}
