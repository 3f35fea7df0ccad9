// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package timer runs one independent countdown per active session.
//
// The Registry maps session codes to live countdown loops. Lifecycle:
// insert on Start, remove on Stop, expiry, or when the session loses
// viability mid-tick. Other components cancel countdowns through the
// Registry; nothing reaches into a loop directly.
//
// Each loop exclusively owns its in-memory remaining-time counter. The
// persisted value in the session store is updated through the Persist
// callback once per tick.
package timer

import (
	"errors"
	"sync"
	"time"
)

// ErrAlreadyRunning is returned when a countdown already exists for a
// session code. At most one loop may run per code.
var ErrAlreadyRunning = errors.New("timer already running for session")

// DefaultInterval is the production tick interval.
const DefaultInterval = time.Second

// Callbacks connects a countdown loop to the rest of the system. All
// callbacks are invoked from the loop goroutine.
type Callbacks struct {
	// ShouldContinue re-validates the session before each decrement.
	// Returning false terminates the loop silently; the loop
	// deregisters itself without further mutation.
	ShouldContinue func(code string) bool

	// Persist writes the new remaining time to the session store. The
	// store-side write honors the session's timer flag, so a stop or
	// expiry that landed elsewhere since the last tick is respected.
	Persist func(code string, remaining int)

	// Tick broadcasts the new remaining time to the session's clients.
	Tick func(code string, remaining int)

	// Expired fires once when the countdown reaches zero, after the
	// zeroed state has been persisted.
	Expired func(code string)
}

// countdown is the cancellation handle for one loop.
type countdown struct {
	stopCh chan struct{}
	doneCh chan struct{}
}

// Registry tracks the live countdown loops by session code.
//
// # Thread Safety
//
// Safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	timers   map[string]*countdown
	interval time.Duration
}

// NewRegistry creates a registry ticking at the given interval. An
// interval of zero or below falls back to DefaultInterval; tests pass a
// short interval to run countdowns quickly.
func NewRegistry(interval time.Duration) *Registry {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Registry{
		timers:   make(map[string]*countdown),
		interval: interval,
	}
}

// Start schedules a countdown for a session code.
//
// # Description
//
// Registers a loop and begins ticking once per interval. Each tick
// re-validates the session, decrements the in-memory counter, persists
// and broadcasts the new value, and fires Expired at zero. The initial
// remaining value is broadcast immediately, before the first tick.
//
// # Inputs
//
//   - code: Session code. Must not already have a live loop.
//   - seconds: Starting value of the countdown.
//   - cb: Loop callbacks. ShouldContinue, Persist and Tick must be set.
//
// # Outputs
//
//   - error: ErrAlreadyRunning if a loop exists for code.
func (r *Registry) Start(code string, seconds int, cb Callbacks) error {
	r.mu.Lock()
	if _, exists := r.timers[code]; exists {
		r.mu.Unlock()
		return ErrAlreadyRunning
	}
	c := &countdown{
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
	r.timers[code] = c
	r.mu.Unlock()

	go r.run(code, seconds, cb, c)
	return nil
}

// Stop cancels the countdown for a code out-of-band.
//
// # Description
//
// Deregisters the loop, signals it to stop, and waits for it to exit.
// The caller performs any zero/persist/broadcast that should accompany
// an explicit stop.
//
// # Outputs
//
//   - bool: True if a live loop was cancelled, false if none existed.
func (r *Registry) Stop(code string) bool {
	r.mu.Lock()
	c, exists := r.timers[code]
	if exists {
		delete(r.timers, code)
	}
	r.mu.Unlock()

	if !exists {
		return false
	}
	close(c.stopCh)
	<-c.doneCh
	return true
}

// Active reports whether a countdown is registered for a code.
func (r *Registry) Active(code string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, exists := r.timers[code]
	return exists
}

// Count returns the number of live countdowns.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// deregister removes the loop's own entry. A no-op when Stop already
// claimed it.
func (r *Registry) deregister(code string, c *countdown) {
	r.mu.Lock()
	if r.timers[code] == c {
		delete(r.timers, code)
	}
	r.mu.Unlock()
}

func (r *Registry) run(code string, seconds int, cb Callbacks, c *countdown) {
	defer close(c.doneCh)

	remaining := seconds
	cb.Tick(code, remaining)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stopCh:
			return
		case <-ticker.C:
			if !cb.ShouldContinue(code) {
				r.deregister(code, c)
				return
			}

			remaining--
			cb.Persist(code, remaining)
			cb.Tick(code, remaining)

			if remaining <= 0 {
				r.deregister(code, c)
				if cb.Expired != nil {
					cb.Expired(code)
				}
				return
			}
		}
	}
}
