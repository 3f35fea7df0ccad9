// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package session owns the session lifecycle: creation, membership,
// start, timer state, and the bounded operator-action history with its
// back-navigation heuristic.
//
// Every operation is a read-modify-write against the session store.
// Operations on different codes are fully independent; operations on
// the same code are not serialized and race last-writer-wins.
package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jinterlante1206/DefuseLocal/services/game/datatypes"
	"github.com/jinterlante1206/DefuseLocal/services/game/store"
)

// Sentinel errors surfaced to the protocol boundary. The gateway maps
// these onto failure acknowledgements with client-facing messages.
var (
	// ErrNotFound mirrors store.ErrNotFound for callers of this package.
	ErrNotFound = store.ErrNotFound

	// ErrTimerRunning is returned when StartTimer is called on a
	// session whose countdown is already active.
	ErrTimerRunning = errors.New("timer already started")
)

// Manager coordinates session state against the backing store.
//
// # Thread Safety
//
// Safe for concurrent use; all state lives in the store. Concurrent
// mutations of the same session code are last-writer-wins.
type Manager struct {
	store *store.Store
}

// NewManager returns a manager backed by the given store.
func NewManager(st *store.Store) *Manager {
	return &Manager{store: st}
}

// newCode derives a 6-character uppercase session code from a random
// uuid. Uniqueness is statistical; the code space is assumed large
// enough for the live-session population.
func newCode() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return strings.ToUpper(raw[:6])
}

// Create allocates a new session for the given agent.
//
// # Description
//
// Allocates a fresh code, sets MaxTime from the difficulty tier, seeds
// the player list with a single agent, and persists the record.
//
// # Outputs
//
//   - *datatypes.Session: The persisted session.
//   - error: Non-nil only if the backing store is unreachable.
func (m *Manager) Create(ctx context.Context, difficulty datatypes.Difficulty, agentID string) (*datatypes.Session, error) {
	maxTime := datatypes.MaxTimeFor(difficulty)
	session := &datatypes.Session{
		ID:            uuid.New().String(),
		Code:          newCode(),
		AgentID:       agentID,
		MaxTime:       maxTime,
		RemainingTime: maxTime,
		TimerStarted:  false,
		CreatedAt:     time.Now(),
		Started:       false,
		Players:       []datatypes.Player{NewAgentPlayer(agentID)},
	}
	if err := m.store.Put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Get loads a session by code. Returns ErrNotFound when absent.
func (m *Manager) Get(ctx context.Context, code string) (*datatypes.Session, error) {
	return m.store.Get(ctx, code)
}

// Codes lists the codes of every live session.
func (m *Manager) Codes(ctx context.Context) ([]string, error) {
	return m.store.Codes(ctx)
}

// Update applies a mutation to a session and persists the result.
//
// # Description
//
// Loads the record, runs mutate on it, and writes it back. This is the
// shared read-modify-write primitive for every lifecycle operation.
//
// # Outputs
//
//   - *datatypes.Session: The session after mutation.
//   - error: ErrNotFound if the code has no record.
func (m *Manager) Update(ctx context.Context, code string, mutate func(*datatypes.Session)) (*datatypes.Session, error) {
	session, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	mutate(session)
	if err := m.store.Put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Delete removes a session record. Absent codes are a no-op.
func (m *Manager) Delete(ctx context.Context, code string) error {
	return m.store.Delete(ctx, code)
}

// AddPlayer adds a player to a session.
//
// # Description
//
// Idempotent: if the player id is already present the session is
// returned unchanged. Operators are labeled by the count of operators
// present at join time.
//
// # Outputs
//
//   - *datatypes.Session: The session including the player.
//   - error: ErrNotFound if the code has no record.
func (m *Manager) AddPlayer(ctx context.Context, code, playerID string, role datatypes.PlayerRole) (*datatypes.Session, error) {
	session, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if session.FindPlayer(playerID) != nil {
		return session, nil
	}

	var player datatypes.Player
	if role == datatypes.RoleAgent {
		player = NewAgentPlayer(playerID)
	} else {
		player = NewOperatorPlayer(playerID, session.Players)
	}
	session.Players = append(session.Players, player)

	if err := m.store.Put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// RemovePlayer removes a player by id and persists the result.
//
// # Description
//
// Removing an absent id is a no-op. The caller is responsible for the
// viability check on the returned session and for closing it when
// invalid; see datatypes.Session.Valid.
//
// # Outputs
//
//   - *datatypes.Session: The session after removal.
//   - error: ErrNotFound if the code has no record.
func (m *Manager) RemovePlayer(ctx context.Context, code, playerID string) (*datatypes.Session, error) {
	session, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	kept := session.Players[:0]
	for _, p := range session.Players {
		if p.ID != playerID {
			kept = append(kept, p)
		}
	}
	session.Players = kept

	if err := m.store.Put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// Start marks a session as started.
func (m *Manager) Start(ctx context.Context, code string) (*datatypes.Session, error) {
	return m.Update(ctx, code, func(s *datatypes.Session) {
		s.Started = true
	})
}

// StartTimer flips the session's timer flag.
//
// # Description
//
// Fails with ErrTimerRunning if the flag is already set; the caller
// must not schedule a second countdown loop for the same code.
func (m *Manager) StartTimer(ctx context.Context, code string) (*datatypes.Session, error) {
	session, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if session.TimerStarted {
		return nil, ErrTimerRunning
	}
	session.TimerStarted = true
	if err := m.store.Put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// UpdateTimer persists a new remaining-time value.
//
// # Description
//
// The write is skipped when the session's timer flag has been cleared
// since the last tick (a stop or expiry elsewhere is respected). At
// zero or below, the session is zeroed and the flag cleared.
//
// # Outputs
//
//   - *datatypes.Session: The session after the write, or nil when the
//     write was skipped (flag cleared or countdown finished).
//   - error: ErrNotFound if the code has no record.
func (m *Manager) UpdateTimer(ctx context.Context, code string, remaining int) (*datatypes.Session, error) {
	session, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if !session.TimerStarted {
		return nil, nil
	}
	if remaining <= 0 {
		session.TimerStarted = false
		session.RemainingTime = 0
		if err := m.store.Put(ctx, session); err != nil {
			return nil, err
		}
		return nil, nil
	}
	session.RemainingTime = remaining
	if err := m.store.Put(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}
