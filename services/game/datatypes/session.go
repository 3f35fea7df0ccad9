// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the shared data model for the game service.
//
// A Session is the unit of coordination: one agent, one or more operators,
// a countdown, and a bounded log of operator actions. Sessions are stored
// as JSON records in the session store, keyed by their 6-character code.
package datatypes

import "time"

// Difficulty selects the countdown length for a new session.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "Easy"
	DifficultyMedium Difficulty = "Medium"
	DifficultyHard   Difficulty = "Hard"
)

// Countdown lengths in seconds per difficulty tier.
const (
	MaxTimeEasy   = 900
	MaxTimeMedium = 600
	MaxTimeHard   = 60
)

// MaxTimeFor returns the countdown length for a difficulty tier.
// Unknown tiers fall back to Easy.
func MaxTimeFor(d Difficulty) int {
	switch d {
	case DifficultyMedium:
		return MaxTimeMedium
	case DifficultyHard:
		return MaxTimeHard
	default:
		return MaxTimeEasy
	}
}

// PlayerRole distinguishes the agent from operators.
type PlayerRole string

const (
	RoleAgent    PlayerRole = "agent"
	RoleOperator PlayerRole = "operator"
)

// Player is a session participant. ID equals the owning connection's id.
type Player struct {
	ID    string     `json:"id"`
	Role  PlayerRole `json:"role"`
	Label string     `json:"label"` // "agent", "operator 1", "operator 2", ...
}

// OperatorAction is one entry in a session's bounded action history.
//
// Data is an opaque payload; navigation-class actions commonly carry
// "path", "url" or "state" keys.
type OperatorAction struct {
	OperatorID string         `json:"operatorId"`
	Action     string         `json:"action"`
	Timestamp  time.Time      `json:"timestamp"`
	Data       map[string]any `json:"data,omitempty"`
}

// MaxOperatorActions bounds the per-session action history. Oldest
// entries are evicted first.
const MaxOperatorActions = 100

// Close reasons surfaced to clients when a session loses viability.
// Kept in French to match the client-facing copy.
const (
	ReasonAgentLeft     = "L'agent a quitté la session"
	ReasonOperatorsLeft = "Tous les opérateurs ont quitté la session"
	ReasonTimeExpired   = "Le temps est écoulé !"
)

// Session is the shared mutable state for one game.
//
// # Invariants
//
//   - Code uniquely identifies exactly one live session.
//   - At most one agent is present at any instant.
//   - RemainingTime stays within [0, MaxTime].
//   - TimerStarted is true only while a countdown loop is ticking for Code.
//   - A session with no agent or no operators must not persist past the
//     event that made it so; see Valid.
type Session struct {
	ID              string           `json:"id"`
	Code            string           `json:"code"`
	AgentID         string           `json:"agentId"`
	MaxTime         int              `json:"maxTime"`
	RemainingTime   int              `json:"remainingTime"`
	TimerStarted    bool             `json:"timerStarted"`
	CreatedAt       time.Time        `json:"createdAt"`
	Started         bool             `json:"started"`
	Players         []Player         `json:"players"`
	OperatorActions []OperatorAction `json:"operatorActions,omitempty"`
}

// FindPlayer returns the player with the given id, or nil.
func (s *Session) FindPlayer(id string) *Player {
	for i := range s.Players {
		if s.Players[i].ID == id {
			return &s.Players[i]
		}
	}
	return nil
}

// HasAgent reports whether any agent is present.
func (s *Session) HasAgent() bool {
	for _, p := range s.Players {
		if p.Role == RoleAgent {
			return true
		}
	}
	return false
}

// Operators returns the operators in join order.
func (s *Session) Operators() []Player {
	var ops []Player
	for _, p := range s.Players {
		if p.Role == RoleOperator {
			ops = append(ops, p)
		}
	}
	return ops
}

// Valid reports whether the session meets the minimum viability
// requirement of at least one agent and one operator. When invalid, the
// second return value carries the client-facing close reason.
func (s *Session) Valid() (bool, string) {
	hasAgent := s.HasAgent()
	hasOperator := len(s.Operators()) > 0
	if hasAgent && hasOperator {
		return true, ""
	}
	if !hasAgent {
		return false, ReasonAgentLeft
	}
	return false, ReasonOperatorsLeft
}
