// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package session

import (
	"context"
	"time"

	"github.com/jinterlante1206/DefuseLocal/services/game/datatypes"
)

// Action tags with special meaning to the back-navigation detector.
const (
	ActionBack       = "back"
	ActionNavigate   = "navigate"
	ActionGetSession = "getSession"
)

// backNavWindow bounds how far back the detector searches for a
// repeated navigation state.
const backNavWindow = 20

// RecordAction appends an operator action to the session history.
//
// # Description
//
// The entry is stamped with the server clock, the history is trimmed to
// the most recent datatypes.MaxOperatorActions entries (oldest evicted
// first), and the session is persisted.
//
// # Outputs
//
//   - *datatypes.Session: The session including the new entry.
//   - error: ErrNotFound if the code has no record.
func (m *Manager) RecordAction(ctx context.Context, code, operatorID, action string, data map[string]any) (*datatypes.Session, error) {
	return m.Update(ctx, code, func(s *datatypes.Session) {
		s.OperatorActions = append(s.OperatorActions, datatypes.OperatorAction{
			OperatorID: operatorID,
			Action:     action,
			Timestamp:  time.Now(),
			Data:       data,
		})
		if excess := len(s.OperatorActions) - datatypes.MaxOperatorActions; excess > 0 {
			s.OperatorActions = s.OperatorActions[excess:]
		}
	})
}

// OperatorActions returns the session's action history, filtered to a
// single operator when operatorID is non-empty.
func (m *Manager) OperatorActions(ctx context.Context, code, operatorID string) ([]datatypes.OperatorAction, error) {
	session, err := m.store.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if operatorID == "" {
		return session.OperatorActions, nil
	}
	var filtered []datatypes.OperatorAction
	for _, a := range session.OperatorActions {
		if a.OperatorID == operatorID {
			filtered = append(filtered, a)
		}
	}
	return filtered, nil
}

// DetectBackNavigation classifies an operator's most recent action.
//
// # Description
//
// Inspects only the operator's own slice of the session history and
// returns true when one of:
//
//  1. the most recent action is tagged "back"; or
//  2. the most recent action is navigation-class (navigate, getSession)
//     and its state/path/url matches a prior navigation-class action
//     within the last 20 entries (excluding the immediately preceding
//     one), and the immediately preceding entry either is not
//     navigation-class or carries a different state.
//
// This is a best-effort heuristic, not a guarantee. It returns false on
// any ambiguous or insufficient data and never errors on a malformed
// payload.
//
// # Outputs
//
//   - bool: Whether the latest action looks like a back navigation.
//   - error: ErrNotFound if the code has no record.
func (m *Manager) DetectBackNavigation(ctx context.Context, code, operatorID string) (bool, error) {
	session, err := m.store.Get(ctx, code)
	if err != nil {
		return false, err
	}

	var seq []datatypes.OperatorAction
	for _, a := range session.OperatorActions {
		if a.OperatorID == operatorID {
			seq = append(seq, a)
		}
	}
	if len(seq) == 0 {
		return false, nil
	}

	last := seq[len(seq)-1]
	if last.Action == ActionBack {
		return true, nil
	}
	if !isNavigationAction(last.Action) {
		return false, nil
	}

	currentState := navigationState(last.Data)
	if currentState == "" {
		return false, nil
	}

	// Need at least one entry beyond the immediately preceding one to
	// find a prior occurrence of the same state.
	cur := len(seq) - 1
	if cur < 2 {
		return false, nil
	}
	prev := seq[cur-1]

	start := cur - backNavWindow
	if start < 0 {
		start = 0
	}
	matched := false
	for j := cur - 2; j >= start; j-- {
		if isNavigationAction(seq[j].Action) && navigationState(seq[j].Data) == currentState {
			matched = true
			break
		}
	}
	if !matched {
		return false, nil
	}

	// A revisit only counts when the operator did not simply re-request
	// the same page consecutively: either the predecessor was not a
	// navigation at all (out-of-band jump back), or it pointed at a
	// different state (left and returned).
	if !isNavigationAction(prev.Action) {
		return true, nil
	}
	return navigationState(prev.Data) != currentState, nil
}

func isNavigationAction(action string) bool {
	return action == ActionNavigate || action == ActionGetSession
}

// navigationState extracts the page identity from an action payload,
// preferring state over path over url.
func navigationState(data map[string]any) string {
	for _, key := range []string{"state", "path", "url"} {
		if v, ok := data[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
