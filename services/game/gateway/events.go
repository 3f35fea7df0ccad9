// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package gateway

import (
	"encoding/json"
	"time"

	"github.com/jinterlante1206/DefuseLocal/services/game/datatypes"
	"github.com/jinterlante1206/DefuseLocal/services/game/distribution"
)

// Inbound event names.
const (
	EventCreateSession      = "createSession"
	EventGetSession         = "getSession"
	EventJoinSession        = "joinSession"
	EventLeaveSession       = "leaveSession"
	EventStartGame          = "startGame"
	EventClearSession       = "clearSession"
	EventStartTimer         = "startTimer"
	EventStopTimer          = "stopTimer"
	EventOperatorAction     = "operatorAction"
	EventBack               = "back"
	EventBackNavigation     = "operatorBackNavigation"
	EventGetOperatorActions = "getOperatorActions"
)

// Outbound event names.
const (
	EventConnected              = "connected"
	EventAck                    = "ack"
	EventSessionCreated         = "sessionCreated"
	EventCurrentSession         = "currentSession"
	EventPlayerJoined           = "playerJoined"
	EventPlayerLeft             = "playerLeft"
	EventGameStarted            = "gameStarted"
	EventSessionCleared         = "sessionCleared"
	EventTimerUpdate            = "timerUpdate"
	EventTimerStopped           = "timerStopped"
	EventGameOver               = "gameOver"
	EventBackNavigationDetected = "operatorBackNavigationDetected"
	EventOperatorActionsHistory = "operatorActionsHistory"
)

// Envelope frames every message in both directions: an event name plus
// an opaque JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Ack is the per-request acknowledgement. Every inbound event receives
// exactly one, carrying at minimum success plus a displayable message
// on failure.
type Ack struct {
	Event         string `json:"event"`
	Success       bool   `json:"success"`
	Message       string `json:"message,omitempty"`
	SessionClosed bool   `json:"sessionClosed,omitempty"`
	Data          any    `json:"data,omitempty"`
}

func ok() Ack {
	return Ack{Success: true}
}

func fail(message string) Ack {
	return Ack{Success: false, Message: message}
}

// Request payloads.

type createSessionRequest struct {
	Difficulty datatypes.Difficulty `json:"difficulty"`
	Role       string               `json:"role,omitempty"`
}

type getSessionRequest struct {
	SessionCode string `json:"sessionCode"`
	CurrentPath string `json:"currentPath,omitempty"`
}

type joinSessionRequest struct {
	SessionCode string `json:"sessionCode"`
	Player      string `json:"player,omitempty"`
}

type codeRequest struct {
	SessionCode string `json:"sessionCode"`
}

type operatorActionRequest struct {
	SessionCode string         `json:"sessionCode"`
	Action      string         `json:"action"`
	Data        map[string]any `json:"data,omitempty"`
}

type backNavigationRequest struct {
	SessionCode string `json:"sessionCode"`
	Path        string `json:"path,omitempty"`
	State       string `json:"state,omitempty"`
}

type getOperatorActionsRequest struct {
	SessionCode string `json:"sessionCode"`
	OperatorID  string `json:"operatorId,omitempty"`
}

// Broadcast payloads.

type connectedClientInfo struct {
	ID          string `json:"id"`
	SessionCode string `json:"sessionCode"`
}

type currentSessionPayload struct {
	SessionCode      string                `json:"sessionCode"`
	SessionData      *datatypes.Session    `json:"sessionData"`
	ConnectedClients []connectedClientInfo `json:"connectedClients"`
}

type playerJoinedPayload struct {
	PlayerID    string             `json:"playerId"`
	PlayerLabel string             `json:"playerLabel,omitempty"`
	Session     *datatypes.Session `json:"session"`
}

type playerLeftPayload struct {
	PlayerID string             `json:"playerId"`
	Session  *datatypes.Session `json:"session"`
}

type gameStartedPayload struct {
	Session               *datatypes.Session                                `json:"session"`
	ModuleManuals         []datatypes.ModuleManual                          `json:"moduleManuals"`
	SolutionsDistribution []distribution.SolutionsDistribution              `json:"solutionsDistribution"`
	SolutionsByOperator   map[string][]distribution.OperatorModuleSolutions `json:"solutionsByOperator"`
}

type timerUpdatePayload struct {
	Remaining int `json:"remaining"`
}

type gameOverPayload struct {
	Message     string `json:"message"`
	SessionCode string `json:"sessionCode,omitempty"`
}

type backNavigationPayload struct {
	SessionCode   string         `json:"sessionCode"`
	OperatorID    string         `json:"operatorId"`
	OperatorLabel string         `json:"operatorLabel"`
	Timestamp     time.Time      `json:"timestamp"`
	Path          string         `json:"path,omitempty"`
	State         string         `json:"state,omitempty"`
	AutoDetected  bool           `json:"autoDetected,omitempty"`
	Action        string         `json:"action,omitempty"`
	Data          map[string]any `json:"data,omitempty"`
}

type operatorActionsHistoryPayload struct {
	SessionCode string                     `json:"sessionCode"`
	OperatorID  string                     `json:"operatorId,omitempty"`
	Actions     []datatypes.OperatorAction `json:"actions"`
}
