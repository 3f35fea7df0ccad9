// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package gateway binds the real-time event protocol to the session
// lifecycle, timer, and distribution components.
//
// Each websocket connection gets a stable client id for its lifetime;
// that id doubles as the player id inside sessions. Inbound events are
// dispatched by name; every request is answered with an ack and may
// additionally fan out broadcasts to the session's room.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/jinterlante1206/DefuseLocal/services/game/catalog"
	"github.com/jinterlante1206/DefuseLocal/services/game/datatypes"
	"github.com/jinterlante1206/DefuseLocal/services/game/distribution"
	"github.com/jinterlante1206/DefuseLocal/services/game/observability"
	"github.com/jinterlante1206/DefuseLocal/services/game/session"
	"github.com/jinterlante1206/DefuseLocal/services/game/timer"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Gateway is the protocol layer over the session components.
type Gateway struct {
	hub      *Hub
	sessions *session.Manager
	catalog  *catalog.Catalog
	timers   *timer.Registry
}

// New wires a gateway over the given components.
func New(sessions *session.Manager, cat *catalog.Catalog, timers *timer.Registry) *Gateway {
	return &Gateway{
		hub:      NewHub(),
		sessions: sessions,
		catalog:  cat,
		timers:   timers,
	}
}

// Hub exposes the connection hub, primarily for tests.
func (g *Gateway) Hub() *Hub {
	return g.hub
}

// Handler upgrades an HTTP request to a websocket connection and serves
// it until disconnect.
func (g *Gateway) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			slog.Error("failed to upgrade the websocket", "error", err)
			return
		}
		defer ws.Close()

		client := NewClient(uuid.New().String(), ws)
		g.Attach(client)
		defer g.Disconnect(context.Background(), client.ID)

		for {
			var env Envelope
			if err := ws.ReadJSON(&env); err != nil {
				slog.Info("Websocket client disconnected",
					"clientId", client.ID, "error", err.Error())
				return
			}
			g.Dispatch(c.Request.Context(), client, env)
		}
	}
}

// Attach registers a client and tells it its connection id.
func (g *Gateway) Attach(client *Client) {
	g.hub.Attach(client)
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.ConnectedClients.Inc()
	}
	slog.Info("Websocket client connected", "clientId", client.ID)
	_ = client.Send(EventConnected, map[string]string{"clientId": client.ID})
}

// Dispatch routes one inbound event and sends its acknowledgement.
func (g *Gateway) Dispatch(ctx context.Context, client *Client, env Envelope) {
	var ack Ack
	switch env.Event {
	case EventCreateSession:
		ack = g.handleCreateSession(ctx, client, env.Data)
	case EventGetSession:
		ack = g.handleGetSession(ctx, client, env.Data)
	case EventJoinSession:
		ack = g.handleJoinSession(ctx, client, env.Data)
	case EventLeaveSession:
		ack = g.handleLeaveSession(ctx, client, env.Data)
	case EventStartGame:
		ack = g.handleStartGame(ctx, client, env.Data)
	case EventClearSession:
		ack = g.handleClearSession(ctx, client, env.Data)
	case EventStartTimer:
		ack = g.handleStartTimer(ctx, client, env.Data)
	case EventStopTimer:
		ack = g.handleStopTimer(ctx, client, env.Data)
	case EventOperatorAction:
		ack = g.handleOperatorAction(ctx, client, env.Data)
	case EventBack, EventBackNavigation:
		ack = g.handleBackNavigation(ctx, client, env.Data)
	case EventGetOperatorActions:
		ack = g.handleGetOperatorActions(ctx, client, env.Data)
	default:
		ack = fail("Unknown event: " + env.Event)
	}

	ack.Event = env.Event
	observability.RecordEvent(env.Event, ack.Success)
	_ = client.Send(EventAck, ack)
}

// Disconnect runs the involuntary-leave path for a dropped connection.
//
// # Description
//
// The hub's reverse index locates the session (no scan over all live
// sessions); the member is removed and the session closed when it lost
// viability. The disconnecting client itself is never notified.
func (g *Gateway) Disconnect(ctx context.Context, clientID string) {
	code, inRoom := g.hub.Detach(clientID)
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.ConnectedClients.Dec()
	}
	if !inRoom {
		return
	}

	updated, err := g.sessions.RemovePlayer(ctx, code, clientID)
	if err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Error("Error handling disconnect", "clientId", clientID,
				"sessionCode", code, "error", err)
		}
		return
	}

	if valid, reason := updated.Valid(); !valid {
		slog.Info("Session closing due to disconnect", "sessionCode", code,
			"disconnectedPlayerId", clientID, "reason", reason)
		g.closeSession(ctx, code, reason)
		return
	}

	g.hub.Broadcast(code, EventPlayerLeft, playerLeftPayload{
		PlayerID: clientID,
		Session:  updated,
	})
}

func (g *Gateway) handleCreateSession(ctx context.Context, client *Client, data []byte) Ack {
	var req createSessionRequest
	decode(data, &req)

	if req.Role != "" && req.Role != string(datatypes.RoleAgent) {
		return fail("Only an agent can create a session")
	}

	created, err := g.sessions.Create(ctx, req.Difficulty, client.ID)
	if err != nil {
		slog.Error("Failed to create session", "clientId", client.ID, "error", err)
		return fail("Failed to create session")
	}

	// A creator abandons any session it was still in; that session is
	// torn down rather than left agent-less.
	if prior, ok := g.hub.RoomOf(client.ID); ok && prior != created.Code {
		g.stopGameTimer(ctx, prior)
		if err := g.sessions.Delete(ctx, prior); err != nil {
			slog.Warn("Failed to delete abandoned session",
				"sessionCode", prior, "error", err)
		}
		g.hub.Leave(client.ID)
	}

	g.hub.Join(client.ID, created.Code)
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.SessionsCreatedTotal.
			WithLabelValues(string(req.Difficulty)).Inc()
	}
	_ = client.Send(EventSessionCreated, created)
	return ok()
}

func (g *Gateway) handleGetSession(ctx context.Context, client *Client, data []byte) Ack {
	var req getSessionRequest
	decode(data, &req)

	current, err := g.sessions.Get(ctx, req.SessionCode)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}

	// An operator reporting its current path turns this lookup into a
	// navigation action, which may reveal a back navigation.
	if req.CurrentPath != "" {
		if p := current.FindPlayer(client.ID); p != nil && p.Role == datatypes.RoleOperator {
			_, err := g.sessions.RecordAction(ctx, req.SessionCode, client.ID,
				session.ActionGetSession, map[string]any{"path": req.CurrentPath})
			if err != nil {
				slog.Warn("Failed to record getSession action",
					"sessionCode", req.SessionCode, "error", err)
			} else {
				g.notifyIfBackNavigation(ctx, current, client.ID, p.Label, backNavigationPayload{
					SessionCode:   req.SessionCode,
					OperatorID:    client.ID,
					OperatorLabel: p.Label,
					Timestamp:     time.Now(),
					Path:          req.CurrentPath,
					AutoDetected:  true,
				})
			}
		}
	}

	if g.hub.InRoom(client.ID, req.SessionCode) {
		members := g.hub.MemberIDs(req.SessionCode)
		clients := make([]connectedClientInfo, 0, len(members))
		for _, id := range members {
			clients = append(clients, connectedClientInfo{ID: id, SessionCode: req.SessionCode})
		}
		_ = client.Send(EventCurrentSession, currentSessionPayload{
			SessionCode:      req.SessionCode,
			SessionData:      current,
			ConnectedClients: clients,
		})
	}
	return ok()
}

func (g *Gateway) handleJoinSession(ctx context.Context, client *Client, data []byte) Ack {
	var req joinSessionRequest
	decode(data, &req)

	joined, err := g.sessions.AddPlayer(ctx, req.SessionCode, client.ID, datatypes.RoleOperator)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}
	g.hub.Join(client.ID, req.SessionCode)

	var label string
	if p := joined.FindPlayer(client.ID); p != nil {
		label = p.Label
	}
	g.hub.Broadcast(req.SessionCode, EventPlayerJoined, playerJoinedPayload{
		PlayerID:    client.ID,
		PlayerLabel: label,
		Session:     joined,
	})
	return ok()
}

func (g *Gateway) handleLeaveSession(ctx context.Context, client *Client, data []byte) Ack {
	var req joinSessionRequest
	decode(data, &req)

	updated, err := g.sessions.RemovePlayer(ctx, req.SessionCode, client.ID)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}
	g.hub.Leave(client.ID)

	if valid, reason := updated.Valid(); !valid {
		g.closeSession(ctx, req.SessionCode, reason)
		return Ack{Success: true, SessionClosed: true}
	}

	g.hub.Broadcast(req.SessionCode, EventPlayerLeft, playerLeftPayload{
		PlayerID: client.ID,
		Session:  updated,
	})
	return ok()
}

func (g *Gateway) handleStartGame(ctx context.Context, client *Client, data []byte) Ack {
	var req codeRequest
	decode(data, &req)

	current, err := g.sessions.Get(ctx, req.SessionCode)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}
	if current.AgentID != client.ID {
		return fail("Only the agent can start the game")
	}

	operators := current.Operators()
	if len(operators) == 0 {
		return fail("At least one operator is required to start the game")
	}

	started, err := g.sessions.Start(ctx, req.SessionCode)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}

	manuals := g.catalog.FindSome(moduleSampleSize)
	recipients := make([]string, 0, len(operators))
	for _, op := range operators {
		recipients = append(recipients, op.ID)
	}
	dist := distribution.Distribute(manuals, recipients)
	byOperator := distribution.ByOperator(dist)

	// Clients must never see another player's answers ahead of
	// distribution; manuals go out stripped.
	safeManuals := make([]datatypes.ModuleManual, 0, len(manuals))
	for _, m := range manuals {
		safeManuals = append(safeManuals, m.WithoutSolutions())
	}

	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.GamesStartedTotal.Inc()
	}
	g.hub.Broadcast(req.SessionCode, EventGameStarted, gameStartedPayload{
		Session:               started,
		ModuleManuals:         safeManuals,
		SolutionsDistribution: dist,
		SolutionsByOperator:   byOperator,
	})
	return ok()
}

// moduleSampleSize is the number of manuals drawn per game.
const moduleSampleSize = 5

func (g *Gateway) handleClearSession(ctx context.Context, client *Client, data []byte) Ack {
	var req codeRequest
	decode(data, &req)

	current, err := g.sessions.Get(ctx, req.SessionCode)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}
	if current.AgentID != client.ID {
		return fail("Only the agent can clear the session")
	}

	if err := g.sessions.Delete(ctx, req.SessionCode); err != nil {
		slog.Error("Failed to clear session", "sessionCode", req.SessionCode, "error", err)
		return fail("Failed to clear session")
	}
	g.hub.Broadcast(req.SessionCode, EventSessionCleared,
		map[string]string{"sessionCode": req.SessionCode})
	g.stopGameTimer(ctx, req.SessionCode)
	g.hub.EvictRoom(req.SessionCode)

	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.SessionsClosedTotal.WithLabelValues("cleared").Inc()
	}
	return ok()
}

func (g *Gateway) handleStartTimer(ctx context.Context, client *Client, data []byte) Ack {
	var req codeRequest
	decode(data, &req)

	current, err := g.sessions.Get(ctx, req.SessionCode)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}
	if len(current.Operators()) == 0 {
		return fail("At least one operator is required to start the timer")
	}
	if current.AgentID != client.ID {
		return fail("Only the agent can start the timer")
	}
	if current.TimerStarted {
		return fail("Timer already started")
	}

	updated, err := g.sessions.StartTimer(ctx, req.SessionCode)
	if err != nil {
		if errors.Is(err, session.ErrTimerRunning) {
			return fail("Timer already started")
		}
		slog.Error("Failed to start timer", "sessionCode", req.SessionCode, "error", err)
		return fail("Failed to start timer")
	}

	if err := g.startGameTimer(req.SessionCode, updated); err != nil {
		return fail("Timer already started")
	}
	return ok()
}

func (g *Gateway) handleStopTimer(ctx context.Context, client *Client, data []byte) Ack {
	var req codeRequest
	decode(data, &req)

	current, err := g.sessions.Get(ctx, req.SessionCode)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}
	if current.AgentID != client.ID {
		return fail("Only the agent can stop the timer")
	}

	g.stopGameTimer(ctx, req.SessionCode)
	return ok()
}

func (g *Gateway) handleOperatorAction(ctx context.Context, client *Client, data []byte) Ack {
	var req operatorActionRequest
	decode(data, &req)

	current, err := g.sessions.Get(ctx, req.SessionCode)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}
	player := current.FindPlayer(client.ID)
	if player == nil || player.Role != datatypes.RoleOperator {
		return fail("Only operators can send actions")
	}

	if _, err := g.sessions.RecordAction(ctx, req.SessionCode, client.ID, req.Action, req.Data); err != nil {
		slog.Error("Failed to record operator action",
			"sessionCode", req.SessionCode, "action", req.Action, "error", err)
		return fail("Failed to record action")
	}

	g.notifyIfBackNavigation(ctx, current, client.ID, player.Label, backNavigationPayload{
		SessionCode:   req.SessionCode,
		OperatorID:    client.ID,
		OperatorLabel: player.Label,
		Timestamp:     time.Now(),
		AutoDetected:  true,
		Action:        req.Action,
		Data:          req.Data,
	})
	return ok()
}

func (g *Gateway) handleBackNavigation(ctx context.Context, client *Client, data []byte) Ack {
	var req backNavigationRequest
	decode(data, &req)

	current, err := g.sessions.Get(ctx, req.SessionCode)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}
	player := current.FindPlayer(client.ID)
	if player == nil {
		return fail("Player not found in session")
	}

	// The agent's own back navigation is recorded for the history but
	// notifies nobody.
	if player.Role == datatypes.RoleAgent {
		_, err := g.sessions.RecordAction(ctx, req.SessionCode, client.ID, session.ActionBack,
			map[string]any{
				"reported": true,
				"path":     req.Path,
				"state":    req.State,
				"role":     string(datatypes.RoleAgent),
			})
		if err != nil {
			slog.Error("Failed to record agent back navigation",
				"sessionCode", req.SessionCode, "error", err)
			return fail("Failed to record back navigation")
		}
		return Ack{Success: true, Message: "Agent back navigation recorded"}
	}

	_, err = g.sessions.RecordAction(ctx, req.SessionCode, client.ID, session.ActionBack,
		map[string]any{
			"reported": true,
			"path":     req.Path,
			"state":    req.State,
		})
	if err != nil {
		slog.Error("Failed to record back navigation",
			"sessionCode", req.SessionCode, "error", err)
		return fail("Failed to record back navigation")
	}

	payload := backNavigationPayload{
		SessionCode:   req.SessionCode,
		OperatorID:    client.ID,
		OperatorLabel: player.Label,
		Timestamp:     time.Now(),
		Path:          req.Path,
		State:         req.State,
	}
	g.notifyAgent(current, payload)

	// Room-wide debug signal; carries no path details.
	g.hub.Broadcast(req.SessionCode, EventBackNavigationDetected, backNavigationPayload{
		SessionCode:   req.SessionCode,
		OperatorID:    client.ID,
		OperatorLabel: player.Label,
		Timestamp:     time.Now(),
	})

	return Ack{Success: true, Data: payload}
}

func (g *Gateway) handleGetOperatorActions(ctx context.Context, client *Client, data []byte) Ack {
	var req getOperatorActionsRequest
	decode(data, &req)

	current, err := g.sessions.Get(ctx, req.SessionCode)
	if err != nil {
		return g.lookupFailure(req.SessionCode, err)
	}
	if current.AgentID != client.ID {
		return fail("Only the agent can view operator actions")
	}

	actions, err := g.sessions.OperatorActions(ctx, req.SessionCode, req.OperatorID)
	if err != nil {
		slog.Error("Error getting operator actions",
			"sessionCode", req.SessionCode, "error", err)
		return fail("Failed to get operator actions")
	}

	_ = client.Send(EventOperatorActionsHistory, operatorActionsHistoryPayload{
		SessionCode: req.SessionCode,
		OperatorID:  req.OperatorID,
		Actions:     actions,
	})
	return ok()
}

// notifyIfBackNavigation runs the detector over the operator's history
// and, on a positive, tells the agent and only the agent.
func (g *Gateway) notifyIfBackNavigation(ctx context.Context, s *datatypes.Session, operatorID, label string, payload backNavigationPayload) {
	detected, err := g.sessions.DetectBackNavigation(ctx, s.Code, operatorID)
	if err != nil {
		slog.Warn("Back navigation detection failed",
			"sessionCode", s.Code, "operatorId", operatorID, "error", err)
		return
	}
	if !detected {
		return
	}
	slog.Info("Back navigation detected",
		"sessionCode", s.Code, "operatorId", operatorID, "operatorLabel", label)
	g.notifyAgent(s, payload)
}

// notifyAgent delivers a back-navigation notice to the session's agent
// connection, if it is still attached.
func (g *Gateway) notifyAgent(s *datatypes.Session, payload backNavigationPayload) {
	if !g.hub.SendTo(s.AgentID, EventBackNavigation, payload) {
		slog.Warn("Agent not connected for back navigation",
			"sessionCode", s.Code, "agentId", s.AgentID)
	}
}

// startGameTimer schedules the countdown loop for a session.
//
// The loop owns its in-memory counter, starting from the session's full
// MaxTime. Per-tick persistence goes through the lifecycle manager,
// which honors a timer flag cleared elsewhere in the meantime.
func (g *Gateway) startGameTimer(code string, s *datatypes.Session) error {
	err := g.timers.Start(code, s.MaxTime, timer.Callbacks{
		ShouldContinue: func(code string) bool {
			current, err := g.sessions.Get(context.Background(), code)
			if err != nil {
				return false
			}
			valid, _ := current.Valid()
			return valid
		},
		Persist: func(code string, remaining int) {
			if _, err := g.sessions.UpdateTimer(context.Background(), code, remaining); err != nil {
				if !errors.Is(err, session.ErrNotFound) {
					slog.Warn("Failed to persist timer tick",
						"sessionCode", code, "remaining", remaining, "error", err)
				}
			}
			if observability.DefaultMetrics != nil {
				observability.DefaultMetrics.TimerTicksTotal.Inc()
			}
		},
		Tick: func(code string, remaining int) {
			g.hub.Broadcast(code, EventTimerUpdate, timerUpdatePayload{Remaining: remaining})
		},
		Expired: func(code string) {
			if observability.DefaultMetrics != nil {
				observability.DefaultMetrics.ActiveTimers.Dec()
			}
			g.hub.Broadcast(code, EventGameOver, gameOverPayload{
				Message: datatypes.ReasonTimeExpired,
			})
		},
	})
	if err != nil {
		return err
	}
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.ActiveTimers.Inc()
	}
	return nil
}

// stopGameTimer cancels a session's countdown out-of-band and performs
// the accompanying zeroing, persist and broadcast. A session without a
// live countdown is left untouched.
func (g *Gateway) stopGameTimer(ctx context.Context, code string) {
	if !g.timers.Stop(code) {
		return
	}
	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.ActiveTimers.Dec()
	}
	if _, err := g.sessions.UpdateTimer(ctx, code, 0); err != nil {
		if !errors.Is(err, session.ErrNotFound) {
			slog.Warn("Failed to persist timer stop", "sessionCode", code, "error", err)
		}
	}
	g.hub.Broadcast(code, EventTimerStopped, map[string]string{"sessionCode": code})
}

// closeSession tears a session down: timer stopped, record deleted,
// members notified with the reason and evicted from the room.
func (g *Gateway) closeSession(ctx context.Context, code, reason string) {
	g.stopGameTimer(ctx, code)

	if err := g.sessions.Delete(ctx, code); err != nil {
		slog.Error("Error closing session", "sessionCode", code, "error", err)
	}

	g.hub.Broadcast(code, EventGameOver, gameOverPayload{
		Message:     reason,
		SessionCode: code,
	})
	g.hub.EvictRoom(code)

	if observability.DefaultMetrics != nil {
		observability.DefaultMetrics.SessionsClosedTotal.
			WithLabelValues(reasonClass(reason)).Inc()
	}
	slog.Info("Session closed", "sessionCode", code, "reason", reason)
}

func reasonClass(reason string) string {
	switch reason {
	case datatypes.ReasonAgentLeft:
		return "agent_left"
	case datatypes.ReasonOperatorsLeft:
		return "operators_left"
	default:
		return "other"
	}
}

// lookupFailure maps a session lookup error onto a failure ack.
func (g *Gateway) lookupFailure(code string, err error) Ack {
	if errors.Is(err, session.ErrNotFound) {
		return fail("Session with code " + code + " does not exist")
	}
	slog.Error("Session lookup failed", "sessionCode", code, "error", err)
	return fail("Failed to load session")
}

// decode unmarshals a request payload. Malformed payloads leave the
// zero value; handlers then fail on their own validation.
func decode(data []byte, v any) {
	if len(data) == 0 {
		return
	}
	if err := json.Unmarshal(data, v); err != nil {
		slog.Debug("Failed to decode event payload", "error", err)
	}
}
