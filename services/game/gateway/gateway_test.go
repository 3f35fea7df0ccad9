// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinterlante1206/DefuseLocal/services/game/catalog"
	"github.com/jinterlante1206/DefuseLocal/services/game/datatypes"
	"github.com/jinterlante1206/DefuseLocal/services/game/session"
	"github.com/jinterlante1206/DefuseLocal/services/game/store"
	"github.com/jinterlante1206/DefuseLocal/services/game/timer"
)

const testTick = 2 * time.Millisecond

func newTestGateway(t *testing.T) *Gateway {
	t.Helper()
	st, err := store.OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return New(session.NewManager(st), catalog.Default(), timer.NewRegistry(testTick))
}

// connect attaches a fake client the way Handler would for a real
// websocket.
func connect(t *testing.T, g *Gateway, id string) (*Client, *recordingConn) {
	t.Helper()
	rec := &recordingConn{}
	c := NewClient(id, rec)
	g.Attach(c)
	return c, rec
}

// dispatch sends one inbound event and returns its acknowledgement.
func dispatch(t *testing.T, g *Gateway, c *Client, rec *recordingConn, event string, payload any) Ack {
	t.Helper()
	var data json.RawMessage
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		data = b
	}
	g.Dispatch(context.Background(), c, Envelope{Event: event, Data: data})

	var ack Ack
	rec.decodeLast(t, EventAck, &ack)
	return ack
}

// createSession runs the create flow for an agent and returns the new
// session.
func createSession(t *testing.T, g *Gateway, agent *Client, rec *recordingConn, difficulty string) datatypes.Session {
	t.Helper()
	ack := dispatch(t, g, agent, rec, EventCreateSession,
		map[string]string{"difficulty": difficulty, "role": "agent"})
	require.True(t, ack.Success, "createSession failed: %s", ack.Message)

	var s datatypes.Session
	rec.decodeLast(t, EventSessionCreated, &s)
	return s
}

func joinSession(t *testing.T, g *Gateway, op *Client, rec *recordingConn, code string) {
	t.Helper()
	ack := dispatch(t, g, op, rec, EventJoinSession, map[string]string{"sessionCode": code})
	require.True(t, ack.Success, "joinSession failed: %s", ack.Message)
}

func TestAttach_SendsClientID(t *testing.T) {
	g := newTestGateway(t)
	_, rec := connect(t, g, "client-1")

	var payload map[string]string
	rec.decodeLast(t, EventConnected, &payload)
	assert.Equal(t, "client-1", payload["clientId"])
}

func TestCreateSession(t *testing.T) {
	g := newTestGateway(t)
	agent, rec := connect(t, g, "agent-1")

	s := createSession(t, g, agent, rec, "Hard")

	assert.Len(t, s.Code, 6)
	assert.Equal(t, "agent-1", s.AgentID)
	assert.Equal(t, 60, s.MaxTime)
	assert.Equal(t, 60, s.RemainingTime)
	assert.False(t, s.Started)

	// The creator is placed in the session's room
	code, ok := g.hub.RoomOf("agent-1")
	require.True(t, ok)
	assert.Equal(t, s.Code, code)

	// Acks echo the inbound event name
	var ack Ack
	rec.decodeLast(t, EventAck, &ack)
	assert.Equal(t, EventCreateSession, ack.Event)
}

func TestCreateSession_AgentOnly(t *testing.T) {
	g := newTestGateway(t)
	op, rec := connect(t, g, "op-1")

	ack := dispatch(t, g, op, rec, EventCreateSession,
		map[string]string{"difficulty": "Easy", "role": "operator"})
	assert.False(t, ack.Success)
	assert.Equal(t, "Only an agent can create a session", ack.Message)
}

// Creating a second session abandons and deletes the first
func TestCreateSession_AbandonsPrior(t *testing.T) {
	g := newTestGateway(t)
	agent, rec := connect(t, g, "agent-1")

	first := createSession(t, g, agent, rec, "Easy")
	second := createSession(t, g, agent, rec, "Medium")
	require.NotEqual(t, first.Code, second.Code)

	_, err := g.sessions.Get(context.Background(), first.Code)
	assert.ErrorIs(t, err, session.ErrNotFound)

	code, ok := g.hub.RoomOf("agent-1")
	require.True(t, ok)
	assert.Equal(t, second.Code, code)
}

func TestJoinSession(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	// Both room members see the join
	var joined playerJoinedPayload
	agentRec.decodeLast(t, EventPlayerJoined, &joined)
	assert.Equal(t, "op-1", joined.PlayerID)
	assert.Equal(t, "operator 1", joined.PlayerLabel)
	require.NotNil(t, joined.Session)
	assert.Len(t, joined.Session.Players, 2)
	assert.Equal(t, 1, opRec.count(EventPlayerJoined))
}

func TestJoinSession_UnknownCode(t *testing.T) {
	g := newTestGateway(t)
	op, rec := connect(t, g, "op-1")

	ack := dispatch(t, g, op, rec, EventJoinSession,
		map[string]string{"sessionCode": "NOPE42"})
	assert.False(t, ack.Success)
	assert.Equal(t, "Session with code NOPE42 does not exist", ack.Message)
}

func TestStartGame(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Hard")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, agent, agentRec, EventStartGame,
		map[string]string{"sessionCode": s.Code})
	require.True(t, ack.Success, ack.Message)

	var started gameStartedPayload
	opRec.decodeLast(t, EventGameStarted, &started)
	require.NotNil(t, started.Session)
	assert.True(t, started.Session.Started)

	// Manuals go out stripped of their solution steps
	require.Len(t, started.ModuleManuals, 5)
	for _, m := range started.ModuleManuals {
		assert.Empty(t, m.Solutions, m.Name)
	}

	// A lone operator receives every module's full solution set
	require.Len(t, started.SolutionsDistribution, 5)
	mine := started.SolutionsByOperator["op-1"]
	require.Len(t, mine, 5)
	for i, perModule := range mine {
		assert.Equal(t, started.SolutionsDistribution[i].ModuleID, perModule.ModuleID)
		assert.NotEmpty(t, perModule.Solutions)
	}

	// Both members got the broadcast
	assert.Equal(t, 1, agentRec.count(EventGameStarted))
}

func TestStartGame_AgentOnly(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, op, opRec, EventStartGame,
		map[string]string{"sessionCode": s.Code})
	assert.False(t, ack.Success)
	assert.Equal(t, "Only the agent can start the game", ack.Message)
}

func TestStartGame_RequiresOperator(t *testing.T) {
	g := newTestGateway(t)
	agent, rec := connect(t, g, "agent-1")

	s := createSession(t, g, agent, rec, "Medium")
	ack := dispatch(t, g, agent, rec, EventStartGame,
		map[string]string{"sessionCode": s.Code})
	assert.False(t, ack.Success)
	assert.Equal(t, "At least one operator is required to start the game", ack.Message)
}

func TestClearSession(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, agent, agentRec, EventClearSession,
		map[string]string{"sessionCode": s.Code})
	require.True(t, ack.Success, ack.Message)

	assert.Equal(t, 1, opRec.count(EventSessionCleared))
	_, err := g.sessions.Get(context.Background(), s.Code)
	assert.ErrorIs(t, err, session.ErrNotFound)

	// Room dissolved, connections intact
	assert.Empty(t, g.hub.MemberIDs(s.Code))
	_, attached := g.hub.Client("op-1")
	assert.True(t, attached)
}

func TestClearSession_AgentOnly(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, op, opRec, EventClearSession,
		map[string]string{"sessionCode": s.Code})
	assert.False(t, ack.Success)
	assert.Equal(t, "Only the agent can clear the session", ack.Message)
}

// The last operator leaving closes the session with the French reason
func TestLeaveSession_LastOperator(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, op, opRec, EventLeaveSession,
		map[string]string{"sessionCode": s.Code})
	assert.True(t, ack.Success)
	assert.True(t, ack.SessionClosed)

	var over gameOverPayload
	agentRec.decodeLast(t, EventGameOver, &over)
	assert.Equal(t, datatypes.ReasonOperatorsLeft, over.Message)
	assert.Equal(t, s.Code, over.SessionCode)

	_, err := g.sessions.Get(context.Background(), s.Code)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

// A leave that keeps the session viable only notifies the room
func TestLeaveSession_StillViable(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op1, op1Rec := connect(t, g, "op-1")
	op2, op2Rec := connect(t, g, "op-2")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op1, op1Rec, s.Code)
	joinSession(t, g, op2, op2Rec, s.Code)

	ack := dispatch(t, g, op1, op1Rec, EventLeaveSession,
		map[string]string{"sessionCode": s.Code})
	assert.True(t, ack.Success)
	assert.False(t, ack.SessionClosed)

	var left playerLeftPayload
	agentRec.decodeLast(t, EventPlayerLeft, &left)
	assert.Equal(t, "op-1", left.PlayerID)
	require.NotNil(t, left.Session)
	assert.Len(t, left.Session.Players, 2)

	got, err := g.sessions.Get(context.Background(), s.Code)
	require.NoError(t, err)
	assert.Nil(t, got.FindPlayer("op-1"))
}

// An operator's dropped connection closes a session left without
// operators
func TestDisconnect_ClosesSession(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	g.Disconnect(context.Background(), "op-1")

	var over gameOverPayload
	agentRec.decodeLast(t, EventGameOver, &over)
	assert.Equal(t, datatypes.ReasonOperatorsLeft, over.Message)

	_, err := g.sessions.Get(context.Background(), s.Code)
	assert.ErrorIs(t, err, session.ErrNotFound)
	_, attached := g.hub.Client("op-1")
	assert.False(t, attached)
}

func TestDisconnect_AgentClosesSession(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	g.Disconnect(context.Background(), "agent-1")

	var over gameOverPayload
	opRec.decodeLast(t, EventGameOver, &over)
	assert.Equal(t, datatypes.ReasonAgentLeft, over.Message)

	_, err := g.sessions.Get(context.Background(), s.Code)
	assert.ErrorIs(t, err, session.ErrNotFound)
}

func TestDisconnect_StillViable(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op1, op1Rec := connect(t, g, "op-1")
	op2, op2Rec := connect(t, g, "op-2")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op1, op1Rec, s.Code)
	joinSession(t, g, op2, op2Rec, s.Code)

	g.Disconnect(context.Background(), "op-1")

	var left playerLeftPayload
	agentRec.decodeLast(t, EventPlayerLeft, &left)
	assert.Equal(t, "op-1", left.PlayerID)

	got, err := g.sessions.Get(context.Background(), s.Code)
	require.NoError(t, err)
	assert.Len(t, got.Players, 2)
	assert.Equal(t, 1, op2Rec.count(EventPlayerLeft))
}

// A connection that never joined a room detaches without side effects
func TestDisconnect_Roomless(t *testing.T) {
	g := newTestGateway(t)
	connect(t, g, "drifter")

	g.Disconnect(context.Background(), "drifter")
	_, attached := g.hub.Client("drifter")
	assert.False(t, attached)
}

func TestStartTimer_TicksAndStops(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Hard")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, agent, agentRec, EventStartTimer,
		map[string]string{"sessionCode": s.Code})
	require.True(t, ack.Success, ack.Message)
	assert.True(t, g.timers.Active(s.Code))

	// Ticks reach both room members
	assert.Eventually(t, func() bool {
		return opRec.count(EventTimerUpdate) >= 3 &&
			agentRec.count(EventTimerUpdate) >= 3
	}, 2*time.Second, testTick)

	ack = dispatch(t, g, agent, agentRec, EventStopTimer,
		map[string]string{"sessionCode": s.Code})
	require.True(t, ack.Success, ack.Message)
	assert.False(t, g.timers.Active(s.Code))
	assert.Equal(t, 1, opRec.count(EventTimerStopped))

	// The stop zeroed and disarmed the persisted session
	got, err := g.sessions.Get(context.Background(), s.Code)
	require.NoError(t, err)
	assert.False(t, got.TimerStarted)
	assert.Zero(t, got.RemainingTime)
}

func TestStartTimer_Guards(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")

	s := createSession(t, g, agent, agentRec, "Hard")

	// No operators yet
	ack := dispatch(t, g, agent, agentRec, EventStartTimer,
		map[string]string{"sessionCode": s.Code})
	assert.False(t, ack.Success)
	assert.Equal(t, "At least one operator is required to start the timer", ack.Message)

	op, opRec := connect(t, g, "op-1")
	joinSession(t, g, op, opRec, s.Code)

	// Operators may not start it
	ack = dispatch(t, g, op, opRec, EventStartTimer,
		map[string]string{"sessionCode": s.Code})
	assert.False(t, ack.Success)
	assert.Equal(t, "Only the agent can start the timer", ack.Message)

	ack = dispatch(t, g, agent, agentRec, EventStartTimer,
		map[string]string{"sessionCode": s.Code})
	require.True(t, ack.Success, ack.Message)
	defer g.stopGameTimer(context.Background(), s.Code)

	// A second start is refused while the countdown runs
	ack = dispatch(t, g, agent, agentRec, EventStartTimer,
		map[string]string{"sessionCode": s.Code})
	assert.False(t, ack.Success)
	assert.Equal(t, "Timer already started", ack.Message)
}

func TestStopTimer_AgentOnly(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Hard")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, op, opRec, EventStopTimer,
		map[string]string{"sessionCode": s.Code})
	assert.False(t, ack.Success)
	assert.Equal(t, "Only the agent can stop the timer", ack.Message)
}

// The countdown running out ends the game with the French time-out
// message
func TestTimer_Expiry(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Hard")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, agent, agentRec, EventStartTimer,
		map[string]string{"sessionCode": s.Code})
	require.True(t, ack.Success, ack.Message)

	// Hard tier is 60 ticks; at the test interval that is fast
	assert.Eventually(t, func() bool {
		return opRec.count(EventGameOver) >= 1
	}, 5*time.Second, testTick)

	var over gameOverPayload
	opRec.decodeLast(t, EventGameOver, &over)
	assert.Equal(t, datatypes.ReasonTimeExpired, over.Message)
	assert.False(t, g.timers.Active(s.Code))

	got, err := g.sessions.Get(context.Background(), s.Code)
	require.NoError(t, err)
	assert.Zero(t, got.RemainingTime)
	assert.False(t, got.TimerStarted)
}

func TestOperatorAction(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, op, opRec, EventOperatorAction, map[string]any{
		"sessionCode": s.Code,
		"action":      "navigate",
		"data":        map[string]any{"state": "/manual/wires"},
	})
	require.True(t, ack.Success, ack.Message)

	actions, err := g.sessions.OperatorActions(context.Background(), s.Code, "op-1")
	require.NoError(t, err)
	require.Len(t, actions, 1)
	assert.Equal(t, "navigate", actions[0].Action)
	assert.Equal(t, "/manual/wires", actions[0].Data["state"])
}

func TestOperatorAction_OperatorsOnly(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, agent, agentRec, EventOperatorAction, map[string]any{
		"sessionCode": s.Code,
		"action":      "navigate",
	})
	assert.False(t, ack.Success)
	assert.Equal(t, "Only operators can send actions", ack.Message)
}

// Revisiting a page through operator actions pushes a detection notice
// to the agent and only the agent
func TestOperatorAction_BackNavigationDetected(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	for _, state := range []string{"/a", "/b", "/a"} {
		ack := dispatch(t, g, op, opRec, EventOperatorAction, map[string]any{
			"sessionCode": s.Code,
			"action":      "navigate",
			"data":        map[string]any{"state": state},
		})
		require.True(t, ack.Success, ack.Message)
	}

	var notice backNavigationPayload
	agentRec.decodeLast(t, EventBackNavigation, &notice)
	assert.Equal(t, "op-1", notice.OperatorID)
	assert.Equal(t, "operator 1", notice.OperatorLabel)
	assert.True(t, notice.AutoDetected)
	assert.Equal(t, 0, opRec.count(EventBackNavigation))
}

// An explicitly reported back press notifies the agent and raises the
// room-wide signal
func TestBackNavigation_Reported(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, op, opRec, EventBack, map[string]string{
		"sessionCode": s.Code,
		"path":        "/manual/keypad",
	})
	require.True(t, ack.Success, ack.Message)
	require.NotNil(t, ack.Data)

	var notice backNavigationPayload
	agentRec.decodeLast(t, EventBackNavigation, &notice)
	assert.Equal(t, "/manual/keypad", notice.Path)

	// The debug broadcast reaches the room but omits the path
	var signal backNavigationPayload
	agentRec.decodeLast(t, EventBackNavigationDetected, &signal)
	assert.Empty(t, signal.Path)
	assert.Equal(t, "op-1", signal.OperatorID)
	assert.Equal(t, 1, opRec.count(EventBackNavigationDetected))
}

func TestBackNavigation_Agent(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, agent, agentRec, EventBack, map[string]string{
		"sessionCode": s.Code,
		"path":        "/home",
	})
	assert.True(t, ack.Success)
	assert.Equal(t, "Agent back navigation recorded", ack.Message)
	assert.Equal(t, 0, opRec.count(EventBackNavigationDetected))
}

func TestBackNavigation_UnknownPlayer(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	stranger, strangerRec := connect(t, g, "stranger")

	s := createSession(t, g, agent, agentRec, "Medium")

	ack := dispatch(t, g, stranger, strangerRec, EventBack, map[string]string{
		"sessionCode": s.Code,
	})
	assert.False(t, ack.Success)
	assert.Equal(t, "Player not found in session", ack.Message)
}

func TestGetOperatorActions(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	for _, state := range []string{"/a", "/b"} {
		dispatch(t, g, op, opRec, EventOperatorAction, map[string]any{
			"sessionCode": s.Code,
			"action":      "navigate",
			"data":        map[string]any{"state": state},
		})
	}

	ack := dispatch(t, g, agent, agentRec, EventGetOperatorActions, map[string]string{
		"sessionCode": s.Code,
		"operatorId":  "op-1",
	})
	require.True(t, ack.Success, ack.Message)

	var history operatorActionsHistoryPayload
	agentRec.decodeLast(t, EventOperatorActionsHistory, &history)
	assert.Equal(t, s.Code, history.SessionCode)
	assert.Equal(t, "op-1", history.OperatorID)
	assert.Len(t, history.Actions, 2)
}

func TestGetOperatorActions_AgentOnly(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, op, opRec, EventGetOperatorActions,
		map[string]string{"sessionCode": s.Code})
	assert.False(t, ack.Success)
	assert.Equal(t, "Only the agent can view operator actions", ack.Message)
}

func TestGetSession(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	ack := dispatch(t, g, agent, agentRec, EventGetSession,
		map[string]string{"sessionCode": s.Code})
	require.True(t, ack.Success, ack.Message)

	var current currentSessionPayload
	agentRec.decodeLast(t, EventCurrentSession, &current)
	assert.Equal(t, s.Code, current.SessionCode)
	require.NotNil(t, current.SessionData)
	assert.Len(t, current.SessionData.Players, 2)
	assert.Len(t, current.ConnectedClients, 2)
}

// An operator's lookup with a current path is itself a navigation
// action
func TestGetSession_RecordsOperatorPath(t *testing.T) {
	g := newTestGateway(t)
	agent, agentRec := connect(t, g, "agent-1")
	op, opRec := connect(t, g, "op-1")

	s := createSession(t, g, agent, agentRec, "Medium")
	joinSession(t, g, op, opRec, s.Code)

	for _, path := range []string{"/a", "/b", "/a"} {
		ack := dispatch(t, g, op, opRec, EventGetSession, map[string]string{
			"sessionCode": s.Code,
			"currentPath": path,
		})
		require.True(t, ack.Success, ack.Message)
	}

	actions, err := g.sessions.OperatorActions(context.Background(), s.Code, "op-1")
	require.NoError(t, err)
	assert.Len(t, actions, 3)

	// The revisit was surfaced to the agent
	var notice backNavigationPayload
	agentRec.decodeLast(t, EventBackNavigation, &notice)
	assert.Equal(t, "/a", notice.Path)
	assert.True(t, notice.AutoDetected)
}

func TestGetSession_UnknownCode(t *testing.T) {
	g := newTestGateway(t)
	c, rec := connect(t, g, "anyone")

	ack := dispatch(t, g, c, rec, EventGetSession,
		map[string]string{"sessionCode": "GHOST1"})
	assert.False(t, ack.Success)
	assert.Equal(t, "Session with code GHOST1 does not exist", ack.Message)
}

func TestDispatch_UnknownEvent(t *testing.T) {
	g := newTestGateway(t)
	c, rec := connect(t, g, "anyone")

	ack := dispatch(t, g, c, rec, "selfDestruct", nil)
	assert.False(t, ack.Success)
	assert.Equal(t, "Unknown event: selfDestruct", ack.Message)
	assert.Equal(t, "selfDestruct", ack.Event)
}
