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
	"log/slog"
	"sync"
)

// conn is the transport a client writes to. Satisfied by
// *websocket.Conn; tests substitute an in-memory recorder.
type conn interface {
	WriteJSON(v interface{}) error
}

// Client is one attached connection.
//
// # Thread Safety
//
// Send may be called from any goroutine; writes to the underlying
// connection are serialized by a per-client mutex (gorilla/websocket
// allows at most one concurrent writer).
type Client struct {
	ID string

	conn    conn
	writeMu sync.Mutex
}

// NewClient wraps a connection under the given id.
func NewClient(id string, c conn) *Client {
	return &Client{ID: id, conn: c}
}

// Send marshals the payload into an envelope and writes it.
func (c *Client) Send(event string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	err = c.conn.WriteJSON(Envelope{Event: event, Data: data})
	if err != nil {
		slog.Warn("Failed to write websocket message",
			"clientId", c.ID, "event", event, "error", err)
	}
	return err
}

// Hub tracks attached clients and their room membership. A room is the
// broadcast group for one session code; a client is in at most one room
// at a time.
//
// The reverse index (client id → session code) makes disconnect
// handling O(1) instead of a scan over all live sessions.
//
// # Thread Safety
//
// Safe for concurrent use.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	rooms   map[string]map[string]*Client
	index   map[string]string // client id -> session code
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		rooms:   make(map[string]map[string]*Client),
		index:   make(map[string]string),
	}
}

// Attach registers a connected client.
func (h *Hub) Attach(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ID] = c
}

// Detach removes a client and its room membership. Returns the session
// code the client was in, if any.
func (h *Hub) Detach(clientID string) (string, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	code, inRoom := h.index[clientID]
	h.removeFromRoomLocked(clientID)
	delete(h.clients, clientID)
	return code, inRoom
}

// Join places a client in a session's room, leaving any prior room
// first.
func (h *Hub) Join(clientID, code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	client, ok := h.clients[clientID]
	if !ok {
		return
	}
	h.removeFromRoomLocked(clientID)

	room, ok := h.rooms[code]
	if !ok {
		room = make(map[string]*Client)
		h.rooms[code] = room
	}
	room[clientID] = client
	h.index[clientID] = code
}

// Leave removes a client from its current room, if any.
func (h *Hub) Leave(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoomLocked(clientID)
}

// removeFromRoomLocked drops a client's room membership. Caller holds
// h.mu.
func (h *Hub) removeFromRoomLocked(clientID string) {
	code, ok := h.index[clientID]
	if !ok {
		return
	}
	delete(h.index, clientID)
	if room, ok := h.rooms[code]; ok {
		delete(room, clientID)
		if len(room) == 0 {
			delete(h.rooms, code)
		}
	}
}

// RoomOf returns the session code a client is in.
func (h *Hub) RoomOf(clientID string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	code, ok := h.index[clientID]
	return code, ok
}

// InRoom reports whether a client is a member of a session's room.
func (h *Hub) InRoom(clientID, code string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.index[clientID] == code
}

// Client looks up an attached client by id.
func (h *Hub) Client(clientID string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.clients[clientID]
	return c, ok
}

// MemberIDs returns the ids of a room's members.
func (h *Hub) MemberIDs(code string) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.rooms[code]))
	for id := range h.rooms[code] {
		ids = append(ids, id)
	}
	return ids
}

// Broadcast sends an event to every member of a session's room.
func (h *Hub) Broadcast(code, event string, payload any) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[code]))
	for _, c := range h.rooms[code] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	for _, c := range members {
		// Write errors are logged in Send; a dead member is reaped by
		// its own read loop.
		_ = c.Send(event, payload)
	}
}

// SendTo sends an event to a single client. Returns false if the client
// is not attached.
func (h *Hub) SendTo(clientID, event string, payload any) bool {
	c, ok := h.Client(clientID)
	if !ok {
		return false
	}
	_ = c.Send(event, payload)
	return true
}

// EvictRoom forces every member out of a session's room. Connections
// stay attached; only the broadcast group is dissolved.
func (h *Hub) EvictRoom(code string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for id := range h.rooms[code] {
		delete(h.index, id)
	}
	delete(h.rooms, code)
}
