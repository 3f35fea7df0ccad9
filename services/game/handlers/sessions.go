// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers provides the REST surface of the game service: a
// read-only admin view over live sessions plus a liveness endpoint.
// All real-time traffic goes through the gateway instead.
package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jinterlante1206/DefuseLocal/services/game/session"
)

// ListSessions returns the codes of every live session.
func ListSessions(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		codes, err := sessions.Codes(c.Request.Context())
		if err != nil {
			slog.Error("failed to list sessions", "error", err)
			c.JSON(http.StatusInternalServerError,
				gin.H{"error": "failed to list sessions"})
			return
		}
		if codes == nil {
			codes = []string{}
		}
		c.JSON(http.StatusOK, gin.H{"sessions": codes})
	}
}

// GetSession returns the full session record for a code.
func GetSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		code := c.Param("sessionCode")
		current, err := sessions.Get(c.Request.Context(), code)
		if err != nil {
			if errors.Is(err, session.ErrNotFound) {
				c.JSON(http.StatusOK, gin.H{
					"success": false,
					"message": "Session not found",
				})
				return
			}
			slog.Error("failed to load session", "sessionCode", code, "error", err)
			c.JSON(http.StatusInternalServerError,
				gin.H{"error": "failed to load session"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "session": current})
	}
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
