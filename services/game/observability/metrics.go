// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides Prometheus metrics for the game
// service: session lifecycle counters, live gauges for connections and
// timers, and per-event dispatch counters.
//
// Metrics are exposed on /metrics. All operations are thread-safe via
// Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "defuse"

const gameSubsystem = "game"

// GameMetrics holds all Prometheus metrics for the game service.
//
// Initialize once at startup via InitMetrics().
type GameMetrics struct {
	// SessionsCreatedTotal counts created sessions.
	// Labels: difficulty (Easy, Medium, Hard)
	SessionsCreatedTotal *prometheus.CounterVec

	// SessionsClosedTotal counts closed sessions.
	// Labels: reason (cleared, agent_left, operators_left)
	SessionsClosedTotal *prometheus.CounterVec

	// GamesStartedTotal counts successful startGame commands.
	GamesStartedTotal prometheus.Counter

	// EventsTotal counts dispatched real-time events.
	// Labels: event, status (success, error)
	EventsTotal *prometheus.CounterVec

	// ConnectedClients tracks currently attached websocket clients.
	ConnectedClients prometheus.Gauge

	// ActiveTimers tracks live countdown loops.
	ActiveTimers prometheus.Gauge

	// TimerTicksTotal counts countdown ticks across all sessions.
	TimerTicksTotal prometheus.Counter
}

// DefaultMetrics is the singleton instance of GameMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *GameMetrics

// InitMetrics creates and registers all Prometheus metrics. Call once
// at startup; a second call panics on duplicate registration.
func InitMetrics() *GameMetrics {
	DefaultMetrics = &GameMetrics{
		SessionsCreatedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "sessions_created_total",
				Help:      "Total sessions created by difficulty tier",
			},
			[]string{"difficulty"},
		),

		SessionsClosedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "sessions_closed_total",
				Help:      "Total sessions closed by reason",
			},
			[]string{"reason"},
		),

		GamesStartedTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "games_started_total",
				Help:      "Total games started",
			},
		),

		EventsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "events_total",
				Help:      "Total real-time events dispatched by event and status",
			},
			[]string{"event", "status"},
		),

		ConnectedClients: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "connected_clients",
				Help:      "Number of currently connected websocket clients",
			},
		),

		ActiveTimers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "active_timers",
				Help:      "Number of live session countdowns",
			},
		),

		TimerTicksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: gameSubsystem,
				Name:      "timer_ticks_total",
				Help:      "Total countdown ticks across all sessions",
			},
		),
	}
	return DefaultMetrics
}

// RecordEvent increments the dispatch counter for an event outcome.
// Safe to call before InitMetrics; it is then a no-op.
func RecordEvent(event string, success bool) {
	if DefaultMetrics == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	DefaultMetrics.EventsTotal.WithLabelValues(event, status).Inc()
}
