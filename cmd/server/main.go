// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command server starts the DefuseLocal game coordination server.
//
// This is the main entry point for the containerized game service. It
// reads configuration from environment variables and starts the server.
//
// # Environment Variables
//
//   - GAME_PORT: HTTP server port (default: 12310)
//   - GAME_STORE_PATH: BadgerDB session store directory (default: ./data/sessions)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OpenTelemetry collector (optional)
//   - GIN_MODE: Gin framework mode (debug, release, test)
//
// # Usage
//
//	# Build
//	go build -o server ./cmd/server
//
//	# Run
//	./server
package main

import (
	"log"
	"log/slog"
	"os"
	"strconv"

	"github.com/jinterlante1206/DefuseLocal/services/game"
)

func main() {
	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Build configuration from environment variables
	cfg := game.Config{
		Port:         getEnvInt("GAME_PORT", 12310),
		StorePath:    getEnvString("GAME_STORE_PATH", "./data/sessions"),
		OTelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		GinMode:      os.Getenv("GIN_MODE"),
	}

	slog.Info("Starting game server",
		"port", cfg.Port,
		"store_path", cfg.StorePath,
		"otel_endpoint", cfg.OTelEndpoint,
	)

	svc, err := game.New(cfg)
	if err != nil {
		log.Fatalf("Failed to create game service: %v", err)
	}

	// Run the server (blocks until shutdown)
	if err := svc.Run(); err != nil {
		log.Fatalf("Game service error: %v", err)
	}
}

// getEnvString returns the environment variable value or a default.
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns the environment variable as int or a default.
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}
