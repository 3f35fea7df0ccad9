// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package game provides the core game coordination service.
//
// This package contains the main Service type that wires together all
// components: the BadgerDB session store, the session lifecycle
// manager, the puzzle catalog, the timer registry, the websocket
// gateway, HTTP routing, and observability infrastructure.
//
// # Usage
//
//	cfg := game.Config{Port: 12310}
//	svc, err := game.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
package game

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jinterlante1206/DefuseLocal/services/game/catalog"
	"github.com/jinterlante1206/DefuseLocal/services/game/gateway"
	"github.com/jinterlante1206/DefuseLocal/services/game/observability"
	"github.com/jinterlante1206/DefuseLocal/services/game/routes"
	"github.com/jinterlante1206/DefuseLocal/services/game/session"
	"github.com/jinterlante1206/DefuseLocal/services/game/store"
	"github.com/jinterlante1206/DefuseLocal/services/game/timer"
)

// Service is the public interface of the game service.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine

	// Close releases the session store and tracer resources.
	Close() error
}

// Config holds game service configuration options.
//
// All fields are optional with defaults applied by New().
type Config struct {
	// Port is the HTTP server port. Default: 12310
	Port int

	// StorePath is the directory for the BadgerDB session store.
	// Default: "./data/sessions"
	StorePath string

	// StoreInMemory runs the session store without disk persistence.
	// Used by tests; sessions then live only as long as the process.
	StoreInMemory bool

	// OTelEndpoint is the OpenTelemetry collector endpoint.
	// If empty, tracing is disabled.
	OTelEndpoint string

	// EnableMetrics enables the Prometheus /metrics endpoint.
	// Default: true
	EnableMetrics bool

	// GinMode sets the Gin framework mode ("debug", "release", "test").
	GinMode string

	// TickInterval overrides the countdown tick interval.
	// Default: one second. Tests shorten it.
	TickInterval time.Duration
}

// service implements Service for production use.
type service struct {
	config        Config
	router        *gin.Engine
	store         *store.Store
	sessions      *session.Manager
	catalog       *catalog.Catalog
	timers        *timer.Registry
	gateway       *gateway.Gateway
	tracerCleanup func(context.Context)
}

// New creates a game Service with the given configuration.
//
// # Description
//
// New initializes all components in dependency order:
//  1. Applies defaults for missing configuration values
//  2. Initializes OpenTelemetry tracing (if an endpoint is configured)
//  3. Initializes Prometheus metrics
//  4. Opens the BadgerDB session store
//  5. Builds the lifecycle manager, catalog, timer registry and gateway
//  6. Sets up HTTP routes
//
// # Outputs
//
//   - Service: Ready-to-run game service
//   - error: Non-nil if initialization fails
func New(cfg Config) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}

	if s.config.OTelEndpoint != "" {
		cleanup, err := s.initTracer()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize tracer: %w", err)
		}
		s.tracerCleanup = cleanup
	}

	if s.config.EnableMetrics && observability.DefaultMetrics == nil {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus metrics for game service")
	}

	st, err := store.Open(store.Config{
		Path:       s.config.StorePath,
		InMemory:   s.config.StoreInMemory,
		SyncWrites: !s.config.StoreInMemory,
	})
	if err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}
	s.store = st

	s.sessions = session.NewManager(st)
	s.catalog = catalog.Default()
	s.timers = timer.NewRegistry(s.config.TickInterval)
	s.gateway = gateway.New(s.sessions, s.catalog, s.timers)

	s.initRouter()
	return s, nil
}

// Run starts the HTTP server and blocks until shutdown or error.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting game server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing.
func (s *service) Router() *gin.Engine {
	return s.router
}

// Close releases resources without running the server.
func (s *service) Close() error {
	s.cleanup()
	return nil
}

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12310
	}
	if cfg.StorePath == "" && !cfg.StoreInMemory {
		cfg.StorePath = "./data/sessions"
	}
	if cfg.TickInterval == 0 {
		cfg.TickInterval = timer.DefaultInterval
	}
	cfg.EnableMetrics = true
	return cfg
}

// initTracer initializes OpenTelemetry distributed tracing.
//
// Uses an insecure gRPC connection, appropriate for internal networks.
func (s *service) initTracer() (func(context.Context), error) {
	ctx := context.Background()

	conn, err := grpc.NewClient(s.config.OTelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to create gRPC connection: %w", err)
	}

	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("game-service")))
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))

	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	cleanup := func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}
	return cleanup, nil
}

// initRouter builds the Gin engine and registers all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}

	router := gin.Default()
	if s.config.OTelEndpoint != "" {
		router.Use(otelgin.Middleware("game-service"))
	}

	routes.SetupRoutes(router, s.sessions, s.gateway)
	s.router = router
}

// cleanup releases held resources. Safe to call more than once.
func (s *service) cleanup() {
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			slog.Warn("Failed to close session store", "error", err)
		}
		s.store = nil
	}
	if s.tracerCleanup != nil {
		s.tracerCleanup(context.Background())
		s.tracerCleanup = nil
	}
}
