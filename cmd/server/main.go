// Praxis - Education Portfolio Platform
// Copyright 2026 Praxis contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/praxis-edu/praxis

// Package main is the entry point for the Praxis server.
//
// Praxis is a self-hosted education portfolio platform. Students collect
// portfolio items, track skills and learning roadmaps, and receive real-time
// notifications over SSE or WebSocket streams backed by a per-user event
// broker with replay.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: layered defaults, YAML file, environment (Koanf v2)
//  2. Entity store: embedded Badger database, one keyspace per user
//  3. Response cache: in-memory TTL cache with pattern invalidation
//  4. Event broker: per-user fan-out with ring-buffer replay
//  5. Authentication: JWT (HS256) with a configured admin account
//  6. HTTP server: chi router with REST API and stream endpoints
//
// All long-running components run under a Suture supervisor tree so a crash
// in one layer restarts that layer without bringing the process down.
//
// # Configuration
//
// Configuration comes from environment variables (highest priority), an
// optional config.yaml, and built-in defaults. The minimum for production:
//
//	export ENVIRONMENT=production
//	export JWT_SECRET=$(openssl rand -base64 32)
//	export ADMIN_USERNAME=admin
//	export ADMIN_PASSWORD_HASH='$2a$12$...'   # bcrypt
//	export DATA_PATH=/data/praxis
//	./praxis
//
// # Signal Handling
//
// The server shuts down gracefully on SIGINT and SIGTERM: it stops
// accepting connections, closes open streams, and waits for in-flight
// requests up to the supervisor's shutdown timeout.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/praxis-edu/praxis/internal/api"
	"github.com/praxis-edu/praxis/internal/auth"
	"github.com/praxis-edu/praxis/internal/broker"
	"github.com/praxis-edu/praxis/internal/cache"
	"github.com/praxis-edu/praxis/internal/config"
	"github.com/praxis-edu/praxis/internal/logging"
	"github.com/praxis-edu/praxis/internal/portfolio"
	"github.com/praxis-edu/praxis/internal/store"
	"github.com/praxis-edu/praxis/internal/stream"
	"github.com/praxis-edu/praxis/internal/supervisor"
	"github.com/praxis-edu/praxis/internal/supervisor/services"
)

func main() {
	// Load configuration first to get logging settings.
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("data_path", cfg.Database.Path).
		Int("port", cfg.Server.Port).
		Msg("Starting Praxis server")

	st, err := store.Open(cfg.Database.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open entity store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing entity store")
		}
	}()
	logging.Info().Msg("Entity store opened")

	cacheStore := cache.New(cache.Options{
		DefaultTTL:      cfg.Cache.DefaultTTL,
		CleanupInterval: cfg.Cache.CleanupInterval,
	})
	defer cacheStore.Close()

	eventBroker := broker.New(broker.Config{
		RingCapacity:      cfg.Broker.RingCapacity,
		SubscriberBuffer:  cfg.Broker.SubscriberBuffer,
		DegradeAfterDrops: cfg.Broker.DegradeAfterDrops,
		SweepInterval:     cfg.Broker.SweepInterval,
	})

	service := portfolio.NewService(st, cacheStore, eventBroker, portfolio.TTLs{
		Notifications: cfg.Cache.NotificationTTL,
		Activities:    cfg.Cache.ActivityTTL,
		Portfolio:     cfg.Cache.PortfolioTTL,
		Skills:        cfg.Cache.SkillTTL,
		Roadmaps:      cfg.Cache.RoadmapTTL,
	})

	streamManager := stream.NewManager(eventBroker, stream.Options{
		HeartbeatInterval: cfg.Stream.HeartbeatInterval,
		WriteTimeout:      cfg.Stream.WriteTimeout,
		AllowedOrigins:    cfg.Security.CORSOrigins,
	})

	jwtManager, err := auth.NewJWTManager(&cfg.Security)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize authentication")
	}

	handler := api.NewHandler(service, streamManager, jwtManager, cacheStore, eventBroker, cfg)

	// OIDC discovery talks to the issuer; bound it so a slow provider
	// cannot stall startup indefinitely.
	discoveryCtx, discoveryCancel := context.WithTimeout(context.Background(), 30*time.Second)
	oidcProvider, err := auth.NewOIDCProvider(discoveryCtx, &cfg.Security, jwtManager)
	discoveryCancel()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize OIDC login")
	}
	if oidcProvider != nil {
		handler.SetOIDCProvider(oidcProvider)
	}

	router := api.NewRouter(handler, api.MiddlewareConfig{
		CORSAllowedOrigins: cfg.Security.CORSOrigins,
		RateLimitRequests:  cfg.Security.RateLimitReqs,
		RateLimitWindow:    cfg.Security.RateLimitWindow,
		RateLimitDisabled:  cfg.Security.RateLimitDisabled,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.Timeout,
		// No WriteTimeout: SSE streams stay open far longer than any fixed
		// write deadline. Idle streams are kept alive by heartbeats and
		// torn down by client disconnect or shutdown.
		IdleTimeout: 60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Bridge zerolog to slog for sutureslog.
	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddRealtimeService(eventBroker)
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added to supervisor tree")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Drain until the supervisor has fully stopped.
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("Praxis stopped gracefully")
}
