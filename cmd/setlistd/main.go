// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package main is the entry point for setlistd, the local-first song and
// set-list sync daemon.
//
// setlistd keeps a local cache of songs and set-lists, serves it to local
// collaborators over a REST and WebSocket API, and reconciles it with an
// authoritative remote store whenever that store is reachable.
//
// # Startup Order
//
//  1. Configuration: defaults, config.yaml, environment (Koanf v2)
//  2. Local store: BadgerDB cache at STORE_PATH
//  3. Remote client: REMOTE_URL with rate limiting and circuit breaker
//  4. Connectivity monitor: "probe" polls the remote, "static" is set by hand
//  5. Sync engine, WebSocket hub and notification emitter
//  6. HTTP API
//  7. Supervisor tree runs everything until SIGINT or SIGTERM
//
// # Example Usage
//
// Against a local simulator:
//
//	cloudsim &
//	REMOTE_URL=http://127.0.0.1:8090 STORE_IN_MEMORY=true setlistd
//
// Offline-first desktop setup:
//
//	export REMOTE_URL=https://songs.example.org
//	export REMOTE_TOKEN=secret
//	export STORE_PATH=$HOME/.local/share/setlistsync
//	setlistd
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/setlistsync/internal/api"
	"github.com/tomtom215/setlistsync/internal/config"
	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/notify"
	"github.com/tomtom215/setlistsync/internal/store"
	"github.com/tomtom215/setlistsync/internal/supervisor"
	"github.com/tomtom215/setlistsync/internal/supervisor/services"
	ws "github.com/tomtom215/setlistsync/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})

	logging.Info().
		Str("version", version).
		Str("remote_url", cfg.Remote.BaseURL).
		Str("store_path", cfg.Store.Path).
		Bool("store_in_memory", cfg.Store.InMemory).
		Str("connectivity_mode", cfg.Connectivity.Mode).
		Msg("Starting setlistd")

	st, err := store.Open(store.Config{
		Path:       cfg.Store.Path,
		InMemory:   cfg.Store.InMemory,
		SyncWrites: cfg.Store.SyncWrites,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open local store")
	}
	defer func() {
		if err := st.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing local store")
		}
	}()

	client := newRemoteClient(cfg)
	monitor := newMonitor(cfg)

	emitter := notify.NewEmitter(cfg.Notify.TTL)
	defer emitter.Close()

	wsHub := ws.NewHub()

	engine, err := newEngine(cfg, st, client, monitor.Monitor, emitter, wsHub)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create sync engine")
	}
	wsHub.SetSnapshot(snapshotFunc(engine, emitter, monitor.Monitor))

	if cfg.Server.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	chiMiddleware := api.NewChiMiddleware(api.NewChiMiddlewareConfig(
		cfg.Server.CORSOrigins,
		cfg.Server.RateLimitReqs,
		cfg.Server.RateLimitWindow,
		cfg.Server.RateLimitDisabled,
	))
	handler := api.NewHandler(api.Deps{
		Engine:           engine,
		Notifications:    emitter,
		Preferences:      st,
		Monitor:          monitor.Monitor,
		Hub:              wsHub,
		OperationTimeout: cfg.Sync.PushTimeout,
		Version:          version,
	}, chiMiddleware)
	router := api.NewRouter(handler, chiMiddleware)

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlog(), supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	tree.AddSyncService(services.NewEngineService(engine, services.EngineOptions{
		FlushOnShutdown: cfg.Sync.FlushOnShutdown,
		FlushTimeout:    cfg.Sync.PushTimeout,
	}))
	if monitor.Prober != nil {
		tree.AddSyncService(monitor.Prober)
	}
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	tree.AddMessagingService(services.NewEventBridgeService(emitter, monitor.Monitor, wsHub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	logging.Info().Str("addr", server.Addr).Msg("HTTP API configured")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
	}

	logging.Info().Msg("setlistd stopped")
}
