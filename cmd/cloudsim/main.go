// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package main runs cloudsim, an in-memory stand-in for the remote song
// store. It serves /api/songs and /api/setlists plus /_sim control
// endpoints for injecting faults and inspecting the request log.
//
//	CLOUDSIM_PORT=8090 CLOUDSIM_SEED=./seed.json cloudsim
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/setlistsync/internal/cloudsim"
	"github.com/tomtom215/setlistsync/internal/config"
	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/supervisor"
	"github.com/tomtom215/setlistsync/internal/supervisor/services"
)

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

	sim := cloudsim.New()
	if cfg.Cloudsim.Seed != "" {
		if err := sim.LoadSeedFile(cfg.Cloudsim.Seed); err != nil {
			logging.Fatal().Err(err).Str("seed", cfg.Cloudsim.Seed).Msg("Failed to load seed file")
		}
		logging.Info().
			Int("songs", len(sim.Songs())).
			Int("setlists", len(sim.SetLists())).
			Msg("Seed data loaded")
	}

	server := &http.Server{
		Addr:              cfg.Cloudsim.Addr(),
		Handler:           sim.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlog(), supervisor.TreeConfig{})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService(server, 5*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Str("addr", server.Addr).Msg("cloudsim listening")
	if err := tree.Serve(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("cloudsim stopped with error")
		os.Exit(1)
	}
	logging.Info().Msg("cloudsim stopped")
}
