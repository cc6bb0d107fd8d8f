// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thejerf/suture/v4"

	"github.com/tomtom215/setlistsync/internal/logging"
	syncpkg "github.com/tomtom215/setlistsync/internal/sync"
)

// EngineLifecycle is the part of *sync.Engine the service drives.
type EngineLifecycle interface {
	Init(ctx context.Context) error
	Flush(ctx context.Context) (syncpkg.FlushReport, error)
	Dispose()
}

var _ EngineLifecycle = (*syncpkg.Engine)(nil)

// EngineOptions configures EngineService.
type EngineOptions struct {
	// FlushOnShutdown pushes outstanding changes before Dispose.
	FlushOnShutdown bool

	// FlushTimeout bounds the shutdown flush. Default: 10s
	FlushTimeout time.Duration
}

// EngineService initializes the sync engine, keeps it alive while the
// supervisor runs and disposes it on shutdown.
//
// An engine can be initialized and disposed only once. A restart after
// Init already succeeded keeps running the same engine; a restart after
// Dispose stops the service for good.
type EngineService struct {
	engine EngineLifecycle
	opts   EngineOptions
	name   string
}

// NewEngineService creates the wrapper.
func NewEngineService(engine EngineLifecycle, opts EngineOptions) *EngineService {
	if opts.FlushTimeout <= 0 {
		opts.FlushTimeout = 10 * time.Second
	}
	return &EngineService{
		engine: engine,
		opts:   opts,
		name:   "sync-engine",
	}
}

// Serve implements suture.Service.
func (s *EngineService) Serve(ctx context.Context) error {
	err := s.engine.Init(ctx)
	switch {
	case err == nil:
		logging.Info().Str("service", s.name).Msg("Sync engine started")
	case errors.Is(err, syncpkg.ErrAlreadyInitialized):
		logging.Debug().Str("service", s.name).Msg("Sync engine already running")
	case errors.Is(err, syncpkg.ErrDisposed):
		return fmt.Errorf("%w: %w", suture.ErrDoNotRestart, err)
	default:
		return fmt.Errorf("sync engine init failed: %w", err)
	}

	<-ctx.Done()

	if s.opts.FlushOnShutdown {
		s.flush()
	}
	s.engine.Dispose()
	return ctx.Err()
}

func (s *EngineService) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.FlushTimeout)
	defer cancel()

	report, err := s.engine.Flush(ctx)
	if err != nil {
		logging.Warn().Err(err).Str("service", s.name).Msg("Shutdown flush incomplete")
		return
	}
	logging.Info().
		Int("songs_pushed", len(report.Songs.Created)+len(report.Songs.Updated)).
		Int("setlists_pushed", len(report.SetLists.Created)+len(report.SetLists.Updated)).
		Int("failed", len(report.Songs.Failed)+len(report.SetLists.Failed)).
		Msg("Shutdown flush complete")
}

// String implements fmt.Stringer.
func (s *EngineService) String() string {
	return s.name
}
