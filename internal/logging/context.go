// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package logging

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type contextKey string

const (
	// syncRunKey tags every log line emitted by one reconcile or push cycle.
	syncRunKey contextKey = "sync_run"

	requestIDKey contextKey = "request_id"
)

// NewRunID returns a short identifier for a sync cycle.
func NewRunID() string {
	return uuid.New().String()[:8]
}

// ContextWithRunID attaches a sync cycle identifier to ctx.
func ContextWithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, syncRunKey, id)
}

// RunIDFromContext returns the sync cycle identifier, or "".
func RunIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(syncRunKey).(string); ok {
		return id
	}
	return ""
}

// ContextWithRequestID attaches an HTTP request id to ctx.
func ContextWithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext returns the HTTP request id, or "".
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// Ctx returns the global logger enriched with the identifiers found in ctx.
//
//	logging.Ctx(ctx).Info().Msg("Set-list push finished")
func Ctx(ctx context.Context) *zerolog.Logger {
	lc := Logger().With()
	if id := RunIDFromContext(ctx); id != "" {
		lc = lc.Str("sync_run", id)
	}
	if id := RequestIDFromContext(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}
	l := lc.Logger()
	return &l
}

// WithComponent returns a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	return With().Str("component", component).Logger()
}
