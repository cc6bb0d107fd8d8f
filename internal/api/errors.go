// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package api

import (
	"errors"
	"net/http"

	syncpkg "github.com/tomtom215/setlistsync/internal/sync"
	"github.com/tomtom215/setlistsync/internal/validation"
)

// Error codes for API responses.
const (
	ErrCodeBadRequest          = "BAD_REQUEST"
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeConflict            = "CONFLICT"
	ErrCodeInternalError       = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable  = "SERVICE_UNAVAILABLE"
	ErrCodeValidationFailed    = "VALIDATION_FAILED"
	ErrCodeExternalServiceFail = "EXTERNAL_SERVICE_FAILED"
	ErrCodeStaticModeOnly      = "STATIC_MODE_ONLY"
)

// ErrHubUnavailable is reported when /ws is requested without a hub.
var ErrHubUnavailable = errors.New("websocket hub not configured")

// respondEngineError translates an engine error into a status and envelope.
func respondEngineError(w http.ResponseWriter, err error) {
	var verr *validation.RequestValidationError
	switch {
	case errors.As(err, &verr):
		respondErrorDetails(w, http.StatusBadRequest, ErrCodeValidationFailed, verr.Error(),
			map[string]interface{}{"fields": verr.Errors()})
	case errors.Is(err, syncpkg.ErrInvalid):
		respondError(w, http.StatusBadRequest, ErrCodeValidationFailed, err.Error(), nil)
	case errors.Is(err, syncpkg.ErrNotFound):
		respondError(w, http.StatusNotFound, ErrCodeNotFound, err.Error(), nil)
	case errors.Is(err, syncpkg.ErrNotReady):
		respondError(w, http.StatusConflict, ErrCodeConflict, err.Error(), nil)
	case errors.Is(err, syncpkg.ErrDisposed), errors.Is(err, syncpkg.ErrOffline):
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, err.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "internal error", err)
	}
}

// respondDeleteError answers a failed delete. Anything past the local
// removal is a remote failure and maps to 502.
func respondDeleteError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, syncpkg.ErrNotFound), errors.Is(err, syncpkg.ErrDisposed):
		respondEngineError(w, err)
	default:
		respondErrorDetails(w, http.StatusBadGateway, ErrCodeExternalServiceFail, err.Error(),
			map[string]interface{}{
				"removed_locally": true,
				"offline":         errors.Is(err, syncpkg.ErrOffline),
			})
	}
}
