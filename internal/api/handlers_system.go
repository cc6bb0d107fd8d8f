// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/notify"
	"github.com/tomtom215/setlistsync/internal/validation"
)

// HealthStatus is the body of GET /health.
type HealthStatus struct {
	Status              string  `json:"status"`
	Version             string  `json:"version"`
	Online              bool    `json:"online"`
	InitialLoadComplete bool    `json:"initial_load_complete"`
	Reconciling         bool    `json:"reconciling"`
	WebSocketClients    int     `json:"websocket_clients"`
	Uptime              float64 `json:"uptime_seconds"`
}

// PreferenceRequest is the body of PUT /preferences/{name}.
type PreferenceRequest struct {
	Value bool `json:"value"`
}

// Preference is one UI flag.
type Preference struct {
	Name  string `json:"name"`
	Value bool   `json:"value"`
}

type preferenceName struct {
	Name string `json:"name" validate:"required,max=64,printascii,excludesall=/:"`
}

// ConnectivityRequest is the body of PUT /connectivity.
type ConnectivityRequest struct {
	Online bool `json:"online"`
}

// ConnectivityStatus is the body of the connectivity endpoints.
type ConnectivityStatus struct {
	Online   bool `json:"online"`
	Settable bool `json:"settable"`
}

// Health reports liveness plus the engine's readiness. The daemon is
// "healthy" once the first reconciliation finished and "degraded" while it
// is offline or still reconciling.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	st := h.engine.Status()

	status := "healthy"
	if !st.Online || !st.InitialLoadComplete || st.Reconciling {
		status = "degraded"
	}
	clients := 0
	if h.wsHub != nil {
		clients = h.wsHub.GetClientCount()
	}

	respondData(w, http.StatusOK, HealthStatus{
		Status:              status,
		Version:             h.version,
		Online:              st.Online,
		InitialLoadComplete: st.InitialLoadComplete,
		Reconciling:         st.Reconciling,
		WebSocketClients:    clients,
		Uptime:              time.Since(h.startTime).Seconds(),
	})
}

// ListNotifications returns the notifications currently shown.
func (h *Handler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	active := h.notes.Active()
	if active == nil {
		active = []notify.Notification{}
	}
	respondList(w, active, len(active))
}

// DismissNotification closes a notification before its timeout.
func (h *Handler) DismissNotification(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !h.notes.Dismiss(id) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "notification not found", nil)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) preferenceName(w http.ResponseWriter, r *http.Request) (string, bool) {
	p := preferenceName{Name: chi.URLParam(r, "name")}
	if err := validation.ValidateStruct(p); err != nil {
		respondEngineError(w, err)
		return "", false
	}
	return p.Name, true
}

// GetPreference returns a UI flag; unset flags read as false.
func (h *Handler) GetPreference(w http.ResponseWriter, r *http.Request) {
	name, ok := h.preferenceName(w, r)
	if !ok {
		return
	}
	respondData(w, http.StatusOK, Preference{Name: name, Value: h.prefs.Preference(name)})
}

// SetPreference persists a UI flag.
func (h *Handler) SetPreference(w http.ResponseWriter, r *http.Request) {
	name, ok := h.preferenceName(w, r)
	if !ok {
		return
	}
	var req PreferenceRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.prefs.SetPreference(name, req.Value); err != nil {
		respondError(w, http.StatusInternalServerError, ErrCodeInternalError, "failed to save preference", err)
		return
	}
	respondData(w, http.StatusOK, Preference{Name: name, Value: req.Value})
}

// SyncPush pushes outstanding changes now, bypassing the set-list debounce.
// Per-record failures are reported in the body, not as an error status.
func (h *Handler) SyncPush(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.operationContext(r)
	defer cancel()

	report, err := h.engine.Flush(ctx)
	if err != nil {
		logging.Ctx(r.Context()).Info().Err(err).Msg("Manual push refused")
		respondEngineError(w, err)
		return
	}
	respondData(w, http.StatusOK, report)
}

// SyncReconcile merges the remote collections into the cache now.
func (h *Handler) SyncReconcile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.operationContext(r)
	defer cancel()

	report, err := h.engine.Reconcile(ctx)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	status := http.StatusOK
	if report.Failed() {
		status = http.StatusBadGateway
	}
	respondData(w, status, report)
}

// SyncStatus returns the engine state.
func (h *Handler) SyncStatus(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, h.engine.Status())
}

// GetConnectivity reports the online state.
func (h *Handler) GetConnectivity(w http.ResponseWriter, r *http.Request) {
	_, settable := h.monitor.(onlineSetter)
	respondData(w, http.StatusOK, ConnectivityStatus{Online: h.monitor.IsOnline(), Settable: settable})
}

// SetConnectivity changes the online state of a static monitor.
func (h *Handler) SetConnectivity(w http.ResponseWriter, r *http.Request) {
	setter, ok := h.monitor.(onlineSetter)
	if !ok {
		respondError(w, http.StatusConflict, ErrCodeStaticModeOnly,
			"connectivity is probed automatically; set connectivity.mode=static to control it", nil)
		return
	}
	var req ConnectivityRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	setter.SetOnline(req.Online)
	respondData(w, http.StatusOK, ConnectivityStatus{Online: h.monitor.IsOnline(), Settable: true})
}
