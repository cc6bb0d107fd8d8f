// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/setlistsync/internal/connectivity"
	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/notify"
	syncpkg "github.com/tomtom215/setlistsync/internal/sync"
	ws "github.com/tomtom215/setlistsync/internal/websocket"
)

// SyncEngine is the part of *sync.Engine the handlers use.
type SyncEngine interface {
	Songs() []models.Song
	SetLists() []models.SetList
	CreateSong(in models.SongInput) (models.Song, error)
	UpdateSong(id string, in models.SongInput) (models.Song, error)
	DeleteSong(ctx context.Context, id string) error
	CreateSetList(in models.SetListInput) (models.SetList, error)
	UpdateSetList(id string, in models.SetListInput) (models.SetList, error)
	DeleteSetList(ctx context.Context, id string) error
	AddMember(listID, member string) (models.SetList, error)
	RemoveMember(listID, member string) (models.SetList, error)
	SetMemberKey(listID, member, key string) (models.SetList, error)
	MarkMemberCompleted(listID, member string, completed bool) (models.SetList, error)
	Flush(ctx context.Context) (syncpkg.FlushReport, error)
	Reconcile(ctx context.Context) (syncpkg.ReconcileReport, error)
	Status() syncpkg.Status
}

var _ SyncEngine = (*syncpkg.Engine)(nil)

// Notifications lists and dismisses active notifications.
type Notifications interface {
	Active() []notify.Notification
	Dismiss(id string) bool
}

var _ Notifications = (*notify.Emitter)(nil)

// Preferences persists UI flags.
type Preferences interface {
	Preference(name string) bool
	SetPreference(name string, value bool) error
}

// onlineSetter is implemented by monitors whose state is set by hand.
type onlineSetter interface {
	SetOnline(online bool)
}

// Deps are the collaborators behind the handlers. Hub may be nil, in which
// case /ws answers 503.
type Deps struct {
	Engine        SyncEngine
	Notifications Notifications
	Preferences   Preferences
	Monitor       connectivity.Monitor
	Hub           *ws.Hub

	// OperationTimeout bounds remote work started by a request (deletes,
	// push, reconcile). Zero means 30s.
	OperationTimeout time.Duration

	Version string
}

// Handler serves the local API.
type Handler struct {
	engine    SyncEngine
	notes     Notifications
	prefs     Preferences
	monitor   connectivity.Monitor
	wsHub     *ws.Hub
	opTimeout time.Duration
	version   string
	startTime time.Time

	middleware *ChiMiddleware
}

// NewHandler creates a Handler. mw supplies CORS, rate limiting and the
// WebSocket origin allow list; nil uses DefaultChiMiddlewareConfig.
func NewHandler(deps Deps, mw *ChiMiddleware) *Handler {
	if mw == nil {
		mw = NewChiMiddleware(nil)
	}
	timeout := deps.OperationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	version := deps.Version
	if version == "" {
		version = "dev"
	}
	return &Handler{
		engine:     deps.Engine,
		notes:      deps.Notifications,
		prefs:      deps.Preferences,
		monitor:    deps.Monitor,
		wsHub:      deps.Hub,
		opTimeout:  timeout,
		version:    version,
		startTime:  time.Now(),
		middleware: mw,
	}
}

// operationContext detaches remote work from the client connection so a
// dropped request does not abort a delete halfway, while keeping the
// request id for logging.
func (h *Handler) operationContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(r.Context())
	return context.WithTimeout(ctx, h.opTimeout)
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins against the
// CORS allow list. Browsers always send Origin, so a missing one is refused.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}
	if h.middleware.allowsOrigin(origin) {
		return true
	}
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// WebSocket upgrades the connection and attaches it to the hub.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "WebSocket service unavailable", ErrHubUnavailable)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
