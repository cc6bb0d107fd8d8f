// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/setlistsync/internal/middleware"
)

// Router builds the HTTP routes for a Handler.
type Router struct {
	handler       *Handler
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router. mw must be the same factory given to
// NewHandler so the WebSocket origin check matches CORS.
func NewRouter(handler *Handler, mw *ChiMiddleware) *Router {
	if mw == nil {
		mw = handler.middleware
	}
	return &Router{handler: handler, chiMiddleware: mw}
}

// SetupChi configures every route.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(middleware.PrometheusMetrics)

		r.Get("/health", router.handler.Health)

		r.Route("/songs", func(r chi.Router) {
			r.Get("/", router.handler.ListSongs)
			r.Post("/", router.handler.CreateSong)
			r.Put("/{id}", router.handler.UpdateSong)
			r.Delete("/{id}", router.handler.DeleteSong)
		})

		r.Route("/setlists", func(r chi.Router) {
			r.Get("/", router.handler.ListSetLists)
			r.Post("/", router.handler.CreateSetList)
			r.Put("/{id}", router.handler.UpdateSetList)
			r.Delete("/{id}", router.handler.DeleteSetList)
			r.Post("/{id}/members", router.handler.AddMember)
			r.Delete("/{id}/members/{member}", router.handler.RemoveMember)
			r.Put("/{id}/keys/{member}", router.handler.SetMemberKey)
			r.Put("/{id}/completed/{member}", router.handler.MarkMemberCompleted)
		})

		r.Get("/notifications", router.handler.ListNotifications)
		r.Delete("/notifications/{id}", router.handler.DismissNotification)

		r.Get("/preferences/{name}", router.handler.GetPreference)
		r.Put("/preferences/{name}", router.handler.SetPreference)

		r.Route("/sync", func(r chi.Router) {
			r.Post("/push", router.handler.SyncPush)
			r.Post("/reconcile", router.handler.SyncReconcile)
			r.Get("/status", router.handler.SyncStatus)
		})

		r.Get("/connectivity", router.handler.GetConnectivity)
		r.Put("/connectivity", router.handler.SetConnectivity)

		r.Get("/ws", router.handler.WebSocket)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "method not allowed", nil)
	})

	return r
}
