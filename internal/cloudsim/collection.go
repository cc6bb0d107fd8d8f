// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package cloudsim

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/models"
)

// collectionHandler serves one REST collection backed by a table.
type collectionHandler[T any] struct {
	sim    *Server
	name   models.Collection
	table  *table[T]
	idOf   func(T) string
	withID func(T, string) T
}

func (h *collectionHandler[T]) mount(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.remove)
}

// start reads the body, logs the request and applies latency and faults.
// It reports false when the response has already been written.
func (h *collectionHandler[T]) start(w http.ResponseWriter, r *http.Request, id string) (int, []byte, bool) {
	var body []byte
	if r.Body != nil {
		var err error
		body, err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return -1, nil, false
		}
	}

	idx, forced, latency := h.sim.begin(h.name, r, id, body)
	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-r.Context().Done():
			h.sim.finish(idx, 499)
			return idx, nil, false
		}
	}
	if forced != 0 {
		logging.Debug().Str("collection", h.name.String()).Str("method", r.Method).Str("id", id).Int("status", forced).Msg("cloudsim: forced status")
		h.reply(w, idx, forced, map[string]string{"error": http.StatusText(forced)})
		return idx, nil, false
	}
	return idx, body, true
}

func (h *collectionHandler[T]) reply(w http.ResponseWriter, idx, status int, v interface{}) {
	h.sim.finish(idx, status)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	writeJSON(w, status, v)
}

func (h *collectionHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	idx, _, ok := h.start(w, r, "")
	if !ok {
		return
	}
	h.sim.mu.Lock()
	records := h.table.list()
	h.sim.mu.Unlock()
	h.reply(w, idx, http.StatusOK, records)
}

func (h *collectionHandler[T]) get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	idx, _, ok := h.start(w, r, id)
	if !ok {
		return
	}
	h.sim.mu.Lock()
	rec, found := h.table.rows[id]
	h.sim.mu.Unlock()
	if !found {
		h.reply(w, idx, http.StatusNotFound, map[string]string{"error": h.name.String() + " not found"})
		return
	}
	h.reply(w, idx, http.StatusOK, rec)
}

// create stores a new record. A missing id is assigned; an existing id is
// a conflict.
func (h *collectionHandler[T]) create(w http.ResponseWriter, r *http.Request) {
	idx, body, ok := h.start(w, r, "")
	if !ok {
		return
	}
	var rec T
	if err := json.Unmarshal(body, &rec); err != nil {
		h.reply(w, idx, http.StatusBadRequest, map[string]string{"error": "invalid body: " + err.Error()})
		return
	}
	id := h.idOf(rec)
	if id == "" {
		id = newID()
	}
	rec = h.withID(rec, id)

	h.sim.mu.Lock()
	_, exists := h.table.rows[id]
	if !exists {
		h.table.put(id, rec)
	}
	h.sim.mu.Unlock()

	if exists {
		h.reply(w, idx, http.StatusConflict, map[string]string{"error": h.name.String() + " already exists"})
		return
	}
	h.reply(w, idx, http.StatusCreated, rec)
}

func (h *collectionHandler[T]) update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	idx, body, ok := h.start(w, r, id)
	if !ok {
		return
	}
	var rec T
	if err := json.Unmarshal(body, &rec); err != nil {
		h.reply(w, idx, http.StatusBadRequest, map[string]string{"error": "invalid body: " + err.Error()})
		return
	}
	rec = h.withID(rec, id)

	h.sim.mu.Lock()
	_, exists := h.table.rows[id]
	if exists {
		h.table.put(id, rec)
	}
	h.sim.mu.Unlock()

	if !exists {
		h.reply(w, idx, http.StatusNotFound, map[string]string{"error": h.name.String() + " not found"})
		return
	}
	h.reply(w, idx, http.StatusOK, rec)
}

func (h *collectionHandler[T]) remove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	idx, _, ok := h.start(w, r, id)
	if !ok {
		return
	}
	h.sim.mu.Lock()
	removed := h.table.remove(id)
	h.sim.mu.Unlock()

	if !removed {
		h.reply(w, idx, http.StatusNotFound, map[string]string{"error": h.name.String() + " not found"})
		return
	}
	h.reply(w, idx, http.StatusNoContent, nil)
}
