// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/models"
)

// ListSongs returns the cached songs.
func (h *Handler) ListSongs(w http.ResponseWriter, r *http.Request) {
	songs := h.engine.Songs()
	respondList(w, songs, len(songs))
}

// CreateSong adds a song; its remote create follows in the background.
func (h *Handler) CreateSong(w http.ResponseWriter, r *http.Request) {
	var in models.SongInput
	if !decodeJSON(w, r, &in) {
		return
	}
	song, err := h.engine.CreateSong(in)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondData(w, http.StatusCreated, song)
}

// UpdateSong replaces the editable fields of a song.
func (h *Handler) UpdateSong(w http.ResponseWriter, r *http.Request) {
	var in models.SongInput
	if !decodeJSON(w, r, &in) {
		return
	}
	song, err := h.engine.UpdateSong(chi.URLParam(r, "id"), in)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondData(w, http.StatusOK, song)
}

// DeleteSong removes a song locally and remotely.
func (h *Handler) DeleteSong(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := h.operationContext(r)
	defer cancel()

	if err := h.engine.DeleteSong(ctx, id); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("song_id", sanitizeLogValue(id)).Msg("Song delete failed")
		respondDeleteError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": id})
}
