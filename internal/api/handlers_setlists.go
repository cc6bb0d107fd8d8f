// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package api

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/validation"
)

// MemberRequest adds a song or a pending reference to a set-list.
type MemberRequest struct {
	SongID string `json:"songId" validate:"required,max=200"`
}

// KeyRequest sets the key a member is played in. An empty key clears it.
type KeyRequest struct {
	Key string `json:"key" validate:"max=16"`
}

// CompletedRequest marks or unmarks a member as played.
type CompletedRequest struct {
	Completed bool `json:"completed"`
}

// ListSetLists returns the cached set-lists.
func (h *Handler) ListSetLists(w http.ResponseWriter, r *http.Request) {
	lists := h.engine.SetLists()
	respondList(w, lists, len(lists))
}

// CreateSetList adds an empty set-list.
func (h *Handler) CreateSetList(w http.ResponseWriter, r *http.Request) {
	var in models.SetListInput
	if !decodeJSON(w, r, &in) {
		return
	}
	list, err := h.engine.CreateSetList(in)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondData(w, http.StatusCreated, list)
}

// UpdateSetList renames a set-list.
func (h *Handler) UpdateSetList(w http.ResponseWriter, r *http.Request) {
	var in models.SetListInput
	if !decodeJSON(w, r, &in) {
		return
	}
	list, err := h.engine.UpdateSetList(chi.URLParam(r, "id"), in)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondData(w, http.StatusOK, list)
}

// DeleteSetList removes a set-list locally and remotely.
func (h *Handler) DeleteSetList(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ctx, cancel := h.operationContext(r)
	defer cancel()

	if err := h.engine.DeleteSetList(ctx, id); err != nil {
		logging.Ctx(r.Context()).Warn().Err(err).Str("setlist_id", sanitizeLogValue(id)).Msg("Set-list delete failed")
		respondDeleteError(w, err)
		return
	}
	respondData(w, http.StatusOK, map[string]string{"id": id})
}

// AddMember appends a member to a set-list.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	var req MemberRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		respondEngineError(w, err)
		return
	}
	list, err := h.engine.AddMember(chi.URLParam(r, "id"), req.SongID)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondData(w, http.StatusOK, list)
}

// memberParam returns the decoded {member} path segment. Pending references
// are free text, so a member containing "/" arrives escaped and chi matches
// it against the raw path without decoding it.
func memberParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	member := chi.URLParam(r, "member")
	if r.URL.RawPath == "" {
		return member, true
	}
	decoded, err := url.PathUnescape(member)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, "invalid member path segment", err)
		return "", false
	}
	return decoded, true
}

// RemoveMember drops a member with its key and completion mark.
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	member, ok := memberParam(w, r)
	if !ok {
		return
	}
	list, err := h.engine.RemoveMember(chi.URLParam(r, "id"), member)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondData(w, http.StatusOK, list)
}

// SetMemberKey overrides the key of a member.
func (h *Handler) SetMemberKey(w http.ResponseWriter, r *http.Request) {
	member, ok := memberParam(w, r)
	if !ok {
		return
	}
	var req KeyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		respondEngineError(w, err)
		return
	}
	list, err := h.engine.SetMemberKey(chi.URLParam(r, "id"), member, req.Key)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondData(w, http.StatusOK, list)
}

// MarkMemberCompleted sets or clears the completion mark of a member.
func (h *Handler) MarkMemberCompleted(w http.ResponseWriter, r *http.Request) {
	member, ok := memberParam(w, r)
	if !ok {
		return
	}
	var req CompletedRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	list, err := h.engine.MarkMemberCompleted(chi.URLParam(r, "id"), member, req.Completed)
	if err != nil {
		respondEngineError(w, err)
		return
	}
	respondData(w, http.StatusOK, list)
}
