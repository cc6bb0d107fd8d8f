// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package models

import (
	"bytes"

	"github.com/goccy/go-json"

	"github.com/tomtom215/setlistsync/internal/validation"
)

// SetList is an ordered programme of songs.
//
// Each member of Songs is either a Song ID or a pending reference: free
// text naming a song that has not been created yet. SongKeys and
// CompletedSongs are keyed by member.
type SetList struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	Songs          []string          `json:"songs"`
	SongKeys       map[string]string `json:"songKeys"`
	CompletedSongs map[string]Millis `json:"completedSongs"`
	CreatedAt      Millis            `json:"createdAt"`
	UpdatedAt      Millis            `json:"updatedAt"`
}

// SetListInput carries the user-editable set-list fields.
type SetListInput struct {
	Name string `json:"name" validate:"required,nosentinel,max=200"`
}

// setListWire mirrors SetList with the member fields left raw so both the
// native and the JSON-stringified encodings decode.
type setListWire struct {
	ID             FlexString      `json:"id"`
	Name           string          `json:"name"`
	Songs          json.RawMessage `json:"songs"`
	SongKeys       json.RawMessage `json:"songKeys"`
	CompletedSongs json.RawMessage `json:"completedSongs"`
	CreatedAt      Millis          `json:"createdAt"`
	UpdatedAt      Millis          `json:"updatedAt"`
}

// UnmarshalJSON decodes a set-list leniently. Undecodable member fields
// become empty rather than failing the record.
func (l *SetList) UnmarshalJSON(data []byte) error {
	var w setListWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*l = SetList{
		ID:        string(w.ID),
		Name:      w.Name,
		CreatedAt: w.CreatedAt,
		UpdatedAt: w.UpdatedAt,
	}

	var members []FlexString
	if decodeMaybeStringified(w.Songs, &members) {
		l.Songs = make([]string, 0, len(members))
		for _, m := range members {
			if m != "" {
				l.Songs = append(l.Songs, string(m))
			}
		}
	}

	var keys map[string]FlexString
	if decodeMaybeStringified(w.SongKeys, &keys) {
		l.SongKeys = make(map[string]string, len(keys))
		for k, v := range keys {
			l.SongKeys[k] = string(v)
		}
	}

	var completed map[string]Millis
	if decodeMaybeStringified(w.CompletedSongs, &completed) {
		l.CompletedSongs = completed
	}

	l.Normalize()
	return nil
}

// decodeMaybeStringified decodes raw into dst, first unwrapping one level of
// JSON string encoding when present. It reports success.
func decodeMaybeStringified(raw json.RawMessage, dst interface{}) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	if raw[0] == '"' {
		var inner string
		if err := json.Unmarshal(raw, &inner); err != nil || inner == "" {
			return false
		}
		raw = []byte(inner)
	}
	return json.Unmarshal(raw, dst) == nil
}

// MarshalStringified encodes l with Songs, SongKeys and CompletedSongs as
// JSON strings, the form some servers expect on create.
func (l SetList) MarshalStringified() ([]byte, error) {
	l.Normalize()
	songs, err := json.Marshal(l.Songs)
	if err != nil {
		return nil, err
	}
	keys, err := json.Marshal(l.SongKeys)
	if err != nil {
		return nil, err
	}
	completed, err := json.Marshal(l.CompletedSongs)
	if err != nil {
		return nil, err
	}
	return json.Marshal(struct {
		ID             string `json:"id"`
		Name           string `json:"name"`
		Songs          string `json:"songs"`
		SongKeys       string `json:"songKeys"`
		CompletedSongs string `json:"completedSongs"`
		CreatedAt      Millis `json:"createdAt"`
		UpdatedAt      Millis `json:"updatedAt"`
	}{
		ID:             l.ID,
		Name:           l.Name,
		Songs:          string(songs),
		SongKeys:       string(keys),
		CompletedSongs: string(completed),
		CreatedAt:      l.CreatedAt,
		UpdatedAt:      l.UpdatedAt,
	})
}

// Valid reports whether l may be stored: non-empty name without the draft
// sentinel.
func (l *SetList) Valid() bool {
	return l.Name != "" && !validation.IsDraftName(l.Name)
}

// Normalize replaces nil collections with empty ones.
func (l *SetList) Normalize() {
	if l.Songs == nil {
		l.Songs = []string{}
	}
	if l.SongKeys == nil {
		l.SongKeys = map[string]string{}
	}
	if l.CompletedSongs == nil {
		l.CompletedSongs = map[string]Millis{}
	}
}

// Clone returns a deep copy.
func (l SetList) Clone() SetList {
	out := l
	out.Songs = append([]string(nil), l.Songs...)
	out.SongKeys = make(map[string]string, len(l.SongKeys))
	for k, v := range l.SongKeys {
		out.SongKeys[k] = v
	}
	out.CompletedSongs = make(map[string]Millis, len(l.CompletedSongs))
	for k, v := range l.CompletedSongs {
		out.CompletedSongs[k] = v
	}
	if out.Songs == nil {
		out.Songs = []string{}
	}
	return out
}

// CloneSetLists deep-copies a slice of set-lists.
func CloneSetLists(in []SetList) []SetList {
	out := make([]SetList, len(in))
	for i := range in {
		out[i] = in[i].Clone()
	}
	return out
}

// FilterSetLists keeps only valid set-lists, normalized.
func FilterSetLists(in []SetList) []SetList {
	out := make([]SetList, 0, len(in))
	for _, l := range in {
		if !l.Valid() {
			continue
		}
		l.Normalize()
		out = append(out, l)
	}
	return out
}

// HasMember reports whether member is in the programme.
func (l *SetList) HasMember(member string) bool {
	for _, m := range l.Songs {
		if m == member {
			return true
		}
	}
	return false
}

// AddMember appends member unless it is already present.
func (l *SetList) AddMember(member string) bool {
	if member == "" || l.HasMember(member) {
		return false
	}
	l.Songs = append(l.Songs, member)
	return true
}

// RemoveMember drops every occurrence of member together with its key
// override and completion mark.
func (l *SetList) RemoveMember(member string) bool {
	kept := l.Songs[:0:0]
	for _, m := range l.Songs {
		if m != member {
			kept = append(kept, m)
		}
	}
	removed := len(kept) != len(l.Songs)
	l.Songs = kept
	if _, ok := l.SongKeys[member]; ok {
		delete(l.SongKeys, member)
		removed = true
	}
	if _, ok := l.CompletedSongs[member]; ok {
		delete(l.CompletedSongs, member)
		removed = true
	}
	return removed
}

// PendingReferences returns the members that match no known song ID.
func (l *SetList) PendingReferences(songIDs map[string]struct{}) []string {
	var pending []string
	for _, m := range l.Songs {
		if _, ok := songIDs[m]; !ok {
			pending = append(pending, m)
		}
	}
	return pending
}

// SongIDSet indexes song IDs for membership checks.
func SongIDSet(songs []Song) map[string]struct{} {
	ids := make(map[string]struct{}, len(songs))
	for _, s := range songs {
		ids[s.ID] = struct{}{}
	}
	return ids
}
