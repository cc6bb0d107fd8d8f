// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package store

import (
	"bytes"

	"github.com/goccy/go-json"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/metrics"
	"github.com/tomtom215/setlistsync/internal/models"
)

// deprecatedSongFields are removed from cached songs on read. The next save
// drops them from disk.
var deprecatedSongFields = []string{"melody"}

// SanitizeSongs decodes a persisted songs collection. Non-array input yields
// an empty list; entries that are not objects or lack title, artist or
// lyrics are dropped.
func SanitizeSongs(raw []byte) []models.Song {
	elems, ok := splitArray(models.CollectionSongs, raw)
	if !ok {
		return []models.Song{}
	}

	songs := make([]models.Song, 0, len(elems))
	stripped := 0
	for _, elem := range elems {
		cleaned, removed, ok := stripDeprecatedFields(elem)
		if !ok {
			continue
		}
		stripped += removed

		var song models.Song
		if err := json.Unmarshal(cleaned, &song); err != nil {
			continue
		}
		if !song.Valid() {
			continue
		}
		song.Normalize()
		songs = append(songs, song)
	}

	reportDropped(models.CollectionSongs, len(elems)-len(songs))
	if stripped > 0 {
		logging.Debug().Int("fields", stripped).Msg("Stripped deprecated song fields")
	}
	return songs
}

// stripDeprecatedFields removes deprecatedSongFields from one encoded song
// and reports how many were present. ok is false when elem is not a JSON
// object.
func stripDeprecatedFields(elem json.RawMessage) (json.RawMessage, int, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
		return nil, 0, false
	}
	removed := 0
	for _, f := range deprecatedSongFields {
		if _, ok := fields[f]; ok {
			delete(fields, f)
			removed++
		}
	}
	if removed == 0 {
		return elem, 0, true
	}
	cleaned, err := json.Marshal(fields)
	if err != nil {
		return nil, 0, false
	}
	return cleaned, removed, true
}

// SanitizeSetLists decodes a persisted set-lists collection. Non-array input
// yields an empty list; falsy entries, entries with an empty name and
// placeholder drafts are dropped.
func SanitizeSetLists(raw []byte) []models.SetList {
	elems, ok := splitArray(models.CollectionSetLists, raw)
	if !ok {
		return []models.SetList{}
	}

	lists := make([]models.SetList, 0, len(elems))
	for _, elem := range elems {
		if isFalsy(elem) {
			continue
		}
		var l models.SetList
		if err := json.Unmarshal(elem, &l); err != nil {
			continue
		}
		if !l.Valid() {
			continue
		}
		lists = append(lists, l)
	}

	reportDropped(models.CollectionSetLists, len(elems)-len(lists))
	return lists
}

// splitArray returns the raw elements of a JSON array. ok is false when the
// input is absent or is not an array.
func splitArray(c models.Collection, raw []byte) ([]json.RawMessage, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		logging.Warn().Err(err).Str("collection", c.String()).Msg("Cached collection is not a JSON array, resetting")
		return nil, false
	}
	return elems, true
}

func isFalsy(elem json.RawMessage) bool {
	switch string(bytes.TrimSpace(elem)) {
	case "", "null", "false", "0", `""`:
		return true
	}
	return false
}

func reportDropped(c models.Collection, n int) {
	if n <= 0 {
		return
	}
	metrics.StoreRecordsDropped.WithLabelValues(c.String()).Add(float64(n))
	logging.Debug().Str("collection", c.String()).Int("dropped", n).Msg("Dropped malformed cached records")
}
