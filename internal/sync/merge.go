// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package sync

import "github.com/tomtom215/setlistsync/internal/models"

// MergeStats counts what a merge did with the remote records.
type MergeStats struct {
	Appended  int `json:"appended"`
	Replaced  int `json:"replaced"`
	KeptLocal int `json:"kept_local"`
}

// Changed reports whether the merge altered the local collection.
func (s MergeStats) Changed() bool {
	return s.Appended > 0 || s.Replaced > 0
}

// MergeSongs folds remote songs into local using last-writer-wins on
// UpdatedAt. Neither input is modified.
func MergeSongs(local, remote []models.Song) ([]models.Song, MergeStats) {
	return mergeByID(
		models.CloneSongs(local), remote,
		func(s models.Song) string { return s.ID },
		func(s models.Song) models.Millis { return s.UpdatedAt },
		models.Song.Clone,
	)
}

// MergeSetLists folds remote set-lists into local using last-writer-wins on
// UpdatedAt. Neither input is modified.
func MergeSetLists(local, remote []models.SetList) ([]models.SetList, MergeStats) {
	return mergeByID(
		models.CloneSetLists(local), remote,
		func(l models.SetList) string { return l.ID },
		func(l models.SetList) models.Millis { return l.UpdatedAt },
		models.SetList.Clone,
	)
}

// mergeByID keeps the strictly newer copy of every record present on both
// sides and appends remote records with unknown IDs in remote order.
// Records without an ID are ignored.
func mergeByID[T any](merged, remote []T, idOf func(T) string, updatedOf func(T) models.Millis, clone func(T) T) ([]T, MergeStats) {
	var stats MergeStats

	index := make(map[string]int, len(merged)+len(remote))
	for i, rec := range merged {
		if id := idOf(rec); id != "" {
			if _, dup := index[id]; !dup {
				index[id] = i
			}
		}
	}

	for _, rec := range remote {
		id := idOf(rec)
		if id == "" {
			continue
		}
		pos, found := index[id]
		if !found {
			index[id] = len(merged)
			merged = append(merged, clone(rec))
			stats.Appended++
			continue
		}
		if updatedOf(rec) > updatedOf(merged[pos]) {
			merged[pos] = clone(rec)
			stats.Replaced++
			continue
		}
		stats.KeptLocal++
	}

	return merged, stats
}
