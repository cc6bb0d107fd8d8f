// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package sync

import (
	"testing"

	"github.com/tomtom215/setlistsync/internal/models"
)

func TestMergeSongsLastWriterWins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		localTS     models.Millis
		remoteTS    models.Millis
		wantTitle   string
		wantReplace int
	}{
		{"remote newer", 1000, 2000, "remote", 1},
		{"local newer", 2000, 1000, "local", 0},
		{"tie keeps local", 1500, 1500, "local", 0},
		{"missing remote timestamp", 1000, 0, "local", 0},
		{"missing local timestamp", 0, 1, "remote", 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			local := []models.Song{song("s1", "local", tt.localTS)}
			remote := []models.Song{song("s1", "remote", tt.remoteTS)}

			merged, stats := MergeSongs(local, remote)
			checkIntEqual(t, "len", len(merged), 1)
			checkStringEqual(t, "title", merged[0].Title, tt.wantTitle)
			checkIntEqual(t, "replaced", stats.Replaced, tt.wantReplace)
			checkIntEqual(t, "kept local", stats.KeptLocal, 1-tt.wantReplace)
		})
	}
}

func TestMergeSongsAppendsUnknown(t *testing.T) {
	t.Parallel()

	local := []models.Song{song("a", "A", 1)}
	remote := []models.Song{song("b", "B", 1), song("c", "C", 1)}

	merged, stats := MergeSongs(local, remote)
	ids := make([]string, len(merged))
	for i, s := range merged {
		ids[i] = s.ID
	}
	checkStrings(t, "ids", ids, []string{"a", "b", "c"})
	checkIntEqual(t, "appended", stats.Appended, 2)
	checkTrue(t, "merge to report a change", stats.Changed())
}

func TestMergeIsIdempotent(t *testing.T) {
	t.Parallel()

	local := []models.SetList{setList("l1", "Sunday", 1000, "s1")}
	remote := []models.SetList{
		setList("l1", "Sunday evening", 2000, "s1", "s2"),
		setList("l2", "Wedding", 500, "Pending Song"),
	}

	once, _ := MergeSetLists(local, remote)
	twice, stats := MergeSetLists(once, remote)

	checkIntEqual(t, "len", len(twice), len(once))
	checkTrue(t, "second merge to change nothing", !stats.Changed())
	checkIntEqual(t, "kept local", stats.KeptLocal, 2)
	for i := range once {
		checkStringEqual(t, "id", twice[i].ID, once[i].ID)
		checkStringEqual(t, "name", twice[i].Name, once[i].Name)
		checkStrings(t, "members", twice[i].Songs, once[i].Songs)
	}
}

func TestMergeDoesNotModifyInputs(t *testing.T) {
	t.Parallel()

	local := []models.SetList{setList("l1", "Old", 1, "a")}
	remote := []models.SetList{setList("l1", "New", 2, "b")}

	merged, _ := MergeSetLists(local, remote)
	merged[0].Songs[0] = "mutated"

	checkStringEqual(t, "local name", local[0].Name, "Old")
	checkStringEqual(t, "remote member", remote[0].Songs[0], "b")
}

func TestMergeIgnoresRecordsWithoutID(t *testing.T) {
	t.Parallel()

	merged, stats := MergeSongs(nil, []models.Song{song("", "orphan", 5), song("", "orphan 2", 6)})
	checkIntEqual(t, "len", len(merged), 0)
	checkTrue(t, "no change", !stats.Changed())
}

func TestMergeDuplicateRemoteIDs(t *testing.T) {
	t.Parallel()

	remote := []models.Song{song("s1", "first", 1), song("s1", "second", 2)}
	merged, stats := MergeSongs(nil, remote)

	checkIntEqual(t, "len", len(merged), 1)
	checkStringEqual(t, "title", merged[0].Title, "second")
	checkIntEqual(t, "appended", stats.Appended, 1)
	checkIntEqual(t, "replaced", stats.Replaced, 1)
}
