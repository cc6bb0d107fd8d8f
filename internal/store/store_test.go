// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package store

import (
	"errors"
	"strings"
	"testing"

	"github.com/tomtom215/setlistsync/internal/models"
)

func TestSanitizeSongs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want int
	}{
		{"absent", ``, 0},
		{"not an array", `{"id":"s1"}`, 0},
		{"corrupt", `[{"id":`, 0},
		{"drops non-objects", `[1, "x", null, {"id":"s1","title":"T","artist":"A","lyrics":"L"}]`, 1},
		{"drops missing lyrics", `[{"id":"s1","title":"T","artist":"A"},{"id":"s2","title":"T","artist":"A","lyrics":"L"}]`, 1},
		{"drops empty title", `[{"id":"s1","title":"","artist":"A","lyrics":"L"}]`, 0},
		{"drops wrongly typed", `[{"id":"s1","title":["T"],"artist":"A","lyrics":"L"}]`, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeSongs([]byte(tt.raw))
			checkTrue(t, "non-nil result", got != nil)
			checkIntEqual(t, "songs", len(got), tt.want)
		})
	}
}

func TestSanitizeSongsStripsDeprecatedFields(t *testing.T) {
	s := newTestStore(t)

	raw := `[{"id":"s1","title":"T","artist":"A","lyrics":"L","melody":"C D E"}]`
	checkNoError(t, s.WriteRawCollection(models.CollectionSongs, []byte(raw)))

	songs := s.LoadSongs()
	checkIntEqual(t, "songs", len(songs), 1)
	checkNoError(t, s.SaveSongs(songs))

	persisted, err := s.RawCollection(models.CollectionSongs)
	checkNoError(t, err)
	checkTrue(t, "melody removed from disk", !strings.Contains(string(persisted), "melody"))
}

func TestStripDeprecatedFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		raw         string
		wantRemoved int
		wantOK      bool
	}{
		{"melody present", `{"id":"s1","title":"T","melody":"C D E"}`, 1, true},
		{"nothing to strip", `{"id":"s1","title":"T"}`, 0, true},
		{"not an object", `[1,2]`, 0, false},
		{"null", `null`, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleaned, removed, ok := stripDeprecatedFields([]byte(tt.raw))
			checkTrue(t, "ok", ok == tt.wantOK)
			checkIntEqual(t, "removed", removed, tt.wantRemoved)
			if ok {
				checkTrue(t, "melody gone", !strings.Contains(string(cleaned), "melody"))
				checkTrue(t, "title kept", strings.Contains(string(cleaned), `"title":"T"`))
			}
		})
	}
}

func TestSanitizeSongsNumericID(t *testing.T) {
	t.Parallel()

	songs := SanitizeSongs([]byte(`[{"id":42,"title":"T","artist":"A","lyrics":"L"}]`))
	checkIntEqual(t, "songs", len(songs), 1)
	if len(songs) == 1 {
		checkTrue(t, "id decoded as string", songs[0].ID == "42")
	}
}

func TestSanitizeSetLists(t *testing.T) {
	t.Parallel()

	raw := `[
		null, false, 0, "",
		{"id":"l0","name":""},
		{"id":"l1","name":"Untitled Draft"},
		{"id":"l2","name":"draft UNTITLED 2"},
		{"id":"l3","name":"Sunday","songs":["s1","Pending Tune"]}
	]`

	got := SanitizeSetLists([]byte(raw))
	checkIntEqual(t, "set-lists", len(got), 1)
	if got[0].ID != "l3" {
		t.Fatalf("expected l3 to survive, got %q", got[0].ID)
	}
	checkIntEqual(t, "members", len(got[0].Songs), 2)

	checkIntEqual(t, "non-array", len(SanitizeSetLists([]byte(`"hello"`))), 0)
}

func TestIsEmpty(t *testing.T) {
	s := newTestStore(t)

	checkTrue(t, "absent key is empty", s.IsEmpty(models.CollectionSongs))

	for _, raw := range []string{"", "  ", "[]", "[ ]", "null"} {
		checkNoError(t, s.WriteRawCollection(models.CollectionSongs, []byte(raw)))
		checkTrue(t, "empty for "+raw, s.IsEmpty(models.CollectionSongs))
	}

	checkNoError(t, s.SaveSongs([]models.Song{{ID: "s1", Title: "T", Artist: "A", Lyrics: "L"}}))
	checkTrue(t, "populated collection is not empty", !s.IsEmpty(models.CollectionSongs))
	checkTrue(t, "set-lists still empty", s.IsEmpty(models.CollectionSetLists))
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	s := newTestStore(t)

	lists := []models.SetList{
		{ID: "l1", Name: "Gig", Songs: []string{"s1"}, SongKeys: map[string]string{"s1": "A"}, UpdatedAt: 10},
		{ID: "l2", Name: "Untitled"},
	}
	checkNoError(t, s.SaveSetLists(lists))

	loaded := s.LoadSetLists()
	checkIntEqual(t, "set-lists", len(loaded), 1)
	if loaded[0].SongKeys["s1"] != "A" || loaded[0].UpdatedAt != 10 {
		t.Errorf("unexpected set-list: %+v", loaded[0])
	}
}

func TestSaveAfterClose(t *testing.T) {
	s, err := OpenInMemory()
	checkNoError(t, err)
	checkNoError(t, s.Close())

	err = s.SaveSongs(nil)
	checkError(t, err)
	checkTrue(t, "ErrClosed", errors.Is(err, ErrClosed))

	checkIntEqual(t, "load after close", len(s.LoadSongs()), 0)
	checkTrue(t, "closed store reports empty", s.IsEmpty(models.CollectionSongs))
}

func TestPreferences(t *testing.T) {
	s := newTestStore(t)

	checkTrue(t, "unset preference is false", !s.Preference("show_chords"))
	checkNoError(t, s.SetPreference("show_chords", true))
	checkTrue(t, "preference persisted", s.Preference("show_chords"))
	checkNoError(t, s.SetPreference("show_chords", false))
	checkTrue(t, "preference cleared", !s.Preference("show_chords"))
}

func TestOpenOnDisk(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(Config{Path: dir, SyncWrites: true})
	checkNoError(t, err)
	checkNoError(t, s.SaveSongs([]models.Song{{ID: "s1", Title: "T", Artist: "A", Lyrics: "L"}}))
	checkNoError(t, s.Close())

	reopened, err := Open(Config{Path: dir})
	checkNoError(t, err)
	defer func() { _ = reopened.Close() }()
	checkIntEqual(t, "songs after reopen", len(reopened.LoadSongs()), 1)
}
