// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package api

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/notify"
	syncpkg "github.com/tomtom215/setlistsync/internal/sync"
	"github.com/tomtom215/setlistsync/internal/validation"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

// fakeEngine is an in-memory SyncEngine. Errors set in errs are returned
// by the method of the same name.
type fakeEngine struct {
	mu       sync.Mutex
	songs    []models.Song
	lists    []models.SetList
	errs     map[string]error
	calls    []string
	status   syncpkg.Status
	flushed  syncpkg.FlushReport
	nextID   int
	deleteTo context.Context
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		errs:   map[string]error{},
		status: syncpkg.Status{Initialized: true, InitialLoadComplete: true, Online: true},
	}
}

func (f *fakeEngine) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeEngine) Songs() []models.Song {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.CloneSongs(f.songs)
}

func (f *fakeEngine) SetLists() []models.SetList {
	f.mu.Lock()
	defer f.mu.Unlock()
	return models.CloneSetLists(f.lists)
}

func (f *fakeEngine) CreateSong(in models.SongInput) (models.Song, error) {
	if err := validation.ValidateStruct(in); err != nil {
		return models.Song{}, fmt.Errorf("%w: %w", syncpkg.ErrInvalid, err)
	}
	if err := f.record("CreateSong"); err != nil {
		return models.Song{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	s := models.Song{ID: fmt.Sprintf("song-%d", f.nextID)}
	in.Apply(&s)
	f.songs = append(f.songs, s)
	return s, nil
}

func (f *fakeEngine) UpdateSong(id string, in models.SongInput) (models.Song, error) {
	if err := f.record("UpdateSong"); err != nil {
		return models.Song{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.songs {
		if f.songs[i].ID == id {
			in.Apply(&f.songs[i])
			return f.songs[i], nil
		}
	}
	return models.Song{}, fmt.Errorf("song %s: %w", id, syncpkg.ErrNotFound)
}

func (f *fakeEngine) DeleteSong(ctx context.Context, id string) error {
	f.mu.Lock()
	f.deleteTo = ctx
	f.mu.Unlock()
	return f.record("DeleteSong")
}

func (f *fakeEngine) CreateSetList(in models.SetListInput) (models.SetList, error) {
	if err := validation.ValidateStruct(in); err != nil {
		return models.SetList{}, fmt.Errorf("%w: %w", syncpkg.ErrInvalid, err)
	}
	if err := f.record("CreateSetList"); err != nil {
		return models.SetList{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	l := models.SetList{ID: fmt.Sprintf("list-%d", f.nextID), Name: in.Name}
	l.Normalize()
	f.lists = append(f.lists, l)
	return l, nil
}

func (f *fakeEngine) UpdateSetList(id string, in models.SetListInput) (models.SetList, error) {
	return f.mutate("UpdateSetList", id, func(l *models.SetList) error {
		l.Name = in.Name
		return nil
	})
}

func (f *fakeEngine) DeleteSetList(ctx context.Context, id string) error {
	return f.record("DeleteSetList")
}

func (f *fakeEngine) AddMember(listID, member string) (models.SetList, error) {
	return f.mutate("AddMember", listID, func(l *models.SetList) error {
		l.AddMember(member)
		return nil
	})
}

func (f *fakeEngine) RemoveMember(listID, member string) (models.SetList, error) {
	return f.mutate("RemoveMember", listID, func(l *models.SetList) error {
		if !l.RemoveMember(member) {
			return fmt.Errorf("member %q: %w", member, syncpkg.ErrNotFound)
		}
		return nil
	})
}

func (f *fakeEngine) SetMemberKey(listID, member, key string) (models.SetList, error) {
	return f.mutate("SetMemberKey", listID, func(l *models.SetList) error {
		l.SongKeys[member] = key
		return nil
	})
}

func (f *fakeEngine) MarkMemberCompleted(listID, member string, completed bool) (models.SetList, error) {
	return f.mutate("MarkMemberCompleted", listID, func(l *models.SetList) error {
		if completed {
			l.CompletedSongs[member] = 1
		}
		return nil
	})
}

func (f *fakeEngine) mutate(name, id string, fn func(l *models.SetList) error) (models.SetList, error) {
	if err := f.record(name); err != nil {
		return models.SetList{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.lists {
		if f.lists[i].ID == id {
			if err := fn(&f.lists[i]); err != nil {
				return models.SetList{}, err
			}
			return f.lists[i].Clone(), nil
		}
	}
	return models.SetList{}, fmt.Errorf("setlist %s: %w", id, syncpkg.ErrNotFound)
}

func (f *fakeEngine) Flush(ctx context.Context) (syncpkg.FlushReport, error) {
	if err := f.record("Flush"); err != nil {
		return syncpkg.FlushReport{}, fmt.Errorf("push songs: %w", err)
	}
	return f.flushed, nil
}

func (f *fakeEngine) Reconcile(ctx context.Context) (syncpkg.ReconcileReport, error) {
	if err := f.record("Reconcile"); err != nil {
		return syncpkg.ReconcileReport{}, err
	}
	return syncpkg.ReconcileReport{RunID: "run1"}, nil
}

func (f *fakeEngine) Status() syncpkg.Status {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.status
}

type fakePrefs struct {
	mu     sync.Mutex
	values map[string]bool
	err    error
}

func (p *fakePrefs) Preference(name string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.values[name]
}

func (p *fakePrefs) SetPreference(name string, value bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.values[name] = value
	return nil
}

var _ Notifications = (*notify.Emitter)(nil)
