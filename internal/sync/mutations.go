// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/validation"
)

// Songs returns the cached songs.
func (e *Engine) Songs() []models.Song {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.LoadSongs()
}

// SetLists returns the cached set-lists.
func (e *Engine) SetLists() []models.SetList {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.LoadSetLists()
}

// Song returns one cached song.
func (e *Engine) Song(id string) (models.Song, error) {
	for _, s := range e.Songs() {
		if s.ID == id {
			return s, nil
		}
	}
	return models.Song{}, fmt.Errorf("song %s: %w", id, ErrNotFound)
}

// SetList returns one cached set-list.
func (e *Engine) SetList(id string) (models.SetList, error) {
	for _, l := range e.SetLists() {
		if l.ID == id {
			return l, nil
		}
	}
	return models.SetList{}, fmt.Errorf("setlist %s: %w", id, ErrNotFound)
}

// touch returns a fresh UpdatedAt that is strictly newer than prev, so an
// edit always wins against the copy it replaced.
func touch(prev models.Millis) models.Millis {
	now := models.Now()
	if now <= prev {
		return prev + 1
	}
	return now
}

func validate(in interface{}) error {
	if err := validation.ValidateStruct(in); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// CreateSong adds a song with a fresh ID and schedules its create.
func (e *Engine) CreateSong(in models.SongInput) (models.Song, error) {
	if err := validate(in); err != nil {
		return models.Song{}, err
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return models.Song{}, ErrDisposed
	}
	now := models.Now()
	song := models.Song{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
	in.Apply(&song)
	song.Normalize()

	songs := append(e.store.LoadSongs(), song)
	_ = e.store.SaveSongs(songs)
	e.markSongLocked(song.ID, intentCreate)
	e.mu.Unlock()

	e.publishSongs(songs)
	e.OnMutate(models.CollectionSongs, song.ID)
	return song, nil
}

// UpdateSong replaces the editable fields of a song and schedules its
// update.
func (e *Engine) UpdateSong(id string, in models.SongInput) (models.Song, error) {
	if err := validate(in); err != nil {
		return models.Song{}, err
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return models.Song{}, ErrDisposed
	}
	songs := e.store.LoadSongs()
	idx := indexOfSong(songs, id)
	if idx < 0 {
		e.mu.Unlock()
		return models.Song{}, fmt.Errorf("song %s: %w", id, ErrNotFound)
	}
	in.Apply(&songs[idx])
	songs[idx].UpdatedAt = touch(songs[idx].UpdatedAt)
	songs[idx].Normalize()
	updated := songs[idx].Clone()
	_ = e.store.SaveSongs(songs)
	e.markSongLocked(id, intentUpdate)
	e.mu.Unlock()

	e.publishSongs(songs)
	e.OnMutate(models.CollectionSongs, id)
	return updated, nil
}

// DeleteSong removes a song locally, prunes it from every set-list and
// deletes it remotely. The local removal stands even when the remote delete
// fails; the error is returned so the caller can decide what to do.
func (e *Engine) DeleteSong(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	songs := e.store.LoadSongs()
	idx := indexOfSong(songs, id)
	if idx < 0 {
		e.mu.Unlock()
		return fmt.Errorf("song %s: %w", id, ErrNotFound)
	}
	songs = append(songs[:idx], songs[idx+1:]...)
	_ = e.store.SaveSongs(songs)
	delete(e.dirty, id)

	lists := e.store.LoadSetLists()
	pruned := false
	for i := range lists {
		if lists[i].RemoveMember(id) {
			lists[i].UpdatedAt = touch(lists[i].UpdatedAt)
			pruned = true
		}
	}
	if pruned {
		_ = e.store.SaveSetLists(lists)
		e.setListsPending = true
	}
	e.mu.Unlock()

	e.publishSongs(songs)
	if pruned {
		e.publishSetLists(lists)
		e.scheduleSetListPush()
	}
	return e.deleteRemote(ctx, models.CollectionSongs, id)
}

// CreateSetList adds an empty set-list and schedules the set-list push.
func (e *Engine) CreateSetList(in models.SetListInput) (models.SetList, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return models.SetList{}, err
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return models.SetList{}, ErrDisposed
	}
	now := models.Now()
	list := models.SetList{ID: uuid.New().String(), Name: in.Name, CreatedAt: now, UpdatedAt: now}
	list.Normalize()

	lists := append(e.store.LoadSetLists(), list)
	_ = e.store.SaveSetLists(lists)
	e.mu.Unlock()

	e.publishSetLists(lists)
	e.OnMutate(models.CollectionSetLists, list.ID)
	return list.Clone(), nil
}

// UpdateSetList renames a set-list.
func (e *Engine) UpdateSetList(id string, in models.SetListInput) (models.SetList, error) {
	in.Name = strings.TrimSpace(in.Name)
	if err := validate(in); err != nil {
		return models.SetList{}, err
	}
	return e.mutateSetList(id, func(l *models.SetList) (bool, error) {
		if l.Name == in.Name {
			return false, nil
		}
		l.Name = in.Name
		return true, nil
	})
}

// DeleteSetList removes a set-list locally and deletes it remotely. As
// with DeleteSong the remote error is returned.
func (e *Engine) DeleteSetList(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	lists := e.store.LoadSetLists()
	idx := indexOfSetList(lists, id)
	if idx < 0 {
		e.mu.Unlock()
		return fmt.Errorf("setlist %s: %w", id, ErrNotFound)
	}
	lists = append(lists[:idx], lists[idx+1:]...)
	_ = e.store.SaveSetLists(lists)
	e.mu.Unlock()

	e.publishSetLists(lists)
	return e.deleteRemote(ctx, models.CollectionSetLists, id)
}

// AddMember appends a song ID or a pending reference to a set-list. Adding
// a member that is already present changes nothing.
func (e *Engine) AddMember(listID, member string) (models.SetList, error) {
	member = strings.TrimSpace(member)
	if member == "" {
		return models.SetList{}, fmt.Errorf("%w: member is required", ErrInvalid)
	}
	return e.mutateSetList(listID, func(l *models.SetList) (bool, error) {
		return l.AddMember(member), nil
	})
}

// RemoveMember drops a member together with its key override and
// completion mark.
func (e *Engine) RemoveMember(listID, member string) (models.SetList, error) {
	return e.mutateSetList(listID, func(l *models.SetList) (bool, error) {
		if !l.RemoveMember(member) {
			return false, fmt.Errorf("member %q: %w", member, ErrNotFound)
		}
		return true, nil
	})
}

// SetMemberKey overrides the key a member is played in. An empty key
// removes the override.
func (e *Engine) SetMemberKey(listID, member, key string) (models.SetList, error) {
	key = strings.TrimSpace(key)
	return e.mutateSetList(listID, func(l *models.SetList) (bool, error) {
		if !l.HasMember(member) {
			return false, fmt.Errorf("member %q: %w", member, ErrNotFound)
		}
		prev, had := l.SongKeys[member]
		if key == "" {
			delete(l.SongKeys, member)
			return had, nil
		}
		l.SongKeys[member] = key
		return !had || prev != key, nil
	})
}

// MarkMemberCompleted sets or clears the completion mark of a member.
func (e *Engine) MarkMemberCompleted(listID, member string, completed bool) (models.SetList, error) {
	return e.mutateSetList(listID, func(l *models.SetList) (bool, error) {
		if !l.HasMember(member) {
			return false, fmt.Errorf("member %q: %w", member, ErrNotFound)
		}
		_, had := l.CompletedSongs[member]
		if !completed {
			delete(l.CompletedSongs, member)
			return had, nil
		}
		l.CompletedSongs[member] = models.Now()
		return true, nil
	})
}

// mutateSetList applies fn to one set-list. When fn reports a change the
// set-list is stamped, saved, published and pushed.
func (e *Engine) mutateSetList(id string, fn func(l *models.SetList) (bool, error)) (models.SetList, error) {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return models.SetList{}, ErrDisposed
	}
	lists := e.store.LoadSetLists()
	idx := indexOfSetList(lists, id)
	if idx < 0 {
		e.mu.Unlock()
		return models.SetList{}, fmt.Errorf("setlist %s: %w", id, ErrNotFound)
	}

	changed, err := fn(&lists[idx])
	if err != nil || !changed {
		out := lists[idx].Clone()
		e.mu.Unlock()
		return out, err
	}
	lists[idx].UpdatedAt = touch(lists[idx].UpdatedAt)
	out := lists[idx].Clone()
	_ = e.store.SaveSetLists(lists)
	e.mu.Unlock()

	e.publishSetLists(lists)
	e.OnMutate(models.CollectionSetLists, id)
	return out, nil
}

func indexOfSong(songs []models.Song, id string) int {
	for i := range songs {
		if songs[i].ID == id {
			return i
		}
	}
	return -1
}

func indexOfSetList(lists []models.SetList, id string) int {
	for i := range lists {
		if lists[i].ID == id {
			return i
		}
	}
	return -1
}
