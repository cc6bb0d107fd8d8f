// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package sync

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/metrics"
	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/remote"
)

// PushReport is the outcome of one push round for a collection.
type PushReport struct {
	RunID      string            `json:"run_id"`
	Collection models.Collection `json:"collection"`
	StartedAt  time.Time         `json:"started_at"`
	Duration   time.Duration     `json:"duration_ns"`
	Created    []string          `json:"created"`
	Updated    []string          `json:"updated"`
	Failed     []string          `json:"failed"`
	Errors     map[string]string `json:"errors,omitempty"`
}

func newPushReport(c models.Collection) PushReport {
	return PushReport{
		RunID:      logging.NewRunID(),
		Collection: c,
		StartedAt:  time.Now(),
		Created:    []string{},
		Updated:    []string{},
		Failed:     []string{},
	}
}

func (r *PushReport) add(id, action string, err error) {
	switch {
	case err != nil:
		r.Failed = append(r.Failed, id)
		if r.Errors == nil {
			r.Errors = make(map[string]string)
		}
		r.Errors[id] = err.Error()
	case action == "create":
		r.Created = append(r.Created, id)
	default:
		r.Updated = append(r.Updated, id)
	}
}

// Attempted returns the number of records the round tried to push.
func (r PushReport) Attempted() int {
	return len(r.Created) + len(r.Updated) + len(r.Failed)
}

// FlushReport combines the song and set-list rounds of a Flush.
type FlushReport struct {
	Songs    PushReport `json:"songs"`
	SetLists PushReport `json:"setlists"`
}

// OnMutate schedules the push for a change to collection. Mutation entry
// points call it themselves; callers that write through other paths call it
// after each write. An empty id for songs pushes the outstanding songs only.
func (e *Engine) OnMutate(c models.Collection, id string) {
	switch c {
	case models.CollectionSongs:
		e.mu.Lock()
		if e.disposed {
			e.mu.Unlock()
			return
		}
		if _, ok := e.dirty[id]; !ok && id != "" {
			e.markSongLocked(id, intentUpdate)
		}
		e.mu.Unlock()
		e.kickSongPush()

	case models.CollectionSetLists:
		e.mu.Lock()
		if e.disposed {
			e.mu.Unlock()
			return
		}
		e.setListsPending = true
		e.mu.Unlock()
		e.scheduleSetListPush()
	}
}

// markSongLocked records an outstanding push for a song. A pending create
// stays a create until it has been sent.
func (e *Engine) markSongLocked(id string, intent songIntent) {
	e.dirtyGen++
	if prev, ok := e.dirty[id]; ok && prev.intent == intentCreate {
		intent = intentCreate
	}
	e.dirty[id] = dirtySong{intent: intent, gen: e.dirtyGen}
	metrics.DirtySongs.Set(float64(len(e.dirty)))
}

func (e *Engine) kickSongPush() {
	e.goBackground(func() {
		if _, err := e.PushSongs(e.ctx); err != nil {
			logging.Debug().Err(err).Msg("Song push deferred")
		}
	})
}

func (e *Engine) scheduleSetListPush() {
	if e.debouncer.Arm() {
		metrics.DebounceCoalesced.Inc()
	}
}

func (e *Engine) onSetListDebounce() {
	e.goBackground(func() {
		if _, err := e.PushSetLists(e.ctx); err != nil {
			logging.Debug().Err(err).Msg("Set-list push deferred")
		}
	})
}

func recordGated(c models.Collection, err error) {
	outcome := "gated"
	switch {
	case errors.Is(err, ErrOffline):
		outcome = "offline"
	case errors.Is(err, ErrDisposed):
		outcome = "disposed"
	}
	metrics.PushCycles.WithLabelValues(c.String(), outcome).Inc()
}

type songWork struct {
	song   models.Song
	intent songIntent
	gen    uint64
}

// PushSongs sends every song with an outstanding create or update. Songs
// that fail stay outstanding for the next round. Nothing is sent while the
// local song list is empty.
func (e *Engine) PushSongs(ctx context.Context) (PushReport, error) {
	e.songPushMu.Lock()
	defer e.songPushMu.Unlock()

	report := newPushReport(models.CollectionSongs)

	e.mu.Lock()
	if err := e.gateLocked(); err != nil {
		e.mu.Unlock()
		recordGated(models.CollectionSongs, err)
		return report, err
	}
	songs := e.store.LoadSongs()
	if len(songs) == 0 {
		e.mu.Unlock()
		metrics.PushCycles.WithLabelValues(models.CollectionSongs.String(), "empty").Inc()
		return report, nil
	}
	byID := make(map[string]models.Song, len(songs))
	for _, s := range songs {
		byID[s.ID] = s
	}
	work := make([]songWork, 0, len(e.dirty))
	for id, d := range e.dirty {
		s, ok := byID[id]
		if !ok {
			delete(e.dirty, id)
			continue
		}
		work = append(work, songWork{song: s, intent: d.intent, gen: d.gen})
	}
	metrics.DirtySongs.Set(float64(len(e.dirty)))
	e.mu.Unlock()

	if len(work) == 0 {
		return report, nil
	}
	sort.Slice(work, func(i, j int) bool { return work[i].song.ID < work[j].song.ID })

	ctx = logging.ContextWithRunID(ctx, report.RunID)
	log := logging.Ctx(ctx)
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PushTimeout)
	defer cancel()

	for _, w := range work {
		action, err := e.pushSong(ctx, w)
		metrics.RecordPush(models.CollectionSongs.String(), action, err)
		report.add(w.song.ID, action, err)
		if err != nil {
			log.Warn().Err(err).Str("song_id", w.song.ID).Str("action", action).Msg("Song push failed")
			continue
		}

		e.mu.Lock()
		if d, ok := e.dirty[w.song.ID]; ok {
			switch {
			case d.gen == w.gen:
				delete(e.dirty, w.song.ID)
			case action == "create":
				// Edited while the create was in flight; the next round updates.
				d.intent = intentUpdate
				e.dirty[w.song.ID] = d
			}
		}
		metrics.DirtySongs.Set(float64(len(e.dirty)))
		e.mu.Unlock()
	}

	e.finishPush(&report, &e.lastSongPush)
	log.Info().
		Int("created", len(report.Created)).
		Int("updated", len(report.Updated)).
		Int("failed", len(report.Failed)).
		Dur("duration", report.Duration).
		Msg("Song push finished")
	return report, nil
}

// pushSong sends one song following its recorded intent. An update of a
// song the remote store does not know becomes a create, and a create the
// store rejects as a conflict becomes an update.
func (e *Engine) pushSong(ctx context.Context, w songWork) (string, error) {
	if w.intent == intentCreate {
		_, err := e.songs.Create(ctx, w.song)
		if remote.StatusCode(err) == http.StatusConflict {
			return "update", e.songs.Update(ctx, w.song.ID, w.song)
		}
		return "create", err
	}

	err := e.songs.Update(ctx, w.song.ID, w.song)
	if remote.IsNotFound(err) {
		_, err = e.songs.Create(ctx, w.song)
		return "create", err
	}
	return "update", err
}

// PushSetLists probes every set-list and updates or creates it. A failed
// set-list is logged and counted; the remaining ones are still pushed.
func (e *Engine) PushSetLists(ctx context.Context) (PushReport, error) {
	e.setListPushMu.Lock()
	defer e.setListPushMu.Unlock()

	report := newPushReport(models.CollectionSetLists)

	e.mu.Lock()
	if err := e.gateLocked(); err != nil {
		e.mu.Unlock()
		recordGated(models.CollectionSetLists, err)
		return report, err
	}
	lists := e.store.LoadSetLists()
	e.setListsPending = false
	e.mu.Unlock()

	ctx = logging.ContextWithRunID(ctx, report.RunID)
	log := logging.Ctx(ctx)
	ctx, cancel := context.WithTimeout(ctx, e.cfg.PushTimeout)
	defer cancel()

	for _, l := range lists {
		action, err := e.pushSetList(ctx, l)
		metrics.RecordPush(models.CollectionSetLists.String(), action, err)
		report.add(l.ID, action, err)
		if err != nil {
			log.Warn().Err(err).Str("setlist_id", l.ID).Str("action", action).Msg("Set-list push failed")
		}
	}

	if len(report.Failed) > 0 {
		e.mu.Lock()
		if !e.disposed {
			e.setListsPending = true
		}
		e.mu.Unlock()
	}

	e.finishPush(&report, &e.lastSetListPush)
	log.Info().
		Int("created", len(report.Created)).
		Int("updated", len(report.Updated)).
		Int("failed", len(report.Failed)).
		Dur("duration", report.Duration).
		Msg("Set-list push finished")
	return report, nil
}

// pushSetList updates l when the probe finds it and creates it otherwise.
// A probe failing for any reason other than 404 also falls back to create.
func (e *Engine) pushSetList(ctx context.Context, l models.SetList) (string, error) {
	_, err := e.setLists.Get(ctx, l.ID)
	switch {
	case err == nil:
		return "update", e.setLists.Update(ctx, l.ID, l)
	case remote.IsNotFound(err):
	default:
		logging.Ctx(ctx).Debug().Err(err).Str("setlist_id", l.ID).Msg("Set-list probe failed, creating instead")
	}
	_, err = e.setLists.Create(ctx, l)
	return "create", err
}

func (e *Engine) finishPush(report *PushReport, last **PushReport) {
	report.Duration = time.Since(report.StartedAt)
	outcome := "ran"
	if len(report.Failed) > 0 {
		outcome = "partial"
	}
	metrics.PushCycles.WithLabelValues(report.Collection.String(), outcome).Inc()

	stored := *report
	e.mu.Lock()
	*last = &stored
	e.mu.Unlock()
}

// Flush pushes outstanding songs and every set-list immediately, cancelling
// the pending debounce. It returns the first gate error encountered.
func (e *Engine) Flush(ctx context.Context) (FlushReport, error) {
	e.debouncer.Cancel()

	var out FlushReport
	songs, songErr := e.PushSongs(ctx)
	lists, listErr := e.PushSetLists(ctx)
	out.Songs = songs
	out.SetLists = lists

	if songErr != nil {
		return out, fmt.Errorf("push songs: %w", songErr)
	}
	if listErr != nil {
		return out, fmt.Errorf("push setlists: %w", listErr)
	}
	return out, nil
}

// deleteRemote removes id from the remote store right away. A record the
// store no longer has counts as deleted. The delete waits for the push round
// in flight for its collection so a create sent by that round cannot land
// after it.
func (e *Engine) deleteRemote(ctx context.Context, c models.Collection, id string) error {
	var err error
	switch {
	case !e.monitor.IsOnline():
		err = ErrOffline
	case c == models.CollectionSongs:
		e.songPushMu.Lock()
		err = e.songs.Delete(ctx, id)
		e.songPushMu.Unlock()
	default:
		e.setListPushMu.Lock()
		err = e.setLists.Delete(ctx, id)
		e.setListPushMu.Unlock()
	}
	if remote.IsNotFound(err) {
		err = nil
	}
	metrics.RecordPush(c.String(), "delete", err)
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Str("collection", c.String()).Str("id", id).Msg("Remote delete failed")
		return fmt.Errorf("delete %s %s: %w", c, id, err)
	}
	return nil
}
