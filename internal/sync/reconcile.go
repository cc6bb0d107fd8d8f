// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package sync

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/metrics"
	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/notify"
)

const (
	msgOfflineRecover = "Anda sedang offline. Data akan dipulihkan saat kembali online."
	msgCloudFailed    = "Tidak dapat terhubung ke cloud. Sinkronisasi akan dicoba lagi nanti."
)

// CollectionReport describes the reconciliation of one collection.
type CollectionReport struct {
	Fetched   int    `json:"fetched"`
	Appended  int    `json:"appended"`
	Replaced  int    `json:"replaced"`
	KeptLocal int    `json:"kept_local"`
	Total     int    `json:"total"`
	Recovered int    `json:"recovered"`
	Error     string `json:"error,omitempty"`

	err error
}

// Err returns the fetch error, if the remote listing failed.
func (r CollectionReport) Err() error {
	return r.err
}

// ReconcileReport is the outcome of one reconciliation.
type ReconcileReport struct {
	RunID     string           `json:"run_id"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration_ns"`
	Songs     CollectionReport `json:"songs"`
	SetLists  CollectionReport `json:"setlists"`

	// Discarded is set when the engine was disposed before the result
	// could be applied.
	Discarded bool `json:"discarded,omitempty"`
}

// Failed reports whether either remote listing failed.
func (r ReconcileReport) Failed() bool {
	return r.Songs.err != nil || r.SetLists.err != nil
}

// Recovered reports whether an empty cache was repopulated.
func (r ReconcileReport) Recovered() bool {
	return r.Songs.Recovered > 0 || r.SetLists.Recovered > 0
}

// Reconcile merges the remote collections into the local cache now. It is
// run automatically by Init, and again on reconnect after an offline start.
// Pushes are held back until it returns.
func (e *Engine) Reconcile(ctx context.Context) (ReconcileReport, error) {
	e.reconcileMu.Lock()
	defer e.reconcileMu.Unlock()

	e.mu.Lock()
	switch {
	case e.disposed:
		e.mu.Unlock()
		return ReconcileReport{}, ErrDisposed
	case !e.initialized:
		e.mu.Unlock()
		return ReconcileReport{}, ErrNotReady
	case !e.monitor.IsOnline():
		e.mu.Unlock()
		return ReconcileReport{}, ErrOffline
	}
	empty := e.emptinessLocked()
	e.reconciling = true
	e.mu.Unlock()

	return e.reconcile(ctx, empty), nil
}

// reconcile lists both remote collections concurrently and merges whatever
// arrived. empty records which collections were empty before the run.
// Caller must hold reconcileMu.
func (e *Engine) reconcile(ctx context.Context, empty emptiness) ReconcileReport {
	runID := logging.NewRunID()
	ctx = logging.ContextWithRunID(ctx, runID)
	log := logging.Ctx(ctx)
	start := time.Now()
	report := ReconcileReport{RunID: runID, StartedAt: start}

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.ReconcileTimeout)
	defer cancel()

	var (
		wg          sync.WaitGroup
		remoteSongs []models.Song
		remoteLists []models.SetList
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		remoteSongs, report.Songs.err = e.songs.List(fetchCtx)
	}()
	go func() {
		defer wg.Done()
		remoteLists, report.SetLists.err = e.setLists.List(fetchCtx)
	}()
	wg.Wait()
	for _, r := range []*CollectionReport{&report.Songs, &report.SetLists} {
		if r.err != nil {
			r.Error = r.err.Error()
		}
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		report.Discarded = true
		log.Debug().Msg("Reconciliation result discarded after dispose")
		return report
	}

	var (
		mergedSongs []models.Song
		mergedLists []models.SetList
	)
	if report.Songs.err == nil {
		local := e.store.LoadSongs()
		incoming := models.FilterSongs(remoteSongs)
		merged, stats := MergeSongs(local, incoming)
		_ = e.store.SaveSongs(merged)
		report.Songs.apply(stats, len(incoming), len(merged))
		if empty.songs && len(local) == 0 && len(merged) > 0 {
			report.Songs.Recovered = len(merged)
		}
		mergedSongs = merged
	}
	if report.SetLists.err == nil {
		local := e.store.LoadSetLists()
		incoming := models.FilterSetLists(remoteLists)
		merged, stats := MergeSetLists(local, incoming)
		_ = e.store.SaveSetLists(merged)
		report.SetLists.apply(stats, len(incoming), len(merged))
		if empty.setLists && len(local) == 0 && len(merged) > 0 {
			report.SetLists.Recovered = len(merged)
		}
		mergedLists = merged
	}

	report.Duration = time.Since(start)
	e.initialLoadComplete = true
	e.reconciling = false
	e.deferred = false
	stored := report
	e.lastReconcile = &stored
	pendingSongs := len(e.dirty) > 0
	pendingLists := e.setListsPending
	e.mu.Unlock()

	if mergedSongs != nil {
		e.publishSongs(mergedSongs)
	}
	if mergedLists != nil {
		e.publishSetLists(mergedLists)
	}

	if report.Recovered() {
		total := report.Songs.Recovered + report.SetLists.Recovered
		e.notify(notify.KindSuccess, recoveryMessage(report.Songs.Recovered, report.SetLists.Recovered), total)
	}
	if report.Failed() && empty.any() {
		e.notify(notify.KindError, msgCloudFailed, 0)
	}

	recordReconcile(report)
	event := log.Info()
	if report.Failed() {
		event = log.Warn().
			AnErr("songs_error", report.Songs.err).
			AnErr("setlists_error", report.SetLists.err)
	}
	event.
		Int("songs", report.Songs.Total).
		Int("setlists", report.SetLists.Total).
		Int("songs_recovered", report.Songs.Recovered).
		Int("setlists_recovered", report.SetLists.Recovered).
		Dur("duration", report.Duration).
		Msg("Reconciliation finished")

	e.markReady()
	e.resumePushes(pendingSongs, pendingLists)
	return report
}

func (r *CollectionReport) apply(stats MergeStats, fetched, total int) {
	r.Fetched = fetched
	r.Appended = stats.Appended
	r.Replaced = stats.Replaced
	r.KeptLocal = stats.KeptLocal
	r.Total = total
}

// recoveryMessage names the recovered count of every collection that had
// any, e.g. "Berhasil memulihkan 1 lagu dari cloud".
func recoveryMessage(songs, setLists int) string {
	var parts []string
	if songs > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", songs, models.CollectionSongs.Label()))
	}
	if setLists > 0 {
		parts = append(parts, fmt.Sprintf("%d %s", setLists, models.CollectionSetLists.Label()))
	}
	return "Berhasil memulihkan " + strings.Join(parts, " dan ") + " dari cloud"
}

func recordReconcile(r ReconcileReport) {
	outcome := "complete"
	switch {
	case r.Songs.err != nil && r.SetLists.err != nil:
		outcome = "failed"
	case r.Failed():
		outcome = "partial"
	}
	metrics.ReconcileRuns.WithLabelValues(outcome).Inc()
	metrics.ReconcileDuration.Observe(r.Duration.Seconds())

	for _, c := range []struct {
		name string
		rep  CollectionReport
	}{
		{models.CollectionSongs.String(), r.Songs},
		{models.CollectionSetLists.String(), r.SetLists},
	} {
		if c.rep.err != nil {
			continue
		}
		metrics.RecordsMerged.WithLabelValues(c.name, "appended").Add(float64(c.rep.Appended))
		metrics.RecordsMerged.WithLabelValues(c.name, "replaced").Add(float64(c.rep.Replaced))
		metrics.RecordsMerged.WithLabelValues(c.name, "kept_local").Add(float64(c.rep.KeptLocal))
		if c.rep.Recovered > 0 {
			metrics.RecordsRecovered.WithLabelValues(c.name).Add(float64(c.rep.Recovered))
		}
	}
}

func recordOfflineStart() {
	metrics.ReconcileRuns.WithLabelValues("offline").Inc()
}
