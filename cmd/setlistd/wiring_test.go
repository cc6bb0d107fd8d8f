// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package main

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tomtom215/setlistsync/internal/cloudsim"
	"github.com/tomtom215/setlistsync/internal/config"
	"github.com/tomtom215/setlistsync/internal/connectivity"
	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/notify"
	"github.com/tomtom215/setlistsync/internal/store"
	ws "github.com/tomtom215/setlistsync/internal/websocket"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func TestNewMonitor(t *testing.T) {
	tests := []struct {
		mode       string
		wantProber bool
	}{
		{"static", false},
		{"probe", true},
	}

	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			cfg := &config.Config{Connectivity: config.ConnectivityConfig{
				Mode:        tt.mode,
				ProbeURL:    "http://127.0.0.1:1/api/songs",
				StartOnline: true,
			}}
			m := newMonitor(cfg)
			if (m.Prober != nil) != tt.wantProber {
				t.Errorf("prober set = %v, want %v", m.Prober != nil, tt.wantProber)
			}
			if !m.Monitor.IsOnline() {
				t.Error("monitor should start online")
			}
			_, static := m.Monitor.(*connectivity.Static)
			if static == tt.wantProber {
				t.Errorf("static monitor = %v for mode %q", static, tt.mode)
			}
		})
	}
}

func TestSnapshotFunc(t *testing.T) {
	sim := cloudsim.New()
	srv := httptest.NewServer(sim.Handler())
	defer srv.Close()

	cfg := &config.Config{
		Remote: config.RemoteConfig{BaseURL: srv.URL, Timeout: 5 * time.Second},
		Sync:   config.SyncConfig{SetListDebounce: time.Hour},
	}
	st, err := store.OpenInMemory()
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer st.Close()

	emitter := notify.NewEmitter(time.Hour)
	defer emitter.Close()
	monitor := connectivity.NewStatic(false)
	hub := ws.NewHub()

	engine, err := newEngine(cfg, st, newRemoteClient(cfg), monitor, emitter, hub)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}
	defer engine.Dispose()
	if _, err := engine.CreateSong(models.SongInput{
		Title:  "Be Thou My Vision",
		Artist: "Traditional",
		Lyrics: "Be Thou my vision, O Lord of my heart",
	}); err != nil {
		t.Fatalf("create song: %v", err)
	}
	emitter.Emit(notify.KindWarning, "Offline", 0)

	msgs := snapshotFunc(engine, emitter, monitor)()
	if len(msgs) != 4 {
		t.Fatalf("got %d snapshot messages, want 4", len(msgs))
	}

	wantTypes := []string{
		ws.MessageTypeConnectivity,
		ws.MessageTypeSongsChanged,
		ws.MessageTypeSetListsChanged,
		ws.MessageTypeNotification,
	}
	for i, want := range wantTypes {
		if msgs[i].Type != want {
			t.Errorf("msgs[%d].Type = %q, want %q", i, msgs[i].Type, want)
		}
	}
	if online := msgs[0].Data.(ws.ConnectivityData).Online; online {
		t.Error("snapshot reports online for an offline monitor")
	}
	if songs := msgs[1].Data.([]models.Song); len(songs) != 1 || songs[0].Title != "Be Thou My Vision" {
		t.Errorf("songs = %+v", songs)
	}
	if lists := msgs[2].Data.([]models.SetList); lists == nil || len(lists) != 0 {
		t.Errorf("setlists = %#v, want empty non-nil", lists)
	}
}
