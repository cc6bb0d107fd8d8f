// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package main

import (
	"github.com/tomtom215/setlistsync/internal/config"
	"github.com/tomtom215/setlistsync/internal/connectivity"
	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/notify"
	"github.com/tomtom215/setlistsync/internal/remote"
	"github.com/tomtom215/setlistsync/internal/store"
	syncpkg "github.com/tomtom215/setlistsync/internal/sync"
	ws "github.com/tomtom215/setlistsync/internal/websocket"
)

func newRemoteClient(cfg *config.Config) *remote.Client {
	return remote.New(remote.Options{
		BaseURL:                cfg.Remote.BaseURL,
		Timeout:                cfg.Remote.Timeout,
		Token:                  cfg.Remote.Token,
		UserAgent:              cfg.Remote.UserAgent,
		RateLimit:              cfg.Remote.RateLimit,
		RateBurst:              cfg.Remote.RateBurst,
		CircuitBreaker:         cfg.Remote.CircuitBreaker,
		StringifySetListFields: cfg.Remote.StringifySetListFields,
	})
}

// monitorSet is the selected connectivity monitor. Prober is set only in
// probe mode and must be run by the supervisor.
type monitorSet struct {
	Monitor connectivity.Monitor
	Prober  *connectivity.Prober
}

func newMonitor(cfg *config.Config) monitorSet {
	c := cfg.Connectivity
	if c.Mode == "static" {
		return monitorSet{Monitor: connectivity.NewStatic(c.StartOnline)}
	}
	p := connectivity.NewProber(connectivity.ProberConfig{
		URL:              c.ProbeURL,
		Interval:         c.ProbeInterval,
		Timeout:          c.ProbeTimeout,
		FailureThreshold: c.FailureThreshold,
		StartOnline:      c.StartOnline,
	})
	return monitorSet{Monitor: p, Prober: p}
}

func newEngine(cfg *config.Config, st *store.Store, client *remote.Client, monitor connectivity.Monitor, emitter *notify.Emitter, hub *ws.Hub) (*syncpkg.Engine, error) {
	return syncpkg.New(syncpkg.Deps{
		Store:    st,
		Songs:    client.Songs(),
		SetLists: client.SetLists(),
		Monitor:  monitor,
		Notifier: emitter,
	}, syncpkg.Config{
		SetListDebounce:  cfg.Sync.SetListDebounce,
		ReconcileTimeout: cfg.Sync.ReconcileTimeout,
		PushTimeout:      cfg.Sync.PushTimeout,
	}, syncpkg.Callbacks{
		OnSongsChanged:    hub.BroadcastSongs,
		OnSetListsChanged: hub.BroadcastSetLists,
	})
}

// snapshotFunc builds the messages a client receives on connect and on
// resync.
func snapshotFunc(engine *syncpkg.Engine, emitter *notify.Emitter, monitor connectivity.Monitor) func() []ws.Message {
	return func() []ws.Message {
		msgs := []ws.Message{
			{Type: ws.MessageTypeConnectivity, Data: ws.ConnectivityData{Online: monitor.IsOnline()}},
			{Type: ws.MessageTypeSongsChanged, Data: nonNilSongs(engine.Songs())},
			{Type: ws.MessageTypeSetListsChanged, Data: nonNilSetLists(engine.SetLists())},
		}
		for _, n := range emitter.Active() {
			msgs = append(msgs, ws.Message{Type: ws.MessageTypeNotification, Data: n})
		}
		return msgs
	}
}

func nonNilSongs(s []models.Song) []models.Song {
	if s == nil {
		return []models.Song{}
	}
	return s
}

func nonNilSetLists(l []models.SetList) []models.SetList {
	if l == nil {
		return []models.SetList{}
	}
	return l
}
