// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package connectivity reports whether the remote store is reachable and
// notifies subscribers when that changes.
package connectivity

import (
	"sync"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/metrics"
)

// Monitor exposes the current online state and transition events.
type Monitor interface {
	IsOnline() bool

	// Subscribe returns a channel receiving the new state after every
	// transition, and a function that ends the subscription. Slow readers
	// only ever see the latest state.
	Subscribe() (<-chan bool, func())
}

// broadcaster holds the state shared by every Monitor implementation.
type broadcaster struct {
	mu     sync.Mutex
	online bool
	subs   map[int]chan bool
	nextID int
	source string
}

func newBroadcaster(source string, online bool) *broadcaster {
	return &broadcaster{online: online, subs: make(map[int]chan bool), source: source}
}

// IsOnline implements Monitor.
func (b *broadcaster) IsOnline() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.online
}

// Subscribe implements Monitor.
func (b *broadcaster) Subscribe() (<-chan bool, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan bool, 1)
	b.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs, id)
		})
	}
}

// set records a new state and reports whether it changed.
func (b *broadcaster) set(online bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.online == online {
		return false
	}
	b.online = online

	metrics.SetOnline(online)
	logging.Info().Str("source", b.source).Bool("online", online).Msg("Connectivity changed")

	for _, ch := range b.subs {
		deliverLatest(ch, online)
	}
	return true
}

// deliverLatest replaces any unread value in ch with v.
func deliverLatest(ch chan bool, v bool) {
	select {
	case ch <- v:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- v:
	default:
	}
}

// Static is a Monitor whose state only changes through SetOnline. It backs
// the "static" connectivity mode and tests.
type Static struct {
	*broadcaster
}

var _ Monitor = (*Static)(nil)

// NewStatic creates a Static monitor.
func NewStatic(online bool) *Static {
	metrics.ConnectivityOnline.Set(boolToFloat(online))
	return &Static{broadcaster: newBroadcaster("static", online)}
}

// SetOnline changes the state and notifies subscribers on transitions.
func (s *Static) SetOnline(online bool) {
	s.set(online)
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
