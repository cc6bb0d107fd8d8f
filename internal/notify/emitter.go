// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package notify manages short-lived status messages shown by the UI:
// recovery reports, offline warnings and sync errors. Each notification
// clears itself after a fixed TTL unless dismissed first.
package notify

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/metrics"
)

// DefaultTTL is how long a notification stays visible.
const DefaultTTL = 5 * time.Second

// Kind classifies a notification.
type Kind string

const (
	KindSuccess Kind = "success"
	KindWarning Kind = "warning"
	KindError   Kind = "error"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindSuccess, KindWarning, KindError:
		return true
	}
	return false
}

// Notification is one visible message.
type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Message   string    `json:"message"`
	Count     int       `json:"count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// EventType distinguishes shown from dismissed events.
type EventType string

const (
	EventShown     EventType = "shown"
	EventDismissed EventType = "dismissed"
)

// Event is delivered to subscribers.
type Event struct {
	Type         EventType    `json:"type"`
	Notification Notification `json:"notification"`

	// Expired is true when the TTL elapsed rather than an explicit dismiss.
	Expired bool `json:"expired,omitempty"`
}

type entry struct {
	n     Notification
	timer *time.Timer
}

// Emitter holds the visible notifications. It is safe for concurrent use.
type Emitter struct {
	ttl time.Duration

	mu     sync.Mutex
	active map[string]*entry
	subs   map[int]func(Event)
	nextID int
	closed bool
}

// NewEmitter creates an Emitter. A non-positive ttl selects DefaultTTL.
func NewEmitter(ttl time.Duration) *Emitter {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Emitter{
		ttl:    ttl,
		active: make(map[string]*entry),
		subs:   make(map[int]func(Event)),
	}
}

// Emit shows a notification. count is optional; pass 0 to omit it.
func (e *Emitter) Emit(kind Kind, message string, count int) Notification {
	now := time.Now()
	n := Notification{
		ID:        uuid.New().String(),
		Kind:      kind,
		Message:   message,
		Count:     count,
		CreatedAt: now,
		ExpiresAt: now.Add(e.ttl),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return n
	}
	id := n.ID
	e.active[id] = &entry{
		n:     n,
		timer: time.AfterFunc(e.ttl, func() { e.remove(id, true) }),
	}
	subs := e.subscribersLocked()
	e.mu.Unlock()

	metrics.NotificationsEmitted.WithLabelValues(string(kind)).Inc()
	logging.Info().Str("kind", string(kind)).Str("message", message).Int("count", count).Msg("Notification")

	publish(subs, Event{Type: EventShown, Notification: n})
	return n
}

// Dismiss removes a notification before it expires. It reports whether the
// notification was still visible.
func (e *Emitter) Dismiss(id string) bool {
	return e.remove(id, false)
}

func (e *Emitter) remove(id string, expired bool) bool {
	e.mu.Lock()
	ent, ok := e.active[id]
	if !ok {
		e.mu.Unlock()
		return false
	}
	delete(e.active, id)
	ent.timer.Stop()
	subs := e.subscribersLocked()
	e.mu.Unlock()

	publish(subs, Event{Type: EventDismissed, Notification: ent.n, Expired: expired})
	return true
}

// Active returns the visible notifications, oldest first.
func (e *Emitter) Active() []Notification {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]Notification, 0, len(e.active))
	for _, ent := range e.active {
		out = append(out, ent.n)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Subscribe registers fn for shown and dismissed events. fn runs on the
// emitting goroutine and must not block.
func (e *Emitter) Subscribe(fn func(Event)) func() {
	e.mu.Lock()
	defer e.mu.Unlock()

	id := e.nextID
	e.nextID++
	e.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			e.mu.Lock()
			defer e.mu.Unlock()
			delete(e.subs, id)
		})
	}
}

// Close cancels pending expiry timers and drops all notifications.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	for id, ent := range e.active {
		ent.timer.Stop()
		delete(e.active, id)
	}
}

func (e *Emitter) subscribersLocked() []func(Event) {
	subs := make([]func(Event), 0, len(e.subs))
	for _, fn := range e.subs {
		subs = append(subs, fn)
	}
	return subs
}

func publish(subs []func(Event), ev Event) {
	for _, fn := range subs {
		fn(ev)
	}
}
