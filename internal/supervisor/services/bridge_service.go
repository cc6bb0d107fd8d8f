// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package services

import (
	"context"

	"github.com/tomtom215/setlistsync/internal/connectivity"
	"github.com/tomtom215/setlistsync/internal/notify"
)

// NotificationSource is satisfied by *notify.Emitter.
type NotificationSource interface {
	Subscribe(fn func(notify.Event)) func()
}

// EventBroadcaster is satisfied by *websocket.Hub.
type EventBroadcaster interface {
	BroadcastNotification(ev notify.Event)
	BroadcastConnectivity(online bool)
}

// EventBridgeService forwards notification and connectivity events to
// connected WebSocket clients for as long as it runs.
type EventBridgeService struct {
	notifications NotificationSource
	monitor       connectivity.Monitor
	out           EventBroadcaster
	name          string
}

// NewEventBridgeService creates the bridge. notifications or monitor may be
// nil to skip that stream.
func NewEventBridgeService(notifications NotificationSource, monitor connectivity.Monitor, out EventBroadcaster) *EventBridgeService {
	return &EventBridgeService{
		notifications: notifications,
		monitor:       monitor,
		out:           out,
		name:          "event-bridge",
	}
}

// Serve implements suture.Service.
func (b *EventBridgeService) Serve(ctx context.Context) error {
	if b.notifications != nil {
		unsubscribe := b.notifications.Subscribe(b.out.BroadcastNotification)
		defer unsubscribe()
	}

	var updates <-chan bool
	if b.monitor != nil {
		ch, unsubscribe := b.monitor.Subscribe()
		defer unsubscribe()
		updates = ch
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case online := <-updates:
			b.out.BroadcastConnectivity(online)
		}
	}
}

// String implements fmt.Stringer.
func (b *EventBridgeService) String() string {
	return b.name
}
