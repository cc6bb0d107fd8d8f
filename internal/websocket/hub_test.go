// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package websocket

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/notify"
)

//nolint:gochecknoinits // init ensures consistent logging for tests
func init() {
	logging.Init(logging.Config{
		Level:  "info",
		Format: "console",
		Output: io.Discard,
	})
}

// setupHub creates a hub running until the test ends.
func setupHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = hub.RunWithContext(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub
}

// createTestClient creates a client without a connection.
func createTestClient(hub *Hub) *Client {
	return &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, 256)}
}

func registerClient(hub *Hub, client *Client) {
	hub.Register <- client
	time.Sleep(20 * time.Millisecond)
}

func receive(t *testing.T, client *Client) Message {
	t.Helper()
	select {
	case msg, ok := <-client.send:
		if !ok {
			t.Fatal("client channel closed")
		}
		return msg
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for message")
	}
	return Message{}
}

func TestNewHub(t *testing.T) {
	hub := NewHub()

	checks := []struct {
		check  bool
		errMsg string
	}{
		{hub.clients != nil, "clients map not initialized"},
		{hub.broadcast != nil, "broadcast channel not initialized"},
		{hub.Register != nil, "Register channel not initialized"},
		{hub.Unregister != nil, "Unregister channel not initialized"},
		{len(hub.clients) == 0, "clients map should be empty"},
	}
	for _, c := range checks {
		if !c.check {
			t.Error(c.errMsg)
		}
	}
}

func TestHub_GetClientCount(t *testing.T) {
	hub := NewHub()
	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients initially, got %d", hub.GetClientCount())
	}
	for i := 0; i < 3; i++ {
		hub.clients[createTestClient(hub)] = true
	}
	if hub.GetClientCount() != 3 {
		t.Errorf("Expected 3 clients, got %d", hub.GetClientCount())
	}
}

func TestHub_RegisterSendsSnapshot(t *testing.T) {
	hub := setupHub(t)
	hub.SetSnapshot(func() []Message {
		return []Message{
			{Type: MessageTypeSongsChanged, Data: []models.Song{{ID: "s1", Title: "Amazing Grace"}}},
			{Type: MessageTypeConnectivity, Data: ConnectivityData{Online: true}},
		}
	})

	client := createTestClient(hub)
	registerClient(hub, client)

	if got := receive(t, client).Type; got != MessageTypeSongsChanged {
		t.Errorf("first snapshot message = %q, want %q", got, MessageTypeSongsChanged)
	}
	if got := receive(t, client).Type; got != MessageTypeConnectivity {
		t.Errorf("second snapshot message = %q, want %q", got, MessageTypeConnectivity)
	}
	if hub.GetClientCount() != 1 {
		t.Errorf("Expected 1 client, got %d", hub.GetClientCount())
	}
}

func TestHub_BroadcastMethods(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)
	registerClient(hub, client)

	n := notify.Notification{ID: "n1", Kind: notify.KindSuccess, Message: "ok"}
	tests := []struct {
		name string
		send func()
		want string
	}{
		{"songs", func() { hub.BroadcastSongs([]models.Song{{ID: "s1"}}) }, MessageTypeSongsChanged},
		{"setlists", func() { hub.BroadcastSetLists([]models.SetList{{ID: "l1"}}) }, MessageTypeSetListsChanged},
		{"notification", func() {
			hub.BroadcastNotification(notify.Event{Type: notify.EventShown, Notification: n})
		}, MessageTypeNotification},
		{"dismissed", func() {
			hub.BroadcastNotification(notify.Event{Type: notify.EventDismissed, Notification: n, Expired: true})
		}, MessageTypeNotificationDismissed},
		{"connectivity", func() { hub.BroadcastConnectivity(false) }, MessageTypeConnectivity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.send()
			if got := receive(t, client).Type; got != tt.want {
				t.Errorf("message type = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHub_BroadcastOrderAcrossClients(t *testing.T) {
	hub := setupHub(t)
	a, b := createTestClient(hub), createTestClient(hub)
	registerClient(hub, a)
	registerClient(hub, b)

	hub.BroadcastConnectivity(true)
	hub.BroadcastConnectivity(false)

	for _, c := range []*Client{a, b} {
		first := receive(t, c).Data.(ConnectivityData)
		second := receive(t, c).Data.(ConnectivityData)
		if !first.Online || second.Online {
			t.Errorf("client %d received out-of-order states: %v then %v", c.id, first.Online, second.Online)
		}
	}
}

func TestHub_Unregister(t *testing.T) {
	hub := setupHub(t)
	client := createTestClient(hub)
	registerClient(hub, client)

	hub.Unregister <- client
	time.Sleep(20 * time.Millisecond)

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected 0 clients, got %d", hub.GetClientCount())
	}
	if _, ok := <-client.send; ok {
		t.Error("expected send channel to be closed")
	}
	if client.Send(Message{Type: MessageTypePong}) {
		t.Error("Send on a closed client should report false")
	}
}

func TestHub_SlowClientDropped(t *testing.T) {
	hub := setupHub(t)
	slow := &Client{id: clientIDCounter.Add(1), hub: hub, send: make(chan Message, 1)}
	registerClient(hub, slow)

	hub.BroadcastConnectivity(true)
	hub.BroadcastConnectivity(false)
	time.Sleep(50 * time.Millisecond)

	if hub.GetClientCount() != 0 {
		t.Errorf("Expected slow client to be dropped, got %d clients", hub.GetClientCount())
	}
}

func TestHub_RunWithContext_Shutdown(t *testing.T) {
	tests := []struct {
		name   string
		ctx    func() (context.Context, context.CancelFunc)
		want   error
		reason ShutdownReason
	}{
		{
			name: "canceled",
			ctx: func() (context.Context, context.CancelFunc) {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx, cancel
			},
			want:   context.Canceled,
			reason: ShutdownReasonContextCanceled,
		},
		{
			name: "deadline",
			ctx: func() (context.Context, context.CancelFunc) {
				return context.WithTimeout(context.Background(), time.Millisecond)
			},
			want:   context.DeadlineExceeded,
			reason: ShutdownReasonContextDeadline,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hub := NewHub()
			client := createTestClient(hub)
			hub.clients[client] = true

			ctx, cancel := tt.ctx()
			defer cancel()
			<-ctx.Done()

			if err := hub.RunWithContext(ctx); !errors.Is(err, tt.want) {
				t.Errorf("RunWithContext() error = %v, want %v", err, tt.want)
			}
			if got := getShutdownReason(ctx); got != tt.reason {
				t.Errorf("shutdown reason = %q, want %q", got, tt.reason)
			}
			if hub.GetClientCount() != 0 {
				t.Error("expected all clients closed on shutdown")
			}
		})
	}
}

func TestMarshalMessage(t *testing.T) {
	data, err := MarshalMessage(Message{Type: MessageTypeConnectivity, Data: ConnectivityData{Online: true}})
	if err != nil {
		t.Fatalf("MarshalMessage() error = %v", err)
	}
	want := `{"type":"connectivity","data":{"online":true}}`
	if string(data) != want {
		t.Errorf("MarshalMessage() = %s, want %s", data, want)
	}
}
