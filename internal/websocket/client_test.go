// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package websocket

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// serveHub upgrades every request and attaches it to hub.
func serveHub(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		upgrader := websocket.Upgrader{}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("Failed to upgrade connection: %v", err)
			return
		}
		client := NewClient(hub, conn)
		hub.Register <- client
		client.Start()
	}))
	t.Cleanup(server.Close)
	return server
}

func dialWebSocket(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		t.Fatalf("Failed to dial websocket: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	if err := conn.SetReadDeadline(time.Now().Add(2 * time.Second)); err != nil {
		t.Fatalf("SetReadDeadline: %v", err)
	}
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func TestClient_Constants(t *testing.T) {
	if writeWait != 10*time.Second {
		t.Errorf("Expected writeWait 10s, got %v", writeWait)
	}
	if pongWait != 60*time.Second {
		t.Errorf("Expected pongWait 60s, got %v", pongWait)
	}
	if pingPeriod >= pongWait {
		t.Errorf("pingPeriod %v must be shorter than pongWait %v", pingPeriod, pongWait)
	}
}

func TestNewClient_AssignsIncreasingIDs(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil)
	b := NewClient(hub, nil)
	if b.ID() <= a.ID() {
		t.Errorf("expected increasing ids, got %d then %d", a.ID(), b.ID())
	}
	if cap(a.send) != sendQueueSize {
		t.Errorf("send queue size = %d, want %d", cap(a.send), sendQueueSize)
	}
}

func TestClient_SnapshotOnConnect(t *testing.T) {
	hub := setupHub(t)
	hub.SetSnapshot(func() []Message {
		return []Message{{Type: MessageTypeConnectivity, Data: ConnectivityData{Online: true}}}
	})
	conn := dialWebSocket(t, serveHub(t, hub))

	if got := readMessage(t, conn).Type; got != MessageTypeConnectivity {
		t.Errorf("first message = %q, want %q", got, MessageTypeConnectivity)
	}
}

func TestClient_PingPong(t *testing.T) {
	hub := setupHub(t)
	conn := dialWebSocket(t, serveHub(t, hub))

	if err := conn.WriteJSON(Message{Type: MessageTypePing}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := readMessage(t, conn).Type; got != MessageTypePong {
		t.Errorf("reply = %q, want %q", got, MessageTypePong)
	}
}

func TestClient_Resync(t *testing.T) {
	hub := setupHub(t)
	hub.SetSnapshot(func() []Message {
		return []Message{{Type: MessageTypeSongsChanged, Data: []string{}}}
	})
	conn := dialWebSocket(t, serveHub(t, hub))
	readMessage(t, conn)

	if err := conn.WriteJSON(Message{Type: MessageTypeResync}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := readMessage(t, conn).Type; got != MessageTypeSongsChanged {
		t.Errorf("resync reply = %q, want %q", got, MessageTypeSongsChanged)
	}
}

func TestClient_BroadcastReachesConnection(t *testing.T) {
	hub := setupHub(t)
	conn := dialWebSocket(t, serveHub(t, hub))

	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	hub.BroadcastConnectivity(false)

	msg := readMessage(t, conn)
	if msg.Type != MessageTypeConnectivity {
		t.Fatalf("message type = %q, want %q", msg.Type, MessageTypeConnectivity)
	}
	data, ok := msg.Data.(map[string]interface{})
	if !ok || data["online"] != false {
		t.Errorf("unexpected payload %#v", msg.Data)
	}
}

func TestClient_DisconnectUnregisters(t *testing.T) {
	hub := setupHub(t)
	conn := dialWebSocket(t, serveHub(t, hub))

	deadline := time.Now().Add(time.Second)
	for hub.GetClientCount() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	_ = conn.Close()

	deadline = time.Now().Add(2 * time.Second)
	for hub.GetClientCount() != 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if hub.GetClientCount() != 0 {
		t.Errorf("expected client to unregister, got %d clients", hub.GetClientCount())
	}
}
