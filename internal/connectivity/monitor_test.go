// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func receive(t *testing.T, ch <-chan bool) bool {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for transition")
		return false
	}
}

func TestStaticTransitions(t *testing.T) {
	m := NewStatic(false)
	if m.IsOnline() {
		t.Fatal("expected offline")
	}

	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	m.SetOnline(true)
	if !receive(t, ch) {
		t.Error("expected online transition")
	}

	// Repeated state is not a transition.
	m.SetOnline(true)
	select {
	case v := <-ch:
		t.Errorf("unexpected event %v", v)
	default:
	}
}

func TestSubscriberSeesLatestState(t *testing.T) {
	m := NewStatic(true)
	ch, unsubscribe := m.Subscribe()
	defer unsubscribe()

	m.SetOnline(false)
	m.SetOnline(true)
	m.SetOnline(false)

	if receive(t, ch) {
		t.Error("slow subscriber should see the latest state (offline)")
	}
}

func TestUnsubscribe(t *testing.T) {
	m := NewStatic(true)
	ch, unsubscribe := m.Subscribe()
	unsubscribe()
	unsubscribe()

	m.SetOnline(false)
	select {
	case v := <-ch:
		t.Errorf("unsubscribed channel received %v", v)
	default:
	}
}

func TestProberReachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewProber(ProberConfig{URL: server.URL, Timeout: time.Second})
	if !p.Probe(context.Background()) {
		t.Error("any HTTP response should count as online")
	}
	if p.Status().ConsecutiveFailures != 0 {
		t.Errorf("failures = %d", p.Status().ConsecutiveFailures)
	}
}

func TestProberFailureThreshold(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	p := NewProber(ProberConfig{URL: url, Timeout: 200 * time.Millisecond, FailureThreshold: 2, StartOnline: true})

	if !p.Probe(context.Background()) {
		t.Error("one failure below threshold should stay online")
	}
	if p.Probe(context.Background()) {
		t.Error("second failure should flip to offline")
	}
	st := p.Status()
	if st.ConsecutiveFailures != 2 || st.LastError == "" {
		t.Errorf("unexpected status %+v", st)
	}
}

func TestProberServeEmitsTransitions(t *testing.T) {
	var up atomic.Bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if !up.Load() {
			// Hijack and drop the connection to simulate an unreachable store.
			hj, ok := w.(http.Hijacker)
			if !ok {
				t.Error("hijacking unsupported")
				return
			}
			conn, _, _ := hj.Hijack()
			_ = conn.Close()
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	p := NewProber(ProberConfig{URL: server.URL, Interval: 10 * time.Millisecond, Timeout: time.Second, StartOnline: true})
	ch, unsubscribe := p.Subscribe()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Serve(ctx) }()

	if receive(t, ch) {
		t.Fatal("expected offline transition")
	}
	up.Store(true)
	if !receive(t, ch) {
		t.Fatal("expected online transition")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
