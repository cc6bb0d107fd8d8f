// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package metrics holds the Prometheus collectors for setlistsync.
//
// Collectors are registered on the default registry through promauto and
// exposed by the local API at /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Remote store
	RemoteRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "setlistsync_remote_request_duration_seconds",
			Help:    "Duration of remote store requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"collection", "op"},
	)

	RemoteRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_remote_requests_total",
			Help: "Total remote store requests by outcome",
		},
		[]string{"collection", "op", "status"}, // status: 2xx, 4xx, 5xx, transport
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Sync engine
	ReconcileRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_reconcile_runs_total",
			Help: "Startup reconciliations by outcome",
		},
		[]string{"outcome"}, // complete, partial, offline
	)

	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "setlistsync_reconcile_duration_seconds",
			Help:    "Duration of startup reconciliation",
			Buckets: prometheus.DefBuckets,
		},
	)

	RecordsRecovered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_records_recovered_total",
			Help: "Records restored from the remote store into an empty cache",
		},
		[]string{"collection"},
	)

	RecordsMerged = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_records_merged_total",
			Help: "Remote records applied during reconciliation",
		},
		[]string{"collection", "action"}, // action: appended, replaced, kept_local
	)

	PushOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_push_operations_total",
			Help: "Outbound push operations per record",
		},
		[]string{"collection", "action", "result"}, // action: create, update, delete
	)

	PushCycles = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_push_cycles_total",
			Help: "Push cycles started or skipped",
		},
		[]string{"collection", "outcome"}, // outcome: ran, gated, offline, empty
	)

	DebounceCoalesced = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "setlistsync_debounce_coalesced_total",
			Help: "Set-list mutations folded into an already armed push",
		},
	)

	DirtySongs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "setlistsync_dirty_songs",
			Help: "Songs with an outstanding push",
		},
	)

	// Notifications and connectivity
	NotificationsEmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_notifications_total",
			Help: "Notifications emitted by kind",
		},
		[]string{"kind"},
	)

	ConnectivityOnline = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "setlistsync_online",
			Help: "1 when the remote store is reachable",
		},
	)

	ConnectivityTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_connectivity_transitions_total",
			Help: "Online/offline transitions",
		},
		[]string{"to"},
	)

	// Local store
	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_store_errors_total",
			Help: "Local store failures",
		},
		[]string{"collection", "op"},
	)

	StoreRecordsDropped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_store_records_dropped_total",
			Help: "Cached records discarded by sanitization",
		},
		[]string{"collection"},
	)

	// Local API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_api_requests_total",
			Help: "Local API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "setlistsync_api_request_duration_seconds",
			Help:    "Local API request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "setlistsync_websocket_connections",
			Help: "Connected WebSocket clients",
		},
	)

	WSMessagesSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "setlistsync_websocket_messages_total",
			Help: "WebSocket messages broadcast by type",
		},
		[]string{"type"},
	)
)

// RecordRemoteRequest records one remote store call. statusCode is 0 for
// transport failures.
func RecordRemoteRequest(collection, op string, statusCode int, duration time.Duration) {
	RemoteRequestDuration.WithLabelValues(collection, op).Observe(duration.Seconds())
	RemoteRequestsTotal.WithLabelValues(collection, op, StatusClass(statusCode)).Inc()
}

// StatusClass buckets an HTTP status for labels.
func StatusClass(statusCode int) string {
	if statusCode <= 0 {
		return "transport"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}

// RecordPush records one per-record push operation.
func RecordPush(collection, action string, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	PushOperations.WithLabelValues(collection, action, result).Inc()
}

// RecordAPIRequest records one local API request.
func RecordAPIRequest(method, route string, statusCode int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(statusCode)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// SetOnline updates the connectivity gauge and transition counter.
func SetOnline(online bool) {
	if online {
		ConnectivityOnline.Set(1)
		ConnectivityTransitions.WithLabelValues("online").Inc()
		return
	}
	ConnectivityOnline.Set(0)
	ConnectivityTransitions.WithLabelValues("offline").Inc()
}
