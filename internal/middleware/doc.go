// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

/*
Package middleware provides the HTTP middleware shared by the local API and
the remote simulator.

  - RequestID: X-Request-ID propagation into the logging context
  - PrometheusMetrics: request count and latency labelled by chi route pattern

Both are plain func(http.Handler) http.Handler values for chi's r.Use:

	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
*/
package middleware
