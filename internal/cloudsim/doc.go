// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package cloudsim is an in-memory implementation of the remote song and
// set-list store. It backs the remote client tests, the engine integration
// tests and the cloudsim binary used for local development.
//
// Faults are injected per collection, method and record id:
//
//	sim.ForceStatus(models.CollectionSetLists, http.MethodPut, "l1", 500)
//	sim.FailList(models.CollectionSongs, 503)
//
// Every request is logged and can be inspected with Requests.
package cloudsim
