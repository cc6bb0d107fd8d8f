// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package services adapts setlistd components to suture.Service.
//
// Each wrapper turns a component lifecycle (ListenAndServe/Shutdown,
// Init/Dispose, subscriptions) into a Serve(ctx) method that returns when
// ctx is canceled, and names itself through String for supervisor logs.
package services
