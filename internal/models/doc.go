// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package models defines the synchronized records (songs and set-lists), the
// tolerant JSON codecs used for both the local cache and the remote store,
// and the local API envelope.
//
// Timestamps are epoch milliseconds (Millis). Decoding is lenient: numbers,
// numeric strings and RFC 3339 strings are accepted, and anything else
// becomes 0 so that last-writer-wins comparisons never fail.
package models
