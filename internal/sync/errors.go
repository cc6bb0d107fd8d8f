// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package sync

import "errors"

var (
	// ErrNotFound is returned when a mutation targets an unknown record.
	ErrNotFound = errors.New("record not found")

	// ErrOffline is returned by remote operations attempted while offline.
	ErrOffline = errors.New("remote store offline")

	// ErrDisposed is returned after Dispose.
	ErrDisposed = errors.New("sync engine disposed")

	// ErrInvalid wraps validation failures of mutation input.
	ErrInvalid = errors.New("invalid input")

	// ErrNotReady is returned by a push attempted before reconciliation
	// has finished.
	ErrNotReady = errors.New("initial reconciliation not complete")

	// ErrAlreadyInitialized is returned by a second call to Init.
	ErrAlreadyInitialized = errors.New("sync engine already initialized")
)
