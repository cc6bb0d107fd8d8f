// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package models

// Collection names one of the two synchronized aggregates.
type Collection string

const (
	CollectionSongs    Collection = "songs"
	CollectionSetLists Collection = "setlists"
)

// Collections lists every synchronized collection.
var Collections = []Collection{CollectionSongs, CollectionSetLists}

// String implements fmt.Stringer.
func (c Collection) String() string {
	return string(c)
}

// Label is the short user-facing noun used in notifications.
func (c Collection) Label() string {
	switch c {
	case CollectionSongs:
		return "lagu"
	case CollectionSetLists:
		return "set list"
	default:
		return string(c)
	}
}
