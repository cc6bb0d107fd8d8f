// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

/*
Package websocket streams engine events to connected UI clients.

A single Hub owns the client set and fans every broadcast out to all of
them. Each Client runs a read pump (client pings and resync requests) and a
write pump (queued messages and keepalive pings).

Message Types (server to client):

  - songs_changed: full song list after any change
  - setlists_changed: full set-list list after any change
  - notification: a notification was shown
  - notification_dismissed: a notification expired or was dismissed
  - connectivity: {"online": bool} on every transition
  - pong: reply to a client ping

Client to server:

  - ping: answered with pong
  - resync: the snapshot is sent again

New clients receive the snapshot (current songs and set-lists) right after
registration, so a UI never has to poll for initial state.
*/
package websocket
