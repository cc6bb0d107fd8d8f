// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

/*
Package sync keeps the local song and set-list cache consistent with the
remote store.

The Engine owns no data of its own. Every operation reads the current
collections from the local store, applies its change, writes them back and
publishes the result through the change callbacks. Network calls happen
outside the engine lock.

Lifecycle:

  - New(): wire the store, remote collections, connectivity monitor and
    notifier
  - Init(): publish the cached collections immediately, then reconcile with
    the remote store in the background (or defer until the first online
    transition when starting offline)
  - Dispose(): cancel the pending set-list push, stop watching connectivity
    and ignore in-flight results

Reconciliation:

Remote records are merged by ID with last-writer-wins on updatedAt; ties
keep the local copy and unknown IDs are appended. When a previously empty
cache is repopulated a single success notification reports the number of
recovered records per collection.

Push:

No push starts before the first reconciliation has finished, while a
deferred reconciliation is pending or running, or while the monitor reports
offline. A remote delete waits for the push round in flight for its
collection.

  - Songs are pushed directly as create or update, following the intent
    recorded by the mutation entry point. An update answered with 404 falls
    back to create. Nothing is pushed while the local song list is empty.
  - Set-lists are pushed after a trailing debounce. Each set-list is probed
    with GET and then updated (200) or created (404, or any other failure).
    One failed set-list never stops the rest.
  - Deletes are sent immediately and their error is returned to the caller.

Thread Safety:

  - mu: serializes every engine operation and guards all engine state
  - songPushMu / setListPushMu: one push round per collection at a time
*/
package sync
