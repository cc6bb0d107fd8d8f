// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

/*
Package api serves the local collaborator API of the sync daemon.

Every endpoint lives under /api/v1 and answers with the models.APIResponse
envelope:

	{"status":"success","data":{...},"metadata":{"timestamp":"...","count":2}}
	{"status":"error","data":null,"metadata":{...},"error":{"code":"NOT_FOUND","message":"..."}}

Endpoints:

	GET    /health
	GET    /songs                      POST /songs
	PUT    /songs/{id}                 DELETE /songs/{id}
	GET    /setlists                   POST /setlists
	PUT    /setlists/{id}              DELETE /setlists/{id}
	POST   /setlists/{id}/members      DELETE /setlists/{id}/members/{member}
	PUT    /setlists/{id}/keys/{member}
	PUT    /setlists/{id}/completed/{member}
	GET    /notifications              DELETE /notifications/{id}
	GET    /preferences/{name}         PUT /preferences/{name}
	POST   /sync/push                  POST /sync/reconcile
	GET    /sync/status
	GET    /connectivity               PUT /connectivity (static mode only)
	GET    /ws                         WebSocket event stream
	GET    /metrics                    Prometheus exposition (outside /api/v1)

Mutations are applied to the local cache first. A remote delete that fails
still removes the record locally; the handler answers 502 with the remote
error so the UI can tell the user.
*/
package api
