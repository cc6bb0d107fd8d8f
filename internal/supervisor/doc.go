// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

/*
Package supervisor runs the long-lived parts of setlistd under suture v4.

The tree has three layers so that a failure in one does not take the others
down:

	RootSupervisor ("setlistsync")
	├── SyncSupervisor ("sync-layer")
	│   ├── EngineService
	│   └── Prober (connectivity mode "probe" only)
	├── MessagingSupervisor ("messaging-layer")
	│   ├── WebSocketHubService
	│   └── EventBridgeService
	└── APISupervisor ("api-layer")
	    └── HTTPServerService

Supervisor events are logged through sutureslog, which writes to the
zerolog-backed slog handler from internal/logging.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlog(), supervisor.TreeConfig{})
	if err != nil {
	    return err
	}
	tree.AddSyncService(services.NewEngineService(engine, services.EngineOptions{}))
	tree.AddMessagingService(services.NewWebSocketHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	return tree.Serve(ctx)
*/
package supervisor
