// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

/*
Package websocket pushes live updates to connected dashboard clients.

This package broadcasts similarity run lifecycle events and live rating
notifications over gorilla/websocket using a hub-client architecture.

Key Components:

  - Hub: central broker that manages client connections and broadcasts
  - Client: one WebSocket connection with read/write goroutines
  - RatingFeed: bridges the NATS rating stream into hub broadcasts

Architecture:

The package implements a hub-and-spoke pattern:

	┌──────────┐
	│   Hub    │ ← Broadcasts to all clients
	└────┬─────┘
	     │
	┌────┴─────┬─────────┬─────────┐
	│          │         │         │
	│ Client1  │ Client2 │ Client3 │ Client4
	│          │         │         │
	└──────────┴─────────┴─────────┘

Each client has two goroutines:
  - readPump: reads from the WebSocket, handles application pings
  - writePump: writes to the WebSocket, sends transport pings

Message Types:

  - run_started: a similarity run began (run_id, started_at)
  - run_progress: phase boundary update (phase, stats so far)
  - run_completed: run finished (duration_ms, records_written, stats)
  - run_failed: run aborted (error)
  - rating_received: a rating event was accepted by ingest

Usage Example - Server:

	hub := websocket.NewHub()
	go hub.RunWithContext(ctx)

	// The API layer upgrades /api/v1/ws connections and registers
	// clients; the runner broadcasts lifecycle events:
	hub.BroadcastRunStarted(run)
	hub.BroadcastRunCompleted(run)

Usage Example - Client (JavaScript):

	const ws = new WebSocket('ws://localhost:8787/api/v1/ws');

	ws.onmessage = (event) => {
	    const msg = JSON.parse(event.data);

	    if (msg.type === 'run_completed') {
	        console.log(`Run ${msg.data.run_id}: ${msg.data.records_written} pairs`);
	        refreshNeighbors();
	    }

	    if (msg.type === 'rating_received') {
	        appendToLiveFeed(msg.data);
	    }
	};

Slow Clients:

A client whose send buffer (256 messages) fills is evicted rather than
allowed to stall the hub loop. Evictions are counted in the
websocket_errors_total metric under error_type="slow_client".

Connection Lifecycle:

 1. Client connects via HTTP upgrade on /api/v1/ws
 2. Hub registers client
 3. Client starts read/write goroutines
 4. Hub broadcasts messages to all clients
 5. Client disconnects (network error or explicit close)
 6. Hub unregisters client and cleans up

Timeouts:

  - writeWait: 10 seconds per message write
  - pongWait: 60 seconds to detect dead connections
  - pingPeriod: 54 seconds (must be < pongWait)
  - maxMessageSize: 64 KB inbound (clients only send pings)

See Also:

  - github.com/gorilla/websocket: underlying WebSocket library
  - internal/api: WebSocket endpoint handler
  - internal/runner: run lifecycle broadcasts
  - internal/ingest: rating stream feeding RatingFeed
*/
package websocket
