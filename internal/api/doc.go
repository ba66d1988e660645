// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

/*
Package api provides the HTTP REST API layer for Corelate.

This package implements the endpoints for querying item similarities,
managing compute runs, and submitting rating events. It is the interface
between HTTP clients and the similarity engine, the neighbor index, and
the rating store.

Key Components:

  - Router: Chi route configuration and middleware stack integration
  - Handler: Request handlers for all API endpoints
  - Response formatting: Standardized JSON responses with metadata
  - Error handling: Consistent error responses with appropriate HTTP status codes
  - Rate limiting: Per-endpoint limits via go-chi/httprate
  - CORS: Cross-Origin Resource Sharing via go-chi/cors

API Categories:

1. Health Endpoints (/api/v1/health):
  - Full health report (database, ingest, index, uptime)
  - Kubernetes-style liveness and readiness probes

2. Similarity Endpoints (/api/v1):
  - Ranked neighbors per item (items/{item}/neighbors)
  - Exact pair lookup (pairs?a=&b=)
  - Active similarity parameters (config)

3. Run Endpoints (/api/v1/runs):
  - Run history with pagination
  - Single run lookup
  - Manual recompute trigger (POST)

4. Ingest Endpoints (/api/v1/ratings):
  - Rating event submission, queued through NATS JetStream when ingest
    is enabled or written directly to DuckDB otherwise

5. Real-time (/api/v1/ws):
  - WebSocket stream of run lifecycle and rating events

Response Format:

All JSON endpoints wrap their payload in models.APIResponse:

	{
	  "status": "success",
	  "data": { ... },
	  "metadata": {"timestamp": "...", "query_time_ms": 3}
	}

Errors carry a machine-readable code:

	{
	  "status": "error",
	  "error": {"code": "NOT_FOUND", "message": "..."}
	}

Neighbor queries are answered from the Badger-backed index when it serves
the requested measure, falling back to DuckDB otherwise. Responses served
from the index are marked with "cached": true in the metadata.
*/
package api
