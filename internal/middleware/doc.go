// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

/*
Package middleware provides HTTP middleware components for the application.

This package implements infrastructure middleware for compression, request
ID tracking, and Prometheus metrics integration. The Chi-specific
middleware (CORS, rate limiting, security headers) lives in internal/api;
the components here are plain http.HandlerFunc wrappers usable with any
mux.

Key Components:

  - Compression: Gzip compression for responses
  - Request ID: UUID-based request tracking for distributed tracing
  - Prometheus Metrics: HTTP request/response instrumentation

Usage Example - Prometheus Metrics:

	http.HandleFunc("/api/v1/pairs",
	    middleware.PrometheusMetrics(handler),
	)

	// Records request count, duration histogram, and the active request
	// gauge; status codes are captured through a ResponseWriter wrapper.

Usage Example - Request ID:

	http.HandleFunc("/api/v1/runs",
	    middleware.RequestID(handler),
	)

	// Access the request ID in a handler
	func handler(w http.ResponseWriter, r *http.Request) {
	    requestID := middleware.GetRequestID(r.Context())
	    logging.Ctx(r.Context()).Info().Msg("Processing request")
	}

Thread Safety:

All middleware components are thread-safe:
  - Compression uses a sync.Pool of per-request gzip writers
  - Request ID uses context.Context (immutable)
  - Prometheus metrics use atomic operations

See Also:

  - internal/api: Chi router and handlers wrapped by this middleware
  - internal/metrics: Prometheus metrics definitions
*/
package middleware
