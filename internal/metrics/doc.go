// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

/*
Package metrics provides Prometheus metrics collection and export for observability.

# Overview

The package provides metrics for:
  - Similarity run duration and pipeline counters
  - Database query performance (DuckDB)
  - API endpoint latency and throughput
  - Rating event ingest (NATS/Watermill)
  - Neighbor index rebuilds (Badger)
  - WebSocket connection counts
  - Circuit breaker state transitions

# Metrics Endpoint

Metrics are exposed at the /metrics endpoint in Prometheus text format:

	curl http://localhost:2677/metrics

# Available Metrics

Run metrics:
  - run_duration_seconds: Similarity run duration (histogram)
  - runs_total: Runs by outcome (counter)
    Labels: status (completed, failed, cancelled)
  - run_ratings_read_total, run_pairs_generated_total,
    run_pairs_kept_total, run_records_written_total: Pipeline counters
  - run_last_success_timestamp: Unix timestamp of last completed run (gauge)

Database metrics:
  - duckdb_query_duration_seconds: Query execution time (histogram)
    Labels: operation, table
  - duckdb_query_errors_total: Failed queries (counter)
    Labels: operation, table, error_type
  - duckdb_rows_inserted_total: Rows inserted (counter)
    Labels: table

API metrics:
  - api_requests_total: Total requests (counter)
    Labels: method, endpoint, status_code
  - api_request_duration_seconds: Request latency (histogram)
    Labels: method, endpoint
  - api_active_requests: Active requests (gauge)
  - api_rate_limit_hits_total: Rate limit rejections (counter)

Ingest metrics:
  - ingest_events_published_total, ingest_events_consumed_total,
    ingest_events_processed_total, ingest_events_deduplicated_total,
    ingest_events_rejected_total: Event counters
  - ingest_batch_flush_duration_seconds, ingest_batch_size: Flush histograms

# Usage Example

	import "github.com/tomtom215/corelate/internal/metrics"

	start := time.Now()
	rows, err := db.QueryContext(ctx, sql)
	metrics.RecordDBQuery("SELECT", "similarities", time.Since(start), err)

# Thread Safety

All metric recording functions are safe for concurrent use. The Prometheus
client library handles synchronization internally.

# Cardinality Management

Label values are bounded: endpoint labels use route patterns rather than raw
paths, error types come from a fixed classification, and item or user
identifiers never appear as labels.
*/
package metrics
