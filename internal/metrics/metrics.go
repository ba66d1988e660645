// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package metrics

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus instrumentation for:
// - Similarity run duration and pipeline counters
// - Database query performance (DuckDB)
// - API endpoint latency and throughput
// - Rating event ingest (NATS/Watermill)
// - Neighbor index (Badger)
// - WebSocket connections

var (
	// Run Metrics
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "run_duration_seconds",
			Help:    "Duration of similarity runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600}, // Full runs can take minutes
		},
	)

	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "runs_total",
			Help: "Total number of similarity runs",
		},
		[]string{"status"}, // "completed", "failed", "cancelled"
	)

	RunRatingsRead = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "run_ratings_read_total",
			Help: "Total number of ratings read across runs",
		},
	)

	RunPairsGenerated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "run_pairs_generated_total",
			Help: "Total number of item pairs generated across runs",
		},
	)

	RunPairsKept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "run_pairs_kept_total",
			Help: "Total number of item pairs surviving the intersection threshold",
		},
	)

	RunRecordsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "run_records_written_total",
			Help: "Total number of similarity records written to sinks",
		},
	)

	RunLastSuccess = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "run_last_success_timestamp",
			Help: "Unix timestamp of last completed run",
		},
	)

	// Database Metrics
	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duckdb_query_duration_seconds",
			Help:    "Duration of DuckDB queries in seconds",
			Buckets: prometheus.DefBuckets, // 0.005s .. 10s
		},
		[]string{"operation", "table"},
	)

	DBQueryErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_query_errors_total",
			Help: "Total number of DuckDB query errors",
		},
		[]string{"operation", "table", "error_type"},
	)

	DBConnectionsInUse = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "duckdb_connections_in_use",
			Help: "Current number of database connections in use",
		},
	)

	DBRowsInserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duckdb_rows_inserted_total",
			Help: "Total number of rows inserted per table",
		},
		[]string{"table"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	APIRateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_rate_limit_hits_total",
			Help: "Total number of rate limit rejections",
		},
		[]string{"endpoint"},
	)

	// Ingest Metrics (NATS/Watermill)
	IngestEventsPublished = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_published_total",
			Help: "Total number of rating events published to NATS",
		},
	)

	IngestEventsConsumed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_consumed_total",
			Help: "Total number of rating events consumed from NATS",
		},
	)

	IngestEventsProcessed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_processed_total",
			Help: "Total number of rating events successfully appended",
		},
	)

	IngestEventsDeduplicated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_deduplicated_total",
			Help: "Total number of rating events skipped as duplicates",
		},
	)

	IngestEventsRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "ingest_events_rejected_total",
			Help: "Total number of rating events rejected by parsing or validation",
		},
	)

	IngestBatchFlushDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_flush_duration_seconds",
			Help:    "Duration of ingest batch flush operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	IngestBatchSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ingest_batch_size",
			Help:    "Number of events in each batch flush",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
		},
	)

	// Neighbor Index Metrics (Badger)
	IndexRebuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "index_rebuild_duration_seconds",
			Help:    "Duration of neighbor index rebuilds in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120},
		},
	)

	IndexEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "index_entries",
			Help: "Current number of items in the neighbor index",
		},
	)

	IndexLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "index_lookups_total",
			Help: "Total number of neighbor index lookups",
		},
		[]string{"result"}, // "hit", "miss", "error"
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)

	AppUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "app_uptime_seconds",
			Help: "Application uptime in seconds",
		},
	)
)

// RecordRun records a completed similarity run.
// A nil error counts as completed and refreshes the last-success timestamp.
func RecordRun(duration time.Duration, err error) {
	RunDuration.Observe(duration.Seconds())

	switch {
	case err == nil:
		RunsTotal.WithLabelValues("completed").Inc()
		RunLastSuccess.Set(float64(time.Now().Unix()))
	case errors.Is(err, context.Canceled):
		RunsTotal.WithLabelValues("cancelled").Inc()
	default:
		RunsTotal.WithLabelValues("failed").Inc()
	}
}

// RecordRunStats adds a run's pipeline counters to the cumulative totals.
func RecordRunStats(ratingsRead, pairsGenerated, pairsKept, recordsWritten int64) {
	RunRatingsRead.Add(float64(ratingsRead))
	RunPairsGenerated.Add(float64(pairsGenerated))
	RunPairsKept.Add(float64(pairsKept))
	RunRecordsWritten.Add(float64(recordsWritten))
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table string, duration time.Duration, err error) {
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
	if err != nil {
		DBQueryErrors.WithLabelValues(operation, table, classifyDBError(err)).Inc()
	}
}

// classifyDBError maps an error to a bounded label value.
// Raw error strings would blow up metric cardinality.
func classifyDBError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	case strings.Contains(msg, "constraint"), strings.Contains(msg, "duplicate"):
		return "constraint"
	case strings.Contains(msg, "connection"), strings.Contains(msg, "closed"):
		return "connection"
	case strings.Contains(msg, "syntax"), strings.Contains(msg, "parse"):
		return "syntax"
	default:
		return "other"
	}
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks active API requests
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordIngestBatchFlush records an ingest batch flush operation
func RecordIngestBatchFlush(duration time.Duration, batchSize int) {
	IngestBatchFlushDuration.Observe(duration.Seconds())
	IngestBatchSize.Observe(float64(batchSize))
}

// RecordIndexRebuild records a neighbor index rebuild
func RecordIndexRebuild(duration time.Duration, entries int64) {
	IndexRebuildDuration.Observe(duration.Seconds())
	IndexEntries.Set(float64(entries))
}

// RecordCircuitBreakerTransition records a state transition and updates the
// state gauge. State values follow gobreaker naming.
func RecordCircuitBreakerTransition(name, from, to string) {
	CircuitBreakerTransitions.WithLabelValues(name, from, to).Inc()
	CircuitBreakerState.WithLabelValues(name).Set(breakerStateValue(to))
}

// breakerStateValue maps a gobreaker state name to the gauge encoding.
func breakerStateValue(state string) float64 {
	switch strings.ToLower(state) {
	case "closed":
		return 0
	case "half-open":
		return 1
	case "open":
		return 2
	default:
		return -1
	}
}
