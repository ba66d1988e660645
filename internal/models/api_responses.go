// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/corelate/internal/similarity"
)

// APIResponse represents a standardized API response wrapper used by all HTTP endpoints.
// It provides consistent structure for both successful and error responses, with metadata
// for observability.
//
// Status field values:
//   - "success": Request completed successfully, see Data field
//   - "error": Request failed, see Error field for details
//
// Example successful response:
//
//	{
//	  "status": "success",
//	  "data": {"item": "inception", "neighbors": [...]},
//	  "metadata": {
//	    "timestamp": "2026-08-25T12:00:00Z",
//	    "query_time_ms": 3
//	  }
//	}
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {
//	    "code": "VALIDATION_ERROR",
//	    "message": "limit must be at most 100",
//	    "details": {"field": "limit"}
//	  },
//	  "metadata": {"timestamp": "2026-08-25T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
//
// Fields:
//   - Timestamp: Server time when the response was generated
//   - QueryTimeMS: Time spent answering the request in milliseconds
//   - Cached: True when the response was served from the neighbor index
//     instead of a database query (omitted if false)
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError represents an error response with structured error details.
//
// Common error codes:
//   - VALIDATION_ERROR: Invalid input parameters or request body
//   - DATABASE_ERROR: Query execution failure
//   - NOT_FOUND: Resource doesn't exist
//   - NO_COMPLETED_RUN: No similarity run has completed yet
//   - INGEST_ERROR: Rating event could not be accepted
//   - RATE_LIMIT_EXCEEDED: Too many requests
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// PaginationInfo contains offset-based pagination metadata.
//
// HasMore is computed by fetching limit+1 rows and trimming, so it is
// accurate without a separate COUNT query. TotalCount is only populated
// by endpoints where counting is cheap.
type PaginationInfo struct {
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
	HasMore    bool   `json:"has_more"`
	TotalCount *int64 `json:"total_count,omitempty"`
}

// NeighborsResponse wraps a ranked neighbor list for one item.
//
// RunID names the completed run the answer came from, so clients can
// detect when two queries were answered from different snapshots.
type NeighborsResponse struct {
	Item      string              `json:"item"`
	Measure   string              `json:"measure"`
	RunID     uuid.UUID           `json:"run_id"`
	Neighbors []similarity.Record `json:"neighbors"`
}

// PairResponse wraps the similarity record for one canonical item pair.
type PairResponse struct {
	RunID  uuid.UUID         `json:"run_id"`
	Record similarity.Record `json:"record"`
}

// HealthStatus is the payload of the full health endpoint.
//
// Mode reports the active write path: "nats" when rating events flow
// through the JetStream pipeline, "direct" when they are written straight
// to the database. Status is "healthy" when every enabled dependency
// responds and "degraded" otherwise.
type HealthStatus struct {
	Status            string     `json:"status"`
	Mode              string     `json:"mode"`
	Version           string     `json:"version"`
	DatabaseConnected bool       `json:"database_connected"`
	IngestRunning     bool       `json:"ingest_running"`
	WebSocketClients  int        `json:"websocket_clients"`
	LastRunTime       *time.Time `json:"last_run_time,omitempty"`
	Uptime            float64    `json:"uptime"`
}
