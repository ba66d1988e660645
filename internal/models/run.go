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

// Run status values. A run moves running -> completed or running -> failed;
// there are no other transitions.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// Run represents one execution of the similarity pipeline.
//
// The configuration is snapshotted at start so a finished run can always
// be interpreted against the thresholds it actually ran with, even after
// the live configuration changed. Stats are populated on completion;
// Error is populated on failure.
type Run struct {
	ID             uuid.UUID           `json:"id"`
	Status         string              `json:"status"`
	StartedAt      time.Time           `json:"started_at"`
	FinishedAt     *time.Time          `json:"finished_at,omitempty"`
	Error          *string             `json:"error,omitempty"`
	Config         similarity.Config   `json:"config"`
	Stats          similarity.RunStats `json:"stats"`
	RecordsWritten int64               `json:"records_written"`
}

// Duration returns the run's wall-clock duration, or zero while it is
// still running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunsResponse wraps a page of runs for the runs listing endpoint.
type RunsResponse struct {
	Runs       []Run          `json:"runs"`
	Pagination PaginationInfo `json:"pagination"`
}
