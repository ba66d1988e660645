// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/corelate/internal/database"
	"github.com/tomtom215/corelate/internal/models"
)

// ListRuns returns the run history, newest first.
//
// Method: GET
// Path: /api/v1/runs
//
// Query Parameters:
//   - limit: Results per page, clamped by api.max_page_size
//   - offset: Offset into the history
//
// Run rows include status, timing, the config snapshot the run used, and
// counter stats. Responses are never cached; run state changes outside
// the request path.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	start := time.Now()

	req := ListRunsRequest{
		Limit:  h.clampPageSize(getIntParam(r, "limit", 0)),
		Offset: getIntParam(r, "offset", 0),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Database not available", nil)
		return
	}

	runs, hasMore, err := h.store.ListRuns(r.Context(), req.Limit, req.Offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to list runs", err)
		return
	}
	if runs == nil {
		runs = []models.Run{}
	}

	pagination := models.PaginationInfo{
		Limit:   req.Limit,
		Offset:  req.Offset,
		HasMore: hasMore,
	}
	if total, err := h.store.CountRuns(r.Context()); err == nil {
		pagination.TotalCount = &total
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"runs":       runs,
			"pagination": pagination,
		},
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// GetRun returns a single run by id.
//
// Method: GET
// Path: /api/v1/runs/{id}
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid run id", nil)
		return
	}

	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Database not available", nil)
		return
	}

	run, err := h.store.GetRun(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "Run not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load run", err)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   run,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// TriggerRun starts an asynchronous recompute.
//
// Method: POST
// Path: /api/v1/runs
//
// Returns 202 Accepted with the new run row; progress is observable via
// GET /runs/{id} and the WebSocket stream. Runs are serialized: when one
// is already executing the response is 409 Conflict carrying the active
// run instead of queueing a second.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Run scheduling unavailable", nil)
		return
	}

	run, started, err := h.runs.Trigger(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "RUN_ERROR", "Failed to start run", err)
		return
	}

	if !started {
		respondJSON(w, http.StatusConflict, &models.APIResponse{
			Status: "error",
			Data:   run, // the active run, when known
			Metadata: models.Metadata{
				Timestamp: time.Now(),
			},
			Error: &models.APIError{
				Code:    "RUN_IN_PROGRESS",
				Message: "A run is already in progress",
			},
		})
		return
	}

	respondJSON(w, http.StatusAccepted, &models.APIResponse{
		Status: "success",
		Data:   run,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
