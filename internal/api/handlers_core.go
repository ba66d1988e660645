// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/tomtom215/corelate/internal/cache"
	"github.com/tomtom215/corelate/internal/database"
	"github.com/tomtom215/corelate/internal/index"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/models"
	"github.com/tomtom215/corelate/internal/similarity"
	ws "github.com/tomtom215/corelate/internal/websocket"
)

// indexMeasure returns the measure the neighbor index is built for.
func (h *Handler) indexMeasure() string {
	if h.config != nil && h.config.Index.Measure != "" {
		return h.config.Index.Measure
	}
	return similarity.MeasureRegularized
}

// Neighbors returns the ranked neighbor list for one item.
//
// Method: GET
// Path: /api/v1/items/{item}/neighbors
//
// Query Parameters:
//   - measure: Ranking measure (correlation, regularized, cosine, jaccard).
//     Defaults to the measure the neighbor index is built for.
//   - limit: Maximum neighbors to return, clamped by api.max_page_size.
//
// Requests for the index measure are answered from the Badger-backed index
// and marked with "cached": true. Other measures, and requests arriving
// before the first index build, are answered from DuckDB against the
// latest completed run.
func (h *Handler) Neighbors(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	start := time.Now()

	req := NeighborsRequest{
		Item:    r.PathValue("item"),
		Measure: r.URL.Query().Get("measure"),
		Limit:   h.clampPageSize(getIntParam(r, "limit", 0)),
	}
	if req.Measure == "" {
		req.Measure = h.indexMeasure()
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	// Index path: only valid when the index ranks by the requested measure.
	if h.index != nil && req.Measure == h.indexMeasure() {
		records, meta, err := h.index.Neighbors(req.Item, req.Limit)
		switch {
		case err == nil:
			respondJSON(w, http.StatusOK, &models.APIResponse{
				Status: "success",
				Data: models.NeighborsResponse{
					Item:      req.Item,
					Measure:   meta.Measure,
					RunID:     meta.RunID,
					Neighbors: records,
				},
				Metadata: models.Metadata{
					Timestamp:   time.Now(),
					QueryTimeMS: time.Since(start).Milliseconds(),
					Cached:      true,
				},
			})
			return
		case errors.Is(err, index.ErrNotBuilt):
			// First run has not completed an index build yet; the database
			// may still hold an older snapshot.
		default:
			logging.Warn().Err(err).Str("item", sanitizeLogValue(req.Item)).Msg("Index lookup failed, falling back to database")
		}
	}

	cacheKey := cache.GenerateKey("Neighbors", req)
	if h.cache != nil {
		if cached, found := h.cache.Get(cacheKey); found {
			respondJSON(w, http.StatusOK, &models.APIResponse{
				Status: "success",
				Data:   cached,
				Metadata: models.Metadata{
					Timestamp:   time.Now(),
					QueryTimeMS: 0, // Cached
					Cached:      true,
				},
			})
			return
		}
	}

	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Database not available", nil)
		return
	}

	run, err := h.store.LatestCompletedRun(r.Context())
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "NO_COMPLETED_RUN", "No similarity run has completed yet", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to resolve latest run", err)
		return
	}

	records, err := h.store.NeighborRecords(r.Context(), run.ID, req.Item, req.Measure, req.Limit)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query neighbors", err)
		return
	}
	if records == nil {
		records = []similarity.Record{}
	}

	data := models.NeighborsResponse{
		Item:      req.Item,
		Measure:   req.Measure,
		RunID:     run.ID,
		Neighbors: records,
	}
	if h.cache != nil {
		h.cache.Set(cacheKey, data)
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Pair returns the similarity record for one item pair.
//
// Method: GET
// Path: /api/v1/pairs
//
// Query Parameters:
//   - a, b: The two item identifiers, in either order.
//
// The pair is looked up in the latest completed run. Pairs filtered out
// during the run (too few co-raters) return 404.
func (h *Handler) Pair(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	start := time.Now()

	req := PairRequest{
		ItemA: r.URL.Query().Get("a"),
		ItemB: r.URL.Query().Get("b"),
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	cacheKey := cache.GenerateKey("Pair", req)
	if h.cache != nil {
		if cached, found := h.cache.Get(cacheKey); found {
			respondJSON(w, http.StatusOK, &models.APIResponse{
				Status: "success",
				Data:   cached,
				Metadata: models.Metadata{
					Timestamp:   time.Now(),
					QueryTimeMS: 0, // Cached
					Cached:      true,
				},
			})
			return
		}
	}

	if h.store == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Database not available", nil)
		return
	}

	run, err := h.store.LatestCompletedRun(r.Context())
	if err != nil {
		if errors.Is(err, database.ErrRunNotFound) {
			respondError(w, http.StatusNotFound, "NO_COMPLETED_RUN", "No similarity run has completed yet", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to resolve latest run", err)
		return
	}

	record, err := h.store.PairRecord(r.Context(), run.ID, req.ItemA, req.ItemB)
	if err != nil {
		if errors.Is(err, database.ErrPairNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "No similarity recorded for this pair", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query pair", err)
		return
	}

	data := models.PairResponse{
		RunID:  run.ID,
		Record: *record,
	}
	if h.cache != nil {
		h.cache.Set(cacheKey, data)
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp:   time.Now(),
			QueryTimeMS: time.Since(start).Milliseconds(),
		},
	})
}

// Config returns the active similarity parameters.
//
// Method: GET
// Path: /api/v1/config
//
// The response includes the engine thresholds, the compute schedule, the
// index measure, and the list of supported measures. Secrets never appear
// here; the exposed sections are all tunables a client may legitimately
// want to display.
func (h *Handler) Config(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	if h.config == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Configuration not available", nil)
		return
	}

	data := map[string]interface{}{
		"similarity": h.config.Similarity,
		"compute": map[string]interface{}{
			"interval":     h.config.Compute.Interval.String(),
			"run_on_start": h.config.Compute.RunOnStart,
		},
		"index": map[string]interface{}{
			"measure": h.indexMeasure(),
			"top_k":   h.config.Index.TopK,
		},
		"measures": similarity.Measures(),
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// WebSocket upgrades the connection and registers the client with the hub.
//
// Method: GET
// Path: /api/v1/ws
//
// Connected clients receive run_started, run_progress, run_completed,
// run_failed, and rating_received messages as JSON.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	// Check if WebSocket hub is available
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "WebSocket service unavailable", nil)
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	h.wsHub.Register <- client
	client.Start()
}
