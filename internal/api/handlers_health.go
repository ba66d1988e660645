// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/corelate/internal/models"
)

// Health handles health check requests.
//
// Returns the overall service status including database connectivity, the
// active ingest mode, WebSocket client count, the time of the last
// completed run, and uptime.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	// Check database connectivity (nil means not connected)
	dbConnected := h.store != nil && h.store.Ping(r.Context()) == nil

	// Determine mode: nats (events flow through JetStream) or direct
	// (events are written straight to the database)
	ingestRunning := h.pipeline.IsRunning()
	natsEnabled := h.config != nil && h.config.NATS.Enabled
	mode := "direct"
	if ingestRunning {
		mode = "nats"
	}

	// Determine health status:
	// - Direct mode: healthy if the database responds
	// - NATS enabled: also requires the ingest pipeline to be running
	status := "healthy"
	if !dbConnected {
		status = "degraded"
	} else if natsEnabled && !ingestRunning {
		status = "degraded"
	}

	var lastRunPtr *time.Time
	if h.store != nil {
		if run, err := h.store.LatestCompletedRun(r.Context()); err == nil && run.FinishedAt != nil {
			lastRunPtr = run.FinishedAt
		}
	}

	clients := 0
	if h.wsHub != nil {
		clients = h.wsHub.GetClientCount()
	}

	health := models.HealthStatus{
		Status:            status,
		Mode:              mode,
		Version:           version,
		DatabaseConnected: dbConnected,
		IngestRunning:     ingestRunning,
		WebSocketClients:  clients,
		LastRunTime:       lastRunPtr,
		Uptime:            time.Since(h.startTime).Seconds(),
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   health,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthLive handles liveness probe requests (Kubernetes-style).
// Returns 200 OK if the process is alive, regardless of dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data: map[string]interface{}{
			"alive":  true,
			"uptime": time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}

// HealthReady handles readiness probe requests (Kubernetes-style).
// Returns 200 OK only if the service is ready to handle traffic: the
// database responds and, when NATS ingest is enabled, the pipeline is
// running. Returns 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	// Check database connectivity (nil means not connected)
	dbConnected := h.store != nil && h.store.Ping(r.Context()) == nil

	// Ingest only gates readiness when it is enabled; in direct mode the
	// database is the only hard dependency.
	ingestRunning := h.pipeline.IsRunning()
	ingestReady := true
	if h.config != nil && h.config.NATS.Enabled {
		ingestReady = ingestRunning
	}
	ready := dbConnected && ingestReady

	statusCode := http.StatusOK
	status := "ready"
	if !ready {
		statusCode = http.StatusServiceUnavailable
		status = "not_ready"
	}

	respondJSON(w, statusCode, &models.APIResponse{
		Status: status,
		Data: map[string]interface{}{
			"database_connected": dbConnected,
			"ingest_running":     ingestRunning,
			"ready_to_serve":     ready,
			"uptime":             time.Since(h.startTime).Seconds(),
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
