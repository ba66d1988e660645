// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/corelate/internal/models"
)

func decodeHealth(t *testing.T, body []byte) models.HealthStatus {
	t.Helper()
	var resp struct {
		Status string              `json:"status"`
		Data   models.HealthStatus `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("Unmarshal health response: %v\nbody: %s", err, body)
	}
	return resp.Data
}

func TestHealth_Healthy(t *testing.T) {
	t.Parallel()

	run := completedRun()
	h := newTestHandler(&fakeStore{latest: run}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d\nbody: %s", rec.Code, rec.Body.String())
	}
	health := decodeHealth(t, rec.Body.Bytes())
	if health.Status != "healthy" {
		t.Errorf("status = %q, want healthy", health.Status)
	}
	if health.Mode != "direct" {
		t.Errorf("mode = %q, want direct without a pipeline", health.Mode)
	}
	if !health.DatabaseConnected {
		t.Error("database_connected should be true")
	}
	if health.IngestRunning {
		t.Error("ingest_running should be false without a pipeline")
	}
	if health.Version != version {
		t.Errorf("version = %q, want %q", health.Version, version)
	}
	if health.LastRunTime == nil || !health.LastRunTime.Equal(*run.FinishedAt) {
		t.Errorf("last_run_time = %v, want %v", health.LastRunTime, run.FinishedAt)
	}
	if health.Uptime < 0 {
		t.Errorf("uptime = %v, want non-negative", health.Uptime)
	}
}

func TestHealth_DatabaseDown(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeStore{pingErr: errors.New("connection refused")}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	// Full health always answers 200; degradation is in the payload.
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	health := decodeHealth(t, rec.Body.Bytes())
	if health.Status != "degraded" {
		t.Errorf("status = %q, want degraded", health.Status)
	}
	if health.DatabaseConnected {
		t.Error("database_connected should be false")
	}
}

func TestHealth_NoCompletedRun(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeStore{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	health := decodeHealth(t, rec.Body.Bytes())
	if health.LastRunTime != nil {
		t.Errorf("last_run_time = %v, want omitted before the first run", health.LastRunTime)
	}
	if health.Status != "healthy" {
		t.Errorf("status = %q, a fresh database is still healthy", health.Status)
	}
}

func TestHealth_NATSEnabledButNotRunning(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.NATS.Enabled = true
	h := NewHandler(&fakeStore{latest: completedRun()}, nil, nil, nil, nil, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	health := decodeHealth(t, rec.Body.Bytes())
	if health.Status != "degraded" {
		t.Errorf("status = %q, want degraded when enabled ingest is down", health.Status)
	}
	if health.Mode != "direct" {
		t.Errorf("mode = %q, want direct while the pipeline is down", health.Mode)
	}
}

func TestHealthLive(t *testing.T) {
	t.Parallel()

	// Liveness must not touch any dependency.
	h := newTestHandler(nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/live", nil)
	rec := httptest.NewRecorder()
	h.HealthLive(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			Alive  bool    `json:"alive"`
			Uptime float64 `json:"uptime"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !resp.Data.Alive {
		t.Error("alive should be true")
	}
}

func TestHealthReady_Ready(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeStore{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil)
	rec := httptest.NewRecorder()
	h.HealthReady(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d\nbody: %s", rec.Code, http.StatusOK, rec.Body.String())
	}
	var resp struct {
		Status string `json:"status"`
		Data   struct {
			DatabaseConnected bool `json:"database_connected"`
			ReadyToServe      bool `json:"ready_to_serve"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Status != "ready" {
		t.Errorf("status field = %q, want ready", resp.Status)
	}
	if !resp.Data.ReadyToServe {
		t.Error("ready_to_serve should be true")
	}
}

func TestHealthReady_DatabaseDown(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeStore{pingErr: errors.New("connection refused")}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil)
	rec := httptest.NewRecorder()
	h.HealthReady(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if resp.Status != "not_ready" {
		t.Errorf("status field = %q, want not_ready", resp.Status)
	}
}

func TestHealthReady_IngestGatesWhenEnabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.NATS.Enabled = true
	h := NewHandler(&fakeStore{}, nil, nil, nil, nil, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health/ready", nil)
	rec := httptest.NewRecorder()
	h.HealthReady(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d when enabled ingest is down", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHealth_MethodNotAllowed(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeStore{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/health", nil)
	rec := httptest.NewRecorder()
	h.Health(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusMethodNotAllowed)
	}
}
