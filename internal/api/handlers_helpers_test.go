// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package api

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/corelate/internal/models"
)

func TestSanitizeLogValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain string unchanged", "inception", "inception"},
		{"newline escaped", "line1\nline2", "line1\\x0aline2"},
		{"carriage return escaped", "a\rb", "a\\x0db"},
		{"tab escaped", "a\tb", "a\\x09b"},
		{"delete escaped", "a\x7fb", "a\\x7fb"},
		{"unicode preserved", "café", "café"},
		{"forged log entry neutralized", "x\n[ERROR] fake", "x\\x0a[ERROR] fake"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeLogValue(tt.input); got != tt.want {
				t.Errorf("sanitizeLogValue(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestGenerateETag(t *testing.T) {
	t.Parallel()

	a := generateETag([]byte(`{"status":"success"}`))
	b := generateETag([]byte(`{"status":"success"}`))
	c := generateETag([]byte(`{"status":"error"}`))

	if a != b {
		t.Errorf("same input should produce same ETag: %q vs %q", a, b)
	}
	if a == c {
		t.Errorf("different inputs should produce different ETags: both %q", a)
	}
	if a == "" {
		t.Error("ETag should not be empty")
	}
}

func TestRespondJSON_Headers(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	respondJSON(rec, http.StatusOK, &models.APIResponse{
		Status:   "success",
		Metadata: models.Metadata{Timestamp: time.Now()},
	})

	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q, want application/json", got)
	}
	if got := rec.Header().Get("Cache-Control"); got != "public, max-age=60" {
		t.Errorf("Cache-Control = %q", got)
	}
	if rec.Header().Get("ETag") == "" {
		t.Error("ETag header missing")
	}
}

func TestRespondError_Shape(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	respondError(rec, http.StatusInternalServerError, "DATABASE_ERROR", "Query failed", errors.New("internal detail"))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	resp := decodeResponse(t, rec.Body.Bytes())
	if resp.Status != "error" {
		t.Errorf("status field = %q, want error", resp.Status)
	}
	if resp.Error == nil || resp.Error.Code != "DATABASE_ERROR" {
		t.Fatalf("error = %+v", resp.Error)
	}
	if resp.Error.Message != "Query failed" {
		t.Errorf("message = %q", resp.Error.Message)
	}
	// The raw error text must not leak to clients
	if strings.Contains(rec.Body.String(), "internal detail") {
		t.Error("internal error detail leaked into response body")
	}
}

func TestGetIntParam(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query string
		key   string
		def   int
		want  int
	}{
		{"present", "?limit=42", "limit", 10, 42},
		{"missing uses default", "", "limit", 10, 10},
		{"non-numeric uses default", "?limit=abc", "limit", 10, 10},
		{"negative passes through", "?offset=-5", "offset", 0, -5},
		{"zero passes through", "?limit=0", "limit", 10, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/"+tt.query, nil)
			if got := getIntParam(req, tt.key, tt.def); got != tt.want {
				t.Errorf("getIntParam(%q, %d) = %d, want %d", tt.query, tt.def, got, tt.want)
			}
		})
	}
}

func TestClampPageSize(t *testing.T) {
	t.Parallel()

	h := newTestHandler(nil, nil, nil) // testConfig: default 20, max 100

	tests := []struct {
		limit int
		want  int
	}{
		{0, 20},
		{-1, 20},
		{1, 1},
		{50, 50},
		{100, 100},
		{101, 100},
		{100000, 100},
	}

	for _, tt := range tests {
		if got := h.clampPageSize(tt.limit); got != tt.want {
			t.Errorf("clampPageSize(%d) = %d, want %d", tt.limit, got, tt.want)
		}
	}
}

func TestClampPageSize_NilConfig(t *testing.T) {
	t.Parallel()

	h := &Handler{}
	if got := h.clampPageSize(0); got != 20 {
		t.Errorf("clampPageSize(0) = %d, want built-in default 20", got)
	}
	if got := h.clampPageSize(5000); got != 100 {
		t.Errorf("clampPageSize(5000) = %d, want built-in max 100", got)
	}
}

func TestValidateRequest(t *testing.T) {
	t.Parallel()

	valid := NeighborsRequest{Item: "inception", Measure: "cosine", Limit: 10}
	if apiErr := validateRequest(&valid); apiErr != nil {
		t.Errorf("valid request rejected: %+v", apiErr)
	}

	missing := NeighborsRequest{Measure: "cosine", Limit: 10}
	if apiErr := validateRequest(&missing); apiErr == nil {
		t.Error("missing item should fail validation")
	} else if apiErr.Code != "VALIDATION_ERROR" {
		t.Errorf("code = %q, want VALIDATION_ERROR", apiErr.Code)
	}

	badMeasure := NeighborsRequest{Item: "x", Measure: "euclidean", Limit: 10}
	if apiErr := validateRequest(&badMeasure); apiErr == nil {
		t.Error("unknown measure should fail validation")
	}
}
