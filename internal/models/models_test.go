// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package models

import (
	"math"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/corelate/internal/similarity"
	"github.com/tomtom215/corelate/internal/validation"
)

func TestRatingEventJSON(t *testing.T) {
	event := RatingEvent{
		EventID: uuid.New(),
		User:    "alice",
		Item:    "inception",
		Rating:  4.5,
		RatedAt: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		Source:  RatingSourceAPI,
	}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Failed to marshal RatingEvent: %v", err)
	}

	var decoded RatingEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal RatingEvent: %v", err)
	}

	if decoded.EventID != event.EventID {
		t.Errorf("EventID = %v, want %v", decoded.EventID, event.EventID)
	}
	if decoded.User != "alice" || decoded.Item != "inception" || decoded.Rating != 4.5 {
		t.Errorf("decoded = %+v", decoded)
	}
	if !decoded.RatedAt.Equal(event.RatedAt) {
		t.Errorf("RatedAt = %v, want %v", decoded.RatedAt, event.RatedAt)
	}
}

func TestRatingEventValidation(t *testing.T) {
	tests := []struct {
		name    string
		event   RatingEvent
		wantErr bool
	}{
		{
			name:  "valid event",
			event: RatingEvent{User: "alice", Item: "inception", Rating: 4.5},
		},
		{
			name:  "zero rating is valid",
			event: RatingEvent{User: "alice", Item: "inception", Rating: 0},
		},
		{
			name:  "negative rating is valid",
			event: RatingEvent{User: "alice", Item: "inception", Rating: -2},
		},
		{
			name:    "missing user",
			event:   RatingEvent{Item: "inception", Rating: 4.5},
			wantErr: true,
		},
		{
			name:    "missing item",
			event:   RatingEvent{User: "alice", Rating: 4.5},
			wantErr: true,
		},
		{
			name:    "NaN rating",
			event:   RatingEvent{User: "alice", Item: "inception", Rating: math.NaN()},
			wantErr: true,
		},
		{
			name:    "infinite rating",
			event:   RatingEvent{User: "alice", Item: "inception", Rating: math.Inf(1)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validation.ValidateStruct(&tt.event)
			if tt.wantErr && err == nil {
				t.Error("ValidateStruct() = nil, want error")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateStruct() = %v, want nil", err)
			}
		})
	}
}

func TestRunDuration(t *testing.T) {
	started := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	finished := started.Add(90 * time.Second)

	running := Run{ID: uuid.New(), Status: RunStatusRunning, StartedAt: started}
	if got := running.Duration(); got != 0 {
		t.Errorf("Duration() = %v for running run, want 0", got)
	}

	done := Run{ID: uuid.New(), Status: RunStatusCompleted, StartedAt: started, FinishedAt: &finished}
	if got := done.Duration(); got != 90*time.Second {
		t.Errorf("Duration() = %v, want 90s", got)
	}
}

func TestRunJSON(t *testing.T) {
	finished := time.Date(2026, 8, 1, 12, 5, 0, 0, time.UTC)
	run := Run{
		ID:         uuid.New(),
		Status:     RunStatusCompleted,
		StartedAt:  time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
		FinishedAt: &finished,
		Config:     similarity.DefaultConfig(),
		Stats: similarity.RunStats{
			RatingsRead: 1000,
			ItemsSeen:   50,
			PairsKept:   120,
		},
		RecordsWritten: 120,
	}

	data, err := json.Marshal(run)
	if err != nil {
		t.Fatalf("Failed to marshal Run: %v", err)
	}

	var decoded Run
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal Run: %v", err)
	}

	if decoded.ID != run.ID || decoded.Status != RunStatusCompleted {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.FinishedAt == nil || !decoded.FinishedAt.Equal(finished) {
		t.Errorf("FinishedAt = %v, want %v", decoded.FinishedAt, finished)
	}
	if decoded.Config.MinRaters != run.Config.MinRaters {
		t.Errorf("Config.MinRaters = %d, want %d", decoded.Config.MinRaters, run.Config.MinRaters)
	}
	if decoded.Stats.RatingsRead != 1000 {
		t.Errorf("Stats.RatingsRead = %d, want 1000", decoded.Stats.RatingsRead)
	}

	// A run that never finished omits finished_at and error entirely.
	running := Run{ID: uuid.New(), Status: RunStatusRunning, StartedAt: run.StartedAt, Config: run.Config}
	data, err = json.Marshal(running)
	if err != nil {
		t.Fatalf("Failed to marshal running Run: %v", err)
	}
	for _, absent := range []string{"finished_at", "\"error\""} {
		if containsSubstr(string(data), absent) {
			t.Errorf("running run JSON contains %s: %s", absent, data)
		}
	}
}

func containsSubstr(s, substr string) bool {
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
