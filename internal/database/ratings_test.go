// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/corelate/internal/models"
	"github.com/tomtom215/corelate/internal/similarity"
)

func testEvent(user, item string, rating float64, ratedAt time.Time) *models.RatingEvent {
	return &models.RatingEvent{
		EventID: uuid.New(),
		User:    user,
		Item:    item,
		Rating:  rating,
		RatedAt: ratedAt,
		Source:  models.RatingSourceImport,
	}
}

func mustInsertEvents(t *testing.T, db *DB, events ...*models.RatingEvent) {
	t.Helper()
	inserted, duplicates, err := db.InsertRatingEventsBatch(context.Background(), events)
	if err != nil {
		t.Fatalf("InsertRatingEventsBatch failed: %v", err)
	}
	if inserted != len(events) || duplicates != 0 {
		t.Fatalf("inserted=%d duplicates=%d, want %d new rows", inserted, duplicates, len(events))
	}
}

func TestInsertRatingEventsBatch_Basic(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	mustInsertEvents(t, db,
		testEvent("alice", "inception", 5, now),
		testEvent("bob", "inception", 4, now),
		testEvent("alice", "memento", 3, now),
	)

	count, err := db.RatingCount(ctx)
	if err != nil {
		t.Fatalf("RatingCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("RatingCount = %d, want 3", count)
	}
}

func TestInsertRatingEventsBatch_Empty(t *testing.T) {
	db := setupTestDB(t)

	inserted, duplicates, err := db.InsertRatingEventsBatch(context.Background(), nil)
	if err != nil {
		t.Fatalf("empty batch failed: %v", err)
	}
	if inserted != 0 || duplicates != 0 {
		t.Errorf("empty batch: inserted=%d duplicates=%d, want 0/0", inserted, duplicates)
	}
}

func TestInsertRatingEventsBatch_DuplicateEventID(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ev := testEvent("alice", "inception", 5, time.Now().UTC())
	mustInsertEvents(t, db, ev)

	// Redelivery of the same event must not duplicate the row.
	redelivered := *ev
	inserted, duplicates, err := db.InsertRatingEventsBatch(ctx, []*models.RatingEvent{&redelivered})
	if err != nil {
		t.Fatalf("redelivered batch failed: %v", err)
	}
	if inserted != 0 || duplicates != 1 {
		t.Errorf("redelivery: inserted=%d duplicates=%d, want 0/1", inserted, duplicates)
	}

	count, err := db.RatingCount(ctx)
	if err != nil {
		t.Fatalf("RatingCount failed: %v", err)
	}
	if count != 1 {
		t.Errorf("RatingCount after redelivery = %d, want 1", count)
	}
}

func TestInsertRatingEventsBatch_FillsDefaults(t *testing.T) {
	db := setupTestDB(t)

	ev := &models.RatingEvent{User: "alice", Item: "inception", Rating: 5}
	inserted, _, err := db.InsertRatingEventsBatch(context.Background(), []*models.RatingEvent{ev})
	if err != nil {
		t.Fatalf("InsertRatingEventsBatch failed: %v", err)
	}
	if inserted != 1 {
		t.Fatalf("inserted = %d, want 1", inserted)
	}
	if ev.EventID == uuid.Nil {
		t.Error("EventID was not assigned")
	}
	if ev.RatedAt.IsZero() {
		t.Error("RatedAt was not assigned")
	}
}

func collectRatings(t *testing.T, db *DB) []similarity.Rating {
	t.Helper()
	var got []similarity.Rating
	err := db.EachRating(context.Background(), func(r similarity.Rating) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("EachRating failed: %v", err)
	}
	return got
}

func TestEachRating_LatestWins(t *testing.T) {
	db := setupTestDB(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	// alice re-rates inception a day later; only the re-rating counts.
	mustInsertEvents(t, db,
		testEvent("alice", "inception", 2, base),
		testEvent("alice", "inception", 5, base.Add(24*time.Hour)),
		testEvent("bob", "inception", 4, base),
	)

	got := collectRatings(t, db)
	if len(got) != 2 {
		t.Fatalf("EachRating delivered %d ratings, want 2", len(got))
	}

	byUser := make(map[string]float64, len(got))
	for _, r := range got {
		if r.Item != "inception" {
			t.Errorf("unexpected item %q", r.Item)
		}
		byUser[r.User] = r.Rating
	}
	if byUser["alice"] != 5 {
		t.Errorf("alice's rating = %v, want the re-rating 5", byUser["alice"])
	}
	if byUser["bob"] != 4 {
		t.Errorf("bob's rating = %v, want 4", byUser["bob"])
	}
}

func TestEachRating_Empty(t *testing.T) {
	db := setupTestDB(t)

	calls := 0
	err := db.EachRating(context.Background(), func(similarity.Rating) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("EachRating on empty log failed: %v", err)
	}
	if calls != 0 {
		t.Errorf("callback invoked %d times on empty log", calls)
	}
}

func TestEachRating_CallbackError(t *testing.T) {
	db := setupTestDB(t)
	mustInsertEvents(t, db, testEvent("alice", "inception", 5, time.Now().UTC()))

	sentinel := errors.New("stop")
	err := db.EachRating(context.Background(), func(similarity.Rating) error {
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("EachRating error = %v, want the callback's error", err)
	}
}

func TestEachRating_CancelledContext(t *testing.T) {
	db := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := db.EachRating(ctx, func(similarity.Rating) error { return nil })
	if err == nil {
		t.Error("EachRating with cancelled context should fail")
	}
}

func TestRatings_SourceAdapter(t *testing.T) {
	db := setupTestDB(t)
	now := time.Now().UTC()
	mustInsertEvents(t, db,
		testEvent("alice", "inception", 5, now),
		testEvent("bob", "memento", 3, now),
	)

	var src similarity.RatingSource = db.Ratings()
	seen := 0
	if err := src.Each(context.Background(), func(r similarity.Rating) error {
		if r.User == "" || r.Item == "" {
			t.Errorf("adapter delivered empty identifiers: %+v", r)
		}
		seen++
		return nil
	}); err != nil {
		t.Fatalf("source adapter failed: %v", err)
	}
	if seen != 2 {
		t.Errorf("adapter delivered %d ratings, want 2", seen)
	}
}
