// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package database

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/tomtom215/corelate/internal/similarity"
)

func record(a, b string, corr float64) similarity.Record {
	return similarity.Record{
		Item:                   a,
		Item2:                  b,
		Correlation:            corr,
		RegularizedCorrelation: corr / 2,
		CosineSimilarity:       0.9,
		JaccardSimilarity:      0.25,
		Size:                   10,
		NumRaters:              40,
		NumRaters2:             60,
	}
}

func mustInsertRecords(t *testing.T, db *DB, runID uuid.UUID, records ...similarity.Record) {
	t.Helper()
	inserted, err := db.InsertSimilarityRecords(context.Background(), runID, records)
	if err != nil {
		t.Fatalf("InsertSimilarityRecords failed: %v", err)
	}
	if inserted != len(records) {
		t.Fatalf("inserted = %d, want %d", inserted, len(records))
	}
}

func TestInsertSimilarityRecords(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runID := uuid.New()

	mustInsertRecords(t, db, runID,
		record("a", "b", 0.9),
		record("a", "c", 0.5),
		record("b", "c", 0.7),
	)

	count, err := db.SimilarityCount(ctx, runID)
	if err != nil {
		t.Fatalf("SimilarityCount failed: %v", err)
	}
	if count != 3 {
		t.Errorf("SimilarityCount = %d, want 3", count)
	}

	// Records belong to their run, not the table at large.
	other, err := db.SimilarityCount(ctx, uuid.New())
	if err != nil {
		t.Fatalf("SimilarityCount failed: %v", err)
	}
	if other != 0 {
		t.Errorf("unrelated run has %d records, want 0", other)
	}
}

func TestInsertSimilarityRecords_Empty(t *testing.T) {
	db := setupTestDB(t)

	inserted, err := db.InsertSimilarityRecords(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("empty batch failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("empty batch inserted %d", inserted)
	}
}

func TestPairRecord_NonFiniteScores(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runID := uuid.New()

	r := record("a", "b", math.NaN())
	r.CosineSimilarity = math.Inf(1)
	r.RegularizedCorrelation = math.Inf(-1)
	mustInsertRecords(t, db, runID, r)

	got, err := db.PairRecord(ctx, runID, "a", "b")
	if err != nil {
		t.Fatalf("PairRecord failed: %v", err)
	}
	if !math.IsNaN(got.Correlation) {
		t.Errorf("Correlation = %v, want NaN preserved", got.Correlation)
	}
	if !math.IsInf(got.CosineSimilarity, 1) {
		t.Errorf("CosineSimilarity = %v, want +Inf preserved", got.CosineSimilarity)
	}
	if !math.IsInf(got.RegularizedCorrelation, -1) {
		t.Errorf("RegularizedCorrelation = %v, want -Inf preserved", got.RegularizedCorrelation)
	}
}

func TestPairRecord_ArgumentOrder(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runID := uuid.New()

	mustInsertRecords(t, db, runID, record("a", "b", 0.9))

	// Both argument orders find the canonical row.
	forward, err := db.PairRecord(ctx, runID, "a", "b")
	if err != nil {
		t.Fatalf("PairRecord(a, b) failed: %v", err)
	}
	reversed, err := db.PairRecord(ctx, runID, "b", "a")
	if err != nil {
		t.Fatalf("PairRecord(b, a) failed: %v", err)
	}
	if *forward != *reversed {
		t.Errorf("argument order changed the record: %+v vs %+v", forward, reversed)
	}
	if forward.Item != "a" || forward.Item2 != "b" {
		t.Errorf("record not canonical: %s/%s", forward.Item, forward.Item2)
	}
}

func TestPairRecord_NotFound(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.PairRecord(context.Background(), uuid.New(), "a", "b")
	if !errors.Is(err, ErrPairNotFound) {
		t.Errorf("PairRecord error = %v, want ErrPairNotFound", err)
	}
}

func TestNeighborRecords_RankingAndOrientation(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runID := uuid.New()

	ab := record("a", "b", 0.9)
	ac := record("a", "c", 0.5)
	bc := record("b", "c", 0.7)
	bc.NumRaters = 111 // b's side
	bc.NumRaters2 = 222
	mustInsertRecords(t, db, runID, ab, ac, bc)

	neighbors, err := db.NeighborRecords(ctx, runID, "c", similarity.MeasureCorrelation, 10)
	if err != nil {
		t.Fatalf("NeighborRecords failed: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("got %d neighbors, want 2", len(neighbors))
	}

	// Best first, and every record oriented around the queried item.
	if neighbors[0].Item != "c" || neighbors[0].Item2 != "b" {
		t.Errorf("first neighbor = %s/%s, want c/b", neighbors[0].Item, neighbors[0].Item2)
	}
	if neighbors[1].Item != "c" || neighbors[1].Item2 != "a" {
		t.Errorf("second neighbor = %s/%s, want c/a", neighbors[1].Item, neighbors[1].Item2)
	}

	// The stored row is (b, c); flipping it swaps the per-side counts.
	if neighbors[0].NumRaters != 222 || neighbors[0].NumRaters2 != 111 {
		t.Errorf("flipped counts = %d/%d, want 222/111",
			neighbors[0].NumRaters, neighbors[0].NumRaters2)
	}
	if neighbors[0].Correlation != 0.7 {
		t.Errorf("flipped score = %v, want 0.7 unchanged", neighbors[0].Correlation)
	}
}

func TestNeighborRecords_NaNExcludedFromRanking(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runID := uuid.New()

	degenerate := record("a", "b", math.NaN())
	healthy := record("a", "c", 0.5)
	mustInsertRecords(t, db, runID, degenerate, healthy)

	byCorr, err := db.NeighborRecords(ctx, runID, "a", similarity.MeasureCorrelation, 10)
	if err != nil {
		t.Fatalf("NeighborRecords failed: %v", err)
	}
	if len(byCorr) != 1 || byCorr[0].Item2 != "c" {
		t.Errorf("correlation ranking returned %d records, want only a/c", len(byCorr))
	}

	// The same pair still ranks under a measure where its score is finite.
	byCosine, err := db.NeighborRecords(ctx, runID, "a", similarity.MeasureCosine, 10)
	if err != nil {
		t.Fatalf("NeighborRecords failed: %v", err)
	}
	if len(byCosine) != 2 {
		t.Errorf("cosine ranking returned %d records, want 2", len(byCosine))
	}

	// And the pair itself is still retrievable with its NaN intact.
	got, err := db.PairRecord(ctx, runID, "a", "b")
	if err != nil {
		t.Fatalf("PairRecord failed: %v", err)
	}
	if !math.IsNaN(got.Correlation) {
		t.Errorf("stored correlation = %v, want NaN", got.Correlation)
	}
}

func TestNeighborRecords_InfRanksAboveFinite(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runID := uuid.New()

	inf := record("a", "b", math.Inf(1))
	finite := record("a", "c", 0.99)
	mustInsertRecords(t, db, runID, inf, finite)

	neighbors, err := db.NeighborRecords(ctx, runID, "a", similarity.MeasureCorrelation, 10)
	if err != nil {
		t.Fatalf("NeighborRecords failed: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("got %d neighbors, want 2", len(neighbors))
	}
	if !math.IsInf(neighbors[0].Correlation, 1) {
		t.Errorf("+Inf should rank above every finite score, got %v first", neighbors[0].Correlation)
	}
}

func TestNeighborRecords_Limit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runID := uuid.New()

	mustInsertRecords(t, db, runID,
		record("a", "b", 0.9),
		record("a", "c", 0.8),
		record("a", "d", 0.7),
	)

	neighbors, err := db.NeighborRecords(ctx, runID, "a", similarity.MeasureCorrelation, 2)
	if err != nil {
		t.Fatalf("NeighborRecords failed: %v", err)
	}
	if len(neighbors) != 2 {
		t.Fatalf("got %d neighbors, want limit 2", len(neighbors))
	}
	if neighbors[0].Item2 != "b" || neighbors[1].Item2 != "c" {
		t.Errorf("top-2 = %s, %s; want b, c", neighbors[0].Item2, neighbors[1].Item2)
	}
}

func TestNeighborRecords_UnknownMeasure(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.NeighborRecords(context.Background(), uuid.New(), "a", "euclidean", 10)
	if err == nil {
		t.Error("unknown measure should fail")
	}
}

func TestNeighborRecords_UnknownItem(t *testing.T) {
	db := setupTestDB(t)
	runID := uuid.New()
	mustInsertRecords(t, db, runID, record("a", "b", 0.9))

	neighbors, err := db.NeighborRecords(context.Background(), runID, "zzz", similarity.MeasureCorrelation, 10)
	if err != nil {
		t.Fatalf("NeighborRecords failed: %v", err)
	}
	if len(neighbors) != 0 {
		t.Errorf("unknown item returned %d neighbors", len(neighbors))
	}
}

func TestEachSimilarity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	runID := uuid.New()

	mustInsertRecords(t, db, runID,
		record("b", "c", 0.7),
		record("a", "b", 0.9),
	)
	// A different run's records must not leak into the stream.
	mustInsertRecords(t, db, uuid.New(), record("x", "y", 0.1))

	var got []similarity.Record
	err := db.EachSimilarity(ctx, runID, func(r similarity.Record) error {
		got = append(got, r)
		return nil
	})
	if err != nil {
		t.Fatalf("EachSimilarity failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("streamed %d records, want 2", len(got))
	}
	// Canonical pair order.
	if got[0].Item != "a" || got[1].Item != "b" {
		t.Errorf("stream order = %s, %s; want a/b then b/c", got[0].Item, got[1].Item)
	}

	sentinel := errors.New("stop")
	err = db.EachSimilarity(ctx, runID, func(similarity.Record) error { return sentinel })
	if !errors.Is(err, sentinel) {
		t.Errorf("EachSimilarity error = %v, want the callback's error", err)
	}
}
