// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
	"github.com/tomtom215/corelate/internal/similarity"
)

// measureColumns maps public measure names to score columns. It doubles
// as the allowlist that keeps user-supplied measure names out of SQL.
var measureColumns = map[string]string{
	similarity.MeasureCorrelation: "correlation",
	similarity.MeasureRegularized: "regularized_correlation",
	similarity.MeasureCosine:      "cosine_similarity",
	similarity.MeasureJaccard:     "jaccard_similarity",
}

const similarityColumns = `item_a, item_b, correlation, regularized_correlation,
cosine_similarity, jaccard_similarity, intersection_size, num_raters_a, num_raters_b`

const insertSimilaritySQL = `
INSERT INTO similarities (run_id, ` + similarityColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

// InsertSimilarityRecords inserts one batch of records for a run in a
// single transaction. Records arrive in canonical orientation from the
// engine, so Item maps to item_a and Item2 to item_b. NaN scores are
// stored as NaN; DuckDB's DOUBLE carries them natively.
func (db *DB) InsertSimilarityRecords(ctx context.Context, runID uuid.UUID, records []similarity.Record) (inserted int, err error) {
	if len(records) == 0 {
		return 0, nil
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("insert_batch", "similarities", time.Since(start), err)
	}()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Failed to rollback similarity batch")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSimilaritySQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare similarity insert: %w", err)
	}
	defer closeQuietly(stmt)

	for i := range records {
		r := &records[i]
		if _, err = stmt.ExecContext(ctx,
			runID, r.Item, r.Item2,
			r.Correlation, r.RegularizedCorrelation, r.CosineSimilarity, r.JaccardSimilarity,
			r.Size, r.NumRaters, r.NumRaters2,
		); err != nil {
			err = fmt.Errorf("failed to insert similarity %s/%s: %w", r.Item, r.Item2, err)
			return 0, err
		}
		inserted++
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit similarity batch: %w", err)
		return 0, err
	}

	metrics.DBRowsInserted.WithLabelValues("similarities").Add(float64(inserted))
	return inserted, nil
}

// NeighborRecords returns up to limit records involving item from the
// given run, ranked by the named measure, best first. Pairs whose score
// under that measure is NaN are excluded from ranking since NaN has no
// defined order; they remain reachable through PairRecord. Each returned
// record is oriented so Item is the queried item.
func (db *DB) NeighborRecords(ctx context.Context, runID uuid.UUID, item, measure string, limit int) (neighbors []similarity.Record, err error) {
	column, ok := measureColumns[measure]
	if !ok {
		return nil, fmt.Errorf("unknown measure %q", measure)
	}
	if limit <= 0 {
		limit = 10
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("neighbors", "similarities", time.Since(start), err)
	}()

	// column comes from the allowlist above, never from the caller.
	query := fmt.Sprintf(`
		SELECT `+similarityColumns+`
		FROM similarities
		WHERE run_id = ? AND (item_a = ? OR item_b = ?) AND NOT isnan(%s)
		ORDER BY %s DESC, item_a, item_b
		LIMIT ?`, column, column)

	rows, err := db.conn.QueryContext(ctx, query, runID, item, item, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query neighbors: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		rec, scanErr := scanSimilarity(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan neighbor: %w", scanErr)
			return nil, err
		}
		neighbors = append(neighbors, orientRecord(rec, item))
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating neighbors: %w", err)
	}
	return neighbors, nil
}

// PairRecord returns the stored record for the pair (a, b) in the given
// run, regardless of argument order. NaN scores come back verbatim.
// Returns ErrPairNotFound when the pair was filtered out or never
// co-rated.
func (db *DB) PairRecord(ctx context.Context, runID uuid.UUID, a, b string) (rec *similarity.Record, err error) {
	pair, _ := similarity.MakeItemPair(a, b)

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("get_pair", "similarities", time.Since(start), err)
	}()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+similarityColumns+` FROM similarities WHERE run_id = ? AND item_a = ? AND item_b = ?`,
		runID, pair.A, pair.B)

	r, err := scanSimilarity(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("pair %s/%s: %w", pair.A, pair.B, ErrPairNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pair %s/%s: %w", pair.A, pair.B, err)
	}
	return &r, nil
}

// SimilarityCount returns the number of stored records for a run.
func (db *DB) SimilarityCount(ctx context.Context, runID uuid.UUID) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var count int64
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM similarities WHERE run_id = ?`, runID).Scan(&count)
	metrics.RecordDBQuery("count", "similarities", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count similarities: %w", err)
	}
	return count, nil
}

// EachSimilarity streams every record of a run in canonical orientation.
// The neighbor index rebuilds itself from this.
func (db *DB) EachSimilarity(ctx context.Context, runID uuid.UUID, fn func(similarity.Record) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("each", "similarities", time.Since(start), err)
	}()

	// Unbounded like EachRating: a rebuild reads every record of a run.
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+similarityColumns+` FROM similarities WHERE run_id = ? ORDER BY item_a, item_b`, runID)
	if err != nil {
		return fmt.Errorf("failed to query similarities: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		rec, scanErr := scanSimilarity(rows)
		if scanErr != nil {
			return fmt.Errorf("failed to scan similarity: %w", scanErr)
		}
		if err = fn(rec); err != nil {
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating similarities: %w", err)
	}
	return nil
}

func scanSimilarity(row interface{ Scan(dest ...any) error }) (similarity.Record, error) {
	var r similarity.Record
	err := row.Scan(
		&r.Item, &r.Item2,
		&r.Correlation, &r.RegularizedCorrelation, &r.CosineSimilarity, &r.JaccardSimilarity,
		&r.Size, &r.NumRaters, &r.NumRaters2,
	)
	return r, err
}

// orientRecord flips a canonical record so that Item is the queried
// item. The four measures are symmetric; only the per-side rater counts
// swap.
func orientRecord(r similarity.Record, item string) similarity.Record {
	if r.Item == item {
		return r
	}
	r.Item, r.Item2 = r.Item2, r.Item
	r.NumRaters, r.NumRaters2 = r.NumRaters2, r.NumRaters
	return r
}
