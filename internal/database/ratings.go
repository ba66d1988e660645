// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
	"github.com/tomtom215/corelate/internal/models"
	"github.com/tomtom215/corelate/internal/similarity"
)

const insertRatingSQL = `
INSERT INTO ratings (event_id, user_id, item_id, rating, rated_at, source)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (event_id) DO NOTHING`

// InsertRatingEventsBatch inserts rating events in a single transaction
// and reports how many rows were new versus already present. Redelivered
// events collide on event_id and count as duplicates, which makes the
// ingest pipeline safe to replay.
func (db *DB) InsertRatingEventsBatch(ctx context.Context, events []*models.RatingEvent) (inserted, duplicates int, err error) {
	if len(events) == 0 {
		return 0, 0, nil
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("insert_batch", "ratings", time.Since(start), err)
	}()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Failed to rollback rating batch")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertRatingSQL)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prepare rating insert: %w", err)
	}
	defer closeQuietly(stmt)

	for _, e := range events {
		if e.EventID == uuid.Nil {
			e.EventID = uuid.New()
		}
		if e.RatedAt.IsZero() {
			e.RatedAt = time.Now().UTC()
		}
		source := e.Source
		if source == "" {
			source = models.RatingSourceAPI
		}

		res, execErr := stmt.ExecContext(ctx, e.EventID, e.User, e.Item, e.Rating, e.RatedAt, source)
		if execErr != nil {
			err = fmt.Errorf("failed to insert rating event %s: %w", e.EventID, execErr)
			return 0, 0, err
		}

		affected, raErr := res.RowsAffected()
		if raErr != nil {
			err = fmt.Errorf("failed to read rows affected: %w", raErr)
			return 0, 0, err
		}
		if affected > 0 {
			inserted++
		} else {
			duplicates++
			logging.Debug().
				Str("event_id", e.EventID.String()).
				Str("user", e.User).
				Str("item", e.Item).
				Msg("Skipped duplicate rating event")
		}
	}

	if err = tx.Commit(); err != nil {
		err = fmt.Errorf("failed to commit rating batch: %w", err)
		return 0, 0, err
	}

	metrics.DBRowsInserted.WithLabelValues("ratings").Add(float64(inserted))
	logging.Debug().
		Int("inserted", inserted).
		Int("duplicates", duplicates).
		Dur("duration", time.Since(start)).
		Msg("Inserted rating batch")

	return inserted, duplicates, nil
}

// RatingCount returns the total number of rating events in the log.
func (db *DB) RatingCount(ctx context.Context) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var count int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM ratings`).Scan(&count)
	metrics.RecordDBQuery("count", "ratings", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count ratings: %w", err)
	}
	return count, nil
}

// latestRatingsSQL collapses the event log to one rating per
// (user, item): the most recently rated event wins, so a re-rating
// supersedes the original.
const latestRatingsSQL = `
SELECT user_id, item_id, arg_max(rating, rated_at) AS rating
FROM ratings
GROUP BY user_id, item_id`

// EachRating streams the current rating per (user, item) to fn and
// stops at the first error fn returns.
func (db *DB) EachRating(ctx context.Context, fn func(similarity.Rating) error) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("each_rating", "ratings", time.Since(start), err)
	}()

	// No ensureContext here: a full scan over a large log legitimately
	// outlives the default query timeout. Callers bound it themselves.
	rows, err := db.conn.QueryContext(ctx, latestRatingsSQL)
	if err != nil {
		return fmt.Errorf("failed to query ratings: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		var r similarity.Rating
		if err = rows.Scan(&r.User, &r.Item, &r.Rating); err != nil {
			return fmt.Errorf("failed to scan rating: %w", err)
		}
		if err = fn(r); err != nil {
			return err
		}
	}
	if err = rows.Err(); err != nil {
		return fmt.Errorf("error iterating ratings: %w", err)
	}
	return nil
}

// dbRatingSource adapts the rating log to the engine's input interface.
type dbRatingSource struct {
	db *DB
}

var _ similarity.RatingSource = (*dbRatingSource)(nil)

func (s *dbRatingSource) Each(ctx context.Context, fn func(similarity.Rating) error) error {
	return s.db.EachRating(ctx, fn)
}

// Ratings returns the rating log as an engine input source.
func (db *DB) Ratings() similarity.RatingSource {
	return &dbRatingSource{db: db}
}
