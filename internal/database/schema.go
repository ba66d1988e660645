// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package database

import (
	"context"
	"fmt"
	"time"
)

// schemaTimeout bounds DDL statements, which can stall on a large WAL
// replay after an unclean shutdown.
const schemaTimeout = 60 * time.Second

func schemaContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), schemaTimeout)
}

// ratings is the append-only event log. event_id as primary key makes
// batch inserts idempotent: a redelivered event hits ON CONFLICT DO
// NOTHING instead of duplicating the row. Re-ratings are separate
// events; readers resolve the latest per (user_id, item_id) by
// rated_at.
const createRatingsTable = `
CREATE TABLE IF NOT EXISTS ratings (
    event_id UUID PRIMARY KEY,
    user_id TEXT NOT NULL,
    item_id TEXT NOT NULL,
    rating DOUBLE NOT NULL,
    rated_at TIMESTAMP NOT NULL,
    source TEXT NOT NULL DEFAULT 'api',
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// runs records every similarity computation: its lifecycle, the config
// snapshot it ran under (JSON), and the counters it produced.
const createRunsTable = `
CREATE TABLE IF NOT EXISTS runs (
    id UUID PRIMARY KEY,
    status TEXT NOT NULL,
    started_at TIMESTAMP NOT NULL,
    finished_at TIMESTAMP,
    error TEXT,
    config TEXT NOT NULL,
    ratings_read BIGINT NOT NULL DEFAULT 0,
    items_seen BIGINT NOT NULL DEFAULT 0,
    items_kept BIGINT NOT NULL DEFAULT 0,
    users_seen BIGINT NOT NULL DEFAULT 0,
    users_kept BIGINT NOT NULL DEFAULT 0,
    pairs_generated BIGINT NOT NULL DEFAULT 0,
    pairs_kept BIGINT NOT NULL DEFAULT 0,
    records_written BIGINT NOT NULL DEFAULT 0,
    created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

// similarities holds one row per canonical pair (item_a < item_b) per
// run. Scores are stored as produced, NaN included; ranking queries
// filter NaN, pair lookups return it verbatim.
const createSimilaritiesTable = `
CREATE TABLE IF NOT EXISTS similarities (
    run_id UUID NOT NULL,
    item_a TEXT NOT NULL,
    item_b TEXT NOT NULL,
    correlation DOUBLE NOT NULL,
    regularized_correlation DOUBLE NOT NULL,
    cosine_similarity DOUBLE NOT NULL,
    jaccard_similarity DOUBLE NOT NULL,
    intersection_size BIGINT NOT NULL,
    num_raters_a BIGINT NOT NULL,
    num_raters_b BIGINT NOT NULL,
    PRIMARY KEY (run_id, item_a, item_b)
)`

// createTables creates all tables if they don't exist.
func (db *DB) createTables() error {
	ctx, cancel := schemaContext()
	defer cancel()

	tables := []struct {
		name string
		ddl  string
	}{
		{"ratings", createRatingsTable},
		{"runs", createRunsTable},
		{"similarities", createSimilaritiesTable},
	}

	for _, t := range tables {
		if _, err := db.conn.ExecContext(ctx, t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.name, err)
		}
	}
	return nil
}

// createIndexes builds secondary indexes. The similarities primary key
// already serves (run_id, item_a) prefix lookups; item_b needs its own
// index because neighbor queries match either side of a pair.
func (db *DB) createIndexes() error {
	ctx, cancel := schemaContext()
	defer cancel()

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_ratings_user_item ON ratings(user_id, item_id)`,
		`CREATE INDEX IF NOT EXISTS idx_ratings_rated_at ON ratings(rated_at)`,
		`CREATE INDEX IF NOT EXISTS idx_similarities_item_b ON similarities(run_id, item_b)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`,
	}

	for _, ddl := range indexes {
		if _, err := db.conn.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create index: %w", err)
		}
	}
	return nil
}
