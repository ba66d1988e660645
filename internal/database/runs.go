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

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
	"github.com/tomtom215/corelate/internal/models"
	"github.com/tomtom215/corelate/internal/similarity"
)

const runColumns = `id, status, started_at, finished_at, error, config,
ratings_read, items_seen, items_kept, users_seen, users_kept,
pairs_generated, pairs_kept, records_written`

// CreateRun records the start of a similarity computation. The engine
// config is snapshotted as JSON so the run history shows what each run
// actually ran with, not what the config file says today.
func (db *DB) CreateRun(ctx context.Context, cfg similarity.Config) (run *models.Run, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("insert", "runs", time.Since(start), err)
	}()

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal run config: %w", err)
	}

	run = &models.Run{
		ID:        uuid.New(),
		Status:    models.RunStatusRunning,
		StartedAt: time.Now().UTC(),
		Config:    cfg,
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO runs (id, status, started_at, config) VALUES (?, ?, ?, ?)`,
		run.ID, run.Status, run.StartedAt, string(cfgJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	logging.Info().Str("run_id", run.ID.String()).Msg("Run started")
	return run, nil
}

// CompleteRun marks a run as completed and stores its counters.
func (db *DB) CompleteRun(ctx context.Context, id uuid.UUID, stats similarity.RunStats, recordsWritten int64) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("update", "runs", time.Since(start), err)
	}()

	res, err := db.conn.ExecContext(ctx, `
		UPDATE runs SET
			status = ?, finished_at = ?,
			ratings_read = ?, items_seen = ?, items_kept = ?,
			users_seen = ?, users_kept = ?,
			pairs_generated = ?, pairs_kept = ?, records_written = ?
		WHERE id = ?`,
		models.RunStatusCompleted, time.Now().UTC(),
		stats.RatingsRead, stats.ItemsSeen, stats.ItemsKept,
		stats.UsersSeen, stats.UsersKept,
		stats.PairsGenerated, stats.PairsKept, recordsWritten,
		id)
	if err != nil {
		return fmt.Errorf("failed to complete run %s: %w", id, err)
	}
	return checkRunUpdated(res, id)
}

// FailRun marks a run as failed and stores the failure reason.
func (db *DB) FailRun(ctx context.Context, id uuid.UUID, runErr error) (err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("update", "runs", time.Since(start), err)
	}()

	msg := "unknown error"
	if runErr != nil {
		msg = runErr.Error()
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error = ? WHERE id = ?`,
		models.RunStatusFailed, time.Now().UTC(), msg, id)
	if err != nil {
		return fmt.Errorf("failed to mark run %s failed: %w", id, err)
	}
	return checkRunUpdated(res, id)
}

func checkRunUpdated(res sql.Result, id uuid.UUID) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	return nil
}

// GetRun returns one run by ID, ErrRunNotFound when it doesn't exist.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (run *models.Run, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("get", "runs", time.Since(start), err)
	}()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err = scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, ErrRunNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

// LatestCompletedRun returns the most recently started completed run.
// This is the run whose similarity records the read API serves by
// default. Returns ErrRunNotFound when no run has completed yet.
func (db *DB) LatestCompletedRun(ctx context.Context) (run *models.Run, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("get_latest", "runs", time.Since(start), err)
	}()

	row := db.conn.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE status = ? ORDER BY started_at DESC LIMIT 1`,
		models.RunStatusCompleted)
	run, err = scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest completed run: %w", err)
	}
	return run, nil
}

// ListRuns returns runs newest-first. The returned bool reports whether
// more runs exist beyond offset+limit; it is computed by fetching one
// extra row rather than a separate count.
func (db *DB) ListRuns(ctx context.Context, limit, offset int) (runs []models.Run, hasMore bool, err error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("list", "runs", time.Since(start), err)
	}()

	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ? OFFSET ?`,
		limit+1, offset)
	if err != nil {
		return nil, false, fmt.Errorf("failed to query runs: %w", err)
	}
	defer closeQuietly(rows)

	for rows.Next() {
		run, scanErr := scanRun(rows)
		if scanErr != nil {
			err = fmt.Errorf("failed to scan run: %w", scanErr)
			return nil, false, err
		}
		runs = append(runs, *run)
	}
	if err = rows.Err(); err != nil {
		return nil, false, fmt.Errorf("error iterating runs: %w", err)
	}

	if len(runs) > limit {
		runs = runs[:limit]
		hasMore = true
	}
	return runs, hasMore, nil
}

// CountRuns returns the total number of runs in the history.
func (db *DB) CountRuns(ctx context.Context) (int64, error) {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	var count int64
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&count)
	metrics.RecordDBQuery("count", "runs", time.Since(start), err)
	if err != nil {
		return 0, fmt.Errorf("failed to count runs: %w", err)
	}
	return count, nil
}

// PruneRuns deletes terminal runs beyond the newest retain, along with
// their similarity records, in one transaction. A run still in progress
// is never pruned. retain <= 0 disables pruning.
func (db *DB) PruneRuns(ctx context.Context, retain int) (pruned int64, err error) {
	if retain <= 0 {
		return 0, nil
	}

	ctx, cancel := ensureContext(ctx)
	defer cancel()

	start := time.Now()
	defer func() {
		metrics.RecordDBQuery("prune", "runs", time.Since(start), err)
	}()

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				logging.Error().Err(rbErr).AnErr("original_error", err).Msg("Failed to rollback prune")
			}
		}
	}()

	_, err = tx.ExecContext(ctx, `
		DELETE FROM similarities WHERE run_id IN (
			SELECT id FROM runs
			WHERE status <> ?
			  AND id NOT IN (
				SELECT id FROM runs WHERE status <> ?
				ORDER BY started_at DESC LIMIT ?
			  )
		)`, models.RunStatusRunning, models.RunStatusRunning, retain)
	if err != nil {
		return 0, fmt.Errorf("failed to prune similarities: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		DELETE FROM runs
		WHERE status <> ?
		  AND id NOT IN (
			SELECT id FROM runs WHERE status <> ?
			ORDER BY started_at DESC LIMIT ?
		  )`, models.RunStatusRunning, models.RunStatusRunning, retain)
	if err != nil {
		return 0, fmt.Errorf("failed to prune runs: %w", err)
	}

	pruned, err = res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read rows affected: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit prune: %w", err)
	}

	if pruned > 0 {
		logging.Info().Int64("pruned", pruned).Int("retained", retain).Msg("Pruned old runs")
	}
	return pruned, nil
}

// scanRun reads one run row. Works for both QueryRow and Rows since
// both expose Scan.
func scanRun(row interface{ Scan(dest ...any) error }) (*models.Run, error) {
	var (
		run     models.Run
		cfgJSON string
	)
	err := row.Scan(
		&run.ID, &run.Status, &run.StartedAt, &run.FinishedAt, &run.Error, &cfgJSON,
		&run.Stats.RatingsRead, &run.Stats.ItemsSeen, &run.Stats.ItemsKept,
		&run.Stats.UsersSeen, &run.Stats.UsersKept,
		&run.Stats.PairsGenerated, &run.Stats.PairsKept, &run.RecordsWritten,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(cfgJSON), &run.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal run config: %w", err)
	}
	return &run, nil
}
