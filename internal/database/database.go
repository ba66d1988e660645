// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	_ "github.com/duckdb/duckdb-go/v2" // DuckDB driver
	"github.com/tomtom215/corelate/internal/config"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
)

const (
	// defaultQueryTimeout bounds queries whose caller supplied a context
	// without a deadline.
	defaultQueryTimeout = 30 * time.Second

	// checkpointTimeout bounds the WAL checkpoint issued during Close.
	checkpointTimeout = 30 * time.Second
)

// DB wraps a DuckDB connection pool and provides typed access to the
// rating log, similarity records, and run history.
type DB struct {
	conn *sql.DB
	cfg  *config.DatabaseConfig
}

// New opens (or creates) the DuckDB database at cfg.Path, applies the
// schema and any pending migrations, and returns a ready-to-use handle.
func New(cfg *config.DatabaseConfig) (*DB, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is nil")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	threads := cfg.Threads
	if threads <= 0 {
		threads = runtime.NumCPU()
	}

	// Extension autoinstall/autoload stay off: the schema uses core types
	// only, and the data path must never reach for the network.
	connStr := fmt.Sprintf(
		"%s?access_mode=read_write&threads=%d&autoinstall_known_extensions=false&autoload_known_extensions=false",
		cfg.Path, threads,
	)
	if cfg.MaxMemory != "" {
		connStr += "&max_memory=" + cfg.MaxMemory
	}

	conn, err := sql.Open("duckdb", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	configureConnectionPool(conn)

	db := &DB{conn: conn, cfg: cfg}

	if err := db.initialize(); err != nil {
		closeWithLog(conn, "database connection")
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Int("threads", threads).
		Str("max_memory", cfg.MaxMemory).
		Msg("Database opened")

	return db, nil
}

// configureConnectionPool applies pool settings tuned for DuckDB's
// in-process model: connections are cheap handles onto one database, so
// the pool mainly bounds concurrent query fan-out.
func configureConnectionPool(conn *sql.DB) {
	conn.SetMaxOpenConns(runtime.NumCPU())
	conn.SetMaxIdleConns(2)
	conn.SetConnMaxLifetime(time.Hour)
	conn.SetConnMaxIdleTime(5 * time.Minute)
}

// initialize creates tables, runs versioned migrations, and builds
// indexes. Every step is idempotent so a crash mid-initialize is
// recovered by the next startup.
func (db *DB) initialize() error {
	if err := db.createTables(); err != nil {
		return fmt.Errorf("failed to create tables: %w", err)
	}
	if err := db.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if err := db.createIndexes(); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	// Fold any WAL left over from a previous unclean shutdown into the
	// main file. Failure is survivable; DuckDB replays the WAL itself.
	if err := db.Checkpoint(context.Background()); err != nil {
		logging.Warn().Err(err).Msg("Startup checkpoint failed")
	}

	return nil
}

// Close checkpoints the WAL and releases the connection pool.
func (db *DB) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), checkpointTimeout)
	defer cancel()

	if err := db.Checkpoint(ctx); err != nil {
		logging.Warn().Err(err).Msg("Checkpoint on close failed")
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}

// Checkpoint forces DuckDB to flush its write-ahead log into the
// database file.
func (db *DB) Checkpoint(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("failed to checkpoint: %w", err)
	}
	return nil
}

// Ping verifies the connection and refreshes the pool usage gauge. The
// readiness probe calls this on every check.
func (db *DB) Ping(ctx context.Context) error {
	ctx, cancel := ensureContext(ctx)
	defer cancel()

	err := db.conn.PingContext(ctx)
	metrics.DBConnectionsInUse.Set(float64(db.conn.Stats().InUse))
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}
	return nil
}

// Conn exposes the underlying pool for callers that need raw SQL, such
// as the bulk importer.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// ensureContext returns ctx bounded by defaultQueryTimeout when the
// caller supplied no deadline of its own.
func ensureContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if _, ok := ctx.Deadline(); ok {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, defaultQueryTimeout)
}
