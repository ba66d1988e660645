// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package database is the DuckDB persistence layer: the rating event
// log, computed similarity records, and run history.
//
// # Architecture
//
// The package is organized by domain:
//   - database.go: connection lifecycle, pool configuration, checkpointing
//   - schema.go: table and index DDL
//   - migrations.go: versioned post-release schema changes
//   - ratings.go: rating event log (append, count, latest-per-pair stream)
//   - runs.go: run history (create, complete, fail, list, prune)
//   - similarities.go: similarity records (batch insert, neighbors, pair lookup)
//
// # Data model
//
// ratings is an append-only event log keyed by event_id, which makes
// batch inserts idempotent under at-least-once delivery. A re-rating is
// a new event; EachRating resolves the latest rating per (user, item)
// by rated_at, so readers always see last-write-wins.
//
// similarities stores one row per canonical item pair (item_a < item_b)
// per run. Scores are written exactly as the engine produced them, NaN
// included. Neighbor ranking excludes NaN under the ranking measure;
// pair lookups return it verbatim.
//
// runs ties the two together: each row snapshots the engine config a
// run used and the counters it produced. PruneRuns caps history and
// deletes the similarity records of pruned runs in the same
// transaction.
//
// # Database Technology
//
// DuckDB via github.com/duckdb/duckdb-go/v2 (CGO). The workload is
// analytical: bulk appends, one large grouped scan per run, and ranked
// reads. No extensions are loaded; the schema sticks to core types and
// extension autoloading is disabled on the connection string.
//
// # Concurrency
//
// All exported methods are safe for concurrent use. Queries without a
// caller deadline get a default timeout; the two streaming methods
// (EachRating, EachSimilarity) run unbounded because full scans
// legitimately exceed it.
//
// # Error Handling
//
// Errors are wrapped with fmt.Errorf and %w. Lookups that match
// nothing return ErrRunNotFound or ErrPairNotFound so handlers can map
// them to 404s without string matching.
package database
