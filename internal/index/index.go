// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package index maintains a Badger-backed top-K neighbor index so the
// read API can answer "items similar to X" without touching DuckDB.
//
// Each completed run rebuilds the index wholesale under a run-scoped
// key prefix, then flips an in-memory pointer and a persisted meta
// record to the new run. Readers never see a half-built index: lookups
// go through the pointer, and the previous run's keys are dropped only
// after the flip.
package index

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tomtom215/corelate/internal/config"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
	"github.com/tomtom215/corelate/internal/similarity"
)

// ErrNotBuilt is returned by Neighbors before any run has populated
// the index. Callers fall back to the database.
var ErrNotBuilt = errors.New("neighbor index not built yet")

const (
	// neighborPrefix namespaces per-run neighbor lists:
	// n:<run_id>:<item> -> JSON []similarity.Record.
	neighborPrefix = "n:"

	// metaKey holds the active run's metadata; it survives restarts so
	// the index comes back without a rebuild.
	metaKey = "meta:current"

	// entriesPerTxn bounds how many items one Badger transaction
	// writes. Badger caps transaction size by memtable share.
	entriesPerTxn = 512
)

// Meta describes the run the index currently serves.
type Meta struct {
	RunID   uuid.UUID `json:"run_id"`
	Measure string    `json:"measure"`
	TopK    int       `json:"top_k"`
	Entries int64     `json:"entries"`
	BuiltAt time.Time `json:"built_at"`
}

// Index serves top-K neighbor lookups from Badger. Safe for concurrent
// use; Rebuild may run while lookups continue against the previous run.
type Index struct {
	db  *badger.DB
	cfg config.IndexConfig

	mu   sync.RWMutex
	meta *Meta // nil until the first rebuild or restored meta
}

// Open opens (or creates) the index at cfg.Path and restores the active
// run's metadata if a previous process built one.
func Open(cfg config.IndexConfig) (*Index, error) {
	if cfg.TopK <= 0 {
		return nil, fmt.Errorf("index top_k must be positive, got %d", cfg.TopK)
	}
	if !similarity.ValidMeasure(cfg.Measure) {
		return nil, fmt.Errorf("unknown index measure %q", cfg.Measure)
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.InMemory = cfg.InMemory
	if cfg.InMemory {
		opts.Dir = ""
		opts.ValueDir = ""
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	idx := &Index{db: db, cfg: cfg}
	if err := idx.restoreMeta(); err != nil {
		closeQuietly(db)
		return nil, err
	}

	ev := logging.Info().Str("path", cfg.Path).Int("top_k", cfg.TopK).Str("measure", cfg.Measure)
	if m := idx.Meta(); m != nil {
		ev = ev.Str("run_id", m.RunID.String()).Int64("entries", m.Entries)
	}
	ev.Msg("Neighbor index opened")

	return idx, nil
}

func (idx *Index) restoreMeta() error {
	err := idx.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(metaKey))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var m Meta
			if err := json.Unmarshal(val, &m); err != nil {
				return fmt.Errorf("failed to decode index meta: %w", err)
			}
			idx.meta = &m
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("failed to restore index meta: %w", err)
	}

	// A persisted meta built under different settings would serve stale
	// rankings; drop it and wait for the next rebuild.
	if idx.meta != nil && (idx.meta.TopK != idx.cfg.TopK || idx.meta.Measure != idx.cfg.Measure) {
		logging.Warn().
			Str("stored_measure", idx.meta.Measure).
			Int("stored_top_k", idx.meta.TopK).
			Msg("Index settings changed, discarding restored meta until next rebuild")
		idx.meta = nil
	}
	return nil
}

// Meta returns the active run's metadata, nil before the first build.
func (idx *Index) Meta() *Meta {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if idx.meta == nil {
		return nil
	}
	m := *idx.meta
	return &m
}

// Neighbors returns up to limit stored neighbors of item, best first
// under the index's configured measure, each oriented so Item is the
// queried item. An item that simply has no surviving pairs yields an
// empty slice; ErrNotBuilt means no run has populated the index at all.
func (idx *Index) Neighbors(item string, limit int) ([]similarity.Record, *Meta, error) {
	idx.mu.RLock()
	meta := idx.meta
	idx.mu.RUnlock()

	if meta == nil {
		return nil, nil, ErrNotBuilt
	}
	if limit <= 0 || limit > idx.cfg.TopK {
		limit = idx.cfg.TopK
	}

	var neighbors []similarity.Record
	err := idx.db.View(func(txn *badger.Txn) error {
		it, err := txn.Get(neighborKey(meta.RunID, item))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return it.Value(func(val []byte) error {
			return json.Unmarshal(val, &neighbors)
		})
	})
	if err != nil {
		metrics.IndexLookups.WithLabelValues("error").Inc()
		return nil, nil, fmt.Errorf("failed to read neighbors of %s: %w", logging.ScrubIdentifier(item), err)
	}

	if neighbors == nil {
		metrics.IndexLookups.WithLabelValues("miss").Inc()
		m := *meta
		return []similarity.Record{}, &m, nil
	}

	metrics.IndexLookups.WithLabelValues("hit").Inc()
	if len(neighbors) > limit {
		neighbors = neighbors[:limit]
	}
	m := *meta
	return neighbors, &m, nil
}

// Close releases the Badger database.
func (idx *Index) Close() error {
	if err := idx.db.Close(); err != nil {
		return fmt.Errorf("failed to close index: %w", err)
	}
	return nil
}

func neighborKey(runID uuid.UUID, item string) []byte {
	return []byte(neighborPrefix + runID.String() + ":" + item)
}

func runPrefix(runID uuid.UUID) []byte {
	return []byte(neighborPrefix + runID.String() + ":")
}

func closeQuietly(db *badger.DB) {
	_ = db.Close()
}
