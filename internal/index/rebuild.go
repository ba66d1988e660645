// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package index

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
	"github.com/tomtom215/corelate/internal/similarity"
)

// RecordStream feeds records to a rebuild one at a time, the same push
// shape as similarity.RatingSource. database.EachSimilarity curries
// into one; SliceStream adapts an in-memory result.
type RecordStream func(ctx context.Context, fn func(similarity.Record) error) error

// SliceStream returns a RecordStream over an in-memory record slice,
// for rebuilding straight from an engine result without a database
// round-trip.
func SliceStream(records []similarity.Record) RecordStream {
	return func(ctx context.Context, fn func(similarity.Record) error) error {
		for _, rec := range records {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(rec); err != nil {
				return err
			}
		}
		return nil
	}
}

// Rebuild replaces the index contents with the given run's records.
// Each canonical pair contributes to both items' neighbor lists,
// oriented around the respective item. Records whose score under the
// index measure is NaN are left out; NaN has no rank. The flip to the
// new run happens only after every list and the meta record are
// written, so concurrent lookups keep serving the previous run until
// the new one is complete.
func (idx *Index) Rebuild(ctx context.Context, runID uuid.UUID, stream RecordStream) error {
	start := time.Now()

	lists, err := idx.collect(ctx, stream)
	if err != nil {
		return fmt.Errorf("failed to collect neighbor lists: %w", err)
	}

	// A rerun of the same ID (crash recovery) must not merge with its
	// earlier partial write.
	if err := idx.db.DropPrefix(runPrefix(runID)); err != nil {
		return fmt.Errorf("failed to clear run prefix: %w", err)
	}

	if err := idx.writeLists(ctx, runID, lists); err != nil {
		return err
	}

	meta := Meta{
		RunID:   runID,
		Measure: idx.cfg.Measure,
		TopK:    idx.cfg.TopK,
		Entries: int64(len(lists)),
		BuiltAt: time.Now().UTC(),
	}
	if err := idx.writeMeta(meta); err != nil {
		return err
	}

	idx.mu.Lock()
	previous := idx.meta
	idx.meta = &meta
	idx.mu.Unlock()

	// Old run's keys are unreachable once the pointer flipped; dropping
	// them is housekeeping, not correctness.
	if previous != nil && previous.RunID != runID {
		if err := idx.db.DropPrefix(runPrefix(previous.RunID)); err != nil {
			logging.Warn().Err(err).Str("run_id", previous.RunID.String()).Msg("Failed to drop previous index run")
		}
	}

	metrics.RecordIndexRebuild(time.Since(start), meta.Entries)
	logging.Info().
		Str("run_id", runID.String()).
		Int64("items", meta.Entries).
		Dur("duration", time.Since(start)).
		Msg("Neighbor index rebuilt")

	return nil
}

// collect streams records into per-item top-K lists.
func (idx *Index) collect(ctx context.Context, stream RecordStream) (map[string]*topK, error) {
	lists := make(map[string]*topK)
	get := func(item string) *topK {
		l, ok := lists[item]
		if !ok {
			l = &topK{k: idx.cfg.TopK}
			lists[item] = l
		}
		return l
	}

	err := stream(ctx, func(rec similarity.Record) error {
		score, ok := rec.MeasureScore(idx.cfg.Measure)
		if !ok || math.IsNaN(score) {
			return nil
		}
		get(rec.Item).insert(rec, score)
		get(rec.Item2).insert(flip(rec), score)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return lists, nil
}

// writeLists persists the neighbor lists in chunked transactions.
func (idx *Index) writeLists(ctx context.Context, runID uuid.UUID, lists map[string]*topK) error {
	type entry struct {
		key  []byte
		data []byte
	}

	batch := make([]entry, 0, entriesPerTxn)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := idx.db.Update(func(txn *badger.Txn) error {
			for _, e := range batch {
				if err := txn.Set(e.key, e.data); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to write neighbor batch: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for item, l := range lists {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.Marshal(l.records)
		if err != nil {
			return fmt.Errorf("failed to marshal neighbors of %s: %w", logging.ScrubIdentifier(item), err)
		}
		batch = append(batch, entry{key: neighborKey(runID, item), data: data})
		if len(batch) >= entriesPerTxn {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

func (idx *Index) writeMeta(meta Meta) error {
	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal index meta: %w", err)
	}
	err = idx.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(metaKey), data)
	})
	if err != nil {
		return fmt.Errorf("failed to write index meta: %w", err)
	}
	return nil
}

// flip reverses a record's orientation: Item2 becomes the subject. The
// measures are symmetric; only the per-side rater counts swap.
func flip(r similarity.Record) similarity.Record {
	r.Item, r.Item2 = r.Item2, r.Item
	r.NumRaters, r.NumRaters2 = r.NumRaters2, r.NumRaters
	return r
}

// topK keeps the best k records for one item, sorted best-first with
// ties broken by Item2 so rebuilds are deterministic.
type topK struct {
	k       int
	records []similarity.Record
	scores  []float64
}

func (l *topK) insert(rec similarity.Record, score float64) {
	pos := sort.Search(len(l.records), func(i int) bool {
		if l.scores[i] != score {
			return l.scores[i] < score
		}
		return l.records[i].Item2 > rec.Item2
	})
	if pos >= l.k {
		return
	}

	l.records = append(l.records, similarity.Record{})
	copy(l.records[pos+1:], l.records[pos:])
	l.records[pos] = rec

	l.scores = append(l.scores, 0)
	copy(l.scores[pos+1:], l.scores[pos:])
	l.scores[pos] = score

	if len(l.records) > l.k {
		l.records = l.records[:l.k]
		l.scores = l.scores[:l.k]
	}
}
