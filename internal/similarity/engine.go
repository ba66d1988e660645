// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package similarity

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// Engine executes full-batch similarity runs. Construct with NewEngine;
// the zero value is not usable.
type Engine struct {
	config Config
	logger zerolog.Logger
}

// NewEngine validates the configuration and returns an engine. A
// ConfigurationError is returned for values outside their sane ranges;
// nothing is silently clamped.
func NewEngine(cfg Config, logger zerolog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		config: cfg,
		logger: logger.With().Str("component", "similarity").Logger(),
	}, nil
}

// Config returns a copy of the engine's configuration.
func (e *Engine) Config() Config {
	return e.config.Clone()
}

// itemRating is a rating before the popularity filter attaches counts.
type itemRating struct {
	item   string
	rating float64
}

// Run reads the full rating stream from source and computes similarity
// records for every item pair that survives the popularity and
// intersection filters. Records are sorted by (item, item2) so identical
// inputs produce byte-identical outputs.
//
// Empty input, or input where nothing survives filtering, is normal
// termination with an empty record set. Source errors and context
// cancellation abort the run; there are no partial results.
func (e *Engine) Run(ctx context.Context, source RatingSource) (*Result, error) {
	if source == nil {
		return nil, fmt.Errorf("rating source required")
	}
	start := time.Now()

	stats := RunStats{}

	// Single pass over the input builds the per-item rater counts and the
	// per-user rating lists the later stages group by.
	raterCounts := make(map[string]int64)
	byUser := make(map[string][]itemRating)

	err := source.Each(ctx, func(r Rating) error {
		stats.RatingsRead++
		raterCounts[r.Item]++
		byUser[r.User] = append(byUser[r.User], itemRating{item: r.Item, rating: r.Rating})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read ratings: %w", err)
	}
	stats.ItemsSeen = int64(len(raterCounts))
	stats.UsersSeen = int64(len(byUser))

	if ContextCancelled(ctx) {
		return nil, ctx.Err()
	}

	// Popularity band filter. Ratings for out-of-band items are dropped and
	// the surviving ones carry their item's rater count forward.
	kept := e.filterByPopularity(raterCounts, byUser, &stats)

	if ContextCancelled(ctx) {
		return nil, ctx.Err()
	}

	acc, generated, err := e.accumulatePairs(ctx, kept)
	if err != nil {
		return nil, err
	}
	stats.PairsGenerated = generated

	records := e.scorePairs(acc)
	stats.PairsKept = int64(len(records))

	sort.Slice(records, func(i, j int) bool {
		if records[i].Item != records[j].Item {
			return records[i].Item < records[j].Item
		}
		return records[i].Item2 < records[j].Item2
	})

	e.logger.Info().
		Int64("ratings_read", stats.RatingsRead).
		Int64("items_seen", stats.ItemsSeen).
		Int64("items_kept", stats.ItemsKept).
		Int64("users_kept", stats.UsersKept).
		Int64("pairs_generated", stats.PairsGenerated).
		Int64("pairs_kept", stats.PairsKept).
		Dur("duration", time.Since(start)).
		Msg("similarity run completed")

	return &Result{Records: records, Stats: stats}, nil
}

// filterByPopularity drops ratings whose item is outside the
// [MinRaters, MaxRaters] band and attaches the rater count to each
// survivor. Users left with fewer than two ratings cannot form pairs and
// are dropped here too.
func (e *Engine) filterByPopularity(counts map[string]int64, byUser map[string][]itemRating, stats *RunStats) map[string][]RatedItem {
	for _, n := range counts {
		if n >= e.config.MinRaters && n <= e.config.MaxRaters {
			stats.ItemsKept++
		}
	}

	kept := make(map[string][]RatedItem, len(byUser))
	for user, ratings := range byUser {
		items := make([]RatedItem, 0, len(ratings))
		for _, r := range ratings {
			n := counts[r.item]
			if n < e.config.MinRaters || n > e.config.MaxRaters {
				continue
			}
			items = append(items, RatedItem{Item: r.item, Rating: r.rating, NumRaters: n})
		}
		if len(items) < 2 {
			continue
		}
		kept[user] = items
		stats.UsersKept++
	}
	return kept
}

// accumulatePairs partitions users across the worker pool, emits each
// user's canonical item pairs, and reduces them into per-worker
// accumulators that are merged at the end.
func (e *Engine) accumulatePairs(ctx context.Context, byUser map[string][]RatedItem) (*accumulator, int64, error) {
	users := make([]string, 0, len(byUser))
	for user := range byUser {
		users = append(users, user)
	}

	workers := e.config.workerCount()
	chunkSize := (len(users) + workers - 1) / workers

	var wg sync.WaitGroup
	var mu sync.Mutex
	var generated atomic.Int64
	merged := newAccumulator()

	for w := 0; w < workers; w++ {
		start := w * chunkSize
		end := start + chunkSize
		if end > len(users) {
			end = len(users)
		}
		if start >= end {
			break
		}

		wg.Add(1)
		go func(userSlice []string) {
			defer wg.Done()

			local := newAccumulator()
			for _, user := range userSlice {
				if ContextCancelled(ctx) {
					return
				}
				generated.Add(forEachPair(byUser[user], local.add))
			}

			mu.Lock()
			merged.merge(local)
			mu.Unlock()
		}(users[start:end])
	}

	wg.Wait()

	if ContextCancelled(ctx) {
		return nil, 0, ctx.Err()
	}
	return merged, generated.Load(), nil
}

// scorePairs applies the intersection threshold and evaluates all four
// measures for every surviving pair. Degenerate scores pass through
// unmodified.
func (e *Engine) scorePairs(acc *accumulator) []Record {
	records := make([]Record, 0, len(acc.pairs))
	for pair, st := range acc.pairs {
		if st.Intersection < e.config.MinIntersection {
			continue
		}
		records = append(records, Score(pair, st, &e.config))
	}
	return records
}
