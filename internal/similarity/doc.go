// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package similarity computes pairwise item similarity scores from
// user-item-rating logs. It is the batch core of Corelate: each run reads
// the full rating stream, accumulates sufficient statistics per co-rated
// item pair, and evaluates four measures (Pearson correlation, regularized
// correlation, cosine, Jaccard) from those statistics.
//
// # Pipeline
//
// A run executes four stages in strict forward order:
//
//  1. Popularity filter: count raters per item, drop items outside the
//     [MinRaters, MaxRaters] band. Bounds the quadratic fan-out of stage 2.
//  2. Pair generation: group ratings by user and emit every unordered pair
//     of items that user rated, exactly once, in canonical orientation
//     (first item < second item). Self-pairs are never emitted.
//  3. Accumulation: reduce pair emissions into one fixed-size statistics
//     record per pair (co-rater count, dot product, per-side sums and sums
//     of squares, per-side rater counts). Pairs with fewer than
//     MinIntersection co-raters are discarded.
//  4. Scoring: pure functions map each statistics record to the four
//     measures. All four are always evaluated; degenerate inputs yield
//     non-finite scores which are emitted unmodified.
//
// The engine never stores the rating matrix and keeps no state between
// runs. Rater counts travel with each rating through pair generation, so
// the aggregator reads them directly instead of reconstructing them with
// a reduction.
//
// # Thread Safety
//
// Engine.Run partitions users across a worker pool; each worker owns a
// private accumulator and the partials are merged once at the end. Run
// itself may be called from multiple goroutines, but each call performs an
// independent full computation.
//
// # Degenerate Values
//
// Zero variance or zero norms produce NaN or infinite scores. These are
// valid outputs describing the data, not errors, and are never replaced
// with zero or dropped.
package similarity
