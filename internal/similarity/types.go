// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package similarity

import "context"

// Rating is one user-item-rating triple from the input stream.
// Identifiers are opaque strings; numeric sources format them at the
// boundary. The pipeline assumes at most one rating per (user, item) and
// does not enforce it; duplicates distort the aggregates silently.
type Rating struct {
	User   string  `json:"user"`
	Item   string  `json:"item"`
	Rating float64 `json:"rating"`
}

// RatedItem is a rating with its item's rater count attached by the
// popularity filter. The count rides along through pair generation so the
// aggregator can copy it instead of re-deriving it.
type RatedItem struct {
	Item      string
	Rating    float64
	NumRaters int64
}

// ItemPair identifies an unordered item pair in canonical orientation:
// A < B under lexicographic order. Construct with MakeItemPair.
type ItemPair struct {
	A string
	B string
}

// MakeItemPair returns the canonical pair for two distinct items,
// swapping when needed so that A < B. The boolean reports whether the
// arguments were swapped, which callers use to orient per-side statistics.
func MakeItemPair(a, b string) (ItemPair, bool) {
	if a > b {
		return ItemPair{A: b, B: a}, true
	}
	return ItemPair{A: a, B: b}, false
}

// PairStats holds the sufficient statistics for one item pair: everything
// the four measures need, and nothing else. Sides A and B follow the
// canonical pair orientation.
type PairStats struct {
	// Intersection is the number of users who rated both items.
	Intersection int64

	// DotProduct is the sum of ratingA*ratingB over co-raters.
	DotProduct float64

	// RatingSumA and RatingSumB are the per-side rating sums over co-raters.
	RatingSumA float64
	RatingSumB float64

	// RatingSqSumA and RatingSqSumB are the per-side sums of squared ratings.
	RatingSqSumA float64
	RatingSqSumB float64

	// NumRatersA and NumRatersB are the items' total rater counts from the
	// popularity filter. Constant across every pair sharing the item.
	NumRatersA int64
	NumRatersB int64
}

// Record is one output row. Field order matches the output contract:
// item, item2, the four scores, then the three counts. Score fields may be
// NaN or infinite for degenerate pairs; the JSON encoding in record_json.go
// carries those as string tokens since strict JSON cannot.
type Record struct {
	Item                   string  `json:"item"`
	Item2                  string  `json:"item2"`
	Correlation            float64 `json:"correlation"`
	RegularizedCorrelation float64 `json:"regularizedCorrelation"`
	CosineSimilarity       float64 `json:"cosineSimilarity"`
	JaccardSimilarity      float64 `json:"jaccardSimilarity"`
	Size                   int64   `json:"size"`
	NumRaters              int64   `json:"numRaters"`
	NumRaters2             int64   `json:"numRaters2"`
}

// RunStats summarizes one engine run for logging, metrics, and run history.
type RunStats struct {
	RatingsRead    int64 `json:"ratings_read"`
	ItemsSeen      int64 `json:"items_seen"`
	ItemsKept      int64 `json:"items_kept"`
	UsersSeen      int64 `json:"users_seen"`
	UsersKept      int64 `json:"users_kept"`
	PairsGenerated int64 `json:"pairs_generated"`
	PairsKept      int64 `json:"pairs_kept"`
}

// Result bundles the records of one run with its counters.
type Result struct {
	Records []Record `json:"records"`
	Stats   RunStats `json:"stats"`
}

// RatingSource supplies the rating stream for a run. Each invokes fn for
// every rating in source order and stops at the first error; it returns an
// InputFormatError (or a wrapper of one) for malformed boundary records.
type RatingSource interface {
	Each(ctx context.Context, fn func(Rating) error) error
}

// ContextCancelled checks if the context has been canceled.
func ContextCancelled(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	default:
		return false
	}
}
