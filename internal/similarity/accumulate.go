// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package similarity

// accumulator reduces pair emissions into one PairStats per item pair.
// It is not safe for concurrent use; the engine gives each worker its own
// accumulator and merges them afterwards.
type accumulator struct {
	pairs map[ItemPair]*PairStats
}

func newAccumulator() *accumulator {
	return &accumulator{pairs: make(map[ItemPair]*PairStats)}
}

// add folds one co-rating observation into the pair's statistics. The pair
// is canonicalized here, so callers may pass the items in either order;
// the per-side fields follow the canonical orientation.
func (acc *accumulator) add(x, y RatedItem) {
	pair, swapped := MakeItemPair(x.Item, y.Item)
	if swapped {
		x, y = y, x
	}

	st := acc.pairs[pair]
	if st == nil {
		st = &PairStats{}
		acc.pairs[pair] = st
	}

	st.Intersection++
	st.DotProduct += x.Rating * y.Rating
	st.RatingSumA += x.Rating
	st.RatingSumB += y.Rating
	st.RatingSqSumA += x.Rating * x.Rating
	st.RatingSqSumB += y.Rating * y.Rating
	// Rater counts are constant per item by construction; carry, don't derive.
	st.NumRatersA = x.NumRaters
	st.NumRatersB = y.NumRaters
}

// merge folds another accumulator's partial statistics into this one.
// All reductions are commutative and associative, so merge order between
// workers does not matter.
func (acc *accumulator) merge(other *accumulator) {
	for pair, st := range other.pairs {
		dst := acc.pairs[pair]
		if dst == nil {
			acc.pairs[pair] = st
			continue
		}
		dst.Intersection += st.Intersection
		dst.DotProduct += st.DotProduct
		dst.RatingSumA += st.RatingSumA
		dst.RatingSumB += st.RatingSumB
		dst.RatingSqSumA += st.RatingSqSumA
		dst.RatingSqSumB += st.RatingSqSumB
		dst.NumRatersA = st.NumRatersA
		dst.NumRatersB = st.NumRatersB
	}
}
