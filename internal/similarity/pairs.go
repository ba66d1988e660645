// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package similarity

import "sort"

// forEachPair emits every unordered pair of distinct items from one user's
// rating list, exactly once and in canonical orientation. The list is
// sorted by item first, so the nested loops yield a < b without per-pair
// swaps. Pairs of equal items are skipped: they can only arise from
// duplicate (user, item) input and must never become self-pairs.
//
// This is the quadratic step of the pipeline. It iterates explicitly
// instead of materializing a cross-product so memory stays linear in the
// user's item count.
func forEachPair(items []RatedItem, fn func(a, b RatedItem)) int64 {
	if len(items) < 2 {
		return 0
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].Item < items[j].Item
	})

	var emitted int64
	for i := 0; i < len(items)-1; i++ {
		for j := i + 1; j < len(items); j++ {
			if items[i].Item == items[j].Item {
				continue
			}
			fn(items[i], items[j])
			emitted++
		}
	}
	return emitted
}
