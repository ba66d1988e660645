// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package similarity

import "math"

// Correlation computes the Pearson correlation of two rating vectors from
// their sufficient statistics over n co-raters:
//
//	(n·dot − sumA·sumB) / (√(n·sqA − sumA²) · √(n·sqB − sumB²))
//
// When either side has zero variance across the co-raters the denominator
// is zero and the result is NaN or ±Inf. That is the genuine degeneracy of
// Pearson correlation on a constant vector; callers pass it through.
func Correlation(n, dot, sumA, sumB, sqA, sqB float64) float64 {
	numerator := n*dot - sumA*sumB
	denominator := math.Sqrt(n*sqA-sumA*sumA) * math.Sqrt(n*sqB-sumB*sumB)
	return numerator / denominator
}

// RegularizedCorrelation shrinks a raw correlation toward prior by mixing
// in priorCount virtual co-raters:
//
//	w·corr + (1−w)·prior   with   w = n / (n + priorCount)
//
// As priorCount approaches zero the result approaches corr; as it grows
// the result approaches prior. A non-finite corr stays non-finite, never
// silently substituted.
func RegularizedCorrelation(n, corr, priorCount, prior float64) float64 {
	w := n / (n + priorCount)
	return w*corr + (1-w)*prior
}

// Cosine computes the cosine similarity dot/(normA·normB). A zero norm
// yields a non-finite result, preserved as-is.
func Cosine(dot, normA, normB float64) float64 {
	return dot / (normA * normB)
}

// Jaccard computes intersection/(ratersA + ratersB − intersection), the
// co-rater overlap relative to the union of both rater sets by
// inclusion-exclusion.
func Jaccard(intersection, ratersA, ratersB int64) float64 {
	return float64(intersection) / float64(ratersA+ratersB-intersection)
}

// Score evaluates all four measures for one statistics record. The four
// formulas are independent; every surviving pair gets every score, however
// degenerate.
func Score(pair ItemPair, st *PairStats, cfg *Config) Record {
	n := float64(st.Intersection)
	corr := Correlation(n, st.DotProduct, st.RatingSumA, st.RatingSumB, st.RatingSqSumA, st.RatingSqSumB)

	return Record{
		Item:                   pair.A,
		Item2:                  pair.B,
		Correlation:            corr,
		RegularizedCorrelation: RegularizedCorrelation(n, corr, cfg.PriorCount, cfg.PriorCorrelation),
		CosineSimilarity:       Cosine(st.DotProduct, math.Sqrt(st.RatingSqSumA), math.Sqrt(st.RatingSqSumB)),
		JaccardSimilarity:      Jaccard(st.Intersection, st.NumRatersA, st.NumRatersB),
		Size:                   st.Intersection,
		NumRaters:              st.NumRatersA,
		NumRaters2:             st.NumRatersB,
	}
}
