// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package similarity

// Measure names accepted wherever a ranking measure is selected: the
// neighbor API's measure parameter, the index config, and storage
// queries.
const (
	MeasureCorrelation = "correlation"
	MeasureRegularized = "regularized"
	MeasureCosine      = "cosine"
	MeasureJaccard     = "jaccard"
)

// Measures returns the valid measure names in display order.
func Measures() []string {
	return []string{MeasureCorrelation, MeasureRegularized, MeasureCosine, MeasureJaccard}
}

// ValidMeasure reports whether name is a known measure.
func ValidMeasure(name string) bool {
	switch name {
	case MeasureCorrelation, MeasureRegularized, MeasureCosine, MeasureJaccard:
		return true
	}
	return false
}

// MeasureScore returns the record's score under the named measure. The
// second return is false for an unknown measure name.
func (r Record) MeasureScore(measure string) (float64, bool) {
	switch measure {
	case MeasureCorrelation:
		return r.Correlation, true
	case MeasureRegularized:
		return r.RegularizedCorrelation, true
	case MeasureCosine:
		return r.CosineSimilarity, true
	case MeasureJaccard:
		return r.JaccardSimilarity, true
	}
	return 0, false
}
