// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package similarity

import (
	"fmt"
	"math"
	"strconv"

	"github.com/goccy/go-json"
)

// scoreValue wraps a similarity score for JSON transport. Strict JSON has
// no number syntax for NaN or the infinities, which are legitimate score
// values here, so non-finite scores encode as the strings "NaN", "+Inf",
// and "-Inf" while finite scores encode as plain numbers.
type scoreValue float64

// MarshalJSON implements json.Marshaler.
func (v scoreValue) MarshalJSON() ([]byte, error) {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return []byte(`"NaN"`), nil
	case math.IsInf(f, 1):
		return []byte(`"+Inf"`), nil
	case math.IsInf(f, -1):
		return []byte(`"-Inf"`), nil
	}
	return strconv.AppendFloat(nil, f, 'g', -1, 64), nil
}

// UnmarshalJSON implements json.Unmarshaler, accepting both the string
// tokens produced by MarshalJSON and plain JSON numbers.
func (v *scoreValue) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		switch string(data) {
		case `"NaN"`:
			*v = scoreValue(math.NaN())
		case `"+Inf"`, `"Inf"`:
			*v = scoreValue(math.Inf(1))
		case `"-Inf"`:
			*v = scoreValue(math.Inf(-1))
		default:
			return fmt.Errorf("invalid score value %s", data)
		}
		return nil
	}
	f, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return fmt.Errorf("invalid score value %s: %w", data, err)
	}
	*v = scoreValue(f)
	return nil
}

// recordJSON is Record's wire shape with transport-safe score fields.
type recordJSON struct {
	Item                   string     `json:"item"`
	Item2                  string     `json:"item2"`
	Correlation            scoreValue `json:"correlation"`
	RegularizedCorrelation scoreValue `json:"regularizedCorrelation"`
	CosineSimilarity       scoreValue `json:"cosineSimilarity"`
	JaccardSimilarity      scoreValue `json:"jaccardSimilarity"`
	Size                   int64      `json:"size"`
	NumRaters              int64      `json:"numRaters"`
	NumRaters2             int64      `json:"numRaters2"`
}

// MarshalJSON implements json.Marshaler. Degenerate scores survive the
// trip instead of failing the encoder: NaN and the infinities become the
// strings "NaN", "+Inf", and "-Inf".
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(recordJSON{
		Item:                   r.Item,
		Item2:                  r.Item2,
		Correlation:            scoreValue(r.Correlation),
		RegularizedCorrelation: scoreValue(r.RegularizedCorrelation),
		CosineSimilarity:       scoreValue(r.CosineSimilarity),
		JaccardSimilarity:      scoreValue(r.JaccardSimilarity),
		Size:                   r.Size,
		NumRaters:              r.NumRaters,
		NumRaters2:             r.NumRaters2,
	})
}

// UnmarshalJSON implements json.Unmarshaler for the MarshalJSON encoding.
func (r *Record) UnmarshalJSON(data []byte) error {
	var w recordJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	*r = Record{
		Item:                   w.Item,
		Item2:                  w.Item2,
		Correlation:            float64(w.Correlation),
		RegularizedCorrelation: float64(w.RegularizedCorrelation),
		CosineSimilarity:       float64(w.CosineSimilarity),
		JaccardSimilarity:      float64(w.JaccardSimilarity),
		Size:                   w.Size,
		NumRaters:              w.NumRaters,
		NumRaters2:             w.NumRaters2,
	}
	return nil
}
