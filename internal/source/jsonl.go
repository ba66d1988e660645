// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"os"

	json "github.com/goccy/go-json"

	"github.com/tomtom215/corelate/internal/similarity"
)

// maxLineBytes bounds a single JSONL record. Lines beyond it abort the
// stream as malformed rather than growing the buffer without limit.
const maxLineBytes = 1 << 20 // 1MB

// JSONLSource streams ratings from a newline-delimited JSON file. Each
// non-blank line holds one object {"user": ..., "item": ..., "rating": ...};
// user and item accept strings or integers. Malformed lines abort the
// stream with an InputFormatError carrying the line number.
type JSONLSource struct {
	path string
}

// NewJSONLSource creates a source for path.
func NewJSONLSource(path string) *JSONLSource {
	return &JSONLSource{path: path}
}

// Each implements similarity.RatingSource.
func (s *JSONLSource) Each(ctx context.Context, fn func(similarity.Rating) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open rating file: %w", err)
	}
	defer f.Close()

	return s.each(ctx, f, fn)
}

// each parses records from r. Split out from Each so tests and fuzzing can
// feed readers directly.
func (s *JSONLSource) each(ctx context.Context, r io.Reader, fn func(similarity.Rating) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineBytes)

	var line int64
	for sc.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return err
		}

		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue // Blank lines carry no record
		}

		var rec jsonlRating
		if err := json.Unmarshal(raw, &rec); err != nil {
			return formatError(line, string(raw), err)
		}

		rating, err := rec.toRating()
		if err != nil {
			return formatError(line, string(raw), err)
		}

		if err := fn(rating); err != nil {
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return formatError(line+1, "", err)
	}
	return nil
}

// jsonlRating is the decode shadow of similarity.Rating. Pointer fields
// distinguish absent keys from zero values so missing fields fail fast.
type jsonlRating struct {
	User   *flexString `json:"user"`
	Item   *flexString `json:"item"`
	Rating *float64    `json:"rating"`
}

// toRating validates the decoded record and converts it.
func (r *jsonlRating) toRating() (similarity.Rating, error) {
	if r.User == nil || *r.User == "" || r.Item == nil || *r.Item == "" {
		return similarity.Rating{}, errEmptyIdentifier
	}
	if r.Rating == nil {
		return similarity.Rating{}, errMissingRating
	}
	if math.IsNaN(*r.Rating) || math.IsInf(*r.Rating, 0) {
		return similarity.Rating{}, errNonFiniteRating
	}
	return similarity.Rating{
		User:   string(*r.User),
		Item:   string(*r.Item),
		Rating: *r.Rating,
	}, nil
}

// flexString accepts JSON strings and numbers, formatting numbers to their
// literal decimal form. Rating logs identify users and items either way.
type flexString string

// UnmarshalJSON implements json.Unmarshaler.
func (s *flexString) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*s = flexString(n.String())
	return nil
}
