// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package source

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/tomtom215/corelate/internal/similarity"
)

// DelimitedConfig configures a DelimitedSource.
type DelimitedConfig struct {
	// Comma is the field separator. Zero selects ','. Default: ','.
	Comma rune

	// Header skips the first record when true. Default: false.
	Header bool

	// UserCol, ItemCol, and RatingCol are 0-based column indices. Columns
	// outside the layout are ignored, so files carrying extra columns
	// (timestamps and the like) parse without preprocessing. When all
	// three are zero the default layout user,item,rating applies.
	// Defaults: 0, 1, 2.
	UserCol   int
	ItemCol   int
	RatingCol int
}

// DefaultDelimitedConfig returns the standard comma-separated
// user,item,rating layout with no header.
func DefaultDelimitedConfig() DelimitedConfig {
	return DelimitedConfig{
		Comma:     ',',
		Header:    false,
		UserCol:   0,
		ItemCol:   1,
		RatingCol: 2,
	}
}

// DelimitedSource streams ratings from a delimited text file (CSV, TSV, or
// any single-rune separator). Identifier and rating fields are
// whitespace-trimmed. Malformed records abort the stream with an
// InputFormatError carrying the line number; nothing is skipped or coerced.
type DelimitedSource struct {
	path  string
	cfg   DelimitedConfig
	width int // minimum fields per record under the configured layout
}

// NewDelimitedSource creates a source for path. The zero DelimitedConfig
// is normalized to DefaultDelimitedConfig(); explicit column layouts are
// validated here so a bad layout fails before any file is touched.
func NewDelimitedSource(path string, cfg DelimitedConfig) (*DelimitedSource, error) {
	if cfg.Comma == 0 {
		cfg.Comma = ','
	}
	if cfg.UserCol == 0 && cfg.ItemCol == 0 && cfg.RatingCol == 0 {
		def := DefaultDelimitedConfig()
		cfg.UserCol, cfg.ItemCol, cfg.RatingCol = def.UserCol, def.ItemCol, def.RatingCol
	}

	if cfg.UserCol < 0 || cfg.ItemCol < 0 || cfg.RatingCol < 0 {
		return nil, fmt.Errorf("column indices must be non-negative, got user=%d item=%d rating=%d",
			cfg.UserCol, cfg.ItemCol, cfg.RatingCol)
	}
	if cfg.UserCol == cfg.ItemCol || cfg.UserCol == cfg.RatingCol || cfg.ItemCol == cfg.RatingCol {
		return nil, fmt.Errorf("column indices must be distinct, got user=%d item=%d rating=%d",
			cfg.UserCol, cfg.ItemCol, cfg.RatingCol)
	}

	width := cfg.UserCol
	if cfg.ItemCol > width {
		width = cfg.ItemCol
	}
	if cfg.RatingCol > width {
		width = cfg.RatingCol
	}

	return &DelimitedSource{path: path, cfg: cfg, width: width + 1}, nil
}

// Each implements similarity.RatingSource.
func (s *DelimitedSource) Each(ctx context.Context, fn func(similarity.Rating) error) error {
	f, err := os.Open(s.path)
	if err != nil {
		return fmt.Errorf("open rating file: %w", err)
	}
	defer f.Close()

	return s.each(ctx, f, fn)
}

// each parses records from r. Split out from Each so tests and fuzzing can
// feed readers directly.
func (s *DelimitedSource) each(ctx context.Context, r io.Reader, fn func(similarity.Rating) error) error {
	cr := csv.NewReader(r)
	cr.Comma = s.cfg.Comma
	cr.FieldsPerRecord = -1 // Width is checked per record for exact errors
	cr.ReuseRecord = true

	var line int64
	if s.cfg.Header {
		if _, err := cr.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return formatError(1, "", err)
		}
		line = 1
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		fields, err := cr.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return formatError(line+1, strings.Join(fields, string(s.cfg.Comma)), err)
		}
		line++

		rating, err := s.parseFields(fields)
		if err != nil {
			return formatError(line, strings.Join(fields, string(s.cfg.Comma)), err)
		}

		if err := fn(rating); err != nil {
			return err
		}
	}
}

// parseFields extracts one rating from a record under the configured layout.
func (s *DelimitedSource) parseFields(fields []string) (similarity.Rating, error) {
	if len(fields) < s.width {
		return similarity.Rating{}, fmt.Errorf("expected at least %d fields, got %d", s.width, len(fields))
	}

	user := strings.TrimSpace(fields[s.cfg.UserCol])
	item := strings.TrimSpace(fields[s.cfg.ItemCol])
	if user == "" || item == "" {
		return similarity.Rating{}, errEmptyIdentifier
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(fields[s.cfg.RatingCol]), 64)
	if err != nil {
		return similarity.Rating{}, fmt.Errorf("rating is not a number: %w", err)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return similarity.Rating{}, errNonFiniteRating
	}

	return similarity.Rating{User: user, Item: item, Rating: value}, nil
}
