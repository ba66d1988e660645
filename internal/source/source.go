// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package source

import (
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/similarity"
)

// Compile-time interface compliance checks
var (
	_ similarity.RatingSource = (*DelimitedSource)(nil)
	_ similarity.RatingSource = (*JSONLSource)(nil)
)

// Shared parse failures surfaced inside InputFormatError.
var (
	errEmptyIdentifier = errors.New("empty user or item identifier")
	errMissingRating   = errors.New("missing rating value")
	errNonFiniteRating = errors.New("rating is not finite")
)

// ForPath selects a source for a rating file by extension: .csv and .tsv
// are delimited (comma and tab separated), .jsonl and .ndjson are
// newline-delimited JSON. The header flag applies to the delimited formats
// only.
func ForPath(path string, header bool) (similarity.RatingSource, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".csv":
		src, err := NewDelimitedSource(path, DelimitedConfig{Comma: ',', Header: header})
		if err != nil {
			return nil, err
		}
		return src, nil
	case ".tsv":
		src, err := NewDelimitedSource(path, DelimitedConfig{Comma: '\t', Header: header})
		if err != nil {
			return nil, err
		}
		return src, nil
	case ".jsonl", ".ndjson":
		return NewJSONLSource(path), nil
	default:
		return nil, fmt.Errorf("unsupported rating file extension %q (want .csv, .tsv, .jsonl, or .ndjson)", ext)
	}
}

// formatError wraps a parse failure in an InputFormatError, preferring the
// csv package's own line number when it reports one. The raw record is
// scrubbed before it is attached so downstream logging cannot be corrupted
// by control characters in untrusted input.
func formatError(line int64, record string, err error) error {
	var pe *csv.ParseError
	if errors.As(err, &pe) {
		line = int64(pe.Line)
	}
	return &similarity.InputFormatError{
		Line:   line,
		Record: logging.ScrubRecord(record),
		Err:    err,
	}
}
