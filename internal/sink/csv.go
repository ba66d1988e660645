// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package sink

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/tomtom215/corelate/internal/similarity"
)

// csvHeader matches the JSON field names so the two file formats stay
// column-compatible.
var csvHeader = []string{
	"item", "item2",
	"correlation", "regularizedCorrelation", "cosineSimilarity", "jaccardSimilarity",
	"size", "numRaters", "numRaters2",
}

// CSVSink writes records as CSV with a header row. Scores use Go's
// shortest round-trippable formatting; non-finite scores become the
// tokens NaN, +Inf and -Inf.
type CSVSink struct {
	file    *os.File
	w       *csv.Writer
	path    string
	written int64
}

var _ RecordSink = (*CSVSink)(nil)

// NewCSV creates (or truncates) the output file and writes the header.
func NewCSV(path string) (*CSVSink, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}

	s := &CSVSink{
		file: f,
		w:    csv.NewWriter(f),
		path: path,
	}
	if err := s.w.Write(csvHeader); err != nil {
		closeQuietly(f)
		return nil, fmt.Errorf("failed to write CSV header: %w", err)
	}
	return s, nil
}

func (s *CSVSink) Write(ctx context.Context, rec similarity.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	row := []string{
		rec.Item,
		rec.Item2,
		formatScore(rec.Correlation),
		formatScore(rec.RegularizedCorrelation),
		formatScore(rec.CosineSimilarity),
		formatScore(rec.JaccardSimilarity),
		strconv.FormatInt(rec.Size, 10),
		strconv.FormatInt(rec.NumRaters, 10),
		strconv.FormatInt(rec.NumRaters2, 10),
	}
	if err := s.w.Write(row); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	s.written++
	return nil
}

// formatScore renders a score with the fewest digits that round-trip.
// FormatFloat spells non-finite values NaN, +Inf and -Inf, the same
// tokens the JSON encoding uses.
func formatScore(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// Written returns how many records have been written so far.
func (s *CSVSink) Written() int64 {
	return s.written
}

// Close flushes buffered rows and closes the file.
func (s *CSVSink) Close() error {
	s.w.Flush()
	flushErr := s.w.Error()
	closeErr := s.file.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush %s: %w", s.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, closeErr)
	}
	return nil
}

func closeQuietly(f *os.File) {
	_ = f.Close()
}
