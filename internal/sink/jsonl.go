// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package sink

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"

	json "github.com/goccy/go-json"
	"github.com/tomtom215/corelate/internal/similarity"
)

// JSONLSink writes one JSON object per line. Non-finite scores are
// emitted as the string tokens "NaN", "+Inf" and "-Inf" through the
// record's own JSON encoding, so the output stays parseable by strict
// JSON readers.
type JSONLSink struct {
	file    *os.File
	w       *bufio.Writer
	path    string
	written int64
}

var _ RecordSink = (*JSONLSink)(nil)

// NewJSONL creates (or truncates) the output file, creating parent
// directories as needed.
func NewJSONL(path string) (*JSONLSink, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return &JSONLSink{
		file: f,
		w:    bufio.NewWriter(f),
		path: path,
	}, nil
}

func (s *JSONLSink) Write(ctx context.Context, rec similarity.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s/%s: %w", rec.Item, rec.Item2, err)
	}
	if _, err := s.w.Write(data); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	if err := s.w.WriteByte('\n'); err != nil {
		return fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	s.written++
	return nil
}

// Written returns how many records have been written so far.
func (s *JSONLSink) Written() int64 {
	return s.written
}

// Close flushes buffered output and closes the file.
func (s *JSONLSink) Close() error {
	flushErr := s.w.Flush()
	closeErr := s.file.Close()
	if flushErr != nil {
		return fmt.Errorf("failed to flush %s: %w", s.path, flushErr)
	}
	if closeErr != nil {
		return fmt.Errorf("failed to close %s: %w", s.path, closeErr)
	}
	return nil
}
