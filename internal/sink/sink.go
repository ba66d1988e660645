// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package sink delivers computed similarity records to their
// destinations: JSONL and CSV files for batch runs, and the database
// for the serving path. Sinks receive records one at a time from the
// runner, in the engine's deterministic output order, and must be
// Closed to flush buffered output.
package sink

import (
	"context"
	"errors"

	"github.com/tomtom215/corelate/internal/similarity"
)

// RecordSink receives similarity records one at a time. Write is called
// from a single goroutine; implementations don't need to be
// thread-safe. Close flushes and releases resources, and must be called
// even after a Write error.
type RecordSink interface {
	Write(ctx context.Context, rec similarity.Record) error
	Close() error
}

// MultiSink fans every record out to several sinks in order.
type MultiSink struct {
	sinks []RecordSink
}

// NewMulti bundles sinks into one. Records are written to each sink in
// the given order; the first Write error stops the fan-out.
func NewMulti(sinks ...RecordSink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

// Write delivers rec to every sink, stopping at the first error.
func (m *MultiSink) Write(ctx context.Context, rec similarity.Record) error {
	for _, s := range m.sinks {
		if err := s.Write(ctx, rec); err != nil {
			return err
		}
	}
	return nil
}

// Close closes every sink, even when earlier ones fail, and returns
// the joined errors.
func (m *MultiSink) Close() error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
