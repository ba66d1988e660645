// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package sink

import (
	"context"

	"github.com/google/uuid"
	"github.com/tomtom215/corelate/internal/similarity"
)

const defaultBatchSize = 5000

// SimilarityStore is the slice of the database the store sink needs.
// *database.DB satisfies it.
type SimilarityStore interface {
	InsertSimilarityRecords(ctx context.Context, runID uuid.UUID, records []similarity.Record) (int, error)
}

// StoreSink batches records into the database under one run ID. Batches
// flush at batchSize and on Close, each in its own transaction, so a
// 10M-pair run doesn't become one giant transaction.
type StoreSink struct {
	store     SimilarityStore
	runID     uuid.UUID
	batchSize int
	buf       []similarity.Record
	written   int64
}

var _ RecordSink = (*StoreSink)(nil)

// NewStore creates a sink that writes records for runID in batches of
// batchSize. batchSize <= 0 selects the default.
func NewStore(store SimilarityStore, runID uuid.UUID, batchSize int) *StoreSink {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	return &StoreSink{
		store:     store,
		runID:     runID,
		batchSize: batchSize,
		buf:       make([]similarity.Record, 0, batchSize),
	}
}

func (s *StoreSink) Write(ctx context.Context, rec similarity.Record) error {
	s.buf = append(s.buf, rec)
	if len(s.buf) >= s.batchSize {
		return s.flush(ctx)
	}
	return nil
}

func (s *StoreSink) flush(ctx context.Context) error {
	if len(s.buf) == 0 {
		return nil
	}
	inserted, err := s.store.InsertSimilarityRecords(ctx, s.runID, s.buf)
	if err != nil {
		return err
	}
	s.written += int64(inserted)
	s.buf = s.buf[:0]
	return nil
}

// Written returns how many records have been persisted. Buffered but
// unflushed records don't count until Close.
func (s *StoreSink) Written() int64 {
	return s.written
}

// Close flushes the remaining partial batch.
func (s *StoreSink) Close() error {
	return s.flush(context.Background())
}
