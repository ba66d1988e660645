// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package sink

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/tomtom215/corelate/internal/similarity"
)

type fakeStore struct {
	batches   [][]similarity.Record
	runIDs    []uuid.UUID
	insertErr error
}

func (f *fakeStore) InsertSimilarityRecords(_ context.Context, runID uuid.UUID, records []similarity.Record) (int, error) {
	if f.insertErr != nil {
		return 0, f.insertErr
	}
	// Copy: the sink reuses its buffer after a flush.
	batch := make([]similarity.Record, len(records))
	copy(batch, records)
	f.batches = append(f.batches, batch)
	f.runIDs = append(f.runIDs, runID)
	return len(records), nil
}

func TestStoreSink_BatchesAndFinalFlush(t *testing.T) {
	store := &fakeStore{}
	runID := uuid.New()
	s := NewStore(store, runID, 2)

	ctx := context.Background()
	items := []string{"b", "c", "d", "e", "f"}
	for _, it := range items {
		if err := s.Write(ctx, testRecord("a", it, 0.5)); err != nil {
			t.Fatalf("Write failed: %v", err)
		}
	}

	// Two full batches flushed, one record still buffered.
	if len(store.batches) != 2 {
		t.Fatalf("flushed %d batches before Close, want 2", len(store.batches))
	}
	if s.Written() != 4 {
		t.Errorf("Written before Close = %d, want 4", s.Written())
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if len(store.batches) != 3 {
		t.Fatalf("flushed %d batches after Close, want 3", len(store.batches))
	}
	if len(store.batches[2]) != 1 {
		t.Errorf("final batch has %d records, want 1", len(store.batches[2]))
	}
	if s.Written() != 5 {
		t.Errorf("Written = %d, want 5", s.Written())
	}

	for _, id := range store.runIDs {
		if id != runID {
			t.Errorf("batch written under run %s, want %s", id, runID)
		}
	}

	// Buffer reuse must not have corrupted earlier batches.
	if store.batches[0][0].Item2 != "b" || store.batches[1][0].Item2 != "d" {
		t.Errorf("batch contents corrupted: %v, %v", store.batches[0][0].Item2, store.batches[1][0].Item2)
	}
}

func TestStoreSink_EmptyClose(t *testing.T) {
	store := &fakeStore{}
	s := NewStore(store, uuid.New(), 10)

	if err := s.Close(); err != nil {
		t.Fatalf("Close on empty sink failed: %v", err)
	}
	if len(store.batches) != 0 {
		t.Errorf("empty sink flushed %d batches", len(store.batches))
	}
}

func TestStoreSink_InsertError(t *testing.T) {
	boom := errors.New("db closed")
	store := &fakeStore{insertErr: boom}
	s := NewStore(store, uuid.New(), 1)

	err := s.Write(context.Background(), testRecord("a", "b", 0.9))
	if !errors.Is(err, boom) {
		t.Errorf("Write error = %v, want the store's error", err)
	}
}

func TestStoreSink_DefaultBatchSize(t *testing.T) {
	s := NewStore(&fakeStore{}, uuid.New(), 0)
	if s.batchSize != defaultBatchSize {
		t.Errorf("batchSize = %d, want default %d", s.batchSize, defaultBatchSize)
	}
}
