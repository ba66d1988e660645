// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker/v2"

	"github.com/tomtom215/corelate/internal/models"
)

// MockRatingStore implements RatingStore for testing. It tracks seen
// event IDs so repeated inserts count as duplicates, like the real
// ratings table primary key does.
type MockRatingStore struct {
	mu           sync.Mutex
	events       []*models.RatingEvent
	seen         map[uuid.UUID]bool
	insertCalls  int
	err          error
	flushSignals chan struct{}
}

func NewMockRatingStore() *MockRatingStore {
	return &MockRatingStore{
		seen:         make(map[uuid.UUID]bool),
		flushSignals: make(chan struct{}, 10),
	}
}

func (m *MockRatingStore) InsertRatingEventsBatch(_ context.Context, events []*models.RatingEvent) (int, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.insertCalls++
	if m.err != nil {
		return 0, 0, m.err
	}

	inserted, duplicates := 0, 0
	for _, e := range events {
		if m.seen[e.EventID] {
			duplicates++
			continue
		}
		m.seen[e.EventID] = true
		m.events = append(m.events, e)
		inserted++
	}

	select {
	case m.flushSignals <- struct{}{}:
	default:
	}
	return inserted, duplicates, nil
}

func (m *MockRatingStore) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *MockRatingStore) Events() []*models.RatingEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.RatingEvent, len(m.events))
	copy(out, m.events)
	return out
}

func (m *MockRatingStore) InsertCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.insertCalls
}

// WaitForFlush blocks until a flush lands in the store or the timeout
// expires. Returns true if a flush was observed.
func (m *MockRatingStore) WaitForFlush(timeout time.Duration) bool {
	select {
	case <-m.flushSignals:
		return true
	case <-time.After(timeout):
		return false
	}
}

func testAppenderConfig() AppenderConfig {
	return AppenderConfig{
		BatchSize:     10,
		FlushInterval: time.Hour, // Effectively disabled; tests drive flushes
		// Generous limits so batch-triggered flushes are never skipped
		// unless a test wants them to be.
		FlushesPerSecond: 100,
		FlushBurst:       100,
	}
}

// TestNewAppender verifies construction with a valid configuration.
func TestNewAppender(t *testing.T) {
	store := NewMockRatingStore()
	a, err := NewAppender(store, testAppenderConfig())
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	if a == nil {
		t.Fatal("NewAppender() returned nil appender")
	}
	defer a.Close()
}

// TestNewAppender_InvalidConfig verifies constructor validation.
func TestNewAppender_InvalidConfig(t *testing.T) {
	store := NewMockRatingStore()

	tests := []struct {
		name    string
		store   RatingStore
		cfg     AppenderConfig
		wantErr string
	}{
		{
			name:    "nil store",
			store:   nil,
			cfg:     testAppenderConfig(),
			wantErr: "store required",
		},
		{
			name:    "zero batch size",
			store:   store,
			cfg:     AppenderConfig{BatchSize: 0, FlushInterval: time.Second},
			wantErr: "batch size must be positive",
		},
		{
			name:    "negative batch size",
			store:   store,
			cfg:     AppenderConfig{BatchSize: -1, FlushInterval: time.Second},
			wantErr: "batch size must be positive",
		},
		{
			name:    "zero flush interval",
			store:   store,
			cfg:     AppenderConfig{BatchSize: 10, FlushInterval: 0},
			wantErr: "flush interval must be positive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewAppender(tt.store, tt.cfg)
			if err == nil {
				t.Fatal("NewAppender() error = nil, want error")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("NewAppender() error = %q, want %q", err.Error(), tt.wantErr)
			}
		})
	}
}

// TestAppender_Append_BuffersWithoutFlush verifies events below batch
// size stay in the buffer.
func TestAppender_Append_BuffersWithoutFlush(t *testing.T) {
	store := NewMockRatingStore()
	a, err := NewAppender(store, testAppenderConfig())
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	for i := 0; i < 3; i++ {
		if err := a.Append(context.Background(), testEvent("u1", fmt.Sprintf("i%d", i), 3.0)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if store.WaitForFlush(100 * time.Millisecond) {
		t.Error("unexpected flush below batch size")
	}

	stats := a.Stats()
	if stats.EventsReceived != 3 {
		t.Errorf("EventsReceived = %d, want 3", stats.EventsReceived)
	}
	if stats.BufferSize != 3 {
		t.Errorf("BufferSize = %d, want 3", stats.BufferSize)
	}
	if stats.FlushCount != 0 {
		t.Errorf("FlushCount = %d, want 0", stats.FlushCount)
	}
}

// TestAppender_Append_TriggersBatchFlush verifies reaching batch size
// flushes asynchronously.
func TestAppender_Append_TriggersBatchFlush(t *testing.T) {
	store := NewMockRatingStore()
	cfg := testAppenderConfig()
	cfg.BatchSize = 3
	a, err := NewAppender(store, cfg)
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	for i := 0; i < 3; i++ {
		if err := a.Append(context.Background(), testEvent("u1", fmt.Sprintf("i%d", i), 3.0)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if !store.WaitForFlush(2 * time.Second) {
		t.Fatal("batch flush did not happen")
	}
	// Give the async flush a moment to finish updating stats.
	time.Sleep(100 * time.Millisecond)

	if got := len(store.Events()); got != 3 {
		t.Errorf("store events = %d, want 3", got)
	}
	stats := a.Stats()
	if stats.EventsFlushed != 3 {
		t.Errorf("EventsFlushed = %d, want 3", stats.EventsFlushed)
	}
	if stats.FlushCount != 1 {
		t.Errorf("FlushCount = %d, want 1", stats.FlushCount)
	}
	if stats.BufferSize != 0 {
		t.Errorf("BufferSize = %d, want 0", stats.BufferSize)
	}
}

// TestAppender_FlushInterval verifies the periodic timer flushes
// partial batches.
func TestAppender_FlushInterval(t *testing.T) {
	store := NewMockRatingStore()
	cfg := testAppenderConfig()
	cfg.BatchSize = 100
	cfg.FlushInterval = 50 * time.Millisecond
	a, err := NewAppender(store, cfg)
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	if err := a.Append(context.Background(), testEvent("u1", "i1", 4.0)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	if !store.WaitForFlush(2 * time.Second) {
		t.Fatal("interval flush did not happen")
	}
	if got := len(store.Events()); got != 1 {
		t.Errorf("store events = %d, want 1", got)
	}
}

// TestAppender_ManualFlush verifies Flush drains the buffer on demand.
func TestAppender_ManualFlush(t *testing.T) {
	store := NewMockRatingStore()
	a, err := NewAppender(store, testAppenderConfig())
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	for i := 0; i < 2; i++ {
		if err := a.Append(context.Background(), testEvent("u1", fmt.Sprintf("i%d", i), 3.5)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := len(store.Events()); got != 2 {
		t.Errorf("store events = %d, want 2", got)
	}
	if stats := a.Stats(); stats.BufferSize != 0 {
		t.Errorf("BufferSize = %d, want 0", stats.BufferSize)
	}
}

// TestAppender_Flush_Empty verifies flushing an empty buffer is a no-op.
func TestAppender_Flush_Empty(t *testing.T) {
	store := NewMockRatingStore()
	a, err := NewAppender(store, testAppenderConfig())
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	if err := a.Flush(context.Background()); err != nil {
		t.Errorf("Flush() error = %v", err)
	}
	if calls := store.InsertCalls(); calls != 0 {
		t.Errorf("InsertCalls = %d, want 0", calls)
	}
}

// TestAppender_Close_FlushesPending verifies Close drains the buffer.
func TestAppender_Close_FlushesPending(t *testing.T) {
	store := NewMockRatingStore()
	a, err := NewAppender(store, testAppenderConfig())
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}

	for i := 0; i < 2; i++ {
		if err := a.Append(context.Background(), testEvent("u1", fmt.Sprintf("i%d", i), 2.0)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if got := len(store.Events()); got != 2 {
		t.Errorf("store events = %d, want 2", got)
	}
}

// TestAppender_Close_Idempotent verifies repeated Close is safe.
func TestAppender_Close_Idempotent(t *testing.T) {
	store := NewMockRatingStore()
	a, err := NewAppender(store, testAppenderConfig())
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}

	if err := a.Close(); err != nil {
		t.Fatalf("first Close() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

// TestAppender_Append_AfterClose verifies appends are rejected after Close.
func TestAppender_Append_AfterClose(t *testing.T) {
	store := NewMockRatingStore()
	a, err := NewAppender(store, testAppenderConfig())
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	err = a.Append(context.Background(), testEvent("u1", "i1", 3.0))
	if err == nil || err.Error() != "appender is closed" {
		t.Errorf("Append() error = %v, want %q", err, "appender is closed")
	}
	if err := a.Start(context.Background()); err == nil {
		t.Error("Start() after Close error = nil, want error")
	}
}

// TestAppender_Flush_StoreError verifies failed events are retained for
// retry and flushed once the store recovers.
func TestAppender_Flush_StoreError(t *testing.T) {
	store := NewMockRatingStore()
	a, err := NewAppender(store, testAppenderConfig())
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	for i := 0; i < 2; i++ {
		if err := a.Append(context.Background(), testEvent("u1", fmt.Sprintf("i%d", i), 4.5)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	store.SetError(errors.New("disk full"))
	if err := a.Flush(context.Background()); err == nil {
		t.Fatal("Flush() error = nil, want store error")
	}

	stats := a.Stats()
	if stats.ErrorCount != 1 {
		t.Errorf("ErrorCount = %d, want 1", stats.ErrorCount)
	}
	if stats.LastError == "" {
		t.Error("LastError empty, want store error message")
	}
	if stats.BufferSize != 2 {
		t.Errorf("BufferSize = %d, want 2 (events retained)", stats.BufferSize)
	}

	// Recovery flushes the retained events.
	store.SetError(nil)
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() after recovery error = %v", err)
	}
	if got := len(store.Events()); got != 2 {
		t.Errorf("store events = %d, want 2", got)
	}
	stats = a.Stats()
	if stats.BufferSize != 0 {
		t.Errorf("BufferSize = %d, want 0", stats.BufferSize)
	}
	if stats.LastError != "" {
		t.Errorf("LastError = %q, want empty after successful flush", stats.LastError)
	}
}

// TestAppender_CountsDuplicates verifies store-reported duplicates land
// in the stats.
func TestAppender_CountsDuplicates(t *testing.T) {
	store := NewMockRatingStore()
	a, err := NewAppender(store, testAppenderConfig())
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	dupe := testEvent("u1", "i1", 3.0)
	for _, e := range []*models.RatingEvent{dupe, dupe, testEvent("u2", "i2", 4.0)} {
		if err := a.Append(context.Background(), e); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}

	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}

	if got := len(store.Events()); got != 2 {
		t.Errorf("store events = %d, want 2", got)
	}
	stats := a.Stats()
	if stats.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", stats.Duplicates)
	}
	if stats.EventsFlushed != 3 {
		t.Errorf("EventsFlushed = %d, want 3", stats.EventsFlushed)
	}
}

// TestAppender_FlushRateLimit verifies the limiter skips back-to-back
// batch-triggered flushes; skipped events wait for the next flush path.
func TestAppender_FlushRateLimit(t *testing.T) {
	store := NewMockRatingStore()
	cfg := AppenderConfig{
		BatchSize:        2,
		FlushInterval:    time.Hour,
		FlushesPerSecond: 1,
		FlushBurst:       1,
	}
	a, err := NewAppender(store, cfg)
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	// First batch consumes the only token.
	for i := 0; i < 2; i++ {
		if err := a.Append(context.Background(), testEvent("u1", fmt.Sprintf("a%d", i), 3.0)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if !store.WaitForFlush(2 * time.Second) {
		t.Fatal("first batch flush did not happen")
	}

	// Second batch is rate-limited; no flush fires.
	for i := 0; i < 2; i++ {
		if err := a.Append(context.Background(), testEvent("u1", fmt.Sprintf("b%d", i), 3.0)); err != nil {
			t.Fatalf("Append() error = %v", err)
		}
	}
	if store.WaitForFlush(300 * time.Millisecond) {
		t.Error("rate-limited batch flushed immediately")
	}

	// Manual flush bypasses the limiter.
	if err := a.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if got := len(store.Events()); got != 4 {
		t.Errorf("store events = %d, want 4", got)
	}
}

// TestAppender_CircuitBreakerOpens verifies repeated store failures
// open the breaker and stop hitting the store.
func TestAppender_CircuitBreakerOpens(t *testing.T) {
	store := NewMockRatingStore()
	a, err := NewAppender(store, testAppenderConfig())
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	if err := a.Append(context.Background(), testEvent("u1", "i1", 3.0)); err != nil {
		t.Fatalf("Append() error = %v", err)
	}

	store.SetError(errors.New("store down"))
	for i := 0; i < 5; i++ {
		if err := a.Flush(context.Background()); err == nil {
			t.Fatalf("Flush() %d error = nil, want store error", i)
		}
	}
	if calls := store.InsertCalls(); calls != 5 {
		t.Fatalf("InsertCalls = %d, want 5", calls)
	}

	// Breaker is open now; the store is not called again.
	err = a.Flush(context.Background())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Flush() error = %v, want ErrOpenState", err)
	}
	if calls := store.InsertCalls(); calls != 5 {
		t.Errorf("InsertCalls = %d, want 5 (breaker open)", calls)
	}
	if stats := a.Stats(); stats.BufferSize != 1 {
		t.Errorf("BufferSize = %d, want 1 (event retained)", stats.BufferSize)
	}
}

// TestAppender_ConcurrentAppend verifies concurrent producers do not
// lose events.
func TestAppender_ConcurrentAppend(t *testing.T) {
	store := NewMockRatingStore()
	cfg := testAppenderConfig()
	cfg.BatchSize = 50
	a, err := NewAppender(store, cfg)
	if err != nil {
		t.Fatalf("NewAppender() error = %v", err)
	}

	const (
		goroutines = 10
		perG       = 20
	)
	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < perG; i++ {
				event := testEvent(fmt.Sprintf("u%d", g), fmt.Sprintf("i%d", i), 3.0)
				if err := a.Append(context.Background(), event); err != nil {
					t.Errorf("Append() error = %v", err)
				}
			}
		}(g)
	}
	wg.Wait()

	if err := a.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if got := len(store.Events()); got != goroutines*perG {
		t.Errorf("store events = %d, want %d", got, goroutines*perG)
	}
	stats := a.Stats()
	if stats.EventsReceived != goroutines*perG {
		t.Errorf("EventsReceived = %d, want %d", stats.EventsReceived, goroutines*perG)
	}
	if stats.EventsFlushed != goroutines*perG {
		t.Errorf("EventsFlushed = %d, want %d", stats.EventsFlushed, goroutines*perG)
	}
}

func BenchmarkAppender_Append(b *testing.B) {
	store := NewMockRatingStore()
	cfg := AppenderConfig{
		BatchSize:        100000,
		FlushInterval:    time.Hour,
		FlushesPerSecond: 100,
		FlushBurst:       100,
	}
	a, err := NewAppender(store, cfg)
	if err != nil {
		b.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	event := testEvent("bench-user", "bench-item", 3.5)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = a.Append(context.Background(), event)
	}
}

func BenchmarkAppender_AppendParallel(b *testing.B) {
	store := NewMockRatingStore()
	cfg := AppenderConfig{
		BatchSize:        100000,
		FlushInterval:    time.Hour,
		FlushesPerSecond: 100,
		FlushBurst:       100,
	}
	a, err := NewAppender(store, cfg)
	if err != nil {
		b.Fatalf("NewAppender() error = %v", err)
	}
	defer a.Close()

	event := testEvent("bench-user", "bench-item", 3.5)
	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			_ = a.Append(context.Background(), event)
		}
	})
}
