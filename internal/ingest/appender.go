// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package ingest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
	"github.com/tomtom215/corelate/internal/models"
)

// RatingStore defines the interface for persisting rating events.
// *database.DB satisfies it; tests use in-memory fakes.
type RatingStore interface {
	// InsertRatingEventsBatch inserts a batch of rating events and reports
	// how many were inserted versus dropped as duplicates.
	InsertRatingEventsBatch(ctx context.Context, events []*models.RatingEvent) (inserted, duplicates int, err error)
}

// AppenderStats holds runtime statistics for monitoring.
type AppenderStats struct {
	EventsReceived int64         // Total events received via Append
	EventsFlushed  int64         // Total events handed to the store
	Duplicates     int64         // Events the store dropped as duplicates
	FlushCount     int64         // Number of flush operations
	ErrorCount     int64         // Number of failed flushes
	LastFlushTime  time.Time     // Time of last successful flush
	LastError      string        // Last error message
	BufferSize     int           // Current buffer size
	AvgFlushTime   time.Duration // Average flush duration
}

// Appender provides batch buffering and periodic flushing of rating events
// into the database. Events are buffered and written in batches, either
// when the batch size is reached or when the flush interval elapses.
//
// Flushes are serialized via flushMu so timer-based and batch-triggered
// flushes cannot interleave; events reach the database in append order.
// Store calls go through a circuit breaker, and batch-triggered flushes
// are additionally rate-limited so bursts do not hammer the database.
type Appender struct {
	store   RatingStore
	config  AppenderConfig
	breaker *gobreaker.CircuitBreaker[interface{}]

	// limiter caps batch-triggered flushes. Interval and manual flushes
	// bypass it so buffered events never wait longer than FlushInterval.
	limiter *rate.Limiter

	// Buffer management
	mu     sync.Mutex
	buffer []*models.RatingEvent

	// flushMu serializes flush operations.
	flushMu sync.Mutex

	// State management
	closed   atomic.Bool
	started  atomic.Bool
	stopChan chan struct{}
	doneChan chan struct{}
	flushWg  sync.WaitGroup // Tracks in-flight async flushes for graceful shutdown

	// Metrics (atomic for thread-safe reads)
	eventsReceived atomic.Int64
	eventsFlushed  atomic.Int64
	duplicates     atomic.Int64
	flushCount     atomic.Int64
	errorCount     atomic.Int64
	lastFlushTime  atomic.Value // stores time.Time
	lastError      atomic.Value // stores string
	totalFlushTime atomic.Int64 // nanoseconds for averaging
}

// NewAppender creates a new Appender with the given store and configuration.
// Returns an error if the store is nil or the configuration is invalid.
func NewAppender(store RatingStore, cfg AppenderConfig) (*Appender, error) {
	if store == nil {
		return nil, fmt.Errorf("store required")
	}
	if cfg.BatchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive")
	}
	if cfg.FlushInterval <= 0 {
		return nil, fmt.Errorf("flush interval must be positive")
	}
	if cfg.FlushesPerSecond <= 0 {
		cfg.FlushesPerSecond = 4
	}
	if cfg.FlushBurst <= 0 {
		cfg.FlushBurst = 2
	}

	a := &Appender{
		store:    store,
		config:   cfg,
		breaker:  NewCircuitBreaker(DefaultCircuitBreakerConfig("ratings-appender")),
		limiter:  rate.NewLimiter(rate.Limit(cfg.FlushesPerSecond), cfg.FlushBurst),
		buffer:   make([]*models.RatingEvent, 0, cfg.BatchSize),
		stopChan: make(chan struct{}),
		doneChan: make(chan struct{}),
	}

	a.lastFlushTime.Store(time.Time{})
	a.lastError.Store("")

	return a, nil
}

// Start begins the periodic flush timer.
// Must be called to enable interval-based flushing.
// Safe to call multiple times (idempotent).
func (a *Appender) Start(ctx context.Context) error {
	if a.closed.Load() {
		return fmt.Errorf("appender is closed")
	}
	if a.started.Swap(true) {
		return nil // Already started
	}

	go a.flushLoop(ctx)
	return nil
}

// Append adds an event to the buffer.
// Returns an error if the appender is closed.
// When the buffer reaches batch size an async flush is triggered, subject
// to the flush rate limiter; a skipped flush is picked up by the next
// Append or by the interval ticker.
func (a *Appender) Append(ctx context.Context, event *models.RatingEvent) error {
	if a.closed.Load() {
		return fmt.Errorf("appender is closed")
	}

	a.mu.Lock()
	a.buffer = append(a.buffer, event)
	bufferSize := len(a.buffer)
	a.eventsReceived.Add(1)
	needsFlush := bufferSize >= a.config.BatchSize
	a.mu.Unlock()

	logging.Trace().
		Str("event_id", event.EventID.String()).
		Int("buffer_size", bufferSize).
		Int("batch_size", a.config.BatchSize).
		Msg("Rating event buffered")

	if needsFlush && a.limiter.Allow() {
		a.flushWg.Add(1)
		go func() {
			defer a.flushWg.Done()
			// Detached context with timeout: the caller's context belongs
			// to the message handler and may be canceled the moment the
			// handler returns, but the flush has to complete regardless.
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			a.doFlush(flushCtx)
		}()
	}

	return nil
}

// Flush manually flushes all buffered events.
// Blocks until the flush completes or errors.
// Waits for any in-flight async flushes to complete first.
func (a *Appender) Flush(ctx context.Context) error {
	a.flushWg.Wait()
	return a.doFlushSync(ctx)
}

// Close stops the appender and flushes any pending events.
// Safe to call multiple times (idempotent).
func (a *Appender) Close() error {
	if a.closed.Swap(true) {
		return nil // Already closed
	}

	// Stop flush loop if running
	if a.started.Load() {
		close(a.stopChan)
		<-a.doneChan
	}

	// Wait for in-flight async flushes before the final flush
	a.flushWg.Wait()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return a.doFlushSync(ctx)
}

// Stats returns current runtime statistics.
func (a *Appender) Stats() AppenderStats {
	a.mu.Lock()
	bufferSize := len(a.buffer)
	a.mu.Unlock()

	var avgFlushTime time.Duration
	if count := a.flushCount.Load(); count > 0 {
		avgFlushTime = time.Duration(a.totalFlushTime.Load() / count)
	}

	var lastFlushTime time.Time
	if t, ok := a.lastFlushTime.Load().(time.Time); ok {
		lastFlushTime = t
	}
	var lastError string
	if e, ok := a.lastError.Load().(string); ok {
		lastError = e
	}

	return AppenderStats{
		EventsReceived: a.eventsReceived.Load(),
		EventsFlushed:  a.eventsFlushed.Load(),
		Duplicates:     a.duplicates.Load(),
		FlushCount:     a.flushCount.Load(),
		ErrorCount:     a.errorCount.Load(),
		LastFlushTime:  lastFlushTime,
		LastError:      lastError,
		BufferSize:     bufferSize,
		AvgFlushTime:   avgFlushTime,
	}
}

// flushLoop runs the periodic flush timer.
//
// Timer-based flushes use a fresh context with a 30s timeout, not the
// parent context. The parent context only controls shutdown; it must not
// impose deadlines on individual flush operations.
func (a *Appender) flushLoop(ctx context.Context) {
	defer close(a.doneChan)

	ticker := time.NewTicker(a.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.stopChan:
			return
		case <-ticker.C:
			flushCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			a.doFlush(flushCtx)
			cancel()
		}
	}
}

// doFlush performs an async flush (non-blocking).
// The error is logged but not returned since nobody is waiting on it.
func (a *Appender) doFlush(ctx context.Context) {
	if err := a.doFlushSync(ctx); err != nil {
		a.lastError.Store(err.Error())
		logging.Debug().Err(err).Msg("Async rating flush failed")
	}
}

// doFlushSync performs a synchronous flush.
// Returns nil if the buffer is empty or the flush succeeds.
// On error, unflushed events are retained in the buffer for retry.
//
// Events are written in chunks of BatchSize so a backlog accumulated
// during an outage cannot land on the database as one oversized insert.
func (a *Appender) doFlushSync(ctx context.Context) error {
	a.flushMu.Lock()
	defer a.flushMu.Unlock()

	a.mu.Lock()
	if len(a.buffer) == 0 {
		a.mu.Unlock()
		return nil
	}

	// Take ownership of the buffer
	events := a.buffer
	a.buffer = make([]*models.RatingEvent, 0, a.config.BatchSize)
	a.mu.Unlock()

	logging.Debug().
		Int("count", len(events)).
		Int("batch_size", a.config.BatchSize).
		Msg("Flushing rating events to store")

	totalFlushed := 0
	totalStart := time.Now()

	for start := 0; start < len(events); start += a.config.BatchSize {
		end := start + a.config.BatchSize
		if end > len(events) {
			end = len(events)
		}
		chunk := events[start:end]

		chunkStart := time.Now()
		var inserted, duplicates int
		_, err := a.breaker.Execute(func() (interface{}, error) {
			var ierr error
			inserted, duplicates, ierr = a.store.InsertRatingEventsBatch(ctx, chunk)
			return nil, ierr
		})
		chunkElapsed := time.Since(chunkStart)

		if err != nil {
			// Restore ONLY unflushed events to the buffer for retry.
			// Events appended concurrently during the flush stay behind
			// the restored ones to preserve order.
			unflushed := events[start:]
			a.mu.Lock()
			a.buffer = append(unflushed, a.buffer...)
			a.mu.Unlock()

			a.errorCount.Add(1)
			a.lastError.Store(err.Error())
			if totalFlushed > 0 {
				a.eventsFlushed.Add(int64(totalFlushed))
				a.flushCount.Add(1)
			}
			logging.Warn().
				Err(err).
				Int("unflushed", len(unflushed)).
				Msg("Rating flush failed, events retained for retry")
			return fmt.Errorf("flush events (chunk %d-%d): %w", start, end, err)
		}

		totalFlushed += len(chunk)
		a.duplicates.Add(int64(duplicates))
		metrics.RecordIngestBatchFlush(chunkElapsed, len(chunk))

		logging.Debug().
			Int("inserted", inserted).
			Int("duplicates", duplicates).
			Dur("elapsed", chunkElapsed).
			Msg("Rating chunk flushed")
	}

	totalElapsed := time.Since(totalStart)

	a.eventsFlushed.Add(int64(totalFlushed))
	a.flushCount.Add(1)
	a.totalFlushTime.Add(totalElapsed.Nanoseconds())
	a.lastFlushTime.Store(time.Now())
	a.lastError.Store("")

	return nil
}
