// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package runner coordinates full similarity recomputes. A run reads
// every stored rating through the engine, persists the resulting
// records under a fresh run ID, rebuilds the neighbor index, and
// reports lifecycle events over the WebSocket hub. Runs are
// serialized: triggering while one executes returns the active run
// instead of starting a second.
package runner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/corelate/internal/index"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
	"github.com/tomtom215/corelate/internal/models"
	"github.com/tomtom215/corelate/internal/similarity"
	"github.com/tomtom215/corelate/internal/sink"
)

// Run lifecycle phases reported through run_progress broadcasts.
const (
	PhaseComputing  = "computing"
	PhasePersisting = "persisting"
	PhaseIndexing   = "indexing"
)

// bookkeepingTimeout bounds the run-row status writes that must land
// even when the run context itself is already canceled.
const bookkeepingTimeout = 10 * time.Second

// RunStore is the database surface a run needs: run rows, the rating
// stream, and the similarity record insert used by the store sink.
// *database.DB satisfies it.
type RunStore interface {
	CreateRun(ctx context.Context, cfg similarity.Config) (*models.Run, error)
	CompleteRun(ctx context.Context, id uuid.UUID, stats similarity.RunStats, recordsWritten int64) error
	FailRun(ctx context.Context, id uuid.UUID, runErr error) error
	PruneRuns(ctx context.Context, retain int) (int64, error)
	Ratings() similarity.RatingSource
	InsertSimilarityRecords(ctx context.Context, runID uuid.UUID, records []similarity.Record) (int, error)
}

// NeighborIndex is rebuilt from the run's records after they are
// persisted. *index.Index satisfies it.
type NeighborIndex interface {
	Rebuild(ctx context.Context, runID uuid.UUID, stream index.RecordStream) error
}

// Broadcaster pushes run lifecycle events to connected WebSocket
// clients. Implemented by websocket.Hub.
type Broadcaster interface {
	BroadcastRunStarted(run *models.Run)
	BroadcastRunProgress(runID uuid.UUID, phase string, stats similarity.RunStats)
	BroadcastRunCompleted(run *models.Run)
	BroadcastRunFailed(runID uuid.UUID, errMsg string)
}

// Config holds the runner's operational settings.
type Config struct {
	// Timeout bounds a single run. Zero means no deadline.
	Timeout time.Duration

	// BatchSize is the store sink's records-per-transaction batch.
	// Zero selects the sink default.
	BatchSize int

	// RetainRuns is how many finished runs to keep; older runs and
	// their similarity sets are pruned after each completion. Zero
	// keeps everything.
	RetainRuns int
}

// Runner executes recomputes one at a time.
type Runner struct {
	store  RunStore
	engine *similarity.Engine
	index  NeighborIndex
	hub    Broadcaster
	cfg    Config

	mu             sync.Mutex
	busy           bool
	active         *models.Run
	onRunCompleted func(*models.Run)

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates a runner. store and engine are required; idx and
// hub may be nil, which disables index rebuilds and broadcasts.
func NewRunner(store RunStore, engine *similarity.Engine, idx NeighborIndex, hub Broadcaster, cfg Config) *Runner {
	ctx, cancel := context.WithCancel(context.Background())

	logging.Info().
		Dur("timeout", cfg.Timeout).
		Int("batch_size", cfg.BatchSize).
		Int("retain_runs", cfg.RetainRuns).
		Msg("Runner initialized")

	return &Runner{
		store:   store,
		engine:  engine,
		index:   idx,
		hub:     hub,
		cfg:     cfg,
		baseCtx: ctx,
		cancel:  cancel,
	}
}

// SetOnRunCompleted registers a callback invoked after each successful
// run, after the run row is marked completed. The API layer uses it to
// invalidate response caches.
func (r *Runner) SetOnRunCompleted(fn func(*models.Run)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onRunCompleted = fn
}

// Active returns the currently executing run, or nil when idle. The
// returned row keeps status "running"; the completed state is written
// to the store and broadcast, never mutated into this pointer.
func (r *Runner) Active() *models.Run {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

// Trigger starts an asynchronous recompute. The run row is created
// before Trigger returns so callers can hand out the run ID; the
// compute itself runs on a background goroutine. When a run is already
// executing, Trigger returns it with started == false. (In the narrow
// window where a concurrent trigger is still creating its run row, the
// returned run is nil with started == false.)
//
// ctx covers only the run row insert. The run itself is bounded by the
// runner's lifetime and the configured Timeout, not the caller's ctx,
// so an HTTP trigger outlives its request.
func (r *Runner) Trigger(ctx context.Context) (run *models.Run, started bool, err error) {
	r.mu.Lock()
	if r.busy {
		active := r.active
		r.mu.Unlock()
		return active, false, nil
	}
	r.busy = true
	r.mu.Unlock()

	run, err = r.store.CreateRun(ctx, r.engine.Config())
	if err != nil {
		r.mu.Lock()
		r.busy = false
		r.mu.Unlock()
		return nil, false, fmt.Errorf("create run: %w", err)
	}

	r.mu.Lock()
	r.active = run
	r.mu.Unlock()

	if r.hub != nil {
		r.hub.BroadcastRunStarted(run)
	}

	r.wg.Add(1)
	go r.execute(run)

	return run, true, nil
}

// Wait blocks until the currently executing run, if any, finishes.
func (r *Runner) Wait() {
	r.wg.Wait()
}

// Close cancels any executing run and waits for it to wind down. The
// canceled run is recorded as failed; that bookkeeping write uses its
// own context and still lands.
func (r *Runner) Close() {
	r.cancel()
	r.wg.Wait()
}

func (r *Runner) execute(run *models.Run) {
	defer r.wg.Done()
	defer r.clearActive()

	ctx := r.baseCtx
	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, written, err := r.compute(ctx, run)
	if err == nil {
		bctx, cancel := bookkeeping()
		if cerr := r.store.CompleteRun(bctx, run.ID, result.Stats, written); cerr != nil {
			err = fmt.Errorf("mark run completed: %w", cerr)
		}
		cancel()
	}
	duration := time.Since(start)
	metrics.RecordRun(duration, err)

	if err != nil {
		r.finishFailed(run, err, duration)
		return
	}
	r.finishCompleted(run, result, written, duration)
}

// compute is the run body: engine pass, record persistence, index
// rebuild. Progress is broadcast at each phase boundary.
func (r *Runner) compute(ctx context.Context, run *models.Run) (*similarity.Result, int64, error) {
	r.broadcastProgress(run.ID, PhaseComputing, similarity.RunStats{})

	result, err := r.engine.Run(ctx, r.store.Ratings())
	if err != nil {
		return nil, 0, err
	}

	r.broadcastProgress(run.ID, PhasePersisting, result.Stats)
	written, err := r.persist(ctx, run.ID, result.Records)
	if err != nil {
		return nil, 0, fmt.Errorf("persist similarity records: %w", err)
	}

	if r.index != nil {
		r.broadcastProgress(run.ID, PhaseIndexing, result.Stats)
		idxStart := time.Now()
		if err := r.index.Rebuild(ctx, run.ID, index.SliceStream(result.Records)); err != nil {
			return nil, 0, fmt.Errorf("rebuild neighbor index: %w", err)
		}
		metrics.RecordIndexRebuild(time.Since(idxStart), int64(len(result.Records)))
	}

	return result, written, nil
}

func (r *Runner) persist(ctx context.Context, runID uuid.UUID, records []similarity.Record) (int64, error) {
	st := sink.NewStore(r.store, runID, r.cfg.BatchSize)
	for i := range records {
		if err := st.Write(ctx, records[i]); err != nil {
			return st.Written(), err
		}
	}
	if err := st.Close(); err != nil {
		return st.Written(), err
	}
	return st.Written(), nil
}

func (r *Runner) finishCompleted(run *models.Run, result *similarity.Result, written int64, duration time.Duration) {
	// The active run row is handed out by Active(); finish on a copy so
	// concurrent readers never observe a half-updated run.
	now := time.Now().UTC()
	done := *run
	done.Status = models.RunStatusCompleted
	done.FinishedAt = &now
	done.Stats = result.Stats
	done.RecordsWritten = written

	metrics.RecordRunStats(result.Stats.RatingsRead, result.Stats.PairsGenerated, result.Stats.PairsKept, written)

	if r.cfg.RetainRuns > 0 {
		bctx, cancel := bookkeeping()
		if pruned, err := r.store.PruneRuns(bctx, r.cfg.RetainRuns); err != nil {
			logging.Warn().Err(err).Msg("Failed to prune old runs")
		} else if pruned > 0 {
			logging.Debug().Int64("pruned", pruned).Msg("Pruned old runs")
		}
		cancel()
	}

	r.mu.Lock()
	cb := r.onRunCompleted
	r.mu.Unlock()
	if cb != nil {
		cb(&done)
	}

	if r.hub != nil {
		r.hub.BroadcastRunCompleted(&done)
	}

	logging.Info().
		Str("run_id", done.ID.String()).
		Dur("duration", duration).
		Int64("ratings_read", done.Stats.RatingsRead).
		Int64("pairs_kept", done.Stats.PairsKept).
		Int64("records_written", written).
		Msg("Run completed")
}

func (r *Runner) finishFailed(run *models.Run, runErr error, duration time.Duration) {
	bctx, cancel := bookkeeping()
	defer cancel()
	if err := r.store.FailRun(bctx, run.ID, runErr); err != nil {
		logging.Error().Err(err).Str("run_id", run.ID.String()).Msg("Failed to mark run failed")
	}

	if r.hub != nil {
		r.hub.BroadcastRunFailed(run.ID, runErr.Error())
	}

	logging.Error().
		Err(runErr).
		Str("run_id", run.ID.String()).
		Dur("duration", duration).
		Msg("Run failed")
}

func (r *Runner) broadcastProgress(runID uuid.UUID, phase string, stats similarity.RunStats) {
	if r.hub == nil {
		return
	}
	r.hub.BroadcastRunProgress(runID, phase, stats)
}

// bookkeeping returns a short-lived context for run-row writes. These
// must not inherit the run context: a canceled run still has to be
// marked failed, or it would sit in "running" forever.
func bookkeeping() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), bookkeepingTimeout)
}

func (r *Runner) clearActive() {
	r.mu.Lock()
	r.active = nil
	r.busy = false
	r.mu.Unlock()
}
