// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/tomtom215/corelate/internal/models"
)

// mockRunTrigger is a mock implementation for testing.
type mockRunTrigger struct {
	mu          sync.Mutex
	calls       int
	triggerErr  error
	alreadyBusy bool
}

func (m *mockRunTrigger) Trigger(ctx context.Context) (*models.Run, bool, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.triggerErr != nil {
		return nil, false, m.triggerErr
	}
	run := &models.Run{ID: uuid.New(), Status: models.RunStatusRunning}
	if m.alreadyBusy {
		return run, false, nil
	}
	return run, true, nil
}

func (m *mockRunTrigger) triggerCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestComputeService_String(t *testing.T) {
	service := NewComputeService(&mockRunTrigger{}, ComputeServiceConfig{Interval: time.Hour}, zerolog.Nop())

	if got := service.String(); got != "compute-scheduler" {
		t.Errorf("String() = %q, want %q", got, "compute-scheduler")
	}
}

func TestComputeService_RunOnStart(t *testing.T) {
	runs := &mockRunTrigger{}
	cfg := ComputeServiceConfig{
		RunOnStart: true,
		Interval:   time.Hour, // Long interval to avoid scheduled runs
	}

	service := NewComputeService(runs, cfg, zerolog.Nop())

	// Run service briefly
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_ = service.Serve(ctx)

	// Should have triggered once on startup
	if got := runs.triggerCalls(); got != 1 {
		t.Errorf("Trigger() called %d times, want 1", got)
	}
}

func TestComputeService_NoRunOnStart(t *testing.T) {
	runs := &mockRunTrigger{}
	cfg := ComputeServiceConfig{
		RunOnStart: false,
		Interval:   time.Hour,
	}

	service := NewComputeService(runs, cfg, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_ = service.Serve(ctx)

	if got := runs.triggerCalls(); got != 0 {
		t.Errorf("Trigger() called %d times, want 0", got)
	}
}

func TestComputeService_ScheduledRuns(t *testing.T) {
	runs := &mockRunTrigger{}
	cfg := ComputeServiceConfig{
		RunOnStart: false,
		Interval:   50 * time.Millisecond, // Short interval for testing
	}

	service := NewComputeService(runs, cfg, zerolog.Nop())

	// Run service long enough for 2 scheduled triggers
	ctx, cancel := context.WithTimeout(context.Background(), 130*time.Millisecond)
	defer cancel()

	_ = service.Serve(ctx)

	// Should have triggered at least twice (at 50ms and 100ms)
	if got := runs.triggerCalls(); got < 2 {
		t.Errorf("Trigger() called %d times, want >= 2", got)
	}
}

func TestComputeService_IntervalDisabled(t *testing.T) {
	runs := &mockRunTrigger{}
	cfg := ComputeServiceConfig{
		RunOnStart: true,
		Interval:   0, // Periodic runs disabled
	}

	service := NewComputeService(runs, cfg, zerolog.Nop())

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	err := service.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() returned %v, want context.DeadlineExceeded", err)
	}

	// Only the startup run, no ticker
	if got := runs.triggerCalls(); got != 1 {
		t.Errorf("Trigger() called %d times, want 1", got)
	}
}

func TestComputeService_GracefulShutdown(t *testing.T) {
	runs := &mockRunTrigger{}
	cfg := ComputeServiceConfig{
		RunOnStart: true,
		Interval:   time.Hour,
	}

	service := NewComputeService(runs, cfg, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() {
		done <- service.Serve(ctx)
	}()

	// Wait for the startup trigger, then cancel
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() returned %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve() did not complete in time")
	}
}

func TestComputeService_TriggerError(t *testing.T) {
	runs := &mockRunTrigger{triggerErr: errors.New("create run: database closed")}
	cfg := ComputeServiceConfig{
		RunOnStart: true,
		Interval:   time.Hour,
	}

	service := NewComputeService(runs, cfg, zerolog.Nop())

	// Run service briefly - should continue despite trigger error
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_ = service.Serve(ctx)

	// Should have attempted the trigger despite the error
	if got := runs.triggerCalls(); got != 1 {
		t.Errorf("Trigger() called %d times, want 1", got)
	}
}

func TestComputeService_RunAlreadyActive(t *testing.T) {
	runs := &mockRunTrigger{alreadyBusy: true}
	cfg := ComputeServiceConfig{
		RunOnStart: false,
		Interval:   40 * time.Millisecond,
	}

	service := NewComputeService(runs, cfg, zerolog.Nop())

	// A busy runner is not an error; the scheduler keeps ticking
	ctx, cancel := context.WithTimeout(context.Background(), 110*time.Millisecond)
	defer cancel()

	err := service.Serve(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Serve() returned %v, want context.DeadlineExceeded", err)
	}

	if got := runs.triggerCalls(); got < 2 {
		t.Errorf("Trigger() called %d times, want >= 2", got)
	}
}
