// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package services

import (
	"context"
	"fmt"
	"time"
)

// PipelineRunner interface matches the ingest pipeline lifecycle.
//
// This interface allows the IngestPipelineService to work with the
// pipeline without importing the ingest package, avoiding circular
// dependencies.
//
// Satisfied by *ingest.Pipeline from internal/ingest/pipeline.go:
//   - Start(ctx context.Context) error - starts appender and consumer
//   - Shutdown(ctx context.Context) - stops all components in dependency order
//   - IsRunning() bool - returns running state
type PipelineRunner interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context)
	IsRunning() bool
}

// IngestPipelineService wraps the NATS rating ingest pipeline as a
// supervised service.
//
// It adapts the Start/Shutdown lifecycle pattern to suture's Serve pattern:
//  1. Calls Start(ctx) to begin all pipeline components
//  2. Waits for context cancellation
//  3. Calls Shutdown(ctx) for graceful cleanup
//
// The pipeline manages multiple subsystems including:
//   - Embedded NATS server (if configured)
//   - JetStream stream and publisher
//   - Watermill subscriber feeding the rating consumer
//   - DuckDB batch appender
//
// Example usage:
//
//	pipeline, _ := ingest.NewPipeline(cfg.NATS, store)
//	svc := services.NewIngestPipelineService(pipeline)
//	tree.AddMessagingService(svc)
type IngestPipelineService struct {
	pipeline        PipelineRunner
	shutdownTimeout time.Duration
	name            string
}

// NewIngestPipelineService creates a new ingest pipeline service wrapper
// with a default shutdown timeout of 10 seconds.
func NewIngestPipelineService(pipeline PipelineRunner) *IngestPipelineService {
	return NewIngestPipelineServiceWithTimeout(pipeline, 10*time.Second)
}

// NewIngestPipelineServiceWithTimeout creates an ingest service with a
// custom shutdown timeout.
func NewIngestPipelineServiceWithTimeout(pipeline PipelineRunner, shutdownTimeout time.Duration) *IngestPipelineService {
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	return &IngestPipelineService{
		pipeline:        pipeline,
		shutdownTimeout: shutdownTimeout,
		name:            "ingest-pipeline",
	}
}

// Serve implements suture.Service.
//
// This method:
//  1. Starts all pipeline components (appender, consumer)
//  2. Blocks until the context is canceled
//  3. Shuts down all components with the configured timeout
//
// If Start() fails, the error is returned immediately, causing suture to
// restart the service according to its backoff policy.
func (s *IngestPipelineService) Serve(ctx context.Context) error {
	if err := s.pipeline.Start(ctx); err != nil {
		return fmt.Errorf("ingest pipeline start failed: %w", err)
	}

	// Wait for shutdown signal
	<-ctx.Done()

	// Shutdown with timeout - use fresh context since original is canceled
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
	defer cancel()

	s.pipeline.Shutdown(shutdownCtx)

	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *IngestPipelineService) String() string {
	return s.name
}
