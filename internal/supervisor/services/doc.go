// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

/*
Package services provides suture.Service wrappers for Corelate components.

This package adapts application components to the suture v4 supervision
model, translating various lifecycle patterns (Start/Stop, Run,
ListenAndServe) into suture's context-aware Serve pattern.

# Overview

Each wrapper implements the suture.Service interface:

	type Service interface {
	    Serve(ctx context.Context) error
	}

The wrappers handle:
  - Lifecycle translation (Start/Stop to Serve pattern)
  - Graceful shutdown via context cancellation
  - Error propagation for supervisor restart decisions
  - Service identification via fmt.Stringer

# Available Services

HTTP Server (HTTPServerService):
  - Wraps *http.Server with graceful shutdown
  - Converts ListenAndServe pattern to Serve
  - Configurable shutdown timeout for draining connections

WebSocket Hub (WebSocketHubService):
  - Wraps websocket.Hub with context support
  - Handles client connection cleanup on shutdown

Compute Scheduler (ComputeService):
  - Triggers similarity recomputes on startup and on a fixed interval
  - Delegates run serialization to the runner; overlapping triggers no-op
  - Interval zero disables the schedule but keeps the service alive

Ingest Pipeline (IngestPipelineService):
  - Wraps the NATS rating ingest pipeline (server, stream, consumer, appender)
  - Start/Shutdown lifecycle with a bounded shutdown timeout
  - Only registered when NATS_ENABLED=true

Rating Feed (RatingFeedService):
  - Bridges the NATS rating stream to WebSocket broadcasts
  - Builds a fresh feed per Serve since feed instances are single-use
  - Only registered when NATS_ENABLED=true

# Usage Example

Creating and registering services:

	import (
	    "net/http"
	    "time"

	    "github.com/tomtom215/corelate/internal/supervisor"
	    "github.com/tomtom215/corelate/internal/supervisor/services"
	)

	func setupSupervisor(server *http.Server, hub *websocket.Hub, runs *runner.Runner) {
	    tree, _ := supervisor.NewSupervisorTree(logger, config)

	    // Compute scheduler
	    computeSvc := services.NewComputeService(runs, computeCfg, log)
	    tree.AddComputeService(computeSvc)

	    // WebSocket hub
	    wsSvc := services.NewWebSocketHubService(hub)
	    tree.AddMessagingService(wsSvc)

	    // HTTP server with 30s shutdown timeout
	    httpSvc := services.NewHTTPServerService(server, 30*time.Second)
	    tree.AddAPIService(httpSvc)

	    // Start supervision
	    tree.Serve(ctx)
	}

# Lifecycle Patterns

The package handles three common lifecycle patterns:

Start/Stop Pattern:

	type StartStopper interface {
	    Start(ctx context.Context) error
	    Stop() error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    if err := s.component.Start(ctx); err != nil {
	        return err
	    }
	    <-ctx.Done()
	    return s.component.Stop()
	}

Run Pattern:

	type Runner interface {
	    Run() error  // Blocks until complete
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    errCh := make(chan error, 1)
	    go func() { errCh <- s.component.Run() }()
	    select {
	    case err := <-errCh: return err
	    case <-ctx.Done(): s.component.Shutdown(); return nil
	    }
	}

ListenAndServe Pattern:

	type Listener interface {
	    ListenAndServe() error
	    Shutdown(ctx context.Context) error
	}

	// Wrapped as:
	func (s *Service) Serve(ctx context.Context) error {
	    go s.server.ListenAndServe()
	    <-ctx.Done()
	    return s.server.Shutdown(shutdownCtx)
	}

# Error Handling

Return values determine supervisor behavior:

	nil         -> Service stopped cleanly, will not restart
	error       -> Service crashed, supervisor will restart
	ctx.Err()   -> Shutdown requested, normal termination

Example error handling:

	func (s *IngestPipelineService) Serve(ctx context.Context) error {
	    if err := s.pipeline.Start(ctx); err != nil {
	        // Transient error - supervisor should restart
	        return fmt.Errorf("ingest pipeline start failed: %w", err)
	    }

	    <-ctx.Done()

	    s.pipeline.Shutdown(shutdownCtx)

	    return ctx.Err()  // Normal termination
	}

# Service Identification

All services implement fmt.Stringer for logging:

	func (s *HTTPServerService) String() string {
	    return "http-server"
	}

Suture uses this for log messages:

	INFO http-server: starting
	INFO http-server: stopped
	ERROR http-server: restarting after failure

# Thread Safety

All service wrappers are safe for concurrent use:
  - State is protected by mutexes where needed
  - Context cancellation is handled atomically
  - Multiple Serve calls are not supported (undefined behavior)

# See Also

  - internal/supervisor: SupervisorTree that manages these services
  - github.com/thejerf/suture/v4: Underlying supervision library
  - internal/websocket: WebSocket hub and rating feed
  - internal/ingest: NATS rating ingest pipeline
  - internal/runner: Similarity run execution
*/
package services
