// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

// Package main is the entry point for the Corelate application.
//
// Corelate computes item-to-item similarity from (user, item, rating) logs.
// It ingests rating events over HTTP and NATS JetStream, periodically
// recomputes pairwise similarity scores (Pearson correlation, regularized
// correlation, cosine, Jaccard), and serves neighbor queries from a
// persistent index.
//
// # Application Architecture
//
// The server initializes components in the following order:
//
//  1. Configuration: Load settings from environment variables and config files (Koanf v2)
//  2. Database: Initialize DuckDB for rating events, run history, and similarity records
//  3. Neighbor Index: Open the Badger-backed top-K index for low-latency queries
//  4. WebSocket Hub: Enable real-time run progress and rating feed broadcasts
//  5. Similarity Engine + Runner: Recompute orchestration with run bookkeeping
//  6. NATS (optional): Event-driven rating ingest with JetStream persistence
//  7. HTTP Server: REST API for queries, runs, ratings, and health
//
// All long-running components are managed by a Suture supervisor tree so a
// crashed service restarts with backoff instead of taking the process down.
//
// # Configuration
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//   - Environment variables (see .env.example)
//   - Config file (config.yaml, or -config / CONFIG_PATH)
//   - Built-in defaults
//
// # Run Modes
//
// Server mode (default) runs the full stack under the supervisor tree until
// SIGINT or SIGTERM.
//
// Run-once mode computes similarities from a rating log file and exits,
// touching neither the database nor the index:
//
//	corelate -once -input ratings.csv -output neighbors.jsonl
//
// The input format is chosen by extension: .csv (comma-separated), .tsv
// (tab-separated), .jsonl, or .ndjson. The output format likewise: .csv
// or .jsonl.
// Similarity thresholds still come from the regular configuration, so
// SIMILARITY_MIN_RATERS and friends apply to run-once computations too.
//
// # Signal Handling
//
// The server handles graceful shutdown on SIGINT and SIGTERM:
//   - Stops accepting new connections
//   - Waits for in-flight requests to complete (10s timeout)
//   - Drains the NATS ingest pipeline if enabled
//   - Cancels any executing similarity run and records it as failed
//   - Closes the neighbor index and database
//
// # Example Usage
//
// Default configuration (HTTP ingest only):
//
//	./corelate
//
// With NATS ingest on the embedded JetStream server:
//
//	export NATS_ENABLED=true
//	./corelate
//
// Against an external NATS cluster:
//
//	export NATS_ENABLED=true
//	export NATS_EMBEDDED_SERVER=false
//	export NATS_URL=nats://nats:4222
//	./corelate
//
// One-shot computation from a historical export:
//
//	./corelate -once -input exports/ratings-2026.tsv -output neighbors.csv
//
// Docker:
//
//	docker run -d \
//	  -v corelate-data:/data \
//	  -p 2677:2677 \
//	  ghcr.io/tomtom215/corelate
//
// # Port 2677
//
// The default port 2677 spells "CORR" on a phone keypad, for the
// correlation scores Corelate serves.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/tomtom215/corelate/internal/api"
	"github.com/tomtom215/corelate/internal/config"
	"github.com/tomtom215/corelate/internal/database"
	"github.com/tomtom215/corelate/internal/index"
	"github.com/tomtom215/corelate/internal/ingest"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/models"
	"github.com/tomtom215/corelate/internal/runner"
	"github.com/tomtom215/corelate/internal/similarity"
	"github.com/tomtom215/corelate/internal/sink"
	"github.com/tomtom215/corelate/internal/source"
	"github.com/tomtom215/corelate/internal/supervisor"
	"github.com/tomtom215/corelate/internal/supervisor/services"
	ws "github.com/tomtom215/corelate/internal/websocket"
)

// version is reported by -version and should match the API's advertised
// version in internal/api.
const version = "1.0.0"

func main() {
	var (
		configPath  = flag.String("config", "", "path to config file (overrides CONFIG_PATH)")
		runOnce     = flag.Bool("once", false, "compute similarities from -input to -output and exit")
		inputPath   = flag.String("input", "", "rating log to read in run-once mode (.csv, .tsv, or .jsonl)")
		outputPath  = flag.String("output", "", "similarity file to write in run-once mode (.csv or .jsonl)")
		withHeader  = flag.Bool("header", false, "skip the first row of a delimited -input file")
		showVersion = flag.Bool("version", false, "print version and exit")
	)
	flag.Parse()

	if *showVersion {
		fmt.Printf("corelate %s\n", version)
		return
	}

	// The -config flag routes through the same environment variable the
	// config loader already honors, so flag and env behave identically.
	if *configPath != "" {
		os.Setenv(config.ConfigPathEnvVar, *configPath)
	}

	// Load configuration first to get logging settings
	cfg, err := config.Load()
	if err != nil {
		// Use default logger for config errors (config not yet available)
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	// Initialize zerolog with configuration
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	if *runOnce {
		if err := computeOnce(cfg, *inputPath, *outputPath, *withHeader); err != nil {
			logging.Fatal().Err(err).Msg("Run-once computation failed")
		}
		return
	}

	runServer(cfg)
}

// computeOnce reads a rating log, runs the similarity engine over it, and
// writes the resulting records to a file. The database, index, and HTTP
// server are never touched, which makes this mode useful for batch jobs
// and for sanity-checking thresholds against historical exports.
func computeOnce(cfg *config.Config, inputPath, outputPath string, header bool) error {
	if inputPath == "" || outputPath == "" {
		return errors.New("run-once mode requires both -input and -output")
	}

	src, err := source.ForPath(inputPath, header)
	if err != nil {
		return err
	}

	engine, err := similarity.NewEngine(cfg.Similarity, logging.Logger())
	if err != nil {
		return fmt.Errorf("failed to create similarity engine: %w", err)
	}

	ctx := context.Background()
	if cfg.Compute.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Compute.Timeout)
		defer cancel()
	}

	start := time.Now()
	result, err := engine.Run(ctx, src)
	if err != nil {
		return fmt.Errorf("similarity computation failed: %w", err)
	}

	out, err := openSink(outputPath)
	if err != nil {
		return err
	}

	var writeErr error
	for i := range result.Records {
		if writeErr = out.Write(ctx, result.Records[i]); writeErr != nil {
			break
		}
	}
	// Close even after a write error so partial output is flushed and the
	// file handle is released.
	if closeErr := out.Close(); writeErr == nil {
		writeErr = closeErr
	}
	if writeErr != nil {
		return fmt.Errorf("failed to write %s: %w", outputPath, writeErr)
	}

	logging.Info().
		Str("input", inputPath).
		Str("output", outputPath).
		Int("records", len(result.Records)).
		Int64("ratings_read", result.Stats.RatingsRead).
		Int64("items_kept", result.Stats.ItemsKept).
		Int64("pairs_kept", result.Stats.PairsKept).
		Dur("duration", time.Since(start)).
		Msg("Run-once computation completed")

	return nil
}

// openSink selects a record sink by file extension.
func openSink(path string) (sink.RecordSink, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return sink.NewCSV(path)
	case ".jsonl":
		return sink.NewJSONL(path)
	default:
		return nil, fmt.Errorf("unsupported output extension %q (want .csv or .jsonl)", filepath.Ext(path))
	}
}

//nolint:gocyclo // Main initialization function with sequential setup steps
func runServer(cfg *config.Config) {
	logging.Info().Msg("Starting Corelate with supervisor tree")

	if cfg.NATS.Enabled {
		logging.Info().
			Bool("nats_enabled", true).
			Bool("nats_embedded", cfg.NATS.EmbeddedServer).
			Str("db_path", cfg.Database.Path).
			Str("index_path", cfg.Index.Path).
			Msg("Configuration loaded")
	} else {
		logging.Info().
			Bool("nats_enabled", false).
			Str("db_path", cfg.Database.Path).
			Str("index_path", cfg.Index.Path).
			Msg("Configuration loaded (HTTP ingest only)")
	}

	// Initialize database for ratings, run history, and similarity records
	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized successfully")

	// Open the neighbor index. A missing or empty index is fine; queries
	// return no results until the first run completes.
	idx, err := index.Open(cfg.Index)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open neighbor index")
	}
	defer func() {
		if err := idx.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing neighbor index")
		}
	}()
	logging.Info().
		Str("measure", cfg.Index.Measure).
		Int("top_k", cfg.Index.TopK).
		Msg("Neighbor index opened")

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Create structured logger for supervisor using our slog adapter
	// This bridges zerolog to slog for sutureslog compatibility
	slogLogger := logging.NewSlogLogger()

	// Create supervisor tree
	tree, err := supervisor.NewSupervisorTree(slogLogger, supervisor.TreeConfig{
		FailureThreshold: 5,
		FailureBackoff:   15 * time.Second,
		ShutdownTimeout:  10 * time.Second,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	// Create WebSocket hub for real-time updates (before the runner, which
	// broadcasts run lifecycle events through it)
	wsHub := ws.NewHub()

	engine, err := similarity.NewEngine(cfg.Similarity, logging.Logger())
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create similarity engine")
	}

	// The runner owns run execution: it streams ratings from the database,
	// persists similarity records, rebuilds the index, and broadcasts
	// lifecycle events over the hub.
	runs := runner.NewRunner(db, engine, idx, wsHub, runner.Config{
		Timeout:    cfg.Compute.Timeout,
		BatchSize:  cfg.Database.BatchSize,
		RetainRuns: cfg.Database.RetainRuns,
	})
	defer runs.Close()

	// Initialize NATS rating ingest (optional - NewPipeline returns nil
	// when NATS_ENABLED=false)
	pipeline, err := ingest.NewPipeline(cfg.NATS, db)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize NATS ingest pipeline")
	}
	if pipeline == nil {
		logging.Info().Msg("NATS ingest disabled (NATS_ENABLED=false)")
	}

	handler := api.NewHandler(db, runs, idx, pipeline, wsHub, cfg)

	// Clear the query cache after each completed run so clients see the new
	// similarity snapshot immediately. Run broadcasts are the runner's job.
	runs.SetOnRunCompleted(func(_ *models.Run) {
		handler.ClearCache()
	})

	router := api.NewRouter(handler, cfg)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.SetupChi(),
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
		IdleTimeout:  60 * time.Second,
	}

	// === ADD SERVICES TO SUPERVISOR TREE ===

	// Compute layer services
	tree.AddComputeService(services.NewComputeService(runs, services.ComputeServiceConfig{
		RunOnStart: cfg.Compute.RunOnStart,
		Interval:   cfg.Compute.Interval,
	}, logging.Logger()))
	logging.Info().
		Bool("run_on_start", cfg.Compute.RunOnStart).
		Dur("interval", cfg.Compute.Interval).
		Msg("Compute scheduler added to supervisor tree")

	// Messaging layer services
	tree.AddMessagingService(services.NewWebSocketHubService(wsHub))
	if pipeline != nil {
		tree.AddMessagingService(services.NewIngestPipelineService(pipeline))
		// The feed factory builds a fresh RatingFeed per (re)start; the
		// underlying subscriber is cached by the pipeline and survives
		// feed restarts.
		tree.AddMessagingService(services.NewRatingFeedService(func() (services.FeedRunner, error) {
			src, err := pipeline.FeedSource()
			if err != nil {
				return nil, err
			}
			return ws.NewRatingFeed(wsHub, src, ingest.SubjectWildcard), nil
		}))
		logging.Info().Msg("NATS ingest pipeline and rating feed added to supervisor tree")
	}
	logging.Info().Msg("WebSocket hub added to supervisor tree")

	// API layer services
	tree.AddAPIService(services.NewHTTPServerService(server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	// === START SUPERVISOR TREE ===

	// Setup signal handling
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	// Wait for supervisor to finish (either from signal or error)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Context canceled, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}

	// Wait for the error channel to close (supervisor finished)
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	// Report any services that failed to stop within timeout
	unstopped, _ := tree.UnstoppedServiceReport()
	if len(unstopped) > 0 {
		logging.Warn().Int("count", len(unstopped)).Msg("Services failed to stop within timeout")
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
