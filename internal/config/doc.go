// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

/*
Package config provides centralized configuration management for Corelate.

This package handles loading, validation, and parsing of configuration for
all application components. Configuration is layered with Koanf v2: struct
defaults first, then an optional YAML config file, then environment
variables, with later layers overriding earlier ones.

# Configuration Sources

The package reads configuration from:
  - Built-in defaults (always present)
  - YAML config file (config.yaml, or CONFIG_PATH to point elsewhere)
  - Environment variables (highest priority)

# Configuration Structure

The package organizes configuration into logical groups:

  - similarity.Config: Thresholds and priors for the pair computation
  - ComputeConfig: Periodic recompute scheduling
  - DatabaseConfig: DuckDB storage and batching
  - NATSConfig: JetStream rating ingest (optional)
  - IndexConfig: Badger-backed top-K neighbor index
  - ServerConfig: HTTP server settings
  - APIConfig: Pagination, CORS, and rate limiting
  - LoggingConfig: Log levels and output formats

# Environment Variables

Variables organized by component:

Similarity (similarity.Config):
  - SIMILARITY_MIN_RATERS: Min raters for an item to be scored (default: 3)
  - SIMILARITY_MAX_RATERS: Max raters before an item is excluded (default: 10000)
  - SIMILARITY_MIN_INTERSECTION: Min co-raters for a pair to be emitted (default: 50)
  - SIMILARITY_PRIOR_COUNT: Virtual co-rater count for shrinkage (default: 10)
  - SIMILARITY_PRIOR_CORRELATION: Shrinkage target (default: 0)
  - SIMILARITY_WORKERS: Worker goroutines, 0 = CPU count (default: 0)

Compute (ComputeConfig):
  - COMPUTE_INTERVAL: Time between periodic recomputes, 0 disables (default: 6h)
  - COMPUTE_RUN_ON_START: Recompute at startup (default: true)
  - COMPUTE_TIMEOUT: Per-run deadline, 0 disables (default: 0)

Database (DatabaseConfig):
  - DUCKDB_PATH: Database file path (default: /data/corelate.duckdb)
  - DUCKDB_MAX_MEMORY: Memory limit (default: 2GB)
  - DUCKDB_THREADS: Thread count, 0 = CPU count (default: 0)
  - DB_BATCH_SIZE: Rows per batched insert (default: 5000)
  - DB_RETAIN_RUNS: Completed runs kept before pruning (default: 20)

NATS ingest (NATSConfig):
  - NATS_ENABLED: Enable JetStream ingest (default: true)
  - NATS_URL: Server URL (default: nats://127.0.0.1:4222)
  - NATS_EMBEDDED: Run embedded server (default: true)
  - NATS_BATCH_SIZE: Ratings per flush (default: 1000)
  - NATS_FLUSH_INTERVAL: Max wait before flush (default: 5s)
  - NATS_DEDUP_TTL: Event ID memory for dedup (default: 10m)

Index (IndexConfig):
  - INDEX_PATH: Badger directory (default: /data/index)
  - INDEX_TOP_K: Neighbors kept per item (default: 100)
  - INDEX_MEASURE: correlation, regularized, cosine, or jaccard (default: regularized)

Server and API:
  - HTTP_PORT: Listen port (default: 2677, "CORR" on a phone keypad)
  - HTTP_HOST: Bind address (default: 0.0.0.0)
  - HTTP_TIMEOUT: Read/write timeout (default: 30s)
  - ENVIRONMENT: development or production (default: development)
  - API_DEFAULT_PAGE_SIZE / API_MAX_PAGE_SIZE: Pagination (defaults: 20 / 100)
  - CORS_ORIGINS: Comma-separated origins (default: *)
  - RATE_LIMIT_REQUESTS / RATE_LIMIT_WINDOW: Rate limiting (defaults: 100 / 1m)

Logging (LoggingConfig):
  - LOG_LEVEL: trace, debug, info, warn, error (default: info)
  - LOG_FORMAT: json or console (default: json)
  - LOG_CALLER: Include caller file:line (default: false)

# Usage Example

Basic configuration loading:

	import "github.com/tomtom215/corelate/internal/config"

	cfg, err := config.Load()
	if err != nil {
	    log.Fatalf("Failed to load config: %v", err)
	}

	fmt.Printf("Starting server on %s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Printf("Database: %s\n", cfg.Database.Path)

Testing with custom configuration:

	os.Setenv("HTTP_PORT", "8080")
	os.Setenv("SIMILARITY_MIN_INTERSECTION", "10")

	cfg, err := config.Load()
	// Use cfg for testing

# Validation

Load() validates the whole tree and fails fast:

  - Numeric ranges: HTTP_PORT (1-65535), DB_BATCH_SIZE (1-100000),
    INDEX_TOP_K (1-10000)
  - Duration ranges: NATS_FLUSH_INTERVAL (1s-1h), COMPUTE_INTERVAL (>=1m or 0)
  - Enumerations: LOG_LEVEL, LOG_FORMAT, INDEX_MEASURE
  - Cross-field rules: SIMILARITY_MIN_RATERS <= SIMILARITY_MAX_RATERS,
    API_DEFAULT_PAGE_SIZE <= API_MAX_PAGE_SIZE
  - URL formats: NATS_URL must be a nats, tls, ws, or wss URL

# Thread Safety

The Config struct is immutable after Load() returns, making it safe for
concurrent access from multiple goroutines without synchronization.
*/
package config
