// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package config

import (
	"time"

	"github.com/tomtom215/corelate/internal/similarity"
)

// Config holds all application configuration loaded from defaults, an
// optional YAML config file, and environment variables.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all settings
//  2. Config File: Optional YAML config file (config.yaml) for persistent settings
//  3. Environment Variables: Override any setting via environment variables
//
// Configuration Categories:
//
//  1. Computation:
//     - Similarity: Thresholds and priors for the pair computation
//     - Compute: Periodic recompute scheduling
//
//  2. Infrastructure:
//     - Database: DuckDB configuration (path, memory, batching)
//     - NATS: Rating ingest via Watermill/NATS JetStream (optional)
//     - Index: Badger-backed top-K neighbor index
//     - Server: HTTP server configuration (port, host, timeout)
//
//  3. API:
//     - API: Pagination, CORS, and rate limiting
//
//  4. Observability:
//     - Logging: Log levels and output formats
//
// Example - Load configuration from environment:
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal("Failed to load config:", err)
//	}
//	// cfg.Similarity.MinRaters, cfg.Database.Path, etc. are now populated
//
// Thread Safety:
// Config is immutable after Load() and safe for concurrent read access
// from multiple goroutines.
type Config struct {
	Similarity similarity.Config `koanf:"similarity"`
	Compute    ComputeConfig     `koanf:"compute"`
	Database   DatabaseConfig    `koanf:"database"`
	NATS       NATSConfig        `koanf:"nats"` // Optional: event-driven rating ingest
	Index      IndexConfig       `koanf:"index"`
	Server     ServerConfig      `koanf:"server"`
	API        APIConfig         `koanf:"api"`
	Logging    LoggingConfig     `koanf:"logging"`
}

// ComputeConfig controls when full similarity recomputes happen. A recompute
// reads every rating, regenerates all pairs, and replaces the previous
// similarity set and neighbor index.
//
// Environment Variables:
//   - COMPUTE_INTERVAL: Time between periodic recomputes, 0 disables (default: 6h)
//   - COMPUTE_RUN_ON_START: Recompute once at startup (default: true)
//   - COMPUTE_TIMEOUT: Per-run deadline, 0 disables (default: 0)
type ComputeConfig struct {
	// Interval is the time between periodic recomputes. Zero disables the
	// scheduler; runs can still be triggered through the API. Default: 6h.
	Interval time.Duration `koanf:"interval"`

	// RunOnStart triggers a recompute as soon as the service is up, so a
	// fresh deployment serves neighbors without waiting a full interval.
	// Default: true.
	RunOnStart bool `koanf:"run_on_start"`

	// Timeout bounds a single run. Zero means no deadline. Default: 0.
	Timeout time.Duration `koanf:"timeout"`
}

// DatabaseConfig holds DuckDB settings for rating and similarity storage.
//
// Environment Variables:
//   - DUCKDB_PATH: Database file path (default: /data/corelate.duckdb)
//   - DUCKDB_MAX_MEMORY: Memory limit, e.g. "2GB" (default: 2GB)
//   - DUCKDB_THREADS: Thread count, 0 = CPU count (default: 0)
//   - DB_BATCH_SIZE: Rows per batched insert (default: 5000)
//   - DB_RETAIN_RUNS: Completed runs to keep before pruning (default: 20)
type DatabaseConfig struct {
	// Path is the DuckDB database file. Parent directories are created at
	// open. Default: /data/corelate.duckdb.
	Path string `koanf:"path"`

	// MaxMemory caps DuckDB's memory usage (e.g. "2GB", "512MB"). Empty
	// leaves DuckDB's own default in place. Default: 2GB.
	MaxMemory string `koanf:"max_memory"`

	// Threads sets DuckDB's worker thread count. 0 uses runtime.NumCPU().
	// Default: 0.
	Threads int `koanf:"threads"`

	// BatchSize is the number of rows per batched insert for ratings and
	// similarity records. Default: 5000.
	BatchSize int `koanf:"batch_size"`

	// RetainRuns is how many completed runs (and their similarity sets) to
	// keep before pruning the oldest. 0 keeps everything. Default: 20.
	RetainRuns int `koanf:"retain_runs"`
}

// NATSConfig holds NATS JetStream settings for event-driven rating ingest.
// When enabled, rating events published on the ratings subject are consumed,
// deduplicated, and batch-appended to DuckDB. When disabled, the HTTP ingest
// endpoint writes directly to the database.
//
// Environment Variables:
//   - NATS_ENABLED: Enable JetStream ingest (default: true)
//   - NATS_URL: NATS server URL (default: nats://127.0.0.1:4222)
//   - NATS_EMBEDDED: Run an embedded NATS server (default: true)
//   - NATS_STORE_DIR: JetStream storage directory (default: /data/nats/jetstream)
//   - NATS_MAX_MEMORY: JetStream memory limit in bytes (default: 1GB)
//   - NATS_MAX_STORE: JetStream disk limit in bytes (default: 10GB)
//   - NATS_RETENTION_DAYS: Stream retention in days (default: 7)
//   - NATS_BATCH_SIZE: Ratings per database flush (default: 1000)
//   - NATS_FLUSH_INTERVAL: Max time between flushes (default: 5s)
//   - NATS_SUBSCRIBERS: Concurrent subscriber count (default: 4)
//   - NATS_DURABLE_NAME: Durable consumer name (default: corelate-ratings)
//   - NATS_QUEUE_GROUP: Queue group for load balancing (default: rating-appenders)
//   - NATS_DEDUP_TTL: How long seen event IDs are remembered (default: 10m)
//   - NATS_DEDUP_SIZE: Max event IDs held for deduplication (default: 65536)
type NATSConfig struct {
	// Enabled turns JetStream ingest on. Default: true.
	Enabled bool `koanf:"enabled"`

	// URL is the NATS server address. Default: nats://127.0.0.1:4222.
	URL string `koanf:"url"`

	// EmbeddedServer runs an in-process NATS server with JetStream, for
	// single-binary deployments. Default: true.
	EmbeddedServer bool `koanf:"embedded_server"`

	// StoreDir is where the embedded server persists JetStream data.
	// Default: /data/nats/jetstream.
	StoreDir string `koanf:"store_dir"`

	// MaxMemory caps JetStream memory storage in bytes. Default: 1GB.
	MaxMemory int64 `koanf:"max_memory"`

	// MaxStore caps JetStream disk storage in bytes. Default: 10GB.
	MaxStore int64 `koanf:"max_store"`

	// StreamRetentionDays is how long rating events stay in the stream.
	// Default: 7.
	StreamRetentionDays int `koanf:"stream_retention_days"`

	// BatchSize is the number of consumed ratings buffered before a
	// database flush. Default: 1000.
	BatchSize int `koanf:"batch_size"`

	// FlushInterval is the maximum time a partial batch waits before being
	// flushed. Default: 5s.
	FlushInterval time.Duration `koanf:"flush_interval"`

	// SubscribersCount is the number of concurrent stream subscribers.
	// Default: 4.
	SubscribersCount int `koanf:"subscribers_count"`

	// DurableName identifies the durable consumer so redelivery resumes
	// after restarts. Default: corelate-ratings.
	DurableName string `koanf:"durable_name"`

	// QueueGroup load-balances messages across subscribers. Default:
	// rating-appenders.
	QueueGroup string `koanf:"queue_group"`

	// DedupTTL is how long an event ID is remembered for duplicate
	// suppression. Default: 10m.
	DedupTTL time.Duration `koanf:"dedup_ttl"`

	// DedupSize is the maximum number of event IDs held in the dedup
	// cache. Default: 65536.
	DedupSize int `koanf:"dedup_size"`
}

// IndexConfig holds settings for the Badger-backed neighbor index, which
// serves top-K similar-item lookups without touching DuckDB.
//
// Environment Variables:
//   - INDEX_PATH: Badger directory (default: /data/index)
//   - INDEX_TOP_K: Neighbors kept per item (default: 100)
//   - INDEX_MEASURE: Ranking measure (default: regularized)
//   - INDEX_IN_MEMORY: Keep the index off disk (default: false)
type IndexConfig struct {
	// Path is the Badger database directory. Default: /data/index.
	Path string `koanf:"path"`

	// TopK is how many neighbors are kept per item. Default: 100.
	TopK int `koanf:"top_k"`

	// Measure ranks neighbors: one of correlation, regularized, cosine,
	// jaccard. Default: regularized.
	Measure string `koanf:"measure"`

	// InMemory keeps the index entirely in memory, mainly for tests.
	// Default: false.
	InMemory bool `koanf:"in_memory"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_PORT: Listen port (default: 2677, "CORR" on a phone keypad)
//   - HTTP_HOST: Bind address (default: 0.0.0.0)
//   - HTTP_TIMEOUT: Read/write timeout (default: 30s)
//   - ENVIRONMENT: Deployment mode, development or production (default: development)
type ServerConfig struct {
	// Port is the HTTP listen port. Default: 2677.
	Port int `koanf:"port"`

	// Host is the bind address. Default: 0.0.0.0.
	Host string `koanf:"host"`

	// Timeout applies to request reads and response writes. Default: 30s.
	Timeout time.Duration `koanf:"timeout"`

	// Environment is the deployment mode. Production tightens startup
	// checks and log output. Default: development.
	Environment string `koanf:"environment"`
}

// APIConfig holds pagination, CORS, and rate limiting settings for the
// HTTP API.
//
// Environment Variables:
//   - API_DEFAULT_PAGE_SIZE: Default page size (default: 20)
//   - API_MAX_PAGE_SIZE: Max page size (default: 100)
//   - CORS_ORIGINS: Comma-separated allowed origins (default: *)
//   - RATE_LIMIT_REQUESTS: Requests per window per client (default: 100)
//   - RATE_LIMIT_WINDOW: Rate limit window (default: 1m)
//   - DISABLE_RATE_LIMIT: Turn rate limiting off (default: false)
type APIConfig struct {
	// DefaultPageSize is used when a list request omits limit. Default: 20.
	DefaultPageSize int `koanf:"default_page_size"`

	// MaxPageSize caps the limit parameter on list requests. Default: 100.
	MaxPageSize int `koanf:"max_page_size"`

	// CORSOrigins lists allowed CORS origins. Default: ["*"].
	CORSOrigins []string `koanf:"cors_origins"`

	// RateLimitReqs is the number of requests allowed per window per
	// client IP. Default: 100.
	RateLimitReqs int `koanf:"rate_limit_reqs"`

	// RateLimitWindow is the rate limiting window. Default: 1m.
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`

	// RateLimitDisabled turns rate limiting off entirely. Default: false.
	RateLimitDisabled bool `koanf:"rate_limit_disabled"`
}

// LoggingConfig holds log output settings.
//
// Environment Variables:
//   - LOG_LEVEL: trace, debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - LOG_CALLER: Include caller file:line (default: false)
type LoggingConfig struct {
	// Level is the minimum level emitted. Default: info.
	Level string `koanf:"level"`

	// Format selects json or console output. Default: json.
	Format string `koanf:"format"`

	// Caller adds the calling file and line to each entry. Default: false.
	Caller bool `koanf:"caller"`
}
