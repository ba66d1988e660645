// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateSimilarity(); err != nil {
		return err
	}

	if err := c.validateCompute(); err != nil {
		return err
	}

	if err := c.validateDatabase(); err != nil {
		return err
	}

	if err := c.validateNATS(); err != nil {
		return err
	}

	if err := c.validateIndex(); err != nil {
		return err
	}

	if err := c.validateServer(); err != nil {
		return err
	}

	if err := c.validateAPI(); err != nil {
		return err
	}

	return c.validateLogging()
}

// validateSimilarity delegates to the similarity package, which owns the
// semantics of its thresholds and priors.
func (c *Config) validateSimilarity() error {
	if err := c.Similarity.Validate(); err != nil {
		return fmt.Errorf("similarity configuration: %w", err)
	}
	return nil
}

// Compute bounds constants
const (
	computeMinInterval = time.Minute
)

// validateCompute validates the recompute scheduler configuration
func (c *Config) validateCompute() error {
	if c.Compute.Interval != 0 && c.Compute.Interval < computeMinInterval {
		return fmt.Errorf("COMPUTE_INTERVAL must be at least 1m, or 0 to disable periodic runs")
	}
	if c.Compute.Timeout < 0 {
		return fmt.Errorf("COMPUTE_TIMEOUT must be non-negative, 0 disables the deadline")
	}
	return nil
}

// Database bounds constants
const (
	dbMaxBatchSize = 100000
)

// validateDatabase validates database configuration
func (c *Config) validateDatabase() error {
	if err := c.validateDatabasePath(); err != nil {
		return err
	}
	if err := c.validateDatabaseThreads(); err != nil {
		return err
	}
	if err := c.validateDatabaseBatchSize(); err != nil {
		return err
	}
	return c.validateDatabaseRetainRuns()
}

// validateDatabasePath validates the database file path
func (c *Config) validateDatabasePath() error {
	if c.Database.Path == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	return nil
}

// validateDatabaseThreads validates the database thread count
func (c *Config) validateDatabaseThreads() error {
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be non-negative, 0 uses the CPU count")
	}
	return nil
}

// validateDatabaseBatchSize validates the insert batch size
func (c *Config) validateDatabaseBatchSize() error {
	if c.Database.BatchSize < 1 || c.Database.BatchSize > dbMaxBatchSize {
		return fmt.Errorf("DB_BATCH_SIZE must be between 1 and 100000")
	}
	return nil
}

// validateDatabaseRetainRuns validates the run retention count
func (c *Config) validateDatabaseRetainRuns() error {
	if c.Database.RetainRuns < 0 {
		return fmt.Errorf("DB_RETAIN_RUNS must be non-negative, 0 keeps all runs")
	}
	return nil
}

// NATS limit constants
const (
	natsMinMemory      = 64 * 1024 * 1024  // 64MB
	natsMinStore       = 100 * 1024 * 1024 // 100MB
	natsMaxRetention   = 365
	natsMinRetention   = 1
	natsMaxBatchSize   = 10000
	natsMaxSubscribers = 32
	natsMinFlush       = time.Second
	natsMaxFlush       = time.Hour
)

// validateNATS validates NATS configuration (only if enabled)
func (c *Config) validateNATS() error {
	if !c.NATS.Enabled {
		return nil
	}

	if err := validateNATSURL(c.NATS.URL); err != nil {
		return fmt.Errorf("NATS_URL is invalid: %w", err)
	}

	return c.validateNATSLimits()
}

// validateNATSLimits validates NATS storage and processing limits
func (c *Config) validateNATSLimits() error {
	validators := []func() error{
		c.validateNATSMemory,
		c.validateNATSStore,
		c.validateNATSRetention,
		c.validateNATSBatchSize,
		c.validateNATSFlushInterval,
		c.validateNATSSubscribers,
		c.validateNATSDedup,
	}

	for _, validator := range validators {
		if err := validator(); err != nil {
			return err
		}
	}
	return nil
}

// validateNATSMemory validates NATS max memory setting
func (c *Config) validateNATSMemory() error {
	if c.NATS.MaxMemory < natsMinMemory {
		return fmt.Errorf("NATS_MAX_MEMORY must be at least 64MB (67108864 bytes)")
	}
	return nil
}

// validateNATSStore validates NATS max store setting
func (c *Config) validateNATSStore() error {
	if c.NATS.MaxStore < natsMinStore {
		return fmt.Errorf("NATS_MAX_STORE must be at least 100MB (104857600 bytes)")
	}
	return nil
}

// validateNATSRetention validates NATS stream retention days
func (c *Config) validateNATSRetention() error {
	if c.NATS.StreamRetentionDays < natsMinRetention || c.NATS.StreamRetentionDays > natsMaxRetention {
		return fmt.Errorf("NATS_RETENTION_DAYS must be between 1 and 365")
	}
	return nil
}

// validateNATSBatchSize validates NATS batch size setting
func (c *Config) validateNATSBatchSize() error {
	if c.NATS.BatchSize < 1 || c.NATS.BatchSize > natsMaxBatchSize {
		return fmt.Errorf("NATS_BATCH_SIZE must be between 1 and 10000")
	}
	return nil
}

// validateNATSFlushInterval validates NATS flush interval setting
func (c *Config) validateNATSFlushInterval() error {
	if c.NATS.FlushInterval < natsMinFlush || c.NATS.FlushInterval > natsMaxFlush {
		return fmt.Errorf("NATS_FLUSH_INTERVAL must be between 1s and 1h")
	}
	return nil
}

// validateNATSSubscribers validates NATS subscribers count
func (c *Config) validateNATSSubscribers() error {
	if c.NATS.SubscribersCount < 1 || c.NATS.SubscribersCount > natsMaxSubscribers {
		return fmt.Errorf("NATS_SUBSCRIBERS must be between 1 and 32")
	}
	return nil
}

// validateNATSDedup validates the deduplication cache settings
func (c *Config) validateNATSDedup() error {
	if c.NATS.DedupTTL < 0 {
		return fmt.Errorf("NATS_DEDUP_TTL must be non-negative, 0 disables expiry")
	}
	if c.NATS.DedupSize < 1 {
		return fmt.Errorf("NATS_DEDUP_SIZE must be at least 1")
	}
	return nil
}

// validateNATSURL validates that the NATS URL is properly formatted
// Supports: nats://, tls://, and ws:// schemes with IP addresses/hostnames and optional ports
func validateNATSURL(rawURL string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("failed to parse URL: %w", err)
	}

	validSchemes := map[string]bool{"nats": true, "tls": true, "ws": true, "wss": true}
	if !validSchemes[parsedURL.Scheme] {
		return fmt.Errorf("scheme must be nats, tls, ws, or wss, got: %s", parsedURL.Scheme)
	}

	if parsedURL.Host == "" {
		return fmt.Errorf("host is required (e.g., localhost:4222, 192.168.1.100:4222)")
	}

	return nil
}

// Index bounds constants
const (
	indexMaxTopK = 10000
)

// validMeasures defines the measures the neighbor index can rank by
var validMeasures = map[string]bool{
	"correlation": true,
	"regularized": true,
	"cosine":      true,
	"jaccard":     true,
}

// validateIndex validates neighbor index configuration
func (c *Config) validateIndex() error {
	if err := c.validateIndexPath(); err != nil {
		return err
	}
	if err := c.validateIndexTopK(); err != nil {
		return err
	}
	return c.validateIndexMeasure()
}

// validateIndexPath validates the index directory
func (c *Config) validateIndexPath() error {
	if c.Index.Path == "" && !c.Index.InMemory {
		return fmt.Errorf("INDEX_PATH is required unless INDEX_IN_MEMORY=true")
	}
	return nil
}

// validateIndexTopK validates the per-item neighbor count
func (c *Config) validateIndexTopK() error {
	if c.Index.TopK < 1 || c.Index.TopK > indexMaxTopK {
		return fmt.Errorf("INDEX_TOP_K must be between 1 and 10000")
	}
	return nil
}

// validateIndexMeasure validates the ranking measure
func (c *Config) validateIndexMeasure() error {
	if !validMeasures[c.Index.Measure] {
		return fmt.Errorf("INDEX_MEASURE must be one of: correlation, regularized, cosine, jaccard")
	}
	return nil
}

// Server bounds constants
const (
	serverMinTimeout = time.Second
	serverMaxTimeout = 10 * time.Minute
)

// validateServer validates server configuration
func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if c.Server.Timeout < serverMinTimeout || c.Server.Timeout > serverMaxTimeout {
		return fmt.Errorf("HTTP_TIMEOUT must be between 1s and 10m")
	}
	return nil
}

// Rate limit constants
const (
	minRateLimitRequests = 1           // Minimum 1 request allowed
	maxRateLimitRequests = 100000      // Maximum 100K requests per window
	minRateLimitWindow   = time.Second // Minimum 1 second window
	maxRateLimitWindow   = time.Hour   // Maximum 1 hour window
)

// validateAPI validates API configuration
func (c *Config) validateAPI() error {
	if err := c.validatePageSizes(); err != nil {
		return err
	}
	return c.validateRateLimits()
}

// validatePageSizes validates pagination bounds
func (c *Config) validatePageSizes() error {
	if c.API.MaxPageSize < 1 || c.API.MaxPageSize > 1000 {
		return fmt.Errorf("API_MAX_PAGE_SIZE must be between 1 and 1000")
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("API_DEFAULT_PAGE_SIZE must be between 1 and API_MAX_PAGE_SIZE")
	}
	return nil
}

// validateRateLimits validates rate limiting configuration bounds.
// Ensures rate limit values are within sensible ranges to prevent
// misconfiguration that could lead to DoS or ineffective protection.
func (c *Config) validateRateLimits() error {
	if c.API.RateLimitDisabled {
		return nil
	}

	if err := c.validateRateLimitRequests(); err != nil {
		return err
	}
	return c.validateRateLimitWindow()
}

// validateRateLimitRequests validates the rate limit requests value
func (c *Config) validateRateLimitRequests() error {
	if c.API.RateLimitReqs < minRateLimitRequests || c.API.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	return nil
}

// validateRateLimitWindow validates the rate limit window value
func (c *Config) validateRateLimitWindow() error {
	if c.API.RateLimitWindow < minRateLimitWindow || c.API.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

// IsProduction returns true if the application is running in production mode.
// Production mode is determined by the ENVIRONMENT environment variable.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment returns true if the application is running in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// validLogLevels defines the allowed log levels
var validLogLevels = map[string]bool{
	"trace": true,
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validLogFormats defines the allowed log formats
var validLogFormats = map[string]bool{
	"json":    true,
	"console": true,
}

// validateLogging validates logging configuration
func (c *Config) validateLogging() error {
	if err := c.validateLogLevel(); err != nil {
		return err
	}
	return c.validateLogFormat()
}

// validateLogLevel validates the log level configuration
func (c *Config) validateLogLevel() error {
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	return nil
}

// validateLogFormat validates the log format configuration
func (c *Config) validateLogFormat() error {
	if c.Logging.Format == "" {
		return nil
	}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
