// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package ingest

import (
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/corelate/internal/config"
)

// Component configs are derived from the application-level config.NATSConfig
// by the *From helpers below. Fields the application config does not carry
// (reconnect policy, ack windows, breaker thresholds) keep production
// defaults here.

// ServerConfig holds embedded NATS server settings.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
}

// ServerConfigFrom derives embedded server settings from the application
// config. Host and port come from the configured URL so clients and the
// embedded server agree on the address; unparseable URLs fall back to
// 127.0.0.1:4222.
func ServerConfigFrom(cfg config.NATSConfig) ServerConfig {
	sc := ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          cfg.StoreDir,
		JetStreamMaxMem:   cfg.MaxMemory,
		JetStreamMaxStore: cfg.MaxStore,
	}

	if u, err := url.Parse(cfg.URL); err == nil && u.Hostname() != "" {
		sc.Host = u.Hostname()
		if port, err := strconv.Atoi(u.Port()); err == nil && port > 0 {
			sc.Port = port
		}
	}

	return sc
}

// StreamConfig defines the rating event stream settings.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	MaxBytes        int64
	MaxMsgs         int64
	DuplicateWindow time.Duration
	Replicas        int
}

// StreamConfigFrom derives stream settings from the application config.
func StreamConfigFrom(cfg config.NATSConfig) StreamConfig {
	maxAge := time.Duration(cfg.StreamRetentionDays) * 24 * time.Hour
	if maxAge <= 0 {
		maxAge = 7 * 24 * time.Hour
	}

	return StreamConfig{
		Name:            StreamName,
		Subjects:        []string{SubjectWildcard},
		MaxAge:          maxAge,
		MaxBytes:        cfg.MaxStore,
		MaxMsgs:         -1,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// PublisherConfig holds publisher settings.
type PublisherConfig struct {
	URL              string
	MaxReconnects    int
	ReconnectWait    time.Duration
	ReconnectBuffer  int
	EnableTrackMsgID bool //nolint:revive // ID is correct per Go conventions
}

// PublisherConfigFrom derives publisher settings for the given server URL.
// The URL is passed explicitly because an embedded server assigns its
// client URL at startup.
func PublisherConfigFrom(serverURL string) PublisherConfig {
	return PublisherConfig{
		URL:              serverURL,
		MaxReconnects:    -1, // Unlimited
		ReconnectWait:    2 * time.Second,
		ReconnectBuffer:  8 * 1024 * 1024, // 8MB
		EnableTrackMsgID: true,
	}
}

// SubscriberConfig holds durable subscriber settings.
type SubscriberConfig struct {
	URL              string
	DurableName      string
	QueueGroup       string
	SubscribersCount int
	AckWaitTimeout   time.Duration
	MaxDeliver       int
	MaxAckPending    int
	CloseTimeout     time.Duration
	MaxReconnects    int
	ReconnectWait    time.Duration

	// StreamName is the JetStream stream to bind to. Binding is required
	// for wildcard topics (ratings.>) because stream names cannot contain
	// wildcards, so auto-provisioning from the topic name would fail.
	StreamName string
}

// SubscriberConfigFrom derives subscriber settings from the application
// config and the resolved server URL.
func SubscriberConfigFrom(cfg config.NATSConfig, serverURL string) SubscriberConfig {
	subscribers := cfg.SubscribersCount
	if subscribers <= 0 {
		subscribers = 1
	}

	return SubscriberConfig{
		URL:              serverURL,
		DurableName:      cfg.DurableName,
		QueueGroup:       cfg.QueueGroup,
		SubscribersCount: subscribers,
		AckWaitTimeout:   30 * time.Second,
		MaxDeliver:       5,    // Max redelivery attempts
		MaxAckPending:    1000, // Flow control
		CloseTimeout:     30 * time.Second,
		MaxReconnects:    -1,
		ReconnectWait:    2 * time.Second,
		StreamName:       StreamName,
	}
}

// AppenderConfig holds batch appender settings.
type AppenderConfig struct {
	BatchSize     int
	FlushInterval time.Duration

	// FlushesPerSecond caps batch-triggered flushes. Interval and manual
	// flushes always run; the cap only keeps event bursts from turning
	// into a flush storm against the database.
	FlushesPerSecond float64
	FlushBurst       int
}

// AppenderConfigFrom derives appender settings from the application config.
func AppenderConfigFrom(cfg config.NATSConfig) AppenderConfig {
	ac := AppenderConfig{
		BatchSize:        cfg.BatchSize,
		FlushInterval:    cfg.FlushInterval,
		FlushesPerSecond: 4,
		FlushBurst:       2,
	}
	if ac.BatchSize <= 0 {
		ac.BatchSize = 1000
	}
	if ac.FlushInterval <= 0 {
		ac.FlushInterval = 5 * time.Second
	}
	return ac
}

// ConsumerConfig holds consumer settings.
type ConsumerConfig struct {
	// Topic is the subject pattern to consume (default: ratings.>).
	Topic string

	// DedupTTL is how long event IDs are remembered for duplicate
	// suppression.
	DedupTTL time.Duration

	// DedupSize is the maximum number of event IDs held in the cache.
	DedupSize int
}

// ConsumerConfigFrom derives consumer settings from the application config.
func ConsumerConfigFrom(cfg config.NATSConfig) ConsumerConfig {
	cc := ConsumerConfig{
		Topic:     SubjectWildcard,
		DedupTTL:  cfg.DedupTTL,
		DedupSize: cfg.DedupSize,
	}
	if cc.DedupTTL <= 0 {
		cc.DedupTTL = 10 * time.Minute
	}
	if cc.DedupSize <= 0 {
		cc.DedupSize = 65536
	}
	return cc
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          10 * time.Second,
		FailureThreshold: 5,
	}
}
