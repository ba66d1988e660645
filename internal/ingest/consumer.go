// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package ingest

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/tomtom215/corelate/internal/cache"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
	"github.com/tomtom215/corelate/internal/models"
	"github.com/tomtom215/corelate/internal/validation"
)

// MessageSource defines the interface for receiving messages.
// *Subscriber satisfies it; tests feed messages through channels.
type MessageSource interface {
	// Subscribe subscribes to a topic and returns a channel of messages.
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	// Close closes the message source.
	Close() error
}

// ConsumerStats holds runtime statistics for monitoring.
type ConsumerStats struct {
	MessagesReceived  int64     // Total messages received
	MessagesProcessed int64     // Successfully processed messages
	ParseErrors       int64     // Deserialize or validation failures
	DuplicatesSkipped int64     // Messages skipped by the dedup cache
	LastMessageTime   time.Time // Time of last received message
}

// Consumer drains rating events from the stream into the Appender.
// It deserializes, validates, and deduplicates each message, then acks or
// nacks depending on the outcome:
//
//   - Malformed or invalid payloads are acked and counted as rejected;
//     redelivering them can never succeed.
//   - Append failures are nacked so JetStream redelivers (up to the
//     subscriber's MaxDeliver).
//
// Deduplication is a Bloom-fronted TTL'd LRU keyed by event ID: unique
// events short-circuit at the Bloom filter, and only potential duplicates
// touch the LRU, which always gives the final exact answer. It is the
// middle layer of duplicate suppression, between the stream's duplicate
// window and the ratings table primary key.
type Consumer struct {
	source   MessageSource
	appender *Appender
	config   ConsumerConfig

	serializer *Serializer
	dedupCache *cache.BloomLRU

	// State
	running atomic.Bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	// Metrics
	messagesReceived  atomic.Int64
	messagesProcessed atomic.Int64
	parseErrors       atomic.Int64
	duplicatesSkipped atomic.Int64
	lastMessageTime   atomic.Value // stores time.Time
}

// NewConsumer creates a consumer reading from source into appender.
// The appender should be started separately to enable batch flushing.
func NewConsumer(source MessageSource, appender *Appender, cfg ConsumerConfig) (*Consumer, error) {
	if source == nil {
		return nil, fmt.Errorf("message source required")
	}
	if appender == nil {
		return nil, fmt.Errorf("appender required")
	}
	if cfg.Topic == "" {
		cfg.Topic = SubjectWildcard
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 10 * time.Minute
	}
	if cfg.DedupSize <= 0 {
		cfg.DedupSize = 65536
	}

	c := &Consumer{
		source:     source,
		appender:   appender,
		config:     cfg,
		serializer: NewSerializer(),
		dedupCache: cache.NewBloomLRU(cfg.DedupSize, cfg.DedupTTL, 0.01),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	c.lastMessageTime.Store(time.Time{})

	return c, nil
}

// Start begins consuming messages from the source.
// Returns immediately; consumption happens in a goroutine.
func (c *Consumer) Start(ctx context.Context) error {
	if c.running.Swap(true) {
		return nil // Already running
	}

	messages, err := c.source.Subscribe(ctx, c.config.Topic)
	if err != nil {
		c.running.Store(false)
		return fmt.Errorf("subscribe to %s: %w", c.config.Topic, err)
	}

	go c.consumeLoop(ctx, messages)
	go c.dedupCleanupLoop(ctx)

	logging.Info().
		Str("topic", c.config.Topic).
		Dur("dedup_ttl", c.config.DedupTTL).
		Int("dedup_size", c.config.DedupSize).
		Msg("Rating consumer started")
	return nil
}

// Stop gracefully stops the consumer.
func (c *Consumer) Stop() {
	if !c.running.Swap(false) {
		return // Already stopped
	}

	close(c.stopCh)
	<-c.doneCh

	logging.Info().Msg("Rating consumer stopped")
}

// IsRunning returns whether the consumer is currently running.
func (c *Consumer) IsRunning() bool {
	return c.running.Load()
}

// Stats returns current runtime statistics.
func (c *Consumer) Stats() ConsumerStats {
	var lastTime time.Time
	if t, ok := c.lastMessageTime.Load().(time.Time); ok {
		lastTime = t
	}
	return ConsumerStats{
		MessagesReceived:  c.messagesReceived.Load(),
		MessagesProcessed: c.messagesProcessed.Load(),
		ParseErrors:       c.parseErrors.Load(),
		DuplicatesSkipped: c.duplicatesSkipped.Load(),
		LastMessageTime:   lastTime,
	}
}

// consumeLoop processes messages from the subscription until shutdown.
// On shutdown, buffered messages are drained so nothing received before
// the signal is lost.
func (c *Consumer) consumeLoop(ctx context.Context, messages <-chan *message.Message) {
	defer func() {
		c.running.Store(false)
		close(c.doneCh)
	}()

	for {
		select {
		case <-ctx.Done():
			c.drainMessages(messages)
			return
		case <-c.stopCh:
			c.drainMessages(messages)
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			c.processMessage(ctx, msg)
		}
	}
}

// drainMessages processes messages already buffered in the channel before
// shutdown. Bounded by a short timeout so a still-producing channel cannot
// block termination.
func (c *Consumer) drainMessages(messages <-chan *message.Message) {
	drainTimeout := time.After(100 * time.Millisecond)
	drained := 0

	for {
		select {
		case <-drainTimeout:
			c.logDrained(drained)
			return
		case msg, ok := <-messages:
			if !ok {
				c.logDrained(drained)
				return
			}
			// The original context is canceled by now
			c.processMessage(context.Background(), msg)
			drained++
		default:
			c.logDrained(drained)
			return
		}
	}
}

func (c *Consumer) logDrained(count int) {
	if count > 0 {
		logging.Info().Int("count", count).Msg("Rating consumer drained messages during shutdown")
	}
}

// processMessage handles a single message.
func (c *Consumer) processMessage(ctx context.Context, msg *message.Message) {
	c.messagesReceived.Add(1)
	c.lastMessageTime.Store(time.Now())
	metrics.IngestEventsConsumed.Inc()

	event, err := c.serializer.Unmarshal(msg.Payload)
	if err != nil {
		c.parseErrors.Add(1)
		metrics.IngestEventsRejected.Inc()
		logging.Warn().
			Str("message_uuid", msg.UUID).
			Err(err).
			Msg("Failed to parse rating event")
		msg.Ack() // Ack to prevent redelivery of malformed messages
		return
	}

	if err := c.validateEvent(event); err != nil {
		c.parseErrors.Add(1)
		metrics.IngestEventsRejected.Inc()
		logging.Warn().
			Str("message_uuid", msg.UUID).
			Err(err).
			Msg("Rejected invalid rating event")
		msg.Ack() // Invalid forever; redelivery cannot fix it
		return
	}

	if c.dedupCache.IsDuplicate(event.EventID.String()) {
		c.duplicatesSkipped.Add(1)
		metrics.IngestEventsDeduplicated.Inc()
		msg.Ack()
		return
	}

	if err := c.appender.Append(ctx, event); err != nil {
		logging.Warn().
			Str("event_id", event.EventID.String()).
			Err(err).
			Msg("Failed to append rating event")
		msg.Nack() // Retryable; JetStream redelivers
		return
	}

	c.messagesProcessed.Add(1)
	metrics.IngestEventsProcessed.Inc()
	msg.Ack()
}

// validateEvent applies the same checks the serializer applies on publish.
// Events from external publishers may never have passed through Marshal.
func (c *Consumer) validateEvent(event *models.RatingEvent) error {
	if event.EventID == uuid.Nil {
		return fmt.Errorf("event_id required")
	}
	if verr := validation.ValidateStruct(event); verr != nil {
		return verr
	}
	return nil
}

// dedupCleanupLoop periodically evicts expired dedup entries. LRU eviction
// handles capacity; this clears out entries that aged past the TTL.
func (c *Consumer) dedupCleanupLoop(ctx context.Context) {
	ticker := time.NewTicker(c.config.DedupTTL / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.dedupCache.CleanupExpired()
		}
	}
}
