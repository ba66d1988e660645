// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package websocket

import (
	"context"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
	"github.com/tomtom215/corelate/internal/models"
)

// FeedSource supplies rating messages for the live feed.
// *ingest.Subscriber satisfies it; the pipeline hands the feed its own
// durable consumer so the feed cursor never competes with ingest.
type FeedSource interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
	Close() error
}

// RatingFeed bridges the NATS rating stream to WebSocket broadcasts so
// dashboards can watch ratings arrive live. The feed is best-effort:
// every message is acked immediately, because a slow dashboard must
// never cause stream redelivery.
type RatingFeed struct {
	hub    *Hub
	source FeedSource
	topic  string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRatingFeed creates a feed forwarding messages from topic to the hub.
func NewRatingFeed(hub *Hub, source FeedSource, topic string) *RatingFeed {
	return &RatingFeed{
		hub:    hub,
		source: source,
		topic:  topic,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}
}

// Start subscribes to the rating stream and begins forwarding.
// Calling Start on a running feed is a no-op.
func (f *RatingFeed) Start(ctx context.Context) error {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return nil
	}
	f.running = true
	f.mu.Unlock()

	messages, err := f.source.Subscribe(ctx, f.topic)
	if err != nil {
		f.mu.Lock()
		f.running = false
		f.mu.Unlock()
		return err
	}

	go f.processMessages(ctx, messages)

	logging.Info().Str("topic", f.topic).Msg("rating feed started")
	return nil
}

// Stop stops the feed. The source is not closed; its owner closes it.
func (f *RatingFeed) Stop() {
	f.mu.Lock()
	if !f.running {
		f.mu.Unlock()
		return
	}
	f.running = false
	f.mu.Unlock()

	close(f.stopCh)
	<-f.doneCh
	logging.Info().Msg("rating feed stopped")
}

func (f *RatingFeed) processMessages(ctx context.Context, messages <-chan *message.Message) {
	defer close(f.doneCh)

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		case msg, ok := <-messages:
			if !ok {
				return
			}
			f.handleMessage(msg)
		}
	}
}

// handleMessage decodes one rating event and broadcasts it. Acks
// unconditionally; the feed never asks for redelivery.
func (f *RatingFeed) handleMessage(msg *message.Message) {
	defer msg.Ack()

	var event models.RatingEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		metrics.WSErrors.WithLabelValues("feed_decode").Inc()
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("failed to unmarshal rating event for feed")
		return
	}

	f.hub.BroadcastRatingReceived(&event)
}
