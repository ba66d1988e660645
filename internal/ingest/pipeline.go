// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	natsgo "github.com/nats-io/nats.go"

	"github.com/tomtom215/corelate/internal/config"
	"github.com/tomtom215/corelate/internal/logging"
)

// Pipeline holds the full ingest path and manages its lifecycle:
// embedded server (optional), NATS connection, stream, publisher,
// subscriber, appender, consumer.
//
// A nil *Pipeline is valid and inert; NewPipeline returns one when ingest
// is disabled so callers do not need to branch on configuration.
type Pipeline struct {
	cfg        config.NATSConfig
	natsURL    string
	server     *EmbeddedServer
	natsConn   *natsgo.Conn
	streams    *StreamManager
	publisher  *Publisher
	subscriber *Subscriber
	feedSub    *Subscriber
	appender   *Appender
	consumer   *Consumer

	mu      sync.Mutex
	running bool
}

// NewPipeline builds the ingest pipeline from the application config.
// Returns (nil, nil) when nats.enabled is false. On error, any components
// already created are shut down before returning.
func NewPipeline(cfg config.NATSConfig, store RatingStore) (*Pipeline, error) {
	if !cfg.Enabled {
		logging.Info().Msg("NATS rating ingest disabled")
		return nil, nil
	}

	logging.Info().Msg("Initializing NATS rating ingest")

	p := &Pipeline{cfg: cfg}
	wmLogger := NewWatermillLogger()

	// Embedded server or external URL
	var natsURL string
	if cfg.EmbeddedServer {
		serverCfg := ServerConfigFrom(cfg)
		server, err := NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS server: %w", err)
		}
		p.server = server
		natsURL = server.ClientURL()
		logging.Info().Str("url", natsURL).Msg("Embedded NATS server started")
	} else {
		natsURL = cfg.URL
		logging.Info().Str("url", natsURL).Msg("Using external NATS server")
	}
	p.natsURL = natsURL

	// Connection shared by the stream manager; the Watermill publisher
	// and subscriber dial their own.
	nc, err := natsgo.Connect(natsURL,
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
	)
	if err != nil {
		p.Shutdown(context.Background())
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	p.natsConn = nc

	// Stream
	streamCfg := StreamConfigFrom(cfg)
	streams, err := NewStreamManager(nc, &streamCfg)
	if err != nil {
		p.Shutdown(context.Background())
		return nil, fmt.Errorf("create stream manager: %w", err)
	}
	p.streams = streams

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	stream, err := streams.EnsureStream(ctx)
	if err != nil {
		p.Shutdown(context.Background())
		return nil, fmt.Errorf("ensure stream: %w", err)
	}
	info := stream.CachedInfo()
	logging.Info().
		Str("name", info.Config.Name).
		Strs("subjects", info.Config.Subjects).
		Dur("max_age", info.Config.MaxAge).
		Msg("JetStream rating stream ready")

	// Publisher with circuit breaker
	publisher, err := NewPublisher(PublisherConfigFrom(natsURL), wmLogger)
	if err != nil {
		p.Shutdown(context.Background())
		return nil, fmt.Errorf("create publisher: %w", err)
	}
	publisher.SetCircuitBreaker(NewCircuitBreaker(DefaultCircuitBreakerConfig("nats-publisher")))
	p.publisher = publisher

	// Subscriber
	subCfg := SubscriberConfigFrom(cfg, natsURL)
	subscriber, err := NewSubscriber(&subCfg, wmLogger)
	if err != nil {
		p.Shutdown(context.Background())
		return nil, fmt.Errorf("create subscriber: %w", err)
	}
	p.subscriber = subscriber

	// Appender and consumer
	appender, err := NewAppender(store, AppenderConfigFrom(cfg))
	if err != nil {
		p.Shutdown(context.Background())
		return nil, fmt.Errorf("create appender: %w", err)
	}
	p.appender = appender

	consumer, err := NewConsumer(subscriber, appender, ConsumerConfigFrom(cfg))
	if err != nil {
		p.Shutdown(context.Background())
		return nil, fmt.Errorf("create consumer: %w", err)
	}
	p.consumer = consumer

	p.mu.Lock()
	p.running = true
	p.mu.Unlock()

	logging.Info().Msg("NATS rating ingest initialized")
	return p, nil
}

// Start begins message consumption and batch flushing.
// The appender starts first so batch writes are ready before the consumer
// pulls its first message.
func (p *Pipeline) Start(ctx context.Context) error {
	if p == nil {
		return nil
	}

	if err := p.appender.Start(ctx); err != nil {
		return fmt.Errorf("start appender: %w", err)
	}
	if err := p.consumer.Start(ctx); err != nil {
		return fmt.Errorf("start consumer: %w", err)
	}

	logging.Info().Msg("Rating ingest pipeline started")
	return nil
}

// Publisher returns the publisher for the HTTP write path.
// Returns nil when ingest is disabled.
func (p *Pipeline) Publisher() *Publisher {
	if p == nil {
		return nil
	}
	return p.publisher
}

// FeedSource returns a subscriber dedicated to the live WebSocket feed,
// creating it on first call. It uses its own durable consumer so the
// feed cursor never competes with the ingest consumer for messages.
// Returns (nil, nil) when ingest is disabled.
func (p *Pipeline) FeedSource() (*Subscriber, error) {
	if p == nil {
		return nil, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.feedSub != nil {
		return p.feedSub, nil
	}

	subCfg := SubscriberConfigFrom(p.cfg, p.natsURL)
	subCfg.DurableName += "-feed"
	subCfg.QueueGroup += "-feed"
	subCfg.SubscribersCount = 1

	sub, err := NewSubscriber(&subCfg, NewWatermillLogger())
	if err != nil {
		return nil, fmt.Errorf("create feed subscriber: %w", err)
	}
	p.feedSub = sub
	return sub, nil
}

// IsRunning reports whether the pipeline is active.
func (p *Pipeline) IsRunning() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

// ConsumerStats returns consumer statistics, zero when disabled.
func (p *Pipeline) ConsumerStats() ConsumerStats {
	if p == nil || p.consumer == nil {
		return ConsumerStats{}
	}
	return p.consumer.Stats()
}

// AppenderStats returns appender statistics, zero when disabled.
func (p *Pipeline) AppenderStats() AppenderStats {
	if p == nil || p.appender == nil {
		return AppenderStats{}
	}
	return p.appender.Stats()
}

// Shutdown stops all components in dependency order:
//
//  1. Consumer (stop pulling messages)
//  2. Appender (flush remaining buffer)
//  3. Subscribers and publisher
//  4. NATS connection
//  5. Embedded server last
//
// Safe to call on a partially constructed or already stopped pipeline.
func (p *Pipeline) Shutdown(ctx context.Context) {
	if p == nil {
		return
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	logging.Info().Msg("Shutting down rating ingest pipeline")

	if p.consumer != nil && p.consumer.IsRunning() {
		p.consumer.Stop()
	}
	if p.appender != nil {
		if err := p.appender.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing rating appender")
		}
	}
	if p.subscriber != nil {
		if err := p.subscriber.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing subscriber")
		}
	}
	if p.feedSub != nil {
		if err := p.feedSub.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing feed subscriber")
		}
	}
	if p.publisher != nil {
		if err := p.publisher.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing publisher")
		}
	}
	if p.natsConn != nil {
		p.natsConn.Close()
	}
	if p.server != nil {
		if err := p.server.Shutdown(ctx); err != nil {
			logging.Error().Err(err).Msg("Error shutting down NATS server")
		}
	}

	logging.Info().Msg("Rating ingest pipeline stopped")
}
