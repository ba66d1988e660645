// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package services

import (
	"context"
	"fmt"
)

// FeedRunner matches *websocket.RatingFeed's lifecycle methods.
type FeedRunner interface {
	Start(ctx context.Context) error
	Stop()
}

// FeedFactory builds a rating feed ready to start. The pipeline's feed
// subscriber is created lazily here rather than at wiring time, so a
// NATS outage at boot surfaces as a supervised restart instead of a
// failed startup.
type FeedFactory func() (FeedRunner, error)

// RatingFeedService runs the live rating feed under supervision.
//
// A feed instance is single-use: Stop closes its internal channels, so a
// stopped feed cannot be started again. The service therefore builds a
// fresh feed from the factory on every Serve, which makes suture restarts
// behave correctly.
//
// Example usage:
//
//	svc := services.NewRatingFeedService(func() (services.FeedRunner, error) {
//		src, err := pipeline.FeedSource()
//		if err != nil {
//			return nil, err
//		}
//		return websocket.NewRatingFeed(hub, src, ingest.SubjectWildcard), nil
//	})
//	tree.AddMessagingService(svc)
type RatingFeedService struct {
	newFeed FeedFactory
	name    string
}

// NewRatingFeedService creates a supervised rating feed service.
func NewRatingFeedService(newFeed FeedFactory) *RatingFeedService {
	return &RatingFeedService{
		newFeed: newFeed,
		name:    "rating-feed",
	}
}

// Serve implements suture.Service.
//
// Builds a feed, starts it, and blocks until the context is canceled.
// Factory and start errors are returned so suture restarts the service
// with backoff.
func (s *RatingFeedService) Serve(ctx context.Context) error {
	feed, err := s.newFeed()
	if err != nil {
		return fmt.Errorf("rating feed setup failed: %w", err)
	}

	if err := feed.Start(ctx); err != nil {
		return fmt.Errorf("rating feed start failed: %w", err)
	}

	<-ctx.Done()

	feed.Stop()
	return ctx.Err()
}

// String implements fmt.Stringer for logging.
// Suture uses this to identify the service in log messages.
func (s *RatingFeedService) String() string {
	return s.name
}
