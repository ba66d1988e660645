// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package ingest

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/corelate/internal/models"
	"github.com/tomtom215/corelate/internal/validation"
)

// NATS subject layout for rating events.
//
// Events are published to ratings.<source> (ratings.api, ratings.import)
// so consumers can subscribe per source or to everything at once. The
// stream name has no wildcard; subscribers bind to it explicitly.
const (
	// StreamName is the JetStream stream holding rating events.
	StreamName = "RATINGS"

	// SubjectWildcard matches every rating subject.
	SubjectWildcard = "ratings.>"

	// subjectPrefix is prepended to the event source to form the subject.
	subjectPrefix = "ratings."
)

// SubjectFor returns the NATS subject for a rating event.
// Events without an explicit source publish as ratings.api.
func SubjectFor(event *models.RatingEvent) string {
	source := event.Source
	if source == "" {
		source = models.RatingSourceAPI
	}
	return subjectPrefix + source
}

// Serializer handles rating event encoding for NATS messages.
// Marshal validates before encoding so invalid events never reach the
// stream; Unmarshal is a pure decode and leaves validation to the
// consumer.
type Serializer struct{}

// NewSerializer creates a new serializer.
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Marshal converts an event to JSON bytes.
// Returns an error if the event has no ID or fails field validation.
func (s *Serializer) Marshal(event *models.RatingEvent) ([]byte, error) {
	if event.EventID == uuid.Nil {
		return nil, fmt.Errorf("validate event: event_id required")
	}
	if err := validation.ValidateStruct(event); err != nil {
		return nil, fmt.Errorf("validate event: %w", err)
	}

	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}

	return data, nil
}

// Unmarshal converts JSON bytes to an event.
func (s *Serializer) Unmarshal(data []byte) (*models.RatingEvent, error) {
	var event models.RatingEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return nil, fmt.Errorf("unmarshal event: %w", err)
	}

	return &event, nil
}
