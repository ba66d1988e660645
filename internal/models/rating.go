// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package models

import (
	"time"

	"github.com/google/uuid"
)

// RatingEvent represents a single rating observation flowing through the
// ingest pipeline.
//
// Events arrive either through POST /api/v1/ratings or from the NATS
// JetStream rating stream, are validated, and end up as rows in the
// ratings table. The similarity engine later reads the table as a
// (user, item, rating) log.
//
// Key fields:
//   - EventID: Unique UUID per event. The ratings table uses it as the
//     primary key, which makes inserts idempotent: redelivered events
//     (JetStream at-least-once) collapse into duplicates instead of
//     double-counting.
//   - User/Item: Opaque identifiers. Whether they were numeric or textual
//     in the source system does not matter; both are stored as text.
//   - Rating: Any finite float64. A later event for the same (user, item)
//     supersedes earlier ones when the compute pipeline reads the log.
//   - RatedAt: When the user rated, not when the event arrived. Used to
//     order re-ratings.
//   - Source: Where the event entered the system ("api", "nats", "import").
//
// JSON field names match the wire format used by both the HTTP API and
// the NATS payload.
type RatingEvent struct {
	EventID uuid.UUID `json:"event_id"`
	User    string    `json:"user" validate:"required,max=256"`
	Item    string    `json:"item" validate:"required,max=256"`
	Rating  float64   `json:"rating" validate:"finite"`
	RatedAt time.Time `json:"rated_at"`
	Source  string    `json:"source,omitempty" validate:"omitempty,max=64"`
}

// Rating event sources.
const (
	RatingSourceAPI    = "api"
	RatingSourceNATS   = "nats"
	RatingSourceImport = "import"
)

// RatingAccepted is the response body for an accepted rating event.
// Queued reports whether the event went through the NATS stream (true)
// or was written directly to the database (false).
type RatingAccepted struct {
	EventID uuid.UUID `json:"event_id"`
	Queued  bool      `json:"queued"`
}
