// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package api

import (
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/models"
)

// maxRatingBody bounds the request body for rating submissions.
const maxRatingBody = 1 << 20 // 1 MB

// SubmitRating accepts a single rating event.
//
// Method: POST
// Path: /api/v1/ratings
//
// Body: models.RatingEvent as JSON. EventID, RatedAt, and Source are
// optional; missing values are filled server-side. Events with an
// explicit EventID are idempotent: resubmitting the same id is a
// duplicate, not a second rating.
//
// When NATS ingest is running the event is published to the rating
// stream and consumed asynchronously (Queued: true in the response).
// Otherwise it is written directly to the database (Queued: false).
// Publish failures fall back to the direct write, so a degraded broker
// does not lose accepted events.
func (h *Handler) SubmitRating(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRatingBody)

	var event models.RatingEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err)
		return
	}

	// Fill server-side defaults before validation
	if event.EventID == uuid.Nil {
		event.EventID = uuid.New()
	}
	if event.RatedAt.IsZero() {
		event.RatedAt = time.Now().UTC()
	}
	if event.Source == "" {
		event.Source = models.RatingSourceAPI
	}

	if apiErr := validateRequest(&event); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	queued := false
	if h.pipeline.IsRunning() {
		if pub := h.pipeline.Publisher(); pub != nil {
			if err := pub.PublishEvent(r.Context(), &event); err != nil {
				logging.Warn().Err(err).Str("event_id", event.EventID.String()).Msg("Publish failed, writing rating directly")
			} else {
				queued = true
			}
		}
	}

	if !queued {
		if h.store == nil {
			respondError(w, http.StatusServiceUnavailable, "SERVICE_ERROR", "Database not available", nil)
			return
		}
		inserted, duplicates, err := h.store.InsertRatingEventsBatch(r.Context(), []*models.RatingEvent{&event})
		if err != nil {
			respondError(w, http.StatusInternalServerError, "INGEST_ERROR", "Failed to store rating event", err)
			return
		}
		logging.Debug().
			Str("event_id", event.EventID.String()).
			Int("inserted", inserted).
			Int("duplicates", duplicates).
			Msg("Rating written directly")

		// The NATS feed broadcasts queued events on delivery; direct
		// writes broadcast here so dashboards see both modes.
		if h.wsHub != nil {
			h.wsHub.BroadcastRatingReceived(&event)
		}
	}

	respondJSON(w, http.StatusAccepted, &models.APIResponse{
		Status: "success",
		Data: models.RatingAccepted{
			EventID: event.EventID,
			Queued:  queued,
		},
		Metadata: models.Metadata{
			Timestamp: time.Now(),
		},
	})
}
