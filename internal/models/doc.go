// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

/*
Package models defines data structures shared across the Corelate application.

This package contains the data models that cross package boundaries: the rating
event flowing through the ingest pipeline, the run record tracking similarity
computations, and the API request/response structures. It exists so that
internal/api, internal/ingest, and internal/database can share types without
importing each other.

Key Components:

  - RatingEvent: A single rating observation (event_id, user, item, rating)
  - Run: One execution of the similarity pipeline with its config snapshot
  - APIResponse / APIError / Metadata: Standardized HTTP response wrapper
  - NeighborsResponse / PairResponse: Similarity query payloads
  - PaginationInfo: Offset-based pagination metadata

Model Categories:

1. Ingest Models:
  - RatingEvent: Validated on entry, stored in the ratings table
  - RatingAccepted: Response body for an accepted event

2. Run Models:
  - Run: Status, config snapshot, pipeline stats, timing
  - RunsResponse: Paginated run listing

3. API Response Models:
  - APIResponse: Standard response wrapper
  - APIError: Structured error details
  - Metadata: Timestamp, query time, index-hit flag

Usage Example - Rating Event:

	import "github.com/tomtom215/corelate/internal/models"

	event := &models.RatingEvent{
	    EventID: uuid.New(),
	    User:    "alice",
	    Item:    "inception",
	    Rating:  4.5,
	    RatedAt: time.Now().UTC(),
	    Source:  models.RatingSourceAPI,
	}

	if verr := validation.ValidateStruct(event); verr != nil {
	    // reject
	}

Usage Example - API Response:

	response := models.APIResponse{
	    Status: "success",
	    Data: models.NeighborsResponse{
	        Item:      "inception",
	        Measure:   "regularized",
	        RunID:     runID,
	        Neighbors: records,
	    },
	    Metadata: models.Metadata{
	        Timestamp:   time.Now().UTC(),
	        QueryTimeMS: 3,
	    },
	}

	json.NewEncoder(w).Encode(response)

Thread Safety:

All models are plain data structures with no internal state; they are safe
for concurrent reads and should be treated as immutable after creation.

JSON Marshaling:

All models carry json struct tags matching the HTTP and NATS wire formats.
Similarity measure values may be NaN or +/-Inf; encoders that cannot
represent those (encoding/json and goccy/go-json both reject them) are
handled at the serialization boundary, not by the models.

See Also:

  - internal/similarity: Rating, Record, and RunStats value types
  - internal/database: Persistence for these models
  - internal/api: HTTP handlers returning these models
*/
package models
