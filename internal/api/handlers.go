// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package api

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/tomtom215/corelate/internal/cache"
	"github.com/tomtom215/corelate/internal/config"
	"github.com/tomtom215/corelate/internal/index"
	"github.com/tomtom215/corelate/internal/ingest"
	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/models"
	"github.com/tomtom215/corelate/internal/similarity"
	ws "github.com/tomtom215/corelate/internal/websocket"
)

// version is reported by the health endpoint.
const version = "1.0.0"

// Store is the database surface the API reads and writes. *database.DB
// implements it; tests substitute a fake.
type Store interface {
	Ping(ctx context.Context) error
	LatestCompletedRun(ctx context.Context) (*models.Run, error)
	GetRun(ctx context.Context, id uuid.UUID) (*models.Run, error)
	ListRuns(ctx context.Context, limit, offset int) ([]models.Run, bool, error)
	CountRuns(ctx context.Context) (int64, error)
	NeighborRecords(ctx context.Context, runID uuid.UUID, item, measure string, limit int) ([]similarity.Record, error)
	PairRecord(ctx context.Context, runID uuid.UUID, a, b string) (*similarity.Record, error)
	InsertRatingEventsBatch(ctx context.Context, events []*models.RatingEvent) (int, int, error)
}

// RunLauncher triggers recomputes. *runner.Runner implements it.
type RunLauncher interface {
	Trigger(ctx context.Context) (*models.Run, bool, error)
	Active() *models.Run
}

// NeighborFinder answers ranked neighbor queries from the prebuilt index.
// *index.Index implements it.
type NeighborFinder interface {
	Neighbors(item string, limit int) ([]similarity.Record, *index.Meta, error)
}

// Handler contains dependencies for API handlers
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct, constructor, utility methods (this file)
//   - handlers_helpers.go: Shared helper functions
//   - handlers_health.go: Health/monitoring endpoints
//   - handlers_core.go: Neighbor, pair, config, and WebSocket endpoints
//   - handlers_runs.go: Run history and trigger endpoints
//   - handlers_ratings.go: Rating event submission
type Handler struct {
	store     Store
	runs      RunLauncher
	index     NeighborFinder
	pipeline  *ingest.Pipeline // nil when NATS ingest is disabled
	config    *config.Config
	wsHub     *ws.Hub
	startTime time.Time
	cache     *cache.Cache
}

// NewHandler creates a new API handler with all required dependencies.
//
// Dependencies:
//   - store: Database access for runs, similarities, and ratings
//   - runs: Run launcher for manual recompute triggers
//   - idx: Neighbor index for low-latency similarity queries
//   - pipeline: NATS ingest pipeline, nil when ingest is disabled
//   - wsHub: WebSocket hub for real-time broadcasts
//   - cfg: Application configuration
//
// The handler initializes with a 5-minute TTL cache for query responses
// and records its start time for uptime calculations.
//
// Example:
//
//	handler := api.NewHandler(db, runner, idx, pipeline, wsHub, cfg)
//	router := api.NewRouter(handler, cfg)
//	http.ListenAndServe(":2677", router.SetupChi())
func NewHandler(store Store, runs RunLauncher, idx NeighborFinder, pipeline *ingest.Pipeline, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		store:     store,
		runs:      runs,
		index:     idx,
		pipeline:  pipeline,
		config:    cfg,
		wsHub:     wsHub,
		startTime: time.Now(),
		cache:     cache.New(5 * time.Minute),
	}
}

// ClearCache invalidates all cached query responses.
//
// This method is called automatically after each completed run so clients
// see the new similarity snapshot immediately instead of waiting out the
// cache TTL. It can also be called manually.
//
// Thread Safety: Safe for concurrent access.
func (h *Handler) ClearCache() {
	if h.cache != nil {
		h.cache.Clear()
		logging.Info().Msg("Query cache cleared")
	}
}

// getUpgrader creates a WebSocket upgrader with proper origin checking
// and a handshake timeout against slow-client attacks.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	// If no origin header, REJECT - legitimate browser WebSockets ALWAYS include Origin.
	// Allowing empty Origin bypasses CORS entirely.
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	// If config is nil, allow by default (fail open for tests/development)
	if h.config == nil {
		return true
	}

	// Check against allowed origins from config
	for _, allowedOrigin := range h.config.API.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	// Origin not in allowed list - sanitize origin to prevent log injection
	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}
