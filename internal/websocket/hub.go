// Corelate - Item Similarity Analytics for Rating Logs
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/corelate

package websocket

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/corelate/internal/logging"
	"github.com/tomtom215/corelate/internal/metrics"
	"github.com/tomtom215/corelate/internal/models"
	"github.com/tomtom215/corelate/internal/similarity"
)

// ShutdownReason identifies why the hub is shutting down, for log and
// metric filtering.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful shutdown path
	// (SIGTERM via the supervisor).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"

	// ShutdownReasonContextDeadline indicates the context deadline was
	// exceeded, which may mean a hung operation during shutdown.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// Message types pushed to connected clients.
const (
	MessageTypeRunStarted     = "run_started"
	MessageTypeRunProgress    = "run_progress"
	MessageTypeRunCompleted   = "run_completed"
	MessageTypeRunFailed      = "run_failed"
	MessageTypeRatingReceived = "rating_received"
	MessageTypePing           = "ping"
	MessageTypePong           = "pong"
)

// Message is the wire envelope for all WebSocket traffic.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients    map[*Client]bool
	broadcast  chan Message
	Register   chan *Client
	Unregister chan *Client
	mu         sync.RWMutex
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		broadcast:  make(chan Message, 256),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		clients:    make(map[*Client]bool),
	}
}

// addClient registers a client and updates the connection gauge.
func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("websocket client connected")
}

// removeClient unregisters a client and closes its send channel. Safe to
// call for clients that were never registered.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		close(client.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(count))
	logging.Info().Int("total_clients", count).Msg("websocket client disconnected")
}

// Run starts the hub (blocks forever, no context support).
//
// Deprecated: Use RunWithContext for supervised operation.
//
// Lifecycle events are drained before broadcasts. Go's select picks
// randomly among ready channels, so without the non-blocking priority
// pass a broadcast could race ahead of the registration of the client it
// should reach.
func (h *Hub) Run() {
	for {
		// Priority 1: lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		// Priority 2: broadcasts (blocking wait)
		select {
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// RunWithContext starts the hub with context support for graceful
// shutdown. Designed for suture supervision: when the context is
// canceled, all connected clients are closed and the method returns
// ctx.Err(), so a supervisor restart never leaves orphaned connections.
//
// Selection order is cancellation, then lifecycle events, then
// broadcasts, for the same reason Run drains lifecycle events first.
func (h *Hub) RunWithContext(ctx context.Context) error {
	for {
		// Priority 1: shutdown (non-blocking check)
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		default:
		}

		// Priority 2: lifecycle events (non-blocking check)
		select {
		case client := <-h.Register:
			h.addClient(client)
			continue
		case client := <-h.Unregister:
			h.removeClient(client)
			continue
		default:
		}

		// Priority 3: broadcasts, or wait for any event
		select {
		case <-ctx.Done():
			h.logGracefulShutdown(ctx)
			return ctx.Err()
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.removeClient(client)
		case message := <-h.broadcast:
			h.broadcastToClients(message)
		}
	}
}

// logGracefulShutdown closes all clients and logs structured shutdown
// information. ctx.Err() is not logged through .Err() because context
// cancellation is expected during graceful shutdown and an error-level
// field would trip operators watching error logs.
func (h *Hub) logGracefulShutdown(ctx context.Context) {
	clientCount := h.GetClientCount()
	h.closeAllClients()

	logging.Info().
		Str("component", "websocket-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", clientCount).
		Msg("websocket hub stopped")
}

// getShutdownReason maps the context error to a ShutdownReason.
func getShutdownReason(ctx context.Context) ShutdownReason {
	switch ctx.Err() {
	case context.Canceled:
		return ShutdownReasonContextCanceled
	case context.DeadlineExceeded:
		return ShutdownReasonContextDeadline
	default:
		return ShutdownReasonContextCanceled
	}
}

// broadcastToClients delivers a message to all connected clients in
// client-ID order. Sorted delivery keeps iteration order stable across
// runs; map iteration order would make message interleaving in tests and
// race reports non-reproducible. Clients whose send buffer is full are
// evicted: a consumer that cannot keep up with run progress must not
// stall the hub loop for everyone else.
func (h *Hub) broadcastToClients(message Message) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	var toRemove []*Client
	for _, client := range clients {
		select {
		case client.send <- message:
			metrics.WSMessagesSent.Inc()
		default:
			toRemove = append(toRemove, client)
		}
	}

	for _, client := range toRemove {
		close(client.send)
		delete(h.clients, client)
		metrics.WSErrors.WithLabelValues("slow_client").Inc()
	}
	if len(toRemove) > 0 {
		metrics.WSConnections.Set(float64(len(h.clients)))
		logging.Warn().
			Int("evicted", len(toRemove)).
			Str("message_type", message.Type).
			Msg("evicted slow websocket clients")
	}
}

// closeAllClients closes all connected clients in ID order. Called during
// shutdown.
func (h *Hub) closeAllClients() {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	sort.Slice(clients, func(i, j int) bool {
		return clients[i].id < clients[j].id
	})

	for _, client := range clients {
		close(client.send)
		delete(h.clients, client)
	}
	metrics.WSConnections.Set(0)
	logging.Info().Msg("closed all websocket clients during shutdown")
}

// enqueue puts a message on the broadcast channel without blocking.
// Returns false when the channel is full and the message was dropped.
func (h *Hub) enqueue(message Message) bool {
	select {
	case h.broadcast <- message:
		return true
	default:
		metrics.WSErrors.WithLabelValues("broadcast_dropped").Inc()
		logging.Warn().Str("message_type", message.Type).Msg("broadcast channel full, dropping message")
		return false
	}
}

// RunStartedData accompanies run_started messages.
type RunStartedData struct {
	RunID     string `json:"run_id"`
	StartedAt string `json:"started_at"`
}

// BroadcastRunStarted notifies all clients that a similarity run began.
func (h *Hub) BroadcastRunStarted(run *models.Run) {
	data := RunStartedData{
		RunID:     run.ID.String(),
		StartedAt: run.StartedAt.UTC().Format(time.RFC3339),
	}
	h.enqueue(Message{Type: MessageTypeRunStarted, Data: data})
}

// RunProgressData accompanies run_progress messages. Stats carries the
// counters accumulated so far; Phase names the pipeline stage.
type RunProgressData struct {
	RunID     string              `json:"run_id"`
	Phase     string              `json:"phase"`
	Stats     similarity.RunStats `json:"stats"`
	Timestamp string              `json:"timestamp"`
}

// BroadcastRunProgress notifies all clients of run progress at a phase
// boundary.
func (h *Hub) BroadcastRunProgress(runID uuid.UUID, phase string, stats similarity.RunStats) {
	data := RunProgressData{
		RunID:     runID.String(),
		Phase:     phase,
		Stats:     stats,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.enqueue(Message{Type: MessageTypeRunProgress, Data: data}) {
		logging.Debug().
			Int("clients", h.GetClientCount()).
			Str("run_id", data.RunID).
			Str("phase", phase).
			Msg("broadcast run_progress")
	}
}

// RunCompletedData accompanies run_completed messages.
type RunCompletedData struct {
	RunID          string              `json:"run_id"`
	DurationMs     int64               `json:"duration_ms"`
	RecordsWritten int64               `json:"records_written"`
	Stats          similarity.RunStats `json:"stats"`
	Timestamp      string              `json:"timestamp"`
}

// BroadcastRunCompleted notifies all clients that a run finished.
func (h *Hub) BroadcastRunCompleted(run *models.Run) {
	data := RunCompletedData{
		RunID:          run.ID.String(),
		DurationMs:     run.Duration().Milliseconds(),
		RecordsWritten: run.RecordsWritten,
		Stats:          run.Stats,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}
	if h.enqueue(Message{Type: MessageTypeRunCompleted, Data: data}) {
		logging.Info().
			Int("clients", h.GetClientCount()).
			Str("run_id", data.RunID).
			Int64("records_written", run.RecordsWritten).
			Msg("broadcast run_completed")
	}
}

// RunFailedData accompanies run_failed messages.
type RunFailedData struct {
	RunID     string `json:"run_id"`
	Error     string `json:"error"`
	Timestamp string `json:"timestamp"`
}

// BroadcastRunFailed notifies all clients that a run failed.
func (h *Hub) BroadcastRunFailed(runID uuid.UUID, errMsg string) {
	data := RunFailedData{
		RunID:     runID.String(),
		Error:     errMsg,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if h.enqueue(Message{Type: MessageTypeRunFailed, Data: data}) {
		logging.Info().
			Int("clients", h.GetClientCount()).
			Str("run_id", data.RunID).
			Msg("broadcast run_failed")
	}
}

// BroadcastRatingReceived pushes a live rating event to all clients.
// Used by the rating feed to drive live dashboards.
func (h *Hub) BroadcastRatingReceived(event *models.RatingEvent) {
	h.enqueue(Message{Type: MessageTypeRatingReceived, Data: event})
}

// BroadcastJSON sends a message of an arbitrary type to all clients.
func (h *Hub) BroadcastJSON(messageType string, data interface{}) {
	h.enqueue(Message{Type: messageType, Data: data})
}

// GetClientCount returns the number of connected clients.
func (h *Hub) GetClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// MarshalMessage converts a message to JSON.
func MarshalMessage(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}
