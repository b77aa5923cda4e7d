package api

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/platinummonkey/beacon/pkg/broadcast"
	"github.com/platinummonkey/beacon/pkg/httputil"
	"github.com/platinummonkey/beacon/pkg/observability"
)

const (
	// DefaultStreamBuffer is the per-observer channel capacity when the
	// server options don't override it.
	DefaultStreamBuffer = 16

	maxRecentLogs     = 500
	defaultRecentLogs = 50
)

// StreamHandlers provides the server-sent events endpoints
type StreamHandlers struct {
	broadcaster *broadcast.Broadcaster
	logStream   *broadcast.LogStream
	logger      *observability.Logger
	buffer      int
}

// NewStreamHandlers creates a new stream handlers instance. logStream may
// be nil; the recent-logs endpoint then reports not found.
func NewStreamHandlers(broadcaster *broadcast.Broadcaster, logStream *broadcast.LogStream, logger *observability.Logger, buffer int) *StreamHandlers {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	if buffer <= 0 {
		buffer = DefaultStreamBuffer
	}
	return &StreamHandlers{
		broadcaster: broadcaster,
		logStream:   logStream,
		logger:      logger,
		buffer:      buffer,
	}
}

// RegisterRoutes registers streaming API routes
func (h *StreamHandlers) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/api/v1/stream", h.streamEvents).Methods("GET")
	r.HandleFunc("/api/v1/stream/stats", h.getStreamStats).Methods("GET")
	r.HandleFunc("/api/v1/logs/recent", h.getRecentLogs).Methods("GET")
}

// streamEvents handles GET /api/v1/stream
// Query params:
//   - clientId: Observer id for logs and stats - default: random UUID
//
// The connection greeting goes only to this observer; everything after it
// arrives through the broadcaster. The observer channel is registered after
// the greeting is flushed and unregistered when the client disconnects.
func (h *StreamHandlers) streamEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	clientID := httputil.ParseQueryString(r, "clientId", "")
	if clientID == "" {
		clientID = uuid.NewString()
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	greeting, err := broadcast.ConnectionEvent(clientID).Frame()
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if _, err := w.Write(greeting); err != nil {
		return
	}
	flusher.Flush()

	ch := make(chan []byte, h.buffer)
	h.broadcaster.AddClient(clientID, ch)
	defer h.broadcaster.RemoveClient(clientID)

	h.logger.WithFields(map[string]interface{}{
		"clientId": clientID,
		"remoteIp": GetClientIP(r),
	}).Debug("Event stream opened")

	for {
		select {
		case <-r.Context().Done():
			return
		case frame := <-ch:
			if _, err := w.Write(frame); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}

// getStreamStats handles GET /api/v1/stream/stats
func (h *StreamHandlers) getStreamStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, map[string]int{"clients": h.broadcaster.ClientCount()})
}

// getRecentLogs handles GET /api/v1/logs/recent
// Query params:
//   - limit: Number of entries (1-500) - default: 50
func (h *StreamHandlers) getRecentLogs(w http.ResponseWriter, r *http.Request) {
	if h.logStream == nil {
		httputil.WriteNotFoundError(w, "log stream not enabled")
		return
	}

	limit := defaultRecentLogs
	if v := httputil.ParseQueryString(r, "limit", ""); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > maxRecentLogs {
		limit = maxRecentLogs
	}

	httputil.WriteSuccess(w, h.logStream.Recent(limit))
}
