package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/platinummonkey/beacon/pkg/analytics"
	"github.com/platinummonkey/beacon/pkg/httputil"
	"github.com/platinummonkey/beacon/pkg/observability"
)

// AnalyticsHandlers provides the tracking intake and metrics read endpoints
type AnalyticsHandlers struct {
	engine *analytics.Engine
	logger *observability.Logger
}

// NewAnalyticsHandlers creates a new analytics handlers instance
func NewAnalyticsHandlers(engine *analytics.Engine, logger *observability.Logger) *AnalyticsHandlers {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &AnalyticsHandlers{
		engine: engine,
		logger: logger,
	}
}

// RegisterRoutes registers analytics API routes
func (h *AnalyticsHandlers) RegisterRoutes(r *mux.Router) {
	// Tracking intake
	r.HandleFunc("/api/v1/track/pageview", h.trackPageView).Methods("POST")
	r.HandleFunc("/api/v1/track/error", h.trackError).Methods("POST")

	// Aggregated reads
	r.HandleFunc("/api/v1/metrics", h.getMetrics).Methods("GET")
	r.HandleFunc("/api/v1/pages", h.getPages).Methods("GET")
	r.HandleFunc("/api/v1/sessions/{id}", h.getSession).Methods("GET")
}

// TrackPageViewRequest is the body of POST /api/v1/track/pageview
type TrackPageViewRequest struct {
	SessionID string `json:"sessionId"`
	Path      string `json:"path"`
	UserID    string `json:"userId,omitempty"`
	Referrer  string `json:"referrer,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
}

// TrackErrorRequest is the body of POST /api/v1/track/error
type TrackErrorRequest struct {
	SessionID string `json:"sessionId,omitempty"`
	ErrorType string `json:"errorType,omitempty"`
}

// trackPageView handles POST /api/v1/track/pageview
// Referrer and user agent fall back to the request headers when the body
// omits them, so browser beacons don't have to repeat what HTTP already says.
func (h *AnalyticsHandlers) trackPageView(w http.ResponseWriter, r *http.Request) {
	var req TrackPageViewRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if !httputil.RequireNonEmpty(w, req.SessionID, "sessionId") {
		return
	}
	if !httputil.RequireNonEmpty(w, req.Path, "path") {
		return
	}

	if req.Referrer == "" {
		req.Referrer = GetReferrer(r)
	}
	if req.UserAgent == "" {
		req.UserAgent = GetUserAgent(r)
	}

	h.engine.TrackPageView(analytics.PageView{
		SessionID: req.SessionID,
		Path:      req.Path,
		UserID:    req.UserID,
		Referrer:  req.Referrer,
		UserAgent: req.UserAgent,
	})

	httputil.WriteAccepted(w, map[string]string{"status": "accepted"})
}

// trackError handles POST /api/v1/track/error
// The body is optional: an empty body records an anonymous error.
func (h *AnalyticsHandlers) trackError(w http.ResponseWriter, r *http.Request) {
	var req TrackErrorRequest
	if err := httputil.ParseJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		httputil.WriteBadRequest(w, err.Error())
		return
	}

	h.engine.TrackError(req.SessionID, req.ErrorType)

	httputil.WriteAccepted(w, map[string]string{"status": "accepted"})
}

// getMetrics handles GET /api/v1/metrics
// Returns a snapshot aggregated at request time.
func (h *AnalyticsHandlers) getMetrics(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, h.engine.Snapshot())
}

// getPages handles GET /api/v1/pages
func (h *AnalyticsHandlers) getPages(w http.ResponseWriter, r *http.Request) {
	httputil.WriteSuccess(w, h.engine.PageStats())
}

// getSession handles GET /api/v1/sessions/{id}
func (h *AnalyticsHandlers) getSession(w http.ResponseWriter, r *http.Request) {
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return
	}

	session, ok := h.engine.SessionMetrics(id)
	if !ok {
		httputil.WriteNotFoundError(w, "session not found")
		return
	}

	httputil.WriteSuccess(w, session)
}
