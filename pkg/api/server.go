package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/beacon/pkg/analytics"
	"github.com/platinummonkey/beacon/pkg/broadcast"
	"github.com/platinummonkey/beacon/pkg/httputil"
	"github.com/platinummonkey/beacon/pkg/middleware"
	"github.com/platinummonkey/beacon/pkg/observability"
)

const defaultMaxBodyBytes = 64 << 10

// Options configures the API server. Engine and Broadcaster are required;
// everything else has a working default.
type Options struct {
	Engine      *analytics.Engine
	Broadcaster *broadcast.Broadcaster

	// LogStream backs GET /api/v1/logs/recent. Optional; the endpoint
	// returns 404 when unset.
	LogStream *broadcast.LogStream

	Logger  *observability.Logger
	Metrics *observability.Metrics

	// CORSOrigins lists the allowed origins. Nil allows any origin.
	CORSOrigins []string

	// StreamBuffer is the per-observer channel capacity. An observer that
	// falls this many frames behind is dropped.
	StreamBuffer int

	// MaxBodyBytes caps request body size on tracking endpoints.
	MaxBodyBytes int64

	// RateLimiter enables per-IP rate limiting when set.
	RateLimiter *middleware.RateLimitMiddleware

	// TraceRequests wraps the handler chain in otelhttp spans.
	TraceRequests bool
}

// Server represents the Beacon API server
type Server struct {
	engine      *analytics.Engine
	broadcaster *broadcast.Broadcaster
	router      *mux.Router
	handler     http.Handler
	logger      *observability.Logger
}

// NewServer creates a new API server
func NewServer(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	s := &Server{
		engine:      opts.Engine,
		broadcaster: opts.Broadcaster,
		router:      mux.NewRouter(),
		logger:      logger,
	}

	s.setupRoutes(opts)
	s.setupMiddleware(opts)
	return s
}

// setupRoutes registers the handler groups on the router
func (s *Server) setupRoutes(opts Options) {
	analyticsHandlers := NewAnalyticsHandlers(s.engine, s.logger)
	analyticsHandlers.RegisterRoutes(s.router)

	streamHandlers := NewStreamHandlers(s.broadcaster, opts.LogStream, s.logger, opts.StreamBuffer)
	streamHandlers.RegisterRoutes(s.router)
}

// setupMiddleware builds the middleware chain around the router
func (s *Server) setupMiddleware(opts Options) {
	origins := opts.CORSOrigins
	if origins == nil {
		origins = []string{"*"}
	}
	maxBody := opts.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBodyBytes
	}

	middlewares := []func(http.Handler) http.Handler{
		httputil.RequestIDMiddleware,
	}
	if opts.Metrics != nil {
		middlewares = append(middlewares, observability.HTTPMetricsMiddleware(opts.Metrics))
	}
	middlewares = append(middlewares,
		httputil.LoggingMiddleware(s.logger),
		httputil.RecoveryMiddleware(s.logger),
		httputil.CORSMiddleware(origins),
	)
	if opts.RateLimiter != nil {
		middlewares = append(middlewares, opts.RateLimiter.Handler)
	}
	middlewares = append(middlewares,
		httputil.ContentTypeMiddleware,
		httputil.MaxBytesMiddleware(maxBody),
	)

	handler := httputil.Chain(middlewares...)(s.router)
	if opts.TraceRequests {
		handler = otelhttp.NewHandler(handler, "beacon.api")
	}
	s.handler = handler
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// RouteRegistrar is an interface for types that can register routes
type RouteRegistrar interface {
	RegisterRoutes(router *mux.Router)
}

// RegisterRoutes registers routes from a RouteRegistrar
func (s *Server) RegisterRoutes(registrar RouteRegistrar) {
	registrar.RegisterRoutes(s.router)
}
