// Package api provides the HTTP REST API server for the Beacon analytics service.
//
// # Overview
//
// This package implements the HTTP layer that exposes Beacon's functionality:
// tracking intake (page views and errors), aggregated metrics reads, and the
// live event stream. Handlers are thin adapters over pkg/analytics and
// pkg/broadcast; all aggregation logic lives in those packages.
//
// # Architecture
//
// The API is built on gorilla/mux and organized into domain-specific handler groups:
//
//   - Tracking: Record page views and client errors
//   - Metrics: Read aggregated snapshots, per-page stats, and session records
//   - Streaming: Server-sent events fan-out plus stream stats and recent logs
//
// Each group is a handler struct registered with the Server through the
// RouteRegistrar interface, keeping concerns separated and testable.
//
// # Key Types
//
// Server is the main API server that wires handlers and middleware:
//
//	server := api.NewServer(api.Options{
//		Engine:      engine,
//		Broadcaster: broadcaster,
//		Logger:      logger,
//	})
//	http.ListenAndServe(":8080", server)
//
// # API Endpoints
//
//	POST   /api/v1/track/pageview      - Record a page view
//	POST   /api/v1/track/error         - Record a client error
//	GET    /api/v1/metrics             - Aggregated metrics snapshot
//	GET    /api/v1/pages               - Per-page view counts and shares
//	GET    /api/v1/sessions/{id}       - Single session record
//	GET    /api/v1/stream              - Server-sent events stream
//	GET    /api/v1/stream/stats        - Connected stream client count
//	GET    /api/v1/logs/recent         - Recent log entries from the stream ring
//
// # Middleware
//
// Every request passes through request-ID assignment, optional Prometheus HTTP
// metrics, structured request logging, panic recovery, CORS, optional per-IP
// rate limiting, JSON content-type enforcement, and a request body size cap.
// When tracing is enabled the whole chain is wrapped in otelhttp.
//
// # Usage Example
//
//	package main
//
//	import (
//		"log"
//		"net/http"
//
//		"github.com/platinummonkey/beacon/pkg/analytics"
//		"github.com/platinummonkey/beacon/pkg/api"
//		"github.com/platinummonkey/beacon/pkg/broadcast"
//	)
//
//	func main() {
//		engine, err := analytics.NewEngine(analytics.Options{DataDir: "data/metrics"})
//		if err != nil {
//			log.Fatal(err)
//		}
//		broadcaster := broadcast.New(nil, nil)
//
//		server := api.NewServer(api.Options{
//			Engine:      engine,
//			Broadcaster: broadcaster,
//		})
//		log.Fatal(http.ListenAndServe(":8080", server))
//	}
//
// Client usage example:
//
//	// Record a page view
//	POST /api/v1/track/pageview
//	{
//		"sessionId": "c1a6b9a0-1b2c-4d5e-8f90-abcdef123456",
//		"path": "/pricing",
//		"referrer": "https://www.google.com/search?q=beacon"
//	}
//
//	// Subscribe to live updates
//	GET /api/v1/stream?clientId=dashboard-1
//	data: {"type":"metrics","timestamp":1756100000000,"data":{...}}
//
// # Design Decisions
//
// Modular Handler Design: Domain-specific handlers (AnalyticsHandlers,
// StreamHandlers) are registered with the Server. This keeps concerns separated
// and makes testing easier.
//
// Accepted Responses: Tracking endpoints return 202 Accepted; aggregation is
// synchronous and cheap, but the contract deliberately leaves room to queue.
//
// Stream Ownership: The stream handler owns each observer channel. It registers
// the channel after the greeting frame is flushed and unregisters it when the
// client disconnects, so the broadcaster never closes channels it did not make.
//
// # Related Packages
//
//   - pkg/analytics: Aggregation engine producing the metrics this API serves
//   - pkg/broadcast: Event fan-out backing the /stream endpoint
//   - pkg/httputil: Shared request parsing, response writing, and middleware
//   - pkg/middleware: Per-IP rate limiting
//   - pkg/observability: Logging, Prometheus metrics, health checks
package api
