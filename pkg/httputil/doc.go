// Package httputil provides HTTP utilities for standardized request/response handling.
//
// # Overview
//
// This package offers helper functions for JSON encoding/decoding, error responses,
// parameter parsing, validation, and common HTTP middleware patterns.
//
// # Response Helpers
//
// JSON responses:
//
//	httputil.WriteSuccess(w, snapshot)
//	httputil.WriteAccepted(w, map[string]string{"status": "accepted"})
//
// Error responses:
//
//	httputil.WriteError(w, http.StatusBadRequest, err)
//	httputil.WriteBadRequest(w, "Invalid input")
//	httputil.WriteNotFoundError(w, "session not found")
//
// # Request Parsing
//
// JSON parsing:
//
//	var req TrackPageViewRequest
//	if !httputil.ParseJSONOrError(w, r, &req) {
//		return // Error response already written
//	}
//
// Path and query parameters:
//
//	id, ok := httputil.ParsePathStringOrError(w, r, "id")
//	clientID := httputil.ParseQueryString(r, "clientId", "")
//
// # Middleware
//
//	httputil.Chain(
//		httputil.RequestIDMiddleware,
//		httputil.LoggingMiddleware(logger),
//		httputil.RecoveryMiddleware(logger),
//		httputil.CORSMiddleware(origins),
//		httputil.ContentTypeMiddleware,
//		httputil.MaxBytesMiddleware(1<<20),
//	)
//
// The logging middleware keeps http.Flusher visible through its wrapper, so
// event stream handlers can flush each frame as it is written.
//
// # Related Packages
//
//   - pkg/api: HTTP handlers built on these helpers
//   - pkg/middleware: Request rate limiting
//   - pkg/observability: Structured logger and request-scoped context
package httputil
