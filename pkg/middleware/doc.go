// Package middleware provides HTTP middleware for request rate limiting.
//
// # Overview
//
// This package implements in-memory, per-client rate limiting using a token
// bucket per client IP. There is no authentication layer; clients are
// identified by X-Forwarded-For, X-Real-IP, or the remote address.
//
// # Usage
//
//	limiter := middleware.NewRateLimitMiddleware(&middleware.RateLimitConfig{
//		RequestsPerWindow: 300,
//		WindowDuration:    time.Minute,
//		BurstSize:         50,
//	}, metrics)
//	limiter.StartCleanup(ctx)
//	handler = limiter.Handler(handler)
//
// Responses carry X-RateLimit-Limit, X-RateLimit-Remaining, and
// X-RateLimit-Reset headers; rejected requests get a 429 with Retry-After.
//
// # Related Packages
//
//   - pkg/httputil: Error response bodies
//   - pkg/observability: Rejection counter
package middleware
