// Package analytics provides the in-memory aggregation engine behind the
// Beacon dashboard.
//
// # Overview
//
// The engine owns two keyed stores (per-path page stats, per-visitor
// sessions) and two counters (requests, errors), updated synchronously by
// the tracking calls and summarized on demand into an immutable Snapshot.
// Persistence and stale-session cleanup run as background cron jobs;
// tracking and snapshot calls never wait on disk.
//
// # Key Metrics
//
// Snapshot fields:
//   - Total and active sessions (activity within the last 30 minutes)
//   - Total page views, requests and errors
//   - Average active-session duration, bounce rate
//   - Top-5 pages by views with their share of total views
//   - Traffic sources (Direct, Social Media, Search, Internal, Referral)
//   - Uptime and request/error rates per second
//   - A synthetic request-duration histogram (not measured latency)
//
// # Usage Example
//
// Track a page view:
//
//	engine.TrackPageView(analytics.PageView{
//		SessionID: "b1f3…",
//		Path:      "/pricing",
//		Referrer:  "https://www.google.com/search",
//	})
//
// Compute a snapshot:
//
//	snap := engine.Snapshot()
//	fmt.Printf("active=%d bounce=%.1f%%\n", snap.ActiveSessions, snap.BounceRate)
//
// Evaluate alerts:
//
//	alerter := analytics.NewAlerter(analytics.Thresholds{MaxErrorRatio: 0.05}, logger)
//	for _, alert := range alerter.Evaluate(snap) {
//		broadcaster.BroadcastAlert(alert)
//	}
//
// # Persistence
//
// State survives restarts through two JSON documents under the data
// directory, page-metrics.json and session-metrics.json, written on a
// timer and once more during Close. A missing or corrupt document means
// the engine starts empty; it never fails construction.
//
// # Related Packages
//
//   - pkg/broadcast: Fans snapshots out to event stream clients
//   - pkg/storage: The document store persistence writes through
//   - pkg/observability: Logging and Prometheus metrics
package analytics
