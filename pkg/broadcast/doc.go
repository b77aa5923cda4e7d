// Package broadcast fans analytics events out to stream observers.
//
// # Overview
//
// The Broadcaster keeps a registry of observer channels, one per
// connected stream client. Every event is encoded once into a
// server-sent-events frame and delivered to all observers without
// blocking; a stalled observer is dropped so the rest keep receiving.
//
// # Event Types
//
// connection, heartbeat, metrics, logs, alerts, system
//
// # Usage Example
//
// Register an observer and pump its frames:
//
//	ch := make(chan []byte, 16)
//	broadcaster.AddClient(clientID, ch)
//	defer broadcaster.RemoveClient(clientID)
//	for frame := range ch {
//		w.Write(frame)
//		flusher.Flush()
//	}
//
// Push a metrics snapshot to everyone:
//
//	broadcaster.BroadcastMetrics(engine.Snapshot())
//
// Tee the logger into the stream:
//
//	stream := broadcast.NewLogStream(broadcaster, 200)
//	stream.Start(ctx)
//	logger := observability.NewLogger(level, io.MultiWriter(os.Stdout, stream))
//
// # Failure Handling
//
// Delivery is best effort. An observer whose channel is full at
// broadcast time is unregistered and logged; there is no retry, the
// client resumes by reconnecting. The broadcaster never closes observer
// channels.
//
// # Related Packages
//
//   - pkg/analytics: Produces the snapshots and alerts pushed here
//   - pkg/api: Bridges observer channels onto HTTP streaming responses
//   - pkg/observability: LogEntry decoding for the log stream tee
package broadcast
