package broadcast

import (
	"sync"
	"time"

	"github.com/platinummonkey/beacon/pkg/observability"
)

// Broadcaster fans events out to registered stream observers. Each
// observer is a channel the transport layer drains into its connection;
// delivery is non-blocking, and an observer whose channel cannot accept
// a frame is dropped so one stalled connection never delays the rest.
//
// The broadcaster never closes observer channels. The registering
// caller owns the channel and its lifecycle.
type Broadcaster struct {
	mu      sync.Mutex
	clients map[string]chan []byte
	logger  *observability.Logger
	metrics *observability.Metrics
}

// New creates a broadcaster with no registered observers.
func New(logger *observability.Logger, metrics *observability.Metrics) *Broadcaster {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Broadcaster{
		clients: make(map[string]chan []byte),
		logger:  logger,
		metrics: metrics,
	}
}

// AddClient registers an observer channel under the given id. A second
// registration with the same id replaces the first; the replaced
// channel receives no further frames.
func (b *Broadcaster) AddClient(id string, ch chan []byte) {
	b.mu.Lock()
	b.clients[id] = ch
	count := len(b.clients)
	b.mu.Unlock()

	b.logger.WithFields(map[string]interface{}{
		"clientId":     id,
		"totalClients": count,
	}).Debug("Stream client connected")
	if b.metrics != nil {
		b.metrics.StreamClientsActive.Set(float64(count))
	}
}

// RemoveClient unregisters an observer. Unknown ids are a no-op.
func (b *Broadcaster) RemoveClient(id string) {
	b.mu.Lock()
	_, ok := b.clients[id]
	if ok {
		delete(b.clients, id)
	}
	count := len(b.clients)
	b.mu.Unlock()

	if !ok {
		return
	}
	b.logger.WithFields(map[string]interface{}{
		"clientId":     id,
		"totalClients": count,
	}).Debug("Stream client disconnected")
	if b.metrics != nil {
		b.metrics.StreamClientsActive.Set(float64(count))
	}
}

// ClientCount returns the number of registered observers.
func (b *Broadcaster) ClientCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.clients)
}

// Broadcast encodes the event once and delivers the frame to every
// registered observer. An observer whose channel is full counts as
// stalled: it is logged, unregistered and counted as dropped, while
// delivery to the remaining observers continues in the same call.
func (b *Broadcaster) Broadcast(ev Event) {
	frame, err := ev.Frame()
	if err != nil {
		b.logger.WithError(err).WithField("type", string(ev.Type)).Error("Failed to encode stream event")
		return
	}

	var dropped []string
	b.mu.Lock()
	for id, ch := range b.clients {
		select {
		case ch <- frame:
		default:
			delete(b.clients, id)
			dropped = append(dropped, id)
		}
	}
	count := len(b.clients)
	b.mu.Unlock()

	for _, id := range dropped {
		b.logger.WithFields(map[string]interface{}{
			"clientId": id,
			"type":     string(ev.Type),
		}).Warn("Dropping stalled stream client")
	}
	if b.metrics != nil {
		b.metrics.StreamEventsTotal.WithLabelValues(string(ev.Type)).Inc()
		if len(dropped) > 0 {
			b.metrics.StreamDroppedClientsTotal.Add(float64(len(dropped)))
			b.metrics.StreamClientsActive.Set(float64(count))
		}
	}
}

// BroadcastMetrics pushes a metrics snapshot to all observers.
func (b *Broadcaster) BroadcastMetrics(data interface{}) {
	b.Broadcast(NewEvent(EventMetrics, data))
}

// BroadcastLogs pushes a batch of log entries to all observers.
func (b *Broadcaster) BroadcastLogs(entries []observability.LogEntry) {
	b.Broadcast(NewEvent(EventLogs, entries))
}

// BroadcastAlert pushes a triggered alert to all observers.
func (b *Broadcaster) BroadcastAlert(alert interface{}) {
	b.Broadcast(NewEvent(EventAlerts, alert))
}

// BroadcastSystemStatus pushes a system status report to all observers.
func (b *Broadcaster) BroadcastSystemStatus(status interface{}) {
	b.Broadcast(NewEvent(EventSystem, status))
}

// ConnectionEvent builds the greeting frame sent to a single observer
// when its stream opens. It is written directly to the new connection,
// not broadcast.
func ConnectionEvent(clientID string) Event {
	return Event{
		Type:      EventConnection,
		Timestamp: time.Now().UnixMilli(),
		ClientID:  clientID,
		Message:   "Connected to analytics stream",
	}
}
