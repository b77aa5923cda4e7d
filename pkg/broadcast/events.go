package broadcast

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType identifies what a stream event carries.
type EventType string

const (
	EventConnection EventType = "connection"
	EventHeartbeat  EventType = "heartbeat"
	EventMetrics    EventType = "metrics"
	EventLogs       EventType = "logs"
	EventAlerts     EventType = "alerts"
	EventSystem     EventType = "system"
)

// Event is one unit pushed to stream observers. Timestamp is epoch
// milliseconds. Data carries the type-specific payload; ClientID and
// Message are set on connection events only.
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp int64       `json:"timestamp"`
	Data      interface{} `json:"data,omitempty"`
	ClientID  string      `json:"clientId,omitempty"`
	Message   string      `json:"message,omitempty"`
}

// NewEvent builds an event of the given type stamped with the current
// timestamp.
func NewEvent(eventType EventType, data interface{}) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now().UnixMilli(),
		Data:      data,
	}
}

// Frame encodes the event as a server-sent-events data frame:
// "data: " + JSON + two newlines.
func (e Event) Frame() ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s event: %w", e.Type, err)
	}
	frame := make([]byte, 0, len(payload)+8)
	frame = append(frame, "data: "...)
	frame = append(frame, payload...)
	frame = append(frame, "\n\n"...)
	return frame, nil
}
