package broadcast

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

func TestFrameFormat(t *testing.T) {
	ev := Event{
		Type:      EventMetrics,
		Timestamp: 1700000000000,
		Data:      map[string]int{"totalSessions": 3},
	}

	frame, err := ev.Frame()
	if err != nil {
		t.Fatalf("Frame failed: %v", err)
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	want := "data: " + string(payload) + "\n\n"
	if string(frame) != want {
		t.Errorf("frame = %q, want %q", frame, want)
	}
}

func TestFrameJSONKeys(t *testing.T) {
	t.Run("connection event carries clientId and message", func(t *testing.T) {
		frame, err := Event{
			Type:      EventConnection,
			Timestamp: 1700000000000,
			ClientID:  "c1",
			Message:   "hello",
		}.Frame()
		if err != nil {
			t.Fatalf("Frame failed: %v", err)
		}

		var decoded map[string]interface{}
		payload := bytes.TrimSuffix(bytes.TrimPrefix(frame, []byte("data: ")), []byte("\n\n"))
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("frame payload is not JSON: %v", err)
		}
		if decoded["type"] != "connection" {
			t.Errorf("type = %v, want connection", decoded["type"])
		}
		if decoded["clientId"] != "c1" {
			t.Errorf("clientId = %v, want c1", decoded["clientId"])
		}
		if decoded["message"] != "hello" {
			t.Errorf("message = %v, want hello", decoded["message"])
		}
	})

	t.Run("empty optional fields are omitted", func(t *testing.T) {
		frame, err := Event{Type: EventHeartbeat, Timestamp: 1700000000000}.Frame()
		if err != nil {
			t.Fatalf("Frame failed: %v", err)
		}

		var decoded map[string]interface{}
		payload := bytes.TrimSuffix(bytes.TrimPrefix(frame, []byte("data: ")), []byte("\n\n"))
		if err := json.Unmarshal(payload, &decoded); err != nil {
			t.Fatalf("frame payload is not JSON: %v", err)
		}
		for _, key := range []string{"data", "clientId", "message"} {
			if _, ok := decoded[key]; ok {
				t.Errorf("empty %s must be omitted from the wire, got %v", key, decoded[key])
			}
		}
		if _, ok := decoded["type"]; !ok {
			t.Error("type key is required")
		}
		if _, ok := decoded["timestamp"]; !ok {
			t.Error("timestamp key is required")
		}
	})
}

func TestNewEventStampsTimestamp(t *testing.T) {
	before := time.Now().UnixMilli()
	ev := NewEvent(EventMetrics, "payload")
	after := time.Now().UnixMilli()

	if ev.Type != EventMetrics {
		t.Errorf("Type = %s, want %s", ev.Type, EventMetrics)
	}
	if ev.Timestamp < before || ev.Timestamp > after {
		t.Errorf("Timestamp = %d, want between %d and %d", ev.Timestamp, before, after)
	}
	if ev.Data != "payload" {
		t.Errorf("Data = %v, want payload", ev.Data)
	}
}

func TestConnectionEvent(t *testing.T) {
	ev := ConnectionEvent("client-7")

	if ev.Type != EventConnection {
		t.Errorf("Type = %s, want %s", ev.Type, EventConnection)
	}
	if ev.ClientID != "client-7" {
		t.Errorf("ClientID = %s, want client-7", ev.ClientID)
	}
	if ev.Message == "" {
		t.Error("connection events carry a greeting message")
	}
	if ev.Timestamp == 0 {
		t.Error("connection events are stamped with the current time")
	}
}
