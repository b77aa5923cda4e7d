package api

import (
	"bufio"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/beacon/pkg/broadcast"
)

// newStreamServer starts a real HTTP server so the SSE handler gets a
// flushable response writer.
func newStreamServer(t *testing.T, logStream *broadcast.LogStream) (*broadcast.Broadcaster, *httptest.Server) {
	t.Helper()

	broadcaster := broadcast.New(nil, nil)
	router := mux.NewRouter()
	NewStreamHandlers(broadcaster, logStream, nil, 4).RegisterRoutes(router)

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return broadcaster, srv
}

// readFrame reads one "data: <JSON>\n\n" frame and decodes its payload.
func readFrame(t *testing.T, br *bufio.Reader) broadcast.Event {
	t.Helper()

	var payload string
	for {
		line, err := br.ReadString('\n')
		require.NoError(t, err, "reading stream frame")
		line = strings.TrimRight(line, "\n")
		if line == "" {
			break
		}
		if strings.HasPrefix(line, "data: ") {
			payload = strings.TrimPrefix(line, "data: ")
		}
	}
	require.NotEmpty(t, payload, "frame should carry a data line")

	var ev broadcast.Event
	require.NoError(t, json.Unmarshal([]byte(payload), &ev))
	return ev
}

func waitForClients(t *testing.T, b *broadcast.Broadcaster, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for b.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("client count never reached %d (currently %d)", want, b.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// TestStreamEvents verifies the greeting, broadcast delivery, and
// unregistration on disconnect
func TestStreamEvents(t *testing.T) {
	broadcaster, srv := newStreamServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/v1/stream?clientId=obs-1")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache", resp.Header.Get("Cache-Control"))
	assert.Equal(t, "no", resp.Header.Get("X-Accel-Buffering"))

	br := bufio.NewReader(resp.Body)

	greeting := readFrame(t, br)
	assert.Equal(t, broadcast.EventConnection, greeting.Type)
	assert.Equal(t, "obs-1", greeting.ClientID)
	assert.Equal(t, "Connected to analytics stream", greeting.Message)
	assert.NotZero(t, greeting.Timestamp)

	// The observer registers after the greeting is flushed.
	waitForClients(t, broadcaster, 1)

	broadcaster.BroadcastMetrics(map[string]interface{}{"totalPageViews": 7})
	ev := readFrame(t, br)
	assert.Equal(t, broadcast.EventMetrics, ev.Type)
	data, ok := ev.Data.(map[string]interface{})
	require.True(t, ok, "metrics payload should be an object")
	assert.Equal(t, float64(7), data["totalPageViews"])

	resp.Body.Close()
	waitForClients(t, broadcaster, 0)
}

// TestStreamEvents_GeneratedClientID verifies a UUID is assigned when the
// query omits clientId
func TestStreamEvents_GeneratedClientID(t *testing.T) {
	_, srv := newStreamServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/v1/stream")
	require.NoError(t, err)
	defer resp.Body.Close()

	greeting := readFrame(t, bufio.NewReader(resp.Body))
	assert.Equal(t, broadcast.EventConnection, greeting.Type)
	assert.NotEmpty(t, greeting.ClientID)
}

// TestStreamEvents_TwoObservers verifies both connections get the same
// broadcast frame
func TestStreamEvents_TwoObservers(t *testing.T) {
	broadcaster, srv := newStreamServer(t, nil)

	readers := make([]*bufio.Reader, 0, 2)
	for _, id := range []string{"a", "b"} {
		resp, err := http.Get(srv.URL + "/api/v1/stream?clientId=" + id)
		require.NoError(t, err)
		defer resp.Body.Close()

		br := bufio.NewReader(resp.Body)
		readFrame(t, br) // greeting
		readers = append(readers, br)
	}
	waitForClients(t, broadcaster, 2)

	broadcaster.BroadcastSystemStatus(map[string]interface{}{"status": "healthy"})

	for i, br := range readers {
		ev := readFrame(t, br)
		assert.Equal(t, broadcast.EventSystem, ev.Type, "observer %d", i)
	}
}

// TestGetStreamStats verifies the connected-client counter endpoint
func TestGetStreamStats(t *testing.T) {
	broadcaster, srv := newStreamServer(t, nil)

	resp, err := http.Get(srv.URL + "/api/v1/stream/stats")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var stats map[string]int
	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 0, stats["clients"])

	ch := make(chan []byte, 1)
	broadcaster.AddClient("manual", ch)
	defer broadcaster.RemoveClient("manual")

	resp, err = http.Get(srv.URL + "/api/v1/stream/stats")
	require.NoError(t, err)
	body, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	require.NoError(t, err)

	require.NoError(t, json.Unmarshal(body, &stats))
	assert.Equal(t, 1, stats["clients"])
}

// TestGetRecentLogs verifies the ring read endpoint
func TestGetRecentLogs(t *testing.T) {
	t.Run("no log stream wired", func(t *testing.T) {
		_, srv := newStreamServer(t, nil)

		resp, err := http.Get(srv.URL + "/api/v1/logs/recent")
		require.NoError(t, err)
		resp.Body.Close()

		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("returns recent entries", func(t *testing.T) {
		logStream := broadcast.NewLogStream(broadcast.New(nil, nil), 10)
		for _, msg := range []string{"one", "two", "three"} {
			_, err := logStream.Write([]byte(`{"level":"INFO","msg":"` + msg + `"}` + "\n"))
			require.NoError(t, err)
		}

		_, srv := newStreamServer(t, logStream)

		resp, err := http.Get(srv.URL + "/api/v1/logs/recent?limit=2")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var entries []map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &entries))
		require.Len(t, entries, 2)
		assert.Equal(t, "two", entries[0]["msg"])
		assert.Equal(t, "three", entries[1]["msg"])
	})

	t.Run("invalid limit falls back to default", func(t *testing.T) {
		logStream := broadcast.NewLogStream(broadcast.New(nil, nil), 10)
		_, err := logStream.Write([]byte(`{"level":"INFO","msg":"only"}` + "\n"))
		require.NoError(t, err)

		_, srv := newStreamServer(t, logStream)

		resp, err := http.Get(srv.URL + "/api/v1/logs/recent?limit=bogus")
		require.NoError(t, err)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		require.Equal(t, http.StatusOK, resp.StatusCode)

		var entries []map[string]interface{}
		require.NoError(t, json.Unmarshal(body, &entries))
		assert.Len(t, entries, 1)
	})
}
