package broadcast

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/platinummonkey/beacon/pkg/observability"
)

const (
	defaultLogHistory = 200
	logStreamBuffer   = 64
	logStreamBatch    = 32
)

// LogStream is an io.Writer tee target for the JSON logger. Every line
// written to it is decoded into a LogEntry, recorded in a bounded
// history ring and handed to a pump goroutine that fans it out to
// stream observers via BroadcastLogs. Lines that are not JSON are
// dropped, and a Write never blocks or fails so the logger in front of
// it is unaffected by slow observers.
type LogStream struct {
	broadcaster *Broadcaster
	logger      *observability.Logger

	mu      sync.Mutex
	history []observability.LogEntry
	idx     int
	cnt     int

	events chan observability.LogEntry
	stopCh chan struct{}
}

// NewLogStream creates a log stream retaining up to history entries.
// history <= 0 falls back to the default window.
func NewLogStream(broadcaster *Broadcaster, history int) *LogStream {
	if history <= 0 {
		history = defaultLogHistory
	}
	return &LogStream{
		broadcaster: broadcaster,
		logger:      broadcaster.logger,
		history:     make([]observability.LogEntry, history),
		events:      make(chan observability.LogEntry, logStreamBuffer),
		stopCh:      make(chan struct{}),
	}
}

// Start begins the pump goroutine that forwards recorded entries to
// observers. The pump exits when ctx is cancelled or Stop is called.
func (s *LogStream) Start(ctx context.Context) {
	go func() {
		defer observability.RecoverPanic(s.logger, "log stream pump")
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopCh:
				return
			case entry := <-s.events:
				s.broadcaster.BroadcastLogs(s.drain(entry))
			}
		}
	}()
}

// Stop terminates the pump goroutine. Entries written afterwards still
// land in the history ring but are no longer fanned out.
func (s *LogStream) Stop() {
	close(s.stopCh)
}

// Write records each JSON line in p. It always reports full success;
// a log tee must never surface errors back into the logger.
func (s *LogStream) Write(p []byte) (int, error) {
	for _, line := range bytes.Split(p, []byte{'\n'}) {
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var entry observability.LogEntry
		if err := json.Unmarshal(line, &entry); err != nil {
			continue
		}
		s.record(entry)
		select {
		case s.events <- entry:
		default:
			// Pump is behind. The ring still has the entry.
		}
	}
	return len(p), nil
}

// Recent returns up to limit of the most recently recorded entries,
// oldest first. limit <= 0 returns the full retained window.
func (s *LogStream) Recent(limit int) []observability.LogEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 || limit > s.cnt {
		limit = s.cnt
	}
	out := make([]observability.LogEntry, 0, limit)
	for i := s.idx - limit; i < s.idx; i++ {
		out = append(out, s.history[i%len(s.history)])
	}
	return out
}

func (s *LogStream) record(entry observability.LogEntry) {
	s.mu.Lock()
	s.history[s.idx%len(s.history)] = entry
	s.idx++
	if s.cnt < len(s.history) {
		s.cnt++
	}
	s.mu.Unlock()
}

// drain coalesces entries already queued behind first into one batch so
// a burst of log lines becomes a single stream frame.
func (s *LogStream) drain(first observability.LogEntry) []observability.LogEntry {
	batch := append(make([]observability.LogEntry, 0, 8), first)
	for len(batch) < logStreamBatch {
		select {
		case entry := <-s.events:
			batch = append(batch, entry)
		default:
			return batch
		}
	}
	return batch
}
