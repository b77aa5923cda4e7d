package analytics

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"sort"
	"time"
)

// Persisted document names under the data directory.
const (
	pageMetricsFile    = "page-metrics.json"
	sessionMetricsFile = "session-metrics.json"
)

// pageDocument is the persisted form of a page record. The visitor set
// serializes as a sorted array.
type pageDocument struct {
	Path           string    `json:"path"`
	Views          int64     `json:"views"`
	UniqueVisitors []string  `json:"uniqueVisitors"`
	LastAccessed   time.Time `json:"lastAccessed"`
}

// Persist writes both stores to the document store. Runs are serialized
// through persistMu so a timer-triggered write and a shutdown-triggered
// write cannot interleave on the same files. The store copy happens under
// the read lock; disk I/O happens outside it.
func (e *Engine) Persist() error {
	e.persistMu.Lock()
	defer e.persistMu.Unlock()

	start := time.Now()

	e.mu.RLock()
	pages := make([]pageDocument, 0, len(e.pages))
	for path, record := range e.pages {
		visitors := make([]string, 0, len(record.visitors))
		for id := range record.visitors {
			visitors = append(visitors, id)
		}
		sort.Strings(visitors)
		pages = append(pages, pageDocument{
			Path:           path,
			Views:          record.views,
			UniqueVisitors: visitors,
			LastAccessed:   record.lastAccessed,
		})
	}

	sessions := make([]Session, 0, len(e.sessions))
	for _, session := range e.sessions {
		copied := *session
		copied.Pages = slices.Clone(session.Pages)
		sessions = append(sessions, copied)
	}
	e.mu.RUnlock()

	sort.Slice(pages, func(i, j int) bool { return pages[i].Path < pages[j].Path })
	sort.Slice(sessions, func(i, j int) bool { return sessions[i].SessionID < sessions[j].SessionID })

	if err := e.store.Save(pageMetricsFile, pages); err != nil {
		e.observePersist(start, "error")
		return fmt.Errorf("failed to persist page metrics: %w", err)
	}
	if err := e.store.Save(sessionMetricsFile, sessions); err != nil {
		e.observePersist(start, "error")
		return fmt.Errorf("failed to persist session metrics: %w", err)
	}
	e.observePersist(start, "success")

	if e.development {
		e.logger.WithFields(map[string]interface{}{
			"pages":    len(pages),
			"sessions": len(sessions),
		}).Debug("Persisted metrics")
	}
	return nil
}

// Restore replaces both stores with the persisted documents. Missing
// files count as a clean cold start and leave the stores untouched, so a
// late-running restore cannot wipe views tracked in the meantime.
// Unreadable or unparsable files return an error without applying
// anything.
func (e *Engine) Restore() error {
	found := false

	var pageDocs []pageDocument
	if err := e.store.Load(pageMetricsFile, &pageDocs); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.observeRestore("error")
			return fmt.Errorf("failed to load page metrics: %w", err)
		}
	} else {
		found = true
	}

	var sessionDocs []Session
	if err := e.store.Load(sessionMetricsFile, &sessionDocs); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			e.observeRestore("error")
			return fmt.Errorf("failed to load session metrics: %w", err)
		}
	} else {
		found = true
	}

	if !found {
		e.observeRestore("success")
		return nil
	}

	pages := make(map[string]*pageRecord, len(pageDocs))
	for _, doc := range pageDocs {
		visitors := make(map[string]struct{}, len(doc.UniqueVisitors))
		for _, id := range doc.UniqueVisitors {
			visitors[id] = struct{}{}
		}
		pages[doc.Path] = &pageRecord{
			views:        doc.Views,
			visitors:     visitors,
			lastAccessed: doc.LastAccessed,
		}
	}

	sessions := make(map[string]*Session, len(sessionDocs))
	for i := range sessionDocs {
		session := sessionDocs[i]
		sessions[session.SessionID] = &session
	}

	e.mu.Lock()
	e.pages = pages
	e.sessions = sessions
	sessionCount := len(e.sessions)
	e.mu.Unlock()

	e.observeRestore("success")
	if e.metrics != nil {
		e.metrics.SessionsTotal.Set(float64(sessionCount))
	}
	if e.development {
		e.logger.WithFields(map[string]interface{}{
			"pages":    len(pages),
			"sessions": len(sessions),
		}).Debug("Restored persisted metrics")
	}
	return nil
}

func (e *Engine) observePersist(start time.Time, status string) {
	if e.metrics == nil {
		return
	}
	e.metrics.PersistTotal.WithLabelValues(status).Inc()
	e.metrics.PersistDuration.Observe(time.Since(start).Seconds())
}

func (e *Engine) observeRestore(status string) {
	if e.metrics == nil {
		return
	}
	e.metrics.RestoreTotal.WithLabelValues(status).Inc()
}
