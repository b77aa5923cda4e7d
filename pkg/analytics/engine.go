package analytics

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/platinummonkey/beacon/pkg/async"
	"github.com/platinummonkey/beacon/pkg/observability"
	"github.com/platinummonkey/beacon/pkg/storage"
)

// Defaults applied to Options fields left at their zero value.
const (
	DefaultDataDir         = "data/metrics"
	DefaultCleanupInterval = 1 * time.Hour
	DefaultPersistInterval = 5 * time.Minute
)

const (
	// Sessions idle longer than this are removed by the cleanup sweep.
	staleSessionAge = 24 * time.Hour

	// Sessions with activity inside this window count as active.
	activeSessionWindow = 30 * time.Minute

	restoreTimeout = 30 * time.Second
)

// Options configures an Engine. The zero value is usable: it tracks into
// DefaultDataDir with a no-op logger and the default intervals.
type Options struct {
	// DataDir is the directory the JSON metric documents are persisted to.
	DataDir string

	// Development enables the chattier diagnostics (cleanup summaries,
	// restore failures) that stay silent in production.
	Development bool

	CleanupInterval time.Duration
	PersistInterval time.Duration

	// RegisterShutdownHook installs a SIGINT/SIGTERM watcher that closes
	// the engine. Leave it off when the process already coordinates
	// shutdown (for example through observability.ShutdownManager).
	RegisterShutdownHook bool

	// SiteDomain marks referrers from the operator's own domain as
	// Internal traffic. Optional.
	SiteDomain string

	// SourceRules overrides the compiled-in referrer categorization sets.
	SourceRules *SourceRules

	// Store overrides the filesystem document store, primarily for tests.
	Store storage.Store

	Logger  *observability.Logger
	Metrics *observability.Metrics
}

// PageView is one tracked page impression.
type PageView struct {
	SessionID string
	Path      string
	UserID    string
	Referrer  string
	UserAgent string
}

// Session is the per-visitor activity record. PageViews counts every
// impression; Pages keeps the distinct visited paths in first-seen order,
// so PageViews >= len(Pages) always holds.
type Session struct {
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId,omitempty"`
	StartTime    time.Time `json:"startTime"`
	LastActivity time.Time `json:"lastActivity"`
	PageViews    int64     `json:"pageViews"`
	Pages        []string  `json:"pages"`
	Referrer     string    `json:"referrer,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
}

// pageRecord accumulates per-path stats. visitors holds the distinct
// session ids that viewed the path, so len(visitors) <= views.
type pageRecord struct {
	views        int64
	visitors     map[string]struct{}
	lastAccessed time.Time
}

// Engine aggregates page views and sessions in memory and derives summary
// metrics on demand. All mutators take the engine lock and never touch
// disk; persistence and cleanup run on background cron jobs.
type Engine struct {
	mu       sync.RWMutex
	pages    map[string]*pageRecord
	sessions map[string]*Session

	totalRequests int64
	totalErrors   int64
	startTime     time.Time

	classifier *Classifier
	store      storage.Store

	// persistMu serializes persistence runs so a timer-triggered write and
	// a shutdown-triggered write cannot interleave on the same files.
	persistMu sync.Mutex

	development bool
	logger      *observability.Logger
	metrics     *observability.Metrics

	cron      *cron.Cron
	signals   chan os.Signal
	closeOnce sync.Once
}

// NewEngine creates an engine, restores persisted state in the background
// and starts the recurring cleanup and persist jobs. The returned engine
// is immediately usable; the restore is best-effort and never blocks
// tracking calls.
func NewEngine(opts Options) (*Engine, error) {
	if opts.DataDir == "" {
		opts.DataDir = DefaultDataDir
	}
	if opts.CleanupInterval <= 0 {
		opts.CleanupInterval = DefaultCleanupInterval
	}
	if opts.PersistInterval <= 0 {
		opts.PersistInterval = DefaultPersistInterval
	}

	logger := opts.Logger
	if logger == nil {
		logger = observability.NewNopLogger()
	}

	store := opts.Store
	if store == nil {
		var err error
		store, err = storage.NewDocumentStore(opts.DataDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open data directory: %w", err)
		}
	}

	e := &Engine{
		pages:       make(map[string]*pageRecord),
		sessions:    make(map[string]*Session),
		startTime:   time.Now(),
		classifier:  NewClassifier(opts.SourceRules, opts.SiteDomain, opts.Metrics),
		store:       store,
		development: opts.Development,
		logger:      logger,
		metrics:     opts.Metrics,
		cron:        cron.New(),
	}

	// Best-effort restore: tracking proceeds against empty stores until it
	// lands, and a missing or corrupt file leaves them empty.
	async.SafeGoNoError(context.Background(), logger, restoreTimeout, "metrics restore", func(ctx context.Context) {
		if err := e.Restore(); err != nil && e.development {
			e.logger.WithError(err).Debug("No persisted metrics restored")
		}
	})

	e.cron.Schedule(cron.Every(opts.CleanupInterval), cron.FuncJob(func() {
		defer observability.RecoverPanic(e.logger, "session cleanup")
		e.CleanupStaleSessions()
	}))
	e.cron.Schedule(cron.Every(opts.PersistInterval), cron.FuncJob(func() {
		defer observability.RecoverPanic(e.logger, "metrics persist")
		if err := e.Persist(); err != nil {
			e.logger.WithError(err).Error("Failed to persist metrics")
		}
	}))
	e.cron.Start()

	if opts.RegisterShutdownHook {
		e.signals = make(chan os.Signal, 1)
		signal.Notify(e.signals, os.Interrupt, syscall.SIGTERM)
		go func() {
			if _, ok := <-e.signals; ok {
				_ = e.Close(context.Background())
			}
		}()
	}

	return e, nil
}

// TrackPageView records one page impression. It never fails: unknown
// sessions and paths are created on first sight and all writes are
// in-memory.
func (e *Engine) TrackPageView(view PageView) {
	now := time.Now()

	e.mu.Lock()
	page, ok := e.pages[view.Path]
	if !ok {
		page = &pageRecord{visitors: make(map[string]struct{})}
		e.pages[view.Path] = page
	}
	page.views++
	page.visitors[view.SessionID] = struct{}{}
	page.lastAccessed = now

	session, ok := e.sessions[view.SessionID]
	if !ok {
		e.sessions[view.SessionID] = &Session{
			SessionID:    view.SessionID,
			UserID:       view.UserID,
			StartTime:    now,
			LastActivity: now,
			PageViews:    1,
			Pages:        []string{view.Path},
			Referrer:     view.Referrer,
			UserAgent:    view.UserAgent,
		}
	} else {
		session.LastActivity = now
		session.PageViews++
		if !slices.Contains(session.Pages, view.Path) {
			session.Pages = append(session.Pages, view.Path)
		}
	}

	e.totalRequests++
	sessionCount := len(e.sessions)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.PageViewsTotal.Inc()
		e.metrics.SessionsTotal.Set(float64(sessionCount))
	}
}

// TrackError counts one client-reported error. The identifying arguments
// are accepted for forward compatibility but only the counter moves.
func (e *Engine) TrackError(sessionID, errorType string) {
	e.mu.Lock()
	e.totalErrors++
	e.mu.Unlock()

	if e.metrics != nil {
		if errorType == "" {
			errorType = "unknown"
		}
		e.metrics.TrackedErrorsTotal.WithLabelValues(errorType).Inc()
	}
}

// SessionMetrics returns a copy of the session record, or (nil, false)
// when the id is empty or unknown.
func (e *Engine) SessionMetrics(sessionID string) (*Session, bool) {
	if sessionID == "" {
		return nil, false
	}

	e.mu.RLock()
	defer e.mu.RUnlock()

	session, ok := e.sessions[sessionID]
	if !ok {
		return nil, false
	}
	copied := *session
	copied.Pages = slices.Clone(session.Pages)
	return &copied, true
}

// SetSourceRules swaps the referrer categorization rule sets at runtime.
// A nil argument restores the compiled-in defaults. The classification
// cache is purged so the next snapshot reflects the new rules.
func (e *Engine) SetSourceRules(rules *SourceRules) {
	e.classifier.SetRules(rules)
}

// SourceRules returns the referrer categorization rules currently in use.
func (e *Engine) SourceRules() *SourceRules {
	return e.classifier.Rules()
}

// CleanupStaleSessions removes sessions idle for more than 24 hours and
// returns the removed count.
func (e *Engine) CleanupStaleSessions() int {
	cutoff := time.Now().Add(-staleSessionAge)

	e.mu.Lock()
	removed := 0
	for id, session := range e.sessions {
		if session.LastActivity.Before(cutoff) {
			delete(e.sessions, id)
			removed++
		}
	}
	sessionCount := len(e.sessions)
	e.mu.Unlock()

	if e.metrics != nil {
		e.metrics.SessionsCleanedTotal.Add(float64(removed))
		e.metrics.SessionsTotal.Set(float64(sessionCount))
	}
	if removed > 0 && e.development {
		e.logger.WithField("removed", removed).Info("Cleaned up stale sessions")
	}
	return removed
}

// Close stops the background jobs, waits for any in-flight run, performs
// a final persist and releases the signal watcher. It is idempotent;
// calls after the first return nil.
func (e *Engine) Close(ctx context.Context) error {
	var err error
	e.closeOnce.Do(func() {
		if e.signals != nil {
			signal.Stop(e.signals)
			close(e.signals)
		}

		stopCtx := e.cron.Stop()
		select {
		case <-stopCtx.Done():
		case <-ctx.Done():
		}

		err = e.Persist()
	})
	return err
}
