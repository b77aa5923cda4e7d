package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// TopPage is one entry of the top-pages table: a path, its view count and
// its share of all page views.
type TopPage struct {
	Path       string  `json:"path"`
	Views      int64   `json:"views"`
	Percentage float64 `json:"percentage"`
}

// TrafficSource is one referrer category with its session count and its
// share of all sessions.
type TrafficSource struct {
	Source     string  `json:"source"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// DurationBuckets is a synthetic request-duration histogram: cumulative
// counts derived from fixed fractions of the request total, not from
// measured latencies. Callers must not treat the buckets as percentiles.
type DurationBuckets struct {
	Under100ms  int64 `json:"under100ms"`
	Under500ms  int64 `json:"under500ms"`
	Under1000ms int64 `json:"under1000ms"`
	Total       int64 `json:"total"`
}

// Snapshot is the derived metrics summary. It is computed fresh on every
// call and never stored; all fields describe the moment of the call.
type Snapshot struct {
	TotalSessions      int             `json:"totalSessions"`
	ActiveSessions     int             `json:"activeSessions"`
	TotalPageViews     int64           `json:"totalPageViews"`
	TotalRequests      int64           `json:"totalRequests"`
	TotalErrors        int64           `json:"totalErrors"`
	AvgSessionDuration string          `json:"avgSessionDuration"`
	BounceRate         float64         `json:"bounceRate"`
	TopPages           []TopPage       `json:"topPages"`
	TrafficSources     []TrafficSource `json:"trafficSources"`
	UptimeSeconds      float64         `json:"uptimeSeconds"`
	RequestsPerSecond  float64         `json:"requestsPerSecond"`
	ErrorsPerSecond    float64         `json:"errorsPerSecond"`
	DurationBuckets    DurationBuckets `json:"durationBuckets"`
}

// PageStat reports one tracked page with its share of all views.
type PageStat struct {
	Path           string    `json:"path"`
	Views          int64     `json:"views"`
	UniqueVisitors int       `json:"uniqueVisitors"`
	LastAccessed   time.Time `json:"lastAccessed"`
	Percentage     float64   `json:"percentage"`
}

// Snapshot computes the metrics summary from the current stores. Sessions
// count as active when their last activity falls inside the 30 minute
// window; the average duration covers active sessions only. Rates report
// zero until the engine has been up for a full second.
func (e *Engine) Snapshot() Snapshot {
	now := time.Now()
	activeCutoff := now.Add(-activeSessionWindow)

	e.mu.RLock()

	totalSessions := len(e.sessions)
	activeCount := 0
	bounced := 0
	var activeDuration time.Duration
	sourceCounts := make(map[string]int)

	for _, session := range e.sessions {
		if session.LastActivity.After(activeCutoff) {
			activeCount++
			activeDuration += session.LastActivity.Sub(session.StartTime)
		}
		if session.PageViews == 1 {
			bounced++
		}
		sourceCounts[e.classifier.Categorize(session.Referrer)]++
	}

	var totalViews int64
	topPages := make([]TopPage, 0, len(e.pages))
	for path, record := range e.pages {
		totalViews += record.views
		topPages = append(topPages, TopPage{Path: path, Views: record.views})
	}

	totalRequests := e.totalRequests
	totalErrors := e.totalErrors

	e.mu.RUnlock()

	sort.Slice(topPages, func(i, j int) bool {
		if topPages[i].Views != topPages[j].Views {
			return topPages[i].Views > topPages[j].Views
		}
		return topPages[i].Path < topPages[j].Path
	})
	if len(topPages) > 5 {
		topPages = topPages[:5]
	}
	if totalViews > 0 {
		for i := range topPages {
			topPages[i].Percentage = float64(topPages[i].Views) * 100 / float64(totalViews)
		}
	}

	trafficSources := make([]TrafficSource, 0, len(sourceCounts))
	for source, count := range sourceCounts {
		entry := TrafficSource{Source: source, Count: count}
		if totalSessions > 0 {
			entry.Percentage = float64(count) * 100 / float64(totalSessions)
		}
		trafficSources = append(trafficSources, entry)
	}
	sort.Slice(trafficSources, func(i, j int) bool {
		if trafficSources[i].Count != trafficSources[j].Count {
			return trafficSources[i].Count > trafficSources[j].Count
		}
		return trafficSources[i].Source < trafficSources[j].Source
	})

	var avgDuration time.Duration
	if activeCount > 0 {
		avgDuration = activeDuration / time.Duration(activeCount)
	}

	bounceRate := 0.0
	if totalSessions > 0 {
		bounceRate = math.Round(float64(bounced)*1000/float64(totalSessions)) / 10
	}

	uptime := now.Sub(e.startTime).Seconds()
	requestRate := 0.0
	errorRate := 0.0
	if uptime >= 1 {
		requestRate = float64(totalRequests) / uptime
		errorRate = float64(totalErrors) / uptime
	}

	if e.metrics != nil {
		e.metrics.SessionsActive.Set(float64(activeCount))
		e.metrics.SessionsTotal.Set(float64(totalSessions))
	}

	return Snapshot{
		TotalSessions:      totalSessions,
		ActiveSessions:     activeCount,
		TotalPageViews:     totalViews,
		TotalRequests:      totalRequests,
		TotalErrors:        totalErrors,
		AvgSessionDuration: formatDuration(avgDuration),
		BounceRate:         bounceRate,
		TopPages:           topPages,
		TrafficSources:     trafficSources,
		UptimeSeconds:      uptime,
		RequestsPerSecond:  requestRate,
		ErrorsPerSecond:    errorRate,
		DurationBuckets: DurationBuckets{
			Under100ms:  int64(float64(totalRequests) * 0.70),
			Under500ms:  int64(float64(totalRequests) * 0.90),
			Under1000ms: int64(float64(totalRequests) * 0.98),
			Total:       totalRequests,
		},
	}
}

// PageStats returns every tracked page with its share of total views,
// sorted by view count descending.
func (e *Engine) PageStats() []PageStat {
	e.mu.RLock()

	var totalViews int64
	stats := make([]PageStat, 0, len(e.pages))
	for path, record := range e.pages {
		totalViews += record.views
		stats = append(stats, PageStat{
			Path:           path,
			Views:          record.views,
			UniqueVisitors: len(record.visitors),
			LastAccessed:   record.lastAccessed,
		})
	}

	e.mu.RUnlock()

	if totalViews > 0 {
		for i := range stats {
			stats[i].Percentage = float64(stats[i].Views) * 100 / float64(totalViews)
		}
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Views != stats[j].Views {
			return stats[i].Views > stats[j].Views
		}
		return stats[i].Path < stats[j].Path
	})
	return stats
}

// formatDuration renders a duration as whole minutes and whole remaining
// seconds, the form the dashboard displays.
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
