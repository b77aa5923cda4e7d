package analytics

import (
	"fmt"
	"time"

	"github.com/platinummonkey/beacon/pkg/observability"
)

// Alert severities
const (
	SeverityCritical = "critical"
	SeverityWarning  = "warning"
)

// Alert represents an alert notification derived from a metrics snapshot.
type Alert struct {
	Type        string                 `json:"type"`     // "errors", "engagement"
	Severity    string                 `json:"severity"` // "critical", "warning"
	Title       string                 `json:"title"`
	Message     string                 `json:"message"`
	Details     map[string]interface{} `json:"details,omitempty"`
	TriggeredAt time.Time              `json:"triggeredAt"`
}

// Thresholds configures alert evaluation. A zero threshold disables its
// check.
type Thresholds struct {
	// MaxErrorRate is the tolerated error rate in errors per second.
	MaxErrorRate float64

	// MaxErrorRatio is the tolerated share of requests that are errors,
	// expressed as a fraction (0.05 = 5%).
	MaxErrorRatio float64

	// MaxBounceRate is the tolerated bounce rate percentage.
	MaxBounceRate float64
}

// Alerter evaluates metric snapshots against configured thresholds.
type Alerter struct {
	thresholds Thresholds
	logger     *observability.Logger
}

// NewAlerter creates a new Alerter instance. A nil logger falls back to
// the no-op logger.
func NewAlerter(thresholds Thresholds, logger *observability.Logger) *Alerter {
	if logger == nil {
		logger = observability.NewNopLogger()
	}
	return &Alerter{thresholds: thresholds, logger: logger}
}

// Evaluate checks a snapshot against every enabled threshold and returns
// the alerts that fired. Each fired alert is also logged at warn level.
func (a *Alerter) Evaluate(snap Snapshot) []Alert {
	now := time.Now()
	var alerts []Alert

	if a.thresholds.MaxErrorRate > 0 && snap.ErrorsPerSecond > a.thresholds.MaxErrorRate {
		alerts = append(alerts, Alert{
			Type:     "errors",
			Severity: SeverityCritical,
			Title:    "Error rate above threshold",
			Message: fmt.Sprintf("error rate %.2f/s exceeds threshold %.2f/s",
				snap.ErrorsPerSecond, a.thresholds.MaxErrorRate),
			Details: map[string]interface{}{
				"errorsPerSecond": snap.ErrorsPerSecond,
				"threshold":       a.thresholds.MaxErrorRate,
			},
			TriggeredAt: now,
		})
	}

	if a.thresholds.MaxErrorRatio > 0 && snap.TotalRequests > 0 {
		ratio := float64(snap.TotalErrors) / float64(snap.TotalRequests)
		if ratio > a.thresholds.MaxErrorRatio {
			alerts = append(alerts, Alert{
				Type:     "errors",
				Severity: SeverityCritical,
				Title:    "Error ratio above threshold",
				Message: fmt.Sprintf("%.1f%% of requests errored, threshold is %.1f%%",
					ratio*100, a.thresholds.MaxErrorRatio*100),
				Details: map[string]interface{}{
					"totalErrors":   snap.TotalErrors,
					"totalRequests": snap.TotalRequests,
					"errorRatio":    ratio,
					"threshold":     a.thresholds.MaxErrorRatio,
				},
				TriggeredAt: now,
			})
		}
	}

	if a.thresholds.MaxBounceRate > 0 && snap.BounceRate > a.thresholds.MaxBounceRate {
		alerts = append(alerts, Alert{
			Type:     "engagement",
			Severity: SeverityWarning,
			Title:    "Bounce rate above threshold",
			Message: fmt.Sprintf("bounce rate %.1f%% exceeds threshold %.1f%%",
				snap.BounceRate, a.thresholds.MaxBounceRate),
			Details: map[string]interface{}{
				"bounceRate":    snap.BounceRate,
				"totalSessions": snap.TotalSessions,
				"threshold":     a.thresholds.MaxBounceRate,
			},
			TriggeredAt: now,
		})
	}

	for _, alert := range alerts {
		a.logger.WithFields(map[string]interface{}{
			"type":     alert.Type,
			"severity": alert.Severity,
			"message":  alert.Message,
		}).Warn(alert.Title)
	}
	return alerts
}
