package analytics

import (
	"strings"
	"testing"

	"github.com/platinummonkey/beacon/pkg/observability"
)

func TestEvaluateNoAlerts(t *testing.T) {
	alerter := NewAlerter(Thresholds{
		MaxErrorRate:  1.0,
		MaxErrorRatio: 0.05,
		MaxBounceRate: 90.0,
	}, nil)

	alerts := alerter.Evaluate(Snapshot{
		TotalRequests:   1000,
		TotalErrors:     10,
		ErrorsPerSecond: 0.1,
		BounceRate:      42.0,
	})
	if len(alerts) != 0 {
		t.Errorf("expected no alerts, got %+v", alerts)
	}
}

func TestEvaluateErrorRate(t *testing.T) {
	alerter := NewAlerter(Thresholds{MaxErrorRate: 1.0}, nil)

	alerts := alerter.Evaluate(Snapshot{ErrorsPerSecond: 2.5})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}

	alert := alerts[0]
	if alert.Type != "errors" || alert.Severity != SeverityCritical {
		t.Errorf("alert = %+v, want critical errors alert", alert)
	}
	if !strings.Contains(alert.Message, "2.50") {
		t.Errorf("message should carry the measured rate: %q", alert.Message)
	}
	if alert.TriggeredAt.IsZero() {
		t.Error("TriggeredAt must be set")
	}
}

func TestEvaluateErrorRatio(t *testing.T) {
	alerter := NewAlerter(Thresholds{MaxErrorRatio: 0.05}, nil)

	t.Run("above threshold", func(t *testing.T) {
		alerts := alerter.Evaluate(Snapshot{TotalRequests: 100, TotalErrors: 10})
		if len(alerts) != 1 {
			t.Fatalf("expected 1 alert, got %d", len(alerts))
		}
		if alerts[0].Severity != SeverityCritical {
			t.Errorf("severity = %q, want critical", alerts[0].Severity)
		}
	})

	t.Run("exactly at threshold", func(t *testing.T) {
		alerts := alerter.Evaluate(Snapshot{TotalRequests: 100, TotalErrors: 5})
		if len(alerts) != 0 {
			t.Errorf("threshold is exclusive, got %+v", alerts)
		}
	})

	t.Run("no requests", func(t *testing.T) {
		alerts := alerter.Evaluate(Snapshot{TotalRequests: 0, TotalErrors: 0})
		if len(alerts) != 0 {
			t.Errorf("no requests means no ratio alert, got %+v", alerts)
		}
	})
}

func TestEvaluateBounceRate(t *testing.T) {
	alerter := NewAlerter(Thresholds{MaxBounceRate: 90.0}, nil)

	alerts := alerter.Evaluate(Snapshot{TotalSessions: 20, BounceRate: 95.5})
	if len(alerts) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(alerts))
	}
	if alerts[0].Type != "engagement" || alerts[0].Severity != SeverityWarning {
		t.Errorf("alert = %+v, want engagement warning", alerts[0])
	}
}

func TestEvaluateDisabledThresholds(t *testing.T) {
	alerter := NewAlerter(Thresholds{}, nil)

	alerts := alerter.Evaluate(Snapshot{
		TotalRequests:   100,
		TotalErrors:     100,
		ErrorsPerSecond: 50,
		BounceRate:      100,
	})
	if len(alerts) != 0 {
		t.Errorf("zero thresholds disable every check, got %+v", alerts)
	}
}

func TestEvaluateMultiple(t *testing.T) {
	buf := &syncBuffer{}
	alerter := NewAlerter(Thresholds{
		MaxErrorRate:  1.0,
		MaxErrorRatio: 0.05,
		MaxBounceRate: 90.0,
	}, observability.NewLogger(observability.InfoLevel, buf))

	alerts := alerter.Evaluate(Snapshot{
		TotalRequests:   100,
		TotalErrors:     20,
		ErrorsPerSecond: 3.0,
		BounceRate:      99.0,
	})
	if len(alerts) != 3 {
		t.Fatalf("expected 3 alerts, got %d: %+v", len(alerts), alerts)
	}

	logged := buf.String()
	for _, title := range []string{
		"Error rate above threshold",
		"Error ratio above threshold",
		"Bounce rate above threshold",
	} {
		if !strings.Contains(logged, title) {
			t.Errorf("expected %q in log output, got: %s", title, logged)
		}
	}
}
