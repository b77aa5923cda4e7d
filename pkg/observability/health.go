package observability

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// CheckFunc probes a single dependency and reports its status.
type CheckFunc func(ctx context.Context) DependencyStatus

type check struct {
	fn       CheckFunc
	optional bool
}

// HealthChecker aggregates named dependency checks into a single status.
// Critical checks drive the overall status to unhealthy; optional checks
// only degrade it.
type HealthChecker struct {
	mu      sync.RWMutex
	checks  map[string]check
	version string
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(version string) *HealthChecker {
	return &HealthChecker{
		checks:  make(map[string]check),
		version: version,
	}
}

// AddCheck registers a critical dependency check.
func (h *HealthChecker) AddCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check{fn: fn}
}

// AddOptionalCheck registers a check whose failure degrades the service
// instead of marking it unhealthy.
func (h *HealthChecker) AddOptionalCheck(name string, fn CheckFunc) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check{fn: fn, optional: true}
}

// HealthStatus represents the overall health status
type HealthStatus struct {
	Status       string                      `json:"status"`
	Timestamp    time.Time                   `json:"timestamp"`
	Version      string                      `json:"version,omitempty"`
	Dependencies map[string]DependencyStatus `json:"dependencies,omitempty"`
}

// DependencyStatus represents the health of a single dependency
type DependencyStatus struct {
	Status    string    `json:"status"`
	Message   string    `json:"message,omitempty"`
	Latency   int64     `json:"latency_ms,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// Liveness returns a simple liveness probe (always returns 200 if server is running)
func (h *HealthChecker) Liveness(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    StatusHealthy,
		"timestamp": time.Now(),
	})
}

// Readiness returns a readiness probe (checks all dependencies)
func (h *HealthChecker) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := h.Check(ctx)

	w.Header().Set("Content-Type", "application/json")

	// Return 503 if unhealthy, 200 if healthy or degraded
	if status.Status == StatusUnhealthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	} else {
		w.WriteHeader(http.StatusOK)
	}

	json.NewEncoder(w).Encode(status)
}

// Check runs every registered check and aggregates the results
func (h *HealthChecker) Check(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:       StatusHealthy,
		Timestamp:    time.Now(),
		Version:      h.version,
		Dependencies: make(map[string]DependencyStatus),
	}

	h.mu.RLock()
	checks := make(map[string]check, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	for name, c := range checks {
		depStatus := c.fn(ctx)
		status.Dependencies[name] = depStatus

		switch depStatus.Status {
		case StatusUnhealthy:
			if c.optional {
				if status.Status != StatusUnhealthy {
					status.Status = StatusDegraded
				}
			} else {
				status.Status = StatusUnhealthy
			}
		case StatusDegraded:
			if status.Status != StatusUnhealthy {
				status.Status = StatusDegraded
			}
		}
	}

	return status
}

// DirWritableCheck returns a check that verifies the given directory exists
// and accepts writes. Used for the metrics data directory.
func DirWritableCheck(dir string) CheckFunc {
	return func(ctx context.Context) DependencyStatus {
		start := time.Now()
		status := DependencyStatus{
			Status:    StatusHealthy,
			Timestamp: time.Now(),
		}

		probe := filepath.Join(dir, ".health-probe")
		err := os.WriteFile(probe, []byte("ok"), 0644)
		status.Latency = time.Since(start).Milliseconds()

		if err != nil {
			status.Status = StatusUnhealthy
			status.Message = err.Error()
			return status
		}
		os.Remove(probe)

		return status
	}
}

// RegisterHealthRoutes registers health check endpoints
func RegisterHealthRoutes(mux *http.ServeMux, checker *HealthChecker) {
	mux.HandleFunc("/health", checker.Readiness)
	mux.HandleFunc("/health/live", checker.Liveness)
	mux.HandleFunc("/health/ready", checker.Readiness)
}
