package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/eventify-org/server/internal/metrics"
)

// Check is one named readiness probe.
type Check struct {
	Name string
	Run  func(ctx context.Context) error
}

// HealthCheck represents the health status of the server
type HealthCheck struct {
	Status    string                 `json:"status"`
	Version   string                 `json:"version"`
	GitCommit string                 `json:"git_commit"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// CheckResult represents the result of a single health check
type CheckResult struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	LatencyMs int64  `json:"latency_ms"`
}

type HealthChecker struct {
	checks    []Check
	version   string
	gitCommit string
	timeout   time.Duration
}

func NewHealthChecker(version, gitCommit string, checks ...Check) *HealthChecker {
	return &HealthChecker{
		checks:    checks,
		version:   version,
		gitCommit: gitCommit,
		timeout:   2 * time.Second,
	}
}

// Healthz is the liveness probe. It never touches dependencies.
func (h *HealthChecker) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthCheck{
		Status:    "ok",
		Version:   h.version,
		GitCommit: h.gitCommit,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Readyz runs every check with its own timeout and reports 503 when any
// of them fails or the server is shutting down.
func (h *HealthChecker) Readyz(w http.ResponseWriter, r *http.Request) {
	if r.Context().Err() != nil {
		writeJSON(w, http.StatusServiceUnavailable, HealthCheck{Status: "shutting_down"})
		return
	}

	status := "ok"
	code := http.StatusOK
	results := make(map[string]CheckResult, len(h.checks))
	for _, check := range h.checks {
		result := h.run(r.Context(), check)
		results[check.Name] = result
		if result.Status != "pass" {
			status = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}

	writeJSON(w, code, HealthCheck{
		Status:    status,
		Version:   h.version,
		GitCommit: h.gitCommit,
		Checks:    results,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthChecker) run(ctx context.Context, check Check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	start := time.Now()
	err := check.Run(ctx)
	latency := time.Since(start)

	metrics.HealthCheckLatency.WithLabelValues(check.Name).Set(float64(latency.Milliseconds()))
	if err != nil {
		metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(0)
		return CheckResult{Status: "fail", Message: err.Error(), LatencyMs: latency.Milliseconds()}
	}
	metrics.HealthCheckStatus.WithLabelValues(check.Name).Set(1)
	return CheckResult{Status: "pass", LatencyMs: latency.Milliseconds()}
}
