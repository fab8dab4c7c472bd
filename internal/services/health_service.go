package services

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"ibpconv/internal/period"
)

// HealthService provides health check functionality
type HealthService struct {
	version   string
	buildTime string
	commit    string
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                 `json:"status"`
	Timestamp time.Time              `json:"timestamp"`
	Version   string                 `json:"version"`
	Runtime   map[string]interface{} `json:"runtime,omitempty"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one readiness probe.
type CheckResult struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a new health service with build information
func NewHealthService(version, buildTime, commit string, logger *slog.Logger) *HealthService {
	if logger == nil {
		logger = slog.Default()
	}

	logger.Info("HealthService initialized",
		slog.String("version", version),
		slog.String("build_time", buildTime),
		slog.String("commit", commit))

	return &HealthService{
		version:   version,
		buildTime: buildTime,
		commit:    commit,
		startTime: time.Now(),
		logger:    logger,
	}
}

// HealthCheck returns overall health status. The parser self-test runs on
// every call.
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   hs.version,
		Checks: map[string]CheckResult{
			"parser": hs.checkParser(),
		},
	}

	for _, c := range status.Checks {
		if c.Status != "ok" {
			status.Status = "degraded"
		}
	}

	hs.logger.DebugContext(ctx, "HealthCheck: completed",
		slog.String("status", status.Status))
	return status
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   hs.version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	result := map[string]interface{}{
		"version":       hs.version,
		"go_version":    runtime.Version(),
		"os":            runtime.GOOS,
		"arch":          runtime.GOARCH,
		"uptime":        time.Since(hs.startTime).Seconds(),
		"start_time":    hs.startTime.Format(time.RFC3339),
		"current_time":  time.Now().Format(time.RFC3339),
		"granularities": period.Granularities(),
	}

	if hs.buildTime != "" {
		result["build_time"] = hs.buildTime
	}
	if hs.commit != "" {
		result["commit"] = hs.commit
	}
	return result
}

// checkParser resolves a few known labels.
func (hs *HealthService) checkParser() CheckResult {
	probes := []struct {
		label string
		g     period.Granularity
		want  string
	}{
		{"Jan-26", period.Month, "2026-01-01"},
		{"WK02 2025", period.Week, "2025-W02"},
		{"2025", period.Year, "2025-01-01"},
	}
	for _, p := range probes {
		if got := period.Parse(p.label, p.g); got != p.want {
			return CheckResult{Status: "failed", Message: p.label + " resolved to " + got}
		}
	}
	return CheckResult{Status: "ok"}
}
