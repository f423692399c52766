package domain

import "time"

// AlertState is the metrics aggregator's threshold verdict.
type AlertState string

const (
	AlertFallback AlertState = "fallback"
	AlertLatency  AlertState = "latency"
	AlertOK       AlertState = "ok"
)

// ScenarioSnapshot is one row of the metrics export, grouped by scenario.
type ScenarioSnapshot struct {
	Scenario  Scenario `json:"scenario"`
	Requests  int64    `json:"requests"`
	Success   int64    `json:"success"`
	Errors    int64    `json:"errors"`
	CacheHits int64    `json:"cache_hits"`
	Fallbacks int64    `json:"fallbacks"`
	P50Ms     float64  `json:"p50_ms"`
	P90Ms     float64  `json:"p90_ms"`
	P95Ms     float64  `json:"p95_ms"`
	P99Ms     float64  `json:"p99_ms"`
}

// AlertPayload is POSTed to the configured webhook on alert-state transitions.
type AlertPayload struct {
	Type     string             `json:"type"`
	Snapshot []ScenarioSnapshot `json:"snapshot"`
	Alert    AlertState         `json:"alert"`
	TS       time.Time          `json:"ts"`
}
