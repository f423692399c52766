// Package rankmetrics tracks per-scenario ranking counters and latency
// percentiles in-process, and evaluates the alert thresholds. It is read
// synchronously on the request path, which is why it is not built on the
// prometheus registry (write-only from inside the process).
package rankmetrics

import (
	"math"
	"sort"
	"sync"

	"github.com/rankpilot/rankd/internal/core/domain"
)

const latencyBufferCap = 5000

const (
	fallbackRateThreshold = 0.05
	latencyP95ThresholdMs = 300
)

type counters struct {
	requests  int64
	success   int64
	errors    int64
	cacheHits int64
	fallbacks int64

	latencies []float64 // ring buffer, capped at latencyBufferCap
	next      int
	filled    bool
}

func (c *counters) observeLatency(ms float64) {
	if len(c.latencies) < latencyBufferCap {
		c.latencies = append(c.latencies, ms)
		return
	}
	c.latencies[c.next] = ms
	c.next = (c.next + 1) % latencyBufferCap
	c.filled = true
}

// Sample is one finished ranking call.
type Sample struct {
	DurationMs float64
	Err        bool
	FromCache  bool
	Fallback   bool
}

type Aggregator struct {
	mu        sync.Mutex
	global    counters
	scenarios map[domain.Scenario]*counters
}

func NewAggregator() *Aggregator {
	return &Aggregator{scenarios: make(map[domain.Scenario]*counters)}
}

// Record registers one finished call. Called exactly once per RecommendRank
// invocation regardless of the path taken.
func (a *Aggregator) Record(scenario domain.Scenario, s Sample) {
	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range []*counters{&a.global, a.scenario(scenario)} {
		c.requests++
		if s.Err {
			c.errors++
		} else {
			c.success++
		}
		if s.FromCache {
			c.cacheHits++
		}
		if s.Fallback {
			c.fallbacks++
		}
		c.observeLatency(s.DurationMs)
	}
}

func (a *Aggregator) scenario(s domain.Scenario) *counters {
	c, ok := a.scenarios[s]
	if !ok {
		c = &counters{}
		a.scenarios[s] = c
	}
	return c
}

// Percentile computes the global latency percentile (0..100) over the rolling
// sample buffer via sorted-index interpolation. Returns 0 with no samples.
func (a *Aggregator) Percentile(p float64) float64 {
	a.mu.Lock()
	samples := append([]float64(nil), a.global.latencies...)
	a.mu.Unlock()
	return percentile(samples, p)
}

func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sort.Float64s(samples)
	if p <= 0 {
		return samples[0]
	}
	if p >= 100 {
		return samples[len(samples)-1]
	}
	idx := p / 100 * float64(len(samples)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return samples[lo]
	}
	frac := idx - float64(lo)
	return samples[lo]*(1-frac) + samples[hi]*frac
}

// ShouldAlert fires "fallback" when the global fallback rate exceeds 5% of all
// requests, else "latency" when global p95 exceeds 300ms, else "ok".
func (a *Aggregator) ShouldAlert() domain.AlertState {
	a.mu.Lock()
	requests := a.global.requests
	fallbacks := a.global.fallbacks
	samples := append([]float64(nil), a.global.latencies...)
	a.mu.Unlock()

	if requests > 0 && float64(fallbacks)/float64(requests) > fallbackRateThreshold {
		return domain.AlertFallback
	}
	if percentile(samples, 95) > latencyP95ThresholdMs {
		return domain.AlertLatency
	}
	return domain.AlertOK
}

// Snapshot exports per-scenario rows, sorted by scenario for stable output.
func (a *Aggregator) Snapshot() []domain.ScenarioSnapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]domain.ScenarioSnapshot, 0, len(a.scenarios))
	for name, c := range a.scenarios {
		samples := append([]float64(nil), c.latencies...)
		out = append(out, domain.ScenarioSnapshot{
			Scenario:  name,
			Requests:  c.requests,
			Success:   c.success,
			Errors:    c.errors,
			CacheHits: c.cacheHits,
			Fallbacks: c.fallbacks,
			P50Ms:     percentile(samples, 50),
			P90Ms:     percentile(samples, 90),
			P95Ms:     percentile(samples, 95),
			P99Ms:     percentile(samples, 99),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Scenario < out[j].Scenario })
	return out
}
