// Package scorer implements the per-scenario ranking algorithms and the
// registry the orchestrator dispatches through.
package scorer

import (
	"context"
	"sync"

	"github.com/rankpilot/rankd/internal/core/domain"
)

// Scorer ranks candidates for one scenario. An empty hard-constraint survivor
// set yields an all-empty result, not an error; errors are reserved for
// genuine misconfiguration.
type Scorer interface {
	Rank(ctx context.Context, req domain.RecommendRankRequest) (*domain.ScoreResult, error)
}

// OutcomeLookup is the extension hook for historical-outcome signals in fine
// scoring. A nil lookup is a no-op; fine scores then stay an adjustment of the
// coarse score.
type OutcomeLookup func(ctx context.Context, target domain.TargetType, id string) (float64, bool)

// Registry maps scenarios to scorers. Populated via explicit Register calls
// from the startup routine, never by import side effects.
type Registry struct {
	mu      sync.RWMutex
	scorers map[domain.Scenario]Scorer
}

func NewRegistry() *Registry {
	return &Registry{scorers: make(map[domain.Scenario]Scorer)}
}

func (r *Registry) Register(scenario domain.Scenario, s Scorer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scorers[scenario] = s
}

// Get reports false for unregistered scenarios; the caller must treat that as
// a fatal configuration error.
func (r *Registry) Get(scenario domain.Scenario) (Scorer, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scorers[scenario]
	return s, ok
}
