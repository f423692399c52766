// Package bandit holds per-candidate Beta(a,b) beliefs and re-ranks an
// already-filtered topK by Thompson sampling. It is a light within-request
// perturbation, not the primary ranking.
package bandit

import (
	"math"
	"math/rand"
	"sort"
	"sync"

	"github.com/rankpilot/rankd/internal/core/domain"
)

// Sampler draws one belief sample for an arm with Beta parameters (a, b).
// Isolated so the approximation below can be swapped for an exact
// gamma-based Beta sampler without touching the orchestrator.
type Sampler interface {
	Sample(a, b float64) float64
}

// PowerSampler approximates a Beta draw as x^(1/a) / (x^(1/a) + y^(1/b)) with
// independent uniform x, y. Not statistically exact, sufficient for ranking.
type PowerSampler struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewPowerSampler(seed int64) *PowerSampler {
	return &PowerSampler{rng: rand.New(rand.NewSource(seed))}
}

func (s *PowerSampler) Sample(a, b float64) float64 {
	s.mu.Lock()
	x := s.rng.Float64()
	y := s.rng.Float64()
	s.mu.Unlock()

	xa := math.Pow(x, 1/a)
	yb := math.Pow(y, 1/b)
	denom := xa + yb
	if denom == 0 {
		return 0.5
	}
	return xa / denom
}

type beta struct {
	a float64 // successes + 1
	b float64 // failures + 1
}

// Bandit state grows unbounded with the candidate universe; acceptable because
// the universe is bounded by catalog size.
type Bandit struct {
	mu      sync.Mutex
	arms    map[string]beta
	sampler Sampler
}

func New(sampler Sampler) *Bandit {
	return &Bandit{
		arms:    make(map[string]beta),
		sampler: sampler,
	}
}

func (b *Bandit) arm(id string) beta {
	b.mu.Lock()
	defer b.mu.Unlock()
	if arm, ok := b.arms[id]; ok {
		return arm
	}
	return beta{a: 1, b: 1} // uniform prior
}

// SuccessRate reports the posterior mean for an arm. The second return is
// false for arms that never received feedback, so callers can fall back to
// their own priors.
func (b *Bandit) SuccessRate(id string) (float64, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	arm, ok := b.arms[id]
	if !ok {
		return 0, false
	}
	return arm.a / (arm.a + arm.b), true
}

// Rerank draws one sample per item and sorts descending by sample.
func (b *Bandit) Rerank(items []domain.CandidateItem) []domain.CandidateItem {
	if len(items) < 2 {
		return items
	}

	type drawn struct {
		item   domain.CandidateItem
		sample float64
	}
	draws := make([]drawn, len(items))
	for i, item := range items {
		arm := b.arm(item.ID)
		draws[i] = drawn{item: item, sample: b.sampler.Sample(arm.a, arm.b)}
	}
	sort.SliceStable(draws, func(i, j int) bool { return draws[i].sample > draws[j].sample })

	out := make([]domain.CandidateItem, len(items))
	for i, d := range draws {
		out[i] = d.item
	}
	return out
}

// RecordFeedback updates the arm's Beta parameters from a feedback signal.
// Lost updates under concurrent calls are tolerated.
func (b *Bandit) RecordFeedback(id string, fb domain.Feedback) {
	if id == "" {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	arm, ok := b.arms[id]
	if !ok {
		arm = beta{a: 1, b: 1}
	}
	if fb.Positive() {
		arm.a++
	} else {
		arm.b++
	}
	b.arms[id] = arm
}
