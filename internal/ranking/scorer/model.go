package scorer

import (
	"context"
	"fmt"
	"time"

	"github.com/rankpilot/rankd/internal/cache"
	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
)

// ModelScorer ranks AI models for a task. The candidate pool is restricted to
// providers currently verified in the external verification artifact;
// unverified providers are silently excluded even when otherwise eligible.
type ModelScorer struct {
	catalog   ports.CatalogStore
	providers ports.VerifiedProviderSource
	pool      *cache.Cache[[]domain.ModelCandidate]
	outcomes  OutcomeLookup
	now       func() time.Time
}

func NewModelScorer(catalog ports.CatalogStore, providers ports.VerifiedProviderSource, pool *cache.Cache[[]domain.ModelCandidate], outcomes OutcomeLookup) *ModelScorer {
	return &ModelScorer{
		catalog:   catalog,
		providers: providers,
		pool:      pool,
		outcomes:  outcomes,
		now:       time.Now,
	}
}

// ProviderKey maps an external provider display name to its internal key.
// Unknown names map to themselves lowercased by convention of the catalog.
func ProviderKey(displayName string) string {
	if key, ok := providerKeys[displayName]; ok {
		return key
	}
	return displayName
}

func (s *ModelScorer) Rank(ctx context.Context, req domain.RecommendRankRequest) (*domain.ScoreResult, error) {
	models, err := s.pool.GetOrSet(ctx, "pool:models", PoolCacheTTL, func(ctx context.Context) ([]domain.ModelCandidate, error) {
		return s.catalog.ListModels(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("load model pool: %w", err)
	}

	// The verification artifact is re-read on every call; a stale allow-list
	// here would defeat its purpose as a safety valve.
	verified, err := s.providers.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load verified providers: %w", err)
	}

	survivors := make([]domain.ModelCandidate, 0, len(models))
	maxPrice := 0.0
	for _, m := range models {
		if !s.eligible(req, verified, m) {
			continue
		}
		survivors = append(survivors, m)
		if m.PricePer1K > maxPrice {
			maxPrice = m.PricePer1K
		}
	}

	now := s.now()
	full := make([]domain.CandidateItem, 0, len(survivors))
	for _, m := range survivors {
		full = append(full, s.score(req, m, maxPrice, now))
	}

	return assemble(full, func(item domain.CandidateItem) float64 {
		fine := item.Coarse()
		if s.outcomes != nil {
			if rate, ok := s.outcomes(ctx, domain.TargetModel, item.ID); ok {
				fine += weightOutcome * rate
			}
		}
		return fine
	}), nil
}

func (s *ModelScorer) eligible(req domain.RecommendRankRequest, verified map[string]bool, m domain.ModelCandidate) bool {
	if !m.Active || !verified[m.Provider] {
		return false
	}
	if req.Task.Language != "" && len(m.Languages) > 0 && !containsString(m.Languages, req.Task.Language) {
		return false
	}
	if (req.Task.RequireJSON || req.Constraints.RequireJSONMode) && !m.SupportsJSON {
		return false
	}
	if req.Task.Model != nil && req.Task.Model.Vision && !m.Vision {
		return false
	}
	if req.Constraints.MaxCostPer1K > 0 && m.PricePer1K > req.Constraints.MaxCostPer1K {
		return false
	}
	if len(req.Constraints.ProviderAllow) > 0 && !containsString(req.Constraints.ProviderAllow, m.Provider) {
		return false
	}
	if containsString(req.Constraints.ProviderDeny, m.Provider) {
		return false
	}
	if req.Context.Region != "" && len(m.Regions) > 0 && !containsString(m.Regions, req.Context.Region) {
		return false
	}
	return true
}

func (s *ModelScorer) score(req domain.RecommendRankRequest, m domain.ModelCandidate, maxPrice float64, now time.Time) domain.CandidateItem {
	langMatch := req.Task.Language == "" || containsString(m.Languages, req.Task.Language)
	price := 0.5
	if maxPrice > 0 {
		price = m.PricePer1K / maxPrice
	}

	coarse := weightBase
	if langMatch && req.Task.Language != "" {
		coarse += weightExactMatch
	}
	if m.SupportsJSON {
		coarse += weightDefault
	}
	coarse += weightPrice * (1 - price)
	coarse += weightFreshness * freshness(m.UpdatedAt, now)
	if req.Context.Region != "" && containsString(m.Regions, req.Context.Region) {
		coarse += weightRegion
	}

	return domain.CandidateItem{
		ID:          m.ID,
		Type:        domain.TargetModel,
		Name:        m.Name,
		Title:       m.Name,
		CoarseScore: floatPtr(coarse),
		Reason: map[string]any{
			"provider":    m.Provider,
			"langMatch":   langMatch,
			"jsonSupport": m.SupportsJSON,
			"price":       price,
		},
	}
}
