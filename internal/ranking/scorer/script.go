package scorer

import (
	"context"
	"fmt"
	"time"

	"github.com/rankpilot/rankd/internal/cache"
	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
)

// ScriptScorer ranks content scripts for a product using the same broad OR
// recall query as personas, plus a channel-match signal.
type ScriptScorer struct {
	catalog  ports.CatalogStore
	pool     *cache.Cache[[]domain.Script]
	outcomes OutcomeLookup
	now      func() time.Time
}

func NewScriptScorer(catalog ports.CatalogStore, pool *cache.Cache[[]domain.Script], outcomes OutcomeLookup) *ScriptScorer {
	return &ScriptScorer{catalog: catalog, pool: pool, outcomes: outcomes, now: time.Now}
}

func (s *ScriptScorer) Rank(ctx context.Context, req domain.RecommendRankRequest) (*domain.ScoreResult, error) {
	q := subjectQuery(req)
	scripts, err := s.pool.GetOrSet(ctx, subjectCacheKey("pool:scripts", q), PoolCacheTTL, func(ctx context.Context) ([]domain.Script, error) {
		return s.catalog.ListScripts(ctx, q)
	})
	if err != nil {
		return nil, fmt.Errorf("load script pool: %w", err)
	}

	now := s.now()
	full := make([]domain.CandidateItem, 0, len(scripts))
	for _, sc := range scripts {
		if !sc.Active {
			continue
		}
		full = append(full, s.score(q, req, sc, now))
	}

	return assemble(full, func(item domain.CandidateItem) float64 {
		fine := item.Coarse()
		if s.outcomes != nil {
			if rate, ok := s.outcomes(ctx, domain.TargetScript, item.ID); ok {
				fine += weightOutcome * rate
			}
		}
		return fine
	}), nil
}

func (s *ScriptScorer) score(q domain.SubjectQuery, req domain.RecommendRankRequest, sc domain.Script, now time.Time) domain.CandidateItem {
	coarse := weightBase
	if q.ProductID != "" && sc.ProductID == q.ProductID {
		coarse += weightExactMatch
	}
	if q.ProductName != "" && sc.ProductName == q.ProductName {
		coarse += weightNameMatch
	}
	if q.Category != "" && sc.Category == q.Category {
		coarse += weightCategory
	}
	if q.Subcategory != "" && sc.Subcategory == q.Subcategory {
		coarse += weightSubcategory
	}
	if req.Context.Channel != "" && sc.Channel == req.Context.Channel {
		coarse += weightChannel
	}
	coarse += weightFreshness * freshness(sc.UpdatedAt, now)

	return domain.CandidateItem{
		ID:          sc.ID,
		Type:        domain.TargetScript,
		Name:        sc.Name,
		Title:       sc.Name,
		Summary:     sc.Summary,
		CoarseScore: floatPtr(coarse),
		Reason: map[string]any{
			"productMatch": sc.ProductID != "" && sc.ProductID == q.ProductID,
			"channelMatch": sc.Channel != "" && sc.Channel == req.Context.Channel,
		},
	}
}
