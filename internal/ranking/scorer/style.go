package scorer

import (
	"context"
	"fmt"
	"time"

	"github.com/rankpilot/rankd/internal/cache"
	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
)

// StyleScorer ranks visual/content styles by category and channel affinity.
type StyleScorer struct {
	catalog  ports.CatalogStore
	pool     *cache.Cache[[]domain.Style]
	outcomes OutcomeLookup
	now      func() time.Time
}

func NewStyleScorer(catalog ports.CatalogStore, pool *cache.Cache[[]domain.Style], outcomes OutcomeLookup) *StyleScorer {
	return &StyleScorer{catalog: catalog, pool: pool, outcomes: outcomes, now: time.Now}
}

func (s *StyleScorer) Rank(ctx context.Context, req domain.RecommendRankRequest) (*domain.ScoreResult, error) {
	key := fmt.Sprintf("pool:styles:%s|%s", req.Task.Category, req.Context.Channel)
	styles, err := s.pool.GetOrSet(ctx, key, PoolCacheTTL, func(ctx context.Context) ([]domain.Style, error) {
		return s.catalog.ListStyles(ctx, req.Task.Category, req.Context.Channel)
	})
	if err != nil {
		return nil, fmt.Errorf("load style pool: %w", err)
	}

	now := s.now()
	full := make([]domain.CandidateItem, 0, len(styles))
	for _, st := range styles {
		if !st.Active {
			continue
		}
		full = append(full, s.score(req, st, now))
	}

	return assemble(full, func(item domain.CandidateItem) float64 {
		fine := item.Coarse()
		if s.outcomes != nil {
			if rate, ok := s.outcomes(ctx, domain.TargetStyle, item.ID); ok {
				fine += weightOutcome * rate
			}
		}
		return fine
	}), nil
}

func (s *StyleScorer) score(req domain.RecommendRankRequest, st domain.Style, now time.Time) domain.CandidateItem {
	coarse := weightBase
	if req.Task.Category != "" && st.Category == req.Task.Category {
		coarse += weightCategory
	}
	if req.Context.Channel != "" && st.Channel == req.Context.Channel {
		coarse += weightChannel
	}
	if st.IsDefault {
		coarse += weightDefault
	}
	coarse += weightFreshness * freshness(st.UpdatedAt, now)

	return domain.CandidateItem{
		ID:          st.ID,
		Type:        domain.TargetStyle,
		Name:        st.Name,
		Title:       st.Name,
		CoarseScore: floatPtr(coarse),
		Reason: map[string]any{
			"categoryMatch": st.Category != "" && st.Category == req.Task.Category,
			"channelMatch":  st.Channel != "" && st.Channel == req.Context.Channel,
			"isDefault":     st.IsDefault,
		},
	}
}
