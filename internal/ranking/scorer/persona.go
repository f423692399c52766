package scorer

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rankpilot/rankd/internal/cache"
	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
)

// PersonaScorer ranks personas for a product via a broad OR recall query.
// Rank 1 is always the best fine-scored match; ranks 2..K are sampled without
// replacement so repeated calls for the same subject show varied alternates.
type PersonaScorer struct {
	catalog  ports.CatalogStore
	pool     *cache.Cache[[]domain.Persona]
	outcomes OutcomeLookup
	now      func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewPersonaScorer(catalog ports.CatalogStore, pool *cache.Cache[[]domain.Persona], outcomes OutcomeLookup, seed int64) *PersonaScorer {
	return &PersonaScorer{
		catalog:  catalog,
		pool:     pool,
		outcomes: outcomes,
		now:      time.Now,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

func subjectQuery(req domain.RecommendRankRequest) domain.SubjectQuery {
	q := domain.SubjectQuery{
		ProductID: req.Task.SubjectID,
		Category:  req.Task.Category,
	}
	if req.Task.Product != nil {
		q.ProductName = req.Task.Product.ProductName
		q.Subcategory = req.Task.Product.Subcategory
	}
	return q
}

func subjectCacheKey(prefix string, q domain.SubjectQuery) string {
	return fmt.Sprintf("%s:%s|%s|%s|%s", prefix, q.ProductID, q.ProductName, q.Category, q.Subcategory)
}

func (s *PersonaScorer) Rank(ctx context.Context, req domain.RecommendRankRequest) (*domain.ScoreResult, error) {
	q := subjectQuery(req)
	personas, err := s.pool.GetOrSet(ctx, subjectCacheKey("pool:personas", q), PoolCacheTTL, func(ctx context.Context) ([]domain.Persona, error) {
		return s.catalog.ListPersonas(ctx, q)
	})
	if err != nil {
		return nil, fmt.Errorf("load persona pool: %w", err)
	}

	now := s.now()
	full := make([]domain.CandidateItem, 0, len(personas))
	for _, p := range personas {
		if !p.Active {
			continue
		}
		if req.Context.Region != "" && p.Region != "" && p.Region != req.Context.Region {
			continue
		}
		full = append(full, s.score(q, req, p, now))
	}

	result := assemble(full, func(item domain.CandidateItem) float64 {
		fine := item.Coarse()
		if s.outcomes != nil {
			if rate, ok := s.outcomes(ctx, domain.TargetPersona, item.ID); ok {
				fine += weightOutcome * rate
			}
		}
		return fine
	})

	if len(result.TopK) > 1 {
		fineSorted := make([]domain.CandidateItem, len(result.CoarseList))
		copy(fineSorted, result.CoarseList)
		sortByFine(fineSorted)

		s.mu.Lock()
		result.TopK = diversify(fineSorted, TopKSize, s.rng)
		s.mu.Unlock()
	}
	return result, nil
}

func (s *PersonaScorer) score(q domain.SubjectQuery, req domain.RecommendRankRequest, p domain.Persona, now time.Time) domain.CandidateItem {
	coarse := weightBase
	if q.ProductID != "" && p.ProductID == q.ProductID {
		coarse += weightExactMatch
	}
	if q.ProductName != "" && p.ProductName == q.ProductName {
		coarse += weightNameMatch
	}
	if q.Category != "" && p.Category == q.Category {
		coarse += weightCategory
	}
	if q.Subcategory != "" && p.Subcategory == q.Subcategory {
		coarse += weightSubcategory
	}
	if req.Context.Region != "" && p.Region == req.Context.Region {
		coarse += weightRegion
	}
	coarse += weightFreshness * freshness(p.UpdatedAt, now)

	return domain.CandidateItem{
		ID:          p.ID,
		Type:        domain.TargetPersona,
		Name:        p.Name,
		Title:       p.Name,
		Summary:     p.Summary,
		CoarseScore: floatPtr(coarse),
		Reason: map[string]any{
			"productMatch":  p.ProductID != "" && p.ProductID == q.ProductID,
			"categoryMatch": p.Category != "" && p.Category == q.Category,
			"region":        p.Region,
		},
	}
}
