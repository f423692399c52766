package scorer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rankpilot/rankd/internal/cache"
	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
)

// PromptScorer ranks prompt templates from the business-module-scoped catalog.
// Category-prefix matching against the template naming convention is a hard
// filter; templates under the generic renderer prefix bypass it entirely.
type PromptScorer struct {
	catalog  ports.CatalogStore
	pool     *cache.Cache[[]domain.PromptTemplate]
	outcomes OutcomeLookup
	now      func() time.Time
}

func NewPromptScorer(catalog ports.CatalogStore, pool *cache.Cache[[]domain.PromptTemplate], outcomes OutcomeLookup) *PromptScorer {
	return &PromptScorer{catalog: catalog, pool: pool, outcomes: outcomes, now: time.Now}
}

// ResolveModule canonicalizes legacy module names and rejects unknown modules.
func ResolveModule(name string) (string, error) {
	module := strings.TrimSpace(name)
	if alias, ok := moduleAliases[module]; ok {
		module = alias
	}
	if !supportedModules[module] {
		return "", domain.WrapError(domain.ErrUnsupportedModule, "resolve module", fmt.Errorf("module %q", name))
	}
	return module, nil
}

func (s *PromptScorer) Rank(ctx context.Context, req domain.RecommendRankRequest) (*domain.ScoreResult, error) {
	if req.Task.Prompt == nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "prompt rank", fmt.Errorf("missing prompt task block"))
	}
	module, err := ResolveModule(req.Task.Prompt.BusinessModule)
	if err != nil {
		return nil, err
	}

	key := "pool:prompts:" + module
	templates, err := s.pool.GetOrSet(ctx, key, PoolCacheTTL, func(ctx context.Context) ([]domain.PromptTemplate, error) {
		return s.catalog.ListPromptTemplates(ctx, module)
	})
	if err != nil {
		return nil, fmt.Errorf("load prompt pool: %w", err)
	}

	prefix := categoryPrefixes[req.Task.Category]
	now := s.now()
	full := make([]domain.CandidateItem, 0, len(templates))
	for _, t := range templates {
		if !t.IsActive || t.BusinessModule != module {
			continue
		}
		if !s.categoryEligible(t.Name, prefix) {
			continue
		}
		full = append(full, s.score(req, t, now))
	}

	return assemble(full, func(item domain.CandidateItem) float64 {
		fine := item.Coarse()
		if ratio, ok := item.Reason["variableMatch"].(float64); ok {
			fine += weightNameMatch * ratio
		}
		if s.outcomes != nil {
			if rate, ok := s.outcomes(ctx, domain.TargetPrompt, item.ID); ok {
				fine += weightOutcome * rate
			}
		}
		return fine
	}), nil
}

func (s *PromptScorer) categoryEligible(name, prefix string) bool {
	if strings.HasPrefix(name, GenericRendererPrefix) {
		return true
	}
	if prefix == "" {
		return true
	}
	return strings.HasPrefix(name, prefix)
}

func (s *PromptScorer) score(req domain.RecommendRankRequest, t domain.PromptTemplate, now time.Time) domain.CandidateItem {
	coarse := weightBase
	if t.IsDefault {
		coarse += weightDefault
	}
	coarse += weightFreshness * freshness(t.UpdatedAt, now)

	variableMatch := variableMatchRatio(req.Task.Prompt.Variables, t.Variables)
	coarse += weightCategory * variableMatch

	return domain.CandidateItem{
		ID:          t.ID,
		Type:        domain.TargetPrompt,
		Name:        t.Name,
		Title:       t.Name,
		CoarseScore: floatPtr(coarse),
		Reason: map[string]any{
			"module":        t.BusinessModule,
			"isDefault":     t.IsDefault,
			"variableMatch": variableMatch,
		},
	}
}

// variableMatchRatio is the fraction of requested variables the template
// declares. No requested variables means a neutral full match.
func variableMatchRatio(requested, declared []string) float64 {
	if len(requested) == 0 {
		return 1
	}
	matched := 0
	for _, v := range requested {
		if containsString(declared, v) {
			matched++
		}
	}
	return float64(matched) / float64(len(requested))
}
