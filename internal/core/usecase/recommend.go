package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rankpilot/rankd/internal/cache"
	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/observability/rankmetrics"
	"github.com/rankpilot/rankd/internal/persistence/asyncwriter"
	"github.com/rankpilot/rankd/internal/ranking/bandit"
	"github.com/rankpilot/rankd/internal/ranking/ltr"
	"github.com/rankpilot/rankd/internal/ranking/scorer"
	"github.com/rankpilot/rankd/internal/strategy"
)

const (
	defaultRankTimeout = 800 * time.Millisecond
	minRankTimeout     = 200 * time.Millisecond
	maxRankTimeout     = 5 * time.Second

	decisionCacheTTL = 60 * time.Second

	coarseExtraSamples = 2
	outOfPoolSamples   = 2
)

// StrategyProvider supplies the externally configurable exploration settings.
type StrategyProvider interface {
	Epsilon(domain.Scenario) float64
	Version() string
}

var _ StrategyProvider = (*strategy.Provider)(nil)

// RecommendUseCase is the ranking orchestrator: cache → scorer dispatch under
// deadline → LTR rerank → bandit rerank → epsilon exploration → async
// provenance → metrics.
type RecommendUseCase struct {
	registry  *scorer.Registry
	ltr       *ltr.Reranker
	bandit    *bandit.Bandit
	writer    *asyncwriter.Writer
	metrics   *rankmetrics.Aggregator
	strategy  StrategyProvider
	decisions *cache.Cache[*domain.RankResponse]

	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

func NewRecommendUseCase(
	registry *scorer.Registry,
	ltrReranker *ltr.Reranker,
	banditReranker *bandit.Bandit,
	writer *asyncwriter.Writer,
	metrics *rankmetrics.Aggregator,
	strategyProvider StrategyProvider,
	decisions *cache.Cache[*domain.RankResponse],
	seed int64,
) *RecommendUseCase {
	return &RecommendUseCase{
		registry:  registry,
		ltr:       ltrReranker,
		bandit:    banditReranker,
		writer:    writer,
		metrics:   metrics,
		strategy:  strategyProvider,
		decisions: decisions,
		rng:       rand.New(rand.NewSource(seed)),
		now:       time.Now,
	}
}

type rankDispatch struct {
	result *domain.ScoreResult
	err    error
}

func (uc *RecommendUseCase) RecommendRank(ctx context.Context, req domain.RecommendRankRequest) (resp *domain.RankResponse, err error) {
	start := uc.now()
	fromCache := false
	fallback := false
	defer func() {
		uc.metrics.Record(req.Scenario, rankmetrics.Sample{
			DurationMs: float64(uc.now().Sub(start).Microseconds()) / 1000.0,
			Err:        err != nil,
			FromCache:  fromCache,
			Fallback:   fallback,
		})
	}()

	if !req.Scenario.Valid() {
		return nil, domain.WrapError(domain.ErrInvalidInput, "recommend rank", fmt.Errorf("unknown scenario %q", req.Scenario))
	}

	key := decisionCacheKey(req)
	if !req.Options.BypassCache {
		if cached, ok := uc.decisions.Get(key); ok {
			fromCache = true
			hit := *cached
			hit.FromCache = true
			return &hit, nil
		}
	}

	sc, ok := uc.registry.Get(req.Scenario)
	if !ok {
		return nil, domain.WrapError(domain.ErrScorerNotRegistered, "recommend rank", fmt.Errorf("scenario %q", req.Scenario))
	}

	result, err := uc.dispatch(ctx, sc, req)
	if err != nil {
		return nil, err
	}

	// LTR establishes the relevance prior, the bandit perturbs within it,
	// then epsilon exploration may override the pick. The stages compound.
	topK := uc.ltr.Rerank(ctx, req, result.TopK)
	topK = uc.bandit.Rerank(topK)

	if len(topK) == 0 {
		return nil, domain.ErrNoRecommendation
	}

	chosen := topK[0]
	epsilon := uc.strategy.Epsilon(req.Scenario)
	var explore *domain.ExploreFlags
	if pick, bucket, ok := uc.explorePick(epsilon, topK, result.CoarseList, result.FullPool); ok {
		chosen = pick
		fallback = true
		explore = &domain.ExploreFlags{Explored: true, Bucket: bucket, Epsilon: epsilon}
	}

	alternatives := uc.alternativeBuckets(topK, result.CoarseList, result.FullPool)

	resp = &domain.RankResponse{
		DecisionID:     uuid.NewString(),
		CandidateSetID: uuid.NewString(),
		Scenario:       req.Scenario,
		Chosen:         chosen,
		TopK:           topK,
		Alternatives:   alternatives,
		Explore:        explore,
	}

	uc.persist(req, resp, result, epsilon)

	if !req.Options.BypassCache {
		uc.decisions.Set(key, resp, decisionCacheTTL)
	}
	return resp, nil
}

// dispatch runs the scorer under the clamped deadline. The scorer keeps
// running after a timeout so its pool work can still land in the pool cache;
// only the caller gives up.
func (uc *RecommendUseCase) dispatch(ctx context.Context, sc scorer.Scorer, req domain.RecommendRankRequest) (*domain.ScoreResult, error) {
	timeout := rankTimeout(req.Constraints)

	ch := make(chan rankDispatch, 1)
	scorerCtx := context.WithoutCancel(ctx)
	go func() {
		result, err := sc.Rank(scorerCtx, req)
		ch <- rankDispatch{result: result, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-ch:
		if out.err != nil {
			return nil, out.err
		}
		return out.result, nil
	case <-timer.C:
		return nil, domain.RankTimeoutError(timeout.Milliseconds())
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func rankTimeout(c domain.Constraints) time.Duration {
	if c.MaxLatencyMs <= 0 {
		return defaultRankTimeout
	}
	d := time.Duration(c.MaxLatencyMs) * time.Millisecond
	if d < minRankTimeout {
		return minRankTimeout
	}
	if d > maxRankTimeout {
		return maxRankTimeout
	}
	return d
}

// explorePick decides, with probability epsilon, to substitute the chosen
// candidate with a pick from the alternative pool and reports its bucket.
func (uc *RecommendUseCase) explorePick(epsilon float64, topK, coarseList, fullPool []domain.CandidateItem) (domain.CandidateItem, string, bool) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.rng.Float64() >= epsilon {
		return domain.CandidateItem{}, "", false
	}

	type tagged struct {
		item   domain.CandidateItem
		bucket string
	}
	pool := make([]tagged, 0, 1+coarseExtraSamples+outOfPoolSamples)
	if len(topK) > 1 {
		pool = append(pool, tagged{item: topK[1], bucket: "fine"})
	}
	for _, item := range sampleLocked(uc.rng, diffByID(coarseList, topK), coarseExtraSamples) {
		pool = append(pool, tagged{item: item, bucket: "coarse"})
	}
	for _, item := range sampleLocked(uc.rng, diffByID(fullPool, coarseList), outOfPoolSamples) {
		pool = append(pool, tagged{item: item, bucket: "oop"})
	}
	if len(pool) == 0 {
		return domain.CandidateItem{}, "", false
	}

	pick := pool[uc.rng.Intn(len(pool))]
	return pick.item, pick.bucket, true
}

// alternativeBuckets samples the UI-facing alternates independently from the
// exploration draw; they are display choices, not the auto-selection.
func (uc *RecommendUseCase) alternativeBuckets(topK, coarseList, fullPool []domain.CandidateItem) domain.AlternativeBuckets {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	var buckets domain.AlternativeBuckets
	if len(topK) > 1 {
		second := topK[1]
		buckets.FineTop2 = &second
	}
	buckets.CoarseExtras = sampleLocked(uc.rng, diffByID(coarseList, topK), coarseExtraSamples)
	buckets.OutOfPool = sampleLocked(uc.rng, diffByID(fullPool, coarseList), outOfPoolSamples)
	return buckets
}

// persist enqueues the full decision provenance; the response path never
// waits on it. Candidate rows cover the coarse list only, so an out-of-pool
// exploration pick may reference a target without a row in its own set.
func (uc *RecommendUseCase) persist(req domain.RecommendRankRequest, resp *domain.RankResponse, result *domain.ScoreResult, epsilon float64) {
	now := uc.now()
	subjectType := "task"
	switch req.Scenario {
	case domain.ScenarioProductPersona, domain.ScenarioProductScript,
		domain.ScenarioProductStyle, domain.ScenarioProductElements:
		subjectType = "product"
	}

	targetType := domain.TargetFor(req.Scenario)
	uc.writer.EnqueueCandidateSet(domain.CandidateSet{
		ID:              resp.CandidateSetID,
		SubjectType:     subjectType,
		SubjectID:       req.Task.SubjectID,
		SubjectSnapshot: marshalJSON(req.Task),
		TargetType:      targetType,
		ContextSnapshot: marshalJSON(req.Context),
		CreatedAt:       now,
	})

	rows := make([]domain.Candidate, 0, len(result.CoarseList))
	for _, c := range result.CoarseList {
		rows = append(rows, domain.Candidate{
			CandidateSetID: resp.CandidateSetID,
			TargetType:     c.Type,
			TargetID:       c.ID,
			CoarseScore:    c.CoarseScore,
			FineScore:      c.FineScore,
			Reason:         marshalJSON(c.Reason),
			CreatedAt:      now,
		})
	}
	uc.writer.EnqueueCandidates(rows)

	weights := map[string]any{"epsilon": epsilon}
	if model := uc.ltr.Model(context.Background()); model != nil {
		weights["ltrVersion"] = model.Version
		weights["ltrBias"] = model.Bias
		weights["ltrWeights"] = model.Weights
	}
	exploreFlags := ""
	if resp.Explore != nil {
		exploreFlags = marshalJSON(resp.Explore)
	}
	uc.writer.EnqueueDecision(domain.Decision{
		ID:               resp.DecisionID,
		CandidateSetID:   resp.CandidateSetID,
		ChosenTargetType: resp.Chosen.Type,
		ChosenTargetID:   resp.Chosen.ID,
		StrategyVersion:  strategyVersion(req, uc.strategy),
		WeightsSnapshot:  marshalJSON(weights),
		TopK:             len(resp.TopK),
		ExploreFlags:     exploreFlags,
		CreatedAt:        now,
	})
}

func strategyVersion(req domain.RecommendRankRequest, p StrategyProvider) string {
	if req.Options.StrategyVersion != "" {
		return req.Options.StrategyVersion
	}
	return p.Version()
}

func marshalJSON(v any) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// diffByID returns items of a whose id does not occur in b.
func diffByID(a, b []domain.CandidateItem) []domain.CandidateItem {
	exclude := make(map[string]bool, len(b))
	for _, item := range b {
		exclude[item.ID] = true
	}
	out := make([]domain.CandidateItem, 0, len(a))
	for _, item := range a {
		if !exclude[item.ID] {
			out = append(out, item)
		}
	}
	return out
}

// sampleLocked draws up to n items uniformly without replacement. Caller must
// hold uc.mu (shared rng).
func sampleLocked(rng *rand.Rand, items []domain.CandidateItem, n int) []domain.CandidateItem {
	if len(items) == 0 || n <= 0 {
		return nil
	}
	if n >= len(items) {
		out := make([]domain.CandidateItem, len(items))
		copy(out, items)
		rng.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}
	idx := rng.Perm(len(items))[:n]
	out := make([]domain.CandidateItem, 0, n)
	for _, i := range idx {
		out = append(out, items[i])
	}
	return out
}
