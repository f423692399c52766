package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/rankpilot/rankd/internal/cache"
	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/observability/rankmetrics"
	"github.com/rankpilot/rankd/internal/persistence/asyncwriter"
	"github.com/rankpilot/rankd/internal/ranking/bandit"
	"github.com/rankpilot/rankd/internal/ranking/ltr"
	"github.com/rankpilot/rankd/internal/ranking/scorer"
)

type fakeScorer struct {
	mu     sync.Mutex
	calls  int
	result *domain.ScoreResult
	err    error
	block  chan struct{}
}

func (f *fakeScorer) Rank(ctx context.Context, req domain.RecommendRankRequest) (*domain.ScoreResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.block != nil {
		<-f.block
	}
	return f.result, f.err
}

func (f *fakeScorer) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type provenanceFake struct {
	mu        sync.Mutex
	sets      []domain.CandidateSet
	rows      []domain.Candidate
	decisions []domain.Decision
	outcomes  []domain.Outcome
}

func (p *provenanceFake) CreateCandidateSets(_ context.Context, sets []domain.CandidateSet) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sets = append(p.sets, sets...)
	return nil
}

func (p *provenanceFake) CreateCandidates(_ context.Context, candidates []domain.Candidate) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.rows = append(p.rows, candidates...)
	return nil
}

func (p *provenanceFake) CreateDecisions(_ context.Context, decisions []domain.Decision) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.decisions = append(p.decisions, decisions...)
	return nil
}

func (p *provenanceFake) UpsertOutcome(_ context.Context, outcome domain.Outcome) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes = append(p.outcomes, outcome)
	return nil
}

type fixedStrategy struct {
	epsilon float64
}

func (s fixedStrategy) Epsilon(domain.Scenario) float64 { return s.epsilon }
func (s fixedStrategy) Version() string                 { return "v-test" }

type noModelSource struct{}

func (noModelSource) Load(context.Context) (*domain.LTRModel, error) { return nil, nil }

func scorePtr(v float64) *float64 { return &v }

func pooledResult() *domain.ScoreResult {
	item := func(id string, coarse, fine float64) domain.CandidateItem {
		return domain.CandidateItem{
			ID:          id,
			Type:        domain.TargetScript,
			CoarseScore: scorePtr(coarse),
			FineScore:   scorePtr(fine),
		}
	}
	full := []domain.CandidateItem{
		item("s-1", 0.9, 0.95),
		item("s-2", 0.8, 0.85),
		item("s-3", 0.7, 0.75),
		item("s-4", 0.6, 0.65),
		item("s-5", 0.5, 0.55),
		item("s-6", 0.4, 0.45),
		item("s-7", 0.3, 0.35),
		item("s-8", 0.2, 0.25),
	}
	return &domain.ScoreResult{
		TopK:       full[:3],
		CoarseList: full[:6],
		FullPool:   full,
	}
}

type recommendEnv struct {
	uc      *RecommendUseCase
	sc      *fakeScorer
	store   *provenanceFake
	writer  *asyncwriter.Writer
	metrics *rankmetrics.Aggregator
}

func newRecommendEnv(t *testing.T, sc *fakeScorer, epsilon float64) *recommendEnv {
	t.Helper()

	registry := scorer.NewRegistry()
	registry.Register(domain.ScenarioProductScript, sc)

	store := &provenanceFake{}
	writer := asyncwriter.New(store, asyncwriter.Options{FlushInterval: time.Hour})
	writer.Start()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		writer.Close(ctx)
	})

	metrics := rankmetrics.NewAggregator()
	uc := NewRecommendUseCase(
		registry,
		ltr.NewReranker(noModelSource{}),
		bandit.New(bandit.NewPowerSampler(1)),
		writer,
		metrics,
		fixedStrategy{epsilon: epsilon},
		cache.New[*domain.RankResponse](64),
		1,
	)
	return &recommendEnv{uc: uc, sc: sc, store: store, writer: writer, metrics: metrics}
}

func scriptRequest() domain.RecommendRankRequest {
	return domain.RecommendRankRequest{
		Scenario: domain.ScenarioProductScript,
		Task:     domain.TaskFeatures{Category: "美妆", SubjectID: "prod-1"},
		Context:  domain.RequestContext{Channel: "tiktok"},
	}
}

func TestRecommendRankDecisionCacheRepeatsDecision(t *testing.T) {
	sc := &fakeScorer{result: pooledResult()}
	env := newRecommendEnv(t, sc, 0)

	first, err := env.uc.RecommendRank(context.Background(), scriptRequest())
	if err != nil {
		t.Fatalf("first call: %v", err)
	}
	if first.FromCache {
		t.Fatal("first call must not be served from cache")
	}

	second, err := env.uc.RecommendRank(context.Background(), scriptRequest())
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !second.FromCache {
		t.Fatal("second identical call should hit the decision cache")
	}
	if second.DecisionID != first.DecisionID {
		t.Fatalf("cached call changed decision id: %s vs %s", second.DecisionID, first.DecisionID)
	}
	if got := sc.callCount(); got != 1 {
		t.Fatalf("scorer calls = %d, want 1", got)
	}
}

func TestRecommendRankBypassCacheRescores(t *testing.T) {
	sc := &fakeScorer{result: pooledResult()}
	env := newRecommendEnv(t, sc, 0)

	req := scriptRequest()
	req.Options.BypassCache = true
	for i := 0; i < 2; i++ {
		if _, err := env.uc.RecommendRank(context.Background(), req); err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
	}
	if got := sc.callCount(); got != 2 {
		t.Fatalf("scorer calls = %d, want 2", got)
	}
}

func TestRecommendRankNoExplorationAtZeroEpsilon(t *testing.T) {
	sc := &fakeScorer{result: pooledResult()}
	env := newRecommendEnv(t, sc, 0)

	req := scriptRequest()
	req.Options.BypassCache = true
	for i := 0; i < 50; i++ {
		resp, err := env.uc.RecommendRank(context.Background(), req)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if resp.Explore != nil {
			t.Fatalf("call %d explored with epsilon 0", i)
		}
		if resp.Chosen.ID != resp.TopK[0].ID {
			t.Fatalf("call %d chose %s over rank-1 %s without exploring", i, resp.Chosen.ID, resp.TopK[0].ID)
		}
	}
}

func TestRecommendRankAlwaysExploresAtFullEpsilon(t *testing.T) {
	sc := &fakeScorer{result: pooledResult()}
	env := newRecommendEnv(t, sc, 1.0)

	coarseOnly := map[string]bool{"s-4": true, "s-5": true, "s-6": true}
	outOfPool := map[string]bool{"s-7": true, "s-8": true}

	req := scriptRequest()
	req.Options.BypassCache = true
	buckets := map[string]int{}
	for i := 0; i < 80; i++ {
		resp, err := env.uc.RecommendRank(context.Background(), req)
		if err != nil {
			t.Fatalf("call %d: %v", i, err)
		}
		if resp.Explore == nil || !resp.Explore.Explored {
			t.Fatalf("call %d did not explore with epsilon 1", i)
		}
		buckets[resp.Explore.Bucket]++
		switch resp.Explore.Bucket {
		case "fine":
			if resp.Chosen.ID == resp.TopK[0].ID {
				t.Fatalf("call %d fine-bucket pick equals rank-1", i)
			}
		case "coarse":
			if !coarseOnly[resp.Chosen.ID] {
				t.Fatalf("call %d coarse-bucket pick %s not from coarse extras", i, resp.Chosen.ID)
			}
		case "oop":
			if !outOfPool[resp.Chosen.ID] {
				t.Fatalf("call %d oop-bucket pick %s not from out-of-pool", i, resp.Chosen.ID)
			}
		default:
			t.Fatalf("call %d unknown bucket %q", i, resp.Explore.Bucket)
		}
	}
	for _, bucket := range []string{"fine", "coarse", "oop"} {
		if buckets[bucket] == 0 {
			t.Fatalf("bucket %q never drawn over 80 calls: %v", bucket, buckets)
		}
	}
}

func TestRecommendRankAlternativeBuckets(t *testing.T) {
	sc := &fakeScorer{result: pooledResult()}
	env := newRecommendEnv(t, sc, 0)

	resp, err := env.uc.RecommendRank(context.Background(), scriptRequest())
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}

	if resp.Alternatives.FineTop2 == nil {
		t.Fatal("fine top-2 alternative missing")
	}
	if resp.Alternatives.FineTop2.ID != resp.TopK[1].ID {
		t.Fatalf("fine top-2 = %s, want %s", resp.Alternatives.FineTop2.ID, resp.TopK[1].ID)
	}
	if len(resp.Alternatives.CoarseExtras) != 2 || len(resp.Alternatives.OutOfPool) != 2 {
		t.Fatalf("bucket sizes = %d/%d, want 2/2",
			len(resp.Alternatives.CoarseExtras), len(resp.Alternatives.OutOfPool))
	}

	topKIDs := map[string]bool{}
	for _, item := range resp.TopK {
		topKIDs[item.ID] = true
	}
	for _, item := range resp.Alternatives.CoarseExtras {
		if topKIDs[item.ID] {
			t.Fatalf("coarse extra %s overlaps topK", item.ID)
		}
	}
	coarseOnly := map[string]bool{"s-4": true, "s-5": true, "s-6": true}
	for _, item := range resp.Alternatives.OutOfPool {
		if topKIDs[item.ID] || coarseOnly[item.ID] {
			t.Fatalf("out-of-pool alternative %s is inside the coarse list", item.ID)
		}
	}
}

func TestRecommendRankEmptyResult(t *testing.T) {
	sc := &fakeScorer{result: &domain.ScoreResult{}}
	env := newRecommendEnv(t, sc, 0)

	_, err := env.uc.RecommendRank(context.Background(), scriptRequest())
	if !domain.IsKind(err, domain.ErrNoRecommendation) {
		t.Fatalf("err = %v, want ErrNoRecommendation", err)
	}
}

func TestRecommendRankScorerError(t *testing.T) {
	boom := errors.New("catalog down")
	sc := &fakeScorer{err: boom}
	env := newRecommendEnv(t, sc, 0)

	_, err := env.uc.RecommendRank(context.Background(), scriptRequest())
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want wrapped scorer error", err)
	}
}

func TestRecommendRankTimeout(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	sc := &fakeScorer{result: pooledResult(), block: block}
	env := newRecommendEnv(t, sc, 0)

	req := scriptRequest()
	req.Constraints.MaxLatencyMs = 1 // clamps up to the floor

	start := time.Now()
	_, err := env.uc.RecommendRank(context.Background(), req)
	if !domain.IsKind(err, domain.ErrRankTimeout) {
		t.Fatalf("err = %v, want ErrRankTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < minRankTimeout {
		t.Fatalf("returned after %v, before the clamped floor %v", elapsed, minRankTimeout)
	}
}

func TestRecommendRankInvalidScenario(t *testing.T) {
	sc := &fakeScorer{result: pooledResult()}
	env := newRecommendEnv(t, sc, 0)

	req := scriptRequest()
	req.Scenario = "task_unknown"
	_, err := env.uc.RecommendRank(context.Background(), req)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}

func TestRecommendRankUnregisteredScenario(t *testing.T) {
	sc := &fakeScorer{result: pooledResult()}
	env := newRecommendEnv(t, sc, 0)

	req := scriptRequest()
	req.Scenario = domain.ScenarioTaskPrompt
	_, err := env.uc.RecommendRank(context.Background(), req)
	if !domain.IsKind(err, domain.ErrScorerNotRegistered) {
		t.Fatalf("err = %v, want ErrScorerNotRegistered", err)
	}
}

func TestRecommendRankPersistsProvenance(t *testing.T) {
	sc := &fakeScorer{result: pooledResult()}
	env := newRecommendEnv(t, sc, 0)

	resp, err := env.uc.RecommendRank(context.Background(), scriptRequest())
	if err != nil {
		t.Fatalf("recommend: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	env.writer.Close(ctx)

	env.store.mu.Lock()
	defer env.store.mu.Unlock()
	if len(env.store.sets) != 1 {
		t.Fatalf("candidate sets persisted = %d, want 1", len(env.store.sets))
	}
	set := env.store.sets[0]
	if set.ID != resp.CandidateSetID {
		t.Fatalf("set id = %s, want %s", set.ID, resp.CandidateSetID)
	}
	if set.SubjectType != "product" || set.TargetType != domain.TargetScript {
		t.Fatalf("set subject/target = %s/%s", set.SubjectType, set.TargetType)
	}
	if set.SubjectSnapshot == "" || set.ContextSnapshot == "" {
		t.Fatal("snapshot columns must carry the request snapshots")
	}
	if len(env.store.rows) != 6 {
		t.Fatalf("candidate rows persisted = %d, want the coarse list of 6", len(env.store.rows))
	}
	if len(env.store.decisions) != 1 {
		t.Fatalf("decisions persisted = %d, want 1", len(env.store.decisions))
	}
	dec := env.store.decisions[0]
	if dec.ID != resp.DecisionID || dec.ChosenTargetID != resp.Chosen.ID {
		t.Fatalf("decision row %+v does not match response", dec)
	}
	if dec.StrategyVersion != "v-test" {
		t.Fatalf("strategy version = %s, want v-test", dec.StrategyVersion)
	}
	if dec.TopK != len(resp.TopK) {
		t.Fatalf("decision topK = %d, want %d", dec.TopK, len(resp.TopK))
	}
}

func TestRecommendRankRecordsMetricsOncePerCall(t *testing.T) {
	sc := &fakeScorer{result: pooledResult()}
	env := newRecommendEnv(t, sc, 0)

	if _, err := env.uc.RecommendRank(context.Background(), scriptRequest()); err != nil {
		t.Fatalf("first call: %v", err)
	}
	if _, err := env.uc.RecommendRank(context.Background(), scriptRequest()); err != nil {
		t.Fatalf("second call: %v", err)
	}

	snapshot := env.metrics.Snapshot()
	if len(snapshot) != 1 {
		t.Fatalf("snapshot scenarios = %d, want 1", len(snapshot))
	}
	row := snapshot[0]
	if row.Requests != 2 {
		t.Fatalf("requests = %d, want 2", row.Requests)
	}
	if row.CacheHits != 1 {
		t.Fatalf("cache hits = %d, want 1", row.CacheHits)
	}
}

func TestSubmitFeedbackAppliesInlineWithoutQueue(t *testing.T) {
	store := &provenanceFake{}
	writer := asyncwriter.New(store, asyncwriter.Options{FlushInterval: time.Hour})
	writer.Start()
	b := bandit.New(bandit.NewPowerSampler(1))
	uc := NewFeedbackUseCase(nil, writer, b, slog.New(slog.NewTextHandler(io.Discard, nil)))

	success := true
	err := uc.SubmitFeedback(context.Background(), domain.Feedback{
		DecisionID: "dec-1",
		TargetID:   "s-1",
		Success:    &success,
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	writer.Close(ctx)

	store.mu.Lock()
	defer store.mu.Unlock()
	if len(store.outcomes) != 1 || store.outcomes[0].DecisionID != "dec-1" {
		t.Fatalf("outcomes = %+v, want one row for dec-1", store.outcomes)
	}
}

func TestSubmitFeedbackRequiresDecisionID(t *testing.T) {
	writer := asyncwriter.New(&provenanceFake{}, asyncwriter.Options{FlushInterval: time.Hour})
	uc := NewFeedbackUseCase(nil, writer, bandit.New(bandit.NewPowerSampler(1)), slog.New(slog.NewTextHandler(io.Discard, nil)))

	err := uc.SubmitFeedback(context.Background(), domain.Feedback{TargetID: "s-1"})
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}
}
