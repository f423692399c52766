package ltr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rankpilot/rankd/internal/core/domain"
)

type modelSourceFake struct {
	model *domain.LTRModel
	err   error
	loads int
}

func (f *modelSourceFake) Load(context.Context) (*domain.LTRModel, error) {
	f.loads++
	return f.model, f.err
}

func floatPtr(v float64) *float64 { return &v }

func TestRerankIsIdentityWithoutModel(t *testing.T) {
	r := NewReranker(&modelSourceFake{})
	in := []domain.CandidateItem{
		{ID: "a", CoarseScore: floatPtr(0.1)},
		{ID: "b", CoarseScore: floatPtr(0.9)},
	}
	out := r.Rerank(context.Background(), domain.RecommendRankRequest{}, in)
	if len(out) != 2 || out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("expected identity transform, got %v", out)
	}
}

func TestRerankSortsByModelScore(t *testing.T) {
	src := &modelSourceFake{model: &domain.LTRModel{
		Version: "v1",
		Bias:    0,
		Weights: map[string]float64{"coarse": 1},
	}}
	r := NewReranker(src)

	in := []domain.CandidateItem{
		{ID: "low", CoarseScore: floatPtr(0.1)},
		{ID: "high", CoarseScore: floatPtr(0.9)},
	}
	out := r.Rerank(context.Background(), domain.RecommendRankRequest{}, in)
	if out[0].ID != "high" {
		t.Fatalf("expected high coarse first, got %v", out)
	}
}

func TestModelCachedForFiveMinutes(t *testing.T) {
	src := &modelSourceFake{model: &domain.LTRModel{Version: "v1", Weights: map[string]float64{}}}
	r := NewReranker(src)
	current := time.Unix(1000, 0)
	r.now = func() time.Time { return current }

	r.Model(context.Background())
	r.Model(context.Background())
	if src.loads != 1 {
		t.Fatalf("expected 1 load within TTL, got %d", src.loads)
	}

	current = current.Add(modelCacheTTL + time.Second)
	r.Model(context.Background())
	if src.loads != 2 {
		t.Fatalf("expected reload after TTL, got %d loads", src.loads)
	}
}

func TestLoadErrorDegradesToIdentity(t *testing.T) {
	src := &modelSourceFake{err: errors.New("disk gone")}
	r := NewReranker(src)
	in := []domain.CandidateItem{{ID: "a"}, {ID: "b"}}
	out := r.Rerank(context.Background(), domain.RecommendRankRequest{}, in)
	if out[0].ID != "a" || out[1].ID != "b" {
		t.Fatalf("load failure must degrade to identity, got %v", out)
	}
}
