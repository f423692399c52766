// Package ltr re-scores candidates with the offline-trained linear model.
// The artifact is a soft dependency: before the first training run exists the
// reranker is an identity transform.
package ltr

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
	"github.com/rankpilot/rankd/internal/ranking/feature"
)

const modelCacheTTL = 5 * time.Minute

type Reranker struct {
	source ports.LTRModelSource

	mu       sync.Mutex
	model    *domain.LTRModel
	loadedAt time.Time
	now      func() time.Time
}

func NewReranker(source ports.LTRModelSource) *Reranker {
	return &Reranker{source: source, now: time.Now}
}

// Model returns the cached model, reloading transparently after the cache TTL.
// Load failures and a missing artifact both yield nil.
func (r *Reranker) Model(ctx context.Context) *domain.LTRModel {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.loadedAt.IsZero() && r.now().Sub(r.loadedAt) < modelCacheTTL {
		return r.model
	}

	model, err := r.source.Load(ctx)
	if err != nil {
		slog.Warn("ltr_model_load_failed", "error", err)
		model = nil
	}
	r.model = model
	r.loadedAt = r.now()
	return r.model
}

// Rerank scores every candidate as bias + Σ(weight·feature) and sorts
// descending. Without a model the input is returned unchanged.
func (r *Reranker) Rerank(ctx context.Context, req domain.RecommendRankRequest, items []domain.CandidateItem) []domain.CandidateItem {
	model := r.Model(ctx)
	if model == nil || len(items) < 2 {
		return items
	}

	type scored struct {
		item  domain.CandidateItem
		score float64
	}
	rows := make([]scored, len(items))
	for i, item := range items {
		rows[i] = scored{item: item, score: model.Score(feature.Build(req, item))}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].score != rows[j].score {
			return rows[i].score > rows[j].score
		}
		return rows[i].item.ID < rows[j].item.ID
	})

	out := make([]domain.CandidateItem, len(items))
	for i, row := range rows {
		out[i] = row.item
	}
	return out
}
