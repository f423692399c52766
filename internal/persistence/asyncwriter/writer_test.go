package asyncwriter

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rankpilot/rankd/internal/core/domain"
)

type provenanceFake struct {
	mu         sync.Mutex
	sets       [][]domain.CandidateSet
	candidates [][]domain.Candidate
	decisions  [][]domain.Decision
	outcomes   []domain.Outcome
	setErr     error
}

func (f *provenanceFake) CreateCandidateSets(_ context.Context, sets []domain.CandidateSet) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setErr != nil {
		return f.setErr
	}
	f.sets = append(f.sets, sets)
	return nil
}

func (f *provenanceFake) CreateCandidates(_ context.Context, cs []domain.Candidate) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.candidates = append(f.candidates, cs)
	return nil
}

func (f *provenanceFake) CreateDecisions(_ context.Context, ds []domain.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.decisions = append(f.decisions, ds)
	return nil
}

func (f *provenanceFake) UpsertOutcome(_ context.Context, o domain.Outcome) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes = append(f.outcomes, o)
	return nil
}

func TestFlushGroupsByTableAndUpsertsOutcomesPerRow(t *testing.T) {
	store := &provenanceFake{}
	w := New(store, Options{FlushInterval: time.Hour})

	w.EnqueueCandidateSet(domain.CandidateSet{ID: "cs-1"})
	w.EnqueueCandidates([]domain.Candidate{
		{CandidateSetID: "cs-1", TargetID: "m-1"},
		{CandidateSetID: "cs-1", TargetID: "m-2"},
	})
	w.EnqueueDecision(domain.Decision{ID: "d-1", CandidateSetID: "cs-1"})
	w.EnqueueOutcome(domain.Outcome{DecisionID: "d-1"})
	w.EnqueueOutcome(domain.Outcome{DecisionID: "d-2"})

	w.flushOnce(context.Background())

	if len(store.sets) != 1 || len(store.sets[0]) != 1 {
		t.Fatalf("expected one candidate-set batch of 1, got %v", store.sets)
	}
	if len(store.candidates) != 1 || len(store.candidates[0]) != 2 {
		t.Fatalf("expected one candidate batch of 2, got %v", store.candidates)
	}
	if len(store.decisions) != 1 || len(store.decisions[0]) != 1 {
		t.Fatalf("expected one decision batch of 1, got %v", store.decisions)
	}
	if len(store.outcomes) != 2 {
		t.Fatalf("expected 2 outcome upserts, got %d", len(store.outcomes))
	}
	if w.pending() != 0 {
		t.Fatalf("queue should be empty after flush, pending=%d", w.pending())
	}
}

func TestFlushRespectsBatchSize(t *testing.T) {
	store := &provenanceFake{}
	w := New(store, Options{FlushInterval: time.Hour, FlushBatchSize: 3})

	for i := 0; i < 5; i++ {
		w.EnqueueDecision(domain.Decision{ID: "d"})
	}

	w.flushOnce(context.Background())
	if w.pending() != 2 {
		t.Fatalf("expected 2 left after batched flush, got %d", w.pending())
	}
	if len(store.decisions) != 1 || len(store.decisions[0]) != 3 {
		t.Fatalf("expected first decision batch of 3, got %v", store.decisions)
	}
}

func TestFlushFailureIsDroppedNotRequeued(t *testing.T) {
	store := &provenanceFake{setErr: errors.New("db down")}
	w := New(store, Options{FlushInterval: time.Hour})

	w.EnqueueCandidateSet(domain.CandidateSet{ID: "cs-1"})
	w.flushOnce(context.Background())

	if w.pending() != 0 {
		t.Fatalf("failed batch must not re-queue, pending=%d", w.pending())
	}
}

func TestCloseDrainsQueue(t *testing.T) {
	store := &provenanceFake{}
	w := New(store, Options{FlushInterval: time.Hour, FlushBatchSize: 2})
	w.Start()
	w.Start() // idempotent

	for i := 0; i < 5; i++ {
		w.EnqueueDecision(domain.Decision{ID: "d"})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	w.Close(ctx)

	if w.pending() != 0 {
		t.Fatalf("expected drained queue, pending=%d", w.pending())
	}
	store.mu.Lock()
	total := 0
	for _, b := range store.decisions {
		total += len(b)
	}
	store.mu.Unlock()
	if total != 5 {
		t.Fatalf("expected 5 decisions written on drain, got %d", total)
	}
}
