// Package asyncwriter buffers decision-provenance writes and flushes them in
// batches off the request path. Persistence here is at-most-once: flush
// failures are logged and dropped, never re-queued and never surfaced to
// callers.
package asyncwriter

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
)

const (
	defaultFlushInterval  = 2 * time.Second
	defaultFlushBatchSize = 500
	defaultFlushThreshold = 200
)

type table int

const (
	tableCandidateSet table = iota
	tableCandidate
	tableDecision
	tableOutcome
)

type event struct {
	table        table
	candidateSet domain.CandidateSet
	candidate    domain.Candidate
	decision     domain.Decision
	outcome      domain.Outcome
}

type Options struct {
	FlushInterval  time.Duration
	FlushBatchSize int
	FlushThreshold int
}

type Writer struct {
	store ports.ProvenanceStore
	opts  Options

	mu       sync.Mutex
	queue    []event
	flushing bool
	started  bool
	stop     chan struct{}
	done     chan struct{}
}

func New(store ports.ProvenanceStore, opts Options) *Writer {
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = defaultFlushInterval
	}
	if opts.FlushBatchSize <= 0 {
		opts.FlushBatchSize = defaultFlushBatchSize
	}
	if opts.FlushThreshold <= 0 {
		opts.FlushThreshold = defaultFlushThreshold
	}
	return &Writer{
		store: store,
		opts:  opts,
		stop:  make(chan struct{}),
		done:  make(chan struct{}),
	}
}

// Start launches the background flusher. Idempotent.
func (w *Writer) Start() {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return
	}
	w.started = true
	w.mu.Unlock()

	go w.run()
}

func (w *Writer) run() {
	defer close(w.done)
	ticker := time.NewTicker(w.opts.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			return
		case <-ticker.C:
			w.flushOnce(context.Background())
		}
	}
}

// Close stops the ticker and drains whatever is still queued, bounded by ctx.
// Cancelling ctx immediately reproduces the drop-on-exit behavior of earlier
// deployments.
func (w *Writer) Close(ctx context.Context) {
	w.mu.Lock()
	if !w.started {
		w.mu.Unlock()
		return
	}
	w.mu.Unlock()

	close(w.stop)
	<-w.done

	for w.pending() > 0 {
		if ctx.Err() != nil {
			slog.Warn("asyncwriter_drain_aborted", "pending", w.pending())
			return
		}
		if !w.flushOnce(ctx) {
			// An opportunistic flush still holds the guard; give it room.
			time.Sleep(10 * time.Millisecond)
		}
	}
}

func (w *Writer) pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.queue)
}

func (w *Writer) EnqueueCandidateSet(set domain.CandidateSet) {
	w.enqueue(event{table: tableCandidateSet, candidateSet: set})
}

func (w *Writer) EnqueueCandidates(candidates []domain.Candidate) {
	for _, c := range candidates {
		w.enqueue(event{table: tableCandidate, candidate: c})
	}
}

func (w *Writer) EnqueueDecision(decision domain.Decision) {
	w.enqueue(event{table: tableDecision, decision: decision})
}

func (w *Writer) EnqueueOutcome(outcome domain.Outcome) {
	w.enqueue(event{table: tableOutcome, outcome: outcome})
}

func (w *Writer) enqueue(e event) {
	w.mu.Lock()
	w.queue = append(w.queue, e)
	depth := len(w.queue)
	w.mu.Unlock()

	if depth > w.opts.FlushThreshold {
		// Opportunistic out-of-band flush; the ticker remains the backstop.
		go w.flushOnce(context.Background())
	}
}

// flushOnce drains up to one batch head-first and writes it grouped by table.
// Only one flush runs at a time; overlapping triggers are dropped. Reports
// whether a batch was taken.
func (w *Writer) flushOnce(ctx context.Context) bool {
	w.mu.Lock()
	if w.flushing || len(w.queue) == 0 {
		w.mu.Unlock()
		return false
	}
	w.flushing = true
	n := len(w.queue)
	if n > w.opts.FlushBatchSize {
		n = w.opts.FlushBatchSize
	}
	batch := make([]event, n)
	copy(batch, w.queue[:n])
	w.queue = append(w.queue[:0], w.queue[n:]...)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.flushing = false
		w.mu.Unlock()
	}()

	var (
		sets       []domain.CandidateSet
		candidates []domain.Candidate
		decisions  []domain.Decision
		outcomes   []domain.Outcome
	)
	for _, e := range batch {
		switch e.table {
		case tableCandidateSet:
			sets = append(sets, e.candidateSet)
		case tableCandidate:
			candidates = append(candidates, e.candidate)
		case tableDecision:
			decisions = append(decisions, e.decision)
		case tableOutcome:
			outcomes = append(outcomes, e.outcome)
		}
	}

	// Parent tables first so a decision lands after its candidate set.
	if len(sets) > 0 {
		if err := w.store.CreateCandidateSets(ctx, sets); err != nil {
			slog.Error("flush_failed", "table", "candidate_sets", "rows", len(sets), "error", err)
		}
	}
	if len(candidates) > 0 {
		if err := w.store.CreateCandidates(ctx, candidates); err != nil {
			slog.Error("flush_failed", "table", "candidates", "rows", len(candidates), "error", err)
		}
	}
	if len(decisions) > 0 {
		if err := w.store.CreateDecisions(ctx, decisions); err != nil {
			slog.Error("flush_failed", "table", "decisions", "rows", len(decisions), "error", err)
		}
	}
	// Outcome rows carry a unique key on decision id; later feedback must win,
	// so each row is upserted individually.
	for _, o := range outcomes {
		if err := w.store.UpsertOutcome(ctx, o); err != nil {
			slog.Error("flush_failed", "table", "outcomes", "decision_id", o.DecisionID, "error", err)
		}
	}
	return true
}
