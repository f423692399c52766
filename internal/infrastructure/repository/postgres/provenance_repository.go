package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rankpilot/rankd/internal/core/domain"
)

// ProvenanceRepository persists ranking decisions and their feedback. The
// batch creates take whole slices so the async writer flushes one statement
// per table.
type ProvenanceRepository struct {
	db *sql.DB
}

func NewProvenanceRepository(db *sql.DB) *ProvenanceRepository {
	return &ProvenanceRepository{db: db}
}

func (r *ProvenanceRepository) CreateCandidateSets(ctx context.Context, sets []domain.CandidateSet) error {
	if len(sets) == 0 {
		return nil
	}
	args := make([]any, 0, len(sets)*7)
	for _, s := range sets {
		args = append(args, s.ID, s.SubjectType, s.SubjectID, nullableJSON(s.SubjectSnapshot),
			string(s.TargetType), nullableJSON(s.ContextSnapshot), s.CreatedAt)
	}
	query := `
INSERT INTO candidate_sets (id, subject_type, subject_id, subject_snapshot, target_type, context_snapshot, created_at)
VALUES ` + placeholders(len(sets), 7)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert candidate sets: %w", err)
	}
	return nil
}

func (r *ProvenanceRepository) CreateCandidates(ctx context.Context, candidates []domain.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	args := make([]any, 0, len(candidates)*7)
	for _, c := range candidates {
		args = append(args, c.CandidateSetID, string(c.TargetType), c.TargetID,
			c.CoarseScore, c.FineScore, nullableJSON(c.Reason), c.CreatedAt)
	}
	query := `
INSERT INTO candidates (candidate_set_id, target_type, target_id, coarse_score, fine_score, reason, created_at)
VALUES ` + placeholders(len(candidates), 7)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert candidates: %w", err)
	}
	return nil
}

func (r *ProvenanceRepository) CreateDecisions(ctx context.Context, decisions []domain.Decision) error {
	if len(decisions) == 0 {
		return nil
	}
	args := make([]any, 0, len(decisions)*9)
	for _, d := range decisions {
		args = append(args, d.ID, d.CandidateSetID, string(d.ChosenTargetType), d.ChosenTargetID,
			d.StrategyVersion, nullableJSON(d.WeightsSnapshot), d.TopK, nullableJSON(d.ExploreFlags), d.CreatedAt)
	}
	query := `
INSERT INTO decisions (id, candidate_set_id, chosen_target_type, chosen_target_id, strategy_version, weights_snapshot, top_k, explore_flags, created_at)
VALUES ` + placeholders(len(decisions), 9)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert decisions: %w", err)
	}
	return nil
}

// UpsertOutcome keeps exactly one outcome row per decision; resubmitted
// feedback overwrites the previous row.
func (r *ProvenanceRepository) UpsertOutcome(ctx context.Context, outcome domain.Outcome) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO outcomes (decision_id, quality_score, conversion, latency_ms, cost_actual, notes, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (decision_id) DO UPDATE SET
	quality_score = EXCLUDED.quality_score,
	conversion = EXCLUDED.conversion,
	latency_ms = EXCLUDED.latency_ms,
	cost_actual = EXCLUDED.cost_actual,
	notes = EXCLUDED.notes,
	updated_at = EXCLUDED.updated_at
`, outcome.DecisionID, outcome.QualityScore, outcome.Conversion, outcome.LatencyMs,
		outcome.CostActual, outcome.Notes, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}

// nullableJSON maps an empty snapshot to NULL so JSONB columns never see ''.
func nullableJSON(s string) any {
	if s == "" {
		return nil
	}
	return s
}
