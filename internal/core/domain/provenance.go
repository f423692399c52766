package domain

import "time"

// CandidateSet is one persisted ranking call: what was being picked, for which
// subject, under which task/context snapshot.
type CandidateSet struct {
	ID              string     `json:"id"`
	SubjectType     string     `json:"subject_type"`
	SubjectID       string     `json:"subject_id,omitempty"`
	SubjectSnapshot string     `json:"subject_snapshot"` // JSON of TaskFeatures at decision time
	TargetType      TargetType `json:"target_type"`
	ContextSnapshot string     `json:"context_snapshot"` // JSON of RequestContext at decision time
	CreatedAt       time.Time  `json:"created_at"`
}

// Candidate is one coarse-listed item flattened for persistence.
type Candidate struct {
	CandidateSetID string     `json:"candidate_set_id"`
	TargetType     TargetType `json:"target_type"`
	TargetID       string     `json:"target_id"`
	CoarseScore    *float64   `json:"coarse_score,omitempty"`
	FineScore      *float64   `json:"fine_score,omitempty"`
	Reason         string     `json:"reason,omitempty"` // JSON
	CreatedAt      time.Time  `json:"created_at"`
}

// Decision is the single chosen outcome of a CandidateSet.
type Decision struct {
	ID               string     `json:"id"`
	CandidateSetID   string     `json:"candidate_set_id"`
	ChosenTargetType TargetType `json:"chosen_target_type"`
	ChosenTargetID   string     `json:"chosen_target_id"`
	StrategyVersion  string     `json:"strategy_version"`
	WeightsSnapshot  string     `json:"weights_snapshot,omitempty"` // JSON
	TopK             int        `json:"top_k"`
	ExploreFlags     string     `json:"explore_flags,omitempty"` // JSON
	CreatedAt        time.Time  `json:"created_at"`
}

// Outcome is later feedback attributed to a decision, upserted by decision id.
type Outcome struct {
	DecisionID   string   `json:"decision_id"`
	QualityScore *float64 `json:"quality_score,omitempty"`
	Conversion   *bool    `json:"conversion,omitempty"`
	LatencyMs    *int     `json:"latency_ms,omitempty"`
	CostActual   *float64 `json:"cost_actual,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}
