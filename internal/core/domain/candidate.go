package domain

// CandidateItem is one candidate target flowing through the scoring pipeline.
// It exists only for the lifetime of a request; persistence flattens its fields
// into Candidate rows.
type CandidateItem struct {
	ID          string         `json:"id"`
	Type        TargetType     `json:"type"`
	Title       string         `json:"title,omitempty"`
	Name        string         `json:"name,omitempty"`
	Summary     string         `json:"summary,omitempty"`
	CoarseScore *float64       `json:"coarse_score,omitempty"`
	FineScore   *float64       `json:"fine_score,omitempty"`
	Reason      map[string]any `json:"reason,omitempty"`
}

// Coarse returns the coarse score, zero when unset.
func (c CandidateItem) Coarse() float64 {
	if c.CoarseScore == nil {
		return 0
	}
	return *c.CoarseScore
}

// Fine returns the fine score, falling back to coarse when unset.
func (c CandidateItem) Fine() float64 {
	if c.FineScore == nil {
		return c.Coarse()
	}
	return *c.FineScore
}

// ScoreResult is a scorer's output. Containment must hold by id:
// every TopK item appears in CoarseList, every CoarseList item in FullPool.
type ScoreResult struct {
	TopK       []CandidateItem `json:"top_k"`
	CoarseList []CandidateItem `json:"coarse_list"`
	FullPool   []CandidateItem `json:"full_pool"`
}

// AlternativeBuckets are the UI-facing override choices, sampled independently
// from the exploration draw.
type AlternativeBuckets struct {
	FineTop2     *CandidateItem  `json:"fine_top2,omitempty"`
	CoarseExtras []CandidateItem `json:"coarse_extras,omitempty"`
	OutOfPool    []CandidateItem `json:"out_of_pool,omitempty"`
}

// ExploreFlags record how exploration affected a decision.
type ExploreFlags struct {
	Explored bool    `json:"explored"`
	Bucket   string  `json:"bucket,omitempty"` // fine | coarse | oop
	Epsilon  float64 `json:"epsilon"`
}

// RankResponse is what RecommendRank returns to callers.
type RankResponse struct {
	DecisionID     string             `json:"decision_id"`
	CandidateSetID string             `json:"candidate_set_id"`
	Scenario       Scenario           `json:"scenario"`
	Chosen         CandidateItem      `json:"chosen"`
	TopK           []CandidateItem    `json:"top_k"`
	Alternatives   AlternativeBuckets `json:"alternatives"`
	Explore        *ExploreFlags      `json:"explore,omitempty"`
	FromCache      bool               `json:"from_cache,omitempty"`
}
