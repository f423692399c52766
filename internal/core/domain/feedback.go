package domain

// Feedback is an inbound feedback submission for a past decision. It feeds both
// the outcome upsert and the bandit's Beta parameters.
type Feedback struct {
	DecisionID   string   `json:"decision_id"`
	TargetID     string   `json:"target_id,omitempty"`
	Bucket       string   `json:"bucket,omitempty"`
	Success      *bool    `json:"success,omitempty"`
	Conversion   *bool    `json:"conversion,omitempty"`
	Rejected     *bool    `json:"rejected,omitempty"`
	QualityScore *float64 `json:"quality_score,omitempty"`
	LatencyMs    *int     `json:"latency_ms,omitempty"`
	CostActual   *float64 `json:"cost_actual,omitempty"`
	Notes        string   `json:"notes,omitempty"`
}

// Positive derives the success signal with fixed priority: explicit success
// flag, then conversion, then rejection, then quality score against 0.6.
// Feedback carrying none of the signals counts as a failure.
func (f Feedback) Positive() bool {
	if f.Success != nil {
		return *f.Success
	}
	if f.Conversion != nil && *f.Conversion {
		return true
	}
	if f.Rejected != nil && *f.Rejected {
		return false
	}
	if f.QualityScore != nil {
		return *f.QualityScore >= 0.6
	}
	return false
}

// Outcome flattens the feedback into its persisted form.
func (f Feedback) Outcome() Outcome {
	return Outcome{
		DecisionID:   f.DecisionID,
		QualityScore: f.QualityScore,
		Conversion:   f.Conversion,
		LatencyMs:    f.LatencyMs,
		CostActual:   f.CostActual,
		Notes:        f.Notes,
	}
}
