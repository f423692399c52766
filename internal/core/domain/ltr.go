package domain

import "time"

// LTRModel is the offline-trained linear scoring model. The trainer computes
// per-feature weight as mean(feature|positive) − mean(feature|negative),
// L2-normalized, and writes the artifact out-of-band.
type LTRModel struct {
	Version   string             `json:"version"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Bias      float64            `json:"bias"`
	Weights   map[string]float64 `json:"weights"`
}

// Score applies the linear model to a flat feature vector.
func (m *LTRModel) Score(features map[string]float64) float64 {
	score := m.Bias
	for name, weight := range m.Weights {
		score += weight * features[name]
	}
	return score
}
