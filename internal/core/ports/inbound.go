package ports

import (
	"context"

	"github.com/rankpilot/rankd/internal/core/domain"
)

// Recommender is the inbound contract for the ranking orchestrator.
type Recommender interface {
	RecommendRank(ctx context.Context, req domain.RecommendRankRequest) (*domain.RankResponse, error)
}

// FeedbackRecorder is the inbound contract for decision feedback.
type FeedbackRecorder interface {
	SubmitFeedback(ctx context.Context, fb domain.Feedback) error
}
