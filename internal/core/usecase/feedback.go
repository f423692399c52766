package usecase

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
	"github.com/rankpilot/rankd/internal/persistence/asyncwriter"
	"github.com/rankpilot/rankd/internal/ranking/bandit"
)

// FeedbackUseCase accepts decision feedback. With a queue configured,
// submissions are published and applied by the worker consumer; without one
// they are applied in-process. Apply is idempotent per decision because the
// outcome row is an upsert, but bandit updates are not deduplicated.
type FeedbackUseCase struct {
	queue  ports.FeedbackQueue
	writer *asyncwriter.Writer
	bandit *bandit.Bandit
	logger *slog.Logger
}

func NewFeedbackUseCase(queue ports.FeedbackQueue, writer *asyncwriter.Writer, banditReranker *bandit.Bandit, logger *slog.Logger) *FeedbackUseCase {
	return &FeedbackUseCase{
		queue:  queue,
		writer: writer,
		bandit: banditReranker,
		logger: logger,
	}
}

func (uc *FeedbackUseCase) SubmitFeedback(ctx context.Context, fb domain.Feedback) error {
	if fb.DecisionID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "submit feedback", errors.New("decision_id is required"))
	}
	if uc.queue == nil {
		return uc.Apply(ctx, fb)
	}
	if err := uc.queue.PublishFeedback(ctx, fb); err != nil {
		// Queue loss must not lose the signal; fall back to direct apply.
		uc.logger.WarnContext(ctx, "feedback publish failed, applying inline", "decision_id", fb.DecisionID, "error", err)
		return uc.Apply(ctx, fb)
	}
	return nil
}

// Apply records the outcome and feeds the bandit. Invoked by the worker
// consumer, and directly when no queue is wired.
func (uc *FeedbackUseCase) Apply(ctx context.Context, fb domain.Feedback) error {
	if fb.DecisionID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "apply feedback", errors.New("decision_id is required"))
	}
	uc.writer.EnqueueOutcome(fb.Outcome())
	if fb.TargetID != "" {
		uc.bandit.RecordFeedback(fb.TargetID, fb)
	}
	uc.logger.DebugContext(ctx, "feedback applied",
		"decision_id", fb.DecisionID,
		"target_id", fb.TargetID,
		"positive", fb.Positive(),
	)
	return nil
}
