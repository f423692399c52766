package ports

import (
	"context"

	"github.com/rankpilot/rankd/internal/core/domain"
)

// CatalogStore reads the domain pools the scorers rank over.
type CatalogStore interface {
	ListModels(ctx context.Context) ([]domain.ModelCandidate, error)
	ListPromptTemplates(ctx context.Context, businessModule string) ([]domain.PromptTemplate, error)
	ListPersonas(ctx context.Context, q domain.SubjectQuery) ([]domain.Persona, error)
	ListScripts(ctx context.Context, q domain.SubjectQuery) ([]domain.Script, error)
	ListStyles(ctx context.Context, category, channel string) ([]domain.Style, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
}

// ProvenanceStore persists decision provenance. Batch creates take whole
// slices so the async writer can flush one insert per table; outcomes are
// upserted per row on their decision-id unique key.
type ProvenanceStore interface {
	CreateCandidateSets(ctx context.Context, sets []domain.CandidateSet) error
	CreateCandidates(ctx context.Context, candidates []domain.Candidate) error
	CreateDecisions(ctx context.Context, decisions []domain.Decision) error
	UpsertOutcome(ctx context.Context, outcome domain.Outcome) error
}

// VerifiedProviderSource loads the set of internal provider keys whose
// credentials are currently verified. Re-read on every task→model ranking.
type VerifiedProviderSource interface {
	Load(ctx context.Context) (map[string]bool, error)
}

// LTRModelSource loads the offline-trained linear model artifact.
// A missing artifact is (nil, nil), not an error.
type LTRModelSource interface {
	Load(ctx context.Context) (*domain.LTRModel, error)
}

// AlertNotifier delivers alert-state transitions. Best-effort: callers swallow
// its errors.
type AlertNotifier interface {
	Notify(ctx context.Context, payload domain.AlertPayload) error
}

// FeedbackQueue decouples feedback ingestion from feedback application.
type FeedbackQueue interface {
	PublishFeedback(ctx context.Context, fb domain.Feedback) error
	SubscribeFeedback(ctx context.Context, handler func(context.Context, domain.Feedback) error) error
	Close()
}
