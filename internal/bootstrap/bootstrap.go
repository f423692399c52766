// Package bootstrap wires configuration into a running application graph.
// Both binaries (api and worker) build their dependencies through it so the
// wiring order stays in one place.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rankpilot/rankd/internal/alert"
	"github.com/rankpilot/rankd/internal/artifact"
	"github.com/rankpilot/rankd/internal/cache"
	"github.com/rankpilot/rankd/internal/config"
	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
	"github.com/rankpilot/rankd/internal/core/usecase"
	"github.com/rankpilot/rankd/internal/infrastructure/queue/nats"
	"github.com/rankpilot/rankd/internal/infrastructure/repository/postgres"
	"github.com/rankpilot/rankd/internal/infrastructure/resilience"
	"github.com/rankpilot/rankd/internal/observability/rankmetrics"
	"github.com/rankpilot/rankd/internal/persistence/asyncwriter"
	"github.com/rankpilot/rankd/internal/ranking/bandit"
	"github.com/rankpilot/rankd/internal/ranking/ltr"
	"github.com/rankpilot/rankd/internal/ranking/scorer"
	"github.com/rankpilot/rankd/internal/strategy"
)

type App struct {
	Config config.Config

	Queue       ports.FeedbackQueue
	Writer      *asyncwriter.Writer
	Bandit      *bandit.Bandit
	RankMetrics *rankmetrics.Aggregator
	Watcher     *alert.Watcher

	RecommendUC ports.Recommender
	FeedbackUC  *usecase.FeedbackUseCase

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}
	catalog := postgres.NewCatalogRepository(db)
	provenance := postgres.NewProvenanceRepository(db)

	writer := asyncwriter.New(provenance, asyncwriter.Options{
		FlushInterval:  cfg.FlushInterval,
		FlushBatchSize: cfg.FlushBatchSize,
		FlushThreshold: cfg.FlushThreshold,
	})
	writer.Start()

	executor := resilience.NewExecutor(resilience.DefaultPolicy())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		writer.Close(ctx)
		_ = db.Close()
		return nil, fmt.Errorf("init feedback queue: %w", err)
	}

	banditReranker := bandit.New(bandit.NewPowerSampler(cfg.RandomSeed))
	outcomes := scorer.OutcomeLookup(func(_ context.Context, _ domain.TargetType, id string) (float64, bool) {
		return banditReranker.SuccessRate(id)
	})

	providers := artifact.NewFileProviderSource(cfg.ProviderRegistryPath)
	ltrReranker := ltr.NewReranker(artifact.NewFileModelSource(cfg.LTRModelPath))

	registry := scorer.NewRegistry()
	registry.Register(domain.ScenarioTaskModel, scorer.NewModelScorer(
		catalog, providers, cache.New[[]domain.ModelCandidate](cfg.PoolCacheSize), outcomes))
	registry.Register(domain.ScenarioTaskPrompt, scorer.NewPromptScorer(
		catalog, cache.New[[]domain.PromptTemplate](cfg.PoolCacheSize), outcomes))
	registry.Register(domain.ScenarioProductPersona, scorer.NewPersonaScorer(
		catalog, cache.New[[]domain.Persona](cfg.PoolCacheSize), outcomes, cfg.RandomSeed))
	registry.Register(domain.ScenarioProductScript, scorer.NewScriptScorer(
		catalog, cache.New[[]domain.Script](cfg.PoolCacheSize), outcomes))
	registry.Register(domain.ScenarioProductStyle, scorer.NewStyleScorer(
		catalog, cache.New[[]domain.Style](cfg.PoolCacheSize), outcomes))
	registry.Register(domain.ScenarioProductElements, scorer.NewElementsScorer())

	rankMetrics := rankmetrics.NewAggregator()
	decisions := cache.New[*domain.RankResponse](cfg.DecisionCacheSize)

	recommendUC := usecase.NewRecommendUseCase(
		registry,
		ltrReranker,
		banditReranker,
		writer,
		rankMetrics,
		strategy.NewFileProvider(cfg.StrategyPath),
		decisions,
		cfg.RandomSeed,
	)
	feedbackUC := usecase.NewFeedbackUseCase(queue, writer, banditReranker, slog.Default())

	var watcher *alert.Watcher
	if cfg.AlertWebhookURL != "" {
		notifier := alert.NewWebhookNotifier(cfg.AlertWebhookURL, executor)
		watcher = alert.NewWatcher(rankMetrics, notifier, cfg.AlertCheckInterval)
	}

	return &App{
		Config: cfg,

		Queue:       queue,
		Writer:      writer,
		Bandit:      banditReranker,
		RankMetrics: rankMetrics,
		Watcher:     watcher,

		RecommendUC: recommendUC,
		FeedbackUC:  feedbackUC,

		closeFn: func() {
			queue.Close()
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			writer.Close(drainCtx)
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
