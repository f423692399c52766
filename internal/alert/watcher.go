package alert

import (
	"context"
	"log/slog"
	"time"

	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/core/ports"
	"github.com/rankpilot/rankd/internal/observability/rankmetrics"
)

const defaultCheckInterval = 30 * time.Second

// Watcher polls the metrics aggregator and notifies on alert-state
// transitions: once when a threshold trips, once when it recovers. Steady
// breach does not re-notify.
type Watcher struct {
	metrics  *rankmetrics.Aggregator
	notifier ports.AlertNotifier
	interval time.Duration

	last domain.AlertState
	now  func() time.Time
}

func NewWatcher(metrics *rankmetrics.Aggregator, notifier ports.AlertNotifier, interval time.Duration) *Watcher {
	if interval <= 0 {
		interval = defaultCheckInterval
	}
	return &Watcher{
		metrics:  metrics,
		notifier: notifier,
		interval: interval,
		last:     domain.AlertOK,
		now:      time.Now,
	}
}

// Run blocks until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.check(ctx)
		}
	}
}

func (w *Watcher) check(ctx context.Context) {
	state := w.metrics.ShouldAlert()
	if state == w.last {
		return
	}
	prev := w.last
	w.last = state

	payloadType := "threshold_alert"
	if state == domain.AlertOK {
		payloadType = "recovered"
	}
	payload := domain.AlertPayload{
		Type:     payloadType,
		Snapshot: w.metrics.Snapshot(),
		Alert:    state,
		TS:       w.now(),
	}
	if err := w.notifier.Notify(ctx, payload); err != nil {
		// Alerting must never take the service down with it.
		slog.Error("alert_notify_failed", "from", prev, "to", state, "error", err)
	}
}
