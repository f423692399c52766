package alert

import (
	"context"
	"sync"
	"testing"

	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/observability/rankmetrics"
)

type notifierFake struct {
	mu       sync.Mutex
	payloads []domain.AlertPayload
}

func (n *notifierFake) Notify(_ context.Context, payload domain.AlertPayload) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.payloads = append(n.payloads, payload)
	return nil
}

func (n *notifierFake) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.payloads)
}

func recordFallbacks(agg *rankmetrics.Aggregator, total, fallbacks int) {
	for i := 0; i < total; i++ {
		agg.Record(domain.ScenarioTaskModel, rankmetrics.Sample{
			DurationMs: 10,
			Fallback:   i < fallbacks,
		})
	}
}

func TestWatcherNotifiesOnceOnSteadyBreach(t *testing.T) {
	agg := rankmetrics.NewAggregator()
	notifier := &notifierFake{}
	w := NewWatcher(agg, notifier, 0)

	// 20% fallback rate, well over the 5% threshold.
	recordFallbacks(agg, 100, 20)

	w.check(context.Background())
	w.check(context.Background())
	w.check(context.Background())

	if got := notifier.count(); got != 1 {
		t.Fatalf("notifications = %d, want exactly 1 for a steady breach", got)
	}
	notifier.mu.Lock()
	payload := notifier.payloads[0]
	notifier.mu.Unlock()
	if payload.Alert != domain.AlertFallback {
		t.Fatalf("alert state = %s, want fallback", payload.Alert)
	}
	if payload.Type != "threshold_alert" {
		t.Fatalf("payload type = %s", payload.Type)
	}
	if len(payload.Snapshot) == 0 {
		t.Fatal("payload must carry the metrics snapshot")
	}
}

func TestWatcherNotifiesRecovery(t *testing.T) {
	agg := rankmetrics.NewAggregator()
	notifier := &notifierFake{}
	w := NewWatcher(agg, notifier, 0)

	recordFallbacks(agg, 100, 20)
	w.check(context.Background())

	// Flood with healthy traffic until the rate drops under the threshold.
	recordFallbacks(agg, 900, 0)
	w.check(context.Background())

	if got := notifier.count(); got != 2 {
		t.Fatalf("notifications = %d, want breach + recovery", got)
	}
	notifier.mu.Lock()
	recovery := notifier.payloads[1]
	notifier.mu.Unlock()
	if recovery.Alert != domain.AlertOK || recovery.Type != "recovered" {
		t.Fatalf("recovery payload = %+v", recovery)
	}
}

func TestWatcherSilentWhileHealthy(t *testing.T) {
	agg := rankmetrics.NewAggregator()
	notifier := &notifierFake{}
	w := NewWatcher(agg, notifier, 0)

	recordFallbacks(agg, 100, 0)
	w.check(context.Background())

	if got := notifier.count(); got != 0 {
		t.Fatalf("notifications = %d, want 0 while healthy", got)
	}
}
