// Package alert turns metric threshold breaches into webhook notifications.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rankpilot/rankd/internal/core/domain"
	"github.com/rankpilot/rankd/internal/infrastructure/resilience"
)

// WebhookNotifier POSTs alert payloads to a configured endpoint. Delivery is
// best-effort; the executor retries transient failures and the watcher
// swallows whatever remains.
type WebhookNotifier struct {
	url      string
	client   *http.Client
	executor *resilience.Executor
}

func NewWebhookNotifier(url string, executor *resilience.Executor) *WebhookNotifier {
	return &WebhookNotifier{
		url:      url,
		client:   &http.Client{Timeout: 5 * time.Second},
		executor: executor,
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, payload domain.AlertPayload) error {
	if n.url == "" {
		return nil
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal alert payload: %w", err)
	}

	call := func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build alert request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client.Do(req)
		if err != nil {
			return fmt.Errorf("post alert: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 300 {
			return fmt.Errorf("alert webhook status %d", resp.StatusCode)
		}
		return nil
	}

	if n.executor == nil {
		return call(ctx)
	}
	return n.executor.Do(ctx, "alert.webhook", call, classifyWebhookError)
}

func classifyWebhookError(err error) resilience.Verdict {
	if err == nil {
		return resilience.Verdict{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.Verdict{Retry: false, Count: false}
	}
	return resilience.Verdict{Retry: true, Count: true}
}
