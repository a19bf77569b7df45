// Package notify emits job-completion events. Delivery is best effort:
// failures are logged and never affect job status.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// CompletionEvent is emitted when a sermon job reaches COMPLETE.
// Results maps each content type to whether its generation task succeeded.
type CompletionEvent struct {
	SermonID string          `json:"sermon_id"`
	OwnerID  string          `json:"owner_id"`
	Title    string          `json:"title"`
	Results  map[string]bool `json:"results"`
}

// Notifier delivers completion events.
type Notifier interface {
	SermonCompleted(ctx context.Context, ev CompletionEvent) error
}

// LogNotifier writes completion events to the structured log.
type LogNotifier struct{}

func (LogNotifier) SermonCompleted(_ context.Context, ev CompletionEvent) error {
	succeeded := 0
	for _, ok := range ev.Results {
		if ok {
			succeeded++
		}
	}
	slog.Info("sermon complete",
		"sermon_id", ev.SermonID,
		"owner_id", ev.OwnerID,
		"title", ev.Title,
		"succeeded", succeeded,
		"total", len(ev.Results))
	return nil
}

// WebhookNotifier POSTs completion events as JSON to a configured URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

// NewWebhookNotifier creates a webhook notifier.
func NewWebhookNotifier(url string, timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) SermonCompleted(ctx context.Context, ev CompletionEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

// Multi delivers to all configured notifiers, logging individual failures.
type Multi []Notifier

func (m Multi) SermonCompleted(ctx context.Context, ev CompletionEvent) error {
	for _, n := range m {
		if err := n.SermonCompleted(ctx, ev); err != nil {
			slog.Warn("completion notification failed", "sermon_id", ev.SermonID, "error", err)
		}
	}
	return nil
}
