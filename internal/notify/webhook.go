package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/jobtrack/application-tracker/internal/models"
)

// Webhook posts the created application as JSON to a fixed URL.
type Webhook struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	Event       string             `json:"event"`
	Application models.Application `json:"application"`
}

// NewWebhook creates a webhook notifier with the given request timeout.
func NewWebhook(url string, timeout time.Duration) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// Notify sends the application. A transport failure or a non-2xx response
// wraps models.ErrUpstreamUnavailable.
func (w *Webhook) Notify(ctx context.Context, app models.Application) error {
	body, err := json.Marshal(webhookPayload{Event: "application.created", Application: app})
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "application-tracker/1.0")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: webhook request failed: %v", models.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: webhook returned status %d", models.ErrUpstreamUnavailable, resp.StatusCode)
	}
	return nil
}
