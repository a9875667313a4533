// Package notify delivers reminder messages. Delivery is best-effort:
// the scheduler logs failures and moves on, so one unreachable
// destination never blocks reminders for other entities.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Notifier is the external messaging capability.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// Webhook posts messages as {"content": text} JSON to a configured
// webhook URL (the shape Discord-compatible webhooks accept).
type Webhook struct {
	client *http.Client
	url    string
}

// NewWebhook returns a Webhook notifier for the given URL.
func NewWebhook(url string) (*Webhook, error) {
	if url == "" {
		return nil, errors.New("notify: webhook URL is empty")
	}
	return &Webhook{
		client: &http.Client{Timeout: 15 * time.Second},
		url:    url,
	}, nil
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Notify posts the message. Any non-2xx response is an error.
func (w *Webhook) Notify(ctx context.Context, text string) error {
	body, err := json.Marshal(webhookPayload{Content: text})
	if err != nil {
		return fmt.Errorf("notify: encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post: %w", err)
	}
	defer resp.Body.Close()
	// Drain so the connection can be reused.
	io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("notify: webhook returned %s", resp.Status)
	}
	return nil
}

// Discard swallows every message; used by dry runs and as a stand-in
// when no webhook is configured.
type Discard struct{}

func (Discard) Notify(context.Context, string) error { return nil }
