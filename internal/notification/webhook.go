package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const userAgent = "BankingLedger-Webhook/1.0"

// WebhookDispatcher POSTs each notification as JSON to a fixed URL.
type WebhookDispatcher struct {
	url    string
	client *http.Client
}

type webhookPayload struct {
	UserID       string       `json:"user_id"`
	Notification Notification `json:"notification"`
	SentAt       time.Time    `json:"sent_at"`
}

func NewWebhookDispatcher(url string, timeout time.Duration) *WebhookDispatcher {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &WebhookDispatcher{url: url, client: &http.Client{Timeout: timeout}}
}

func (d *WebhookDispatcher) Notify(ctx context.Context, userID string, n Notification) error {
	body, err := json.Marshal(webhookPayload{UserID: userID, Notification: n, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return fmt.Errorf("webhook returned status %d", resp.StatusCode)
}
