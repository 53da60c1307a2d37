package alert

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookSink delivers notifications to a generic HTTP webhook.
type WebhookSink struct {
	url    string
	secret string
	client *http.Client
}

// NewWebhookSink creates a webhook sink. If secret is non-empty,
// request bodies are signed with HMAC-SHA256.
func NewWebhookSink(url, secret string) *WebhookSink {
	return &WebhookSink{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Name returns "webhook".
func (w *WebhookSink) Name() string { return "webhook" }

type webhookPayload struct {
	Event        string       `json:"event"`
	Timestamp    string       `json:"timestamp"`
	Notification Notification `json:"notification"`
}

// Send POSTs the notification as JSON.
func (w *WebhookSink) Send(ctx context.Context, n Notification) error {
	body, err := json.Marshal(webhookPayload{
		Event:        "cost_alert",
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		Notification: n,
	})
	if err != nil {
		return fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "saturn/1.0")

	if w.secret != "" {
		mac := hmac.New(sha256.New, []byte(w.secret))
		mac.Write(body)
		req.Header.Set("X-Signature-256", "sha256="+hex.EncodeToString(mac.Sum(nil)))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("send webhook alert: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
