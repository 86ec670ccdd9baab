package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/LJTian/DailyBriefing/internal/config"
)

const (
	webhookTimeout       = 30 * time.Second
	webhookMaxErrorBytes = 1024
)

// Sender delivers one finished message.
type Sender interface {
	Send(ctx context.Context, text string) error
}

// Webhook posts a message to a chat webhook (Discord or Slack style payload).
// It makes exactly one attempt and does not split long messages.
type Webhook struct {
	url    string
	format string
	client *http.Client
}

func NewWebhook(url, format string) *Webhook {
	if format == "" {
		format = config.WebhookDiscord
	}
	return &Webhook{
		url:    url,
		format: format,
		client: &http.Client{Timeout: webhookTimeout},
	}
}

func (w *Webhook) payload(text string) map[string]string {
	if w.format == config.WebhookSlack {
		return map[string]string{"text": text}
	}
	return map[string]string{"content": text}
}

func (w *Webhook) Send(ctx context.Context, text string) error {
	body, err := json.Marshal(w.payload(text))
	if err != nil {
		return fmt.Errorf("webhook: marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, webhookMaxErrorBytes))
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, webhookMaxErrorBytes))
	return nil
}

// StatusError reports a non-2xx webhook response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook: unexpected status %d", e.StatusCode)
	}
	return fmt.Sprintf("webhook: unexpected status %d: %s", e.StatusCode, e.Body)
}
