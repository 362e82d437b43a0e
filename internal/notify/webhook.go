package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// flagSuppressNotifications delivers a message without push or desktop
// alerts.
const flagSuppressNotifications = 4096

// maxContentRunes is the Discord message length limit.
const maxContentRunes = 2000

// Sender delivers rendered message content to a channel.
type Sender interface {
	Send(ctx context.Context, content string) error
}

// Webhook posts messages to a Discord incoming webhook.
type Webhook struct {
	url        string
	silent     bool
	httpClient *http.Client
}

// NewWebhook creates a webhook sender. A nil httpClient uses a client
// with a 30 second timeout.
func NewWebhook(url string, silent bool, httpClient *http.Client) *Webhook {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Webhook{url: url, silent: silent, httpClient: httpClient}
}

type webhookPayload struct {
	Content string `json:"content"`
	Flags   int    `json:"flags,omitempty"`
}

// Send posts content. The response body is not inspected; any non-2xx
// status is an error. There is no retry.
func (w *Webhook) Send(ctx context.Context, content string) error {
	payload := webhookPayload{Content: truncate(strings.TrimSpace(content), maxContentRunes)}
	if w.silent {
		payload.Flags = flagSuppressNotifications
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("posting to webhook: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}
	return nil
}

func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

// LogSender writes messages to a logger instead of delivering them. It
// backs --dry-run.
type LogSender struct {
	Logger *slog.Logger
}

// Send logs content at info level.
func (s LogSender) Send(_ context.Context, content string) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("dry run, message not sent", "content", strings.TrimSpace(content))
	return nil
}
