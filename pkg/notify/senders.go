package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/teslashibe/go-focus/internal/httpc"
)

// LogSender writes alerts to a structured logger.
type LogSender struct {
	Logger *slog.Logger
}

// Send logs the alert at info level.
func (s LogSender) Send(_ context.Context, a Alert) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("alert", "kind", a.Kind, "title", a.Title, "message", a.Message, "user", a.User, "sound", a.Sound)
	return nil
}

// WebhookSender posts alerts as JSON to an HTTP endpoint.
type WebhookSender struct {
	URL    string
	Client *http.Client
}

// NewWebhookSender creates a webhook sender using the shared HTTP client.
func NewWebhookSender(url string) (*WebhookSender, error) {
	if url == "" {
		return nil, ErrNoURL
	}
	return &WebhookSender{URL: url, Client: httpc.Client}, nil
}

// Send posts the alert.
func (s *WebhookSender) Send(ctx context.Context, a Alert) error {
	body, err := json.Marshal(a)
	if err != nil {
		return fmt.Errorf("notify: encode alert: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := s.Client
	if client == nil {
		client = httpc.Client
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, URL: s.URL}
	}
	return nil
}
