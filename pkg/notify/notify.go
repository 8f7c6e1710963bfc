// Package notify provides the outbound SMS and email adapters. The webhook
// senders post to the surrounding system's delivery gateway; the log senders
// serve development and tests.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
)

// LogSMSSender writes outbound messages to the log instead of sending them.
type LogSMSSender struct {
	logger *slog.Logger
}

func NewLogSMSSender(logger *slog.Logger) *LogSMSSender {
	return &LogSMSSender{logger: logger.With("module", "notify")}
}

func (s *LogSMSSender) SendSMS(ctx context.Context, toPhone, body string) error {
	s.logger.InfoContext(ctx, "SMS (log sender)", "to", toPhone, "body", body)

	return nil
}

// LogEmailSender writes outbound emails to the log instead of sending them.
type LogEmailSender struct {
	logger *slog.Logger
}

func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger.With("module", "notify")}
}

func (s *LogEmailSender) SendEmail(ctx context.Context, toEmail, subject, html string) error {
	s.logger.InfoContext(ctx, "Email (log sender)", "to", toEmail, "subject", subject)

	return nil
}

// WebhookSender posts deliveries to the gateway endpoints the surrounding
// system exposes. One sender serves both channels; the paths differ.
type WebhookSender struct {
	baseURL string
	client  *http.Client
}

func NewWebhookSender(baseURL string, client *http.Client) *WebhookSender {
	if client == nil {
		client = http.DefaultClient
	}

	return &WebhookSender{baseURL: baseURL, client: client}
}

func (s *WebhookSender) SendSMS(ctx context.Context, toPhone, body string) error {
	return s.post(ctx, "/sms", map[string]string{"to": toPhone, "body": body})
}

func (s *WebhookSender) SendEmail(ctx context.Context, toEmail, subject, html string) error {
	return s.post(ctx, "/email", map[string]string{"to": toEmail, "subject": subject, "html": html})
}

func (s *WebhookSender) post(ctx context.Context, path string, payload map[string]string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("delivery request failed: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("delivery gateway returned %d", resp.StatusCode)
	}

	return nil
}
