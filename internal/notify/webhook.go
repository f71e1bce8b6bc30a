package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"floorwatch/internal/backoff"
	"floorwatch/internal/config"
	"floorwatch/internal/domain"
)

// webhookEnvelope is the fixed outbound webhook payload shape.
// Params: alert identity, priority, rendered text, scope, and metadata.
// Returns: JSON body posted to the configured endpoint.
type webhookEnvelope struct {
	ID          string          `json:"id"`
	Priority    domain.Priority `json:"priority"`
	Title       string          `json:"title"`
	Message     string          `json:"message"`
	WarehouseID string          `json:"warehouseId"`
	ZoneID      string          `json:"zoneId,omitempty"`
	ShiftCode   string          `json:"shiftCode,omitempty"`
	TriggeredAt time.Time       `json:"triggeredAt"`
	Metadata    map[string]any  `json:"metadata,omitempty"`
}

// WebhookSender posts alert envelopes to one HTTP endpoint with retries.
// Params: endpoint config, per-attempt HTTP client, and backoff policy.
// Returns: webhook channel sender.
type WebhookSender struct {
	cfg    config.WebhookNotifier
	client *http.Client
	policy backoff.Policy
}

// NewWebhookSender creates the webhook sender.
// Params: webhook notifier config.
// Returns: initialized sender; a missing URL surfaces as a Send error so
// the failure is recorded on the alert instead of dropped at startup.
func NewWebhookSender(cfg config.WebhookNotifier) *WebhookSender {
	return &WebhookSender{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
		policy: backoff.Policy{
			MaxAttempts: cfg.MaxAttempts,
			BaseDelay:   time.Duration(cfg.BackoffBaseMS) * time.Millisecond,
			MaxDelay:    time.Duration(cfg.BackoffMaxMS) * time.Millisecond,
		},
	}
}

// Kind returns the sender channel kind.
// Params: none.
// Returns: static channel key.
func (s *WebhookSender) Kind() string {
	return config.ChannelKindWebhook
}

// Send posts the alert envelope, retrying with exponential backoff.
// Params: context and alert snapshot.
// Returns: nil on any successful attempt, or the final attempt error.
func (s *WebhookSender) Send(ctx context.Context, alert domain.Alert) error {
	if strings.TrimSpace(s.cfg.URL) == "" {
		return errors.New("webhook url is not configured")
	}
	body, err := json.Marshal(webhookEnvelope{
		ID:          alert.ID,
		Priority:    alert.Priority,
		Title:       alert.Title,
		Message:     alert.Message,
		WarehouseID: alert.WarehouseID,
		ZoneID:      alert.ZoneID,
		ShiftCode:   alert.ShiftCode,
		TriggeredAt: alert.TriggeredAt,
		Metadata:    alert.Metadata,
	})
	if err != nil {
		return fmt.Errorf("encode webhook payload: %w", err)
	}

	return backoff.Retry(ctx, s.policy, func(_ int) error {
		return s.post(ctx, body)
	})
}

// post performs one delivery attempt.
// Params: context and encoded body.
// Returns: transport or non-2xx status error.
func (s *WebhookSender) post(ctx context.Context, body []byte) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")
	for key, value := range s.cfg.Headers {
		request.Header.Set(key, value)
	}

	response, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("webhook send: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return unexpectedStatusError("webhook", response)
	}
	return nil
}

// unexpectedStatusError formats one non-2xx HTTP response with optional body.
// Params: sender prefix label and HTTP response pointer.
// Returns: status-only or status+body error.
func unexpectedStatusError(prefix string, response *http.Response) error {
	rawBody, readErr := io.ReadAll(io.LimitReader(response.Body, 4096))
	if readErr != nil {
		return fmt.Errorf("%s status=%d (read body error: %w)", prefix, response.StatusCode, readErr)
	}
	trimmed := strings.TrimSpace(string(rawBody))
	if trimmed == "" {
		return fmt.Errorf("%s status=%d", prefix, response.StatusCode)
	}
	return fmt.Errorf("%s status=%d body=%s", prefix, response.StatusCode, trimmed)
}
