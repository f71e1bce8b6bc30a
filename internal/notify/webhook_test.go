package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"floorwatch/internal/config"
	"floorwatch/internal/domain"
)

func webhookAlert() domain.Alert {
	return domain.Alert{
		ID:          "alert-1",
		Priority:    domain.PriorityCritical,
		WarehouseID: "wh-1",
		ZoneID:      "cold-a",
		Title:       "Temperature breach",
		Message:     "Temp reached -1 in cold-a",
		TriggeredAt: time.Now().UTC(),
		Metadata:    map[string]any{"metrics": map[string]any{"temp": -1.0}},
	}
}

func TestWebhookSendPostsEnvelope(t *testing.T) {
	t.Parallel()

	var got webhookEnvelope
	var header atomic.Value
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header.Store(r.Header.Get("X-Floorwatch-Token"))
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode envelope: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewWebhookSender(config.WebhookNotifier{
		URL:         server.URL,
		TimeoutSec:  5,
		MaxAttempts: 1,
		Headers:     map[string]string{"X-Floorwatch-Token": "secret"},
	})
	if err := sender.Send(context.Background(), webhookAlert()); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}
	if got.ID != "alert-1" || got.Priority != domain.PriorityCritical || got.ZoneID != "cold-a" {
		t.Fatalf("unexpected envelope %+v", got)
	}
	if header.Load() != "secret" {
		t.Fatalf("expected custom header forwarded")
	}
}

func TestWebhookSendRetriesUntilSuccess(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewWebhookSender(config.WebhookNotifier{
		URL:           server.URL,
		TimeoutSec:    5,
		MaxAttempts:   3,
		BackoffBaseMS: 1,
		BackoffMaxMS:  2,
	})
	if err := sender.Send(context.Background(), webhookAlert()); err != nil {
		t.Fatalf("expected eventual success, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected three attempts, got %d", attempts.Load())
	}
}

func TestWebhookSendExhaustsAttempts(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		http.Error(w, "persistently down", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	sender := NewWebhookSender(config.WebhookNotifier{
		URL:           server.URL,
		TimeoutSec:    5,
		MaxAttempts:   3,
		BackoffBaseMS: 1,
		BackoffMaxMS:  2,
	})
	err := sender.Send(context.Background(), webhookAlert())
	if err == nil {
		t.Fatalf("expected final failure")
	}
	if !strings.Contains(err.Error(), "status=503") {
		t.Fatalf("expected status in error, got %v", err)
	}
	if attempts.Load() != 3 {
		t.Fatalf("expected three attempts, got %d", attempts.Load())
	}
}

func TestWebhookSendWithoutURL(t *testing.T) {
	t.Parallel()

	sender := NewWebhookSender(config.WebhookNotifier{})
	if err := sender.Send(context.Background(), webhookAlert()); err == nil {
		t.Fatalf("expected error when no url is configured")
	}
}
