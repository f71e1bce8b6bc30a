package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"floorwatch/internal/config"
	"floorwatch/internal/domain"
)

func TestPriorityColor(t *testing.T) {
	t.Parallel()

	cases := []struct {
		priority domain.Priority
		want     string
	}{
		{domain.PriorityCritical, "#dc3545"},
		{domain.PriorityHigh, "#fd7e14"},
		{domain.PriorityMedium, "#ffc107"},
		{domain.PriorityLow, "#28a745"},
		{domain.Priority("unknown"), "#6c757d"},
	}
	for _, tc := range cases {
		if got := priorityColor(tc.priority); got != tc.want {
			t.Fatalf("priority %q: expected %q, got %q", tc.priority, tc.want, got)
		}
	}
}

func TestSlackChatSenderPostsAttachment(t *testing.T) {
	t.Parallel()

	var payload struct {
		Text        string `json:"text"`
		Attachments []struct {
			Color  string `json:"color"`
			Title  string `json:"title"`
			Text   string `json:"text"`
			Fields []struct {
				Title string `json:"title"`
				Value string `json:"value"`
			} `json:"fields"`
		} `json:"attachments"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode chat payload: %v", err)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	sender := NewSlackChatSender(config.ChatOpsNotifier{WebhookURL: server.URL, TimeoutSec: 5})
	alert := domain.Alert{
		ID:          "alert-1",
		Priority:    domain.PriorityHigh,
		WarehouseID: "wh-1",
		ZoneID:      "cold-a",
		Title:       "High load",
		Message:     "Load reached 12",
		TriggeredAt: time.Now().UTC(),
	}
	if err := sender.Send(context.Background(), alert); err != nil {
		t.Fatalf("unexpected send error: %v", err)
	}

	if len(payload.Attachments) != 1 {
		t.Fatalf("expected one attachment, got %d", len(payload.Attachments))
	}
	attachment := payload.Attachments[0]
	if attachment.Color != "#fd7e14" {
		t.Fatalf("expected high-priority color, got %q", attachment.Color)
	}
	if attachment.Title != "High load" || attachment.Text != "Load reached 12" {
		t.Fatalf("unexpected attachment text %+v", attachment)
	}
	fields := map[string]string{}
	for _, field := range attachment.Fields {
		fields[field.Title] = field.Value
	}
	if fields["Warehouse"] != "wh-1" || fields["Zone"] != "cold-a" {
		t.Fatalf("unexpected scope fields %v", fields)
	}
}

func TestSlackChatSenderWithoutURL(t *testing.T) {
	t.Parallel()

	sender := NewSlackChatSender(config.ChatOpsNotifier{})
	if err := sender.Send(context.Background(), domain.Alert{ID: "alert-1"}); err == nil {
		t.Fatalf("expected error when webhook_url is missing")
	}
}

func TestNewChatOpsSenderProviderSelection(t *testing.T) {
	t.Parallel()

	if _, ok := NewChatOpsSender(config.ChatOpsNotifier{Provider: "slack"}).(*SlackChatSender); !ok {
		t.Fatalf("expected slack sender for slack provider")
	}
	if _, ok := NewChatOpsSender(config.ChatOpsNotifier{}).(*SlackChatSender); !ok {
		t.Fatalf("expected slack sender by default")
	}
	if _, ok := NewChatOpsSender(config.ChatOpsNotifier{Provider: "Telegram"}).(*TelegramChatSender); !ok {
		t.Fatalf("expected telegram sender for telegram provider")
	}
}

func TestTelegramChatSenderMissingSettings(t *testing.T) {
	t.Parallel()

	sender := NewTelegramChatSender(config.ChatOpsNotifier{Provider: "telegram"})
	if err := sender.Send(context.Background(), domain.Alert{ID: "alert-1"}); err == nil {
		t.Fatalf("expected init error without bot token")
	}

	sender = NewTelegramChatSender(config.ChatOpsNotifier{Provider: "telegram", BotToken: "123:abc"})
	if err := sender.Send(context.Background(), domain.Alert{ID: "alert-1"}); err == nil {
		t.Fatalf("expected init error without chat id")
	}
}

func TestNormalizeChatID(t *testing.T) {
	t.Parallel()

	if got := normalizeChatID(" -100123 "); got != int64(-100123) {
		t.Fatalf("expected numeric chat id, got %v", got)
	}
	if got := normalizeChatID("@floor_alerts"); got != "@floor_alerts" {
		t.Fatalf("expected channel handle kept as string, got %v", got)
	}
}
