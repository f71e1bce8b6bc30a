package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"floorwatch/internal/config"
	"floorwatch/internal/domain"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"
)

// priorityColor maps alert priority to chat attachment color.
// Params: alert priority value.
// Returns: hex color; unknown priorities render gray.
func priorityColor(priority domain.Priority) string {
	switch priority {
	case domain.PriorityCritical:
		return "#dc3545"
	case domain.PriorityHigh:
		return "#fd7e14"
	case domain.PriorityMedium:
		return "#ffc107"
	case domain.PriorityLow:
		return "#28a745"
	default:
		return "#6c757d"
	}
}

// priorityEmoji maps alert priority to a Telegram marker.
// Params: alert priority value.
// Returns: emoji token; unknown priorities render the neutral marker.
func priorityEmoji(priority domain.Priority) string {
	switch priority {
	case domain.PriorityCritical:
		return "\U0001F534" // red circle
	case domain.PriorityHigh:
		return "\U0001F7E0" // orange circle
	case domain.PriorityMedium:
		return "\U0001F7E1" // yellow circle
	case domain.PriorityLow:
		return "\U0001F7E2" // green circle
	default:
		return "⚪" // white circle
	}
}

// NewChatOpsSender builds the chat-ops sender for the configured provider.
// Params: chat-ops notifier config.
// Returns: Slack-style webhook sender by default, Telegram sender when
// the provider selects it.
func NewChatOpsSender(cfg config.ChatOpsNotifier) ChannelSender {
	if strings.EqualFold(strings.TrimSpace(cfg.Provider), config.ChatOpsProviderTelegram) {
		return NewTelegramChatSender(cfg)
	}
	return NewSlackChatSender(cfg)
}

// SlackChatSender posts color-coded attachments to a Slack-compatible hook.
// Params: webhook URL and timeout from config.
// Returns: chat-ops channel sender. Single attempt per alert.
type SlackChatSender struct {
	cfg    config.ChatOpsNotifier
	client *http.Client
}

// NewSlackChatSender creates the Slack-compatible chat sender.
// Params: chat-ops notifier config.
// Returns: initialized sender.
func NewSlackChatSender(cfg config.ChatOpsNotifier) *SlackChatSender {
	return &SlackChatSender{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSec) * time.Second,
		},
	}
}

// Kind returns the sender channel kind.
// Params: none.
// Returns: static channel key.
func (s *SlackChatSender) Kind() string {
	return config.ChannelKindChatOps
}

// Send posts one rich message with priority color and scope fields.
// Params: context and alert snapshot.
// Returns: transport or non-2xx status error. No internal retry.
func (s *SlackChatSender) Send(ctx context.Context, alert domain.Alert) error {
	if strings.TrimSpace(s.cfg.WebhookURL) == "" {
		return errors.New("chatops webhook_url is not configured")
	}

	type attachmentField struct {
		Title string `json:"title"`
		Value string `json:"value"`
		Short bool   `json:"short"`
	}
	fields := []attachmentField{
		{Title: "Priority", Value: string(alert.Priority), Short: true},
		{Title: "Warehouse", Value: alert.WarehouseID, Short: true},
	}
	if alert.ZoneID != "" {
		fields = append(fields, attachmentField{Title: "Zone", Value: alert.ZoneID, Short: true})
	}
	if alert.ShiftCode != "" {
		fields = append(fields, attachmentField{Title: "Shift", Value: alert.ShiftCode, Short: true})
	}

	payload := struct {
		Text        string `json:"text"`
		Attachments []struct {
			Color  string            `json:"color"`
			Title  string            `json:"title"`
			Text   string            `json:"text"`
			Fields []attachmentField `json:"fields"`
			TS     int64             `json:"ts"`
		} `json:"attachments"`
	}{
		Text: alert.Title,
	}
	payload.Attachments = append(payload.Attachments, struct {
		Color  string            `json:"color"`
		Title  string            `json:"title"`
		Text   string            `json:"text"`
		Fields []attachmentField `json:"fields"`
		TS     int64             `json:"ts"`
	}{
		Color:  priorityColor(alert.Priority),
		Title:  alert.Title,
		Text:   alert.Message,
		Fields: fields,
		TS:     alert.TriggeredAt.Unix(),
	})

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode chatops payload: %w", err)
	}
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build chatops request: %w", err)
	}
	request.Header.Set("Content-Type", "application/json")

	response, err := s.client.Do(request)
	if err != nil {
		return fmt.Errorf("chatops send: %w", err)
	}
	defer response.Body.Close()
	if response.StatusCode < 200 || response.StatusCode >= 300 {
		return unexpectedStatusError("chatops", response)
	}
	return nil
}

// TelegramChatSender posts chat-ops messages through the Telegram Bot API.
// Params: bot token, chat id, and optional API base from config.
// Returns: chat-ops channel sender. Single attempt per alert.
type TelegramChatSender struct {
	client  *tgbot.Bot
	chatID  any
	initErr error
}

// NewTelegramChatSender creates the Telegram chat sender.
// Params: chat-ops notifier config with Telegram settings.
// Returns: initialized sender; configuration errors surface at Send so
// they are recorded on the alert.
func NewTelegramChatSender(cfg config.ChatOpsNotifier) *TelegramChatSender {
	sender := &TelegramChatSender{chatID: normalizeChatID(cfg.ChatID)}

	if strings.TrimSpace(cfg.BotToken) == "" {
		sender.initErr = errors.New("chatops bot_token is required for telegram provider")
		return sender
	}
	if strings.TrimSpace(cfg.ChatID) == "" {
		sender.initErr = errors.New("chatops chat_id is required for telegram provider")
		return sender
	}

	options := []tgbot.Option{tgbot.WithSkipGetMe()}
	if base := strings.TrimRight(strings.TrimSpace(cfg.APIBase), "/"); base != "" {
		options = append(options, tgbot.WithServerURL(base))
	}
	botClient, err := tgbot.New(cfg.BotToken, options...)
	if err != nil {
		sender.initErr = fmt.Errorf("init telegram bot: %w", err)
		return sender
	}
	sender.client = botClient
	return sender
}

// Kind returns the sender channel kind.
// Params: none.
// Returns: static channel key.
func (s *TelegramChatSender) Kind() string {
	return config.ChannelKindChatOps
}

// Send posts one priority-marked HTML message to the Telegram chat.
// Params: context and alert snapshot.
// Returns: init, transport, or API error.
func (s *TelegramChatSender) Send(ctx context.Context, alert domain.Alert) error {
	if s.initErr != nil {
		return s.initErr
	}

	var text strings.Builder
	text.WriteString(priorityEmoji(alert.Priority))
	text.WriteString(" <b>")
	text.WriteString(html.EscapeString(alert.Title))
	text.WriteString("</b>\n")
	text.WriteString(html.EscapeString(alert.Message))
	text.WriteString("\n\nWarehouse: ")
	text.WriteString(alert.WarehouseID)
	if alert.ZoneID != "" {
		text.WriteString("\nZone: ")
		text.WriteString(alert.ZoneID)
	}
	if alert.ShiftCode != "" {
		text.WriteString("\nShift: ")
		text.WriteString(alert.ShiftCode)
	}

	sent, err := s.client.SendMessage(ctx, &tgbot.SendMessageParams{
		ChatID:    s.chatID,
		Text:      text.String(),
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("telegram send: %w", err)
	}
	if sent == nil || sent.ID <= 0 {
		return errors.New("telegram send returned empty message id")
	}
	return nil
}

// normalizeChatID converts numeric chat IDs to int64 and keeps the rest as
// string.
// Params: configured chat ID value.
// Returns: Telegram API chat id union value.
func normalizeChatID(raw string) any {
	trimmed := strings.TrimSpace(raw)
	if numeric, err := strconv.ParseInt(trimmed, 10, 64); err == nil {
		return numeric
	}
	return trimmed
}
