package notify

import (
	"context"
	"io"
	"log/slog"
	"sync"

	"floorwatch/internal/clock"
	"floorwatch/internal/config"
	"floorwatch/internal/domain"
	"floorwatch/internal/metrics"
)

// Recorder appends delivery outcomes to an alert's notification history.
// Params: alert ID and one attempt record.
// Returns: record appended by the alert registry.
type Recorder interface {
	AppendNotification(alertID string, record domain.NotificationRecord)
}

// Dispatcher fans one alert out to its rule's enabled channels.
// Params: sender registry, channel-scoped limiter, recorder, logger, and
// clock.
// Returns: non-blocking delivery coordinator. One channel's outcome never
// blocks or skips another.
type Dispatcher struct {
	senders  map[string]ChannelSender
	limiter  *slidingLimiter
	recorder Recorder
	logger   *slog.Logger
	clk      clock.Clock
	wg       sync.WaitGroup
}

// NewDispatcher builds the dispatcher with one sender per channel kind.
// Params: notify config, recorder, logger, and clock.
// Returns: initialized dispatcher. Unconfigured transports still get a
// sender; their Send errors become failed notification records.
func NewDispatcher(cfg config.NotifyConfig, recorder Recorder, logger *slog.Logger, clk clock.Clock) *Dispatcher {
	senders := map[string]ChannelSender{
		config.ChannelKindWebhook: NewWebhookSender(cfg.Webhook),
		config.ChannelKindChatOps: NewChatOpsSender(cfg.ChatOps),
		config.ChannelKindUI:      NewUISender(cfg.UI),
		config.ChannelKindEmail:   NewEmailSender(),
	}
	return newDispatcher(senders, recorder, logger, clk)
}

// newDispatcher wires an explicit sender registry. Used by tests with fakes.
// Params: sender map, recorder, logger, and clock.
// Returns: initialized dispatcher.
func newDispatcher(senders map[string]ChannelSender, recorder Recorder, logger *slog.Logger, clk clock.Clock) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if clk == nil {
		clk = clock.RealClock{}
	}
	return &Dispatcher{
		senders:  senders,
		limiter:  newSlidingLimiter(),
		recorder: recorder,
		logger:   logger,
		clk:      clk,
	}
}

// Dispatch delivers one alert to every enabled channel of its rule.
// Params: alert snapshot and owning rule. Each channel runs on its own
// goroutine so webhook retries never delay evaluation or sibling channels.
// Returns: immediately; outcomes land in the alert's notification history.
func (d *Dispatcher) Dispatch(alert domain.Alert, rule config.RuleConfig) {
	now := d.clk.Now()
	for _, channel := range rule.Channels {
		if !channel.IsEnabled() {
			continue
		}
		sender, ok := d.senders[channel.Kind]
		if !ok {
			continue
		}
		if !d.limiter.Allow(channel.Kind+"/"+rule.ID, now, channel.MaxPerWindow, channel.RateWindow()) {
			metrics.ChannelRateLimited.WithLabelValues(channel.Kind).Inc()
			d.logger.Warn("channel delivery skipped by rate limit",
				"channel", channel.Kind, "rule", rule.ID, "alert", alert.ID)
			continue
		}

		d.wg.Add(1)
		go func(sender ChannelSender, kind string) {
			defer d.wg.Done()
			d.deliver(sender, kind, alert)
		}(sender, channel.Kind)
	}
}

// deliver runs one channel attempt and records its outcome.
// Params: sender, channel kind, and alert snapshot.
// Returns: notification record appended regardless of outcome.
func (d *Dispatcher) deliver(sender ChannelSender, kind string, alert domain.Alert) {
	err := sender.Send(context.Background(), alert)

	record := domain.NotificationRecord{
		Channel: kind,
		SentAt:  d.clk.Now(),
		Success: err == nil,
	}
	status := "success"
	if err != nil {
		record.Error = err.Error()
		status = "failure"
		d.logger.Warn("channel delivery failed",
			"channel", kind, "alert", alert.ID, "error", err.Error())
	}
	metrics.DeliveryAttempts.WithLabelValues(kind, status).Inc()
	d.recorder.AppendNotification(alert.ID, record)
}

// Wait blocks until all in-flight deliveries finish.
// Params: none.
// Returns: after the last delivery goroutine records its outcome.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
