package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"floorwatch/internal/clock"
	"floorwatch/internal/config"
	"floorwatch/internal/domain"
)

// fakeSender records Send calls and returns a fixed error.
type fakeSender struct {
	kind string
	err  error

	mu    sync.Mutex
	calls int
}

func (s *fakeSender) Kind() string {
	return s.kind
}

func (s *fakeSender) Send(_ context.Context, _ domain.Alert) error {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.err
}

func (s *fakeSender) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// fakeRecorder collects appended notification records.
type fakeRecorder struct {
	mu      sync.Mutex
	records map[string][]domain.NotificationRecord
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{records: make(map[string][]domain.NotificationRecord)}
}

func (r *fakeRecorder) AppendNotification(alertID string, record domain.NotificationRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[alertID] = append(r.records[alertID], record)
}

func (r *fakeRecorder) recordsFor(alertID string) []domain.NotificationRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.NotificationRecord(nil), r.records[alertID]...)
}

func testAlert() domain.Alert {
	return domain.Alert{
		ID:          "alert-1",
		RuleID:      "rule-load",
		Priority:    domain.PriorityHigh,
		State:       domain.AlertStateCreated,
		WarehouseID: "wh-1",
		Title:       "High load",
		Message:     "Load reached 12",
		TriggeredAt: time.Now().UTC(),
	}
}

func TestDispatchChannelsAreIndependent(t *testing.T) {
	t.Parallel()

	webhook := &fakeSender{kind: config.ChannelKindWebhook, err: errors.New("endpoint down")}
	ui := &fakeSender{kind: config.ChannelKindUI}
	recorder := newFakeRecorder()
	dispatcher := newDispatcher(map[string]ChannelSender{
		config.ChannelKindWebhook: webhook,
		config.ChannelKindUI:      ui,
	}, recorder, nil, clock.RealClock{})

	rule := config.RuleConfig{
		ID: "rule-load",
		Channels: []config.ChannelConfig{
			{Kind: config.ChannelKindWebhook},
			{Kind: config.ChannelKindUI},
		},
	}
	dispatcher.Dispatch(testAlert(), rule)
	dispatcher.Wait()

	records := recorder.recordsFor("alert-1")
	if len(records) != 2 {
		t.Fatalf("expected two delivery records, got %d", len(records))
	}
	outcomes := map[string]bool{}
	for _, record := range records {
		outcomes[record.Channel] = record.Success
		if record.Channel == config.ChannelKindWebhook && record.Error == "" {
			t.Fatalf("expected failure reason on the webhook record")
		}
	}
	if outcomes[config.ChannelKindWebhook] || !outcomes[config.ChannelKindUI] {
		t.Fatalf("expected webhook failure and ui success, got %v", outcomes)
	}
	if ui.callCount() != 1 || webhook.callCount() != 1 {
		t.Fatalf("expected one attempt per channel")
	}
}

func TestDispatchSkipsDisabledChannel(t *testing.T) {
	t.Parallel()

	disabled := false
	ui := &fakeSender{kind: config.ChannelKindUI}
	recorder := newFakeRecorder()
	dispatcher := newDispatcher(map[string]ChannelSender{
		config.ChannelKindUI: ui,
	}, recorder, nil, clock.RealClock{})

	rule := config.RuleConfig{
		ID: "rule-load",
		Channels: []config.ChannelConfig{
			{Kind: config.ChannelKindUI, Enabled: &disabled},
		},
	}
	dispatcher.Dispatch(testAlert(), rule)
	dispatcher.Wait()

	if ui.callCount() != 0 {
		t.Fatalf("expected disabled channel untouched")
	}
	if len(recorder.recordsFor("alert-1")) != 0 {
		t.Fatalf("expected no records for disabled channel")
	}
}

func TestDispatchChannelRateLimit(t *testing.T) {
	t.Parallel()

	ui := &fakeSender{kind: config.ChannelKindUI}
	recorder := newFakeRecorder()
	clk := clock.NewManualClock(time.Now().UTC())
	dispatcher := newDispatcher(map[string]ChannelSender{
		config.ChannelKindUI: ui,
	}, recorder, nil, clk)

	rule := config.RuleConfig{
		ID: "rule-load",
		Channels: []config.ChannelConfig{
			{Kind: config.ChannelKindUI, MaxPerWindow: 2, RateWindowMinutes: 10},
		},
	}

	for i := 0; i < 4; i++ {
		alert := testAlert()
		dispatcher.Dispatch(alert, rule)
		clk.Advance(time.Minute)
	}
	dispatcher.Wait()

	// Two allowed, two skipped; skips leave no record at all.
	if ui.callCount() != 2 {
		t.Fatalf("expected two deliveries inside the window, got %d", ui.callCount())
	}
	if got := len(recorder.recordsFor("alert-1")); got != 2 {
		t.Fatalf("expected two records, got %d", got)
	}

	// Past the window the channel opens up again.
	clk.Advance(10 * time.Minute)
	dispatcher.Dispatch(testAlert(), rule)
	dispatcher.Wait()
	if ui.callCount() != 3 {
		t.Fatalf("expected delivery after the window slid, got %d", ui.callCount())
	}
}

func TestSlidingLimiterPerKey(t *testing.T) {
	t.Parallel()

	limiter := newSlidingLimiter()
	now := time.Now().UTC()

	if !limiter.Allow("ui/rule-a", now, 1, time.Hour) {
		t.Fatalf("expected first slot granted")
	}
	if limiter.Allow("ui/rule-a", now, 1, time.Hour) {
		t.Fatalf("expected second slot denied")
	}
	if !limiter.Allow("ui/rule-b", now, 1, time.Hour) {
		t.Fatalf("expected independent key unaffected")
	}
	if !limiter.Allow("ui/rule-a", now.Add(61*time.Minute), 1, time.Hour) {
		t.Fatalf("expected slot after the window slid")
	}
	if !limiter.Allow("ui/rule-a", now, 0, time.Hour) {
		t.Fatalf("expected zero cap to disable the limit")
	}
}
