package replay

import (
	"testing"
	"time"

	"floorwatch/internal/config"
	"floorwatch/internal/domain"
)

func loadRule() config.RuleConfig {
	return config.RuleConfig{
		ID:       "rule-load",
		Name:     "High load",
		Priority: "high",
		Conditions: []config.ConditionConfig{
			{Field: "metrics.load", Op: ">", Threshold: 10, DurationMinutes: 5},
		},
	}
}

func loadEvent(value float64, at time.Time) domain.Event {
	return domain.Event{
		WarehouseID: "wh-1",
		ZoneID:      "cold-a",
		ObservedAt:  at,
		Payload: map[string]any{
			"warehouseId": "wh-1",
			"zoneId":      "cold-a",
			"metrics":     map[string]any{"load": value},
		},
	}
}

func TestSimulateReplaysSustainedBreach(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	history := NewHistory(100, 24*time.Hour)
	// One reading per minute above the threshold over the last six minutes.
	for minute := 6; minute >= 1; minute-- {
		history.Append(loadEvent(12, now.Add(-time.Duration(minute)*time.Minute)))
	}

	simulator := NewSimulator(history, 4, 10, nil)
	result := simulator.Simulate([]config.RuleConfig{loadRule()}, 60, "", now)

	if result.EventsAnalyzed != 6 {
		t.Fatalf("expected six events analyzed, got %d", result.EventsAnalyzed)
	}
	if result.TotalAlerts != 1 {
		t.Fatalf("expected one simulated alert, got %d", result.TotalAlerts)
	}
	if len(result.RuleResults) != 1 {
		t.Fatalf("expected one rule result, got %d", len(result.RuleResults))
	}
	ruleResult := result.RuleResults[0]
	if ruleResult.RuleID != "rule-load" || ruleResult.AlertCount != 1 || len(ruleResult.Alerts) != 1 {
		t.Fatalf("unexpected rule result %+v", ruleResult)
	}
	// The simulated alert carries the historical observation time, not now.
	if !ruleResult.Alerts[0].TriggeredAt.Equal(now.Add(-time.Minute)) {
		t.Fatalf("unexpected simulated trigger time %v", ruleResult.Alerts[0].TriggeredAt)
	}
}

func TestSimulateRuleFilter(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	history := NewHistory(100, 24*time.Hour)
	history.Append(loadEvent(12, now.Add(-time.Minute)))

	other := loadRule()
	other.ID = "rule-other"
	other.Conditions = []config.ConditionConfig{{Field: "metrics.load", Op: ">", Threshold: 5}}

	simulator := NewSimulator(history, 4, 10, nil)
	result := simulator.Simulate([]config.RuleConfig{loadRule(), other}, 60, "rule-other", now)

	if len(result.RuleResults) != 1 || result.RuleResults[0].RuleID != "rule-other" {
		t.Fatalf("expected only the targeted rule, got %+v", result.RuleResults)
	}
	if result.TotalAlerts != 1 {
		t.Fatalf("expected the instantaneous rule to fire once, got %d", result.TotalAlerts)
	}
}

func TestSimulateInvocationsAreIsolated(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	history := NewHistory(100, 24*time.Hour)
	for minute := 6; minute >= 1; minute-- {
		history.Append(loadEvent(12, now.Add(-time.Duration(minute)*time.Minute)))
	}

	rule := loadRule()
	rule.CooldownMinutes = 60

	// Cooldown from one replay must not leak into the next: each run
	// starts from a fresh state store and fires the same alert again.
	simulator := NewSimulator(history, 4, 10, nil)
	first := simulator.Simulate([]config.RuleConfig{rule}, 60, "", now)
	second := simulator.Simulate([]config.RuleConfig{rule}, 60, "", now)

	if first.TotalAlerts != 1 || second.TotalAlerts != 1 {
		t.Fatalf("expected identical outcomes, got %d and %d", first.TotalAlerts, second.TotalAlerts)
	}
}

func TestSimulateSampleCap(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	history := NewHistory(100, 24*time.Hour)
	for minute := 5; minute >= 1; minute-- {
		history.Append(loadEvent(12, now.Add(-time.Duration(minute)*time.Minute)))
	}

	rule := loadRule()
	rule.Conditions = []config.ConditionConfig{{Field: "metrics.load", Op: ">", Threshold: 10}}

	simulator := NewSimulator(history, 4, 2, nil)
	result := simulator.Simulate([]config.RuleConfig{rule}, 60, "", now)

	if result.TotalAlerts != 5 {
		t.Fatalf("expected five alerts, got %d", result.TotalAlerts)
	}
	ruleResult := result.RuleResults[0]
	if ruleResult.AlertCount != 5 || len(ruleResult.Alerts) != 2 {
		t.Fatalf("expected full count with capped sample, got count=%d sample=%d",
			ruleResult.AlertCount, len(ruleResult.Alerts))
	}
}

func TestSimulateSkipsDisabledRuleResult(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	history := NewHistory(100, 24*time.Hour)
	history.Append(loadEvent(12, now.Add(-time.Minute)))

	disabled := false
	rule := loadRule()
	rule.Enabled = &disabled

	simulator := NewSimulator(history, 4, 10, nil)
	result := simulator.Simulate([]config.RuleConfig{rule}, 60, "", now)
	if len(result.RuleResults) != 0 || result.TotalAlerts != 0 {
		t.Fatalf("expected disabled rule excluded, got %+v", result)
	}
}
