package replay

import (
	"log/slog"
	"time"

	"floorwatch/internal/config"
	"floorwatch/internal/domain"
	"floorwatch/internal/engine"
)

// RuleResult is one rule's simulation outcome.
// Params: rule identity, alert count, and bounded alert sample.
// Returns: per-rule section of the simulation response.
type RuleResult struct {
	RuleID     string         `json:"ruleId"`
	RuleName   string         `json:"ruleName"`
	AlertCount int            `json:"alertCount"`
	Alerts     []domain.Alert `json:"alerts"`
}

// Result is the what-if replay response.
// Params: window width, analyzed event count, and per-rule outcomes.
// Returns: simulation summary for the requesting surface.
type Result struct {
	Minutes        int          `json:"minutes"`
	EventsAnalyzed int          `json:"eventsAnalyzed"`
	TotalAlerts    int          `json:"totalAlerts"`
	RuleResults    []RuleResult `json:"ruleResults"`
}

// Simulator replays history through the rule evaluator without delivery.
// Params: shared history buffer, state shard count, sample cap, and logger.
// Returns: what-if engine reusing live evaluation semantics.
type Simulator struct {
	history   *History
	shards    int
	sampleCap int
	logger    *slog.Logger
}

// NewSimulator creates the simulation engine.
// Params: history buffer, state shard count, per-rule sample cap, and
// logger.
// Returns: initialized simulator.
func NewSimulator(history *History, shards, sampleCap int, logger *slog.Logger) *Simulator {
	if sampleCap <= 0 {
		sampleCap = 10
	}
	return &Simulator{
		history:   history,
		shards:    shards,
		sampleCap: sampleCap,
		logger:    logger,
	}
}

// Simulate replays the requested window against the targeted rules.
// Params: rule snapshot, window minutes, optional rule ID filter, and
// current time. Each invocation runs on its own isolated state store so
// replay never perturbs live cooldown or rate-limit counters, and each
// event is evaluated at its historical observation time.
// Returns: simulation result with bounded alert samples.
func (s *Simulator) Simulate(rules []config.RuleConfig, minutes int, ruleID string, now time.Time) Result {
	targeted := rules
	if ruleID != "" {
		targeted = targeted[:0:0]
		for _, rule := range rules {
			if rule.ID == ruleID {
				targeted = append(targeted, rule)
			}
		}
	}

	events := s.history.Window(now, minutes)
	evaluator := engine.NewEvaluator(engine.NewStateStore(s.shards), s.logger)

	counts := make(map[string]int, len(targeted))
	samples := make(map[string][]domain.Alert, len(targeted))
	total := 0
	for _, event := range events {
		for _, alert := range evaluator.Evaluate(targeted, event, event.ObservedAt) {
			total++
			counts[alert.RuleID]++
			if len(samples[alert.RuleID]) < s.sampleCap {
				samples[alert.RuleID] = append(samples[alert.RuleID], alert.Clone())
			}
		}
	}

	results := make([]RuleResult, 0, len(targeted))
	for _, rule := range targeted {
		if !rule.IsEnabled() {
			continue
		}
		sample := samples[rule.ID]
		if sample == nil {
			sample = make([]domain.Alert, 0)
		}
		results = append(results, RuleResult{
			RuleID:     rule.ID,
			RuleName:   rule.Name,
			AlertCount: counts[rule.ID],
			Alerts:     sample,
		})
	}

	return Result{
		Minutes:        minutes,
		EventsAnalyzed: len(events),
		TotalAlerts:    total,
		RuleResults:    results,
	}
}
