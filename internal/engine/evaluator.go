package engine

import (
	"io"
	"log/slog"
	"time"

	"floorwatch/internal/config"
	"floorwatch/internal/domain"

	"github.com/google/uuid"
)

// Evaluator turns telemetry events into alerts using rule definitions.
// Params: sharded state store and logger.
// Returns: deterministic alert stream for the delivery pipeline.
type Evaluator struct {
	states *StateStore
	logger *slog.Logger
}

// NewEvaluator creates a rule evaluator over one state store.
// Params: state store and logger (nil logger discards suppression logs).
// Returns: initialized evaluator.
func NewEvaluator(states *StateStore, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Evaluator{states: states, logger: logger}
}

// States exposes the backing state store for sweeps and gauges.
// Params: none.
// Returns: state store pointer.
func (e *Evaluator) States() *StateStore {
	return e.states
}

// Evaluate runs every rule against one event.
// Params: rule snapshot slice, event, and current processing time.
// Returns: zero or more freshly created alerts in rule iteration order.
func (e *Evaluator) Evaluate(rules []config.RuleConfig, event domain.Event, now time.Time) []*domain.Alert {
	var alerts []*domain.Alert
	for index := range rules {
		rule := rules[index]
		if !rule.IsEnabled() {
			continue
		}
		if !scopeAllows(rule.Scope, event) {
			e.logger.Debug("rule scope mismatch",
				"rule", rule.ID, "warehouse", event.WarehouseID, "zone", event.ZoneID)
			continue
		}
		if alert := e.evaluateRule(rule, event, now); alert != nil {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// evaluateRule evaluates one rule for one event under the fingerprint lock.
// Params: rule, event, and current time.
// Returns: new alert or nil when the rule does not fire.
func (e *Evaluator) evaluateRule(rule config.RuleConfig, event domain.Event, now time.Time) *domain.Alert {
	fingerprint := Fingerprint(rule.ID, event.WarehouseID, event.ZoneID, event.ShiftCode)

	var alert *domain.Alert
	e.states.WithState(rule.ID, fingerprint, now, func(state *RuleState) bool {
		wasInBand := state.HysteresisActive

		allHold := true
		for index := range rule.Conditions {
			var hysteresis *config.HysteresisConfig
			if index == 0 {
				hysteresis = rule.Hysteresis
			}
			switch EvaluateCondition(rule.Conditions[index], hysteresis, event, state, now) {
			case ConditionFailed:
				// Any failing condition forgets the partial match entirely.
				return false
			case ConditionPending:
				allHold = false
			}
		}
		if !allHold {
			// Threshold met but a sustained duration is still running.
			return true
		}

		if rule.Hysteresis != nil && wasInBand {
			// Same ongoing episode: the alert fired on the way into the band.
			e.logger.Debug("hysteresis episode still active", "rule", rule.ID, "fingerprint", fingerprint)
			return true
		}

		cooldown := rule.Cooldown()
		if cooldown > 0 && state.LastAlertAt != nil && now.Sub(*state.LastAlertAt) < cooldown {
			e.logger.Debug("alert suppressed by cooldown",
				"rule", rule.ID, "fingerprint", fingerprint,
				"since_last", now.Sub(*state.LastAlertAt).String())
			return true
		}

		if rule.RateLimit != nil && state.WindowStartedAt != nil &&
			now.Sub(*state.WindowStartedAt) < rule.RateLimit.Window() &&
			state.AlertCount >= rule.RateLimit.MaxAlerts {
			e.logger.Warn("alert suppressed by rate limit",
				"rule", rule.ID, "fingerprint", fingerprint,
				"count", state.AlertCount, "max", rule.RateLimit.MaxAlerts)
			return true
		}

		alert = synthesizeAlert(rule, event, fingerprint, now)

		lastAlert := now
		state.LastAlertAt = &lastAlert
		if state.WindowStartedAt == nil ||
			(rule.RateLimit != nil && now.Sub(*state.WindowStartedAt) >= rule.RateLimit.Window()) {
			windowStart := now
			state.WindowStartedAt = &windowStart
			state.AlertCount = 1
		} else {
			state.AlertCount++
		}
		return true
	})
	return alert
}

// synthesizeAlert builds one alert from the triggering event.
// Params: rule, event, fingerprint, and trigger time.
// Returns: created alert with expanded title/message and event metadata.
func synthesizeAlert(rule config.RuleConfig, event domain.Event, fingerprint string, now time.Time) *domain.Alert {
	return &domain.Alert{
		ID:                uuid.NewString(),
		Fingerprint:       fingerprint,
		RuleID:            rule.ID,
		RuleName:          rule.Name,
		Priority:          domain.Priority(rule.Priority),
		State:             domain.AlertStateCreated,
		WarehouseID:       event.WarehouseID,
		ZoneID:            event.ZoneID,
		ShiftCode:         event.ShiftCode,
		Title:             ExpandPlaceholders(rule.Name, event),
		Message:           ExpandPlaceholders(rule.Description, event),
		Metadata:          event.Payload,
		TriggeredAt:       now,
		NotificationsSent: make([]domain.NotificationRecord, 0, len(rule.Channels)),
	}
}

// scopeAllows checks the rule scope filter against event identifiers.
// Params: optional scope filter and event.
// Returns: true when every non-empty allow list contains the event value.
func scopeAllows(scope *config.ScopeConfig, event domain.Event) bool {
	if scope == nil {
		return true
	}
	if !allowedIn(scope.Warehouses, event.WarehouseID) {
		return false
	}
	if !allowedIn(scope.Zones, event.ZoneID) {
		return false
	}
	return allowedIn(scope.Shifts, event.ShiftCode)
}

// allowedIn checks allow-list membership.
// Params: allow list (empty allows everything) and candidate value.
// Returns: membership result.
func allowedIn(allowed []string, value string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if candidate == value {
			return true
		}
	}
	return false
}
