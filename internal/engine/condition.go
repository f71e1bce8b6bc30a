package engine

import (
	"time"

	"floorwatch/internal/config"
	"floorwatch/internal/domain"
)

// ConditionStatus is the three-way outcome of one condition check.
// Params: failed/pending/holds constants.
// Returns: evaluator guidance on state clearing and alert eligibility.
type ConditionStatus int

const (
	// ConditionFailed means the threshold is not met; the rule forgets its
	// partial match for this fingerprint.
	ConditionFailed ConditionStatus = iota
	// ConditionPending means the threshold is met but the sustained
	// duration has not elapsed yet; tracking state must survive.
	ConditionPending
	// ConditionHolds means the condition currently holds.
	ConditionHolds
)

// EvaluateCondition checks one condition against one event.
// Params: condition definition, optional rule hysteresis (applies only to
// the rule's primary condition), event, mutable state, and current time.
// Returns: failed/pending/holds status. Missing or non-numeric field paths
// evaluate to failed; the function never panics. This is the sole mutator
// of LastValue, FirstTriggeredAt, and HysteresisActive.
func EvaluateCondition(
	condition config.ConditionConfig,
	hysteresis *config.HysteresisConfig,
	event domain.Event,
	state *RuleState,
	now time.Time,
) ConditionStatus {
	value, ok := event.NumberAt(condition.Field)
	if !ok {
		return ConditionFailed
	}
	state.LastValue = value

	threshold := condition.Threshold
	if hysteresis != nil {
		threshold = hysteresis.OnThreshold
	}
	meets := Compare(value, condition.Op, threshold)

	if hysteresis != nil {
		switch {
		case meets:
			state.HysteresisActive = true
		case state.HysteresisActive:
			// Already inside the band: stay active until the off-threshold
			// comparison stops holding.
			if Compare(value, condition.Op, hysteresis.OffThreshold) {
				meets = true
			} else {
				state.HysteresisActive = false
			}
		}
	}

	duration := condition.Duration()
	if !meets {
		state.FirstTriggeredAt = nil
		return ConditionFailed
	}
	if duration <= 0 {
		return ConditionHolds
	}
	if state.FirstTriggeredAt == nil {
		first := now
		state.FirstTriggeredAt = &first
	}
	if now.Sub(*state.FirstTriggeredAt) >= duration {
		return ConditionHolds
	}
	return ConditionPending
}

// Compare applies one comparison operator.
// Params: left value, operator token from the fixed set, and right value.
// Returns: comparison result; unknown operators compare false.
func Compare(value float64, op string, threshold float64) bool {
	switch op {
	case ">":
		return value > threshold
	case ">=":
		return value >= threshold
	case "<":
		return value < threshold
	case "<=":
		return value <= threshold
	case "==":
		return value == threshold
	case "!=":
		return value != threshold
	default:
		return false
	}
}
