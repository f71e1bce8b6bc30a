package domain

import (
	"fmt"
	"strings"
	"time"
)

// AlertState is runtime alert lifecycle state.
// Params: created/acknowledged/snoozed/resolved state constants.
// Returns: state transitions for lifecycle commands and storage.
type AlertState string

const (
	// AlertStateCreated indicates a freshly fired alert.
	AlertStateCreated AlertState = "created"
	// AlertStateAcknowledged indicates an operator took ownership.
	AlertStateAcknowledged AlertState = "acknowledged"
	// AlertStateSnoozed indicates the alert is muted until a deadline.
	AlertStateSnoozed AlertState = "snoozed"
	// AlertStateResolved indicates the alert was closed. Terminal.
	AlertStateResolved AlertState = "resolved"
)

// Priority is qualitative alert severity used for channel formatting.
// Params: low/medium/high/critical constants.
// Returns: ordered severity classification.
type Priority string

const (
	// PriorityLow marks informational alerts.
	PriorityLow Priority = "low"
	// PriorityMedium marks alerts that need attention this shift.
	PriorityMedium Priority = "medium"
	// PriorityHigh marks alerts that need prompt attention.
	PriorityHigh Priority = "high"
	// PriorityCritical marks alerts that need immediate action.
	PriorityCritical Priority = "critical"
)

// ParsePriority validates one priority token.
// Params: raw priority string from config.
// Returns: normalized priority or error for unknown tokens.
func ParsePriority(raw string) (Priority, error) {
	switch Priority(strings.ToLower(strings.TrimSpace(raw))) {
	case PriorityLow:
		return PriorityLow, nil
	case PriorityMedium:
		return PriorityMedium, nil
	case PriorityHigh:
		return PriorityHigh, nil
	case PriorityCritical:
		return PriorityCritical, nil
	default:
		return "", fmt.Errorf("unsupported priority %q", raw)
	}
}

// NotificationRecord is one delivery attempt outcome for one channel.
// Params: channel kind, attempt time, success flag, and optional error.
// Returns: append-only delivery history entry.
type NotificationRecord struct {
	Channel string    `json:"channel"`
	SentAt  time.Time `json:"sentAt"`
	Success bool      `json:"success"`
	Error   string    `json:"error,omitempty"`
}

// Alert is one fired rule occurrence with scope and delivery history.
// Params: identity, fingerprint, rule context, lifecycle timestamps, and
// triggering event copy.
// Returns: alert record owned by the lifecycle registry.
type Alert struct {
	ID             string         `json:"id"`
	Fingerprint    string         `json:"fingerprint"`
	RuleID         string         `json:"ruleId"`
	RuleName       string         `json:"ruleName"`
	Priority       Priority       `json:"priority"`
	State          AlertState     `json:"state"`
	WarehouseID    string         `json:"warehouseId"`
	ZoneID         string         `json:"zoneId,omitempty"`
	ShiftCode      string         `json:"shiftCode,omitempty"`
	Title          string         `json:"title"`
	Message        string         `json:"message"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	TriggeredAt    time.Time      `json:"triggeredAt"`
	AcknowledgedAt *time.Time     `json:"acknowledgedAt,omitempty"`
	AcknowledgedBy string         `json:"acknowledgedBy,omitempty"`
	SnoozedUntil   *time.Time     `json:"snoozedUntil,omitempty"`
	ResolvedAt     *time.Time     `json:"resolvedAt,omitempty"`

	NotificationsSent []NotificationRecord `json:"notificationsSent"`
}

// Clone duplicates the alert with detached maps and slices.
// Params: none.
// Returns: deep copy safe to hand outside the registry lock.
func (a *Alert) Clone() Alert {
	copied := *a
	copied.Metadata = cloneMetadata(a.Metadata)
	copied.NotificationsSent = append([]NotificationRecord(nil), a.NotificationsSent...)
	copied.AcknowledgedAt = cloneTime(a.AcknowledgedAt)
	copied.SnoozedUntil = cloneTime(a.SnoozedUntil)
	copied.ResolvedAt = cloneTime(a.ResolvedAt)
	return copied
}

// cloneMetadata duplicates one shallow metadata map.
// Params: source metadata map.
// Returns: copied map or nil.
func cloneMetadata(source map[string]any) map[string]any {
	if len(source) == 0 {
		return nil
	}
	out := make(map[string]any, len(source))
	for key, value := range source {
		out[key] = value
	}
	return out
}

// cloneTime duplicates one optional timestamp.
// Params: source timestamp pointer.
// Returns: detached pointer or nil.
func cloneTime(source *time.Time) *time.Time {
	if source == nil {
		return nil
	}
	copied := *source
	return &copied
}
