package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Event is one normalized telemetry sample from the warehouse floor.
// Params: scope identifiers, observation time, and raw nested payload.
// Returns: validated event for rule evaluation and replay history.
type Event struct {
	WarehouseID string
	ZoneID      string
	ShiftCode   string
	ObservedAt  time.Time
	Payload     map[string]any
}

// DecodeEvent decodes and validates one telemetry payload.
// Params: JSON document bytes and fallback observation time.
// Returns: validated event or decode/validation error.
func DecodeEvent(raw []byte, now time.Time) (Event, error) {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return EventFromPayload(payload, now)
}

// EventFromPayload builds one event from an already-decoded payload.
// Params: nested payload map and fallback observation time.
// Returns: validated event or validation error.
func EventFromPayload(payload map[string]any, now time.Time) (Event, error) {
	event := Event{
		WarehouseID: stringField(payload, "warehouseId"),
		ZoneID:      stringField(payload, "zoneId"),
		ShiftCode:   stringField(payload, "shiftCode"),
		ObservedAt:  now,
		Payload:     payload,
	}
	if raw := stringField(payload, "timestamp"); raw != "" {
		parsed, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return Event{}, fmt.Errorf("parse event timestamp: %w", err)
		}
		event.ObservedAt = parsed.UTC()
	}
	if err := event.Validate(); err != nil {
		return Event{}, err
	}
	return event, nil
}

// Validate validates one event against the ingest contract.
// Params: event fields parsed from transport.
// Returns: validation error when the contract is violated.
func (e Event) Validate() error {
	if strings.TrimSpace(e.WarehouseID) == "" {
		return errors.New("warehouseId is required")
	}
	if e.ObservedAt.IsZero() {
		return errors.New("observation time is required")
	}
	return nil
}

// NumberAt extracts a numeric leaf by dotted path from the event payload.
// Params: dotted path such as "metrics.redLocations".
// Returns: numeric value and true, or zero and false when the path is
// missing or the leaf is not numeric. Never panics.
func (e Event) NumberAt(path string) (float64, bool) {
	value, ok := e.ValueAt(path)
	if !ok {
		return 0, false
	}
	switch typed := value.(type) {
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case json.Number:
		parsed, err := typed.Float64()
		if err != nil {
			return 0, false
		}
		return parsed, true
	default:
		return 0, false
	}
}

// ValueAt walks the payload by dotted path.
// Params: dotted path with non-empty segments.
// Returns: raw value and existence flag.
func (e Event) ValueAt(path string) (any, bool) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" || e.Payload == nil {
		return nil, false
	}
	var current any = e.Payload
	for _, segment := range strings.Split(trimmed, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		next, ok := node[segment]
		if !ok {
			return nil, false
		}
		current = next
	}
	return current, true
}

// stringField reads one top-level string field from the payload.
// Params: payload map and field key.
// Returns: trimmed string value or empty string.
func stringField(payload map[string]any, key string) string {
	raw, ok := payload[key]
	if !ok {
		return ""
	}
	value, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(value)
}
