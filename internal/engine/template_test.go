package engine

import (
	"testing"
	"time"

	"floorwatch/internal/domain"
)

func TestExpandPlaceholders(t *testing.T) {
	t.Parallel()

	event := domain.Event{
		WarehouseID: "wh-1",
		ObservedAt:  time.Now().UTC(),
		Payload: map[string]any{
			"warehouseId": "wh-1",
			"dock":        map[string]any{"open": true, "count": 7.0},
			"metrics":     map[string]any{"temp": -3.25},
		},
	}

	cases := []struct {
		template string
		want     string
	}{
		{"plain text", "plain text"},
		{"warehouse {warehouseId}", "warehouse wh-1"},
		{"temp {metrics.temp}", "temp -3.25"},
		{"count {dock.count} open {dock.open}", "count 7 open true"},
		{"missing {metrics.humidity} stays", "missing {metrics.humidity} stays"},
		{"nested miss {dock.open.deeper}", "nested miss {dock.open.deeper}"},
	}
	for _, tc := range cases {
		if got := ExpandPlaceholders(tc.template, event); got != tc.want {
			t.Fatalf("template %q: expected %q, got %q", tc.template, tc.want, got)
		}
	}
}

func TestExpandPlaceholdersUnsupportedType(t *testing.T) {
	t.Parallel()

	event := domain.Event{
		WarehouseID: "wh-1",
		Payload: map[string]any{
			"tags": map[string]any{"list": []any{"a", "b"}},
		},
	}
	if got := ExpandPlaceholders("tags {tags.list}", event); got != "tags {tags.list}" {
		t.Fatalf("expected unsupported value to keep the token, got %q", got)
	}
}
