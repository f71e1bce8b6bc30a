package clock

import (
	"testing"
	"time"
)

func TestRealClockReturnsUTC(t *testing.T) {
	t.Parallel()

	if zone, _ := (RealClock{}).Now().Zone(); zone != "UTC" {
		t.Fatalf("expected UTC time, got zone %q", zone)
	}
}

func TestManualClock(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	clk := NewManualClock(start)
	if !clk.Now().Equal(start) {
		t.Fatalf("expected start time, got %v", clk.Now())
	}

	clk.Advance(90 * time.Minute)
	if !clk.Now().Equal(start.Add(90 * time.Minute)) {
		t.Fatalf("expected advanced time, got %v", clk.Now())
	}

	reset := start.Add(-time.Hour)
	clk.Set(reset)
	if !clk.Now().Equal(reset) {
		t.Fatalf("expected reset time, got %v", clk.Now())
	}
}
