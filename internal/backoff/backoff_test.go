package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPolicyDelay(t *testing.T) {
	t.Parallel()

	policy := Policy{BaseDelay: 100 * time.Millisecond, MaxDelay: 500 * time.Millisecond}
	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 500 * time.Millisecond},
		{10, 500 * time.Millisecond},
	}
	for _, tc := range cases {
		if got := policy.Delay(tc.attempt); got != tc.want {
			t.Fatalf("attempt %d: expected %v, got %v", tc.attempt, tc.want, got)
		}
	}

	if got := (Policy{}).Delay(3); got != 0 {
		t.Fatalf("expected zero delay without base, got %v", got)
	}
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := Retry(context.Background(), Policy{MaxAttempts: 4, BaseDelay: time.Millisecond}, func(attempt int) error {
		attempts++
		if attempt < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected three attempts, got %d", attempts)
	}
}

func TestRetryReturnsFinalError(t *testing.T) {
	t.Parallel()

	final := errors.New("still down")
	attempts := 0
	err := Retry(context.Background(), Policy{MaxAttempts: 3, BaseDelay: time.Millisecond}, func(int) error {
		attempts++
		return final
	})
	if !errors.Is(err, final) {
		t.Fatalf("expected final error, got %v", err)
	}
	if attempts != 3 {
		t.Fatalf("expected attempt ceiling respected, got %d", attempts)
	}
}

func TestRetryStopsOnContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0
	err := Retry(ctx, Policy{MaxAttempts: 5, BaseDelay: time.Hour}, func(int) error {
		attempts++
		cancel()
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context error, got %v", err)
	}
	if attempts != 1 {
		t.Fatalf("expected cancellation before the second attempt, got %d", attempts)
	}
}

func TestRetryZeroAttemptsRunsOnce(t *testing.T) {
	t.Parallel()

	attempts := 0
	_ = Retry(context.Background(), Policy{}, func(int) error {
		attempts++
		return errors.New("fail")
	})
	if attempts != 1 {
		t.Fatalf("expected a single attempt, got %d", attempts)
	}
}
