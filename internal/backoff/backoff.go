package backoff

import (
	"context"
	"time"
)

// Policy is an explicit bounded exponential backoff description.
// Params: attempt ceiling, base delay, and delay cap.
// Returns: retry schedule shared by delivery transports.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
}

// Delay computes the pause before the given retry.
// Params: zero-based attempt index of the attempt that just failed.
// Returns: base * 2^attempt, capped at MaxDelay.
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	delay := p.BaseDelay
	for i := 0; i < attempt; i++ {
		delay *= 2
		if p.MaxDelay > 0 && delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Retry runs fn until it succeeds or the attempt ceiling is hit.
// Params: context for cancellation, policy, and attempt callback taking the
// zero-based attempt index.
// Returns: nil on first success, the final attempt error after the ceiling,
// or the context error when cancelled while waiting.
func Retry(ctx context.Context, policy Policy, fn func(attempt int) error) error {
	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil {
			return nil
		}
		if attempt == attempts-1 {
			break
		}
		timer := time.NewTimer(policy.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
