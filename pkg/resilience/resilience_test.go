package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetryPolicyStopsOnSuccess(t *testing.T) {
	p := RetryPolicy{MaxRetries: 3, Backoff: time.Millisecond}
	calls := 0
	err := p.Do(context.Background(), func(int) error {
		calls++
		if calls < 2 {
			return errors.New("refused")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success on second call, got err=%v calls=%d", err, calls)
	}
}

func TestRetryPolicyReturnsLastError(t *testing.T) {
	p := RetryPolicy{MaxRetries: 2, Backoff: time.Millisecond, Multiplier: 2}
	calls := 0
	err := p.Do(context.Background(), func(attempt int) error {
		if attempt != calls {
			t.Fatalf("expected attempt %d, got %d", calls, attempt)
		}
		calls++
		return errors.New("refused")
	})
	if err == nil || calls != 3 {
		t.Fatalf("expected 3 attempts and an error, got err=%v calls=%d", err, calls)
	}
}

func TestRetryPolicyHonoursContext(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, Backoff: time.Hour}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	err := p.Do(ctx, func(int) error { return errors.New("refused") })
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestCircuitBreakerOpensAfterThreshold(t *testing.T) {
	now := time.Unix(1000, 0)
	cb := NewCircuitBreaker(2, time.Minute)
	cb.now = func() time.Time { return now }

	cb.OnError(errors.New("capture timeout"))
	if !cb.Allow() {
		t.Fatalf("expected breaker closed after one failure")
	}
	cb.OnError(errors.New("capture timeout"))
	if cb.Allow() || cb.Wait() != time.Minute {
		t.Fatalf("expected breaker open for a minute, wait=%v", cb.Wait())
	}
	now = now.Add(time.Minute)
	if !cb.Allow() {
		t.Fatalf("expected breaker to close after cooldown")
	}
	cb.OnSuccess()
	if cb.Failures() != 0 {
		t.Fatalf("expected failures reset")
	}
}

func TestCircuitBreakerIgnoresNil(t *testing.T) {
	cb := NewCircuitBreaker(1, time.Minute)
	cb.OnError(nil)
	if !cb.Allow() {
		t.Fatalf("nil error must not open the breaker")
	}
}
