package resilience

import (
	"context"
	"time"
)

// RetryPolicy defines retry behavior for transient failures.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
	// Multiplier grows the backoff after each attempt. Values below 1 keep
	// it constant.
	Multiplier float64
	MaxBackoff time.Duration
}

func NewRetryPolicy(maxRetries int, backoff time.Duration) RetryPolicy {
	if maxRetries <= 0 {
		maxRetries = 2
	}
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	return RetryPolicy{MaxRetries: maxRetries, Backoff: backoff}
}

// Do runs fn until it succeeds, the retries run out or ctx is done. The last
// error from fn is returned; ctx.Err() if ctx ended first.
func (r RetryPolicy) Do(ctx context.Context, fn func(attempt int) error) error {
	var err error
	wait := r.Backoff
	for i := 0; i <= r.MaxRetries; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return cerr
		}
		err = fn(i)
		if err == nil {
			return nil
		}
		if i == r.MaxRetries {
			return err
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
		if r.Multiplier > 1 {
			wait = time.Duration(float64(wait) * r.Multiplier)
			if r.MaxBackoff > 0 && wait > r.MaxBackoff {
				wait = r.MaxBackoff
			}
		}
	}
	return err
}
