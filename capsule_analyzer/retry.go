package capsule_analyzer

import (
	"context"
	"time"

	"github.com/capscan/capscan/analysis_errors"
)

// RetryPolicy retries an operation with exponential backoff. The delay
// before attempt n is BaseDelay*2^(n-1), capped at MaxDelay.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Retryable decides per error whether another attempt may succeed.
	// Nil defaults to the analysis error classification.
	Retryable func(error) bool
}

// DefaultRetryPolicy matches the enrichment phase defaults: three attempts
// with a one second base delay capped at thirty seconds.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// Do runs op until it succeeds, exhausts MaxAttempts, hits a non-retryable
// error, or ctx is cancelled. The returned error is the last attempt's.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = analysis_errors.IsRetryable
	}
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			if err := sleepCtx(ctx, p.backoff(attempt)); err != nil {
				return lastErr
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

// backoff returns the delay preceding the given attempt (1-based for the
// first retry).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt-1)
	if p.MaxDelay > 0 && (d > p.MaxDelay || d <= 0) {
		d = p.MaxDelay
	}
	return d
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
