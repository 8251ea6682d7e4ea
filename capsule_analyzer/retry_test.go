package capsule_analyzer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/capscan/capscan/analysis_errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicy_SucceedsAfterTransientFailures(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: time.Second}

	attempts := 0
	start := time.Now()
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 3 {
			return analysis_errors.NewEnrichmentRequestFailed(fmt.Errorf("attempt %d", attempts))
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
	// Backoff before attempts 2 and 3: 10ms + 20ms.
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestRetryPolicy_ExhaustsAttempts(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 3, BaseDelay: time.Millisecond}

	attempts := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return analysis_errors.NewEnrichmentRateLimited(errors.New("429"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.True(t, analysis_errors.Is(err, analysis_errors.KindEnrichmentRateLimited))
}

// Auth failures must short-circuit: retrying bad credentials only burns quota.
func TestRetryPolicy_NonRetryableShortCircuits(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Millisecond}

	attempts := 0
	err := policy.Do(context.Background(), func(ctx context.Context) error {
		attempts++
		return analysis_errors.NewEnrichmentAuthFailed(errors.New("401"))
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
	assert.True(t, analysis_errors.NeedsUserAction(err))
}

func TestRetryPolicy_ContextCancelStopsBackoff(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 5, BaseDelay: time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	done := make(chan error, 1)
	go func() {
		done <- policy.Do(ctx, func(ctx context.Context) error {
			attempts++
			return analysis_errors.NewEnrichmentRequestFailed(errors.New("boom"))
		})
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.Error(t, err)
		assert.Equal(t, 1, attempts)
	case <-time.After(time.Second):
		t.Fatal("retry did not stop on context cancellation")
	}
}

func TestRetryPolicy_BackoffCapped(t *testing.T) {
	policy := RetryPolicy{MaxAttempts: 10, BaseDelay: time.Second, MaxDelay: 4 * time.Second}

	assert.Equal(t, time.Second, policy.backoff(1))
	assert.Equal(t, 2*time.Second, policy.backoff(2))
	assert.Equal(t, 4*time.Second, policy.backoff(3))
	assert.Equal(t, 4*time.Second, policy.backoff(8))
}
