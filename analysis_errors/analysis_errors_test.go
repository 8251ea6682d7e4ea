package analysis_errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_PassesThroughClassified(t *testing.T) {
	original := NewEnrichmentRateLimited(errors.New("429"))
	wrapped := fmt.Errorf("call failed: %w", original)

	classified := Classify(wrapped)

	assert.Equal(t, KindEnrichmentRateLimited, classified.Kind)
	assert.True(t, classified.Retryable)
}

func TestClassify_DeadlineBecomesTimeout(t *testing.T) {
	classified := Classify(fmt.Errorf("request: %w", context.DeadlineExceeded))

	assert.Equal(t, KindEnrichmentTimeout, classified.Kind)
	assert.True(t, classified.Retryable)
}

func TestClassify_UnknownBecomesRequestFailed(t *testing.T) {
	classified := Classify(errors.New("connection reset"))

	assert.Equal(t, KindEnrichmentRequestFailed, classified.Kind)
	assert.True(t, classified.Retryable)
}

func TestClassify_Nil(t *testing.T) {
	assert.Nil(t, Classify(nil))
}

func TestRetryability(t *testing.T) {
	cases := []struct {
		err       error
		retryable bool
	}{
		{NewEnrichmentRequestFailed(errors.New("x")), true},
		{NewEnrichmentTimeout(errors.New("x")), true},
		{NewEnrichmentRateLimited(errors.New("x")), true},
		{NewEnrichmentInvalidResponse(errors.New("x")), true},
		{NewEnrichmentAuthFailed(errors.New("x")), false},
		{NewFileRead("f", errors.New("x")), false},
		{NewParse("f", errors.New("x")), false},
		{NewConfig("bad", nil), false},
		{errors.New("unclassified"), true},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.retryable, IsRetryable(tc.err), "%v", tc.err)
	}
}

func TestNeedsUserAction(t *testing.T) {
	assert.True(t, NeedsUserAction(NewEnrichmentAuthFailed(errors.New("401"))))
	assert.True(t, NeedsUserAction(NewConfig("bad provider", nil)))
	assert.False(t, NeedsUserAction(NewEnrichmentTimeout(errors.New("slow"))))

	hint := UserActionHint(NewEnrichmentAuthFailed(errors.New("401")))
	assert.Contains(t, hint, "API_KEY")
}

func TestUnwrapChain(t *testing.T) {
	cause := errors.New("root cause")
	err := NewFileRead("main.go", cause)

	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "FILE_READ")
	assert.Contains(t, err.Error(), "main.go")
}
