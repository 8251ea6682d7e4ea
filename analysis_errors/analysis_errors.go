package analysis_errors

import (
	"context"
	"errors"
	"fmt"
)

// Kind identifies a failure class in the analysis pipeline.
type Kind string

const (
	KindFileRead                  Kind = "FILE_READ"
	KindParse                     Kind = "PARSE"
	KindEnrichmentRequestFailed   Kind = "ENRICHMENT_REQUEST_FAILED"
	KindEnrichmentTimeout         Kind = "ENRICHMENT_TIMEOUT"
	KindEnrichmentRateLimited     Kind = "ENRICHMENT_RATE_LIMITED"
	KindEnrichmentAuthFailed      Kind = "ENRICHMENT_AUTH_FAILED"
	KindEnrichmentInvalidResponse Kind = "ENRICHMENT_INVALID_RESPONSE"
	KindConfig                    Kind = "CONFIG"
	KindCacheIO                   Kind = "CACHE_IO"
)

// Severity is the log level a failure should be reported at.
type Severity string

const (
	SeverityInfo  Severity = "INFO"
	SeverityWarn  Severity = "WARN"
	SeverityError Severity = "ERROR"
)

// AnalysisError is a classified pipeline failure. The classification decides,
// per failure, whether callers retry, degrade, or surface it to the user.
type AnalysisError struct {
	Kind            Kind
	Severity        Severity
	Retryable       bool
	NeedsUserAction bool
	Message         string
	Err             error
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// NewFileRead creates a non-retryable read failure. Structural facts are
// load-bearing, so this always propagates to the caller.
func NewFileRead(path string, err error) *AnalysisError {
	return &AnalysisError{
		Kind:     KindFileRead,
		Severity: SeverityError,
		Message:  fmt.Sprintf("failed to read file %q", path),
		Err:      err,
	}
}

// NewParse creates a non-retryable structural analysis failure.
func NewParse(path string, err error) *AnalysisError {
	return &AnalysisError{
		Kind:     KindParse,
		Severity: SeverityError,
		Message:  fmt.Sprintf("failed to analyze file %q", path),
		Err:      err,
	}
}

// NewEnrichmentRequestFailed creates a retryable transport-level failure.
func NewEnrichmentRequestFailed(err error) *AnalysisError {
	return &AnalysisError{
		Kind:      KindEnrichmentRequestFailed,
		Severity:  SeverityWarn,
		Retryable: true,
		Message:   "enrichment request failed",
		Err:       err,
	}
}

// NewEnrichmentTimeout creates a retryable timeout failure.
func NewEnrichmentTimeout(err error) *AnalysisError {
	return &AnalysisError{
		Kind:      KindEnrichmentTimeout,
		Severity:  SeverityWarn,
		Retryable: true,
		Message:   "enrichment request timed out",
		Err:       err,
	}
}

// NewEnrichmentRateLimited creates a retryable rate-limit failure.
func NewEnrichmentRateLimited(err error) *AnalysisError {
	return &AnalysisError{
		Kind:      KindEnrichmentRateLimited,
		Severity:  SeverityWarn,
		Retryable: true,
		Message:   "enrichment provider rate limited the request",
		Err:       err,
	}
}

// NewEnrichmentAuthFailed creates a non-retryable auth failure that the user
// must resolve (missing or invalid credentials).
func NewEnrichmentAuthFailed(err error) *AnalysisError {
	return &AnalysisError{
		Kind:            KindEnrichmentAuthFailed,
		Severity:        SeverityError,
		NeedsUserAction: true,
		Message:         "enrichment provider rejected the credentials",
		Err:             err,
	}
}

// NewEnrichmentInvalidResponse creates a failure for malformed provider
// output. Retryable: a fresh generation may well parse.
func NewEnrichmentInvalidResponse(err error) *AnalysisError {
	return &AnalysisError{
		Kind:      KindEnrichmentInvalidResponse,
		Severity:  SeverityWarn,
		Retryable: true,
		Message:   "enrichment provider returned a malformed response",
		Err:       err,
	}
}

// NewConfig creates a non-retryable configuration failure requiring user action.
func NewConfig(msg string, err error) *AnalysisError {
	return &AnalysisError{
		Kind:            KindConfig,
		Severity:        SeverityError,
		NeedsUserAction: true,
		Message:         msg,
		Err:             err,
	}
}

// NewCacheIO creates a durable-tier I/O failure. Never fails the caller;
// the in-memory copy remains authoritative.
func NewCacheIO(op string, err error) *AnalysisError {
	return &AnalysisError{
		Kind:     KindCacheIO,
		Severity: SeverityWarn,
		Message:  fmt.Sprintf("cache %s failed", op),
		Err:      err,
	}
}

// Classify wraps an arbitrary error into an AnalysisError. Already-classified
// errors pass through; context deadline errors become timeouts; everything
// else is treated as a retryable enrichment request failure.
func Classify(err error) *AnalysisError {
	if err == nil {
		return nil
	}
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewEnrichmentTimeout(err)
	}
	return NewEnrichmentRequestFailed(err)
}

// KindOf returns the kind of a classified error, or "" for unclassified ones.
func KindOf(err error) Kind {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}

// Is reports whether err is an AnalysisError of the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// IsRetryable reports whether a retry may succeed. Unclassified errors are
// treated as retryable so transient transport failures are not given up on.
func IsRetryable(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Retryable
	}
	return err != nil
}

// NeedsUserAction reports whether the failure requires user intervention
// (credentials, configuration) rather than a retry.
func NeedsUserAction(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.NeedsUserAction
	}
	return false
}

// UserActionHint returns an actionable message for failures that need one.
func UserActionHint(err error) string {
	var ae *AnalysisError
	if !errors.As(err, &ae) || !ae.NeedsUserAction {
		return ""
	}
	switch ae.Kind {
	case KindEnrichmentAuthFailed:
		return "Configure credentials for the AI provider (set API_KEY or ai_provider_config.api_key)."
	case KindConfig:
		return "Check the capscan configuration file and provider settings."
	}
	return "Check the capscan configuration."
}
