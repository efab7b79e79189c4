package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrFrameworkNotFound is returned when a framework id is not registered
	ErrFrameworkNotFound = errors.New("framework not found")

	// ErrAnalysisNotFound is returned when an analysis id is unknown
	ErrAnalysisNotFound = errors.New("analysis not found")

	// ErrAugmentationUnavailable is returned when no augmentation provider is configured
	ErrAugmentationUnavailable = errors.New("augmentation provider unavailable")

	// ErrDuplicateAnalysis is returned by result sinks on a second store for the same id
	ErrDuplicateAnalysis = errors.New("analysis result already stored")
)

// ParseError reports a malformed artifact. Units failing with a ParseError
// are never retried: the bytes will not get better.
type ParseError struct {
	SourceKind SourceKind
	Detail     string
	Err        error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse %s artifact: %s: %v", e.SourceKind, e.Detail, e.Err)
	}
	return fmt.Sprintf("parse %s artifact: %s", e.SourceKind, e.Detail)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AccessError reports failed credential or role resolution for a target.
// A policy problem, not a transient one; not retried.
type AccessError struct {
	Target string
	Err    error
}

func (e *AccessError) Error() string {
	return fmt.Sprintf("access denied for %s: %v", e.Target, e.Err)
}

func (e *AccessError) Unwrap() error { return e.Err }

// TransientError wraps timeouts and throttling during fetch or collection.
// The orchestrator retries these with backoff.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient failure in %s: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// ConfigurationError rejects an invalid request before orchestration
// starts. It is the only error class surfaced synchronously to callers.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// IsTransient reports whether err should be retried with backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

// IsParseError reports whether err stems from a malformed artifact.
func IsParseError(err error) bool {
	var pe *ParseError
	return errors.As(err, &pe)
}

// IsAccessError reports whether err stems from credential resolution.
func IsAccessError(err error) bool {
	var ae *AccessError
	return errors.As(err, &ae)
}
