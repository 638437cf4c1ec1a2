package model

import (
	"fmt"
	"strings"
	"time"
)

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}

// ParseError marks a page body the source strategy could not parse.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s page: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// TransientFetchError is a page fetch that kept failing with retryable errors
// until the retry policy gave up.
type TransientFetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransientFetchError) Error() string {
	return fmt.Sprintf("fetch %s: gave up after %d attempts: %v", e.URL, e.Attempts, e.Err)
}

func (e *TransientFetchError) Unwrap() error { return e.Err }

// PermanentFetchError is a page fetch that must not be retried (404, robots disallow).
type PermanentFetchError struct {
	URL string
	Err error
}

func (e *PermanentFetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *PermanentFetchError) Unwrap() error { return e.Err }

// NormalizationError reports a raw record that is missing a required field.
type NormalizationError struct {
	Source string
	Field  string
	Reason string
}

func (e *NormalizationError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("normalize %s record: field %s: %s", e.Source, e.Field, e.Reason)
	}
	return fmt.Sprintf("normalize %s record: missing required field %s", e.Source, e.Field)
}

// ClassificationError reports that the external classifier could not score a
// record and the fallback scorer was used instead.
type ClassificationError struct {
	Fingerprint string
	Err         error
}

func (e *ClassificationError) Error() string {
	return fmt.Sprintf("classify %s: %v", e.Fingerprint, e.Err)
}

func (e *ClassificationError) Unwrap() error { return e.Err }

// SourceExhaustedError reports a source that produced no records in a run.
type SourceExhaustedError struct {
	Source       string
	PageFailures int
	LastErr      error
}

func (e *SourceExhaustedError) Error() string {
	if e.LastErr != nil {
		return fmt.Sprintf("source %s produced no records (%d failed pages): %v", e.Source, e.PageFailures, e.LastErr)
	}
	return fmt.Sprintf("source %s produced no records", e.Source)
}

func (e *SourceExhaustedError) Unwrap() error { return e.LastErr }

// RunFailure is returned when every configured source was exhausted.
type RunFailure struct {
	Sources []string
}

func (e *RunFailure) Error() string {
	return fmt.Sprintf("run failed: all %d sources exhausted (%s)", len(e.Sources), strings.Join(e.Sources, ", "))
}
