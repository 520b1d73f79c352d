package resilience

import (
	"context"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"strings"
)

// ErrorClass tells the executor what to do with a failed attempt
type ErrorClass int

const (
	ClassNone        ErrorClass = iota // Attempt succeeded
	ClassRetryable                     // Retry immediately
	ClassTimeout                       // Attempt exceeded its deadline, retry immediately
	ClassRateLimited                   // Wait for the cooldown, then retry
	ClassFatal                         // Do not retry
)

func (c ErrorClass) String() string {
	switch c {
	case ClassNone:
		return "ok"
	case ClassRetryable:
		return "retryable"
	case ClassTimeout:
		return "timeout"
	case ClassRateLimited:
		return "rate_limited"
	case ClassFatal:
		return "fatal"
	}
	return "unknown"
}

// RetryableError wraps an error to indicate it's retryable
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string { return e.Err.Error() }
func (e *RetryableError) Unwrap() error { return e.Err }

// NewRetryableError creates a new retryable error
func NewRetryableError(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// RateLimitError marks a failure caused by remote quota or throttling
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string { return e.Err.Error() }
func (e *RateLimitError) Unwrap() error { return e.Err }

// NewRateLimitError creates a new rate limit error
func NewRateLimitError(err error) error {
	if err == nil {
		return nil
	}
	return &RateLimitError{Err: err}
}

// FatalError marks a failure that retrying cannot fix, such as bad credentials
// or a malformed response
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string { return e.Err.Error() }
func (e *FatalError) Unwrap() error { return e.Err }

// NewFatalError creates a new fatal error
func NewFatalError(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// IsRetryable checks if an error is a RetryableError
func IsRetryable(err error) bool {
	var retryableErr *RetryableError
	return errors.As(err, &retryableErr)
}

// IsRateLimited checks if an error is a RateLimitError
func IsRateLimited(err error) bool {
	var rateLimitErr *RateLimitError
	return errors.As(err, &rateLimitErr)
}

// IsFatal checks if an error is a FatalError
func IsFatal(err error) bool {
	var fatalErr *FatalError
	return errors.As(err, &fatalErr)
}

var (
	rateLimitMarkers = []string{
		"rate limit",
		"ratelimit",
		"rate_limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
		"quota exceeded",
	}

	authMarkers = []string{
		"unauthorized",
		"forbidden",
		"invalid api key",
		"invalid_api_key",
		"incorrect api key",
		"permission denied",
		"permission_denied",
		"api key not valid",
	}

	// Status codes only count next to a keyword ("status code: 429",
	// "HTTP Error 403", "googleapi: Error 401") or at the very start
	// ("401 Unauthorized"), never as bare digits inside host:port pairs.
	statusPattern = regexp.MustCompile(`(?i)(?:\b(?:status(?:[ _]?code)?|http/\d(?:\.\d)?|http error|error)[\s:=]{1,3}|^)([1-5]\d\d)\b`)
)

// StatusCode extracts an HTTP status code from a provider error message
func StatusCode(err error) (int, bool) {
	if err == nil {
		return 0, false
	}
	m := statusPattern.FindStringSubmatch(err.Error())
	if m == nil {
		return 0, false
	}
	code, convErr := strconv.Atoi(m[1])
	if convErr != nil {
		return 0, false
	}
	return code, true
}

// IsRateLimitMessage reports whether an error message looks like throttling
func IsRateLimitMessage(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := StatusCode(err); ok && code == http.StatusTooManyRequests {
		return true
	}
	return containsAny(strings.ToLower(err.Error()), rateLimitMarkers)
}

// IsAuthMessage reports whether an error message looks like a credentials problem
func IsAuthMessage(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := StatusCode(err); ok && (code == http.StatusUnauthorized || code == http.StatusForbidden) {
		return true
	}
	return containsAny(strings.ToLower(err.Error()), authMarkers)
}

// ClassifyRemoteError maps an error from a remote call to an ErrorClass.
// Typed wrappers win over message inspection; unknown errors are retryable.
func ClassifyRemoteError(err error) ErrorClass {
	switch {
	case err == nil:
		return ClassNone
	case errors.Is(err, ErrAttemptTimeout):
		return ClassTimeout
	case IsFatal(err):
		return ClassFatal
	case IsRateLimited(err):
		return ClassRateLimited
	case IsRetryable(err):
		return ClassRetryable
	case errors.Is(err, context.Canceled):
		return ClassFatal
	case IsRateLimitMessage(err):
		return ClassRateLimited
	case IsAuthMessage(err):
		return ClassFatal
	}
	return ClassRetryable
}

// IsRetryableNetworkError checks if an error is a retryable network error
func IsRetryableNetworkError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrAttemptTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	errStr := strings.ToLower(err.Error())

	// Connection errors
	if containsAny(errStr, []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"transport is closing",
		"unavailable",
		"network is unreachable",
		"no route to host",
		"eof",
	}) {
		return true
	}

	// Timeout errors
	if containsAny(errStr, []string{
		"deadline exceeded",
		"timeout",
		"timed out",
	}) {
		return true
	}

	// Resource exhaustion (may be temporary)
	return IsRateLimitMessage(err)
}

func containsAny(s string, substrings []string) bool {
	for _, substr := range substrings {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}
