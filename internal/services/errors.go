package services

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")
	ErrRateLimited   = errors.New("rate limited")
	ErrAnalysis      = errors.New("analysis error")
	ErrPersistence   = errors.New("persistence error")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// FailureKind maps an error to the short classification recorded on failed
// CUJ outcomes and in log lines.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrPersistence):
		return "persistence"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, ErrAnalysis):
		return "analysis"
	default:
		return "unknown"
	}
}

// StatusError reports a non-success response from a remote endpoint. Retry
// classification reads the code and the optional server backoff hint.
type StatusError struct {
	Code       int
	Status     string
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	status := strings.TrimSpace(e.Status)
	switch {
	case status != "" && body != "":
		return fmt.Sprintf("http %d %s: %s", e.Code, status, body)
	case body != "":
		return fmt.Sprintf("http %d: %s", e.Code, body)
	case status != "":
		return fmt.Sprintf("http %d %s", e.Code, status)
	default:
		return fmt.Sprintf("http %d", e.Code)
	}
}

// StatusCode returns the HTTP-style status code.
func (e *StatusError) StatusCode() int { return e.Code }

// RetryAfterHint returns the server-suggested delay, zero when absent.
func (e *StatusError) RetryAfterHint() time.Duration { return e.RetryAfter }

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	if stage = strings.TrimSpace(stage); stage != "" {
		parts = append(parts, stage)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
