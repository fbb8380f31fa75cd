package retry

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"uxrmate/internal/services"
)

// Class is the retry classification of an error.
type Class int

const (
	// ClassFatal errors are returned without retrying.
	ClassFatal Class = iota
	// ClassRateLimited errors signal quota or throttling; they back off up to
	// the long cap.
	ClassRateLimited
	// ClassServer errors are transient server-side faults; they back off up
	// to the short cap.
	ClassServer
)

func (c Class) String() string {
	switch c {
	case ClassRateLimited:
		return "rate_limited"
	case ClassServer:
		return "server"
	default:
		return "fatal"
	}
}

// StatusCoder is implemented by errors that carry an HTTP-style status code.
type StatusCoder interface {
	StatusCode() int
}

// RetryAfterHinter is implemented by errors that carry a server backoff hint.
type RetryAfterHinter interface {
	RetryAfterHint() time.Duration
}

// Classify maps an error to its retry class.
func Classify(err error) Class {
	if err == nil {
		return ClassFatal
	}
	if errors.Is(err, context.Canceled) {
		return ClassFatal
	}

	var coder StatusCoder
	if errors.As(err, &coder) {
		return classifyStatus(coder.StatusCode())
	}

	switch {
	case errors.Is(err, services.ErrRateLimited):
		return ClassRateLimited
	case errors.Is(err, services.ErrTransient), errors.Is(err, services.ErrTimeout):
		return ClassServer
	case errors.Is(err, context.DeadlineExceeded):
		return ClassServer
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ClassServer
	}
	return ClassFatal
}

func classifyStatus(code int) Class {
	switch {
	case code == http.StatusTooManyRequests, code == http.StatusForbidden:
		return ClassRateLimited
	case code == http.StatusRequestTimeout, code >= http.StatusInternalServerError:
		return ClassServer
	default:
		return ClassFatal
	}
}

func retryAfterHint(err error) time.Duration {
	var hinter RetryAfterHinter
	if errors.As(err, &hinter) {
		if hint := hinter.RetryAfterHint(); hint > 0 {
			return hint
		}
	}
	return 0
}
