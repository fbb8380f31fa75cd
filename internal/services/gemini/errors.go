package gemini

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"uxrmate/internal/services"
)

// translateError tags SDK failures so retry.Classify and the CLI can act on
// them. Authentication problems are configuration errors; every other API
// status becomes a *services.StatusError.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return services.Wrap(services.ErrTimeout, "gemini", op, "request timed out", err)
	}

	apiErr, ok := asAPIError(err)
	if !ok {
		return services.Wrap(services.ErrAnalysis, "gemini", op, "request failed", err)
	}
	if isAuthFailure(apiErr) {
		return services.Wrap(services.ErrConfiguration, "gemini", op, "API key rejected", err)
	}
	status := &services.StatusError{
		Code:       apiErr.Code,
		Status:     apiErr.Status,
		Body:       apiErr.Message,
		RetryAfter: retryDelay(apiErr.Details),
	}
	marker := services.ErrAnalysis
	if apiErr.Code == http.StatusTooManyRequests {
		marker = services.ErrRateLimited
	}
	return services.Wrap(marker, "gemini", op, "API returned an error", status)
}

func asAPIError(err error) (genai.APIError, bool) {
	var value genai.APIError
	if errors.As(err, &value) {
		return value, true
	}
	var ptr *genai.APIError
	if errors.As(err, &ptr) && ptr != nil {
		return *ptr, true
	}
	return genai.APIError{}, false
}

func isAuthFailure(e genai.APIError) bool {
	if e.Code == http.StatusUnauthorized {
		return true
	}
	if e.Code != http.StatusForbidden {
		return false
	}
	msg := strings.ToLower(e.Message)
	return e.Status == "PERMISSION_DENIED" || strings.Contains(msg, "api key")
}

// retryDelay reads the google.rpc.RetryInfo detail, e.g. {"retryDelay": "30s"}.
func retryDelay(details []map[string]any) time.Duration {
	for _, d := range details {
		raw, ok := d["retryDelay"].(string)
		if !ok {
			continue
		}
		if delay, err := time.ParseDuration(raw); err == nil && delay > 0 {
			return delay
		}
	}
	return 0
}
