package services_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"uxrmate/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrAnalysis, "engine", "analyze", "gemini call failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrAnalysis) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"engine", "analyze", "gemini call failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected fallback detail, got %q", err.Error())
	}
}

func TestFailureKind(t *testing.T) {
	cases := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{services.Wrap(services.ErrNotFound, "engine", "stat", "missing", nil), "not_found"},
		{services.Wrap(services.ErrRateLimited, "gemini", "generate", "quota", nil), "rate_limited"},
		{services.Wrap(services.ErrPersistence, "store", "save", "", errors.New("disk full")), "persistence"},
		{services.Wrap(services.ErrTransient, "gemini", "upload", "", nil), "transient"},
		{errors.New("plain"), "unknown"},
	}
	for _, tc := range cases {
		if got := services.FailureKind(tc.err); got != tc.want {
			t.Fatalf("FailureKind(%v) = %q, want %q", tc.err, got, tc.want)
		}
	}
}

func TestStatusErrorMessage(t *testing.T) {
	err := &services.StatusError{Code: 429, Status: "RESOURCE_EXHAUSTED", Body: "quota exceeded", RetryAfter: 3 * time.Second}
	if got := err.Error(); got != "http 429 RESOURCE_EXHAUSTED: quota exceeded" {
		t.Fatalf("unexpected message %q", got)
	}
	if err.StatusCode() != 429 || err.RetryAfterHint() != 3*time.Second {
		t.Fatalf("unexpected accessors: %d %s", err.StatusCode(), err.RetryAfterHint())
	}
	if got := (&services.StatusError{Code: 503}).Error(); got != "http 503" {
		t.Fatalf("unexpected bare message %q", got)
	}
}
