package retry

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	"uxrmate/internal/services"
)

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassFatal},
		{"429", &services.StatusError{Code: 429}, ClassRateLimited},
		{"403 quota", &services.StatusError{Code: 403}, ClassRateLimited},
		{"500", &services.StatusError{Code: 500}, ClassServer},
		{"504 wrapped", fmt.Errorf("upload: %w", &services.StatusError{Code: 504}), ClassServer},
		{"408", &services.StatusError{Code: 408}, ClassServer},
		{"404", &services.StatusError{Code: 404}, ClassFatal},
		{"rate marker", services.Wrap(services.ErrRateLimited, "", "", "quota", nil), ClassRateLimited},
		{"transient marker", services.Wrap(services.ErrTransient, "", "", "blip", nil), ClassServer},
		{"deadline", context.DeadlineExceeded, ClassServer},
		{"cancelled", context.Canceled, ClassFatal},
		{"net timeout", &net.OpError{Op: "read", Err: timeoutErr{}}, ClassServer},
		{"plain", errors.New("parse failure"), ClassFatal},
		{"validation", services.Wrap(services.ErrValidation, "", "", "bad json", nil), ClassFatal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(tc.err); got != tc.want {
				t.Fatalf("Classify(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestBackoffDoubling(t *testing.T) {
	p := Default()
	want := []int{2, 4, 8, 16, 32, 64, 64}
	for i, secs := range want {
		if got := p.backoff(ClassRateLimited, i+1); got.Seconds() != float64(secs) {
			t.Fatalf("attempt %d backoff = %s, want %ds", i+1, got, secs)
		}
	}
	if got := p.backoff(ClassServer, 6); got != p.ServerErrorCap {
		t.Fatalf("expected server cap, got %s", got)
	}
	if got := (Policy{}).backoff(ClassServer, 3); got != 0 {
		t.Fatalf("expected zero base to disable backoff, got %s", got)
	}
}
