package analysis

import (
	"context"
	"fmt"
	"strings"
)

// Status is the outcome a model (or reviewer) assigns to a CUJ.
type Status string

const (
	StatusPass    Status = "Pass"
	StatusFail    Status = "Fail"
	StatusPartial Status = "Partial"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPass, StatusFail, StatusPartial:
		return true
	}
	return false
}

// ParseStatus matches a status case-insensitively.
func ParseStatus(value string) (Status, error) {
	trimmed := strings.TrimSpace(value)
	for _, s := range []Status{StatusPass, StatusFail, StatusPartial} {
		if strings.EqualFold(trimmed, string(s)) {
			return s, nil
		}
	}
	return "", fmt.Errorf("invalid status %q (want Pass, Fail or Partial)", value)
}

// Score bounds shared by friction and confidence.
const (
	MinScore = 1
	MaxScore = 5
)

// KeyMoment is a timestamped observation inside the session video.
type KeyMoment struct {
	Timestamp   string `json:"timestamp"`
	Description string `json:"description"`
}

// ProgressFunc receives per-call stage updates with a fraction in [0,1].
type ProgressFunc func(stage string, fraction float64)

// Request describes one analysis call.
type Request struct {
	AssetPath         string
	Task              string
	Expectation       string
	SystemInstruction string
	Model             string
	Progress          ProgressFunc
}

// Report forwards a progress update when a callback is set.
func (r Request) Report(stage string, fraction float64) {
	if r.Progress != nil {
		r.Progress(stage, fraction)
	}
}

// Verdict is a decoded model reply.
type Verdict struct {
	Status          Status      `json:"status"`
	FrictionScore   int         `json:"friction_score"`
	ConfidenceScore *int        `json:"confidence_score,omitempty"`
	Observation     string      `json:"observation"`
	Recommendation  string      `json:"recommendation"`
	KeyMoments      []KeyMoment `json:"key_moments,omitempty"`
	Raw             string      `json:"-"`
}

// Analyzer evaluates a session video against a CUJ.
type Analyzer interface {
	Analyze(ctx context.Context, req Request) (Verdict, error)
}

// AnalyzerFunc adapts a function to Analyzer.
type AnalyzerFunc func(ctx context.Context, req Request) (Verdict, error)

// Analyze calls f.
func (f AnalyzerFunc) Analyze(ctx context.Context, req Request) (Verdict, error) {
	return f(ctx, req)
}

// BuildPrompt renders the user prompt for one CUJ.
func BuildPrompt(task, expectation string) string {
	var b strings.Builder
	b.WriteString("Analyze this user session video against the following Critical User Journey.\n\n")
	b.WriteString("Task: ")
	b.WriteString(strings.TrimSpace(task))
	b.WriteString("\nExpected outcome: ")
	b.WriteString(strings.TrimSpace(expectation))
	b.WriteString("\n\nRespond with the JSON object described in your instructions.")
	return b.String()
}
