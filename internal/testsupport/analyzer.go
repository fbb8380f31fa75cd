package testsupport

import (
	"context"
	"sync"

	"uxrmate/internal/analysis"
)

// AnalyzeHandler scripts a FakeAnalyzer reply. attempt counts calls for the
// same task starting at 1.
type AnalyzeHandler func(req analysis.Request, attempt int) (analysis.Verdict, error)

// FakeAnalyzer records requests and answers them from Handler. With no
// handler every call passes with friction 2.
type FakeAnalyzer struct {
	Handler AnalyzeHandler

	mu       sync.Mutex
	calls    []analysis.Request
	attempts map[string]int
}

// Analyze implements analysis.Analyzer.
func (f *FakeAnalyzer) Analyze(ctx context.Context, req analysis.Request) (analysis.Verdict, error) {
	f.mu.Lock()
	if f.attempts == nil {
		f.attempts = map[string]int{}
	}
	f.attempts[req.Task]++
	attempt := f.attempts[req.Task]
	f.calls = append(f.calls, req)
	handler := f.Handler
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return analysis.Verdict{}, err
	}
	if handler == nil {
		return PassVerdict(), nil
	}
	return handler(req, attempt)
}

// Calls returns a copy of the recorded requests.
func (f *FakeAnalyzer) Calls() []analysis.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]analysis.Request, len(f.calls))
	copy(out, f.calls)
	return out
}

// Attempts returns how many times the task was analyzed.
func (f *FakeAnalyzer) Attempts(task string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attempts[task]
}

// PassVerdict is the default passing reply.
func PassVerdict() analysis.Verdict {
	confidence := 4
	return analysis.Verdict{
		Status:          analysis.StatusPass,
		FrictionScore:   2,
		ConfidenceScore: &confidence,
		Observation:     "User completed the task.",
		Recommendation:  "None.",
		Raw:             `{"status":"Pass","friction_score":2,"confidence_score":4}`,
	}
}
