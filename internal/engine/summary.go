package engine

import (
	"time"

	"uxrmate/internal/analysis"
)

// State is the lifecycle position of one CUJ within a run.
type State string

const (
	StatePending       State = "PENDING"
	StateAssetResolved State = "ASSET_RESOLVED"
	StateInvoking      State = "INVOKING"
	StateSucceeded     State = "SUCCEEDED"
	StateFailed        State = "FAILED"
	StateSkipped       State = "SKIPPED"
)

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed || s == StateSkipped
}

// Outcome is the record of one CUJ in a run.
type Outcome struct {
	CUJID     string
	Task      string
	AssetID   int64
	AssetName string
	Manual    bool
	State     State
	Status    analysis.Status
	Friction  int
	Cost      float64
	ResultID  int64
	RequestID string
	Err       error
	Message   string
	// Kind classifies a failure: not_found, persistence, rate_limited, ...
	Kind string
}

// CUJError is one failure entry in a summary.
type CUJError struct {
	CUJID   string
	Message string
}

// Completion distinguishes how a run ended.
type Completion string

const (
	CompletionClean   Completion = "clean"
	CompletionPartial Completion = "partial"
	CompletionFailed  Completion = "failed"
)

// Summary is the aggregate result of a run.
type Summary struct {
	RunID       string
	Model       string
	Successes   int
	Failures    int
	Skipped     int
	TotalCost   float64
	Errors      []CUJError
	Outcomes    []Outcome
	StartedAt   time.Time
	FinishedAt  time.Time
	Interrupted bool
}

// Completion reports clean when every CUJ succeeded, failed when none did,
// and partial otherwise.
func (s Summary) Completion() Completion {
	switch {
	case s.Successes > 0 && s.Failures == 0 && s.Skipped == 0:
		return CompletionClean
	case s.Successes == 0:
		return CompletionFailed
	default:
		return CompletionPartial
	}
}

// Duration returns the wall time of the run.
func (s Summary) Duration() time.Duration {
	if s.FinishedAt.IsZero() {
		return 0
	}
	return s.FinishedAt.Sub(s.StartedAt)
}

// AnalyzedAssets returns, in first-use order, the assets whose every
// analysis in this run succeeded. An asset with any failed CUJ is left out
// so its video is still there for the next run.
func (s Summary) AnalyzedAssets() []int64 {
	var order []int64
	clean := map[int64]bool{}
	for _, o := range s.Outcomes {
		if o.AssetID == 0 {
			continue
		}
		ok, seen := clean[o.AssetID]
		if !seen {
			order = append(order, o.AssetID)
			ok = true
		}
		clean[o.AssetID] = ok && o.State == StateSucceeded
	}
	out := order[:0]
	for _, id := range order {
		if clean[id] {
			out = append(out, id)
		}
	}
	return out
}
