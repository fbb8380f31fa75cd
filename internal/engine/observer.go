package engine

// Stage names reported to observers. The analyzer may report its own
// stages in between.
const (
	StageResolving = "resolving"
	StageChecking  = "checking"
	StageInvoking  = "invoking"
	StageSaving    = "saving"
	StageComplete  = "complete"
)

// Observer receives run progress. fraction is run-global in [0,1]. It has
// no effect on control flow.
type Observer interface {
	StageChanged(stage string, fraction float64)
}

// OutcomeObserver is optionally implemented by observers that want each
// finished CUJ.
type OutcomeObserver interface {
	CUJFinished(o Outcome)
}

// NopObserver ignores progress.
type NopObserver struct{}

// StageChanged does nothing.
func (NopObserver) StageChanged(string, float64) {}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(stage string, fraction float64)

// StageChanged calls f.
func (f ObserverFunc) StageChanged(stage string, fraction float64) { f(stage, fraction) }
