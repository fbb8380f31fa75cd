package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"uxrmate/internal/analysis"
	"uxrmate/internal/assign"
	"uxrmate/internal/logging"
	"uxrmate/internal/retry"
	"uxrmate/internal/store"
)

// ResultSaver persists successful analyses.
type ResultSaver interface {
	SaveAnalysis(ctx context.Context, r store.AnalysisResult) (int64, error)
}

// RunRecorder is implemented by savers that also keep run bookkeeping.
type RunRecorder interface {
	StartRun(ctx context.Context, runID, model string, startedAt time.Time) error
	CompleteRun(ctx context.Context, rec store.RunRecord) error
}

// FileChecker verifies that an asset file can be read.
type FileChecker interface {
	Check(path string) error
}

// FileCheckerFunc adapts a function to FileChecker.
type FileCheckerFunc func(path string) error

// Check calls f.
func (f FileCheckerFunc) Check(path string) error { return f(path) }

// OSFiles checks asset files on the local filesystem.
var OSFiles FileChecker = FileCheckerFunc(func(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
})

// Deps are the collaborators of a Controller. Analyzer and Results are
// required; everything else has a default.
type Deps struct {
	Analyzer analysis.Analyzer
	Results  ResultSaver
	Policy   retry.Policy
	Files    FileChecker
	Observer Observer
	Logger   *slog.Logger
	Clock    func() time.Time
	NewRunID func() string
	// RetryOptions customise the retrier, typically to inject a sleeper.
	RetryOptions []retry.Option
}

// Controller executes analysis runs.
type Controller struct {
	analyzer analysis.Analyzer
	results  ResultSaver
	retrier  *retry.Retrier
	files    FileChecker
	observer Observer
	logger   *slog.Logger
	clock    func() time.Time
	newRunID func() string
}

// New validates deps and builds a Controller.
func New(deps Deps) (*Controller, error) {
	if deps.Analyzer == nil {
		return nil, errors.New("engine: analyzer is required")
	}
	if deps.Results == nil {
		return nil, errors.New("engine: result saver is required")
	}
	if deps.Policy == (retry.Policy{}) {
		deps.Policy = retry.Default()
	}
	if deps.Files == nil {
		deps.Files = OSFiles
	}
	if deps.Observer == nil {
		deps.Observer = NopObserver{}
	}
	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.NewRunID == nil {
		deps.NewRunID = func() string { return uuid.NewString() }
	}

	logger := logging.NewComponentLogger(deps.Logger, "engine")
	opts := append([]retry.Option{
		retry.WithRetryHook(func(evt retry.Event) {
			logger.Warn("analysis attempt failed; retrying",
				logging.Event("analysis_retry"),
				logging.Int("attempt", evt.Attempt),
				logging.String("class", evt.Class.String()),
				logging.Duration("delay", evt.Delay),
				logging.Error(evt.Err),
			)
		}),
	}, deps.RetryOptions...)

	return &Controller{
		analyzer: deps.Analyzer,
		results:  deps.Results,
		retrier:  retry.New(deps.Policy, opts...),
		files:    deps.Files,
		observer: deps.Observer,
		logger:   logger,
		clock:    deps.Clock,
		newRunID: deps.NewRunID,
	}, nil
}

// Request is the input of one run.
type Request struct {
	APIKey            string
	Model             string
	SystemInstruction string
	CUJs              []store.CUJ
	// Assets may include assets that are not ready; only ready ones are used.
	Assets  []store.Asset
	Mapping assign.Mapping
}

// ReadyAssets returns the ready assets in request order.
func (r Request) ReadyAssets() []store.Asset {
	out := make([]store.Asset, 0, len(r.Assets))
	for _, a := range r.Assets {
		if a.Ready() {
			out = append(out, a)
		}
	}
	return out
}

// Plan resolves the asset for every CUJ without running anything.
func (r Request) Plan() ([]assign.Assignment, error) {
	ready := r.ReadyAssets()
	candidates := make([]assign.Candidate, len(ready))
	for i, a := range ready {
		candidates[i] = assign.Candidate{ID: a.ID, Name: a.Name}
	}
	ids := make([]string, len(r.CUJs))
	for i, c := range r.CUJs {
		ids[i] = c.ID
	}
	return assign.Resolve(ids, candidates, r.Mapping)
}
