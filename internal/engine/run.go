package engine

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"uxrmate/internal/analysis"
	"uxrmate/internal/assign"
	"uxrmate/internal/cost"
	"uxrmate/internal/logging"
	"uxrmate/internal/retry"
	"uxrmate/internal/services"
	"uxrmate/internal/store"
)

// Run executes req. The returned error is non-nil only when pre-flight
// rejects the run or the inputs violate an internal invariant; per-CUJ
// failures are reported in the Summary.
func (c *Controller) Run(ctx context.Context, req Request) (Summary, error) {
	if err := c.Preflight(req); err != nil {
		return Summary{}, err
	}
	plan, err := req.Plan()
	if err != nil {
		return Summary{}, fmt.Errorf("resolve assignments: %w", err)
	}
	if len(plan) != len(req.CUJs) {
		return Summary{}, fmt.Errorf("resolve assignments: got %d assignments for %d cujs", len(plan), len(req.CUJs))
	}
	ready := req.ReadyAssets()

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = cost.DefaultModel
	}
	summary := Summary{
		RunID:     c.newRunID(),
		Model:     model,
		StartedAt: c.clock(),
		Outcomes:  make([]Outcome, 0, len(req.CUJs)),
	}
	ctx = services.WithRunID(ctx, summary.RunID)
	logger := logging.WithContext(ctx, c.logger)
	logger.Info("analysis run started",
		logging.Event("run_started"),
		logging.String("model", model),
		logging.Int("cuj_count", len(req.CUJs)),
		logging.Int("asset_count", len(ready)),
	)
	c.recordStart(ctx, logger, summary)

	total := float64(len(req.CUJs))
	for i, cuj := range req.CUJs {
		if ctx.Err() != nil {
			summary.Interrupted = true
			for _, rest := range req.CUJs[i:] {
				c.finish(&summary, Outcome{CUJID: rest.ID, Task: rest.Task, State: StateSkipped, Message: "run cancelled before start"})
			}
			logger.Warn("analysis run interrupted",
				logging.Event("run_interrupted"),
				logging.Int("skipped", len(req.CUJs)-i),
			)
			break
		}
		progress := func(stage string, fraction float64) {
			c.observer.StageChanged(stage, (float64(i)+clampFraction(fraction))/total)
		}
		outcome := c.runOne(ctx, req, model, cuj, ready[plan[i].Index], plan[i], progress)
		c.finish(&summary, outcome)
	}

	summary.FinishedAt = c.clock()
	c.observer.StageChanged(StageComplete, 1)
	c.recordComplete(ctx, logger, summary)
	logger.Info("analysis run completed",
		logging.Event("run_completed"),
		logging.String("completion", string(summary.Completion())),
		logging.Int("successes", summary.Successes),
		logging.Int("failures", summary.Failures),
		logging.Int("skipped", summary.Skipped),
		logging.USD("total_cost", summary.TotalCost),
		logging.Duration("duration", summary.Duration()),
	)
	return summary, nil
}

func (c *Controller) runOne(ctx context.Context, req Request, model string, cuj store.CUJ, asset store.Asset, plan assign.Assignment, progress analysis.ProgressFunc) Outcome {
	requestID := uuid.NewString()
	ctx = services.WithCUJID(ctx, cuj.ID)
	ctx = services.WithAssetID(ctx, asset.ID)
	ctx = services.WithRequestID(ctx, requestID)
	logger := logging.WithContext(ctx, c.logger)

	out := Outcome{CUJID: cuj.ID, Task: cuj.Task, State: StatePending, RequestID: requestID}
	progress(StageResolving, 0)
	out.AssetID, out.AssetName, out.Manual = asset.ID, asset.Name, plan.Manual
	out.State = StateAssetResolved

	progress(StageChecking, 0)
	if err := c.files.Check(asset.FilePath); err != nil {
		msg := fmt.Sprintf("video file not found: %s", asset.FilePath)
		return c.fail(logger, out, services.Wrap(services.ErrNotFound, "engine", "check asset", msg, err), msg)
	}

	out.State = StateInvoking
	progress(StageInvoking, 0)
	logger.Info("analysis started",
		logging.Event("analysis_started"),
		logging.String("asset", asset.Name),
		logging.Bool("manual_mapping", plan.Manual),
		logging.String("model", model),
	)
	request := analysis.Request{
		AssetPath:         asset.FilePath,
		Task:              cuj.Task,
		Expectation:       cuj.Expectation,
		SystemInstruction: req.SystemInstruction,
		Model:             model,
		Progress:          progress,
	}
	// The invocation and its retries finish even if the run is cancelled.
	callCtx := services.WithStage(context.WithoutCancel(ctx), StageInvoking)
	verdict, err := retry.DoValue(callCtx, c.retrier, func(ctx context.Context) (analysis.Verdict, error) {
		return c.analyzer.Analyze(ctx, request)
	})
	if err != nil {
		return c.fail(logger, out, err, "analysis failed: "+err.Error())
	}

	estimate := cost.Estimate(asset.DurationSeconds, model)
	progress(StageSaving, 1)
	id, err := c.results.SaveAnalysis(callCtx, store.AnalysisResult{
		CUJID:           cuj.ID,
		AssetID:         asset.ID,
		RunID:           summaryRunID(ctx),
		Model:           model,
		Status:          verdict.Status,
		FrictionScore:   verdict.FrictionScore,
		ConfidenceScore: verdict.ConfidenceScore,
		Observation:     verdict.Observation,
		Recommendation:  verdict.Recommendation,
		KeyMoments:      verdict.KeyMoments,
		Cost:            estimate.TotalCost,
		RawResponse:     verdict.Raw,
		AnalyzedAt:      c.clock(),
	})
	if err != nil {
		wrapped := services.Wrap(services.ErrPersistence, "engine", "save result", "analysis succeeded but could not be saved", err)
		return c.fail(logger, out, wrapped, "failed to save result: "+err.Error())
	}

	out.State = StateSucceeded
	out.ResultID = id
	out.Status = verdict.Status
	out.Friction = verdict.FrictionScore
	out.Cost = estimate.TotalCost
	logger.Info("analysis completed",
		logging.Event("analysis_completed"),
		logging.String("status", string(verdict.Status)),
		logging.Int("friction", verdict.FrictionScore),
		logging.USD("cost", estimate.TotalCost),
		logging.Int64("result_id", id),
	)
	return out
}

func (c *Controller) fail(logger *slog.Logger, out Outcome, err error, msg string) Outcome {
	out.State = StateFailed
	out.Err = err
	out.Message = msg
	out.Kind = services.FailureKind(err)
	logger.Error("analysis failed",
		logging.Event("analysis_failed"),
		logging.String("kind", out.Kind),
		logging.Error(err),
	)
	return out
}

func (c *Controller) finish(summary *Summary, out Outcome) {
	if !out.State.Terminal() {
		err := fmt.Errorf("cuj %s finished in non-terminal state %s", out.CUJID, out.State)
		out = c.fail(c.logger, out, err, err.Error())
	}
	switch out.State {
	case StateSucceeded:
		summary.Successes++
		summary.TotalCost += out.Cost
	case StateFailed:
		summary.Failures++
		summary.Errors = append(summary.Errors, CUJError{CUJID: out.CUJID, Message: out.Message})
	case StateSkipped:
		summary.Skipped++
	}
	summary.Outcomes = append(summary.Outcomes, out)
	if obs, ok := c.observer.(OutcomeObserver); ok {
		obs.CUJFinished(out)
	}
}

func (c *Controller) recordStart(ctx context.Context, logger *slog.Logger, summary Summary) {
	rec, ok := c.results.(RunRecorder)
	if !ok {
		return
	}
	if err := rec.StartRun(context.WithoutCancel(ctx), summary.RunID, summary.Model, summary.StartedAt); err != nil {
		logger.Warn("failed to record run start", logging.Error(err))
	}
}

func (c *Controller) recordComplete(ctx context.Context, logger *slog.Logger, summary Summary) {
	rec, ok := c.results.(RunRecorder)
	if !ok {
		return
	}
	finished := summary.FinishedAt
	if err := rec.CompleteRun(context.WithoutCancel(ctx), store.RunRecord{
		ID:          summary.RunID,
		Model:       summary.Model,
		StartedAt:   summary.StartedAt,
		CompletedAt: &finished,
		Successes:   summary.Successes,
		Failures:    summary.Failures,
		Skipped:     summary.Skipped,
		Interrupted: summary.Interrupted,
		TotalCost:   summary.TotalCost,
	}); err != nil {
		logger.Warn("failed to record run completion", logging.Error(err))
	}
}

func summaryRunID(ctx context.Context) string {
	id, _ := services.RunIDFromContext(ctx)
	return id
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
