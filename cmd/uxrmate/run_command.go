package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"uxrmate/internal/analysis"
	"uxrmate/internal/cost"
	"uxrmate/internal/engine"
	"uxrmate/internal/logging"
	"uxrmate/internal/store"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var model string
	var dryRun, cleanup bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Analyze every CUJ against its assigned video",
		Long: "Analyze every CUJ against its assigned video. Press Ctrl-C once to stop " +
			"after the CUJ in progress; remaining CUJs are reported as skipped.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			st, err := ctx.openStore()
			if err != nil {
				return err
			}

			req, err := loadRunInputs(cmd.Context(), st)
			if err != nil {
				return err
			}
			req.APIKey = cfg.Gemini.APIKey
			req.Model = strings.TrimSpace(model)
			if req.Model == "" {
				req.Model = cfg.Gemini.Model
			}
			req.SystemInstruction = cfg.SystemPrompt()
			if _, known := cost.Lookup(req.Model); !known {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: unknown model %q; cost estimates use %s pricing\n", req.Model, cost.DefaultModel)
			}

			if dryRun {
				return printDryRun(cmd, req)
			}
			return executeRun(cmd, ctx, st, req, cleanup)
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (defaults to gemini.model)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the assignment plan and cost estimate without calling the service")
	cmd.Flags().BoolVar(&cleanup, "cleanup", false, "Delete video files whose every CUJ succeeded and remove them from the library")
	cmd.MarkFlagsMutuallyExclusive("dry-run", "cleanup")
	return cmd
}

func printDryRun(cmd *cobra.Command, req engine.Request) error {
	out := cmd.OutOrStdout()
	ctrl, err := engine.New(engine.Deps{
		Analyzer: analysis.AnalyzerFunc(func(context.Context, analysis.Request) (analysis.Verdict, error) {
			return analysis.Verdict{}, errors.New("dry run")
		}),
		Results: discardSaver{},
	})
	if err != nil {
		return err
	}
	preflightErr := ctrl.Preflight(req)

	if len(req.CUJs) > 0 && len(req.ReadyAssets()) > 0 {
		plan, err := req.Plan()
		if err != nil {
			return err
		}
		ready := req.ReadyAssets()
		rows := make([][]string, 0, len(plan))
		var total cost.Breakdown
		for i, a := range plan {
			asset := ready[a.Index]
			est := cost.Estimate(asset.DurationSeconds, req.Model)
			total.TotalTokens += est.TotalTokens
			total.TotalCost += est.TotalCost
			mode := "round robin"
			if a.Manual {
				mode = "manual"
			}
			rows = append(rows, []string{
				req.CUJs[i].ID,
				asset.Name,
				mode,
				cost.FormatTokens(est.TotalTokens),
				cost.FormatCost(est.TotalCost),
			})
		}
		fmt.Fprintln(out, renderTableWithFooter(
			[]string{"CUJ", "Video", "Mode", "Tokens", "Est. cost"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			[]string{"Total", "", "", cost.FormatTokens(total.TotalTokens), cost.FormatCost(total.TotalCost)},
		))
		fmt.Fprintf(out, "Model: %s\n", cost.Resolve(req.Model).DisplayName)
	}

	if preflightErr != nil {
		var pf *engine.PreflightError
		if errors.As(preflightErr, &pf) {
			fmt.Fprintln(out, "Run would be rejected:")
			for _, p := range pf.Problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
		}
		return preflightErr
	}
	fmt.Fprintln(out, "Pre-flight checks passed")
	return nil
}

func executeRun(cmd *cobra.Command, ctx *commandContext, st *store.Store, req engine.Request, cleanup bool) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := ctx.ensureLogger()
	if err != nil {
		return err
	}

	lock, err := st.AcquireRunLock()
	if err != nil {
		return err
	}
	defer lock.Release()

	runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	analyzer, err := ctx.newAnalyzer(runCtx, cfg, logger)
	if err != nil {
		return err
	}
	ctrl, err := engine.New(engine.Deps{
		Analyzer: analyzer,
		Results:  st,
		Policy:   cfg.RetryPolicy(),
		Observer: newProgressObserver(cmd.ErrOrStderr(), len(req.CUJs)),
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	summary, err := ctrl.Run(runCtx, req)
	if err != nil {
		var pf *engine.PreflightError
		if errors.As(err, &pf) {
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Run rejected by pre-flight checks:")
			for _, p := range pf.Problems {
				fmt.Fprintf(out, "  - %s\n", p)
			}
		}
		return err
	}

	saveCtx := context.WithoutCancel(cmd.Context())
	if err := st.SaveSetting(saveCtx, store.SettingLastModel, summary.Model); err != nil {
		logger.Warn("failed to remember model", logging.Error(err))
	}
	if err := st.SaveSetting(saveCtx, store.SettingLastRunID, summary.RunID); err != nil {
		logger.Warn("failed to remember run id", logging.Error(err))
	}

	printSummary(cmd.OutOrStdout(), summary)
	if cleanup {
		removeAnalyzedVideos(saveCtx, cmd.OutOrStdout(), st, summary.AnalyzedAssets(), logger)
	}
	if summary.Completion() == engine.CompletionFailed {
		return fmt.Errorf("run %s failed: no CUJ succeeded", shortID(summary.RunID))
	}
	return nil
}

// removeAnalyzedVideos deletes the files of fully analyzed videos and drops
// them from the library. Their results are kept.
func removeAnalyzedVideos(ctx context.Context, out io.Writer, st *store.Store, ids []int64, logger *slog.Logger) {
	removed := 0
	for _, id := range ids {
		asset, err := st.GetAsset(ctx, id)
		if err != nil || asset == nil {
			if err != nil {
				logger.Warn("failed to load analyzed video", logging.Int64("asset_id", id), logging.Error(err))
			}
			continue
		}
		if asset.FilePath != "" {
			if err := os.Remove(asset.FilePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
				logger.Warn("failed to delete analyzed video",
					logging.String("path", asset.FilePath),
					logging.Error(err),
				)
				fmt.Fprintf(out, "Could not delete %s: %v\n", asset.FilePath, err)
				continue
			}
		}
		if _, err := st.DeleteAsset(ctx, id); err != nil {
			logger.Warn("failed to remove analyzed video from library", logging.Int64("asset_id", id), logging.Error(err))
			continue
		}
		removed++
	}
	logger.Info("analyzed videos removed", logging.Event("video_cleanup"), logging.Int("removed", removed))
	fmt.Fprintf(out, "Deleted %d analyzed video file(s)\n", removed)
}

func printSummary(out io.Writer, s engine.Summary) {
	rows := make([][]string, 0, len(s.Outcomes))
	for _, o := range s.Outcomes {
		status, friction := "-", "-"
		if o.State == engine.StateSucceeded {
			status = string(o.Status)
			friction = strconv.Itoa(o.Friction)
		}
		note := o.Message
		if o.State == engine.StateSucceeded {
			note = cost.FormatCost(o.Cost)
		}
		rows = append(rows, []string{o.CUJID, o.AssetName, string(o.State), status, friction, note})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"CUJ", "Video", "Outcome", "Status", "Friction", "Cost / error"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))

	fmt.Fprintf(out, "Run %s: %d succeeded, %d failed", shortID(s.RunID), s.Successes, s.Failures)
	if s.Skipped > 0 {
		fmt.Fprintf(out, ", %d skipped", s.Skipped)
	}
	fmt.Fprintf(out, " in %s. Total cost %s\n", s.Duration().Round(time.Second), cost.FormatCost(s.TotalCost))

	switch s.Completion() {
	case engine.CompletionClean:
		fmt.Fprintln(out, "All CUJs analyzed successfully.")
	case engine.CompletionPartial:
		if s.Interrupted {
			fmt.Fprintln(out, "Run interrupted; rerun to analyze the skipped CUJs.")
		} else {
			fmt.Fprintln(out, "Completed with failures; see the errors above.")
		}
	case engine.CompletionFailed:
		fmt.Fprintln(out, "Every CUJ failed.")
	}
}

// progressObserver renders sampled run progress.
type progressObserver struct {
	mu      sync.Mutex
	out     io.Writer
	total   int
	done    int
	sampler *logging.ProgressSampler
}

func newProgressObserver(out io.Writer, total int) *progressObserver {
	return &progressObserver{out: out, total: total, sampler: logging.NewProgressSampler(10)}
}

func (p *progressObserver) StageChanged(stage string, fraction float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stage == engine.StageComplete {
		return
	}
	if pct, ok := p.sampler.Sample("run", fraction); ok {
		fmt.Fprintf(p.out, "[%3d%%] %s\n", pct, stage)
	}
}

func (p *progressObserver) CUJFinished(o engine.Outcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	detail := string(o.State)
	if o.Message != "" {
		detail += ": " + o.Message
	}
	fmt.Fprintf(p.out, "(%d/%d) %s %s\n", p.done, p.total, o.CUJID, detail)
}

// discardSaver satisfies engine.ResultSaver for dry runs.
type discardSaver struct{}

func (discardSaver) SaveAnalysis(context.Context, store.AnalysisResult) (int64, error) {
	return 0, errors.New("dry run")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
