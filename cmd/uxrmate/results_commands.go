package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"uxrmate/internal/analysis"
	"uxrmate/internal/config"
	"uxrmate/internal/cost"
	"uxrmate/internal/export"
	"uxrmate/internal/review"
	"uxrmate/internal/store"
)

func newResultsCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var runID string
	var latest bool
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "results",
		Short: "Show stored analysis results",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				results, err := loadResults(c, st, strings.TrimSpace(runID), latest, limit)
				if err != nil {
					return err
				}
				views := make([]review.View, len(results))
				for i, r := range results {
					views[i] = review.NewView(r)
				}
				if jsonOutput {
					return writeJSON(cmd, resultsJSON(views))
				}

				out := cmd.OutOrStdout()
				if len(views) == 0 {
					fmt.Fprintln(out, "No analysis results yet. Run 'uxrmate run' first.")
					return nil
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, resultRow(v))
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "CUJ", "Video", "Status", "Friction", "Conf.", "Review", "Observation"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of results to show")
	cmd.Flags().StringVar(&runID, "run", "", "Only show results from this run id")
	cmd.Flags().BoolVar(&latest, "latest", false, "Only show the latest result per CUJ")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.AddCommand(newResultsReportCommand(ctx))
	cmd.AddCommand(newResultsDeleteCommand(ctx))
	return cmd
}

func newResultsReportCommand(ctx *commandContext) *cobra.Command {
	var runID, model, output string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Draft an executive summary of the latest results with the model",
		Long: `Draft a markdown executive summary. By default the latest result per CUJ
is summarized; reviewer overrides replace the model's status and friction.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(model) == "" {
				model = cfg.Gemini.Model
			}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				results, err := loadResults(c, st, strings.TrimSpace(runID), true, 0)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					return errors.New("no analysis results to report on; run 'uxrmate run' first")
				}
				completer, err := ctx.completer(c)
				if err != nil {
					return err
				}
				report, err := export.DraftReport(c, completer, model, export.Rows(results))
				if err != nil {
					return err
				}
				if output == "" {
					fmt.Fprintln(cmd.OutOrStdout(), report)
					return nil
				}
				path, err := config.ExpandPath(output)
				if err != nil {
					return err
				}
				if err := os.WriteFile(path, []byte(report+"\n"), 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", path)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "Summarize this run instead of the latest result per CUJ")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (defaults to gemini.model)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the markdown report to this file")
	return cmd
}

func newResultsDeleteCommand(ctx *commandContext) *cobra.Command {
	var cujID string
	var videoID int64

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete stored results for a CUJ or a video",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.ResultFilter{CUJID: strings.TrimSpace(cujID), AssetID: videoID}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				n, err := st.DeleteResults(c, filter)
				if err != nil {
					return err
				}
				target := "CUJ " + filter.CUJID
				if filter.AssetID != 0 {
					target = "video " + strconv.FormatInt(filter.AssetID, 10)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d result(s) for %s\n", n, target)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&cujID, "cuj", "", "Delete every result of this CUJ")
	cmd.Flags().Int64Var(&videoID, "video", 0, "Delete every result analyzed against this video id")
	cmd.MarkFlagsOneRequired("cuj", "video")
	cmd.MarkFlagsMutuallyExclusive("cuj", "video")
	return cmd
}

func loadResults(ctx context.Context, st *store.Store, runID string, latest bool, limit int) ([]store.AnalysisResult, error) {
	switch {
	case runID != "":
		return st.RunResults(ctx, runID)
	case latest:
		return st.GetLatestResults(ctx)
	default:
		return st.ListResults(ctx, limit)
	}
}

func resultRow(v review.View) []string {
	r := v.Result
	cuj := r.CUJID
	if r.CUJDeleted {
		cuj += " (deleted)"
	}
	status := string(v.EffectiveStatus)
	friction := strconv.Itoa(v.EffectiveFriction)
	if v.Overridden {
		status += "*"
		friction += "*"
	}
	return []string{
		strconv.FormatInt(r.ID, 10),
		cuj,
		r.AssetName,
		status,
		friction,
		confidenceCell(r.ConfidenceScore),
		reviewCell(v),
		r.Observation,
	}
}

func confidenceCell(v *int) string {
	if v == nil {
		return "-"
	}
	return strconv.Itoa(*v)
}

func reviewCell(v review.View) string {
	switch {
	case v.Result.Verification.Verified:
		return "verified"
	case v.NeedsReview:
		return "needs review"
	default:
		return ""
	}
}

type resultJSON struct {
	ID             int64                `json:"id"`
	CUJID          string               `json:"cuj_id"`
	CUJDeleted     bool                 `json:"cuj_deleted,omitempty"`
	AssetID        int64                `json:"video_id"`
	AssetName      string               `json:"video_name"`
	RunID          string               `json:"run_id,omitempty"`
	Model          string               `json:"model"`
	Status         analysis.Status      `json:"status"`
	Friction       int                  `json:"friction_score"`
	AIStatus       analysis.Status      `json:"ai_status"`
	AIFriction     int                  `json:"ai_friction_score"`
	Confidence     *int                 `json:"confidence_score,omitempty"`
	NeedsReview    bool                 `json:"needs_review"`
	Verified       bool                 `json:"human_verified"`
	Notes          string               `json:"human_notes,omitempty"`
	Observation    string               `json:"observation"`
	Recommendation string               `json:"recommendation"`
	KeyMoments     []analysis.KeyMoment `json:"key_moments,omitempty"`
	Cost           float64              `json:"cost"`
	CostDisplay    string               `json:"cost_display"`
	AnalyzedAt     string               `json:"analyzed_at"`
}

func resultsJSON(views []review.View) []resultJSON {
	out := make([]resultJSON, 0, len(views))
	for _, v := range views {
		r := v.Result
		out = append(out, resultJSON{
			ID:             r.ID,
			CUJID:          r.CUJID,
			CUJDeleted:     r.CUJDeleted,
			AssetID:        r.AssetID,
			AssetName:      r.AssetName,
			RunID:          r.RunID,
			Model:          r.Model,
			Status:         v.EffectiveStatus,
			Friction:       v.EffectiveFriction,
			AIStatus:       r.Status,
			AIFriction:     r.FrictionScore,
			Confidence:     r.ConfidenceScore,
			NeedsReview:    v.NeedsReview,
			Verified:       r.Verification.Verified,
			Notes:          r.Verification.Notes,
			Observation:    r.Observation,
			Recommendation: r.Recommendation,
			KeyMoments:     r.KeyMoments,
			Cost:           r.Cost,
			CostDisplay:    cost.FormatCost(r.Cost),
			AnalyzedAt:     r.AnalyzedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return out
}
