package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"uxrmate/internal/analysis"
	"uxrmate/internal/cost"
	"uxrmate/internal/store"
)

func newStatsCommand(ctx *commandContext) *cobra.Command {
	var runs int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show totals, spend, and recent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				stats, err := st.GetStatistics(c)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				rows := [][]string{
					{"CUJs", strconv.Itoa(stats.TotalCUJs)},
					{"Videos", strconv.Itoa(stats.TotalAssets)},
					{"Analyses", strconv.Itoa(stats.TotalAnalyses)},
					{"Total cost", cost.FormatCost(stats.TotalCost)},
					{"Avg friction", fmt.Sprintf("%.1f", stats.AvgFriction)},
				}
				for _, s := range []analysis.Status{analysis.StatusPass, analysis.StatusPartial, analysis.StatusFail} {
					rows = append(rows, []string{string(s), strconv.Itoa(stats.StatusCounts[s])})
				}
				if model, ok, err := st.GetSetting(c, store.SettingLastModel); err == nil && ok {
					rows = append(rows, []string{"Last model", model})
				}
				fmt.Fprintln(out, renderTable([]string{"Metric", "Value"}, rows, []columnAlignment{alignLeft, alignRight}))

				if runs <= 0 {
					return nil
				}
				records, err := st.ListRuns(c, runs)
				if err != nil {
					return err
				}
				if len(records) == 0 {
					return nil
				}
				runRows := make([][]string, 0, len(records))
				for _, r := range records {
					finished := "running"
					if r.CompletedAt != nil {
						finished = r.CompletedAt.Local().Format("2006-01-02 15:04")
						if r.Interrupted {
							finished += " (interrupted)"
						}
					}
					runRows = append(runRows, []string{
						shortID(r.ID),
						r.Model,
						r.StartedAt.Local().Format("2006-01-02 15:04"),
						finished,
						strconv.Itoa(r.Successes),
						strconv.Itoa(r.Failures),
						strconv.Itoa(r.Skipped),
						cost.FormatCost(r.TotalCost),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"Run", "Model", "Started", "Finished", "OK", "Failed", "Skipped", "Cost"},
					runRows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&runs, "runs", 5, "Number of recent runs to list (0 to hide)")
	return cmd
}
