package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"uxrmate/internal/cost"
)

func newModelsCommand() *cobra.Command {
	var duration float64
	cmd := &cobra.Command{
		Use:         "models",
		Short:       "List supported models with pricing",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			rows := make([][]string, 0, len(cost.Models()))
			for _, m := range cost.Models() {
				est := cost.Estimate(duration, m.ID)
				rows = append(rows, []string{
					m.ID,
					m.DisplayName,
					fmt.Sprintf("$%.2f", m.InputCostPerMillion),
					fmt.Sprintf("$%.2f", m.OutputCostPerMillion),
					cost.FormatCost(est.TotalCost),
					m.BestFor,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Model", "Name", "Input /1M", "Output /1M", "Est. " + strconv.FormatFloat(duration, 'f', -1, 64) + "s video", "Best for"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "Default: %s\n", cost.DefaultModel)
			return nil
		},
	}
	cmd.Flags().Float64VarP(&duration, "duration", "d", 60, "Video duration in seconds used for the estimate")
	return cmd
}
