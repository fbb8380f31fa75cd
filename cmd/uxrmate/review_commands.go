package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"uxrmate/internal/analysis"
	"uxrmate/internal/review"
	"uxrmate/internal/store"
)

func newReviewCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Verify analysis results",
	}
	cmd.AddCommand(newReviewListCommand(ctx))
	cmd.AddCommand(newReviewSubmitCommand(ctx))
	return cmd
}

func newReviewListCommand(ctx *commandContext) *cobra.Command {
	var pendingOnly bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the latest result per CUJ, flagged results first",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				views, err := review.NewOverlay(st).Queue(c)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(views))
				pending := 0
				for _, v := range views {
					if v.Pending() {
						pending++
					} else if pendingOnly {
						continue
					}
					rows = append(rows, resultRow(v))
				}
				out := cmd.OutOrStdout()
				if len(rows) == 0 {
					fmt.Fprintln(out, "Nothing to review.")
					return nil
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "CUJ", "Video", "Status", "Friction", "Conf.", "Review", "Observation"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
				))
				fmt.Fprintf(out, "%d result(s) awaiting review\n", pending)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pendingOnly, "pending", false, "Only show flagged results that are not yet verified")
	return cmd
}

func newReviewSubmitCommand(ctx *commandContext) *cobra.Command {
	var status string
	var friction int
	var notes string
	var clearStatus, clearFriction bool

	cmd := &cobra.Command{
		Use:   "submit <result-id>",
		Short: "Mark a result verified, optionally overriding status or friction",
		Long: `Mark a result verified. Only the fields given are changed; an earlier
reviewer's override on any other field is kept. Setting the model's own
value stores no override.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			sub := review.Submission{
				Status:   review.Keep[analysis.Status](),
				Friction: review.Keep[int](),
				Notes:    notes,
			}
			if cmd.Flags().Changed("status") {
				parsed, err := analysis.ParseStatus(status)
				if err != nil {
					return err
				}
				sub.Status = review.Set(parsed)
			}
			if cmd.Flags().Changed("friction") {
				sub.Friction = review.Set(friction)
			}
			if clearStatus {
				sub.Status = review.Clear[analysis.Status]()
			}
			if clearFriction {
				sub.Friction = review.Clear[int]()
			}

			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				view, err := review.NewOverlay(st).Submit(c, id, sub)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Result %s verified: %s, friction %d\n",
					strconv.FormatInt(id, 10), view.EffectiveStatus, view.EffectiveFriction)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "Override status (Pass, Fail, Partial)")
	cmd.Flags().IntVar(&friction, "friction", 0, "Override friction score (1-5)")
	cmd.Flags().StringVar(&notes, "notes", "", "Reviewer notes")
	cmd.Flags().BoolVar(&clearStatus, "clear-status", false, "Drop any status override and show the model's status")
	cmd.Flags().BoolVar(&clearFriction, "clear-friction", false, "Drop any friction override and show the model's score")
	cmd.MarkFlagsMutuallyExclusive("status", "clear-status")
	cmd.MarkFlagsMutuallyExclusive("friction", "clear-friction")
	return cmd
}
