package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"uxrmate/internal/config"
	"uxrmate/internal/export"
	"uxrmate/internal/store"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var format string
	var latest bool
	var runID string
	var outputDir string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write analysis results to a CSV or JSON file",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			dir := cfg.Paths.ExportDir
			if strings.TrimSpace(outputDir) != "" {
				if dir, err = config.ExpandPath(outputDir); err != nil {
					return err
				}
			}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				results, err := loadResults(c, st, strings.TrimSpace(runID), latest, -1)
				if err != nil {
					return err
				}
				if len(results) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No analysis results to export.")
					return nil
				}
				path, err := export.WriteFile(dir, parsed, export.Rows(results), time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Exported %d result(s) to %s\n", len(results), path)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "csv", "Export format: csv or json")
	cmd.Flags().BoolVar(&latest, "latest", false, "Only export the latest result per CUJ")
	cmd.Flags().StringVar(&runID, "run", "", "Only export results from this run id")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory to write to (defaults to paths.export_dir)")
	return cmd
}
