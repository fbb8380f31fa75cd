package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"uxrmate/internal/analysis"
	"uxrmate/internal/store"
)

func newCUJCommand(ctx *commandContext) *cobra.Command {
	cujCmd := &cobra.Command{
		Use:     "cuj",
		Aliases: []string{"cujs"},
		Short:   "Manage Critical User Journeys",
	}
	cujCmd.AddCommand(newCUJAddCommand(ctx))
	cujCmd.AddCommand(newCUJListCommand(ctx))
	cujCmd.AddCommand(newCUJDeleteCommand(ctx))
	cujCmd.AddCommand(newCUJImportCommand(ctx))
	cujCmd.AddCommand(newCUJGenerateCommand(ctx))
	return cujCmd
}

func newCUJAddCommand(ctx *commandContext) *cobra.Command {
	var task, expectation string
	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add or update a CUJ",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				cuj := store.CUJ{ID: strings.TrimSpace(args[0]), Task: task, Expectation: expectation}
				if err := st.SaveCUJ(c, cuj); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved CUJ %s\n", cuj.ID)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&task, "task", "t", "", "Short task name")
	cmd.Flags().StringVarP(&expectation, "expectation", "e", "", "Expected user behaviour")
	_ = cmd.MarkFlagRequired("task")
	_ = cmd.MarkFlagRequired("expectation")
	return cmd
}

func newCUJListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List CUJs in run order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				cujs, err := st.ListCUJs(c)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, cujs)
				}
				out := cmd.OutOrStdout()
				if len(cujs) == 0 {
					fmt.Fprintln(out, "No CUJs defined. Add one with `uxrmate cuj add`.")
					return nil
				}
				rows := make([][]string, 0, len(cujs))
				for _, cuj := range cujs {
					rows = append(rows, []string{cuj.ID, cuj.Task, cuj.Expectation})
				}
				fmt.Fprintln(out, renderTable([]string{"ID", "Task", "Expectation"}, rows, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newCUJDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a CUJ (its results are kept)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				deleted, err := st.DeleteCUJ(c, args[0])
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("cuj %s not found", args[0])
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted CUJ %s\n", args[0])
				return nil
			})
		},
	}
}

func newCUJImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv|file.json>",
		Short: "Import CUJs from a CSV (id,task,expectation) or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cujs, err := readCUJFile(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				if err := st.BulkSaveCUJs(c, cujs); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d CUJ(s)\n", len(cujs))
				return nil
			})
		},
	}
}

func newCUJGenerateCommand(ctx *commandContext) *cobra.Command {
	var topic, model string
	var count int
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Draft CUJs for a feature with the model and save them",
		Long: `Ask the model for Critical User Journeys about a feature or topic and save
them. Generated ids that clash with an existing CUJ, including a deleted one,
get a numeric suffix so nothing is overwritten.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(model) == "" {
				model = cfg.Gemini.Model
			}
			completer, err := ctx.completer(cmd.Context())
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				journeys, err := analysis.GenerateJourneys(c, completer, model, topic, count)
				if err != nil {
					return err
				}
				taken, err := st.CUJIDs(c)
				if err != nil {
					return err
				}
				journeys = analysis.UniqueJourneyIDs(journeys, taken)

				cujs := make([]store.CUJ, len(journeys))
				rows := make([][]string, len(journeys))
				for i, j := range journeys {
					cujs[i] = store.CUJ{ID: j.ID, Task: j.Task, Expectation: j.Expectation}
					rows[i] = []string{j.ID, j.Task, j.Expectation}
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, renderTable([]string{"ID", "Task", "Expectation"}, rows, nil))
				if dryRun {
					fmt.Fprintf(out, "Generated %d CUJ(s); nothing saved (dry run)\n", len(cujs))
					return nil
				}
				if err := st.BulkSaveCUJs(c, cujs); err != nil {
					return err
				}
				fmt.Fprintf(out, "Saved %d generated CUJ(s)\n", len(cujs))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&topic, "topic", "t", "", "Feature or topic to write journeys for")
	cmd.Flags().IntVarP(&count, "count", "c", analysis.DefaultJourneyCount, "Number of journeys to ask for")
	cmd.Flags().StringVarP(&model, "model", "m", "", "Model to use (defaults to gemini.model)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show the generated CUJs without saving them")
	_ = cmd.MarkFlagRequired("topic")
	return cmd
}

func readCUJFile(path string) ([]store.CUJ, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var entries []struct {
			ID          string `json:"id"`
			Task        string `json:"task"`
			Expectation string `json:"expectation"`
		}
		if err := json.NewDecoder(f).Decode(&entries); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		cujs := make([]store.CUJ, len(entries))
		for i, e := range entries {
			cujs[i] = store.CUJ{ID: e.ID, Task: e.Task, Expectation: e.Expectation}
		}
		return cujs, nil
	case ".csv":
		return readCUJCSV(f)
	default:
		return nil, fmt.Errorf("unsupported CUJ file %s (want .csv or .json)", path)
	}
}

func readCUJCSV(r io.Reader) ([]store.CUJ, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("CUJ file is empty")
		}
		return nil, err
	}
	idx := map[string]int{}
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, col := range []string{"id", "task", "expectation"} {
		if _, ok := idx[col]; !ok {
			return nil, fmt.Errorf("CUJ file is missing the %q column", col)
		}
	}

	var cujs []store.CUJ
	for {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		cujs = append(cujs, store.CUJ{
			ID:          record[idx["id"]],
			Task:        record[idx["task"]],
			Expectation: record[idx["expectation"]],
		})
	}
	return cujs, nil
}
