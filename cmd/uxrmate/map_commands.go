package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"uxrmate/internal/engine"
	"uxrmate/internal/store"
)

func newMapCommand(ctx *commandContext) *cobra.Command {
	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "Assign videos to CUJs",
	}
	mapCmd.AddCommand(newMapSetCommand(ctx))
	mapCmd.AddCommand(newMapClearCommand(ctx))
	mapCmd.AddCommand(newMapAutoCommand(ctx))
	mapCmd.AddCommand(newMapListCommand(ctx))
	return mapCmd
}

func newMapSetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "set <cuj-id> <video-id>",
		Short: "Pin a CUJ to a specific video",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assetID, err := parseID(args[1])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				cuj, err := st.GetCUJ(c, args[0])
				if err != nil {
					return err
				}
				if cuj == nil {
					return fmt.Errorf("cuj %s not found", args[0])
				}
				asset, err := st.GetAsset(c, assetID)
				if err != nil {
					return err
				}
				if asset == nil {
					return fmt.Errorf("video %d not found", assetID)
				}
				if err := st.SetMapping(c, cuj.ID, asset.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Mapped %s to video %d (%s)\n", cuj.ID, asset.ID, asset.Name)
				if !asset.Ready() {
					fmt.Fprintf(cmd.OutOrStdout(), "Note: video %d is %s; round robin is used until it is ready\n", asset.ID, asset.Status)
				}
				return nil
			})
		},
	}
}

func newMapClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <cuj-id>",
		Short: "Return a CUJ to round-robin assignment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				if err := st.ClearMapping(c, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared mapping for %s\n", args[0])
				return nil
			})
		},
	}
}

func newMapAutoCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auto",
		Short: "Clear every manual mapping",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				mapping, err := st.Mappings(c)
				if err != nil {
					return err
				}
				for cujID := range mapping {
					if err := st.ClearMapping(c, cujID); err != nil {
						return err
					}
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d mapping(s); all CUJs use round robin\n", len(mapping))
				return nil
			})
		},
	}
}

func newMapListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show which video each CUJ will be analyzed against",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				req, err := loadRunInputs(c, st)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if len(req.CUJs) == 0 || len(req.ReadyAssets()) == 0 {
					fmt.Fprintln(out, "Nothing to map: add CUJs and ready videos first.")
					return nil
				}
				rows, err := planRows(req)
				if err != nil {
					return err
				}
				fmt.Fprintln(out, renderTable([]string{"CUJ", "Task", "Video", "Mode"}, rows, nil))
				return nil
			})
		},
	}
}

// loadRunInputs reads CUJs, assets and mappings into a run request.
func loadRunInputs(ctx context.Context, st *store.Store) (engine.Request, error) {
	cujs, err := st.ListCUJs(ctx)
	if err != nil {
		return engine.Request{}, fmt.Errorf("list cujs: %w", err)
	}
	assets, err := st.ListAssets(ctx)
	if err != nil {
		return engine.Request{}, fmt.Errorf("list assets: %w", err)
	}
	mapping, err := st.Mappings(ctx)
	if err != nil {
		return engine.Request{}, fmt.Errorf("load mappings: %w", err)
	}
	return engine.Request{CUJs: cujs, Assets: assets, Mapping: mapping}, nil
}

func planRows(req engine.Request) ([][]string, error) {
	plan, err := req.Plan()
	if err != nil {
		return nil, err
	}
	ready := req.ReadyAssets()
	rows := make([][]string, 0, len(plan))
	for i, a := range plan {
		mode := "round robin"
		if a.Manual {
			mode = "manual"
		}
		asset := ready[a.Index]
		rows = append(rows, []string{
			req.CUJs[i].ID,
			req.CUJs[i].Task,
			strconv.FormatInt(asset.ID, 10) + " " + asset.Name,
			mode,
		})
	}
	return rows, nil
}
