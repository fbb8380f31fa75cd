package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"uxrmate/internal/config"
	"uxrmate/internal/logging"
	"uxrmate/internal/services"
	"uxrmate/internal/services/drive"
	"uxrmate/internal/store"
)

func newAssetCommand(ctx *commandContext) *cobra.Command {
	assetCmd := &cobra.Command{
		Use:     "asset",
		Aliases: []string{"assets", "video", "videos"},
		Short:   "Manage session videos",
	}
	assetCmd.AddCommand(newAssetAddCommand(ctx))
	assetCmd.AddCommand(newAssetListCommand(ctx))
	assetCmd.AddCommand(newAssetDeleteCommand(ctx))
	assetCmd.AddCommand(newAssetDriveCommand(ctx))
	return assetCmd
}

func newAssetAddCommand(ctx *commandContext) *cobra.Command {
	var name, description string
	var duration float64
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Register a local video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			path, err = filepath.Abs(path)
			if err != nil {
				return err
			}
			if err := checkVideoFormat(cfg, path); err != nil {
				return err
			}
			var resolution string
			if meta, err := ctx.newProber(cfg).Probe(cmd.Context(), path); err != nil {
				if errors.Is(err, services.ErrValidation) {
					return fmt.Errorf("%s: %w", filepath.Base(path), err)
				}
				if !cmd.Flags().Changed("duration") {
					fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not read video metadata (%v); pass --duration for cost estimates\n", err)
				}
			} else {
				resolution = meta.Resolution()
				if !cmd.Flags().Changed("duration") {
					duration = meta.DurationSeconds
				}
			}
			sizeMB, err := validateVideoFile(cfg, path, duration)
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				name = filepath.Base(path)
			}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				id, err := st.SaveAsset(c, store.Asset{
					Name:            name,
					FilePath:        path,
					Source:          store.SourceLocal,
					Status:          store.AssetReady,
					Description:     description,
					DurationSeconds: duration,
					SizeMB:          sizeMB,
					Resolution:      resolution,
					UploadedAt:      time.Now(),
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Registered video %d (%s, %s)\n", id, name, formatDuration(duration))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "Display name (defaults to the file name)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Free-text description")
	cmd.Flags().Float64Var(&duration, "duration", 0, "Video duration in seconds (read from the file when omitted)")
	return cmd
}

func checkVideoFormat(cfg *config.Config, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if !slices.Contains(cfg.Video.Formats, ext) {
		return fmt.Errorf("unsupported video format %q (allowed: %s)", ext, strings.Join(cfg.Video.Formats, ", "))
	}
	return nil
}

// validateVideoFile checks format, size and duration limits and returns the
// size in megabytes.
func validateVideoFile(cfg *config.Config, path string, duration float64) (float64, error) {
	if err := checkVideoFormat(cfg, path); err != nil {
		return 0, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("inspect %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	sizeMB := float64(info.Size()) / (1024 * 1024)
	if sizeMB > cfg.Video.MaxSizeMB {
		return 0, fmt.Errorf("%s is %.0f MB, larger than the %.0f MB limit", filepath.Base(path), sizeMB, cfg.Video.MaxSizeMB)
	}
	if duration < 0 {
		return 0, errors.New("duration must not be negative")
	}
	if duration > cfg.Video.MaxDurationSeconds {
		return 0, fmt.Errorf("duration %.0fs exceeds the %.0fs limit", duration, cfg.Video.MaxDurationSeconds)
	}
	return sizeMB, nil
}

func newAssetListCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered videos",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				assets, err := st.ListAssets(c)
				if err != nil {
					return err
				}
				if asJSON {
					return writeJSON(cmd, assets)
				}
				out := cmd.OutOrStdout()
				if len(assets) == 0 {
					fmt.Fprintln(out, "No videos registered. Add one with `uxrmate asset add`.")
					return nil
				}
				rows := make([][]string, 0, len(assets))
				for _, a := range assets {
					rows = append(rows, []string{
						strconv.FormatInt(a.ID, 10),
						a.Name,
						string(a.Status),
						string(a.Source),
						formatDuration(a.DurationSeconds),
						fmt.Sprintf("%.1f", a.SizeMB),
						a.FilePath,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Name", "Status", "Source", "Duration", "Size MB", "Path"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newAssetDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove a video from the library (the file is left on disk)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				deleted, err := st.DeleteAsset(c, id)
				if err != nil {
					return err
				}
				if !deleted {
					return fmt.Errorf("video %d not found", id)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted video %d\n", id)
				return nil
			})
		},
	}
}

func newAssetDriveCommand(ctx *commandContext) *cobra.Command {
	driveCmd := &cobra.Command{
		Use:   "drive",
		Short: "Import videos from Google Drive",
	}

	var limit int
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List videos available in Drive",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.driveClient(cmd.Context())
			if err != nil {
				return err
			}
			files, err := client.ListVideos(cmd.Context(), limit)
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(files))
			for _, f := range files {
				rows = append(rows, []string{f.ID, f.Name, fmt.Sprintf("%.1f", f.SizeMB()), f.ModifiedTime})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"File ID", "Name", "Size MB", "Modified"}, rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))
			return nil
		},
	}
	listCmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of files to list")

	importCmd := &cobra.Command{
		Use:   "import <file-id>...",
		Short: "Download Drive videos and register them",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.driveClient(cmd.Context())
			if err != nil {
				return err
			}
			sampler := logging.NewProgressSampler(25)
			return ctx.withStore(cmd, func(c context.Context, st *store.Store) error {
				var failed int
				for _, id := range args {
					asset, err := client.Import(c, st, id, func(f float64) {
						if pct, ok := sampler.Sample(id, f); ok {
							fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %3d%%\n", id, pct)
						}
					})
					if err != nil {
						failed++
						fmt.Fprintf(cmd.OutOrStdout(), "Failed to import %s: %v\n", id, err)
						continue
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Imported %s as video %d (%s)\n", id, asset.ID, asset.Name)
				}
				if failed > 0 {
					return fmt.Errorf("%d of %d import(s) failed", failed, len(args))
				}
				return nil
			})
		},
	}

	driveCmd.AddCommand(listCmd, importCmd)
	return driveCmd
}

func (c *commandContext) driveClient(ctx context.Context) (*drive.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if !cfg.Drive.Enabled {
		return nil, errors.New("drive import is disabled; set drive.enabled = true in the configuration")
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return drive.NewClient(ctx, drive.ConfigFrom(cfg), drive.WithLogger(logger))
}

func parseID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", value)
	}
	return id, nil
}

func formatDuration(seconds float64) string {
	if seconds <= 0 {
		return "-"
	}
	return time.Duration(seconds * float64(time.Second)).Round(time.Second).String()
}
