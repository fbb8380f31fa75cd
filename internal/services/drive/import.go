package drive

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"uxrmate/internal/logging"
	"uxrmate/internal/services"
	"uxrmate/internal/store"
)

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// AssetStore is the subset of the store the importer writes to.
type AssetStore interface {
	FindAssetByDriveID(ctx context.Context, driveFileID string) (*store.Asset, error)
	SaveAsset(ctx context.Context, a store.Asset) (int64, error)
}

// ProgressFunc receives download progress in [0,1].
type ProgressFunc func(fraction float64)

// Import downloads a Drive file into the cache and registers it as a ready
// asset. A file that was already imported and is still on disk is returned
// without downloading again.
func (c *Client) Import(ctx context.Context, st AssetStore, fileID string, progress ProgressFunc) (store.Asset, error) {
	fileID = strings.TrimSpace(fileID)
	if fileID == "" {
		return store.Asset{}, services.Wrap(services.ErrValidation, "drive", "import", "file id is required", nil)
	}

	meta, err := c.Metadata(ctx, fileID)
	if err != nil {
		return store.Asset{}, err
	}
	if err := c.checkLimits(meta); err != nil {
		return store.Asset{}, err
	}

	existing, err := st.FindAssetByDriveID(ctx, fileID)
	if err != nil {
		return store.Asset{}, fmt.Errorf("find asset: %w", err)
	}
	if existing != nil && existing.Ready() {
		if _, statErr := os.Stat(existing.FilePath); statErr == nil {
			return *existing, nil
		}
	}

	asset := store.Asset{
		Name:            meta.Name,
		FilePath:        filepath.Join(c.cfg.CacheDir, cacheName(meta)),
		Source:          store.SourceDrive,
		Status:          store.AssetDownloading,
		DurationSeconds: meta.DurationSeconds,
		SizeMB:          meta.SizeMB(),
		Resolution:      meta.Resolution(),
		DriveFileID:     meta.ID,
		DriveWebLink:    meta.WebViewLink,
		UploadedAt:      time.Now(),
	}
	if existing != nil {
		asset.ID = existing.ID
		asset.Description = existing.Description
	}
	if asset.ID, err = st.SaveAsset(ctx, asset); err != nil {
		return store.Asset{}, fmt.Errorf("save asset: %w", err)
	}

	logger := c.logger.With(logging.Int64(logging.FieldAssetID, asset.ID))
	logger.Info("drive download started",
		logging.String("file_id", meta.ID),
		logging.String("name", meta.Name),
		logging.Float64("size_mb", meta.SizeMB()),
	)
	if err := c.download(ctx, meta, asset.FilePath, progress); err != nil {
		asset.Status = store.AssetError
		if _, saveErr := st.SaveAsset(context.WithoutCancel(ctx), asset); saveErr != nil {
			logger.Warn("failed to mark asset as errored", logging.Error(saveErr))
		}
		logger.Error("drive download failed", logging.Error(err))
		return asset, err
	}

	asset.Status = store.AssetReady
	if _, err := st.SaveAsset(ctx, asset); err != nil {
		return asset, fmt.Errorf("save asset: %w", err)
	}
	logger.Info("drive download completed", logging.String("path", asset.FilePath))
	return asset, nil
}

func (c *Client) checkLimits(meta File) error {
	if c.cfg.MaxSizeMB > 0 && meta.SizeMB() > c.cfg.MaxSizeMB {
		return services.Wrap(services.ErrValidation, "drive", "import",
			fmt.Sprintf("%s is %.0f MB, larger than the %.0f MB limit", meta.Name, meta.SizeMB(), c.cfg.MaxSizeMB), nil)
	}
	if c.cfg.MaxDurationSeconds > 0 && meta.DurationSeconds > c.cfg.MaxDurationSeconds {
		return services.Wrap(services.ErrValidation, "drive", "import",
			fmt.Sprintf("%s runs %.0fs, longer than the %.0fs limit", meta.Name, meta.DurationSeconds, c.cfg.MaxDurationSeconds), nil)
	}
	return nil
}

// download streams the file into a temp file next to dest and renames it
// into place once complete. Each retry restarts the transfer.
func (c *Client) download(ctx context.Context, meta File, dest string, progress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}
	return c.retrier.Do(ctx, func(ctx context.Context) error {
		resp, err := c.svc.Files.Get(meta.ID).Context(ctx).Download()
		if err != nil {
			return translateError("download", err)
		}
		defer resp.Body.Close()

		tmp, err := os.CreateTemp(filepath.Dir(dest), ".download-*")
		if err != nil {
			return fmt.Errorf("create temp file: %w", err)
		}
		tmpPath := tmp.Name()
		defer os.Remove(tmpPath)

		total := meta.SizeBytes
		if total <= 0 {
			total = resp.ContentLength
		}
		w := &progressWriter{w: tmp, total: total, report: progress}
		if _, err := io.Copy(w, resp.Body); err != nil {
			tmp.Close()
			return services.Wrap(services.ErrTransient, "drive", "download", "transfer interrupted", err)
		}
		if err := tmp.Close(); err != nil {
			return fmt.Errorf("close temp file: %w", err)
		}
		if err := os.Rename(tmpPath, dest); err != nil {
			return fmt.Errorf("move download into place: %w", err)
		}
		if progress != nil {
			progress(1)
		}
		return nil
	})
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	report  ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	if p.report != nil && p.total > 0 {
		p.report(min(float64(p.written)/float64(p.total), 1))
	}
	return n, err
}

func cacheName(meta File) string {
	name := unsafeNameChars.ReplaceAllString(meta.Name, "_")
	if name == "" {
		name = "video"
	}
	return meta.ID + "_" + name
}

