package preflight

import (
	"context"

	"uxrmate/internal/config"
	"uxrmate/internal/media/ffprobe"
	"uxrmate/internal/store"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	Detail string
	// Optional checks are reported but never block a run.
	Optional bool
}

// Failed returns the required results that did not pass.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Optional {
			out = append(out, r)
		}
	}
	return out
}

// RunAll executes all applicable preflight checks for the given config and
// the currently ready assets.
func RunAll(ctx context.Context, cfg *config.Config, assets []store.Asset) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Data directory", cfg.Paths.DataDir))
	results = append(results, CheckDirectoryAccess("Video directory", cfg.Paths.VideoDir))
	results = append(results, CheckDirectoryAccess("Export directory", cfg.Paths.ExportDir))
	if cfg.Drive.Enabled {
		results = append(results, CheckDirectoryAccess("Drive cache directory", cfg.Paths.DriveCacheDir))
	}

	results = append(results, CheckCredential("Gemini API key", cfg.Gemini.APIKey))
	results = append(results, CheckProbe(ffprobe.New(cfg.Video.ProbeBinary)))
	results = append(results, CheckAssetFiles(ctx, assets)...)
	return results
}
