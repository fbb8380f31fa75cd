package preflight

import (
	"context"
	"fmt"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"

	"uxrmate/internal/engine"
	"uxrmate/internal/media/ffprobe"
	"uxrmate/internal/store"
)

const assetCheckConcurrency = 8

// CheckCredential verifies that an API key is configured and has the
// expected shape. It never contacts the service.
func CheckCredential(name, key string) Result {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return Result{Name: name, Detail: "missing (set gemini.api_key or GEMINI_API_KEY)"}
	case !engine.ValidAPIKeyShape(key):
		return Result{Name: name, Detail: "format looks invalid (expected a key starting with \"AIza\")"}
	}
	return Result{Name: name, Passed: true, Detail: "configured (" + maskKey(key) + ")"}
}

// CheckProbe reports whether the metadata probe binary is on PATH. Without it
// video durations must be entered by hand, so the check is optional.
func CheckProbe(p *ffprobe.Prober) Result {
	result := Result{Name: "Video probe", Optional: true}
	path, err := p.Locate()
	if err != nil {
		result.Detail = fmt.Sprintf("%s not found; pass --duration when adding videos", p.Binary())
		return result
	}
	result.Passed = true
	result.Detail = path
	return result
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckAssetFiles stats the file of every ready asset. Results keep the
// order of assets; assets that are not ready are skipped.
func CheckAssetFiles(ctx context.Context, assets []store.Asset) []Result {
	ready := make([]store.Asset, 0, len(assets))
	for _, a := range assets {
		if a.Ready() {
			ready = append(ready, a)
		}
	}
	if len(ready) == 0 {
		return []Result{{Name: "Videos", Detail: "no ready videos available"}}
	}

	results := make([]Result, len(ready))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(assetCheckConcurrency)
	for i, a := range ready {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = Result{Name: "Video " + a.Name, Detail: "not checked: " + err.Error()}
				return nil
			}
			results[i] = checkAssetFile(a)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func checkAssetFile(a store.Asset) Result {
	name := "Video " + a.Name
	info, err := os.Stat(a.FilePath)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: file not found)", a.FilePath)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", a.FilePath, err)}
	}
	if info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is a directory)", a.FilePath)}
	}
	if err := unix.Access(a.FilePath, unix.R_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: not readable: %v)", a.FilePath, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%.1f MB)", a.FilePath, float64(info.Size())/(1024*1024))}
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
