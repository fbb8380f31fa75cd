package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"uxrmate/internal/config"
	"uxrmate/internal/store"
)

// MustOpenStore opens a store.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *store.Store {
	t.Helper()

	st, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() {
		st.Close()
	})
	return st
}

// AddCUJ saves a CUJ with a generated expectation.
func AddCUJ(t testing.TB, st *store.Store, id, task string) store.CUJ {
	t.Helper()

	c := store.CUJ{ID: id, Task: task, Expectation: "User completes: " + task}
	if err := st.SaveCUJ(context.Background(), c); err != nil {
		t.Fatalf("store.SaveCUJ: %v", err)
	}
	return c
}

// AddAsset writes a small video file under the config's video directory and
// registers it as a ready local asset.
func AddAsset(t testing.TB, st *store.Store, cfg *config.Config, name string, durationSeconds float64) store.Asset {
	t.Helper()

	path := filepath.Join(cfg.Paths.VideoDir, name)
	WriteFile(t, path, 1024)
	a := store.Asset{
		Name:            name,
		FilePath:        path,
		Source:          store.SourceLocal,
		Status:          store.AssetReady,
		DurationSeconds: durationSeconds,
		SizeMB:          0.001,
	}
	id, err := st.SaveAsset(context.Background(), a)
	if err != nil {
		t.Fatalf("store.SaveAsset: %v", err)
	}
	a.ID = id
	return a
}
