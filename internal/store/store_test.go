package store_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"uxrmate/internal/analysis"
	"uxrmate/internal/assign"
	"uxrmate/internal/store"
	"uxrmate/internal/testsupport"
)

func intPtr(v int) *int { return &v }

func saveResult(t *testing.T, st *store.Store, cujID string, assetID int64, status analysis.Status, friction int) int64 {
	t.Helper()
	id, err := st.SaveAnalysis(context.Background(), store.AnalysisResult{
		CUJID:         cujID,
		AssetID:       assetID,
		RunID:         "run-1",
		Model:         "gemini-2.5-flash-lite",
		Status:        status,
		FrictionScore: friction,
		Cost:          0.01,
	})
	if err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	return id
}

func TestOpenCreatesSchemaAndReopens(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	testsupport.AddCUJ(t, st, "c1", "Sign up")
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened, err := store.Open(cfg)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer reopened.Close()
	cujs, err := reopened.ListCUJs(context.Background())
	if err != nil {
		t.Fatalf("ListCUJs failed: %v", err)
	}
	if len(cujs) != 1 || cujs[0].ID != "c1" {
		t.Fatalf("unexpected cujs after reopen: %+v", cujs)
	}
}

func TestCUJUpsertOrderingAndSoftDelete(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	if err := st.BulkSaveCUJs(ctx, []store.CUJ{
		{ID: "b", Task: "Second", Expectation: "done"},
		{ID: "a", Task: "First", Expectation: "done"},
	}); err != nil {
		t.Fatalf("BulkSaveCUJs failed: %v", err)
	}
	if err := st.SaveCUJ(ctx, store.CUJ{ID: "b", Task: "Second (edited)", Expectation: "done"}); err != nil {
		t.Fatalf("SaveCUJ failed: %v", err)
	}

	cujs, err := st.ListCUJs(ctx)
	if err != nil {
		t.Fatalf("ListCUJs failed: %v", err)
	}
	var ids []string
	for _, c := range cujs {
		ids = append(ids, c.ID)
	}
	if diff := cmp.Diff([]string{"b", "a"}, ids); diff != "" {
		t.Fatalf("creation order mismatch (-want +got):\n%s", diff)
	}
	if cujs[0].Task != "Second (edited)" {
		t.Fatalf("expected upsert to update task, got %q", cujs[0].Task)
	}

	asset := testsupport.AddAsset(t, st, cfg, "session.mp4", 60)
	saveResult(t, st, "a", asset.ID, analysis.StatusPass, 1)
	if err := st.SetMapping(ctx, "a", asset.ID); err != nil {
		t.Fatalf("SetMapping failed: %v", err)
	}

	deleted, err := st.DeleteCUJ(ctx, "a")
	if err != nil || !deleted {
		t.Fatalf("DeleteCUJ = %v, %v", deleted, err)
	}
	if again, _ := st.DeleteCUJ(ctx, "a"); again {
		t.Fatal("expected second delete to report nothing deleted")
	}
	if c, _ := st.GetCUJ(ctx, "a"); c != nil {
		t.Fatalf("expected deleted cuj to be hidden, got %+v", c)
	}

	latest, err := st.GetLatestResults(ctx)
	if err != nil {
		t.Fatalf("GetLatestResults failed: %v", err)
	}
	if len(latest) != 1 || !latest[0].CUJDeleted || latest[0].CUJTask != "First" {
		t.Fatalf("expected orphaned result to keep task and be flagged, got %+v", latest)
	}
	mappings, err := st.Mappings(ctx)
	if err != nil {
		t.Fatalf("Mappings failed: %v", err)
	}
	if len(mappings) != 0 {
		t.Fatalf("expected mapping removed with cuj, got %v", mappings)
	}

	if err := st.SaveCUJ(ctx, store.CUJ{ID: "a", Task: "First", Expectation: "done"}); err != nil {
		t.Fatalf("SaveCUJ restore failed: %v", err)
	}
	if c, _ := st.GetCUJ(ctx, "a"); c == nil {
		t.Fatal("expected saving a deleted id to restore it")
	}
}

func TestSaveCUJValidation(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))
	ctx := context.Background()
	for _, c := range []store.CUJ{
		{Task: "t", Expectation: "e"},
		{ID: "x", Expectation: "e"},
		{ID: "x", Task: "t"},
	} {
		if err := st.SaveCUJ(ctx, c); err == nil {
			t.Fatalf("expected validation error for %+v", c)
		}
	}
	if err := st.BulkSaveCUJs(ctx, []store.CUJ{{ID: "ok", Task: "t", Expectation: "e"}, {ID: "bad"}}); err == nil {
		t.Fatal("expected bulk save to reject invalid cuj")
	}
	cujs, _ := st.ListCUJs(ctx)
	if len(cujs) != 0 {
		t.Fatalf("expected nothing written, got %+v", cujs)
	}
}

func TestReadyAssetsFiltersStatus(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	ready := testsupport.AddAsset(t, st, cfg, "ready.mp4", 30)
	if _, err := st.SaveAsset(ctx, store.Asset{Name: "pending.mp4", Source: store.SourceDrive, Status: store.AssetDownloading, DriveFileID: "drive-1"}); err != nil {
		t.Fatalf("SaveAsset failed: %v", err)
	}

	all, err := st.ListAssets(ctx)
	if err != nil || len(all) != 2 {
		t.Fatalf("ListAssets = %d, %v", len(all), err)
	}
	got, err := st.ReadyAssets(ctx)
	if err != nil {
		t.Fatalf("ReadyAssets failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != ready.ID || !got[0].Ready() {
		t.Fatalf("unexpected ready assets: %+v", got)
	}

	byDrive, err := st.FindAssetByDriveID(ctx, "drive-1")
	if err != nil || byDrive == nil {
		t.Fatalf("FindAssetByDriveID = %+v, %v", byDrive, err)
	}
	byDrive.Status = store.AssetReady
	byDrive.FilePath = "/tmp/pending.mp4"
	if _, err := st.SaveAsset(ctx, *byDrive); err != nil {
		t.Fatalf("SaveAsset update failed: %v", err)
	}
	got, _ = st.ReadyAssets(ctx)
	if len(got) != 2 {
		t.Fatalf("expected updated asset to become ready, got %+v", got)
	}
}

func TestDeleteAssetDropsMappings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	a := testsupport.AddAsset(t, st, cfg, "a.mp4", 10)
	b := testsupport.AddAsset(t, st, cfg, "b.mp4", 10)
	if err := st.SetMapping(ctx, "c1", a.ID); err != nil {
		t.Fatalf("SetMapping failed: %v", err)
	}
	if err := st.SetMapping(ctx, "c2", b.ID); err != nil {
		t.Fatalf("SetMapping failed: %v", err)
	}
	if err := st.SetMapping(ctx, "c2", a.ID); err != nil {
		t.Fatalf("SetMapping overwrite failed: %v", err)
	}
	if _, err := st.DeleteAsset(ctx, a.ID); err != nil {
		t.Fatalf("DeleteAsset failed: %v", err)
	}
	mappings, err := st.Mappings(ctx)
	if err != nil {
		t.Fatalf("Mappings failed: %v", err)
	}
	if diff := cmp.Diff(assign.Mapping{}, mappings); diff != "" {
		t.Fatalf("mappings mismatch (-want +got):\n%s", diff)
	}

	if err := st.SetMapping(ctx, "c3", b.ID); err != nil {
		t.Fatalf("SetMapping failed: %v", err)
	}
	if err := st.ClearMapping(ctx, "c3"); err != nil {
		t.Fatalf("ClearMapping failed: %v", err)
	}
	mappings, _ = st.Mappings(ctx)
	if len(mappings) != 0 {
		t.Fatalf("expected cleared mapping, got %v", mappings)
	}
}

func TestLatestResultIsHighestID(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	testsupport.AddCUJ(t, st, "c1", "Checkout")
	testsupport.AddCUJ(t, st, "c2", "Search")
	asset := testsupport.AddAsset(t, st, cfg, "a.mp4", 120)

	saveResult(t, st, "c1", asset.ID, analysis.StatusFail, 5)
	newest := saveResult(t, st, "c1", asset.ID, analysis.StatusPass, 1)
	other := saveResult(t, st, "c2", asset.ID, analysis.StatusPartial, 3)

	latest, err := st.GetLatestResults(ctx)
	if err != nil {
		t.Fatalf("GetLatestResults failed: %v", err)
	}
	var ids []int64
	for _, r := range latest {
		ids = append(ids, r.ID)
	}
	if diff := cmp.Diff([]int64{newest, other}, ids); diff != "" {
		t.Fatalf("latest ids mismatch (-want +got):\n%s", diff)
	}
	if latest[0].AssetName != "a.mp4" || latest[0].CUJTask != "Checkout" {
		t.Fatalf("expected joined fields, got %+v", latest[0])
	}

	history, err := st.ListResults(ctx, 0)
	if err != nil || len(history) != 3 {
		t.Fatalf("ListResults = %d, %v", len(history), err)
	}
	if history[0].ID != other {
		t.Fatalf("expected newest first, got %d", history[0].ID)
	}
	limited, _ := st.ListResults(ctx, 2)
	if len(limited) != 2 {
		t.Fatalf("expected limit to apply, got %d", len(limited))
	}
	byRun, _ := st.RunResults(ctx, "run-1")
	if len(byRun) != 3 || byRun[0].ID > byRun[2].ID {
		t.Fatalf("unexpected run results: %+v", byRun)
	}
}

func TestSaveAnalysisRoundTripsOptionalFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	moments := []analysis.KeyMoment{{Timestamp: "00:42", Description: "Hesitated on the pay button"}}
	id, err := st.SaveAnalysis(ctx, store.AnalysisResult{
		CUJID:           "c1",
		AssetID:         7,
		Model:           "gemini-2.5-flash",
		Status:          analysis.StatusPartial,
		FrictionScore:   3,
		ConfidenceScore: intPtr(2),
		KeyMoments:      moments,
		RawResponse:     `{"status":"Partial"}`,
	})
	if err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	got, err := st.GetAnalysis(ctx, id)
	if err != nil || got == nil {
		t.Fatalf("GetAnalysis = %+v, %v", got, err)
	}
	if got.ConfidenceScore == nil || *got.ConfidenceScore != 2 {
		t.Fatalf("confidence not stored: %+v", got.ConfidenceScore)
	}
	if diff := cmp.Diff(moments, got.KeyMoments); diff != "" {
		t.Fatalf("key moments mismatch (-want +got):\n%s", diff)
	}
	if got.Verification.Verified || got.AnalyzedAt.IsZero() {
		t.Fatalf("unexpected defaults: %+v", got)
	}
	if !got.CUJDeleted {
		t.Fatal("expected result without a cuj row to be flagged orphaned")
	}

	if _, err := st.SaveAnalysis(ctx, store.AnalysisResult{CUJID: "c1", Status: "Maybe"}); err == nil {
		t.Fatal("expected invalid status to be rejected")
	}
	missing, err := st.GetAnalysis(ctx, 999)
	if err != nil || missing != nil {
		t.Fatalf("expected nil for missing id, got %+v, %v", missing, err)
	}
}

func TestVerifyAnalysisOnlyTouchesVerification(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	id := saveResult(t, st, "c1", 1, analysis.StatusFail, 4)
	got, err := st.VerifyAnalysis(ctx, id, store.VerifyEdit{
		StatusOp:   store.OverrideSet,
		Status:     analysis.StatusPass,
		FrictionOp: store.OverrideSet,
		Friction:   1,
		Notes:      "  reviewed  ",
	})
	if err != nil {
		t.Fatalf("VerifyAnalysis failed: %v", err)
	}
	if got.Status != analysis.StatusFail || got.FrictionScore != 4 {
		t.Fatalf("ai fields changed: %+v", got)
	}
	v := got.Verification
	if !v.Verified || v.VerifiedAt == nil || v.Notes != "reviewed" {
		t.Fatalf("unexpected verification: %+v", v)
	}
	if v.StatusOverride == nil || *v.StatusOverride != analysis.StatusPass || v.FrictionOverride == nil || *v.FrictionOverride != 1 {
		t.Fatalf("overrides not stored: %+v", v)
	}

	got, err = st.VerifyAnalysis(ctx, id, store.VerifyEdit{StatusOp: store.OverrideClear, FrictionOp: store.OverrideClear})
	if err != nil {
		t.Fatalf("VerifyAnalysis clear failed: %v", err)
	}
	if got.Verification.StatusOverride != nil || got.Verification.FrictionOverride != nil || !got.Verification.Verified {
		t.Fatalf("expected overrides cleared but still verified: %+v", got.Verification)
	}
	if got.Verification.Notes != "reviewed" {
		t.Fatalf("empty notes should keep earlier notes, got %q", got.Verification.Notes)
	}

	if _, err := st.VerifyAnalysis(ctx, 12345, store.VerifyEdit{}); !errors.Is(err, store.ErrResultNotFound) {
		t.Fatalf("expected ErrResultNotFound, got %v", err)
	}
	if _, err := st.VerifyAnalysis(ctx, id, store.VerifyEdit{FrictionOp: store.OverrideSet, Friction: 6}); err == nil {
		t.Fatal("expected out of range friction override to fail")
	}
}

func TestVerifyAnalysisKeepRetainsEarlierOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	id := saveResult(t, st, "c1", 1, analysis.StatusFail, 4)
	if _, err := st.VerifyAnalysis(ctx, id, store.VerifyEdit{StatusOp: store.OverrideSet, Status: analysis.StatusPass}); err != nil {
		t.Fatalf("first VerifyAnalysis failed: %v", err)
	}
	got, err := st.VerifyAnalysis(ctx, id, store.VerifyEdit{FrictionOp: store.OverrideSet, Friction: 2})
	if err != nil {
		t.Fatalf("second VerifyAnalysis failed: %v", err)
	}
	v := got.Verification
	if v.StatusOverride == nil || *v.StatusOverride != analysis.StatusPass {
		t.Fatalf("status override lost: %v", v.StatusOverride)
	}
	if v.FrictionOverride == nil || *v.FrictionOverride != 2 {
		t.Fatalf("friction override = %v, want 2", v.FrictionOverride)
	}
}

func TestVerifyAnalysisModelValueIsNotAnOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	id := saveResult(t, st, "c1", 1, analysis.StatusFail, 4)
	if _, err := st.VerifyAnalysis(ctx, id, store.VerifyEdit{
		StatusOp:   store.OverrideSet,
		Status:     analysis.StatusPartial,
		FrictionOp: store.OverrideSet,
		Friction:   3,
	}); err != nil {
		t.Fatalf("VerifyAnalysis failed: %v", err)
	}
	got, err := st.VerifyAnalysis(ctx, id, store.VerifyEdit{
		StatusOp:   store.OverrideSet,
		Status:     analysis.StatusFail,
		FrictionOp: store.OverrideSet,
		Friction:   4,
	})
	if err != nil {
		t.Fatalf("VerifyAnalysis failed: %v", err)
	}
	if got.Verification.StatusOverride != nil || got.Verification.FrictionOverride != nil {
		t.Fatalf("model values stored as overrides: %+v", got.Verification)
	}
}

func TestDeleteResults(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	saveResult(t, st, "c1", 1, analysis.StatusPass, 1)
	saveResult(t, st, "c1", 2, analysis.StatusPass, 1)
	saveResult(t, st, "c2", 2, analysis.StatusPass, 1)

	n, err := st.DeleteResults(ctx, store.ResultFilter{CUJID: "c1"})
	if err != nil || n != 2 {
		t.Fatalf("DeleteResults by cuj = %d, %v", n, err)
	}
	n, err = st.DeleteResults(ctx, store.ResultFilter{AssetID: 2})
	if err != nil || n != 1 {
		t.Fatalf("DeleteResults by asset = %d, %v", n, err)
	}
	if _, err := st.DeleteResults(ctx, store.ResultFilter{}); err == nil {
		t.Fatal("expected empty filter to fail")
	}
}

func TestGetStatistics(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	empty, err := st.GetStatistics(ctx)
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if empty.TotalAnalyses != 0 || empty.TotalCost != 0 || empty.AvgFriction != 0 {
		t.Fatalf("unexpected empty stats: %+v", empty)
	}

	testsupport.AddCUJ(t, st, "c1", "One")
	testsupport.AddCUJ(t, st, "c2", "Two")
	if _, err := st.DeleteCUJ(ctx, "c2"); err != nil {
		t.Fatalf("DeleteCUJ failed: %v", err)
	}
	asset := testsupport.AddAsset(t, st, cfg, "a.mp4", 10)
	saveResult(t, st, "c1", asset.ID, analysis.StatusPass, 1)
	saveResult(t, st, "c1", asset.ID, analysis.StatusFail, 5)
	saveResult(t, st, "c2", asset.ID, analysis.StatusFail, 3)

	stats, err := st.GetStatistics(ctx)
	if err != nil {
		t.Fatalf("GetStatistics failed: %v", err)
	}
	if stats.TotalCUJs != 1 || stats.TotalAssets != 1 || stats.TotalAnalyses != 3 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.AvgFriction != 3 {
		t.Fatalf("avg friction = %v, want 3", stats.AvgFriction)
	}
	if diff := cmp.Diff(map[analysis.Status]int{analysis.StatusPass: 1, analysis.StatusFail: 2}, stats.StatusCounts); diff != "" {
		t.Fatalf("status counts mismatch (-want +got):\n%s", diff)
	}
}

func TestRunsAndSettings(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	runs, _ := st.ListRuns(ctx, 0)
	if len(runs) != 0 {
		t.Fatalf("expected no runs, got %+v", runs)
	}
	if err := st.CompleteRun(ctx, store.RunRecord{ID: "missing"}); err == nil {
		t.Fatal("expected completing an unknown run to fail")
	}

	started := time.Date(2025, 3, 14, 9, 26, 53, 589793000, time.UTC)
	if err := st.StartRun(ctx, "run-a", "gemini-2.5-flash-lite", started); err != nil {
		t.Fatalf("StartRun failed: %v", err)
	}
	if err := st.CompleteRun(ctx, store.RunRecord{ID: "run-a", Successes: 2, Failures: 1, Skipped: 1, Interrupted: true, TotalCost: 0.5}); err != nil {
		t.Fatalf("CompleteRun failed: %v", err)
	}
	runs, err := st.ListRuns(ctx, 5)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListRuns = %+v, %v", runs, err)
	}
	r := runs[0]
	if r.Successes != 2 || r.Failures != 1 || r.Skipped != 1 || !r.Interrupted || r.TotalCost != 0.5 || r.CompletedAt == nil {
		t.Fatalf("unexpected run record: %+v", r)
	}
	if !r.StartedAt.Equal(started) {
		t.Fatalf("started_at = %v, want %v", r.StartedAt, started)
	}

	if _, ok, _ := st.GetSetting(ctx, store.SettingLastModel); ok {
		t.Fatal("expected missing setting")
	}
	if err := st.SaveSetting(ctx, store.SettingLastModel, "gemini-1.5-pro"); err != nil {
		t.Fatalf("SaveSetting failed: %v", err)
	}
	if err := st.SaveSetting(ctx, store.SettingLastModel, "gemini-2.5-flash"); err != nil {
		t.Fatalf("SaveSetting overwrite failed: %v", err)
	}
	value, ok, err := st.GetSetting(ctx, store.SettingLastModel)
	if err != nil || !ok || value != "gemini-2.5-flash" {
		t.Fatalf("GetSetting = %q, %v, %v", value, ok, err)
	}
}

func TestRunLockIsExclusive(t *testing.T) {
	st := testsupport.MustOpenStore(t, testsupport.NewConfig(t))

	lock, err := st.AcquireRunLock()
	if err != nil {
		t.Fatalf("AcquireRunLock failed: %v", err)
	}
	if _, err := st.AcquireRunLock(); !errors.Is(err, store.ErrRunInProgress) {
		t.Fatalf("expected ErrRunInProgress, got %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	again, err := st.AcquireRunLock()
	if err != nil {
		t.Fatalf("re-acquire failed: %v", err)
	}
	_ = again.Release()
}

func TestOpenRejectsNewerSchema(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	if err := st.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	db, err := sql.Open("sqlite", st.Path())
	if err != nil {
		t.Fatalf("open raw db: %v", err)
	}
	if _, err := db.Exec("PRAGMA user_version = 99"); err != nil {
		t.Fatalf("set user_version: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("close raw db: %v", err)
	}

	_, err = store.Open(cfg)
	if !errors.Is(err, store.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
