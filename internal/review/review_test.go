package review_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"uxrmate/internal/analysis"
	"uxrmate/internal/review"
	"uxrmate/internal/services"
	"uxrmate/internal/store"
	"uxrmate/internal/testsupport"
)

func intPtr(v int) *int { return &v }

func TestNeedsReview(t *testing.T) {
	tests := []struct {
		name       string
		confidence *int
		want       bool
	}{
		{"absent", nil, false},
		{"one", intPtr(1), true},
		{"two", intPtr(2), true},
		{"three", intPtr(3), false},
		{"five", intPtr(5), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := review.NeedsReview(tt.confidence); got != tt.want {
				t.Fatalf("NeedsReview = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEffectivePrefersOverrides(t *testing.T) {
	pass := analysis.StatusPass
	r := store.AnalysisResult{Status: analysis.StatusFail, FrictionScore: 5}

	status, friction := review.Effective(r)
	if status != analysis.StatusFail || friction != 5 {
		t.Fatalf("without overrides got %s/%d", status, friction)
	}

	r.Verification.StatusOverride = &pass
	status, friction = review.Effective(r)
	if status != analysis.StatusPass || friction != 5 {
		t.Fatalf("status override got %s/%d", status, friction)
	}

	r.Verification.FrictionOverride = intPtr(1)
	status, friction = review.Effective(r)
	if status != analysis.StatusPass || friction != 1 {
		t.Fatalf("both overrides got %s/%d", status, friction)
	}
}

func TestSubmitStoresOnlySetChoices(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	id, err := st.SaveAnalysis(ctx, store.AnalysisResult{CUJID: "c1", AssetID: 1, Model: "m", Status: analysis.StatusFail, FrictionScore: 4})
	if err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	overlay := review.NewOverlay(st)

	view, err := overlay.Submit(ctx, id, review.Submission{
		Status:   review.Keep[analysis.Status](),
		Friction: review.Set(2),
		Notes:    "friction overstated",
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if view.Result.Verification.StatusOverride != nil {
		t.Fatal("Keep must not store a status override")
	}
	if view.EffectiveStatus != analysis.StatusFail || view.EffectiveFriction != 2 || !view.Overridden {
		t.Fatalf("unexpected view: %+v", view)
	}
	if view.Result.Status != analysis.StatusFail || view.Result.FrictionScore != 4 {
		t.Fatalf("model values changed: %+v", view.Result)
	}
}

func TestSubmitKeepRetainsEarlierReviewerOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	id, err := st.SaveAnalysis(ctx, store.AnalysisResult{CUJID: "c1", AssetID: 1, Model: "m", Status: analysis.StatusFail, FrictionScore: 4})
	if err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	overlay := review.NewOverlay(st)

	if _, err := overlay.Submit(ctx, id, review.Submission{
		Status:   review.Set(analysis.StatusPass),
		Friction: review.Keep[int](),
		Notes:    "task was completed",
	}); err != nil {
		t.Fatalf("first Submit failed: %v", err)
	}
	view, err := overlay.Submit(ctx, id, review.Submission{
		Status:   review.Keep[analysis.Status](),
		Friction: review.Set(2),
	})
	if err != nil {
		t.Fatalf("second Submit failed: %v", err)
	}
	if view.EffectiveStatus != analysis.StatusPass || view.EffectiveFriction != 2 {
		t.Fatalf("effective = %s/%d, want Pass/2", view.EffectiveStatus, view.EffectiveFriction)
	}
	if view.Result.Verification.Notes != "task was completed" {
		t.Fatalf("notes = %q", view.Result.Verification.Notes)
	}

	view, err = overlay.Submit(ctx, id, review.Submission{
		Status:   review.Clear[analysis.Status](),
		Friction: review.Keep[int](),
	})
	if err != nil {
		t.Fatalf("clearing Submit failed: %v", err)
	}
	if view.EffectiveStatus != analysis.StatusFail || view.EffectiveFriction != 2 {
		t.Fatalf("after clear effective = %s/%d, want Fail/2", view.EffectiveStatus, view.EffectiveFriction)
	}
}

func TestSubmitModelValueStoresNoOverride(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	id, err := st.SaveAnalysis(ctx, store.AnalysisResult{CUJID: "c1", AssetID: 1, Model: "m", Status: analysis.StatusFail, FrictionScore: 4})
	if err != nil {
		t.Fatalf("SaveAnalysis failed: %v", err)
	}
	view, err := review.NewOverlay(st).Submit(ctx, id, review.Submission{
		Status:   review.Set(analysis.StatusFail),
		Friction: review.Set(4),
	})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	v := view.Result.Verification
	if v.StatusOverride != nil || v.FrictionOverride != nil || view.Overridden {
		t.Fatalf("model values stored as overrides: %+v overridden=%v", v, view.Overridden)
	}
	if !v.Verified {
		t.Fatal("expected result marked verified")
	}
}

func TestSubmitValidation(t *testing.T) {
	overlay := review.NewOverlay(testsupport.MustOpenStore(t, testsupport.NewConfig(t)))
	ctx := context.Background()

	_, err := overlay.Submit(ctx, 1, review.Submission{Status: review.Set(analysis.Status("Great"))})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = overlay.Submit(ctx, 1, review.Submission{Friction: review.Set(0)})
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	_, err = overlay.Submit(ctx, 404, review.Submission{})
	if !errors.Is(err, review.ErrResultNotFound) || !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestQueuePrioritisesFlaggedUnverified(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	st := testsupport.MustOpenStore(t, cfg)
	ctx := context.Background()

	save := func(cujID string, confidence *int) int64 {
		id, err := st.SaveAnalysis(ctx, store.AnalysisResult{
			CUJID: cujID, AssetID: 1, Model: "m", Status: analysis.StatusPass, FrictionScore: 2, ConfidenceScore: confidence,
		})
		if err != nil {
			t.Fatalf("SaveAnalysis failed: %v", err)
		}
		return id
	}
	save("a", intPtr(5))
	save("b", intPtr(1))
	save("c", nil)
	verifiedID := save("d", intPtr(2))
	save("e", intPtr(2))

	overlay := review.NewOverlay(st)
	if _, err := overlay.Submit(ctx, verifiedID, review.Submission{}); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	views, err := overlay.Queue(ctx)
	if err != nil {
		t.Fatalf("Queue failed: %v", err)
	}
	var order []string
	for _, v := range views {
		order = append(order, v.Result.CUJID)
	}
	if diff := cmp.Diff([]string{"b", "e", "a", "c", "d"}, order); diff != "" {
		t.Fatalf("queue order mismatch (-want +got):\n%s", diff)
	}
	if !views[0].Pending() || views[4].Pending() || !views[4].NeedsReview {
		t.Fatalf("unexpected pending flags: %+v", views)
	}
}

func TestChoice(t *testing.T) {
	if review.Keep[int]().IsSet() || review.Keep[int]().IsClear() {
		t.Fatal("Keep must be neither set nor clear")
	}
	if !review.Clear[int]().IsClear() || review.Clear[int]().IsSet() {
		t.Fatal("Clear must only report clear")
	}
	v, ok := review.Set(3).Value()
	if !ok || v != 3 {
		t.Fatalf("Set value = %d, %v", v, ok)
	}
}
