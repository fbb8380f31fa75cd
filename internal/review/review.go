package review

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"uxrmate/internal/analysis"
	"uxrmate/internal/services"
	"uxrmate/internal/store"
)

// ReviewThreshold is the highest confidence score that still asks for review.
const ReviewThreshold = 2

// NeedsReview reports whether a result with the given confidence should be
// flagged. Results without a confidence score are not flagged.
func NeedsReview(confidence *int) bool {
	return confidence != nil && *confidence <= ReviewThreshold
}

// Effective returns the status and friction a reader should see: the
// reviewer override when present, otherwise the model's value.
func Effective(r store.AnalysisResult) (analysis.Status, int) {
	status := r.Status
	if o := r.Verification.StatusOverride; o != nil {
		status = *o
	}
	friction := r.FrictionScore
	if o := r.Verification.FrictionOverride; o != nil {
		friction = *o
	}
	return status, friction
}

// Choice is a reviewer decision for one field: keep what is stored, set an
// explicit override, or clear back to the model's value.
type Choice[T any] struct {
	op    store.OverrideOp
	value T
}

// Keep leaves the field as stored, including any earlier override.
func Keep[T any]() Choice[T] { return Choice[T]{} }

// Set overrides the model's value with v. Setting the model's own value
// stores no override.
func Set[T any](v T) Choice[T] { return Choice[T]{op: store.OverrideSet, value: v} }

// Clear drops any override so the model's value shows again.
func Clear[T any]() Choice[T] { return Choice[T]{op: store.OverrideClear} }

// IsSet reports whether the choice carries an override.
func (c Choice[T]) IsSet() bool { return c.op == store.OverrideSet }

// IsClear reports whether the choice reverts to the model's value.
func (c Choice[T]) IsClear() bool { return c.op == store.OverrideClear }

// Value returns the override and whether one was set.
func (c Choice[T]) Value() (T, bool) { return c.value, c.IsSet() }

// Submission is one reviewer verification of a result. Notes replace
// earlier notes when non-empty.
type Submission struct {
	Status   Choice[analysis.Status]
	Friction Choice[int]
	Notes    string
}

func (s Submission) edit() store.VerifyEdit {
	return store.VerifyEdit{
		StatusOp:   s.Status.op,
		Status:     s.Status.value,
		FrictionOp: s.Friction.op,
		Friction:   s.Friction.value,
		Notes:      strings.TrimSpace(s.Notes),
	}
}

// Validate checks override values.
func (s Submission) Validate() error {
	if v, ok := s.Status.Value(); ok && !v.Valid() {
		return services.Wrap(services.ErrValidation, "review", "validate", fmt.Sprintf("invalid status override %q", v), nil)
	}
	if v, ok := s.Friction.Value(); ok && (v < analysis.MinScore || v > analysis.MaxScore) {
		return services.Wrap(services.ErrValidation, "review", "validate", fmt.Sprintf("friction override %d outside 1-5", v), nil)
	}
	return nil
}

// ResultStore is the persistence the overlay needs.
type ResultStore interface {
	GetLatestResults(ctx context.Context) ([]store.AnalysisResult, error)
	VerifyAnalysis(ctx context.Context, id int64, edit store.VerifyEdit) (*store.AnalysisResult, error)
}

// View is a result decorated with its effective values.
type View struct {
	Result            store.AnalysisResult
	EffectiveStatus   analysis.Status
	EffectiveFriction int
	NeedsReview       bool
	Overridden        bool
}

// NewView computes the effective values for r.
func NewView(r store.AnalysisResult) View {
	status, friction := Effective(r)
	return View{
		Result:            r,
		EffectiveStatus:   status,
		EffectiveFriction: friction,
		NeedsReview:       NeedsReview(r.ConfidenceScore),
		Overridden:        r.Verification.StatusOverride != nil || r.Verification.FrictionOverride != nil,
	}
}

// Pending reports whether the view is flagged and not yet verified.
func (v View) Pending() bool {
	return v.NeedsReview && !v.Result.Verification.Verified
}

// Overlay applies reviewer decisions to stored results.
type Overlay struct {
	store ResultStore
}

// NewOverlay returns an overlay backed by st.
func NewOverlay(st ResultStore) *Overlay {
	return &Overlay{store: st}
}

// ErrResultNotFound is returned when submitting against an unknown result.
var ErrResultNotFound = store.ErrResultNotFound

// Submit stores a verification. Kept fields retain what earlier reviewers
// stored; the result is marked verified either way.
func (o *Overlay) Submit(ctx context.Context, id int64, sub Submission) (View, error) {
	if err := sub.Validate(); err != nil {
		return View{}, err
	}
	updated, err := o.store.VerifyAnalysis(ctx, id, sub.edit())
	if err != nil {
		if errors.Is(err, store.ErrResultNotFound) {
			return View{}, services.Wrap(services.ErrNotFound, "review", "submit", fmt.Sprintf("result %d", id), err)
		}
		return View{}, services.Wrap(services.ErrPersistence, "review", "submit", fmt.Sprintf("result %d", id), err)
	}
	return NewView(*updated), nil
}

// Queue returns the latest result per CUJ. Flagged unverified results come
// first, then everything else; each group is ordered by CUJ id.
func (o *Overlay) Queue(ctx context.Context) ([]View, error) {
	results, err := o.store.GetLatestResults(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "review", "queue", "load latest results", err)
	}
	views := make([]View, len(results))
	for i, r := range results {
		views[i] = NewView(r)
	}
	slices.SortStableFunc(views, func(a, b View) int {
		if a.Pending() != b.Pending() {
			if a.Pending() {
				return -1
			}
			return 1
		}
		return strings.Compare(a.Result.CUJID, b.Result.CUJID)
	})
	return views, nil
}
