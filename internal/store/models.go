package store

import (
	"errors"
	"time"

	"uxrmate/internal/analysis"
)

// ErrResultNotFound is returned when an analysis result id does not exist.
var ErrResultNotFound = errors.New("analysis result not found")

// CUJ is a Critical User Journey definition.
type CUJ struct {
	ID          string
	Task        string
	Expectation string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AssetStatus tracks whether an asset can be analyzed.
type AssetStatus string

const (
	AssetReady       AssetStatus = "ready"
	AssetDownloading AssetStatus = "downloading"
	AssetError       AssetStatus = "error"
)

// AssetSource records where an asset came from.
type AssetSource string

const (
	SourceLocal AssetSource = "local"
	SourceDrive AssetSource = "drive"
)

// Asset is a session video registered for analysis.
type Asset struct {
	ID              int64
	Name            string
	FilePath        string
	Source          AssetSource
	Status          AssetStatus
	Description     string
	DurationSeconds float64
	SizeMB          float64
	Resolution      string
	DriveFileID     string
	DriveWebLink    string
	UploadedAt      time.Time
}

// Ready reports whether the asset can be assigned to a CUJ.
func (a Asset) Ready() bool {
	return a.Status == AssetReady && a.FilePath != ""
}

// Verification holds the reviewer overlay for a result.
type Verification struct {
	Verified         bool
	StatusOverride   *analysis.Status
	FrictionOverride *int
	Notes            string
	VerifiedAt       *time.Time
}

// AnalysisResult is one stored analysis of a CUJ against an asset.
type AnalysisResult struct {
	ID              int64
	CUJID           string
	AssetID         int64
	RunID           string
	Model           string
	Status          analysis.Status
	FrictionScore   int
	ConfidenceScore *int
	Observation     string
	Recommendation  string
	KeyMoments      []analysis.KeyMoment
	Cost            float64
	RawResponse     string
	AnalyzedAt      time.Time
	Verification    Verification

	// Populated on reads.
	CUJTask        string
	CUJExpectation string
	CUJDeleted     bool
	AssetName      string
}

// ResultFilter selects results for deletion. Exactly one field must be set.
type ResultFilter struct {
	CUJID   string
	AssetID int64
}

// RunRecord summarizes one analysis run.
type RunRecord struct {
	ID          string
	Model       string
	StartedAt   time.Time
	CompletedAt *time.Time
	Successes   int
	Failures    int
	Skipped     int
	Interrupted bool
	TotalCost   float64
}

// Statistics aggregates the stored data.
type Statistics struct {
	TotalCUJs     int
	TotalAssets   int
	TotalAnalyses int
	TotalCost     float64
	AvgFriction   float64
	StatusCounts  map[analysis.Status]int
}
