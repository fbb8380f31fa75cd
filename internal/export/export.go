package export

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"uxrmate/internal/analysis"
	"uxrmate/internal/review"
	"uxrmate/internal/store"
)

// Format selects the file encoding.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

// ParseFormat accepts "csv" or "json" in any case.
func ParseFormat(value string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(value))); f {
	case FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported export format %q (want csv or json)", value)
	}
}

// Row is the flattened, reader-facing form of one result. Status and
// Friction are the effective values; the model's originals are kept
// alongside.
type Row struct {
	ID               int64                `json:"id"`
	CUJID            string               `json:"cuj_id"`
	Task             string               `json:"task"`
	Expectation      string               `json:"expectation"`
	CUJDeleted       bool                 `json:"cuj_deleted"`
	AssetID          int64                `json:"asset_id"`
	AssetName        string               `json:"asset_name"`
	RunID            string               `json:"run_id,omitempty"`
	Model            string               `json:"model"`
	Status           analysis.Status      `json:"status"`
	FrictionScore    int                  `json:"friction_score"`
	AIStatus         analysis.Status      `json:"ai_status"`
	AIFrictionScore  int                  `json:"ai_friction_score"`
	ConfidenceScore  *int                 `json:"confidence_score,omitempty"`
	NeedsReview      bool                 `json:"needs_review"`
	Observation      string               `json:"observation"`
	Recommendation   string               `json:"recommendation"`
	KeyMoments       []analysis.KeyMoment `json:"key_moments,omitempty"`
	Cost             float64              `json:"cost"`
	AnalyzedAt       time.Time            `json:"analyzed_at"`
	Verified         bool                 `json:"verified"`
	StatusOverride   *analysis.Status     `json:"status_override,omitempty"`
	FrictionOverride *int                 `json:"friction_override,omitempty"`
	ReviewerNotes    string               `json:"reviewer_notes,omitempty"`
	VerifiedAt       *time.Time           `json:"verified_at,omitempty"`
}

// Rows flattens results in the given order.
func Rows(results []store.AnalysisResult) []Row {
	rows := make([]Row, len(results))
	for i, r := range results {
		status, friction := review.Effective(r)
		rows[i] = Row{
			ID:               r.ID,
			CUJID:            r.CUJID,
			Task:             r.CUJTask,
			Expectation:      r.CUJExpectation,
			CUJDeleted:       r.CUJDeleted,
			AssetID:          r.AssetID,
			AssetName:        r.AssetName,
			RunID:            r.RunID,
			Model:            r.Model,
			Status:           status,
			FrictionScore:    friction,
			AIStatus:         r.Status,
			AIFrictionScore:  r.FrictionScore,
			ConfidenceScore:  r.ConfidenceScore,
			NeedsReview:      review.NeedsReview(r.ConfidenceScore),
			Observation:      r.Observation,
			Recommendation:   r.Recommendation,
			KeyMoments:       r.KeyMoments,
			Cost:             r.Cost,
			AnalyzedAt:       r.AnalyzedAt.UTC(),
			Verified:         r.Verification.Verified,
			StatusOverride:   r.Verification.StatusOverride,
			FrictionOverride: r.Verification.FrictionOverride,
			ReviewerNotes:    r.Verification.Notes,
			VerifiedAt:       r.Verification.VerifiedAt,
		}
	}
	return rows
}

var csvHeader = []string{
	"id", "cuj_id", "task", "expectation", "cuj_deleted", "asset_id", "asset_name", "run_id", "model",
	"status", "friction_score", "ai_status", "ai_friction_score", "confidence_score", "needs_review",
	"observation", "recommendation", "key_moments", "cost", "analyzed_at",
	"verified", "status_override", "friction_override", "reviewer_notes", "verified_at",
}

// CSV writes rows with a header line.
func CSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range rows {
		moments, err := keyMomentsCell(r.KeyMoments)
		if err != nil {
			return err
		}
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.CUJID,
			r.Task,
			r.Expectation,
			strconv.FormatBool(r.CUJDeleted),
			strconv.FormatInt(r.AssetID, 10),
			r.AssetName,
			r.RunID,
			r.Model,
			string(r.Status),
			strconv.Itoa(r.FrictionScore),
			string(r.AIStatus),
			strconv.Itoa(r.AIFrictionScore),
			intCell(r.ConfidenceScore),
			strconv.FormatBool(r.NeedsReview),
			r.Observation,
			r.Recommendation,
			moments,
			strconv.FormatFloat(r.Cost, 'f', 6, 64),
			r.AnalyzedAt.Format(time.RFC3339),
			strconv.FormatBool(r.Verified),
			statusCell(r.StatusOverride),
			intCell(r.FrictionOverride),
			r.ReviewerNotes,
			timeCell(r.VerifiedAt),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// JSON writes rows as an indented array.
func JSON(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	return jsonEncoder(w).Encode(rows)
}

func jsonEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc
}

// WriteFile writes rows to dir as analysis_results_YYYYMMDD_HHMMSS.<format>
// and returns the path.
func WriteFile(dir string, format Format, rows []Row, now time.Time) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	name := fmt.Sprintf("analysis_results_%s.%s", now.Format("20060102_150405"), format)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	switch format {
	case FormatCSV:
		err = CSV(f, rows)
	case FormatJSON:
		err = JSON(f, rows)
	default:
		err = fmt.Errorf("unsupported export format %q", format)
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write %s export: %w", format, err)
	}
	return path, nil
}

func keyMomentsCell(moments []analysis.KeyMoment) (string, error) {
	if len(moments) == 0 {
		return "", nil
	}
	data, err := json.Marshal(moments)
	if err != nil {
		return "", fmt.Errorf("encode key moments: %w", err)
	}
	return string(data), nil
}

func intCell(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func statusCell(v *analysis.Status) string {
	if v == nil {
		return ""
	}
	return string(*v)
}

func timeCell(v *time.Time) string {
	if v == nil {
		return ""
	}
	return v.UTC().Format(time.RFC3339)
}
