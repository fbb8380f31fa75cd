package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"uxrmate/internal/analysis"
)

// SaveAnalysis appends a result and returns its id. Verification fields on r
// are ignored; new results always start unverified.
func (s *Store) SaveAnalysis(ctx context.Context, r AnalysisResult) (int64, error) {
	if strings.TrimSpace(r.CUJID) == "" {
		return 0, errors.New("save analysis: cuj id is required")
	}
	if !r.Status.Valid() {
		return 0, fmt.Errorf("save analysis: invalid status %q", r.Status)
	}
	var keyMoments any
	if len(r.KeyMoments) > 0 {
		data, err := json.Marshal(r.KeyMoments)
		if err != nil {
			return 0, fmt.Errorf("marshal key moments: %w", err)
		}
		keyMoments = string(data)
	}
	analyzed := s.timestamp()
	if !r.AnalyzedAt.IsZero() {
		analyzed = formatTime(r.AnalyzedAt)
	}

	res, err := s.execWithRetry(ctx, `INSERT INTO analysis_results (
            cuj_id, asset_id, run_id, model, status, friction_score, confidence_score,
            observation, recommendation, key_moments_json, cost, raw_response, analyzed_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.CUJID, r.AssetID, nullableString(r.RunID), r.Model, string(r.Status), r.FrictionScore,
		nullableInt(r.ConfidenceScore), nullableString(r.Observation), nullableString(r.Recommendation),
		keyMoments, r.Cost, nullableString(r.RawResponse), analyzed)
	if err != nil {
		return 0, fmt.Errorf("insert analysis: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetAnalysis returns the result with id, or nil when absent.
func (s *Store) GetAnalysis(ctx context.Context, id int64) (*AnalysisResult, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), resultSelect+" WHERE ar.id = ?", id)
	r, err := scanResult(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis %d: %w", id, err)
	}
	return r, nil
}

// ListResults returns the full history newest first. A limit <= 0 returns
// every row.
func (s *Store) ListResults(ctx context.Context, limit int) ([]AnalysisResult, error) {
	query := resultSelect + " ORDER BY ar.id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	return s.queryResults(ctx, query, args...)
}

// RunResults returns the results written by one run in insertion order.
func (s *Store) RunResults(ctx context.Context, runID string) ([]AnalysisResult, error) {
	return s.queryResults(ctx, resultSelect+" WHERE ar.run_id = ? ORDER BY ar.id", runID)
}

// GetLatestResults returns the newest result for every CUJ that has one,
// ordered by CUJ id.
func (s *Store) GetLatestResults(ctx context.Context) ([]AnalysisResult, error) {
	return s.queryResults(ctx, resultSelect+`
WHERE ar.id IN (SELECT MAX(id) FROM analysis_results GROUP BY cuj_id)
ORDER BY ar.cuj_id`)
}

func (s *Store) queryResults(ctx context.Context, query string, args ...any) ([]AnalysisResult, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []AnalysisResult
	for rows.Next() {
		r, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// OverrideOp says what a verification does to one override column.
type OverrideOp uint8

const (
	// OverrideKeep leaves the column as it is.
	OverrideKeep OverrideOp = iota
	// OverrideSet stores a value, or clears the column when the value equals
	// the model's own.
	OverrideSet
	// OverrideClear reverts the field to the model's value.
	OverrideClear
)

// VerifyEdit is one reviewer decision. Notes replace earlier notes only when
// non-empty.
type VerifyEdit struct {
	StatusOp   OverrideOp
	Status     analysis.Status
	FrictionOp OverrideOp
	Friction   int
	Notes      string
}

func (e VerifyEdit) validate() error {
	if e.StatusOp == OverrideSet && !e.Status.Valid() {
		return fmt.Errorf("invalid status override %q", e.Status)
	}
	if e.FrictionOp == OverrideSet && (e.Friction < analysis.MinScore || e.Friction > analysis.MaxScore) {
		return fmt.Errorf("friction override %d out of range", e.Friction)
	}
	return nil
}

// VerifyAnalysis records a reviewer decision on one result. The current row
// is read and merged with the edit in one transaction, so a field the
// reviewer kept retains whatever an earlier reviewer stored.
func (s *Store) VerifyAnalysis(ctx context.Context, id int64, edit VerifyEdit) (*AnalysisResult, error) {
	if err := edit.validate(); err != nil {
		return nil, fmt.Errorf("verify analysis %d: %w", id, err)
	}

	err := s.inTx(ctx, func(tx *sql.Tx) error {
		var (
			status           string
			friction         int
			statusOverride   sql.NullString
			frictionOverride sql.NullInt64
			notes            sql.NullString
		)
		err := tx.QueryRowContext(ctx, `SELECT status, friction_score, status_override, friction_override, reviewer_notes
            FROM analysis_results WHERE id = ?`, id).
			Scan(&status, &friction, &statusOverride, &frictionOverride, &notes)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return ErrResultNotFound
			}
			return err
		}

		switch edit.StatusOp {
		case OverrideSet:
			statusOverride = sql.NullString{String: string(edit.Status), Valid: string(edit.Status) != status}
		case OverrideClear:
			statusOverride = sql.NullString{}
		}
		switch edit.FrictionOp {
		case OverrideSet:
			frictionOverride = sql.NullInt64{Int64: int64(edit.Friction), Valid: edit.Friction != friction}
		case OverrideClear:
			frictionOverride = sql.NullInt64{}
		}
		if n := strings.TrimSpace(edit.Notes); n != "" {
			notes = sql.NullString{String: n, Valid: true}
		}

		_, err = tx.ExecContext(ctx, `UPDATE analysis_results SET
            verified = 1, status_override = ?, friction_override = ?, reviewer_notes = ?, verified_at = ?
        WHERE id = ?`,
			statusOverride, frictionOverride, notes, s.timestamp(), id)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("verify analysis %d: %w", id, err)
	}
	return s.GetAnalysis(ctx, id)
}

// DeleteResults removes results for a CUJ or an asset and reports how many
// rows were deleted.
func (s *Store) DeleteResults(ctx context.Context, filter ResultFilter) (int64, error) {
	var (
		query string
		arg   any
	)
	switch {
	case filter.CUJID != "" && filter.AssetID != 0:
		return 0, errors.New("delete results: set either cuj id or asset id, not both")
	case filter.CUJID != "":
		query, arg = "DELETE FROM analysis_results WHERE cuj_id = ?", filter.CUJID
	case filter.AssetID != 0:
		query, arg = "DELETE FROM analysis_results WHERE asset_id = ?", filter.AssetID
	default:
		return 0, errors.New("delete results: filter is empty")
	}
	res, err := s.execWithRetry(ctx, query, arg)
	if err != nil {
		return 0, fmt.Errorf("delete results: %w", err)
	}
	return res.RowsAffected()
}
