package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"uxrmate/internal/analysis"
)

const resultSelect = `SELECT ar.id, ar.cuj_id, ar.asset_id, ar.run_id, ar.model, ar.status,
    ar.friction_score, ar.confidence_score, ar.observation, ar.recommendation,
    ar.key_moments_json, ar.cost, ar.raw_response, ar.analyzed_at, ar.verified,
    ar.status_override, ar.friction_override, ar.reviewer_notes, ar.verified_at,
    c.task, c.expectation, c.deleted_at, a.name
FROM analysis_results ar
LEFT JOIN cujs c ON c.id = ar.cuj_id
LEFT JOIN assets a ON a.id = ar.asset_id`

type rowScanner interface{ Scan(dest ...any) error }

func scanResult(scanner rowScanner) (*AnalysisResult, error) {
	var (
		r                AnalysisResult
		runID            sql.NullString
		status           string
		confidence       sql.NullInt64
		observation      sql.NullString
		recommendation   sql.NullString
		keyMoments       sql.NullString
		rawResponse      sql.NullString
		analyzedRaw      string
		verified         int
		statusOverride   sql.NullString
		frictionOverride sql.NullInt64
		notes            sql.NullString
		verifiedAtRaw    sql.NullString
		task             sql.NullString
		expectation      sql.NullString
		deletedAt        sql.NullString
		assetName        sql.NullString
	)
	if err := scanner.Scan(
		&r.ID, &r.CUJID, &r.AssetID, &runID, &r.Model, &status,
		&r.FrictionScore, &confidence, &observation, &recommendation,
		&keyMoments, &r.Cost, &rawResponse, &analyzedRaw, &verified,
		&statusOverride, &frictionOverride, &notes, &verifiedAtRaw,
		&task, &expectation, &deletedAt, &assetName,
	); err != nil {
		return nil, err
	}

	r.RunID = runID.String
	r.Status = analysis.Status(status)
	r.ConfidenceScore = nullableIntPtr(confidence)
	r.Observation = observation.String
	r.Recommendation = recommendation.String
	r.RawResponse = rawResponse.String
	if keyMoments.Valid && keyMoments.String != "" {
		if err := json.Unmarshal([]byte(keyMoments.String), &r.KeyMoments); err != nil {
			return nil, err
		}
	}
	if analyzed, err := parseTimeString(analyzedRaw); err == nil {
		r.AnalyzedAt = analyzed
	}

	r.Verification.Verified = verified != 0
	if statusOverride.Valid {
		s := analysis.Status(statusOverride.String)
		r.Verification.StatusOverride = &s
	}
	r.Verification.FrictionOverride = nullableIntPtr(frictionOverride)
	r.Verification.Notes = notes.String
	if verifiedAtRaw.Valid {
		if at, err := parseTimeString(verifiedAtRaw.String); err == nil {
			r.Verification.VerifiedAt = &at
		}
	}

	r.CUJTask = task.String
	r.CUJExpectation = expectation.String
	r.CUJDeleted = deletedAt.Valid || !task.Valid
	r.AssetName = assetName.String
	return &r, nil
}

func nullableIntPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableInt(value *int) any {
	if value == nil {
		return nil
	}
	return *value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return formatTime(*value)
}

func formatTime(value time.Time) string {
	return value.UTC().Format(timeLayout)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}
