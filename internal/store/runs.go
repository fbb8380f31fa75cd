package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// StartRun records the beginning of an analysis run.
func (s *Store) StartRun(ctx context.Context, runID, model string, startedAt time.Time) error {
	if _, err := s.execWithRetry(ctx,
		"INSERT INTO runs (id, model, started_at) VALUES (?, ?, ?)",
		runID, model, formatTime(startedAt)); err != nil {
		return fmt.Errorf("start run %s: %w", runID, err)
	}
	return nil
}

// CompleteRun stores the final counters of a run.
func (s *Store) CompleteRun(ctx context.Context, rec RunRecord) error {
	completed := rec.CompletedAt
	if completed == nil {
		now := s.now()
		completed = &now
	}
	res, err := s.execWithRetry(ctx, `UPDATE runs SET
            completed_at = ?, successes = ?, failures = ?, skipped = ?, interrupted = ?, total_cost = ?
        WHERE id = ?`,
		nullableTime(completed), rec.Successes, rec.Failures, rec.Skipped, boolToInt(rec.Interrupted), rec.TotalCost, rec.ID)
	if err != nil {
		return fmt.Errorf("complete run %s: %w", rec.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("complete run %s: run not started", rec.ID)
	}
	return nil
}

// ListRuns returns runs newest first. A limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `SELECT id, model, started_at, completed_at, successes, failures, skipped, interrupted, total_cost
FROM runs ORDER BY started_at DESC`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var (
			rec          RunRecord
			startedRaw   string
			completedRaw sql.NullString
			interrupted  int
		)
		if err := rows.Scan(&rec.ID, &rec.Model, &startedRaw, &completedRaw,
			&rec.Successes, &rec.Failures, &rec.Skipped, &interrupted, &rec.TotalCost); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if t, err := parseTimeString(startedRaw); err == nil {
			rec.StartedAt = t
		}
		if completedRaw.Valid {
			if t, err := parseTimeString(completedRaw.String); err == nil {
				rec.CompletedAt = &t
			}
		}
		rec.Interrupted = interrupted != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}
