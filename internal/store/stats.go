package store

import (
	"context"
	"database/sql"
	"fmt"

	"uxrmate/internal/analysis"
)

// GetStatistics aggregates counts, spend, and status distribution across the
// full result history. Deleted CUJs are not counted.
func (s *Store) GetStatistics(ctx context.Context) (Statistics, error) {
	ctx = ensureContext(ctx)
	stats := Statistics{StatusCounts: map[analysis.Status]int{}}

	var (
		totalCost   sql.NullFloat64
		avgFriction sql.NullFloat64
	)
	row := s.db.QueryRowContext(ctx, `SELECT
    (SELECT COUNT(*) FROM cujs WHERE deleted_at IS NULL),
    (SELECT COUNT(*) FROM assets),
    (SELECT COUNT(*) FROM analysis_results),
    (SELECT SUM(cost) FROM analysis_results),
    (SELECT AVG(friction_score) FROM analysis_results)`)
	if err := row.Scan(&stats.TotalCUJs, &stats.TotalAssets, &stats.TotalAnalyses, &totalCost, &avgFriction); err != nil {
		return Statistics{}, fmt.Errorf("read statistics: %w", err)
	}
	stats.TotalCost = totalCost.Float64
	stats.AvgFriction = avgFriction.Float64

	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(*) FROM analysis_results GROUP BY status")
	if err != nil {
		return Statistics{}, fmt.Errorf("read status counts: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Statistics{}, fmt.Errorf("scan status count: %w", err)
		}
		stats.StatusCounts[analysis.Status(status)] = count
	}
	return stats, rows.Err()
}
