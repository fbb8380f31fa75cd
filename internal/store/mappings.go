package store

import (
	"context"
	"fmt"

	"uxrmate/internal/assign"
)

// SetMapping pins a CUJ to an asset for future runs.
func (s *Store) SetMapping(ctx context.Context, cujID string, assetID int64) error {
	if _, err := s.execWithRetry(ctx, `INSERT INTO cuj_asset_mappings (cuj_id, asset_id, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(cuj_id) DO UPDATE SET asset_id = excluded.asset_id, updated_at = excluded.updated_at`,
		cujID, assetID, s.timestamp()); err != nil {
		return fmt.Errorf("set mapping %s: %w", cujID, err)
	}
	return nil
}

// ClearMapping returns a CUJ to automatic assignment.
func (s *Store) ClearMapping(ctx context.Context, cujID string) error {
	if _, err := s.execWithRetry(ctx, "DELETE FROM cuj_asset_mappings WHERE cuj_id = ?", cujID); err != nil {
		return fmt.Errorf("clear mapping %s: %w", cujID, err)
	}
	return nil
}

// Mappings loads all manual mappings.
func (s *Store) Mappings(ctx context.Context) (assign.Mapping, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), "SELECT cuj_id, asset_id FROM cuj_asset_mappings")
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	out := assign.Mapping{}
	for rows.Next() {
		var (
			cujID   string
			assetID int64
		)
		if err := rows.Scan(&cujID, &assetID); err != nil {
			return nil, fmt.Errorf("scan mapping: %w", err)
		}
		out.Set(cujID, assetID)
	}
	return out, rows.Err()
}
