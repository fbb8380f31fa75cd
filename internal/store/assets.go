package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const assetColumns = "id, name, file_path, source, status, description, duration_seconds, size_mb, resolution, drive_file_id, drive_web_link, uploaded_at"

func scanAsset(scanner rowScanner) (*Asset, error) {
	var (
		a           Asset
		filePath    sql.NullString
		source      string
		status      string
		description sql.NullString
		duration    sql.NullFloat64
		size        sql.NullFloat64
		resolution  sql.NullString
		driveID     sql.NullString
		driveLink   sql.NullString
		uploadedRaw string
	)
	if err := scanner.Scan(&a.ID, &a.Name, &filePath, &source, &status, &description,
		&duration, &size, &resolution, &driveID, &driveLink, &uploadedRaw); err != nil {
		return nil, err
	}
	a.FilePath = filePath.String
	a.Source = AssetSource(source)
	a.Status = AssetStatus(status)
	a.Description = description.String
	a.DurationSeconds = duration.Float64
	a.SizeMB = size.Float64
	a.Resolution = resolution.String
	a.DriveFileID = driveID.String
	a.DriveWebLink = driveLink.String
	if t, err := parseTimeString(uploadedRaw); err == nil {
		a.UploadedAt = t
	}
	return &a, nil
}

// SaveAsset inserts a new asset when a.ID is zero, otherwise updates it.
// It returns the asset id.
func (s *Store) SaveAsset(ctx context.Context, a Asset) (int64, error) {
	if strings.TrimSpace(a.Name) == "" {
		return 0, errors.New("asset name is required")
	}
	if a.Source == "" {
		a.Source = SourceLocal
	}
	if a.Status == "" {
		a.Status = AssetReady
	}

	if a.ID != 0 {
		res, err := s.execWithRetry(ctx, `UPDATE assets SET
            name = ?, file_path = ?, source = ?, status = ?, description = ?,
            duration_seconds = ?, size_mb = ?, resolution = ?, drive_file_id = ?, drive_web_link = ?
        WHERE id = ?`,
			a.Name, nullableString(a.FilePath), string(a.Source), string(a.Status), nullableString(a.Description),
			a.DurationSeconds, a.SizeMB, nullableString(a.Resolution), nullableString(a.DriveFileID), nullableString(a.DriveWebLink),
			a.ID)
		if err != nil {
			return 0, fmt.Errorf("update asset %d: %w", a.ID, err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return 0, fmt.Errorf("update asset %d: not found", a.ID)
		}
		return a.ID, nil
	}

	uploaded := s.timestamp()
	if !a.UploadedAt.IsZero() {
		uploaded = formatTime(a.UploadedAt)
	}
	res, err := s.execWithRetry(ctx, `INSERT INTO assets (
            name, file_path, source, status, description, duration_seconds, size_mb,
            resolution, drive_file_id, drive_web_link, uploaded_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Name, nullableString(a.FilePath), string(a.Source), string(a.Status), nullableString(a.Description),
		a.DurationSeconds, a.SizeMB, nullableString(a.Resolution), nullableString(a.DriveFileID), nullableString(a.DriveWebLink),
		uploaded)
	if err != nil {
		return 0, fmt.Errorf("insert asset: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// GetAsset returns the asset with id, or nil when absent.
func (s *Store) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+assetColumns+" FROM assets WHERE id = ?", id)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get asset %d: %w", id, err)
	}
	return a, nil
}

// FindAssetByDriveID returns the asset imported from the given Drive file, or nil.
func (s *Store) FindAssetByDriveID(ctx context.Context, driveFileID string) (*Asset, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), "SELECT "+assetColumns+" FROM assets WHERE drive_file_id = ?", driveFileID)
	a, err := scanAsset(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find asset by drive id: %w", err)
	}
	return a, nil
}

// ListAssets returns all assets in upload order.
func (s *Store) ListAssets(ctx context.Context) ([]Asset, error) {
	return s.queryAssets(ctx, "SELECT "+assetColumns+" FROM assets ORDER BY uploaded_at, id")
}

// ReadyAssets returns assets that can be assigned, in upload order.
func (s *Store) ReadyAssets(ctx context.Context) ([]Asset, error) {
	return s.queryAssets(ctx,
		"SELECT "+assetColumns+" FROM assets WHERE status = ? AND file_path IS NOT NULL AND file_path != '' ORDER BY uploaded_at, id",
		string(AssetReady))
}

func (s *Store) queryAssets(ctx context.Context, query string, args ...any) ([]Asset, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()

	var out []Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// DeleteAsset removes an asset and any manual mappings pointing at it.
// Results that used the asset are kept.
func (s *Store) DeleteAsset(ctx context.Context, id int64) (bool, error) {
	var deleted bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM assets WHERE id = ?", id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		_, err = tx.ExecContext(ctx, "DELETE FROM cuj_asset_mappings WHERE asset_id = ?", id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete asset %d: %w", id, err)
	}
	return deleted, nil
}
