package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Setting keys used by the CLI.
const (
	SettingLastModel = "last_model"
	SettingLastRunID = "last_run_id"
)

// SaveSetting upserts a key/value setting.
func (s *Store) SaveSetting(ctx context.Context, key, value string) error {
	if _, err := s.execWithRetry(ctx, `INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, s.timestamp()); err != nil {
		return fmt.Errorf("save setting %s: %w", key, err)
	}
	return nil
}

// GetSetting returns the stored value and whether it exists.
func (s *Store) GetSetting(ctx context.Context, key string) (string, bool, error) {
	var value sql.NullString
	err := s.db.QueryRowContext(ensureContext(ctx), "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return value.String, true, nil
}
