package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

const cujColumns = "id, task, expectation, created_at, updated_at"

func scanCUJ(scanner rowScanner) (*CUJ, error) {
	var (
		c                  CUJ
		createdRaw, updRaw string
	)
	if err := scanner.Scan(&c.ID, &c.Task, &c.Expectation, &createdRaw, &updRaw); err != nil {
		return nil, err
	}
	if t, err := parseTimeString(createdRaw); err == nil {
		c.CreatedAt = t
	}
	if t, err := parseTimeString(updRaw); err == nil {
		c.UpdatedAt = t
	}
	return &c, nil
}

func validateCUJ(c CUJ) error {
	if strings.TrimSpace(c.ID) == "" {
		return errors.New("cuj id is required")
	}
	if strings.TrimSpace(c.Task) == "" {
		return fmt.Errorf("cuj %s: task is required", c.ID)
	}
	if strings.TrimSpace(c.Expectation) == "" {
		return fmt.Errorf("cuj %s: expectation is required", c.ID)
	}
	return nil
}

const upsertCUJ = `INSERT INTO cujs (id, task, expectation, created_at, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    task = excluded.task,
    expectation = excluded.expectation,
    updated_at = excluded.updated_at,
    deleted_at = NULL`

// SaveCUJ inserts or updates a CUJ. Saving a previously deleted id restores it.
func (s *Store) SaveCUJ(ctx context.Context, c CUJ) error {
	if err := validateCUJ(c); err != nil {
		return err
	}
	now := s.timestamp()
	if _, err := s.execWithRetry(ctx, upsertCUJ,
		strings.TrimSpace(c.ID), strings.TrimSpace(c.Task), strings.TrimSpace(c.Expectation), now, now,
	); err != nil {
		return fmt.Errorf("save cuj %s: %w", c.ID, err)
	}
	return nil
}

// BulkSaveCUJs upserts all CUJs in one transaction. Nothing is written if any
// CUJ is invalid.
func (s *Store) BulkSaveCUJs(ctx context.Context, cujs []CUJ) error {
	for _, c := range cujs {
		if err := validateCUJ(c); err != nil {
			return err
		}
	}
	now := s.timestamp()
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		for _, c := range cujs {
			if _, err := tx.ExecContext(ctx, upsertCUJ,
				strings.TrimSpace(c.ID), strings.TrimSpace(c.Task), strings.TrimSpace(c.Expectation), now, now,
			); err != nil {
				return fmt.Errorf("save cuj %s: %w", c.ID, err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("bulk save cujs: %w", err)
	}
	return nil
}

// GetCUJ returns the CUJ with id, or nil when it does not exist or was deleted.
func (s *Store) GetCUJ(ctx context.Context, id string) (*CUJ, error) {
	row := s.db.QueryRowContext(ensureContext(ctx),
		"SELECT "+cujColumns+" FROM cujs WHERE id = ? AND deleted_at IS NULL", id)
	c, err := scanCUJ(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get cuj %s: %w", id, err)
	}
	return c, nil
}

// ListCUJs returns active CUJs in creation order.
func (s *Store) ListCUJs(ctx context.Context) ([]CUJ, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx),
		"SELECT "+cujColumns+" FROM cujs WHERE deleted_at IS NULL ORDER BY created_at, rowid")
	if err != nil {
		return nil, fmt.Errorf("list cujs: %w", err)
	}
	defer rows.Close()

	var out []CUJ
	for rows.Next() {
		c, err := scanCUJ(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cuj: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// CUJIDs returns every CUJ id ever saved, deleted ones included.
func (s *Store) CUJIDs(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM cujs")
	if err != nil {
		return nil, fmt.Errorf("list cuj ids: %w", err)
	}
	defer rows.Close()
	ids := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan cuj id: %w", err)
		}
		ids[id] = true
	}
	return ids, rows.Err()
}

// DeleteCUJ soft-deletes a CUJ and drops its manual mapping. Its results
// are kept. Returns false when no active CUJ matched.
func (s *Store) DeleteCUJ(ctx context.Context, id string) (bool, error) {
	var deleted bool
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		now := s.timestamp()
		res, err := tx.ExecContext(ctx,
			"UPDATE cujs SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL",
			now, now, id)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		deleted = n > 0
		_, err = tx.ExecContext(ctx, "DELETE FROM cuj_asset_mappings WHERE cuj_id = ?", id)
		return err
	})
	if err != nil {
		return false, fmt.Errorf("delete cuj %s: %w", id, err)
	}
	return deleted, nil
}
