package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"opsdash/internal/domain"
)

// layoutVersion is written with every row; see migrate.
const layoutVersion = 1

// SQLiteLayoutStore persists dashboard layouts keyed by (role, session scope).
type SQLiteLayoutStore struct {
	db *DB
}

// NewSQLiteLayoutStore creates a new SQLiteLayoutStore.
func NewSQLiteLayoutStore(db *DB) *SQLiteLayoutStore {
	return &SQLiteLayoutStore{db: db}
}

// LoadLayout returns the stored layout, or nil when none exists.
func (s *SQLiteLayoutStore) LoadLayout(ctx context.Context, role, scope string) (*domain.Layout, error) {
	var raw string
	err := s.db.Conn().QueryRowContext(ctx,
		`SELECT layout_json FROM dashboard_layouts WHERE role = ? AND session_scope = ?`,
		role, scope,
	).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load layout %s/%s: %w", role, scope, err)
	}
	return decodeLayout(raw)
}

// SaveLayout upserts l. Invalid layouts are rejected before touching the table.
func (s *SQLiteLayoutStore) SaveLayout(ctx context.Context, role, scope string, l domain.Layout) error {
	raw, err := encodeLayout(l)
	if err != nil {
		return err
	}
	_, err = s.db.Conn().ExecContext(ctx,
		`INSERT INTO dashboard_layouts (role, session_scope, layout_json, layout_version, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(role, session_scope) DO UPDATE SET
		   layout_json = excluded.layout_json,
		   layout_version = excluded.layout_version,
		   updated_at = excluded.updated_at`,
		role, scope, raw, layoutVersion, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save layout %s/%s: %w", role, scope, err)
	}
	return nil
}

// DeleteLayout removes a stored layout; deleting a missing one is not an error.
func (s *SQLiteLayoutStore) DeleteLayout(ctx context.Context, role, scope string) error {
	_, err := s.db.Conn().ExecContext(ctx,
		`DELETE FROM dashboard_layouts WHERE role = ? AND session_scope = ?`, role, scope)
	return err
}

// PruneBefore drops layouts untouched since cutoff and returns how many went.
func (s *SQLiteLayoutStore) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.Conn().ExecContext(ctx,
		`DELETE FROM dashboard_layouts WHERE updated_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func encodeLayout(l domain.Layout) (string, error) {
	if err := l.Validate(); err != nil {
		return "", err
	}
	b, err := json.Marshal(l)
	if err != nil {
		return "", fmt.Errorf("encode layout: %w", err)
	}
	return string(b), nil
}

// decodeLayout parses a stored row. Validation is left to the caller so a
// stale row can be replaced instead of failing every load.
func decodeLayout(raw string) (*domain.Layout, error) {
	var l domain.Layout
	if err := json.Unmarshal([]byte(raw), &l); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return &l, nil
}
