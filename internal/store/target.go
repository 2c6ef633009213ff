// internal/store/target.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

func scanTarget(row interface{ Scan(...any) error }) (*types.Target, error) {
	var t types.Target
	if err := row.Scan(&t.ID, &t.ExternalID, &t.Handle, &t.Title, &t.Kind); err != nil {
		return nil, err
	}
	return &t, nil
}

// UpsertTarget inserts a target for externalID or merges into the existing
// row. Empty handle/title/kind leave the stored values untouched, so a
// caller that only knows part of the identity never wipes what an earlier
// caller stored. The UNIQUE constraint on external_id makes concurrent
// upserts collapse onto one row.
func (s *Store) UpsertTarget(ctx context.Context, externalID int64, handle, title string, kind types.TargetKind) (*types.Target, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO targets (external_id, handle, title, kind)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(external_id) DO UPDATE SET
			handle = CASE WHEN excluded.handle != '' THEN excluded.handle ELSE targets.handle END,
			title  = CASE WHEN excluded.title  != '' THEN excluded.title  ELSE targets.title  END,
			kind   = CASE WHEN excluded.kind   != '' THEN excluded.kind   ELSE targets.kind   END
		RETURNING id, external_id, handle, title, kind
	`, externalID, handle, title, string(kind))

	t, err := scanTarget(row)
	if err != nil {
		return nil, fmt.Errorf("upsert target %d: %w", externalID, err)
	}
	return t, nil
}

// GetTargetByID returns the target with the given internal id, or nil when
// no such target exists.
func (s *Store) GetTargetByID(ctx context.Context, id int64) (*types.Target, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, handle, title, kind FROM targets WHERE id = ?
	`, id)

	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query target: %w", err)
	}
	return t, nil
}

// GetTargetByExternalID returns the target with the given external identity,
// or nil when no such target exists.
func (s *Store) GetTargetByExternalID(ctx context.Context, externalID int64) (*types.Target, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, external_id, handle, title, kind FROM targets WHERE external_id = ?
	`, externalID)

	t, err := scanTarget(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query target: %w", err)
	}
	return t, nil
}

// ListTargets returns all registered targets.
func (s *Store) ListTargets(ctx context.Context) ([]*types.Target, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, external_id, handle, title, kind FROM targets ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query targets: %w", err)
	}
	defer rows.Close()

	var out []*types.Target
	for rows.Next() {
		t, err := scanTarget(rows)
		if err != nil {
			return nil, fmt.Errorf("scan target: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
