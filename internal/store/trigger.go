// internal/store/trigger.go
package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

func scanTrigger(row interface{ Scan(...any) error }) (*types.Trigger, error) {
	var t types.Trigger
	var scope sql.NullInt64
	if err := row.Scan(&t.ID, &t.Name, &t.RawText, &t.Pattern, &t.Flags, &scope, &t.Enabled); err != nil {
		return nil, err
	}
	if scope.Valid {
		t.ScopeTargetID = &scope.Int64
	}
	return &t, nil
}

func scopeArg(t *types.Trigger) any {
	if t.ScopeTargetID == nil {
		return nil
	}
	return *t.ScopeTargetID
}

// CreateTrigger inserts a trigger and returns it with the assigned id.
func (s *Store) CreateTrigger(ctx context.Context, t *types.Trigger) (*types.Trigger, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO triggers (name, raw_text, pattern, flags, scope_target_id, enabled)
		VALUES (?, ?, ?, ?, ?, ?)
		RETURNING id, name, raw_text, pattern, flags, scope_target_id, enabled
	`, t.Name, t.RawText, t.Pattern, t.Flags, scopeArg(t), t.Enabled)

	created, err := scanTrigger(row)
	if err != nil {
		return nil, fmt.Errorf("insert trigger: %w", err)
	}
	return created, nil
}

// GetTrigger returns the trigger with the given id, or ErrNotFound.
func (s *Store) GetTrigger(ctx context.Context, id int64) (*types.Trigger, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, raw_text, pattern, flags, scope_target_id, enabled
		FROM triggers WHERE id = ?
	`, id)

	t, err := scanTrigger(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trigger %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query trigger: %w", err)
	}
	return t, nil
}

// ListTriggers returns all triggers, enabled or not.
func (s *Store) ListTriggers(ctx context.Context) ([]*types.Trigger, error) {
	return s.listTriggers(ctx, false)
}

// ListEnabledTriggers returns only the triggers eligible for matching.
func (s *Store) ListEnabledTriggers(ctx context.Context) ([]*types.Trigger, error) {
	return s.listTriggers(ctx, true)
}

func (s *Store) listTriggers(ctx context.Context, enabledOnly bool) ([]*types.Trigger, error) {
	q := `SELECT id, name, raw_text, pattern, flags, scope_target_id, enabled FROM triggers ORDER BY id`
	if enabledOnly {
		q = `SELECT id, name, raw_text, pattern, flags, scope_target_id, enabled FROM triggers WHERE enabled = 1 ORDER BY id`
	}

	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("query triggers: %w", err)
	}
	defer rows.Close()

	var out []*types.Trigger
	for rows.Next() {
		t, err := scanTrigger(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trigger: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// UpdateTrigger overwrites the stored trigger with the given id and returns
// the updated row, or ErrNotFound.
func (s *Store) UpdateTrigger(ctx context.Context, t *types.Trigger) (*types.Trigger, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE triggers
		SET name = ?, raw_text = ?, pattern = ?, flags = ?, scope_target_id = ?, enabled = ?
		WHERE id = ?
		RETURNING id, name, raw_text, pattern, flags, scope_target_id, enabled
	`, t.Name, t.RawText, t.Pattern, t.Flags, scopeArg(t), t.Enabled, t.ID)

	updated, err := scanTrigger(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trigger %d: %w", t.ID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("update trigger: %w", err)
	}
	return updated, nil
}

// DeleteTrigger removes the trigger with the given id, or returns
// ErrNotFound.
func (s *Store) DeleteTrigger(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM triggers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete trigger: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("trigger %d: %w", id, ErrNotFound)
	}
	return nil
}
