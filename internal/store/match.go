// internal/store/match.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

// CreateMatchRecord appends one record to the match log. The returned copy
// carries the AUTOINCREMENT id, which downstream delivery uses as its
// cursor.
func (s *Store) CreateMatchRecord(ctx context.Context, rec *types.MatchRecord) (*types.MatchRecord, error) {
	now := time.Now()

	var payload any
	if len(rec.RawPayload) > 0 {
		payload = string(rec.RawPayload)
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO match_records
			(target_id, message_id, author_id, author_name, text, matched_trigger_id, matched_text, raw_payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`, nullableID(rec.TargetID), rec.MessageID, rec.AuthorID, rec.AuthorName,
		rec.Text, nullableID(rec.MatchedTriggerID), rec.MatchedText, payload, now.Unix())

	out := *rec
	out.CreatedAt = now
	if err := row.Scan(&out.ID); err != nil {
		return nil, fmt.Errorf("insert match record: %w", err)
	}
	return &out, nil
}

// ListRecentMatchRecords returns up to limit records, newest first. The
// window is ordered by recency, not by id; callers that need cursor order
// sort it themselves.
func (s *Store) ListRecentMatchRecords(ctx context.Context, limit int) ([]*types.MatchRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, target_id, message_id, author_id, author_name, text,
			matched_trigger_id, matched_text, raw_payload, created_at
		FROM match_records
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query match records: %w", err)
	}
	defer rows.Close()

	var out []*types.MatchRecord
	for rows.Next() {
		var rec types.MatchRecord
		var targetID, triggerID sql.NullInt64
		var payload sql.NullString
		var createdAt int64
		if err := rows.Scan(&rec.ID, &targetID, &rec.MessageID, &rec.AuthorID, &rec.AuthorName,
			&rec.Text, &triggerID, &rec.MatchedText, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("scan match record: %w", err)
		}
		if targetID.Valid {
			rec.TargetID = &targetID.Int64
		}
		if triggerID.Valid {
			rec.MatchedTriggerID = &triggerID.Int64
		}
		if payload.Valid {
			rec.RawPayload = []byte(payload.String)
		}
		rec.CreatedAt = time.Unix(createdAt, 0)
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func nullableID(id *int64) any {
	if id == nil {
		return nil
	}
	return *id
}
