// Package scanner is the match engine: it evaluates inbound chat messages
// against the compiled trigger snapshot and appends a record to the match
// log for every hit.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/trigger"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

// TargetUpserter registers a message source in the target registry.
type TargetUpserter interface {
	UpsertTarget(ctx context.Context, externalID int64, handle, title string, kind types.TargetKind) (*types.Target, error)
}

// MatchAppender appends one record to the match log.
type MatchAppender interface {
	CreateMatchRecord(ctx context.Context, rec *types.MatchRecord) (*types.MatchRecord, error)
}

// Scanner processes one message at a time; the ingestion adapter calls
// Process inline from its update loop, so no two invocations run
// concurrently.
type Scanner struct {
	targets TargetUpserter
	matches MatchAppender
	cache   *trigger.Cache
	self    []types.SelfIdentity
}

// New creates a Scanner. The self identities are the system's own
// operating identities; messages they author are discarded unmatched.
func New(targets TargetUpserter, matches MatchAppender, cache *trigger.Cache, self ...types.SelfIdentity) *Scanner {
	return &Scanner{targets: targets, matches: matches, cache: cache, self: self}
}

// AddSelf registers an additional self identity (e.g. the bot account
// resolved at connect time). Call before the update loop starts.
func (s *Scanner) AddSelf(id types.SelfIdentity) {
	s.self = append(s.self, id)
}

// Process runs the matching algorithm for one inbound message: resolve the
// target, discard the system's own messages, scan the message body against
// every trigger in the current snapshot, and persist one match record per
// hit. A failed record insert is logged and skipped; it never aborts the
// remaining matches.
func (s *Scanner) Process(ctx context.Context, msg *types.InboundMessage) error {
	var target *types.Target
	if msg.ExternalID != 0 {
		t, err := s.targets.UpsertTarget(ctx, msg.ExternalID, msg.Handle, msg.Title, msg.Kind)
		if err != nil {
			// Recoverable: matching proceeds with a nil target.
			slog.Warn("target upsert failed", "external_id", msg.ExternalID, "error", err)
		} else {
			target = t
		}
	}

	if types.IsSelf(s.self, msg.AuthorID, msg.AuthorName) {
		slog.Debug("discarding own message", "author_id", msg.AuthorID, "author_name", msg.AuthorName)
		return nil
	}

	snap, err := s.cache.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("trigger snapshot: %w", err)
	}

	matched := 0
	for _, t := range snap {
		if t.ScopeTargetID != nil && (target == nil || target.ID != *t.ScopeTargetID) {
			continue
		}
		for _, hit := range t.FindAll(msg.Text) {
			triggerID := t.ID
			rec := &types.MatchRecord{
				MessageID:        msg.MessageID,
				AuthorID:         msg.AuthorID,
				AuthorName:       msg.AuthorName,
				Text:             msg.Text,
				MatchedTriggerID: &triggerID,
				MatchedText:      hit,
				RawPayload:       msg.RawPayload,
			}
			if target != nil {
				rec.TargetID = &target.ID
			}
			if _, err := s.matches.CreateMatchRecord(ctx, rec); err != nil {
				slog.Error("persist match record failed",
					"trigger_id", t.ID, "message_id", msg.MessageID, "error", err)
				continue
			}
			matched++
		}
	}

	slog.Info("message processed",
		"source", sourceLabel(msg), "author", msg.AuthorName, "matches", matched)
	return nil
}

func sourceLabel(msg *types.InboundMessage) string {
	if msg.Title != "" {
		return msg.Title
	}
	if msg.Handle != "" {
		return msg.Handle
	}
	return strconv.FormatInt(msg.ExternalID, 10)
}
