// internal/types/models.go
package types

import (
	"encoding/json"
	"time"
)

// TargetKind categorizes a monitored message source. It is set explicitly
// by the ingestion boundary; downstream code never infers it.
type TargetKind string

const (
	TargetKindUser       TargetKind = "user"
	TargetKindGroup      TargetKind = "group"
	TargetKindSupergroup TargetKind = "supergroup"
	TargetKindChannel    TargetKind = "channel"
	TargetKindUnknown    TargetKind = "unknown"
)

// Trigger flag bits. Case-insensitive matching is forced at compile time
// regardless of FlagIgnoreCase; the bit exists so stored flags round-trip.
const (
	FlagIgnoreCase int64 = 1 << 0
	FlagMultiline  int64 = 1 << 1
	FlagDotAll     int64 = 1 << 2
)

// Trigger is a named pattern rule with optional scoping to one target.
type Trigger struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	RawText       string `json:"raw_text"`
	Pattern       string `json:"pattern"`
	Flags         int64  `json:"flags"`
	ScopeTargetID *int64 `json:"scope_target_id,omitempty"`
	Enabled       bool   `json:"enabled"`
}

// Target identifies a monitored message source by its stable external
// (chat/channel) identity.
type Target struct {
	ID         int64      `json:"id"`
	ExternalID int64      `json:"external_id"`
	Handle     string     `json:"handle,omitempty"`
	Title      string     `json:"title,omitempty"`
	Kind       TargetKind `json:"kind,omitempty"`
}

// MatchRecord is one immutable entry in the append-only match log. ID is
// assigned by the store at insert time and is the delivery cursor: ordering
// by ID is ordering by creation.
type MatchRecord struct {
	ID               int64           `json:"id"`
	TargetID         *int64          `json:"target_id"`
	MessageID        int64           `json:"message_id"`
	AuthorID         int64           `json:"author_id"`
	AuthorName       string          `json:"author_name"`
	Text             string          `json:"text"`
	MatchedTriggerID *int64          `json:"matched_trigger_id"`
	MatchedText      string          `json:"matched_text"`
	RawPayload       json.RawMessage `json:"raw_payload,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// InboundMessage is one message event from a chat source, as handed to the
// match engine by the ingestion adapter. ExternalID is zero when the source
// has no stable identity.
type InboundMessage struct {
	ExternalID int64
	Handle     string
	Title      string
	Kind       TargetKind
	MessageID  int64
	AuthorID   int64
	AuthorName string
	Text       string
	RawPayload json.RawMessage
}

// SelfIdentity is an operating identity of the system itself. Messages
// authored by a self identity are never matched or delivered, which keeps
// the pipeline from triggering on its own notifications.
type SelfIdentity struct {
	ID   int64
	Name string
}

// Matches reports whether the given author is this identity, by id or by
// reserved name.
func (s SelfIdentity) Matches(authorID int64, authorName string) bool {
	if s.ID != 0 && authorID == s.ID {
		return true
	}
	if s.Name != "" && authorName == s.Name {
		return true
	}
	return false
}

// IsSelf reports whether the author matches any of the given identities.
func IsSelf(identities []SelfIdentity, authorID int64, authorName string) bool {
	for _, id := range identities {
		if id.Matches(authorID, authorName) {
			return true
		}
	}
	return false
}
