// internal/types/interfaces.go
package types

import "context"

type TriggerStore interface {
	CreateTrigger(ctx context.Context, t *Trigger) (*Trigger, error)
	GetTrigger(ctx context.Context, id int64) (*Trigger, error)
	ListTriggers(ctx context.Context) ([]*Trigger, error)
	ListEnabledTriggers(ctx context.Context) ([]*Trigger, error)
	UpdateTrigger(ctx context.Context, t *Trigger) (*Trigger, error)
	DeleteTrigger(ctx context.Context, id int64) error
}

type TargetStore interface {
	// UpsertTarget inserts a target for externalID or merges into the
	// existing row. Empty handle/title/kind arguments leave the stored
	// values untouched.
	UpsertTarget(ctx context.Context, externalID int64, handle, title string, kind TargetKind) (*Target, error)
	GetTargetByID(ctx context.Context, id int64) (*Target, error)
	GetTargetByExternalID(ctx context.Context, externalID int64) (*Target, error)
	ListTargets(ctx context.Context) ([]*Target, error)
}

type MatchStore interface {
	// CreateMatchRecord appends a record to the match log and returns it
	// with the store-assigned id and timestamp filled in.
	CreateMatchRecord(ctx context.Context, rec *MatchRecord) (*MatchRecord, error)
	// ListRecentMatchRecords returns up to limit records, newest first.
	ListRecentMatchRecords(ctx context.Context, limit int) ([]*MatchRecord, error)
}
