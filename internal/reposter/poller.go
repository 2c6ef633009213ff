// Package reposter is the delivery side of the pipeline: it polls the
// append-only match log and forwards newly created records to the
// subscribed sinks, keeping a persisted checkpoint so nothing old is
// re-delivered across restarts.
package reposter

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/delivery"
	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

// MatchSource fetches the most recent window of the match log.
type MatchSource interface {
	ListRecentMatchRecords(ctx context.Context, limit int) ([]*types.MatchRecord, error)
}

// TargetSource lists the registered targets for notification rendering.
type TargetSource interface {
	ListTargets(ctx context.Context) ([]*types.Target, error)
}

// Options tune the poller.
type Options struct {
	// Interval between poll cycles. Defaults to 5 seconds.
	Interval time.Duration
	// FetchLimit bounds the match log window per cycle. Defaults to 50.
	FetchLimit int
	// Backfill controls first-startup behavior with no prior checkpoint:
	// true processes the full backlog, false starts from the current tail.
	Backfill bool
	// Self identities whose records are never delivered, even if one
	// slipped past the match engine's own filter.
	Self []types.SelfIdentity
}

// Poller turns the match log into ordered, de-duplicated, checkpointed
// notifications. Exactly one Poller instance may run against a given
// state file; that is an operational assumption, not enforced here.
type Poller struct {
	matches MatchSource
	targets TargetSource
	state   *StateStore
	sinks   *delivery.Registry
	opts    Options

	lastSeen int64
}

// NewPoller wires a Poller. Zero Options fields get defaults.
func NewPoller(matches MatchSource, targets TargetSource, state *StateStore, sinks *delivery.Registry, opts Options) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.FetchLimit <= 0 {
		opts.FetchLimit = 50
	}
	return &Poller{
		matches: matches,
		targets: targets,
		state:   state,
		sinks:   sinks,
		opts:    opts,
	}
}

// Run polls until ctx is cancelled. The caller must wait for Run to
// return before exiting so an in-flight checkpoint write can finish.
func (p *Poller) Run(ctx context.Context) error {
	if err := p.bootstrap(ctx); err != nil {
		return err
	}

	slog.Info("reposter poller started",
		"interval", p.opts.Interval, "last_seen_id", p.lastSeen, "backfill", p.opts.Backfill)

	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("reposter poller stopped", "last_seen_id", p.lastSeen)
			return nil
		case <-ticker.C:
			p.cycle(ctx)
		}
	}
}

// bootstrap loads the checkpoint. On first startup with no prior state and
// backfill disabled, the checkpoint is initialized to the current log tail
// so the backlog is skipped; this is an explicit choice, never a default
// fallthrough.
func (p *Poller) bootstrap(ctx context.Context) error {
	st, err := p.state.Load()
	if err != nil {
		return err
	}
	p.lastSeen = st.LastSeenID

	if p.lastSeen != 0 || p.opts.Backfill {
		return nil
	}

	window, err := p.matches.ListRecentMatchRecords(ctx, 1)
	if err != nil {
		// Recoverable: stay at zero and let the next cycles catch up.
		slog.Error("checkpoint init fetch failed", "error", err)
		return nil
	}
	if len(window) == 0 {
		return nil
	}

	p.lastSeen = window[0].ID
	if err := p.state.SetLastSeen(p.lastSeen); err != nil {
		slog.Error("checkpoint init write failed", "last_seen_id", p.lastSeen, "error", err)
	} else {
		slog.Info("checkpoint initialized to log tail", "last_seen_id", p.lastSeen)
	}
	return nil
}

// cycle performs one fetch-filter-sort-deliver pass. Every failure inside
// a cycle is logged and survived; the next cycle starts fresh.
func (p *Poller) cycle(ctx context.Context) {
	window, err := p.matches.ListRecentMatchRecords(ctx, p.opts.FetchLimit)
	if err != nil {
		slog.Error("fetch match window failed", "error", err)
		return
	}

	var pending []*types.MatchRecord
	for _, rec := range window {
		if rec.ID <= p.lastSeen || rec.MatchedTriggerID == nil {
			continue
		}
		if types.IsSelf(p.opts.Self, rec.AuthorID, rec.AuthorName) {
			continue
		}
		pending = append(pending, rec)
	}
	if len(pending) == 0 {
		return
	}

	// The fetch window is ordered by recency, not by id; delivery must be
	// ascending by id.
	sort.Slice(pending, func(i, j int) bool { return pending[i].ID < pending[j].ID })

	targetMap := p.fetchTargets(ctx)

	for _, rec := range pending {
		text := FormatNotification(rec, targetMap)

		// Re-read the subscriber set per record so subscribe/unsubscribe
		// from the control surfaces takes effect without a restart.
		subscribers, err := p.state.Subscribers()
		if err != nil {
			slog.Error("read subscribers failed", "error", err)
			subscribers = nil
		}
		for _, sub := range subscribers {
			if err := p.sinks.Deliver(sub, text); err != nil {
				// At-most-once per sink: logged, not retried.
				slog.Warn("notification delivery failed",
					"subscriber", sub, "record_id", rec.ID, "error", err)
			}
		}

		// Advance the checkpoint immediately, not at cycle end, so a crash
		// here loses at most this record's remaining sends and never rolls
		// the checkpoint back.
		p.lastSeen = rec.ID
		if err := p.state.SetLastSeen(rec.ID); err != nil {
			// A lost checkpoint write means re-delivery after a crash; the
			// next record's save retries the file.
			slog.Error("checkpoint write failed", "last_seen_id", rec.ID, "error", err)
		}
	}
}

func (p *Poller) fetchTargets(ctx context.Context) map[int64]*types.Target {
	targets, err := p.targets.ListTargets(ctx)
	if err != nil {
		slog.Warn("fetch targets failed, rendering without source names", "error", err)
		return nil
	}
	m := make(map[int64]*types.Target, len(targets))
	for _, t := range targets {
		m[t.ID] = t
	}
	return m
}
