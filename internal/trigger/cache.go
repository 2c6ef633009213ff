// Package trigger holds the compiled trigger cache and the pattern
// derivation rule.
package trigger

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

// Lister loads the enabled triggers the cache compiles.
type Lister interface {
	ListEnabledTriggers(ctx context.Context) ([]*types.Trigger, error)
}

// matchTimeout bounds a single pattern scan so a pathological
// user-supplied expression cannot wedge the message loop.
const matchTimeout = 2 * time.Second

// Compiled is one enabled trigger with its pattern compiled and ready to
// scan.
type Compiled struct {
	ID            int64
	Name          string
	ScopeTargetID *int64
	re            *regexp2.Regexp
}

// FindAll returns every non-overlapping match of the trigger in text, in
// scan order. A scan error (timeout) abandons the rest of the text but
// keeps the matches found so far.
func (c *Compiled) FindAll(text string) []string {
	var out []string
	m, err := c.re.FindStringMatch(text)
	for err == nil && m != nil {
		out = append(out, m.String())
		m, err = c.re.FindNextMatch(m)
	}
	if err != nil {
		slog.Warn("trigger scan aborted", "trigger_id", c.ID, "error", err)
	}
	return out
}

// Cache holds an immutable snapshot of compiled triggers. Refreshes are
// serialized; readers only ever see a fully-built snapshot via an atomic
// pointer load and never block on a refresh in progress.
type Cache struct {
	triggers Lister

	mu       sync.Mutex // serializes refreshes, never held around matching
	snapshot atomic.Pointer[[]*Compiled]
}

// NewCache creates a Cache over the given trigger source. The first
// snapshot is built lazily.
func NewCache(triggers Lister) *Cache {
	return &Cache{triggers: triggers}
}

// compileOptions translates a stored flags bitmask into regexp2 options.
// Case-insensitivity is forced, and only the multiline and dot-all bits
// survive; anything else a client smuggled into the bitmask is dropped.
func compileOptions(flags int64) regexp2.RegexOptions {
	var opts regexp2.RegexOptions = regexp2.IgnoreCase
	if flags&types.FlagMultiline != 0 {
		opts |= regexp2.Multiline
	}
	if flags&types.FlagDotAll != 0 {
		opts |= regexp2.Singleline
	}
	return opts
}

// Refresh reloads all enabled triggers, compiles them, and atomically
// replaces the snapshot. A trigger whose pattern fails to compile is
// logged and dropped from the new snapshot; the rest still compile.
func (c *Cache) Refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.triggers.ListEnabledTriggers(ctx)
	if err != nil {
		return fmt.Errorf("load enabled triggers: %w", err)
	}

	compiled := make([]*Compiled, 0, len(rows))
	for _, t := range rows {
		re, err := regexp2.Compile(t.Pattern, compileOptions(t.Flags))
		if err != nil {
			slog.Warn("trigger pattern failed to compile",
				"trigger_id", t.ID, "pattern", t.Pattern, "error", err)
			continue
		}
		re.MatchTimeout = matchTimeout
		compiled = append(compiled, &Compiled{
			ID:            t.ID,
			Name:          t.Name,
			ScopeTargetID: t.ScopeTargetID,
			re:            re,
		})
	}

	c.snapshot.Store(&compiled)
	slog.Debug("trigger cache refreshed", "triggers", len(compiled), "dropped", len(rows)-len(compiled))
	return nil
}

// Snapshot returns the current compiled trigger list. If no refresh has
// completed yet it performs one synchronously, so a match attempt is never
// silently skipped against an empty cache.
func (c *Cache) Snapshot(ctx context.Context) ([]*Compiled, error) {
	if snap := c.snapshot.Load(); snap != nil {
		return *snap, nil
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}
	return *c.snapshot.Load(), nil
}
