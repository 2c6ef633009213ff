// internal/trigger/cache_test.go
package trigger

import (
	"context"
	"errors"
	"testing"

	"github.com/Nursssr/scanner-human-imitaion-bot/internal/types"
)

type fakeLister struct {
	triggers []*types.Trigger
	err      error
	calls    int
}

func (f *fakeLister) ListEnabledTriggers(context.Context) ([]*types.Trigger, error) {
	f.calls++
	return f.triggers, f.err
}

func TestSnapshotLazyWarmup(t *testing.T) {
	lister := &fakeLister{triggers: []*types.Trigger{
		{ID: 1, Pattern: `\bsale\w*\b`},
	}}
	cache := NewCache(lister)
	ctx := context.Background()

	snap, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if lister.calls != 1 {
		t.Errorf("expected one lazy refresh, got %d calls", lister.calls)
	}
	if len(snap) != 1 || snap[0].ID != 1 {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}

	// Second read serves the published snapshot without reloading.
	if _, err := cache.Snapshot(ctx); err != nil {
		t.Fatal(err)
	}
	if lister.calls != 1 {
		t.Errorf("expected no further refresh, got %d calls", lister.calls)
	}
}

func TestSnapshotWarmupFailureSurfaces(t *testing.T) {
	lister := &fakeLister{err: errors.New("store down")}
	cache := NewCache(lister)

	if _, err := cache.Snapshot(context.Background()); err == nil {
		t.Error("expected warm-up error, matching must not be silently skipped")
	}
}

func TestRefreshDropsInvalidPattern(t *testing.T) {
	lister := &fakeLister{triggers: []*types.Trigger{
		{ID: 1, Pattern: "(unclosed"},
		{ID: 2, Pattern: "valid"},
	}}
	cache := NewCache(lister)
	ctx := context.Background()

	if err := cache.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	snap, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(snap) != 1 || snap[0].ID != 2 {
		t.Fatalf("expected only the valid trigger, got %+v", snap)
	}
}

func TestRefreshReplacesSnapshotAtomically(t *testing.T) {
	lister := &fakeLister{triggers: []*types.Trigger{
		{ID: 1, Pattern: "a"},
		{ID: 2, Pattern: "b"},
	}}
	cache := NewCache(lister)
	ctx := context.Background()

	old, err := cache.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}

	lister.triggers = []*types.Trigger{{ID: 3, Pattern: "c"}}
	if err := cache.Refresh(ctx); err != nil {
		t.Fatal(err)
	}

	// The old snapshot reference is untouched; the new one is the full
	// post-refresh set with no mixing.
	if len(old) != 2 {
		t.Errorf("old snapshot mutated: %+v", old)
	}
	snap, _ := cache.Snapshot(ctx)
	if len(snap) != 1 || snap[0].ID != 3 {
		t.Errorf("unexpected new snapshot: %+v", snap)
	}
}

func TestCompiledForcesCaseInsensitive(t *testing.T) {
	lister := &fakeLister{triggers: []*types.Trigger{
		{ID: 1, Pattern: "sale", Flags: 0},
	}}
	cache := NewCache(lister)

	snap, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := snap[0].FindAll("SALE and Sale and sale"); len(got) != 3 {
		t.Errorf("expected 3 case-insensitive matches, got %v", got)
	}
}

func TestFindAllNonOverlapping(t *testing.T) {
	lister := &fakeLister{triggers: []*types.Trigger{
		{ID: 1, Pattern: `\bsale\w*\b`},
	}}
	cache := NewCache(lister)

	snap, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got := snap[0].FindAll("sale today, SALES tomorrow, resale never")
	if len(got) != 2 || got[0] != "sale" || got[1] != "SALES" {
		t.Errorf("FindAll = %v", got)
	}
}

func TestCompileOptionsTranslation(t *testing.T) {
	lister := &fakeLister{triggers: []*types.Trigger{
		{ID: 1, Pattern: "^end$", Flags: types.FlagMultiline},
	}}
	cache := NewCache(lister)

	snap, err := cache.Snapshot(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if got := snap[0].FindAll("end\nEND"); len(got) != 2 {
		t.Errorf("multiline flag not honored, matches = %v", got)
	}
}
