// internal/reposter/state_test.go
package reposter

import (
	"os"
	"path/filepath"
	"testing"
)

func newTestState(t *testing.T) *StateStore {
	t.Helper()
	return NewStateStore(filepath.Join(t.TempDir(), "reposter_state.json"))
}

func TestStateStoreZeroStateWhenMissing(t *testing.T) {
	s := newTestState(t)
	st, err := s.Load()
	if err != nil {
		t.Fatal(err)
	}
	if st.LastSeenID != 0 || len(st.Subscribers) != 0 {
		t.Errorf("expected zero state, got %+v", st)
	}
}

func TestStateStoreCheckpointRoundTrip(t *testing.T) {
	s := newTestState(t)

	if err := s.SetLastSeen(12); err != nil {
		t.Fatal(err)
	}

	// Reopen from disk to mimic a restart.
	reopened := NewStateStore(s.Path())
	last, err := reopened.LastSeen()
	if err != nil {
		t.Fatal(err)
	}
	if last != 12 {
		t.Errorf("last seen = %d, want 12", last)
	}
}

func TestStateStoreCheckpointMonotonic(t *testing.T) {
	s := newTestState(t)

	if err := s.SetLastSeen(12); err != nil {
		t.Fatal(err)
	}
	if err := s.SetLastSeen(5); err != nil {
		t.Fatal(err)
	}

	last, err := s.LastSeen()
	if err != nil {
		t.Fatal(err)
	}
	if last != 12 {
		t.Errorf("checkpoint regressed to %d", last)
	}
}

func TestStateStoreSubscribeUnsubscribe(t *testing.T) {
	s := newTestState(t)

	added, err := s.Subscribe("telegram:100")
	if err != nil || !added {
		t.Fatalf("subscribe: added=%v err=%v", added, err)
	}
	added, err = s.Subscribe("telegram:100")
	if err != nil || added {
		t.Fatalf("duplicate subscribe: added=%v err=%v", added, err)
	}

	subs, err := s.Subscribers()
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 1 || subs[0] != "telegram:100" {
		t.Errorf("subscribers = %v", subs)
	}

	removed, err := s.Unsubscribe("telegram:100")
	if err != nil || !removed {
		t.Fatalf("unsubscribe: removed=%v err=%v", removed, err)
	}
	removed, err = s.Unsubscribe("telegram:100")
	if err != nil || removed {
		t.Fatalf("second unsubscribe: removed=%v err=%v", removed, err)
	}
}

func TestStateStoreWriteIsAtomic(t *testing.T) {
	s := newTestState(t)
	if err := s.SetLastSeen(3); err != nil {
		t.Fatal(err)
	}

	// No temp file left behind after a successful write.
	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Errorf("temp file left behind: %v", err)
	}
}
