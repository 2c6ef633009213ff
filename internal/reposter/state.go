// internal/reposter/state.go
package reposter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// State is the poller's persisted checkpoint: the highest match record id
// already delivered, plus the current subscriber set.
type State struct {
	LastSeenID  int64    `json:"last_seen_id"`
	Subscribers []string `json:"subscribers"`
}

// StateStore is a JSON-file-backed store for the delivery checkpoint. The
// poller is the sole writer of the checkpoint field; the subscriber set is
// also mutated by the control surfaces (bot commands, CLI).
type StateStore struct {
	path string
	mu   sync.RWMutex
}

// NewStateStore creates a file-backed StateStore at the given file path.
func NewStateStore(path string) *StateStore {
	return &StateStore{path: path}
}

// Path returns the file path used by this store.
func (s *StateStore) Path() string {
	return s.path
}

// Load returns the persisted state, or a zero state if the file doesn't
// exist yet.
func (s *StateStore) Load() (*State, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load()
}

// LastSeen returns the persisted checkpoint.
func (s *StateStore) LastSeen() (int64, error) {
	st, err := s.Load()
	if err != nil {
		return 0, err
	}
	return st.LastSeenID, nil
}

// SetLastSeen advances the checkpoint to id. The checkpoint is monotonic:
// a smaller id than the stored one is a no-op.
func (s *StateStore) SetLastSeen(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return err
	}
	if id <= st.LastSeenID {
		return nil
	}
	st.LastSeenID = id
	return s.save(st)
}

// Subscribers returns the current subscriber set.
func (s *StateStore) Subscribers() ([]string, error) {
	st, err := s.Load()
	if err != nil {
		return nil, err
	}
	return st.Subscribers, nil
}

// Subscribe adds a subscriber. Returns false if it was already present.
func (s *StateStore) Subscribe(subscriber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return false, err
	}
	if slices.Contains(st.Subscribers, subscriber) {
		return false, nil
	}
	st.Subscribers = append(st.Subscribers, subscriber)
	return true, s.save(st)
}

// Unsubscribe removes a subscriber. Returns false if it wasn't present.
func (s *StateStore) Unsubscribe(subscriber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.load()
	if err != nil {
		return false, err
	}
	i := slices.Index(st.Subscribers, subscriber)
	if i < 0 {
		return false, nil
	}
	st.Subscribers = slices.Delete(st.Subscribers, i, i+1)
	return true, s.save(st)
}

// load reads the state file. Returns a zero state if it doesn't exist.
func (s *StateStore) load() (*State, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return &State{}, nil
		}
		return nil, fmt.Errorf("read state file: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("unmarshal state: %w", err)
	}
	return &st, nil
}

// save writes the state to disk using atomic write (temp file + rename),
// so a crash mid-write leaves either the old state or the new one, never
// a torn file.
func (s *StateStore) save(st *State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp state file: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename temp state file: %w", err)
	}
	return nil
}
