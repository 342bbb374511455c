package store

import (
	"sync"
	"time"
)

// MemoryStore implements Store entirely in memory. It carries the same
// monotonicity and notification semantics as SQLiteStore and serves
// tests and ephemeral sessions.
type MemoryStore struct {
	mu           sync.Mutex
	watermarks   map[string]time.Time
	forcedLogout bool
	notifier     *notifier
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		watermarks: make(map[string]time.Time),
		notifier:   newNotifier(),
	}
}

// Watermark returns the last-seen timestamp for a team.
func (s *MemoryStore) Watermark(teamID string) (time.Time, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ts, ok := s.watermarks[teamID]
	return ts, ok, nil
}

// Watermarks returns every recorded watermark.
func (s *MemoryStore) Watermarks() (map[string]time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]time.Time, len(s.watermarks))
	for teamID, ts := range s.watermarks {
		out[teamID] = ts
	}
	return out, nil
}

// SetWatermark advances a team's watermark, ignoring values that do
// not move it strictly forward.
func (s *MemoryStore) SetWatermark(teamID string, ts time.Time) error {
	s.mu.Lock()
	current, ok := s.watermarks[teamID]
	if ok && !ts.After(current) {
		s.mu.Unlock()
		return nil
	}
	s.watermarks[teamID] = ts.UTC()
	s.mu.Unlock()

	s.notifier.notify(Change{TeamID: teamID})
	return nil
}

// ForcedLogout reports whether the forced-logout flag is set.
func (s *MemoryStore) ForcedLogout() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.forcedLogout, nil
}

// SetForcedLogout sets or clears the forced-logout flag.
func (s *MemoryStore) SetForcedLogout(v bool) error {
	s.mu.Lock()
	s.forcedLogout = v
	s.mu.Unlock()

	s.notifier.notify(Change{})
	return nil
}

// Subscribe registers for change notifications.
func (s *MemoryStore) Subscribe() (<-chan Change, func()) {
	return s.notifier.subscribe()
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
