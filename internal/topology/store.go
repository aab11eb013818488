// Package topology implements the Topology Store: a concurrent map from
// agent id to its latest telemetry snapshot, guarded by a single mutex,
// with deep-copy reads so the path solver can work lock-free.
package topology

import (
	"sync"
	"time"
)

// PeerMetric is one peer's smoothed quality as last reported by an agent.
type PeerMetric struct {
	RTTMs    *float64
	LossRate float64
}

// Entry is the latest accepted telemetry snapshot for one agent.
type Entry struct {
	Timestamp int64
	Metrics   map[string]PeerMetric // peer address -> metric
}

func deepCopyEntry(e Entry) Entry {
	cp := Entry{Timestamp: e.Timestamp, Metrics: make(map[string]PeerMetric, len(e.Metrics))}
	for addr, m := range e.Metrics {
		pm := m
		if m.RTTMs != nil {
			v := *m.RTTMs
			pm.RTTMs = &v
		}
		cp.Metrics[addr] = pm
	}
	return cp
}

// Store is the concurrent topology map. All accessors and mutators acquire
// the single mutex; snapshots handed out by GetAll are deep copies so the
// Path Solver can operate lock-free.
type Store struct {
	mu      sync.Mutex
	entries map[string]Entry
}

// New constructs an empty Store.
func New() *Store {
	return &Store{entries: map[string]Entry{}}
}

// Put unconditionally overwrites the entry for agentID.
func (s *Store) Put(agentID string, ts int64, metrics map[string]PeerMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[agentID] = deepCopyEntry(Entry{Timestamp: ts, Metrics: metrics})
}

// Get returns the entry for agentID and whether it exists, as a deep copy.
func (s *Store) Get(agentID string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[agentID]
	if !ok {
		return Entry{}, false
	}
	return deepCopyEntry(e), true
}

// Exists reports whether agentID has a stored entry.
func (s *Store) Exists(agentID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[agentID]
	return ok
}

// GetAll returns a deep copy of the full topology, safe for lock-free use
// by the solver. Mutating the returned map or its values never affects
// subsequent Get/GetAll results (testable property 9).
func (s *Store) GetAll() map[string]Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Entry, len(s.entries))
	for id, e := range s.entries {
		out[id] = deepCopyEntry(e)
	}
	return out
}

// RemoveStale evicts entries whose timestamp is older than maxAgeSec
// relative to now, returning the removed agent ids.
func (s *Store) RemoveStale(now time.Time, maxAgeSec int64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	cutoff := now.Unix()
	for id, e := range s.entries {
		if cutoff-e.Timestamp > maxAgeSec {
			removed = append(removed, id)
			delete(s.entries, id)
		}
	}
	return removed
}

// Clear removes every entry.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = map[string]Entry{}
}

// Count returns the number of stored entries.
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
