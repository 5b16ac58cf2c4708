package scheduler

import (
	"fmt"
	"sync"
)

// Stats tracks in-memory counters for queue activity. It is safe for
// concurrent use.
type Stats struct {
	mu sync.Mutex

	NumScheduled uint64
	NumFired     uint64
	NumCancelled uint64
	NumStale     uint64
}

// NewStats creates zeroed counters.
func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) incScheduled() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumScheduled++
}

func (s *Stats) incFired() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumFired++
}

func (s *Stats) incCancelled(n int) {
	if n <= 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumCancelled += uint64(n)
}

// IncStale counts a popped event that the driver discarded because its
// generation was no longer live.
func (s *Stats) IncStale() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.NumStale++
}

// StatsSnapshot is a copy of the counters.
type StatsSnapshot struct {
	NumScheduled uint64
	NumFired     uint64
	NumCancelled uint64
	NumStale     uint64
}

// Snapshot returns the current counter values.
func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return StatsSnapshot{
		NumScheduled: s.NumScheduled,
		NumFired:     s.NumFired,
		NumCancelled: s.NumCancelled,
		NumStale:     s.NumStale,
	}
}

// String returns a human-readable summary.
func (s *Stats) String() string {
	snap := s.Snapshot()
	return fmt.Sprintf("scheduler: scheduled=%d fired=%d cancelled=%d stale=%d",
		snap.NumScheduled, snap.NumFired, snap.NumCancelled, snap.NumStale)
}
