// Package metrics keeps a bounded, time-ordered history of cache
// snapshots so internal/api can serve recent trend data without
// querying storage.
package metrics

import (
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"probevault/internal/icache"
)

// Sample is one point-in-time observation of a cache's counters.
type Sample struct {
	Timestamp time.Time
	Stats     icache.Stats
}

// Store retains the most recent samples up to Limit, evicting the
// oldest when full.
type Store struct {
	mu      sync.RWMutex
	samples []Sample
	limit   int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 5000
	}
	return &Store{limit: limit}
}

// Record appends a new sample, evicting the oldest if the store is at
// capacity.
func (s *Store) Record(stats icache.Stats) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = append(s.samples, Sample{Timestamp: time.Now().UTC(), Stats: stats})
	if len(s.samples) > s.limit {
		s.samples = s.samples[len(s.samples)-s.limit:]
	}
}

// Recent returns the last n samples, newest last. n <= 0 returns all.
func (s *Store) Recent(n int) []Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.samples) {
		n = len(s.samples)
	}
	out := make([]Sample, n)
	copy(out, s.samples[len(s.samples)-n:])
	return out
}

// Latest returns the most recent sample, if any.
func (s *Store) Latest() (Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.samples) == 0 {
		return Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Clear drops every retained sample.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.samples = nil
}

// Summary renders the latest sample as a short human-readable line,
// used for log output on a reporting interval.
func (s *Store) Summary() string {
	latest, ok := s.Latest()
	if !ok {
		return "no samples yet"
	}
	st := latest.Stats
	return humanize.Comma(int64(st.IndexSize)) + " unique items, " +
		humanize.Comma(int64(st.Hits)) + " hits, " +
		humanize.Comma(int64(st.QueueDepth)) + "/" + humanize.Comma(int64(st.QueueCapacity)) + " queued"
}
