package memory

import (
	"sync"
	"time"

	occupancy "cragwatch/internal/occupancy/domain"
)

// SampleStore holds the rolling window of occupancy samples in memory.
// There is a single appending writer (the collector); readers always get a
// snapshot copy, never a live slice, so a refresh can replace the window
// wholesale while charts read from the previous one.
type SampleStore struct {
	mu      sync.RWMutex
	samples []occupancy.Sample
}

// NewSampleStore constructs an empty store.
func NewSampleStore() *SampleStore {
	return &SampleStore{}
}

// Append adds one sample at the end of the window.
func (s *SampleStore) Append(sample occupancy.Sample) {
	s.mu.Lock()
	s.samples = append(s.samples, sample)
	s.mu.Unlock()
}

// Replace swaps the whole window, e.g. after loading from the archive.
func (s *SampleStore) Replace(samples []occupancy.Sample) {
	copied := append([]occupancy.Sample(nil), samples...)
	s.mu.Lock()
	s.samples = copied
	s.mu.Unlock()
}

// Snapshot returns a copy of the current window.
func (s *SampleStore) Snapshot() []occupancy.Sample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]occupancy.Sample(nil), s.samples...)
}

// Latest returns the newest sample and whether one exists.
func (s *SampleStore) Latest() (occupancy.Sample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.samples) == 0 {
		return occupancy.Sample{}, false
	}
	return s.samples[len(s.samples)-1], true
}

// Len returns the number of stored samples.
func (s *SampleStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples)
}

// Prune drops samples strictly older than cutoff, preserving order.
// It returns how many samples were removed.
func (s *SampleStore) Prune(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.samples[:0]
	removed := 0
	for _, sample := range s.samples {
		if sample.Time.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, sample)
	}
	s.samples = kept
	return removed
}
