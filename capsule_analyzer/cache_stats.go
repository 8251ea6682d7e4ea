package capsule_analyzer

import (
	"sync/atomic"
	"time"
)

// CacheStats tracks cache performance counters with atomic updates so the
// hot path never takes a lock.
type CacheStats struct {
	memoryHits atomic.Int64
	diskHits   atomic.Int64
	misses     atomic.Int64
	writes     atomic.Int64
	resetAt    atomic.Int64
}

// CacheStatsSnapshot is a point-in-time copy of the counters.
type CacheStatsSnapshot struct {
	MemoryHits int64     `json:"memory_hits"`
	DiskHits   int64     `json:"disk_hits"`
	Misses     int64     `json:"misses"`
	Writes     int64     `json:"writes"`
	ResetAt    time.Time `json:"reset_at"`
}

// NewCacheStats creates zeroed counters.
func NewCacheStats() *CacheStats {
	s := &CacheStats{}
	s.resetAt.Store(time.Now().UnixNano())
	return s
}

func (s *CacheStats) recordMemoryHit() { s.memoryHits.Add(1) }
func (s *CacheStats) recordDiskHit()   { s.diskHits.Add(1) }
func (s *CacheStats) recordMiss()      { s.misses.Add(1) }
func (s *CacheStats) recordWrite()     { s.writes.Add(1) }

// Reset zeroes every counter and stamps a new reset time.
func (s *CacheStats) Reset() {
	s.memoryHits.Store(0)
	s.diskHits.Store(0)
	s.misses.Store(0)
	s.writes.Store(0)
	s.resetAt.Store(time.Now().UnixNano())
}

// Snapshot returns a copy of the current counters.
func (s *CacheStats) Snapshot() CacheStatsSnapshot {
	return CacheStatsSnapshot{
		MemoryHits: s.memoryHits.Load(),
		DiskHits:   s.diskHits.Load(),
		Misses:     s.misses.Load(),
		Writes:     s.writes.Load(),
		ResetAt:    time.Unix(0, s.resetAt.Load()),
	}
}

// Requests returns the total number of lookups.
func (snap CacheStatsSnapshot) Requests() int64 {
	return snap.MemoryHits + snap.DiskHits + snap.Misses
}

// HitRate returns the fraction of lookups served from either tier, as a
// percentage. Zero requests yields zero.
func (snap CacheStatsSnapshot) HitRate() float64 {
	total := snap.Requests()
	if total == 0 {
		return 0
	}
	return float64(snap.MemoryHits+snap.DiskHits) / float64(total) * 100
}
