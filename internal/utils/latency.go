package utils

import (
	"sort"
	"sync"
	"time"
)

// LatencyTracker keeps the most recent duration samples in a ring and
// computes percentiles over them.
type LatencyTracker struct {
	mu      sync.RWMutex
	samples []time.Duration
	next    int
	full    bool
}

// NewLatencyTracker creates a tracker storing up to maxSize samples.
func NewLatencyTracker(maxSize int) *LatencyTracker {
	if maxSize <= 0 {
		maxSize = 512
	}
	return &LatencyTracker{samples: make([]time.Duration, maxSize)}
}

// Observe records a new duration, overwriting the oldest once the ring is full.
func (l *LatencyTracker) Observe(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.samples[l.next] = d
	l.next++
	if l.next == len(l.samples) {
		l.next = 0
		l.full = true
	}
}

// Percentile returns the percentile (0-100) duration. Returns zero if no samples.
func (l *LatencyTracker) Percentile(p float64) time.Duration {
	return l.Percentiles(p)[0]
}

// Percentiles returns several percentiles from one sorted copy of the samples.
func (l *LatencyTracker) Percentiles(ps ...float64) []time.Duration {
	out := make([]time.Duration, len(ps))
	sorted := l.sorted()
	if len(sorted) == 0 {
		return out
	}
	for i, p := range ps {
		switch {
		case p <= 0:
			out[i] = sorted[0]
		case p >= 100:
			out[i] = sorted[len(sorted)-1]
		default:
			out[i] = sorted[int((p/100.0)*float64(len(sorted)-1))]
		}
	}
	return out
}

// Count returns number of samples recorded.
func (l *LatencyTracker) Count() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.count()
}

func (l *LatencyTracker) count() int {
	if l.full {
		return len(l.samples)
	}
	return l.next
}

func (l *LatencyTracker) sorted() []time.Duration {
	l.mu.RLock()
	sorted := append([]time.Duration(nil), l.samples[:l.count()]...)
	l.mu.RUnlock()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	return sorted
}
