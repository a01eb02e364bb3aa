package dispatcher

import (
	"math"
	"sync"
	"time"
)

// bucketBounds are the upper bounds of the latency histogram buckets. The
// last bucket holds everything at or above the final bound.
var bucketBounds = []time.Duration{
	10 * time.Microsecond,
	50 * time.Microsecond,
	100 * time.Microsecond,
	500 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
}

// LatencyTracker keeps running latency statistics. Mean and variance use
// Welford's online algorithm; percentiles are estimated from a histogram.
type LatencyTracker struct {
	mu sync.RWMutex

	count uint64
	min   time.Duration
	max   time.Duration
	mean  float64 // nanoseconds
	m2    float64

	buckets [10]uint64
}

// NewLatencyTracker creates a new latency tracker.
func NewLatencyTracker() *LatencyTracker {
	return &LatencyTracker{min: math.MaxInt64}
}

// Record adds one measurement. Negative durations count as zero.
func (lt *LatencyTracker) Record(d time.Duration) {
	if d < 0 {
		d = 0
	}

	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.count++
	x := float64(d)
	delta := x - lt.mean
	lt.mean += delta / float64(lt.count)
	lt.m2 += delta * (x - lt.mean)

	lt.min = min(lt.min, d)
	lt.max = max(lt.max, d)
	lt.buckets[bucketFor(d)]++
}

func bucketFor(d time.Duration) int {
	for i, bound := range bucketBounds {
		if d < bound {
			return i
		}
	}
	return len(bucketBounds)
}

// LatencyStats is a point-in-time copy of a tracker's statistics.
type LatencyStats struct {
	Count  uint64
	Min    time.Duration
	Max    time.Duration
	Mean   time.Duration
	StdDev time.Duration
	P50    time.Duration
	P95    time.Duration
	P99    time.Duration

	Histogram [10]uint64
}

// Stats returns the current statistics.
func (lt *LatencyTracker) Stats() LatencyStats {
	lt.mu.RLock()
	defer lt.mu.RUnlock()

	s := LatencyStats{Count: lt.count, Histogram: lt.buckets}
	if lt.count == 0 {
		return s
	}

	s.Min = lt.min
	s.Max = lt.max
	s.Mean = time.Duration(lt.mean)
	if lt.count > 1 {
		if variance := lt.m2 / float64(lt.count-1); variance > 0 {
			s.StdDev = time.Duration(math.Sqrt(variance))
		}
	}
	s.P50 = lt.percentileLocked(50)
	s.P95 = lt.percentileLocked(95)
	s.P99 = lt.percentileLocked(99)
	return s
}

// percentileLocked returns the midpoint of the bucket holding the p-th
// percentile, clamped to the observed range.
func (lt *LatencyTracker) percentileLocked(p int) time.Duration {
	target := (uint64(p)*lt.count + 99) / 100
	var cumulative uint64
	for i, n := range lt.buckets {
		cumulative += n
		if cumulative < target {
			continue
		}
		var est time.Duration
		switch {
		case i == 0:
			est = bucketBounds[0] / 2
		case i == len(bucketBounds):
			est = bucketBounds[i-1]
		default:
			est = (bucketBounds[i-1] + bucketBounds[i]) / 2
		}
		return min(max(est, lt.min), lt.max)
	}
	return lt.max
}

// Reset clears all tracked data.
func (lt *LatencyTracker) Reset() {
	lt.mu.Lock()
	defer lt.mu.Unlock()

	lt.count = 0
	lt.min = math.MaxInt64
	lt.max = 0
	lt.mean = 0
	lt.m2 = 0
	lt.buckets = [10]uint64{}
}
