package app

import (
	"math"
	"sort"
	"sync"
	"time"
)

// DrainStats collects drain-loop timing samples and throughput counters for
// dashboard display. It maintains a bounded ring buffer of recent tick
// durations from which percentiles are computed on demand.
//
// Thread-safe for concurrent use.
type DrainStats struct {
	mu sync.Mutex

	ticks latencyBuffer

	batches  int64
	readings int64
}

// NewDrainStats creates a DrainStats retaining at most windowSize duration
// samples. windowSize <= 0 defaults to 100.
func NewDrainStats(windowSize int) *DrainStats {
	if windowSize <= 0 {
		windowSize = 100
	}
	return &DrainStats{
		ticks: newLatencyBuffer(windowSize),
	}
}

// RecordDrain records one drain tick: how many readings it consumed and how
// long it took.
func (ds *DrainStats) RecordDrain(n int, d time.Duration) {
	ds.mu.Lock()
	defer ds.mu.Unlock()
	ds.ticks.add(d)
	ds.batches++
	ds.readings += int64(n)
}

// LatencyPercentiles holds p50 and p95 values for a duration series.
type LatencyPercentiles struct {
	P50 time.Duration
	P95 time.Duration
}

// DrainSnapshot captures a point-in-time view of drain-loop statistics.
type DrainSnapshot struct {
	// Batches is the total number of drain ticks executed.
	Batches int64

	// Readings is the total number of readings consumed across all ticks.
	Readings int64

	// Tick holds percentile durations over the recent tick window.
	Tick LatencyPercentiles
}

// Snapshot returns a point-in-time view of all drain statistics.
func (ds *DrainStats) Snapshot() DrainSnapshot {
	ds.mu.Lock()
	defer ds.mu.Unlock()

	return DrainSnapshot{
		Batches:  ds.batches,
		Readings: ds.readings,
		Tick:     ds.ticks.percentiles(),
	}
}

// latencyBuffer is a bounded ring buffer of duration samples.
type latencyBuffer struct {
	data []time.Duration
	size int
	pos  int
	full bool
}

func newLatencyBuffer(size int) latencyBuffer {
	return latencyBuffer{
		data: make([]time.Duration, size),
		size: size,
	}
}

func (lb *latencyBuffer) add(d time.Duration) {
	lb.data[lb.pos] = d
	lb.pos++
	if lb.pos >= lb.size {
		lb.pos = 0
		lb.full = true
	}
}

func (lb *latencyBuffer) percentiles() LatencyPercentiles {
	n := lb.pos
	if lb.full {
		n = lb.size
	}
	if n == 0 {
		return LatencyPercentiles{}
	}

	sorted := make([]time.Duration, n)
	copy(sorted, lb.data[:n])
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	return LatencyPercentiles{
		P50: percentile(sorted, 0.50),
		P95: percentile(sorted, 0.95),
	}
}

// percentile returns the value at the given percentile (0.0-1.0) from a
// sorted slice of durations using nearest-rank.
func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}
