// Package aggregate maintains the visualization's working data set.
//
// Two aggregation policies are provided:
//
//   - [Window] — a fixed-capacity sliding window of scalar readings in
//     arrival order, oldest evicted first. Backs the waveform view.
//   - [Field] — a growing set of unique (position, amplitude) records keyed
//     by the quantized position, with a lock flag that discards readings
//     while engaged. Backs the amplitude-vs-position view.
//
// Both types guard their state with a single mutex held only for field
// access, so a [Aggregator.Snapshot] is always a consistent, non-torn copy
// even while a concurrent ingest is running.
package aggregate

import "github.com/MrWong99/soundfield/pkg/capture"

// Record is one (position, amplitude) sample as handed to the render surface.
// For a [Window], Position.X is the arrival index within the window.
type Record struct {
	Position capture.Position
	Value    float64
}

// Aggregator is the common contract of the two ingestion policies.
//
// Implementations must be safe for concurrent use: records update atomically
// together, and Snapshot never observes a half-applied ingest.
type Aggregator interface {
	// Ingest applies one reading according to the policy. It never blocks.
	Ingest(r capture.Reading)

	// Snapshot returns a consistent ordered copy of the current records.
	// The caller owns the returned slice.
	Snapshot() []Record

	// Len returns the current record count.
	Len() int

	// Reset discards all records.
	Reset()
}

// Drain performs the once-per-tick non-blocking poll: it moves every reading
// already sitting in ch into agg and returns the number consumed. It never
// waits for more readings to arrive.
func Drain(ch <-chan capture.Reading, agg Aggregator) int {
	n := 0
	for {
		select {
		case r := <-ch:
			agg.Ingest(r)
			n++
		default:
			return n
		}
	}
}
