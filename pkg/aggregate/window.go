package aggregate

import (
	"sync"

	"github.com/MrWong99/soundfield/pkg/capture"
)

// DefaultWindowSize is the sliding-window capacity used when none is configured.
const DefaultWindowSize = 500

// Window is the fixed-capacity sliding-window aggregator. Every reading is
// kept transiently in arrival order; once the window is full the oldest value
// is evicted for each new one. Positions on ingested readings are ignored.
//
// The backing store is a ring buffer, so push and evict are O(1).
//
// Safe for concurrent use.
type Window struct {
	mu   sync.Mutex
	buf  []float64
	head int // index of the next write
	n    int // number of valid values
}

// NewWindow creates a window retaining at most size readings.
// size <= 0 defaults to [DefaultWindowSize].
func NewWindow(size int) *Window {
	if size <= 0 {
		size = DefaultWindowSize
	}
	return &Window{buf: make([]float64, size)}
}

// Ingest appends the reading's value to the tail of the window, evicting the
// oldest value if the window is at capacity.
func (w *Window) Ingest(r capture.Reading) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf[w.head] = r.Value
	w.head = (w.head + 1) % len(w.buf)
	if w.n < len(w.buf) {
		w.n++
	}
}

// Snapshot returns the window contents oldest-first. Each record's Position.X
// is its arrival index within the snapshot, matching the (index, amplitude)
// sequence the render surface plots.
func (w *Window) Snapshot() []Record {
	w.mu.Lock()
	defer w.mu.Unlock()

	out := make([]Record, w.n)
	start := (w.head - w.n + len(w.buf)) % len(w.buf)
	for i := range w.n {
		out[i] = Record{
			Position: capture.Position{X: float64(i)},
			Value:    w.buf[(start+i)%len(w.buf)],
		}
	}
	return out
}

// Len returns the number of values currently in the window.
func (w *Window) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.n
}

// Cap returns the window capacity.
func (w *Window) Cap() int {
	return len(w.buf)
}

// Reset empties the window.
func (w *Window) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.head = 0
	w.n = 0
}
