package capture

import (
	"math"
	"sync/atomic"
	"time"
)

// Publisher is the bounded single-producer single-consumer channel between
// the device callback thread and the render loop.
//
// Publish never blocks: when the channel is full the newest reading is
// dropped, because the visualization is rate-insensitive and tolerates gaps.
// A gate threshold suppresses near-silence readings before they are
// published. Both outcomes are counted and visible through [Publisher.Stats].
//
// Safe for concurrent use, but only one goroutine should call Publish
// (the backend's callback) and one should drain Readings (the render loop).
type Publisher struct {
	ch     chan Reading
	cursor *Cursor
	gate   atomic.Uint64 // float64 bits; settable at runtime

	published atomic.Uint64
	gated     atomic.Uint64
	dropped   atomic.Uint64

	last atomic.Pointer[Reading]
}

// DefaultBuffer is the publish channel capacity used when none is configured.
const DefaultBuffer = 256

// DefaultGateThreshold suppresses readings at or below this value.
const DefaultGateThreshold = 0.01

// NewPublisher creates a publisher with the given channel capacity and gate
// threshold, stamping readings with positions from cursor. buffer <= 0
// defaults to [DefaultBuffer]; a negative gate disables gating entirely.
func NewPublisher(buffer int, gate float64, cursor *Cursor) *Publisher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	p := &Publisher{
		ch:     make(chan Reading, buffer),
		cursor: cursor,
	}
	p.SetGate(gate)
	return p
}

// Gate returns the current gate threshold.
func (p *Publisher) Gate() float64 {
	return math.Float64frombits(p.gate.Load())
}

// SetGate replaces the gate threshold. Negative disables gating.
// Safe to call while the stream is running.
func (p *Publisher) SetGate(gate float64) {
	p.gate.Store(math.Float64bits(gate))
}

// Publish offers one scalar value to the render loop. It samples the cursor
// position, applies the gate, and performs a non-blocking send. It reports
// whether the reading was enqueued.
//
// Publish is called from the audio callback and must stay cheap: no locks are
// held across the channel send, and nothing here performs I/O.
func (p *Publisher) Publish(value float64) bool {
	r := Reading{
		Position: p.cursor.Get(),
		Value:    value,
		Time:     time.Now(),
	}
	p.last.Store(&r)

	if gate := p.Gate(); gate >= 0 && value <= gate {
		p.gated.Add(1)
		return false
	}

	select {
	case p.ch <- r:
		p.published.Add(1)
		return true
	default:
		p.dropped.Add(1)
		return false
	}
}

// Readings returns the receive side of the publish channel. The render loop
// drains it with a non-blocking poll each tick; it must never block on it.
func (p *Publisher) Readings() <-chan Reading {
	return p.ch
}

// Last returns the most recent reading offered to Publish, whether or not it
// passed the gate or fit in the channel. Used by the manual sample trigger.
// The second result is false until the first Publish call.
func (p *Publisher) Last() (Reading, bool) {
	r := p.last.Load()
	if r == nil {
		return Reading{}, false
	}
	return *r, true
}

// PublisherStats is a point-in-time snapshot of publish outcomes.
type PublisherStats struct {
	// Published counts readings enqueued for the render loop.
	Published uint64

	// Gated counts readings suppressed by the silence gate.
	Gated uint64

	// Dropped counts readings discarded because the channel was full.
	Dropped uint64
}

// Stats returns the current publish counters.
func (p *Publisher) Stats() PublisherStats {
	return PublisherStats{
		Published: p.published.Load(),
		Gated:     p.gated.Load(),
		Dropped:   p.dropped.Load(),
	}
}
