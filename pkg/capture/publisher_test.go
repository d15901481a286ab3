package capture

import (
	"testing"
)

func newTestPublisher(buffer int, gate float64) *Publisher {
	return NewPublisher(buffer, gate, NewCursor(testBounds(), 0.05))
}

func TestPublisher_GateSuppressesNearSilence(t *testing.T) {
	t.Parallel()

	p := newTestPublisher(4, 0.01)

	if p.Publish(0.005) {
		t.Error("reading below gate should not publish")
	}
	if p.Publish(0.01) {
		t.Error("reading equal to gate should not publish")
	}
	if !p.Publish(0.02) {
		t.Error("reading above gate should publish")
	}

	s := p.Stats()
	if s.Gated != 2 || s.Published != 1 {
		t.Errorf("stats = %+v, want Gated=2 Published=1", s)
	}
	if len(p.Readings()) != 1 {
		t.Errorf("channel holds %d readings, want 1", len(p.Readings()))
	}
}

func TestPublisher_NegativeGateDisablesGating(t *testing.T) {
	t.Parallel()

	p := newTestPublisher(4, -1)
	if !p.Publish(0) {
		t.Error("zero reading should publish when gating is disabled")
	}
}

func TestPublisher_DropsNewestOnFullChannel(t *testing.T) {
	t.Parallel()

	p := newTestPublisher(2, -1)

	p.Publish(0.1)
	p.Publish(0.2)
	if p.Publish(0.3) {
		t.Error("publish into a full channel should report false")
	}

	s := p.Stats()
	if s.Published != 2 || s.Dropped != 1 {
		t.Errorf("stats = %+v, want Published=2 Dropped=1", s)
	}

	// The two retained readings are the oldest, in order.
	r1 := <-p.Readings()
	r2 := <-p.Readings()
	if r1.Value != 0.1 || r2.Value != 0.2 {
		t.Errorf("retained readings = %v, %v, want 0.1, 0.2", r1.Value, r2.Value)
	}
}

func TestPublisher_StampsCursorPositionAtPublishTime(t *testing.T) {
	t.Parallel()

	cursor := NewCursor(testBounds(), 0.05)
	p := NewPublisher(8, -1, cursor)

	cursor.Set(Position{X: 1.5})
	p.Publish(0.2)
	cursor.Set(Position{X: 7.25, Y: 0.5})
	p.Publish(0.3)

	r1 := <-p.Readings()
	r2 := <-p.Readings()
	if r1.Position.X != 1.5 || r1.Position.Y != 0 {
		t.Errorf("first reading position = %+v, want {1.5 0}", r1.Position)
	}
	if r2.Position.X != 7.25 || r2.Position.Y != 0.5 {
		t.Errorf("second reading position = %+v, want {7.25 0.5}", r2.Position)
	}
}

func TestPublisher_LastSeesGatedReadings(t *testing.T) {
	t.Parallel()

	p := newTestPublisher(4, 0.5)

	if _, ok := p.Last(); ok {
		t.Error("Last should report false before any publish")
	}

	p.Publish(0.1) // gated
	last, ok := p.Last()
	if !ok || last.Value != 0.1 {
		t.Errorf("Last = %+v, %v; want value 0.1, true", last, ok)
	}
}

func TestPublisher_DefaultBuffer(t *testing.T) {
	t.Parallel()

	p := newTestPublisher(0, -1)
	if cap(p.Readings()) != DefaultBuffer {
		t.Errorf("default channel capacity = %d, want %d", cap(p.Readings()), DefaultBuffer)
	}
}

func TestPublisher_SetGate(t *testing.T) {
	t.Parallel()

	p := newTestPublisher(4, 0.5)

	if p.Publish(0.3) {
		t.Error("0.3 should be gated at threshold 0.5")
	}

	p.SetGate(0.1)
	if g := p.Gate(); g != 0.1 {
		t.Errorf("Gate() = %v, want 0.1", g)
	}
	if !p.Publish(0.3) {
		t.Error("0.3 should pass after lowering the gate to 0.1")
	}

	p.SetGate(-1)
	if !p.Publish(0.0) {
		t.Error("gate disabled; silence should pass")
	}
}
