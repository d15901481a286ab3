package aggregate

import (
	"testing"

	"github.com/MrWong99/soundfield/pkg/capture"
)

func reading(v float64) capture.Reading {
	return capture.Reading{Value: v}
}

func TestWindow_RetainsLast500InArrivalOrder(t *testing.T) {
	t.Parallel()

	w := NewWindow(0) // default capacity 500

	for i := range 650 {
		w.Ingest(reading(float64(i)))
	}

	snap := w.Snapshot()
	if len(snap) != 500 {
		t.Fatalf("snapshot length = %d, want 500", len(snap))
	}
	for i, rec := range snap {
		want := float64(150 + i) // values 150..649
		if rec.Value != want {
			t.Fatalf("snap[%d].Value = %v, want %v", i, rec.Value, want)
		}
	}
}

func TestWindow_PartialFill(t *testing.T) {
	t.Parallel()

	w := NewWindow(10)
	for i := range 3 {
		w.Ingest(reading(float64(i)))
	}

	snap := w.Snapshot()
	if len(snap) != 3 {
		t.Fatalf("snapshot length = %d, want 3", len(snap))
	}
	for i, rec := range snap {
		if rec.Value != float64(i) {
			t.Errorf("snap[%d].Value = %v, want %v", i, rec.Value, float64(i))
		}
		if rec.Position.X != float64(i) {
			t.Errorf("snap[%d].Position.X = %v, want arrival index %d", i, rec.Position.X, i)
		}
	}
}

func TestWindow_IgnoresReadingPositions(t *testing.T) {
	t.Parallel()

	w := NewWindow(4)
	w.Ingest(capture.Reading{Position: capture.Position{X: 99, Y: 42}, Value: 0.5})

	snap := w.Snapshot()
	if snap[0].Position.X != 0 || snap[0].Position.Y != 0 {
		t.Errorf("window snapshot position = %+v, want arrival index {0 0}", snap[0].Position)
	}
}

func TestWindow_Reset(t *testing.T) {
	t.Parallel()

	w := NewWindow(4)
	w.Ingest(reading(1))
	w.Ingest(reading(2))
	w.Reset()

	if w.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", w.Len())
	}
	if len(w.Snapshot()) != 0 {
		t.Error("snapshot after Reset should be empty")
	}

	// The window stays usable after a reset.
	w.Ingest(reading(3))
	if snap := w.Snapshot(); len(snap) != 1 || snap[0].Value != 3 {
		t.Errorf("snapshot after reuse = %v", snap)
	}
}

func TestWindow_CapAndLen(t *testing.T) {
	t.Parallel()

	w := NewWindow(7)
	if w.Cap() != 7 {
		t.Errorf("Cap = %d, want 7", w.Cap())
	}
	for range 20 {
		w.Ingest(reading(0.1))
	}
	if w.Len() != 7 {
		t.Errorf("Len = %d, want 7", w.Len())
	}
}

func TestDrain_ConsumesPendingWithoutWaiting(t *testing.T) {
	t.Parallel()

	ch := make(chan capture.Reading, 8)
	ch <- reading(0.1)
	ch <- reading(0.2)
	ch <- reading(0.3)

	w := NewWindow(10)
	if n := Drain(ch, w); n != 3 {
		t.Errorf("Drain = %d, want 3", n)
	}
	if w.Len() != 3 {
		t.Errorf("window length = %d, want 3", w.Len())
	}

	// Empty channel: returns immediately with zero.
	if n := Drain(ch, w); n != 0 {
		t.Errorf("Drain on empty channel = %d, want 0", n)
	}
}
