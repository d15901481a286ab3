package app

import (
	"testing"
	"time"
)

func TestDrainStats_Counters(t *testing.T) {
	t.Parallel()

	ds := NewDrainStats(10)
	ds.RecordDrain(5, time.Millisecond)
	ds.RecordDrain(0, time.Millisecond)
	ds.RecordDrain(3, time.Millisecond)

	snap := ds.Snapshot()
	if snap.Batches != 3 {
		t.Errorf("Batches = %d, want 3", snap.Batches)
	}
	if snap.Readings != 8 {
		t.Errorf("Readings = %d, want 8", snap.Readings)
	}
}

func TestDrainStats_Percentiles(t *testing.T) {
	t.Parallel()

	ds := NewDrainStats(100)
	for i := 1; i <= 100; i++ {
		ds.RecordDrain(1, time.Duration(i)*time.Millisecond)
	}

	snap := ds.Snapshot()
	if snap.Tick.P50 != 50*time.Millisecond {
		t.Errorf("P50 = %v, want 50ms", snap.Tick.P50)
	}
	if snap.Tick.P95 != 95*time.Millisecond {
		t.Errorf("P95 = %v, want 95ms", snap.Tick.P95)
	}
}

func TestDrainStats_WindowEvictsOldSamples(t *testing.T) {
	t.Parallel()

	ds := NewDrainStats(4)
	// Four slow ticks, then four fast ones that fill the whole window.
	for i := 0; i < 4; i++ {
		ds.RecordDrain(1, time.Second)
	}
	for i := 0; i < 4; i++ {
		ds.RecordDrain(1, time.Millisecond)
	}

	snap := ds.Snapshot()
	if snap.Tick.P95 != time.Millisecond {
		t.Errorf("P95 = %v, want 1ms after slow samples evicted", snap.Tick.P95)
	}
	if snap.Batches != 8 {
		t.Errorf("Batches = %d, want 8", snap.Batches)
	}
}

func TestDrainStats_EmptySnapshot(t *testing.T) {
	t.Parallel()

	snap := NewDrainStats(0).Snapshot()
	if snap.Tick.P50 != 0 || snap.Tick.P95 != 0 {
		t.Errorf("empty percentiles = %+v, want zeros", snap.Tick)
	}
}
