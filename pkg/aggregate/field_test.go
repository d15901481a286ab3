package aggregate

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/MrWong99/soundfield/pkg/capture"
)

func at(x, v float64) capture.Reading {
	return capture.Reading{Position: capture.Position{X: x}, Value: v}
}

func TestField_RoundedPositionOverwrites(t *testing.T) {
	t.Parallel()

	f := NewField(2, false)

	// Both round to 1.00; the later reading wins.
	f.Ingest(at(1.001, 0.5))
	f.Ingest(at(1.004, 0.7))

	snap := f.Snapshot()
	if len(snap) != 1 {
		t.Fatalf("record count = %d, want 1", len(snap))
	}
	if snap[0].Position.X != 1.00 {
		t.Errorf("position = %v, want 1.00", snap[0].Position.X)
	}
	if snap[0].Value != 0.7 {
		t.Errorf("amplitude = %v, want 0.7", snap[0].Value)
	}
}

func TestField_DistinctBucketsAppend(t *testing.T) {
	t.Parallel()

	f := NewField(2, false)
	f.Ingest(at(1.001, 0.5))
	f.Ingest(at(1.006, 0.7)) // rounds to 1.01

	if f.Len() != 2 {
		t.Errorf("record count = %d, want 2", f.Len())
	}
}

func TestField_SnapshotSortedByPosition(t *testing.T) {
	t.Parallel()

	f := NewField(2, false)
	rng := rand.New(rand.NewSource(1))
	xs := rng.Perm(50)
	for _, x := range xs {
		f.Ingest(at(float64(x)/10, float64(x)))
	}

	snap := f.Snapshot()
	for i := 1; i < len(snap); i++ {
		if snap[i].Position.X < snap[i-1].Position.X {
			t.Fatalf("snapshot not sorted at %d: %v after %v",
				i, snap[i].Position.X, snap[i-1].Position.X)
		}
	}
}

func TestField_SnapshotSortsYWithinEqualX(t *testing.T) {
	t.Parallel()

	f := NewField(2, false)
	f.Ingest(capture.Reading{Position: capture.Position{X: 1, Y: 0.5}, Value: 0.2})
	f.Ingest(capture.Reading{Position: capture.Position{X: 1, Y: -0.5}, Value: 0.3})
	f.Ingest(capture.Reading{Position: capture.Position{X: 0.5, Y: 0}, Value: 0.4})

	snap := f.Snapshot()
	if snap[0].Position.X != 0.5 {
		t.Errorf("snap[0] = %+v, want X=0.5 first", snap[0])
	}
	if snap[1].Position.Y != -0.5 || snap[2].Position.Y != 0.5 {
		t.Errorf("equal X not ordered by Y: %+v, %+v", snap[1], snap[2])
	}
}

func TestField_LockedIngestLeavesSnapshotUnchanged(t *testing.T) {
	t.Parallel()

	f := NewField(2, false)
	f.Ingest(at(1.0, 0.5))
	before := f.Snapshot()

	f.SetLocked(true)
	for i := range 100 {
		f.Ingest(at(float64(i), 0.9))
	}

	after := f.Snapshot()
	if len(after) != len(before) {
		t.Fatalf("record count changed under lock: %d → %d", len(before), len(after))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("record %d changed under lock: %+v → %+v", i, before[i], after[i])
		}
	}
}

func TestField_StartLockedDiscardsUntilUnlocked(t *testing.T) {
	t.Parallel()

	f := NewField(2, true)
	f.Ingest(at(1.0, 0.5))
	if f.Len() != 0 {
		t.Errorf("locked field recorded %d readings, want 0", f.Len())
	}

	f.SetLocked(false)
	f.Ingest(at(1.0, 0.5))
	if f.Len() != 1 {
		t.Errorf("unlocked field recorded %d readings, want 1", f.Len())
	}
}

func TestField_ForceIngestBypassesLock(t *testing.T) {
	t.Parallel()

	f := NewField(2, true)
	f.ForceIngest(at(2.0, 0.4))
	if f.Len() != 1 {
		t.Errorf("ForceIngest under lock recorded %d, want 1", f.Len())
	}
}

func TestField_ResetClearsRecordsKeepsLockState(t *testing.T) {
	t.Parallel()

	f := NewField(2, false)
	f.Ingest(at(1.0, 0.5))
	f.Reset()

	if f.Len() != 0 {
		t.Errorf("Len after Reset = %d, want 0", f.Len())
	}
	if f.Locked() {
		t.Error("Reset must not engage the lock")
	}

	// The dedup index is rebuilt: re-ingesting the same bucket appends once.
	f.Ingest(at(1.0, 0.6))
	f.Ingest(at(1.0, 0.7))
	if f.Len() != 1 {
		t.Errorf("Len after reuse = %d, want 1", f.Len())
	}
}

func TestField_PrecisionZero(t *testing.T) {
	t.Parallel()

	f := NewField(0, false)
	f.Ingest(at(1.4, 0.5))
	f.Ingest(at(0.6, 0.7)) // both round to 1

	snap := f.Snapshot()
	if len(snap) != 1 || snap[0].Position.X != 1 || snap[0].Value != 0.7 {
		t.Errorf("snapshot = %+v, want single record at 1 with 0.7", snap)
	}
}

// TestField_ConcurrentIngestSnapshot hammers a field from an ingest goroutine
// and a snapshot goroutine. Every ingested record satisfies
// Value == Position.X + 1000, so a torn record (fields from two different
// updates) is detectable in any snapshot.
func TestField_ConcurrentIngestSnapshot(t *testing.T) {
	t.Parallel()

	f := NewField(2, false)

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		rng := rand.New(rand.NewSource(7))
		for range 5000 {
			x := float64(rng.Intn(200)) / 100
			f.Ingest(at(x, x+1000))
		}
	}()

	go func() {
		defer wg.Done()
		for range 500 {
			for _, rec := range f.Snapshot() {
				if rec.Value != rec.Position.X+1000 {
					t.Errorf("torn record: %+v", rec)
					return
				}
			}
		}
	}()

	wg.Wait()
}
