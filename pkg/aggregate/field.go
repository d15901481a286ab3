package aggregate

import (
	"math"
	"sort"
	"sync"

	"github.com/MrWong99/soundfield/pkg/capture"
)

// DefaultPrecision is the number of decimal digits positions are rounded to
// before deduplication.
const DefaultPrecision = 2

// Field is the positional aggregator. Each reading's position is quantized
// to a fixed decimal precision; a reading at an already-occupied quantized
// position overwrites the stored amplitude, otherwise a new record is
// appended. Records are therefore unique by quantized position.
//
// Dedup is an O(1) map lookup on the quantized bucket, never a linear scan,
// so floating-point rounding can never match more than one stored record.
//
// A lock flag, toggled by the consumer, gates ingestion entirely: while
// locked every delivered reading is discarded without mutating state, so no
// stale backlog flushes in once unlocked.
//
// Records keep insertion order internally; [Field.Snapshot] sorts by
// position ascending (X, then Y) for a connected, non-self-intersecting
// line. Equal X values keep their insertion order relative to each other.
//
// Safe for concurrent use.
type Field struct {
	mu      sync.Mutex
	records []Record
	index   map[bucket]int // quantized position → records index
	locked  bool
	scale   float64
}

type bucket struct {
	x, y int64
}

// NewField creates a field aggregator rounding positions to the given number
// of decimal digits. precision < 0 defaults to [DefaultPrecision]. The field
// starts in the locked state when startLocked is true.
func NewField(precision int, startLocked bool) *Field {
	if precision < 0 {
		precision = DefaultPrecision
	}
	return &Field{
		index:  make(map[bucket]int),
		locked: startLocked,
		scale:  math.Pow(10, float64(precision)),
	}
}

// Ingest applies one reading. While the field is locked the reading is
// discarded — the caller still drains its channel, this method just ignores
// the result.
func (f *Field) Ingest(r capture.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.locked {
		return
	}
	f.ingestLocked(r)
}

// ForceIngest applies one reading regardless of the lock flag. Used by the
// manual sample trigger, which is an explicit user action rather than part
// of the continuous stream.
func (f *Field) ForceIngest(r capture.Reading) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ingestLocked(r)
}

// ingestLocked quantizes, then overwrites or appends. Caller holds f.mu.
func (f *Field) ingestLocked(r capture.Reading) {
	b := bucket{
		x: int64(math.Round(r.Position.X * f.scale)),
		y: int64(math.Round(r.Position.Y * f.scale)),
	}
	if i, ok := f.index[b]; ok {
		f.records[i].Value = r.Value
		return
	}
	f.index[b] = len(f.records)
	f.records = append(f.records, Record{
		Position: capture.Position{
			X: float64(b.x) / f.scale,
			Y: float64(b.y) / f.scale,
		},
		Value: r.Value,
	})
}

// Snapshot returns a copy of the records sorted ascending by X, then Y.
// The sort is stable, so records that compare equal keep their prior
// relative order.
func (f *Field) Snapshot() []Record {
	f.mu.Lock()
	out := make([]Record, len(f.records))
	copy(out, f.records)
	f.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position.X != out[j].Position.X {
			return out[i].Position.X < out[j].Position.X
		}
		return out[i].Position.Y < out[j].Position.Y
	})
	return out
}

// Len returns the number of unique records.
func (f *Field) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

// Reset discards all records. The lock flag is unaffected.
func (f *Field) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = nil
	f.index = make(map[bucket]int)
}

// SetLocked engages or releases the ingestion gate.
func (f *Field) SetLocked(locked bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.locked = locked
}

// Locked reports whether ingestion is currently gated.
func (f *Field) Locked() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.locked
}
