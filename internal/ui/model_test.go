package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/MrWong99/soundfield/internal/config"
	"github.com/MrWong99/soundfield/pkg/aggregate"
	"github.com/MrWong99/soundfield/pkg/capture"
)

// fakeController records calls so key handling can be asserted without a
// running pipeline.
type fakeController struct {
	mode      config.Mode
	streaming bool
	locked    bool
	pos       capture.Position
	records   []aggregate.Record
	reading   capture.Reading
	hasRead   bool

	moves   []capture.Position
	samples int
	toggles int
	resets  int
}

func (f *fakeController) Mode() config.Mode           { return f.mode }
func (f *fakeController) Streaming() bool             { return f.streaming }
func (f *fakeController) CursorPos() capture.Position { return f.pos }

func (f *fakeController) MoveCursor(dx, dy float64) capture.Position {
	f.pos.X += dx
	f.pos.Y += dy
	f.moves = append(f.moves, capture.Position{X: dx, Y: dy})
	return f.pos
}

func (f *fakeController) ToggleLock() bool {
	f.toggles++
	f.locked = !f.locked
	return f.locked
}

func (f *fakeController) Locked() bool { return f.locked }

func (f *fakeController) Sample() (capture.Reading, bool) {
	f.samples++
	return f.reading, f.hasRead
}

func (f *fakeController) Reset() { f.resets++ }

func (f *fakeController) Snapshot() []aggregate.Record { return f.records }

func (f *fakeController) LastReading() (capture.Reading, bool) { return f.reading, f.hasRead }

func (f *fakeController) PublisherStats() capture.PublisherStats {
	return capture.PublisherStats{Published: 7, Gated: 2, Dropped: 1}
}

func (f *fakeController) StreamInfo() capture.StreamInfo {
	return capture.StreamInfo{Backend: "synth", SampleRate: 44100, Channels: 1}
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "up", "down", "left", "right", "esc":
		types := map[string]tea.KeyType{
			"up": tea.KeyUp, "down": tea.KeyDown,
			"left": tea.KeyLeft, "right": tea.KeyRight,
			"esc": tea.KeyEsc,
		}
		return tea.KeyMsg{Type: types[s]}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestQuitKeysStopTheProgram(t *testing.T) {
	for _, key := range []string{"q", "esc"} {
		m := New(&fakeController{mode: config.ModeWaveform}, 0)
		next, cmd := m.Update(keyPress(key))
		if !next.(Model).quitting {
			t.Fatalf("key %q: expected quitting model", key)
		}
		if cmd == nil {
			t.Fatalf("key %q: expected quit command", key)
		}
	}
}

func TestArrowKeysMoveCursor(t *testing.T) {
	ctrl := &fakeController{mode: config.ModeField}
	m := New(ctrl, 0)

	m.Update(keyPress("up"))
	m.Update(keyPress("right"))
	m.Update(keyPress("down"))
	m.Update(keyPress("left"))

	want := []capture.Position{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 0, Y: -1}, {X: -1, Y: 0}}
	if len(ctrl.moves) != len(want) {
		t.Fatalf("expected %d moves, got %d", len(want), len(ctrl.moves))
	}
	for i, w := range want {
		if ctrl.moves[i] != w {
			t.Fatalf("move %d: expected %+v, got %+v", i, w, ctrl.moves[i])
		}
	}
}

func TestSpaceTriggersManualSample(t *testing.T) {
	ctrl := &fakeController{
		mode:    config.ModeField,
		reading: capture.Reading{Value: 0.42},
		hasRead: true,
	}
	m := New(ctrl, 0)

	next, _ := m.Update(keyPress(" "))
	if ctrl.samples != 1 {
		t.Fatalf("expected one sample call, got %d", ctrl.samples)
	}
	if status := next.(Model).status; !strings.Contains(status, "0.420") {
		t.Fatalf("expected sampled value in status, got %q", status)
	}
}

func TestSpaceWithoutReadingReportsIt(t *testing.T) {
	ctrl := &fakeController{mode: config.ModeField}
	m := New(ctrl, 0)

	next, _ := m.Update(keyPress(" "))
	if status := next.(Model).status; !strings.Contains(status, "nothing to sample") {
		t.Fatalf("expected empty-sample status, got %q", status)
	}
}

func TestLockToggleOnlyInFieldMode(t *testing.T) {
	field := &fakeController{mode: config.ModeField}
	m := New(field, 0)
	m.Update(keyPress("l"))
	if field.toggles != 1 {
		t.Fatalf("expected toggle in field mode, got %d calls", field.toggles)
	}

	wave := &fakeController{mode: config.ModeWaveform}
	m = New(wave, 0)
	m.Update(keyPress("l"))
	if wave.toggles != 0 {
		t.Fatalf("expected no toggle in waveform mode, got %d calls", wave.toggles)
	}
}

func TestResetKeyClearsAggregator(t *testing.T) {
	ctrl := &fakeController{mode: config.ModeWaveform}
	m := New(ctrl, 0)

	m.Update(keyPress("r"))
	if ctrl.resets != 1 {
		t.Fatalf("expected one reset call, got %d", ctrl.resets)
	}
}

func TestTickRefreshesSnapshotAndReschedules(t *testing.T) {
	ctrl := &fakeController{
		mode:    config.ModeWaveform,
		records: []aggregate.Record{{Value: 0.1}, {Value: 0.2}},
	}
	m := New(ctrl, 10*time.Millisecond)

	next, cmd := m.Update(tickMsg(time.Now()))
	if got := len(next.(Model).records); got != 2 {
		t.Fatalf("expected 2 records after tick, got %d", got)
	}
	if cmd == nil {
		t.Fatal("expected tick to reschedule itself")
	}
}

func TestWindowSizeIsStored(t *testing.T) {
	m := New(&fakeController{mode: config.ModeWaveform}, 0)

	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	got := next.(Model)
	if got.width != 120 || got.height != 40 {
		t.Fatalf("expected 120x40, got %dx%d", got.width, got.height)
	}
}

func TestViewShowsStreamAndLockState(t *testing.T) {
	ctrl := &fakeController{
		mode:      config.ModeField,
		streaming: true,
		locked:    true,
		pos:       capture.Position{X: 1.25, Y: -0.5},
		reading:   capture.Reading{Value: 0.3},
		hasRead:   true,
	}
	m := New(ctrl, 0)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})

	view := next.(Model).View()
	for _, want := range []string{"soundfield", "field", "synth", "locked", "(1.25, -0.50)", "published 7"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected view to contain %q, got:\n%s", want, view)
		}
	}
}

func TestViewFlagsStoppedStream(t *testing.T) {
	ctrl := &fakeController{mode: config.ModeWaveform, streaming: false}
	m := New(ctrl, 0)

	if view := m.View(); !strings.Contains(view, "stream down") {
		t.Fatalf("expected stream warning in view, got:\n%s", view)
	}
}
