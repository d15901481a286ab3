// Package ui provides the interactive terminal front-end for soundfield.
//
// The Bubbletea model polls the pipeline on a fixed tick and renders the
// aggregated amplitude trace, a live level meter, and the cursor state. It
// talks to the pipeline only through the narrow [Controller] interface, so
// the capture and aggregation core carry no rendering concerns.
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrWong99/soundfield/internal/config"
	"github.com/MrWong99/soundfield/pkg/aggregate"
	"github.com/MrWong99/soundfield/pkg/capture"
)

// Controller is the pipeline surface the view drives. *app.App satisfies it.
type Controller interface {
	Mode() config.Mode
	Streaming() bool
	CursorPos() capture.Position
	MoveCursor(dx, dy float64) capture.Position
	ToggleLock() bool
	Locked() bool
	Sample() (capture.Reading, bool)
	Reset()
	Snapshot() []aggregate.Record
	LastReading() (capture.Reading, bool)
	PublisherStats() capture.PublisherStats
	StreamInfo() capture.StreamInfo
}

// statusTTL is how long transient status messages stay visible.
const statusTTL = 3 * time.Second

// Model is the Bubbletea model for the soundfield view.
type Model struct {
	ctrl     Controller
	interval time.Duration

	plot  *plot
	meter *meter

	width  int
	height int

	records []aggregate.Record

	status     string
	statusTime time.Time

	quitting bool
}

// New creates a Model polling ctrl every refresh interval.
func New(ctrl Controller, refresh time.Duration) Model {
	if refresh <= 0 {
		refresh = 30 * time.Millisecond
	}
	return Model{
		ctrl:     ctrl,
		interval: refresh,
		plot:     newPlot(),
		meter:    newMeter(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(tickCmd(m.interval), tea.SetWindowTitle("soundfield"))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		m.records = m.ctrl.Snapshot()
		if m.status != "" && time.Since(m.statusTime) > statusTTL {
			m.status = ""
		}
		return m, tickCmd(m.interval)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		m.quitting = true
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)

	case "up", "w":
		m.ctrl.MoveCursor(0, 1)
	case "down", "s":
		m.ctrl.MoveCursor(0, -1)
	case "left", "a":
		m.ctrl.MoveCursor(-1, 0)
	case "right", "d":
		m.ctrl.MoveCursor(1, 0)

	case " ":
		if r, ok := m.ctrl.Sample(); ok {
			m.setStatus(fmt.Sprintf("sampled %.3f at (%.2f, %.2f)", r.Value, r.Position.X, r.Position.Y))
		} else {
			m.setStatus("nothing to sample yet")
		}

	case "l":
		if m.ctrl.Mode() == config.ModeField {
			if m.ctrl.ToggleLock() {
				m.setStatus("ingestion locked")
			} else {
				m.setStatus("ingestion unlocked")
			}
		}

	case "r":
		m.ctrl.Reset()
		m.setStatus("cleared")
	}

	return m, nil
}

func (m *Model) setStatus(s string) {
	m.status = s
	m.statusTime = time.Now()
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	w := m.width
	if w < 30 {
		w = 80
	}
	plotHeight := m.height - 6
	if plotHeight < 4 {
		plotHeight = 12
	}

	info := m.ctrl.StreamInfo()
	header := headerStyle.Render("soundfield") + "  " +
		modeStyle.Render(string(m.ctrl.Mode())) + "  " +
		statusStyle.Render(fmt.Sprintf("%s %.0f Hz", info.Backend, info.SampleRate))
	if !m.ctrl.Streaming() {
		header += "  " + lockedStyle.Render("stream down")
	}

	var level float64
	if r, ok := m.ctrl.LastReading(); ok {
		level = r.Value
	}
	pos := m.ctrl.CursorPos()
	meterLine := meterStyle.Render(m.meter.render(level, 24)) + "  " +
		statusStyle.Render(fmt.Sprintf("cursor (%.2f, %.2f)", pos.X, pos.Y))
	if m.ctrl.Mode() == config.ModeField {
		if m.ctrl.Locked() {
			meterLine += "  " + lockedStyle.Render("locked")
		} else {
			meterLine += "  " + unlockedStyle.Render("live")
		}
	}

	chart := plotStyle.Render(m.plot.render(m.records, w, plotHeight, 1.0))

	stats := m.ctrl.PublisherStats()
	footer := statusStyle.Render(fmt.Sprintf(
		"records %d  published %d  gated %d  dropped %d",
		len(m.records), stats.Published, stats.Gated, stats.Dropped,
	))
	if m.status != "" {
		footer += "  " + statusStyle.Render(m.status)
	}

	help := helpStyle.Render("arrows/wasd move · space sample · l lock · r reset · q quit")

	return lipgloss.JoinVertical(lipgloss.Left, header, meterLine, chart, footer, help)
}
