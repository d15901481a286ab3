package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/harmonica"
)

// meter is a horizontal level bar with spring smoothing, used for the live
// amplitude readout next to the cursor position.
type meter struct {
	spring harmonica.Spring
	pos    float64
	vel    float64
}

func newMeter() *meter {
	return &meter{spring: harmonica.NewSpring(harmonica.FPS(30), 10.0, 0.9)}
}

// render eases the bar toward level (0..1) and returns it at the given width
// with a numeric suffix.
func (m *meter) render(level float64, width int) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	m.pos, m.vel = m.spring.Update(m.pos, m.vel, level)

	if width < 4 {
		width = 4
	}
	filled := int(m.pos * float64(width))
	if filled > width {
		filled = width
	}
	if filled < 0 {
		filled = 0
	}

	var b strings.Builder
	b.WriteString(strings.Repeat("█", filled))
	b.WriteString(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %.3f", b.String(), level)
}
