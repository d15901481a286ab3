package ui

import (
	"math"
	"strings"

	"github.com/charmbracelet/harmonica"

	"github.com/MrWong99/soundfield/pkg/aggregate"
)

// springField applies critically interpolated spring smoothing to a row of
// plot columns, so the trace eases toward new targets instead of jumping.
type springField struct {
	spring harmonica.Spring
	pos    []float64
	vel    []float64
}

func newSpringField(fps int, frequency, damping float64) springField {
	return springField{spring: harmonica.NewSpring(harmonica.FPS(fps), frequency, damping)}
}

func (s *springField) resize(n int) {
	if len(s.pos) == n {
		return
	}
	s.pos = make([]float64, n)
	s.vel = make([]float64, n)
}

func (s *springField) step(i int, target float64) float64 {
	p, v := s.spring.Update(s.pos[i], s.vel[i], target)
	s.pos[i] = p
	s.vel[i] = v
	return p
}

// plot renders aggregator snapshots as a terminal line chart. Records are
// resampled across the available columns, spring-smoothed, and connected
// column to column so the trace reads as one continuous line.
type plot struct {
	field springField
}

func newPlot() *plot {
	return &plot{field: newSpringField(30, 14.0, 0.8)}
}

// render draws records into a width x height cell grid and returns it as a
// newline-joined string. maxValue scales the vertical axis; values above it
// clip to the top row.
func (p *plot) render(records []aggregate.Record, width, height int, maxValue float64) string {
	if width < 4 || height < 2 {
		return ""
	}
	if maxValue <= 0 {
		maxValue = 1
	}

	cols := width
	p.field.resize(cols)

	targets := resample(records, cols)
	for c := range cols {
		p.field.step(c, targets[c]/maxValue)
	}

	mask := make([][]uint8, height)
	for r := range mask {
		mask[r] = make([]uint8, cols)
	}

	// Baseline along the bottom row.
	for c := range cols {
		mask[height-1][c] = 2
	}

	prev := valueToRow(p.field.pos[0], height)
	for c := 1; c < cols; c++ {
		row := valueToRow(p.field.pos[c], height)
		drawLineMask(mask, c-1, prev, c, row)
		prev = row
	}

	var out strings.Builder
	for r := range height {
		if r > 0 {
			out.WriteByte('\n')
		}
		for c := range cols {
			switch mask[r][c] {
			case 1:
				out.WriteRune('●')
			case 2:
				out.WriteRune('·')
			default:
				out.WriteByte(' ')
			}
		}
	}
	return out.String()
}

// resample reduces (or stretches) the record values onto cols columns, Each
// column takes the mean of the records it covers.
func resample(records []aggregate.Record, cols int) []float64 {
	out := make([]float64, cols)
	if len(records) == 0 {
		return out
	}

	rpc := float64(len(records)) / float64(cols)
	for c := range cols {
		lo := int(float64(c) * rpc)
		hi := int(float64(c+1) * rpc)
		if hi <= lo {
			hi = lo + 1
		}
		if hi > len(records) {
			hi = len(records)
		}
		if lo >= len(records) {
			out[c] = records[len(records)-1].Value
			continue
		}

		var sum float64
		for i := lo; i < hi; i++ {
			sum += records[i].Value
		}
		out[c] = sum / float64(hi-lo)
	}
	return out
}

// valueToRow maps a normalized amplitude (0..1) to a grid row, 0 at the top.
func valueToRow(v float64, height int) int {
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	row := int(math.Round((1 - v) * float64(height-1)))
	if row < 0 {
		row = 0
	}
	if row >= height {
		row = height - 1
	}
	return row
}

// drawLineMask rasterizes a line between two columns with Bresenham's
// algorithm, marking trace cells over baseline cells.
func drawLineMask(mask [][]uint8, x0, y0, x1, y1 int) {
	maxY := len(mask)
	if maxY == 0 {
		return
	}
	maxX := len(mask[0])

	dx := absInt(x1 - x0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	dy := -absInt(y1 - y0)
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx + dy

	for {
		if y0 >= 0 && y0 < maxY && x0 >= 0 && x0 < maxX {
			mask[y0][x0] = 1
		}
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
