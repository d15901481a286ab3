package capture

import "sync"

// Bounds delimits the rectangle a [Cursor] may move in.
type Bounds struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Cursor holds the externally tracked position associated with new readings.
// The render loop moves it; the capture callback reads it at publish time.
// The lock is held only for the duration of a field read or write.
//
// Safe for concurrent use.
type Cursor struct {
	mu     sync.Mutex
	pos    Position
	bounds Bounds
	step   float64
}

// NewCursor creates a cursor at the origin of b (clamped inside), moving by
// step per [Cursor.Move] unit. A step <= 0 defaults to 0.05.
func NewCursor(b Bounds, step float64) *Cursor {
	if step <= 0 {
		step = 0.05
	}
	c := &Cursor{bounds: b, step: step}
	c.pos = c.clamp(Position{})
	return c
}

// Get returns the current position.
func (c *Cursor) Get() Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Set moves the cursor to p, clamped to the bounds.
func (c *Cursor) Set(p Position) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = c.clamp(p)
}

// Move shifts the cursor by (dx, dy) steps and returns the new position.
func (c *Cursor) Move(dx, dy float64) Position {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = c.clamp(Position{
		X: c.pos.X + dx*c.step,
		Y: c.pos.Y + dy*c.step,
	})
	return c.pos
}

// Step returns the movement increment.
func (c *Cursor) Step() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.step
}

// Bounds returns the movement rectangle.
func (c *Cursor) Bounds() Bounds {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bounds
}

func (c *Cursor) clamp(p Position) Position {
	if p.X < c.bounds.MinX {
		p.X = c.bounds.MinX
	}
	if p.X > c.bounds.MaxX {
		p.X = c.bounds.MaxX
	}
	if p.Y < c.bounds.MinY {
		p.Y = c.bounds.MinY
	}
	if p.Y > c.bounds.MaxY {
		p.Y = c.bounds.MaxY
	}
	return p
}
