package canvas

import "math"

// Geometry is a scene-space rectangle anchored at its top-left corner.
// Width and Height are never negative.
type Geometry struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Rect returns a Geometry, clamping negative dimensions to zero.
func Rect(x, y, width, height float64) Geometry {
	return Geometry{X: x, Y: y, Width: math.Max(0, width), Height: math.Max(0, height)}
}

// Right returns the x coordinate of the right edge.
func (g Geometry) Right() float64 { return g.X + g.Width }

// Bottom returns the y coordinate of the bottom edge.
func (g Geometry) Bottom() float64 { return g.Y + g.Height }

// CenterX returns the horizontal center point.
func (g Geometry) CenterX() float64 { return g.X + g.Width/2 }

// CenterY returns the vertical center point.
func (g Geometry) CenterY() float64 { return g.Y + g.Height/2 }

// At returns a copy of g moved so its top-left corner is p.
func (g Geometry) At(p Point) Geometry {
	g.X, g.Y = p.X, p.Y
	return g
}

// Point is a scene-space coordinate. It is the result type of placement.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p translated by (dx, dy).
func (p Point) Add(dx, dy float64) Point { return Point{X: p.X + dx, Y: p.Y + dy} }

// Viewport describes the host's visible window onto the canvas.
type Viewport struct {
	ScrollX            float64  `json:"scroll_x"`
	ScrollY            float64  `json:"scroll_y"`
	Zoom               float64  `json:"zoom"`
	Width              float64  `json:"width"`
	Height             float64  `json:"height"`
	SelectedElementIDs []string `json:"selected_element_ids,omitempty"`
}

// ZoomValue returns the zoom factor, treating non-positive values as 1.
func (v Viewport) ZoomValue() float64 {
	if v.Zoom <= 0 {
		return 1
	}
	return v.Zoom
}

// Center returns the scene-space point under the middle of the viewport.
func (v Viewport) Center() Point {
	z := v.ZoomValue()
	return Point{
		X: -v.ScrollX + v.Width/2/z,
		Y: -v.ScrollY + v.Height/2/z,
	}
}

// Snapshot is the existing geometry and viewport a placement is solved
// against. Snapshots are values: callers build one per materialization and
// extend it with [Snapshot.With] between sibling placements.
type Snapshot struct {
	Existing []Geometry `json:"existing"`
	Viewport Viewport   `json:"viewport"`
}

// With returns a copy of s with gs appended to the existing geometry.
// The receiver's backing array is never written to.
func (s Snapshot) With(gs ...Geometry) Snapshot {
	existing := make([]Geometry, 0, len(s.Existing)+len(gs))
	existing = append(existing, s.Existing...)
	existing = append(existing, gs...)
	return Snapshot{Existing: existing, Viewport: s.Viewport}
}

// BoundingBox is the axis-aligned hull of a set of rectangles.
type BoundingBox struct {
	MinX   float64 `json:"min_x"`
	MinY   float64 `json:"min_y"`
	MaxX   float64 `json:"max_x"`
	MaxY   float64 `json:"max_y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Bounds returns the bounding box of gs, or nil when gs is empty.
func Bounds(gs []Geometry) *BoundingBox {
	if len(gs) == 0 {
		return nil
	}
	bb := BoundingBox{
		MinX: math.Inf(1), MinY: math.Inf(1),
		MaxX: math.Inf(-1), MaxY: math.Inf(-1),
	}
	for _, g := range gs {
		bb.MinX = math.Min(bb.MinX, g.X)
		bb.MinY = math.Min(bb.MinY, g.Y)
		bb.MaxX = math.Max(bb.MaxX, g.Right())
		bb.MaxY = math.Max(bb.MaxY, g.Bottom())
	}
	bb.Width = bb.MaxX - bb.MinX
	bb.Height = bb.MaxY - bb.MinY
	return &bb
}

// Geometry converts the box back to a rectangle.
func (b BoundingBox) Geometry() Geometry {
	return Rect(b.MinX, b.MinY, b.Width, b.Height)
}
