package placement

import (
	"math"

	"github.com/matzehuels/canvasflow/pkg/canvas"
)

// Overlaps reports whether candidate, inflated by padding on all sides,
// intersects other.
func Overlaps(candidate, other canvas.Geometry, padding float64) bool {
	return candidate.X-padding < other.Right() &&
		other.X < candidate.Right()+padding &&
		candidate.Y-padding < other.Bottom() &&
		other.Y < candidate.Bottom()+padding
}

// HasOverlap reports whether candidate overlaps any of existing.
func HasOverlap(candidate canvas.Geometry, existing []canvas.Geometry, padding float64) bool {
	for _, g := range existing {
		if Overlaps(candidate, g, padding) {
			return true
		}
	}
	return false
}

// BoundingBox returns the hull of gs, or nil for an empty set.
func BoundingBox(gs []canvas.Geometry) *canvas.BoundingBox {
	return canvas.Bounds(gs)
}

// Snap rounds v to the nearest multiple of GridSize. Halves round away from
// zero, so the rule is symmetric for negative values.
func Snap(v float64) float64 {
	return SnapTo(v, GridSize)
}

// SnapTo rounds v to the nearest multiple of unit. A non-positive unit
// returns v unchanged.
func SnapTo(v, unit float64) float64 {
	if unit <= 0 {
		return v
	}
	// +0 normalizes negative zero.
	return math.Round(v/unit)*unit + 0
}

// SnapPoint snaps both coordinates of p to the grid.
func SnapPoint(p canvas.Point) canvas.Point {
	return canvas.Point{X: Snap(p.X), Y: Snap(p.Y)}
}
