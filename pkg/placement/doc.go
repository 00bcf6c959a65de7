// Package placement positions new content relative to existing content on
// an infinite canvas.
//
// A [Solver] is an explicit value owned by its caller; there is no shared
// package-level instance. Every call takes the existing geometry and the
// viewport as arguments, so a Solver holds no mutable state and can be used
// from several goroutines against independent snapshots.
//
// # Strategies
//
//   - [ViewportCenter] centers the element in the visible viewport and, when
//     overlap avoidance is requested, searches outward in rings.
//   - [Grid] snaps a preferred point to the grid and walks a spiral of grid
//     cells until one is free.
//   - [Flow] appends to the right of the rightmost element, wrapping to a
//     new row past a maximum row width.
//   - [Proximity] tries five offsets around an anchor element and falls back
//     to Flow.
//
// Searches are bounded. When a bound is reached the solver returns a
// best-effort coordinate instead of failing; such results may overlap.
//
// # Overlap
//
// A candidate overlaps an existing rectangle when the candidate, inflated by
// the padding on every side, intersects it on both axes. Rectangles that only
// touch do not overlap. Increasing the padding can only turn a free position
// into an overlapping one.
package placement
