// Package synth converts parsed actions into groups of primitive canvas
// elements.
//
// Each content kind is sized from its text: the longest line, measured in
// terminal display cells, sets the width and the line count sets the height.
// Both are clamped to per-kind bounds so a group is never empty or
// degenerate. Prose kinds (notes and chat bubbles) are word-wrapped to the
// column count that fits their maximum width before measuring.
//
// A [Synthesizer] never picks coordinates itself. It hands the computed size
// and the caller's [Hints] to a [placement.Solver] and lays the members out
// relative to the returned corner.
//
// Every member of a group carries the group's id as its GroupID. Ids come
// from an [IDAllocator]; the default allocates random UUIDs and
// [SequenceAllocator] gives deterministic ids for tests and fixtures.
package synth
