// Package diagram measures Graphviz DOT sources so DIAGRAM content can be
// sized from the laid-out graph instead of its source text.
//
// [Measurer] implements the synthesizer's measurement seam. Sources that are
// not DOT (Mermaid, ASCII art, prose) are reported as unrecognized and the
// caller falls back to text sizing.
package diagram
