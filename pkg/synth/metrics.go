package synth

import "math"

// Metrics holds the sizing constants of one content kind.
type Metrics struct {
	FontSize   float64
	CharWidth  float64 // advance per display cell, as a fraction of FontSize
	LineHeight float64 // as a fraction of FontSize

	MinWidth, MaxWidth   float64
	MinHeight, MaxHeight float64
}

// Size computes the clamped container size for an extent plus chrome height.
func (m Metrics) Size(e Extent, chrome float64) (w, h float64) {
	w = clamp(float64(e.Columns)*m.FontSize*m.CharWidth, m.MinWidth, m.MaxWidth)
	h = clamp(float64(max(1, e.Lines))*m.FontSize*m.LineHeight+chrome, m.MinHeight, m.MaxHeight)
	return w, h
}

// Columns returns how many display cells fit in the maximum width.
func (m Metrics) Columns() int {
	return max(1, int(math.Floor(m.MaxWidth/(m.FontSize*m.CharWidth))))
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return max(lo, min(hi, v))
}

// Per-kind metrics.
var (
	CodeMetrics = Metrics{
		FontSize: 14, CharWidth: 0.6, LineHeight: 1.5,
		MinWidth: 300, MaxWidth: 800, MinHeight: 100, MaxHeight: 600,
	}
	TerminalMetrics = Metrics{
		FontSize: 14, CharWidth: 0.6, LineHeight: 1.4,
		MinWidth: 400, MaxWidth: 800, MinHeight: 150, MaxHeight: 500,
	}
	NoteMetrics = Metrics{
		FontSize: 16, CharWidth: 0.55, LineHeight: 1.5,
		MinWidth: 200, MaxWidth: 400, MinHeight: 150, MaxHeight: 400,
	}
	DiagramMetrics = Metrics{
		FontSize: 14, CharWidth: 0.6, LineHeight: 1.4,
		MinWidth: 300, MaxWidth: 900, MinHeight: 200, MaxHeight: 700,
	}
	BubbleMetrics = Metrics{
		FontSize: 16, CharWidth: 0.55, LineHeight: 1.5,
		MinWidth: 120, MaxWidth: 500, MinHeight: 50, MaxHeight: 600,
	}
)

// Layout constants shared by the builders.
const (
	inset = 10.0 // inner padding of code and terminal containers

	codeHeader    = 20.0
	codeChrome    = 2*inset + codeHeader
	codePlain     = 2 * inset
	termBar       = 30.0
	termChrome    = termBar + 2*inset
	notePad       = 20.0
	noteChrome    = 2 * notePad
	diagramTitle  = 24.0
	diagramPad    = 8.0
	diagramChrome = diagramTitle + 2*diagramPad
	bubblePad     = 12.0
	bubbleChrome  = 2 * bubblePad
	roleLabel     = 20.0
)

// Font families understood by hosts.
const (
	FontMonospace   = "Cascadia"
	FontHandwritten = "Virgil"
	FontNormal      = "Helvetica"
)
