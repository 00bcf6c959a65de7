package diagram

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/goccy/go-graphviz"
)

// Measurer lays out DOT graphs with Graphviz and reports their size in
// scene units (one SVG point per unit).
type Measurer struct {
	logger *log.Logger
}

// NewMeasurer creates a Measurer. A nil logger discards output.
func NewMeasurer(logger *log.Logger) *Measurer {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Measurer{logger: logger}
}

// MeasureDiagram returns the laid-out size of a DOT source. ok is false for
// non-DOT sources and for DOT that fails to parse or render.
func (m *Measurer) MeasureDiagram(source string) (width, height float64, ok bool) {
	if !IsDOT(source) {
		return 0, 0, false
	}
	w, h, err := Measure(context.Background(), source)
	if err != nil {
		m.logger.Debug("diagram measurement failed", "error", err)
		return 0, 0, false
	}
	return w, h, true
}

var dotHeaderRe = regexp.MustCompile(`(?is)^\s*(strict\s+)?(di)?graph\b[^{]*\{`)

// IsDOT reports whether source starts like a DOT graph definition.
func IsDOT(source string) bool {
	return dotHeaderRe.MatchString(source)
}

// Measure renders source to SVG and returns the width and height of its
// view box.
func Measure(ctx context.Context, source string) (width, height float64, err error) {
	svg, err := RenderSVG(ctx, source)
	if err != nil {
		return 0, 0, err
	}
	w, h, ok := viewBoxSize(svg)
	if !ok {
		return 0, 0, fmt.Errorf("svg has no usable viewBox")
	}
	return w, h, nil
}

// RenderSVG renders a DOT graph to SVG using Graphviz.
func RenderSVG(ctx context.Context, source string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(strings.TrimSpace(source)))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return buf.Bytes(), nil
}

var viewBoxRe = regexp.MustCompile(`viewBox="(-?[0-9.]+)\s+(-?[0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)

func viewBoxSize(svg []byte) (w, h float64, ok bool) {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return 0, 0, false
	}
	w, _ = strconv.ParseFloat(string(match[3]), 64)
	h, _ = strconv.ParseFloat(string(match[4]), 64)
	if w <= 0 || h <= 0 {
		return 0, 0, false
	}
	return w, h, true
}
