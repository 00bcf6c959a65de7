package synth

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/canvasflow/pkg/action"
	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/errors"
	"github.com/matzehuels/canvasflow/pkg/placement"
)

// KindChat is the group kind of a chat bubble.
const KindChat = "CHAT"

// Hints are the caller's placement and styling preferences for one group.
type Hints struct {
	Strategy     placement.Strategy `json:"strategy,omitempty"`
	Padding      float64            `json:"padding,omitempty"`
	AvoidOverlap bool               `json:"avoid_overlap,omitempty"`
	Anchor       *canvas.Geometry   `json:"anchor,omitempty"`
	Preferred    *canvas.Point      `json:"preferred,omitempty"`

	// NoteColor selects the note palette entry (default yellow).
	NoteColor string `json:"note_color,omitempty"`
}

// Request builds the placement request for a container of the given size.
func (h Hints) Request(width, height float64) placement.Request {
	return placement.Request{
		Width:        width,
		Height:       height,
		Strategy:     h.Strategy,
		Padding:      h.Padding,
		AvoidOverlap: h.AvoidOverlap,
		Anchor:       h.Anchor,
		Preferred:    h.Preferred,
	}
}

// DiagramMeasurer reports the natural size of a diagram source. ok is false
// when the source is not in a format the measurer understands.
type DiagramMeasurer interface {
	MeasureDiagram(source string) (width, height float64, ok bool)
}

// Option configures a [Synthesizer].
type Option func(*Synthesizer)

// WithIDAllocator sets the id source (default [UUIDAllocator]).
func WithIDAllocator(a IDAllocator) Option { return func(s *Synthesizer) { s.ids = a } }

// WithDiagramMeasurer sets the measurer consulted for DIAGRAM actions.
func WithDiagramMeasurer(m DiagramMeasurer) Option { return func(s *Synthesizer) { s.measurer = m } }

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option { return func(s *Synthesizer) { s.logger = l } }

// Synthesizer turns actions into element groups. It is safe for concurrent
// use when its IDAllocator is.
type Synthesizer struct {
	solver   *placement.Solver
	ids      IDAllocator
	measurer DiagramMeasurer
	logger   *log.Logger
}

// New creates a Synthesizer that positions groups with solver. A nil solver
// gets a default one.
func New(solver *placement.Solver, opts ...Option) *Synthesizer {
	if solver == nil {
		solver = placement.New()
	}
	s := &Synthesizer{solver: solver, ids: UUIDAllocator{}}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return s
}

// Synthesize builds the group for a, placed against snap.
func (s *Synthesizer) Synthesize(a action.Action, snap canvas.Snapshot, hints Hints) (canvas.Group, error) {
	switch a.Kind {
	case action.KindCode:
		code := a.Code
		if code == nil {
			code = &action.CodePayload{Language: action.DefaultLanguage, Code: a.Text}
		}
		return s.code(*code, snap, hints), nil
	case action.KindTerminal:
		return s.terminal(a.Text, snap, hints), nil
	case action.KindNote:
		return s.note(a.Text, snap, hints)
	case action.KindDiagram:
		return s.diagram(a.Text, snap, hints), nil
	default:
		return canvas.Group{}, errors.New(errors.ErrCodeInvalidKind, "unsupported action kind: %q", a.Kind)
	}
}

// ChatBubble builds a rounded bubble for one conversation turn with a role
// label above it.
func (s *Synthesizer) ChatBubble(role Role, text string, snap canvas.Snapshot, hints Hints) (canvas.Group, error) {
	sw, ok := RolePalette[role]
	if !ok {
		return canvas.Group{}, errors.New(errors.ErrCodeInvalidRole, "invalid role: %q", role)
	}

	body := Wrap(text, BubbleMetrics.Columns())
	w, h := BubbleMetrics.Size(Measure(body), bubbleChrome)
	p := s.place(snap, hints, w, h+roleLabel)

	align := "left"
	if role == RoleUser {
		align = "right"
	}

	b := s.newGroup(KindChat)
	b.text(canvas.Rect(p.X, p.Y, w, roleLabel), role.Label(), FontNormal, 12, "#868e96", align, "bottom")
	b.rect(canvas.Rect(p.X, p.Y+roleLabel, w, h), canvas.Style{
		StrokeColor:     sw.Border,
		BackgroundColor: sw.Background,
		FillStyle:       canvas.FillSolid,
		StrokeWidth:     1,
		Roundness:       16,
	})
	b.text(canvas.Rect(p.X+bubblePad, p.Y+roleLabel+bubblePad, w-2*bubblePad, h-bubbleChrome),
		body, FontNormal, BubbleMetrics.FontSize, sw.Foreground, "left", "top")
	return s.finish(b), nil
}

// =============================================================================
// Per-kind builders
// =============================================================================

func (s *Synthesizer) code(c action.CodePayload, snap canvas.Snapshot, hints Hints) canvas.Group {
	header := c.Language != "" && c.Language != action.DefaultLanguage
	chrome := codePlain
	if header {
		chrome = codeChrome
	}

	w, h := CodeMetrics.Size(Measure(c.Code), chrome)
	p := s.place(snap, hints, w, h)

	b := s.newGroup(string(action.KindCode))
	b.rect(canvas.Rect(p.X, p.Y, w, h), canvas.Style{
		StrokeColor:     codeSwatch.Border,
		BackgroundColor: codeSwatch.Background,
		FillStyle:       canvas.FillSolid,
		StrokeWidth:     1,
		Roundness:       8,
	})

	top := p.Y + inset
	if header {
		b.text(canvas.Rect(p.X+inset, top, w-2*inset, codeHeader), c.Language,
			FontMonospace, 12, codeHeaderText, "left", "middle")
		top += codeHeader
		b.line(canvas.Rect(p.X, top, w, 0), codeSwatch.Border)
	}
	b.text(canvas.Rect(p.X+inset, top, w-2*inset, p.Y+h-inset-top), expandTabs(c.Code),
		FontMonospace, CodeMetrics.FontSize, codeSwatch.Foreground, "left", "top")
	return s.finish(b)
}

func (s *Synthesizer) terminal(text string, snap canvas.Snapshot, hints Hints) canvas.Group {
	w, h := TerminalMetrics.Size(Measure(text), termChrome)
	p := s.place(snap, hints, w, h)

	b := s.newGroup(string(action.KindTerminal))
	b.rect(canvas.Rect(p.X, p.Y, w, h), canvas.Style{
		StrokeColor:     terminalSwatch.Border,
		BackgroundColor: terminalSwatch.Background,
		FillStyle:       canvas.FillSolid,
		StrokeWidth:     1,
		Roundness:       6,
	})
	b.rect(canvas.Rect(p.X, p.Y, w, termBar), canvas.Style{
		StrokeColor:     terminalSwatch.Border,
		BackgroundColor: terminalBar,
		FillStyle:       canvas.FillSolid,
		StrokeWidth:     1,
	})
	b.text(canvas.Rect(p.X+inset, p.Y, w-2*inset, termBar), "Terminal",
		FontMonospace, 12, terminalTitle, "left", "middle")
	b.text(canvas.Rect(p.X+inset, p.Y+termBar+inset, w-2*inset, h-termChrome), expandTabs(text),
		FontMonospace, TerminalMetrics.FontSize, terminalSwatch.Foreground, "left", "top")
	return s.finish(b)
}

func (s *Synthesizer) note(text string, snap canvas.Snapshot, hints Hints) (canvas.Group, error) {
	sw, err := NoteSwatch(hints.NoteColor)
	if err != nil {
		return canvas.Group{}, err
	}

	body := Wrap(text, NoteMetrics.Columns())
	w, h := NoteMetrics.Size(Measure(body), noteChrome)
	p := s.place(snap, hints, w, h)

	b := s.newGroup(string(action.KindNote))
	b.rect(canvas.Rect(p.X, p.Y, w, h), canvas.Style{
		StrokeColor:     sw.Border,
		BackgroundColor: sw.Background,
		FillStyle:       canvas.FillSolid,
		StrokeWidth:     2,
		Roundness:       2,
	})
	b.text(canvas.Rect(p.X+notePad, p.Y+notePad, w-2*notePad, h-noteChrome), body,
		FontHandwritten, NoteMetrics.FontSize, sw.Foreground, "left", "top")
	return s.finish(b), nil
}

func (s *Synthesizer) diagram(source string, snap canvas.Snapshot, hints Hints) canvas.Group {
	m := DiagramMetrics
	var w, h float64
	if mw, mh, ok := s.measure(source); ok {
		w = clamp(mw+2*diagramPad, m.MinWidth, m.MaxWidth)
		h = clamp(mh+diagramChrome, m.MinHeight, m.MaxHeight)
	} else {
		w, h = m.Size(Measure(source), diagramChrome)
	}
	p := s.place(snap, hints, w, h)

	b := s.newGroup(string(action.KindDiagram))
	b.rect(canvas.Rect(p.X, p.Y, w, h), canvas.Style{
		StrokeColor:     diagramSwatch.Border,
		BackgroundColor: diagramSwatch.Background,
		FillStyle:       canvas.FillSolid,
		StrokeWidth:     2,
		Roundness:       4,
	})
	b.text(canvas.Rect(p.X+diagramPad, p.Y+diagramPad, w-2*diagramPad, diagramTitle), "Diagram",
		FontNormal, 14, diagramSwatch.Border, "left", "middle")
	b.text(canvas.Rect(p.X+diagramPad, p.Y+diagramPad+diagramTitle, w-2*diagramPad, h-diagramChrome),
		expandTabs(source), FontMonospace, m.FontSize, diagramSwatch.Foreground, "left", "top")
	return s.finish(b)
}

func (s *Synthesizer) measure(source string) (w, h float64, ok bool) {
	if s.measurer == nil {
		return 0, 0, false
	}
	w, h, ok = s.measurer.MeasureDiagram(source)
	if ok && (w <= 0 || h <= 0) {
		return 0, 0, false
	}
	return w, h, ok
}

// =============================================================================
// Group assembly
// =============================================================================

func (s *Synthesizer) place(snap canvas.Snapshot, hints Hints, w, h float64) canvas.Point {
	return s.solver.SolveSnapshot(snap, hints.Request(w, h))
}

type builder struct {
	ids   IDAllocator
	group canvas.Group
}

func (s *Synthesizer) newGroup(kind string) *builder {
	return &builder{ids: s.ids, group: canvas.Group{ID: s.ids.Next(), Kind: kind}}
}

func (b *builder) base(g canvas.Geometry, st canvas.Style) canvas.Base {
	return canvas.Base{ID: b.ids.Next(), GroupID: b.group.ID, Geometry: g, Style: st}
}

func (b *builder) rect(g canvas.Geometry, st canvas.Style) {
	b.group.Members = append(b.group.Members, &canvas.Rectangle{Base: b.base(g, st)})
}

func (b *builder) text(g canvas.Geometry, content, font string, size float64, color, align, valign string) {
	st := canvas.Style{StrokeColor: color, BackgroundColor: "transparent", FillStyle: canvas.FillNone}
	b.group.Members = append(b.group.Members, &canvas.Text{
		Base:          b.base(g, st),
		Content:       content,
		FontFamily:    font,
		FontSize:      size,
		TextAlign:     align,
		VerticalAlign: valign,
	})
}

// line adds a horizontal rule spanning g's width.
func (b *builder) line(g canvas.Geometry, color string) {
	st := canvas.Style{StrokeColor: color, BackgroundColor: "transparent", FillStyle: canvas.FillNone, StrokeWidth: 1}
	b.group.Members = append(b.group.Members, &canvas.Line{
		Base:   b.base(g, st),
		Points: []canvas.Point{{X: 0, Y: 0}, {X: g.Width, Y: 0}},
	})
}

func (s *Synthesizer) finish(b *builder) canvas.Group {
	if bb := b.group.Bounds(); bb != nil {
		s.logger.Debug("synthesized group", "kind", b.group.Kind, "id", b.group.ID,
			"x", bb.MinX, "y", bb.MinY, "w", bb.Width, "h", bb.Height)
	}
	return b.group
}
