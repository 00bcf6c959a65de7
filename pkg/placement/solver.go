package placement

import (
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/errors"
)

// Strategy names a placement algorithm.
type Strategy string

// Placement strategies.
const (
	ViewportCenter Strategy = "viewport-center"
	Grid           Strategy = "grid"
	Flow           Strategy = "flow"
	Proximity      Strategy = "proximity"
)

// DefaultStrategy is used when a request names no strategy.
const DefaultStrategy = ViewportCenter

const (
	// GridSize is the grid unit used by [Snap] and the grid strategy.
	GridSize = 50.0

	// Step is the ring spacing of the nearest-free search.
	Step = 50.0

	// DefaultPadding is the gap required between elements when a request
	// leaves Padding at zero.
	DefaultPadding = 20.0

	// MaxGridAttempts bounds the grid spiral walk.
	MaxGridAttempts = 100

	// MaxRings bounds the nearest-free ring search.
	MaxRings = 20

	// MaxRowWidth is the right edge past which flow placement wraps.
	MaxRowWidth = 2000.0
)

// Strategies lists every strategy in a stable order.
var Strategies = []Strategy{ViewportCenter, Grid, Flow, Proximity}

// ParseStrategy validates a strategy name. The empty string selects
// [DefaultStrategy].
func ParseStrategy(s string) (Strategy, error) {
	if s == "" {
		return DefaultStrategy, nil
	}
	for _, st := range Strategies {
		if Strategy(s) == st {
			return st, nil
		}
	}
	return "", errors.New(errors.ErrCodeInvalidStrategy,
		"invalid strategy: %q (must be one of: viewport-center, grid, flow, proximity)", s)
}

// Request describes the element to place.
type Request struct {
	Width    float64  `json:"width"`
	Height   float64  `json:"height"`
	Strategy Strategy `json:"strategy,omitempty"`

	// Padding is the required gap to existing content. Zero selects
	// DefaultPadding; a negative value requests no gap.
	Padding float64 `json:"padding,omitempty"`

	AvoidOverlap bool `json:"avoid_overlap,omitempty"`

	// Anchor is the element proximity placement positions against.
	Anchor *canvas.Geometry `json:"anchor,omitempty"`

	// Preferred is the grid strategy's starting point (default origin).
	Preferred *canvas.Point `json:"preferred,omitempty"`
}

// EffectivePadding resolves the request's padding.
func (r Request) EffectivePadding() float64 {
	switch {
	case r.Padding < 0:
		return 0
	case r.Padding == 0:
		return DefaultPadding
	default:
		return r.Padding
	}
}

// Option configures a [Solver].
type Option func(*Solver)

// WithLogger sets the logger that receives best-effort fallback events.
func WithLogger(l *log.Logger) Option { return func(s *Solver) { s.logger = l } }

// WithMaxRowWidth overrides the flow wrap width.
func WithMaxRowWidth(w float64) Option { return func(s *Solver) { s.maxRowWidth = w } }

// WithMaxGridAttempts overrides the grid spiral cap.
func WithMaxGridAttempts(n int) Option { return func(s *Solver) { s.maxGridAttempts = max(1, n) } }

// WithMaxRings overrides the nearest-free ring cap.
func WithMaxRings(n int) Option { return func(s *Solver) { s.maxRings = max(1, n) } }

// Solver computes positions for new elements. The zero value is not usable;
// construct one with [New].
type Solver struct {
	logger          *log.Logger
	maxRowWidth     float64
	maxGridAttempts int
	maxRings        int
}

// New creates a Solver with the package defaults.
func New(opts ...Option) *Solver {
	s := &Solver{
		maxRowWidth:     MaxRowWidth,
		maxGridAttempts: MaxGridAttempts,
		maxRings:        MaxRings,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return s
}

// Solve returns the top-left corner for req given the existing geometry and
// viewport. It never fails; an unknown strategy is treated as the default.
func (s *Solver) Solve(existing []canvas.Geometry, vp canvas.Viewport, req Request) canvas.Point {
	switch req.Strategy {
	case Grid:
		return s.grid(existing, req)
	case Flow:
		return s.flow(existing, req)
	case Proximity:
		return s.proximity(existing, req)
	default:
		return s.viewportCenter(existing, vp, req)
	}
}

// SolveSnapshot is Solve over a snapshot.
func (s *Solver) SolveSnapshot(snap canvas.Snapshot, req Request) canvas.Point {
	return s.Solve(snap.Existing, snap.Viewport, req)
}

func (s *Solver) viewportCenter(existing []canvas.Geometry, vp canvas.Viewport, req Request) canvas.Point {
	c := vp.Center()
	p := canvas.Point{X: c.X - req.Width/2, Y: c.Y - req.Height/2}
	if !req.AvoidOverlap {
		return p
	}
	return s.NearestFree(p, existing, req)
}

// ringDirections are probed in order at each radius: four cardinal then four
// diagonal.
var ringDirections = [8][2]float64{
	{1, 0}, {0, 1}, {-1, 0}, {0, -1},
	{1, 1}, {-1, 1}, {-1, -1}, {1, -1},
}

// NearestFree returns preferred when it is free, otherwise the first free
// point on rings of radius k*Step around it. When every ring is exhausted it
// returns preferred offset by one Step on both axes, which may overlap.
func (s *Solver) NearestFree(preferred canvas.Point, existing []canvas.Geometry, req Request) canvas.Point {
	pad := req.EffectivePadding()
	if s.free(preferred, existing, req, pad) {
		return preferred
	}
	for ring := 1; ring <= s.maxRings; ring++ {
		d := float64(ring) * Step
		for _, dir := range ringDirections {
			p := preferred.Add(dir[0]*d, dir[1]*d)
			if s.free(p, existing, req, pad) {
				return p
			}
		}
	}
	fallback := preferred.Add(Step, Step)
	s.logger.Debug("placement search exhausted", "rings", s.maxRings, "x", fallback.X, "y", fallback.Y)
	return fallback
}

// spiralDirections cycle right, down, left, up.
var spiralDirections = [4][2]float64{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}

func (s *Solver) grid(existing []canvas.Geometry, req Request) canvas.Point {
	start := canvas.Point{}
	if req.Preferred != nil {
		start = *req.Preferred
	}
	start = SnapPoint(start)
	if !req.AvoidOverlap {
		return start
	}

	pad := req.EffectivePadding()
	p := start
	for attempt := 0; attempt < s.maxGridAttempts; attempt++ {
		if attempt > 0 {
			dir := spiralDirections[(attempt-1)%4]
			mag := float64((attempt-1)/4+1) * GridSize
			p = start.Add(dir[0]*mag, dir[1]*mag)
		}
		if s.free(p, existing, req, pad) {
			return p
		}
	}
	s.logger.Debug("grid search exhausted", "attempts", s.maxGridAttempts, "x", p.X, "y", p.Y)
	return p
}

func (s *Solver) flow(existing []canvas.Geometry, req Request) canvas.Point {
	pad := req.EffectivePadding()
	if len(existing) == 0 {
		return canvas.Point{X: pad, Y: pad}
	}

	rightmost := existing[0]
	lowest := existing[0].Bottom()
	for _, g := range existing[1:] {
		if g.Right() > rightmost.Right() {
			rightmost = g
		}
		lowest = max(lowest, g.Bottom())
	}

	p := canvas.Point{X: rightmost.Right() + pad, Y: rightmost.Y}
	if p.X+req.Width > s.maxRowWidth {
		p = canvas.Point{X: pad, Y: lowest + pad}
	}
	return p
}

func (s *Solver) proximity(existing []canvas.Geometry, req Request) canvas.Point {
	if req.Anchor == nil {
		return s.flow(existing, req)
	}
	a := *req.Anchor
	pad := req.EffectivePadding()

	candidates := [5]canvas.Point{
		{X: a.X + a.Width + pad, Y: a.Y},                  // right
		{X: a.X, Y: a.Y + a.Height + pad},                 // below
		{X: a.X - a.Width - pad, Y: a.Y},                  // left
		{X: a.X, Y: a.Y - a.Height - pad},                 // above
		{X: a.X + a.Width + pad, Y: a.Y + a.Height + pad}, // diagonal bottom-right
	}
	for _, p := range candidates {
		if s.free(p, existing, req, pad) {
			return p
		}
	}
	return s.flow(existing, req)
}

func (s *Solver) free(p canvas.Point, existing []canvas.Geometry, req Request, pad float64) bool {
	return !HasOverlap(canvas.Rect(p.X, p.Y, req.Width, req.Height), existing, pad)
}

// String implements fmt.Stringer.
func (st Strategy) String() string { return string(st) }
