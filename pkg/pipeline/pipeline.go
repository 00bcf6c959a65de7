// Package pipeline turns a conversational response into placed canvas content.
//
// A [Pipeline] runs the action parser once over the response text, then
// synthesizes one element group per action in order. After each group is
// built its geometry is appended to the working snapshot, so groups produced
// from the same response never overlap each other or the existing canvas.
//
// A [Runner] wraps one conversational turn: it records the user's message in
// the session history, asks the provider for a reply under a timeout, and
// materializes the reply. A failed provider call materializes nothing.
//
// # Usage
//
//	p := pipeline.New(synth.New(placement.New()), pipeline.Options{})
//	res, err := p.Materialize(ctx, reply.Message, board.Snapshot(), synth.Hints{})
//	if err != nil {
//	    return err
//	}
//	for _, g := range res.Groups {
//	    // hand g.Members to the host canvas
//	}
//
// Neither type holds per-canvas state. Callers that share one mutable canvas
// between goroutines must serialize snapshot capture and insertion, for
// example through [canvas.Board.Apply].
package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/canvasflow/pkg/action"
	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/errors"
	"github.com/matzehuels/canvasflow/pkg/observability"
	"github.com/matzehuels/canvasflow/pkg/placement"
	"github.com/matzehuels/canvasflow/pkg/synth"
)

// =============================================================================
// Options and Results
// =============================================================================

// Options configures a [Pipeline].
type Options struct {
	// Transcript renders the cleaned message as an assistant chat bubble
	// after the action groups. Empty messages get no bubble.
	Transcript bool

	Logger *log.Logger
}

// Result is the output of one materialization.
type Result struct {
	CleanedMessage string           `json:"cleaned_message"`
	Groups         []canvas.Group   `json:"groups"`
	Actions        []action.Action  `json:"actions"`
	Dropped        []action.Dropped `json:"dropped,omitempty"`
	Stats          Stats            `json:"-"`
}

// Geometries returns the footprint of every group in the result.
func (r *Result) Geometries() []canvas.Geometry {
	var out []canvas.Geometry
	for _, g := range r.Groups {
		out = append(out, g.Geometries()...)
	}
	return out
}

// Stats contains materialization timings and counts.
type Stats struct {
	ParseTime      time.Duration
	SynthesizeTime time.Duration
	ActionCount    int
	DroppedCount   int
	ElementCount   int
}

// =============================================================================
// Pipeline
// =============================================================================

// Pipeline materializes conversational responses. It is safe for concurrent
// use against independent snapshots.
type Pipeline struct {
	synth      *synth.Synthesizer
	transcript bool
	logger     *log.Logger
}

// New creates a pipeline around s. A nil synthesizer gets a default one.
func New(s *synth.Synthesizer, opts Options) *Pipeline {
	if s == nil {
		s = synth.New(nil)
	}
	if opts.Logger == nil {
		opts.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Pipeline{synth: s, transcript: opts.Transcript, logger: opts.Logger}
}

// Materialize parses text and builds one group per action against snap.
// Sibling groups always avoid each other, whatever hints.AvoidOverlap says.
//
// The only errors come from invalid hints; malformed or unknown markers are
// dropped and reported in Result.Dropped.
func (p *Pipeline) Materialize(ctx context.Context, text string, snap canvas.Snapshot, hints synth.Hints) (res *Result, err error) {
	start := time.Now()
	hooks := observability.Pipeline()
	hooks.OnMaterializeStart(ctx, len(text))
	defer func() {
		n := 0
		if res != nil {
			n = len(res.Groups)
		}
		hooks.OnMaterializeComplete(ctx, n, time.Since(start), err)
	}()

	if err := validateHints(hints); err != nil {
		return nil, err
	}
	hints.AvoidOverlap = true

	parsed := action.Parse(text)
	res = &Result{
		CleanedMessage: parsed.CleanedMessage,
		Actions:        parsed.Actions,
		Dropped:        parsed.Dropped,
	}
	res.Stats.ParseTime = time.Since(start)
	res.Stats.ActionCount = len(parsed.Actions)
	res.Stats.DroppedCount = len(parsed.Dropped)
	hooks.OnParseComplete(ctx, len(parsed.Actions), len(parsed.Dropped), res.Stats.ParseTime)

	for _, d := range parsed.Dropped {
		p.logger.Debug("dropped action marker", "kind", d.Kind, "reason", d.Reason, "offset", d.Offset)
	}

	synthStart := time.Now()
	working := snap
	for _, a := range parsed.Actions {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		g, err := p.synthesize(ctx, string(a.Kind), func() (canvas.Group, error) {
			return p.synth.Synthesize(a, working, hints)
		})
		if err != nil {
			return nil, err
		}
		res.Groups = append(res.Groups, g)
		working = working.With(g.Geometries()...)
	}

	if p.transcript && res.CleanedMessage != "" {
		g, err := p.Bubble(ctx, synth.RoleAssistant, res.CleanedMessage, working, hints)
		if err != nil {
			return nil, err
		}
		res.Groups = append(res.Groups, g)
	}

	res.Stats.SynthesizeTime = time.Since(synthStart)
	for _, g := range res.Groups {
		res.Stats.ElementCount += len(g.Members)
	}
	p.logger.Debug("materialized response",
		"actions", res.Stats.ActionCount,
		"dropped", res.Stats.DroppedCount,
		"groups", len(res.Groups),
		"duration", time.Since(start))
	return res, nil
}

// Bubble builds a chat bubble for one conversation turn against snap.
func (p *Pipeline) Bubble(ctx context.Context, role synth.Role, text string, snap canvas.Snapshot, hints synth.Hints) (canvas.Group, error) {
	hints.AvoidOverlap = true
	return p.synthesize(ctx, synth.KindChat, func() (canvas.Group, error) {
		return p.synth.ChatBubble(role, text, snap, hints)
	})
}

func (p *Pipeline) synthesize(ctx context.Context, kind string, fn func() (canvas.Group, error)) (canvas.Group, error) {
	start := time.Now()
	g, err := fn()
	observability.Pipeline().OnSynthesizeComplete(ctx, kind, time.Since(start), err)
	return g, err
}

func validateHints(h synth.Hints) error {
	if h.Strategy != "" {
		if _, err := placement.ParseStrategy(string(h.Strategy)); err != nil {
			return err
		}
	}
	if h.NoteColor != "" {
		if _, err := synth.NoteSwatch(h.NoteColor); err != nil {
			return err
		}
	}
	if h.Anchor != nil && (h.Anchor.Width < 0 || h.Anchor.Height < 0) {
		return errors.New(errors.ErrCodeInvalidInput, "anchor has negative size")
	}
	return nil
}
