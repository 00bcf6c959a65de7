package cli

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/errors"
	"github.com/matzehuels/canvasflow/pkg/placement"
)

// placeOpts holds the command-line flags for the place command.
type placeOpts struct {
	snapshot     string
	width        float64
	height       float64
	strategy     string
	padding      float64
	avoidOverlap bool
	anchor       string // "x,y,w,h"
	preferred    string // "x,y"
	snap         bool
	jsonOut      bool
}

// placeCommand creates the place command.
func (c *CLI) placeCommand() *cobra.Command {
	opts := placeOpts{width: 300, height: 200, avoidOverlap: true}

	cmd := &cobra.Command{
		Use:   "place",
		Short: "Solve one placement against a canvas snapshot",
		Long: `Compute where a new element of the given size would be placed.

Strategies: viewport-center (default), grid, flow, proximity.

Examples:
  canvasflow place --snapshot canvas.json --width 400 --height 150
  canvasflow place --strategy proximity --anchor 0,0,200,100 --snapshot canvas.json
  canvasflow place --strategy grid --preferred 120,80`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			req, err := opts.request()
			if err != nil {
				return err
			}
			snap, err := loadSnapshot(opts.snapshot, cfg)
			if err != nil {
				return err
			}

			solver := placement.New(append(cfg.Placement.SolverOptions(), placement.WithLogger(c.Logger))...)
			p := solver.SolveSnapshot(snap, req)
			if opts.snap {
				p = placement.SnapPoint(p)
			}

			if opts.jsonOut {
				return writeJSON(os.Stdout, p)
			}
			printKeyValue("strategy", string(req.Strategy))
			printKeyValue("position", fmt.Sprintf("%g, %g", p.X, p.Y))
			if placement.HasOverlap(canvas.Rect(p.X, p.Y, req.Width, req.Height), snap.Existing, 0) {
				printWarning("No free spot found; the position overlaps existing content")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.snapshot, "snapshot", "s", "", "canvas snapshot JSON (- for stdin)")
	cmd.Flags().Float64Var(&opts.width, "width", opts.width, "element width")
	cmd.Flags().Float64Var(&opts.height, "height", opts.height, "element height")
	cmd.Flags().StringVar(&opts.strategy, "strategy", "", "placement strategy")
	cmd.Flags().Float64Var(&opts.padding, "padding", 0, "gap to existing content (0 = default, negative = none)")
	cmd.Flags().BoolVar(&opts.avoidOverlap, "avoid-overlap", opts.avoidOverlap, "search for a free spot")
	cmd.Flags().StringVar(&opts.anchor, "anchor", "", "proximity anchor as x,y,w,h")
	cmd.Flags().StringVar(&opts.preferred, "preferred", "", "grid start point as x,y")
	cmd.Flags().BoolVar(&opts.snap, "snap", false, "snap the result to the grid")
	cmd.Flags().BoolVar(&opts.jsonOut, "json", false, "print JSON")

	return cmd
}

// request validates the flags and builds a placement request.
func (o *placeOpts) request() (placement.Request, error) {
	st, err := placement.ParseStrategy(o.strategy)
	if err != nil {
		return placement.Request{}, err
	}
	if err := errors.ValidateDimension("width", o.width); err != nil {
		return placement.Request{}, err
	}
	if err := errors.ValidateDimension("height", o.height); err != nil {
		return placement.Request{}, err
	}
	req := placement.Request{
		Width:        o.width,
		Height:       o.height,
		Strategy:     st,
		Padding:      o.padding,
		AvoidOverlap: o.avoidOverlap,
	}
	if o.anchor != "" {
		v, err := parseFloats(o.anchor, 4)
		if err != nil {
			return placement.Request{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "--anchor")
		}
		g := canvas.Rect(v[0], v[1], v[2], v[3])
		req.Anchor = &g
	}
	if o.preferred != "" {
		v, err := parseFloats(o.preferred, 2)
		if err != nil {
			return placement.Request{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "--preferred")
		}
		req.Preferred = &canvas.Point{X: v[0], Y: v[1]}
	}
	return req, nil
}

// parseFloats parses exactly n comma-separated numbers.
func parseFloats(s string, n int) ([]float64, error) {
	parts := strings.Split(s, ",")
	if len(parts) != n {
		return nil, fmt.Errorf("want %d comma-separated numbers, got %q", n, s)
	}
	out := make([]float64, n)
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}
