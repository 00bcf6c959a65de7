package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/canvasflow/pkg/canvas"
	pkgio "github.com/matzehuels/canvasflow/pkg/io"
	"github.com/matzehuels/canvasflow/pkg/pipeline"
	"github.com/matzehuels/canvasflow/pkg/placement"
	"github.com/matzehuels/canvasflow/pkg/synth"
)

// contentOpts are the flags shared by commands that produce element groups.
type contentOpts struct {
	snapshot   string
	strategy   string
	padding    float64
	noteColor  string
	transcript bool
	output     string
}

func (o *contentOpts) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.snapshot, "snapshot", "s", "", "canvas snapshot JSON to place against (- for stdin)")
	cmd.Flags().StringVar(&o.strategy, "strategy", "", "placement strategy (default from config)")
	cmd.Flags().Float64Var(&o.padding, "padding", 0, "gap to existing content (default from config)")
	cmd.Flags().StringVar(&o.noteColor, "note-color", "", "note color")
	cmd.Flags().BoolVar(&o.transcript, "transcript", false, "also draw chat bubbles")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "write groups JSON to file (stdout if empty)")
}

// hints overlays the flags on the configured defaults.
func (o *contentOpts) hints(base synth.Hints) synth.Hints {
	if o.strategy != "" {
		base.Strategy = placement.Strategy(o.strategy)
	}
	if o.padding != 0 {
		base.Padding = o.padding
	}
	if o.noteColor != "" {
		base.NoteColor = o.noteColor
	}
	return base
}

// writeGroups writes groups to the output file or stdout.
func (o *contentOpts) writeGroups(groups []canvas.Group) error {
	if o.output == "" {
		return pkgio.WriteGroups(groups, os.Stdout)
	}
	if err := pkgio.ExportGroups(groups, o.output); err != nil {
		return err
	}
	printFile(o.output)
	printNextStep("Place more content next to it", "canvasflow materialize --snapshot "+o.output)
	return nil
}

// materializeCommand creates the materialize command.
func (c *CLI) materializeCommand() *cobra.Command {
	var opts contentOpts
	var text string

	cmd := &cobra.Command{
		Use:   "materialize [file|-]",
		Short: "Turn a reply into placed element groups",
		Long: `Parse a reply and build one placed element group per action marker.
Groups avoid the snapshot's existing content and each other.

Examples:
  canvasflow materialize reply.txt --snapshot canvas.json -o groups.json
  canvasflow materialize --text '[ACTION:TERMINAL]make test[/ACTION]' --strategy flow`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input, err := readInput(text, args, os.Stdin)
			if err != nil {
				return err
			}
			return c.runMaterialize(cmd.Context(), input, &opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&text, "text", "t", "", "reply text (instead of a file)")

	return cmd
}

func (c *CLI) runMaterialize(ctx context.Context, text string, opts *contentOpts) error {
	cfg, err := c.loadConfig()
	if err != nil {
		return err
	}
	snap, err := loadSnapshot(opts.snapshot, cfg)
	if err != nil {
		return err
	}

	prog := newProgress(loggerFromContext(ctx))
	res, err := c.newPipeline(cfg, opts.transcript).Materialize(ctx, text, snap, opts.hints(cfg.Placement.Hints()))
	if err != nil {
		return err
	}
	prog.done("Materialized", "groups", len(res.Groups), "dropped", res.Stats.DroppedCount)

	printSummary(res)
	return opts.writeGroups(res.Groups)
}

// printSummary prints result statistics and one line per group.
func printSummary(res *pipeline.Result) {
	parts := fmt.Sprintf("%d actions · %d groups · %d elements",
		res.Stats.ActionCount, len(res.Groups), res.Stats.ElementCount)
	if res.Stats.DroppedCount > 0 {
		parts += fmt.Sprintf(" · %d dropped", res.Stats.DroppedCount)
	}
	printDetail("%s", parts)
	for _, g := range res.Groups {
		b := g.Bounds()
		if b == nil {
			continue
		}
		fmt.Fprintf(statusOut, "  %s %s\n", kindBadge(g.Kind),
			StyleDim.Render(fmt.Sprintf("%gx%g at %g,%g", b.Width, b.Height, b.MinX, b.MinY)))
	}
}
