// Package cli implements the canvasflow command-line interface.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/canvasflow/pkg/buildinfo"
	"github.com/matzehuels/canvasflow/pkg/cache"
	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/config"
	"github.com/matzehuels/canvasflow/pkg/diagram"
	"github.com/matzehuels/canvasflow/pkg/observability"
	pkgio "github.com/matzehuels/canvasflow/pkg/io"
	"github.com/matzehuels/canvasflow/pkg/pipeline"
	"github.com/matzehuels/canvasflow/pkg/placement"
	"github.com/matzehuels/canvasflow/pkg/provider"
	"github.com/matzehuels/canvasflow/pkg/synth"
)

// =============================================================================
// Constants
// =============================================================================

const (
	// appName is the application name used for directories and display.
	appName = "canvasflow"
)

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
	LogError = log.ErrorLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger

	configPath string
	cfg        *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Canvasflow turns assistant replies into placed canvas content",
		Long:          `Canvasflow parses action markers out of conversational replies and turns them into code blocks, terminals, notes, diagrams and chat bubbles placed on an infinite canvas without overlapping existing content.`,
		Version:       buildinfo.Get().Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cmd.SetContext(withLogger(cmd.Context(), c.Logger))
			observability.NewLogHooks(c.Logger).Register()
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.configPath, "config", "", "config file (default $CANVASFLOW_CONFIG or ~/.config/canvasflow/config.toml)")

	root.AddCommand(c.parseCommand())
	root.AddCommand(c.placeCommand())
	root.AddCommand(c.materializeCommand())
	root.AddCommand(c.askCommand())
	root.AddCommand(c.chatCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())

	return root
}

// =============================================================================
// Factories
// =============================================================================

// loadConfig loads the configuration once per invocation.
func (c *CLI) loadConfig() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return nil, err
	}
	c.cfg = cfg
	return cfg, nil
}

// newPipeline builds the parse, synthesize and place chain from cfg.
func (c *CLI) newPipeline(cfg *config.Config, transcript bool) *pipeline.Pipeline {
	opts := append(cfg.Placement.SolverOptions(), placement.WithLogger(c.Logger))
	s := synth.New(placement.New(opts...),
		synth.WithDiagramMeasurer(diagram.NewMeasurer(c.Logger)),
		synth.WithLogger(c.Logger))
	return pipeline.New(s, pipeline.Options{
		Transcript: transcript || cfg.Placement.Transcript,
		Logger:     c.Logger,
	})
}

// newProvider creates the HTTP provider, wrapped in a reply cache unless the
// cache is disabled. The returned close function releases the cache.
func (c *CLI) newProvider(ctx context.Context, cfg *config.Config, noCache bool) (provider.Provider, func() error, error) {
	p, err := provider.NewHTTP(provider.HTTPConfig{
		Endpoint: cfg.Provider.Endpoint,
		Model:    cfg.Provider.Model,
		APIKey:   cfg.Provider.APIKey(),
		Logger:   c.Logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if noCache || cfg.Cache.Backend == "" || cfg.Cache.Backend == config.BackendNone {
		return p, func() error { return nil }, nil
	}

	store, err := cfg.Cache.Open(ctx)
	if err != nil {
		c.Logger.Warn("reply cache disabled", "backend", cfg.Cache.Backend, "error", err)
		return p, func() error { return nil }, nil
	}
	cached := provider.NewCached(p, provider.CachedConfig{
		Cache:   store,
		Keyer:   cache.NewDefaultKeyer(),
		TTL:     cfg.Cache.TTL,
		Timeout: cfg.Provider.Timeout,
		Scope:   p.Endpoint(),
		Model:   p.Model(),
		Logger:  c.Logger,
	})
	return cached, store.Close, nil
}

// newRunner wires provider and pipeline into a turn runner.
func (c *CLI) newRunner(p provider.Provider, pipe *pipeline.Pipeline, cfg *config.Config) *pipeline.Runner {
	r := pipeline.NewRunner(p, pipe, c.Logger)
	r.Hints = cfg.Placement.Hints()
	if cfg.Provider.Timeout > 0 {
		r.Timeout = cfg.Provider.Timeout
	}
	return r
}

// loadSnapshot reads the snapshot file, or returns an empty canvas with the
// configured viewport when path is empty.
func loadSnapshot(path string, cfg *config.Config) (canvas.Snapshot, error) {
	if path == "" {
		return canvas.Snapshot{Viewport: viewportFromConfig(cfg)}, nil
	}
	if path == "-" {
		return pkgio.ReadSnapshot(os.Stdin)
	}
	return pkgio.ImportSnapshot(path)
}

func viewportFromConfig(cfg *config.Config) canvas.Viewport {
	return canvas.Viewport{
		Zoom:   cfg.Viewport.Zoom,
		Width:  cfg.Viewport.Width,
		Height: cfg.Viewport.Height,
	}
}
