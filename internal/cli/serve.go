package cli

import (
	"github.com/spf13/cobra"

	"github.com/matzehuels/canvasflow/internal/server"
	"github.com/matzehuels/canvasflow/pkg/cache"
	"github.com/matzehuels/canvasflow/pkg/config"
	"github.com/matzehuels/canvasflow/pkg/session"
)

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr       string
		noCache    bool
		transcript bool
		logFormat  string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the content pipeline over HTTP",
		Long: `Serve the parse, place and materialize operations over HTTP.

When a provider endpoint is configured, POST /v1/canvases/{id}/turns runs a
full conversational turn against an in-memory canvas. Sessions are kept in
memory, or in Redis when cache.backend is "redis".

Examples:
  canvasflow serve
  canvasflow serve --addr 127.0.0.1:9000 --transcript
  canvasflow serve --log-format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if err := setLogFormat(c.Logger, logFormat); err != nil {
				return err
			}
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			pipe := c.newPipeline(cfg, transcript)
			opts := server.Options{
				Pipeline:     pipe,
				Sessions:     session.NewMemoryStore(),
				Hints:        cfg.Placement.Hints(),
				Viewport:     viewportFromConfig(cfg),
				HistoryLimit: cfg.History.Limit,
				Logger:       c.Logger,
			}

			if cfg.Provider.Endpoint != "" {
				p, closeCache, err := c.newProvider(ctx, cfg, noCache)
				if err != nil {
					return err
				}
				defer closeCache()
				opts.Runner = c.newRunner(p, pipe, cfg)
			} else {
				c.Logger.Warn("no provider endpoint configured; canvas turns are disabled")
			}

			if cfg.Cache.Backend == config.BackendRedis {
				store, err := cfg.Cache.Open(ctx)
				if err != nil {
					return err
				}
				defer store.Close()
				opts.Sessions = session.NewCacheStore(store, cache.NewScopedKeyer(nil, "server:"))
			}

			printInfo("Serving on %s", addr)
			return server.New(opts).ListenAndServe(ctx, addr, cfg.Server.ReadTimeout, cfg.Server.ShutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "bypass the reply cache")
	cmd.Flags().BoolVar(&transcript, "transcript", false, "draw chat bubbles for every turn")
	cmd.Flags().StringVar(&logFormat, "log-format", "text", "log format: text, json or logfmt")

	return cmd
}
