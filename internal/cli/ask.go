package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/canvasflow/pkg/errors"
	"github.com/matzehuels/canvasflow/pkg/session"
)

// askOpts holds the command-line flags for the ask command.
type askOpts struct {
	contentOpts
	session string // session id; empty starts a throwaway conversation
	noCache bool
}

// askCommand creates the ask command.
func (c *CLI) askCommand() *cobra.Command {
	var opts askOpts

	cmd := &cobra.Command{
		Use:   "ask <message>",
		Short: "Send a message to the provider and materialize the reply",
		Long: `Send one message to the configured provider and materialize the reply's
action markers against a canvas snapshot.

With --session the conversation history is kept between invocations under
~/.config/canvasflow/sessions.

Examples:
  canvasflow ask "show me a Go HTTP handler" -o groups.json
  canvasflow ask --session demo --snapshot canvas.json "now add a note about errors"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}
			if cfg.Provider.Endpoint == "" {
				return errors.New(errors.ErrCodeInvalidConfig,
					"no provider endpoint configured (set provider.endpoint or CANVASFLOW_PROVIDER_ENDPOINT)")
			}
			snap, err := loadSnapshot(opts.snapshot, cfg)
			if err != nil {
				return err
			}

			p, closeCache, err := c.newProvider(ctx, cfg, opts.noCache)
			if err != nil {
				return err
			}
			defer closeCache()

			var store session.Store
			sess := session.New("", cfg.History.Limit, 0)
			if opts.session != "" {
				fs, err := session.NewFileStore(cfg.History.Dir)
				if err != nil {
					return err
				}
				store = fs
				if sess, err = session.Load(ctx, store, opts.session, cfg.History.Limit); err != nil {
					return err
				}
			}

			runner := c.newRunner(p, c.newPipeline(cfg, opts.transcript), cfg)
			runner.Hints = opts.hints(runner.Hints)

			spinner := newSpinner(ctx, "Waiting for the provider...")
			spinner.Start()
			res, turnErr := runner.Turn(ctx, sess, strings.Join(args, " "), snap)

			if store != nil {
				sess.Touch(0)
				if err := store.Set(ctx, sess); err != nil {
					c.Logger.Warn("could not save session", "session", sess.ID, "error", err)
				}
			}
			if turnErr != nil {
				spinner.StopWithError(errors.UserMessage(turnErr))
				return turnErr
			}
			spinner.StopWithSuccess(fmt.Sprintf("Reply received (%s)", res.ProviderTime.Round(time.Millisecond)))

			if res.CleanedMessage != "" {
				fmt.Fprintln(statusOut, res.CleanedMessage)
			}
			printSummary(res.Result)
			return opts.writeGroups(res.Groups)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVar(&opts.session, "session", "", "keep conversation history under this id")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the reply cache")

	return cmd
}
