package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/matzehuels/canvasflow/internal/cli"
	"github.com/matzehuels/canvasflow/pkg/errors"
)

// Exit codes.
const (
	exitOK       = 0
	exitFailure  = 1
	exitUsage    = 2 // invalid input or configuration
	exitUpstream = 3 // provider failed or timed out
	exitSignal   = 130
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx)
	cancel()
	os.Exit(code)
}

func run(ctx context.Context) int {
	c := cli.New(os.Stderr, cli.LogInfo)
	root := c.RootCommand()

	var verbose bool
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	preRun := root.PersistentPreRunE
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if verbose {
			c.SetLogLevel(cli.LogDebug)
		}
		return preRun(cmd, args)
	}

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	if ctx.Err() != nil {
		return exitSignal
	}
	fmt.Fprintln(os.Stderr, "Error:", errors.UserMessage(err))
	return exitCode(err)
}

func exitCode(err error) int {
	switch {
	case errors.IsUpstream(err):
		return exitUpstream
	case errors.IsInvalid(err):
		return exitUsage
	default:
		return exitFailure
	}
}
