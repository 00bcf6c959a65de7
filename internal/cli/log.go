// Package cli implements the canvasflow command-line interface.
//
// The commands cover each stage of the content pipeline on its own and the
// full conversational loop. The CLI is built using cobra and supports verbose
// logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - parse: Extract action markers from a reply
//   - place: Solve one placement against a snapshot
//   - materialize: Turn a reply into placed element groups
//   - ask: Send one message to the provider and materialize the reply
//   - chat: Interactive conversation over an in-memory canvas
//   - serve: Run the HTTP API
//   - cache: Manage the reply cache and saved sessions
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context to allow structured progress tracking.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/canvasflow/pkg/errors"
)

// newLogger creates a terminal logger with short timestamps ("15:04:05.00").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// setLogFormat switches l to one of text, json or logfmt. The server uses
// json or logfmt when its output is collected.
func setLogFormat(l *log.Logger, format string) error {
	switch format {
	case "", "text":
		l.SetFormatter(log.TextFormatter)
	case "json":
		l.SetFormatter(log.JSONFormatter)
	case "logfmt":
		l.SetFormatter(log.LogfmtFormatter)
	default:
		return errors.New(errors.ErrCodeInvalidInput, "invalid log format: %q (must be one of: text, json, logfmt)", format)
	}
	return nil
}

// progress logs the completion of one operation with its elapsed time.
type progress struct {
	logger *log.Logger
	start  time.Time
}

func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg at info level with an "elapsed" field appended to keyvals.
func (p *progress) done(msg string, keyvals ...any) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	p.logger.Info(msg, keyvals...)
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx for loggerFromContext.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached by withLogger, or
// log.Default when there is none.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
