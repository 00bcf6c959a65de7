package pipeline

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/errors"
	"github.com/matzehuels/canvasflow/pkg/history"
	"github.com/matzehuels/canvasflow/pkg/provider"
	"github.com/matzehuels/canvasflow/pkg/session"
	"github.com/matzehuels/canvasflow/pkg/synth"
)

// DefaultTimeout bounds one provider call made by a [Runner].
const DefaultTimeout = provider.DefaultTimeout

// Runner executes conversational turns: history, provider call, then
// materialization. It holds no per-session state; callers serialize turns on
// one session.
type Runner struct {
	Provider provider.Provider
	Pipeline *Pipeline
	Hints    synth.Hints
	Timeout  time.Duration
	Logger   *log.Logger
}

// NewRunner creates a runner. A nil pipeline gets a default one.
func NewRunner(p provider.Provider, pipe *Pipeline, logger *log.Logger) *Runner {
	if pipe == nil {
		pipe = New(nil, Options{Logger: logger})
	}
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{
		Provider: p,
		Pipeline: pipe,
		Timeout:  DefaultTimeout,
		Logger:   logger,
	}
}

// TurnResult is the outcome of one successful turn.
type TurnResult struct {
	*Result

	// Reply is the provider's raw answer. Its native actions are never
	// materialized.
	Reply *provider.Reply `json:"-"`

	ProviderTime time.Duration `json:"-"`
}

// Ask sends userText to the provider with the prior history window as
// context, then records it in the session history. On success the reply is recorded as
// the assistant turn. On failure the user turn stays in history and the
// error carries errors.ErrCodeUpstream or errors.ErrCodeTimeout.
func (r *Runner) Ask(ctx context.Context, sess *session.Session, userText string) (*provider.Reply, time.Duration, error) {
	if r.Provider == nil {
		return nil, 0, errors.New(errors.ErrCodeInvalidConfig, "no provider configured")
	}
	if err := errors.ValidateMessage(userText); err != nil {
		return nil, 0, err
	}
	if sess.History == nil {
		sess.History = history.New(history.DefaultLimit)
	}
	prior := sess.History.Window()
	sess.History.Append(history.RoleUser, userText)

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	reply, err := r.Provider.SendMessage(callCtx, userText, provider.Context{History: prior})
	elapsed := time.Since(start)
	if err != nil {
		err = upstreamError(callCtx, err)
		r.Logger.Warn("provider call failed", "session", sess.ID, "duration", elapsed, "error", err)
		return nil, elapsed, err
	}
	if reply == nil {
		reply = &provider.Reply{}
	}

	sess.History.Append(history.RoleAssistant, reply.Message)
	for i, a := range reply.Actions {
		r.Logger.Debug("provider native action (not materialized)", "index", i, "action", string(a))
	}
	r.Logger.Debug("provider replied", "session", sess.ID, "duration", elapsed, "bytes", len(reply.Message))
	return reply, elapsed, nil
}

// Turn runs a full turn against snap. When the provider fails nothing is
// parsed, synthesized or placed.
func (r *Runner) Turn(ctx context.Context, sess *session.Session, userText string, snap canvas.Snapshot) (*TurnResult, error) {
	reply, elapsed, err := r.Ask(ctx, sess, userText)
	if err != nil {
		return nil, err
	}
	res, err := r.materialize(ctx, userText, reply, snap)
	if err != nil {
		return nil, err
	}
	return &TurnResult{Result: res, Reply: reply, ProviderTime: elapsed}, nil
}

// TurnOn runs a full turn and inserts the result into board. The snapshot is
// captured after the provider replies, under the board lock, so concurrent
// turns on one board never overlap.
func (r *Runner) TurnOn(ctx context.Context, sess *session.Session, userText string, board *canvas.Board) (*TurnResult, error) {
	reply, elapsed, err := r.Ask(ctx, sess, userText)
	if err != nil {
		return nil, err
	}
	var res *Result
	if _, err := board.Apply(func(snap canvas.Snapshot) ([]canvas.Group, error) {
		var err error
		res, err = r.materialize(ctx, userText, reply, snap)
		if err != nil {
			return nil, err
		}
		return res.Groups, nil
	}); err != nil {
		return nil, err
	}
	return &TurnResult{Result: res, Reply: reply, ProviderTime: elapsed}, nil
}

// materialize builds the reply's groups. In transcript mode the user's
// message is drawn as a bubble first.
func (r *Runner) materialize(ctx context.Context, userText string, reply *provider.Reply, snap canvas.Snapshot) (*Result, error) {
	var lead []canvas.Group
	if r.Pipeline.transcript {
		g, err := r.Pipeline.Bubble(ctx, synth.RoleUser, userText, snap, r.Hints)
		if err != nil {
			return nil, err
		}
		lead = append(lead, g)
		snap = snap.With(g.Geometries()...)
	}

	res, err := r.Pipeline.Materialize(ctx, reply.Message, snap, r.Hints)
	if err != nil {
		return nil, err
	}
	if len(lead) > 0 {
		res.Groups = append(lead, res.Groups...)
	}
	return res, nil
}

// upstreamError classifies a provider failure. Errors that already carry an
// upstream or timeout code pass through.
func upstreamError(ctx context.Context, err error) error {
	if errors.IsUpstream(err) {
		return err
	}
	if ctx.Err() == context.DeadlineExceeded {
		return errors.Wrap(errors.ErrCodeTimeout, err, "provider did not reply in time")
	}
	return errors.Wrap(errors.ErrCodeUpstream, err, "provider request failed")
}
