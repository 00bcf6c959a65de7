package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/errors"
	pkgio "github.com/matzehuels/canvasflow/pkg/io"
	"github.com/matzehuels/canvasflow/pkg/pipeline"
	"github.com/matzehuels/canvasflow/pkg/session"
)

// Chat styles
var (
	chatUserStyle      = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	chatAssistantStyle = lipgloss.NewStyle().Bold(true).Foreground(colorOK)
	chatHelpStyle      = lipgloss.NewStyle().Foreground(colorFaint)
)

// =============================================================================
// chatModel - Interactive conversation over an in-memory canvas
// =============================================================================

type chatKeys struct {
	Send key.Binding
	Quit key.Binding
}

var defaultChatKeys = chatKeys{
	Send: key.NewBinding(key.WithKeys("enter"), key.WithHelp("⏎", "send")),
	Quit: key.NewBinding(key.WithKeys("ctrl+c", "esc"), key.WithHelp("esc", "quit")),
}

// turnMsg carries the outcome of one provider turn back to the model.
type turnMsg struct {
	res *pipeline.TurnResult
	err error
}

type chatModel struct {
	ctx    context.Context
	runner *pipeline.Runner
	sess   *session.Session
	board  *canvas.Board

	input   textinput.Model
	spinner spinner.Model
	keys    chatKeys

	lines  []string
	placed []canvas.Group
	busy   bool
	width  int
	height int
}

func newChatModel(ctx context.Context, runner *pipeline.Runner, sess *session.Session, board *canvas.Board) chatModel {
	in := textinput.New()
	in.Placeholder = "Ask for code, a command, a note or a diagram"
	in.Prompt = "› "
	in.CharLimit = errors.MaxMessageLength
	in.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styleIconSpinner

	return chatModel{
		ctx:     ctx,
		runner:  runner,
		sess:    sess,
		board:   board,
		input:   in,
		spinner: sp,
		keys:    defaultChatKeys,
		width:   80,
		height:  24,
	}
}

func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Send):
			text := strings.TrimSpace(m.input.Value())
			if m.busy || text == "" {
				return m, nil
			}
			m.busy = true
			m.input.Reset()
			m.lines = append(m.lines, chatUserStyle.Render("You")+" "+text)
			return m, tea.Batch(m.spinner.Tick, m.send(text))
		}
	case turnMsg:
		m.busy = false
		m.lines = append(m.lines, m.describe(msg)...)
		if msg.err == nil {
			m.placed = append(m.placed, msg.res.Groups...)
		}
		return m, nil
	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.input.Width = max(10, msg.Width-4)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// send runs one turn against the board off the UI goroutine.
func (m chatModel) send(text string) tea.Cmd {
	return func() tea.Msg {
		res, err := m.runner.TurnOn(m.ctx, m.sess, text, m.board)
		return turnMsg{res: res, err: err}
	}
}

// describe renders the transcript lines for a finished turn.
func (m chatModel) describe(msg turnMsg) []string {
	if msg.err != nil {
		return []string{styleIconError.Render(iconError) + " " + StyleError.Render(errors.UserMessage(msg.err))}
	}
	var out []string
	if msg.res.CleanedMessage != "" {
		out = append(out, chatAssistantStyle.Render("Assistant")+" "+msg.res.CleanedMessage)
	}
	for _, g := range msg.res.Groups {
		b := g.Bounds()
		if b == nil {
			continue
		}
		out = append(out, fmt.Sprintf("  %s %s %s", StyleDim.Render(iconArrow), kindBadge(g.Kind),
			StyleDim.Render(fmt.Sprintf("%gx%g at %g,%g", b.Width, b.Height, b.MinX, b.MinY))))
	}
	if len(out) == 0 {
		out = append(out, StyleDim.Render("  (empty reply)"))
	}
	return out
}

func (m chatModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("canvasflow chat"))
	b.WriteString(StyleDim.Render(fmt.Sprintf("  %d elements on canvas", m.board.Len())))
	b.WriteString("\n\n")

	// Keep the newest lines that fit above the prompt.
	room := max(1, m.height-6)
	lines := m.wrapped()
	if len(lines) > room {
		lines = lines[len(lines)-room:]
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	if m.busy {
		b.WriteString(m.spinner.View() + " " + StyleDim.Render("waiting for the provider..."))
	} else {
		b.WriteString(m.input.View())
	}
	b.WriteString("\n")
	b.WriteString(chatHelpStyle.Render(m.keys.Send.Help().Key + " " + m.keys.Send.Help().Desc +
		"  " + m.keys.Quit.Help().Key + " " + m.keys.Quit.Help().Desc))
	return b.String()
}

// wrapped splits transcript lines to the terminal width.
func (m chatModel) wrapped() []string {
	var out []string
	for _, l := range m.lines {
		for _, part := range strings.Split(l, "\n") {
			if lipgloss.Width(part) <= m.width || m.width <= 0 {
				out = append(out, part)
				continue
			}
			out = append(out, strings.Split(runewidth.Wrap(part, m.width), "\n")...)
		}
	}
	return out
}

// =============================================================================
// Command
// =============================================================================

// chatOpts holds the command-line flags for the chat command.
type chatOpts struct {
	session    string
	noCache    bool
	transcript bool
	output     string
}

// chatCommand creates the interactive chat command.
func (c *CLI) chatCommand() *cobra.Command {
	var opts chatOpts

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the provider over an in-memory canvas",
		Long: `Start an interactive conversation. Every reply is materialized onto an
in-memory canvas so later content avoids earlier content. Use -o to save
everything placed during the session when you quit.`,
		Args: cobra.NoArgs,
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
			board := canvas.NewBoard(viewportFromConfig(cfg))

			// The TUI owns the terminal; keep log lines out of it.
			level := c.Logger.GetLevel()
			c.Logger.SetLevel(LogError)
			final, err := tea.NewProgram(newChatModel(ctx, runner, sess, board), tea.WithContext(ctx)).Run()
			c.Logger.SetLevel(level)
			if err != nil {
				return err
			}

			if store != nil {
				sess.Touch(0)
				if err := store.Set(ctx, sess); err != nil {
					printWarning("Could not save session: %v", err)
				}
			}
			m, ok := final.(chatModel)
			if !ok || opts.output == "" {
				return nil
			}
			if err := pkgio.ExportGroups(m.placed, opts.output); err != nil {
				return err
			}
			printSuccess("Saved %d group(s)", len(m.placed))
			printFile(opts.output)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.session, "session", "", "keep conversation history under this id")
	cmd.Flags().BoolVar(&opts.noCache, "no-cache", false, "bypass the reply cache")
	cmd.Flags().BoolVar(&opts.transcript, "transcript", false, "draw chat bubbles for every turn")
	cmd.Flags().StringVarP(&opts.output, "output", "o", "", "save placed groups to file on exit")

	return cmd
}
