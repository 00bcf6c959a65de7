package cli

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

// Spinner animates a single status line while a blocking call runs. After
// the first second the line also shows the elapsed time. It stops on its own
// when ctx is canceled.
type Spinner struct {
	w       io.Writer
	message string
	frames  []string
	tick    time.Duration

	parent  context.Context
	ctx     context.Context
	cancel  context.CancelFunc
	start   time.Time
	started bool

	once    sync.Once
	stopped chan struct{}

	mu    sync.Mutex
	width int // display width of the last line written
}

// newSpinner creates a spinner writing to statusOut.
func newSpinner(ctx context.Context, message string) *Spinner {
	return newSpinnerTo(ctx, statusOut, message)
}

func newSpinnerTo(ctx context.Context, w io.Writer, message string) *Spinner {
	sctx, cancel := context.WithCancel(ctx)
	return &Spinner{
		w:       w,
		message: message,
		parent:  ctx,
		frames:  spinner.MiniDot.Frames,
		tick:    spinner.MiniDot.FPS,
		ctx:     sctx,
		cancel:  cancel,
		stopped: make(chan struct{}),
	}
}

// Start begins the animation.
func (s *Spinner) Start() {
	s.start = time.Now()
	s.started = true
	go func() {
		defer close(s.stopped)
		ticker := time.NewTicker(s.tick)
		defer ticker.Stop()

		for i := 0; ; i++ {
			select {
			case <-s.ctx.Done():
				s.clear()
				return
			case <-ticker.C:
				s.draw(s.frames[i%len(s.frames)])
			}
		}
	}()
}

func (s *Spinner) draw(frame string) {
	line := styleIconSpinner.Render(frame) + " " + StyleDim.Render(s.message)
	if elapsed := time.Since(s.start); elapsed >= time.Second {
		line += " " + StyleDim.Render(fmt.Sprintf("%ds", int(elapsed.Seconds())))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	pad := max(0, s.width-lipgloss.Width(line))
	fmt.Fprintf(s.w, "\r%s%s", line, strings.Repeat(" ", pad))
	s.width = lipgloss.Width(line)
}

func (s *Spinner) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.width > 0 {
		fmt.Fprintf(s.w, "\r%s\r", strings.Repeat(" ", s.width))
		s.width = 0
	}
}

// Stop stops the animation, clears the line and returns the time since
// Start. Calling Stop more than once is safe.
func (s *Spinner) Stop() time.Duration {
	s.once.Do(func() {
		s.cancel()
		if s.started {
			<-s.stopped
		}
	})
	return time.Since(s.start)
}

// StopWithSuccess stops the spinner and prints a success line.
func (s *Spinner) StopWithSuccess(message string) {
	s.Stop()
	printSuccess("%s", message)
}

// StopWithError stops the spinner and prints an error line.
func (s *Spinner) StopWithError(message string) {
	s.Stop()
	printError("%s", message)
}

// Cancelled reports whether the context passed to newSpinner has ended.
func (s *Spinner) Cancelled() bool {
	return s.parent.Err() != nil
}
