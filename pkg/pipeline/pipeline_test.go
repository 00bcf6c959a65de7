package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/canvasflow/pkg/action"
	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/errors"
	"github.com/matzehuels/canvasflow/pkg/history"
	"github.com/matzehuels/canvasflow/pkg/placement"
	"github.com/matzehuels/canvasflow/pkg/provider"
	"github.com/matzehuels/canvasflow/pkg/session"
	"github.com/matzehuels/canvasflow/pkg/synth"
)

var testViewport = canvas.Viewport{Zoom: 1, Width: 800, Height: 700}

func newTestPipeline(opts Options) *Pipeline {
	return New(synth.New(placement.New(), synth.WithIDAllocator(synth.NewSequenceAllocator("t"))), opts)
}

const threeActions = "Intro\n" +
	"[ACTION:CODE]```go\nfmt.Println(1)\n```[/ACTION]\n" +
	"[ACTION:NOTE]remember this[/ACTION]\n" +
	"[ACTION:TERMINAL]go test ./...[/ACTION]\n" +
	"Outro"

// checkDisjoint fails if any two groups, or a group and existing content,
// overlap.
func checkDisjoint(t *testing.T, groups []canvas.Group, existing []canvas.Geometry) {
	t.Helper()
	boxes := make([]canvas.Geometry, len(groups))
	for i, g := range groups {
		b := g.Bounds()
		if b == nil {
			t.Fatalf("group %d is empty", i)
		}
		boxes[i] = b.Geometry()
		if placement.HasOverlap(boxes[i], existing, 0) {
			t.Errorf("group %d (%s) overlaps existing content", i, g.Kind)
		}
		if placement.HasOverlap(boxes[i], boxes[:i], 0) {
			t.Errorf("group %d (%s) overlaps an earlier sibling", i, g.Kind)
		}
	}
}

func TestMaterializeNoMarkers(t *testing.T) {
	p := newTestPipeline(Options{})
	text := "Just a plain answer.\n\nNothing to draw."
	res, err := p.Materialize(context.Background(), text, canvas.Snapshot{Viewport: testViewport}, synth.Hints{})
	if err != nil {
		t.Fatal(err)
	}
	if res.CleanedMessage != text {
		t.Errorf("CleanedMessage = %q, want input unchanged", res.CleanedMessage)
	}
	if len(res.Groups) != 0 || len(res.Actions) != 0 {
		t.Errorf("got %d groups, %d actions; want none", len(res.Groups), len(res.Actions))
	}
}

func TestMaterializeSiblingsDoNotOverlap(t *testing.T) {
	existing := []canvas.Geometry{canvas.Rect(300, 250, 200, 200)}
	snap := canvas.Snapshot{Existing: existing, Viewport: testViewport}

	strategies := append([]placement.Strategy{""}, placement.Strategies...)
	for _, st := range strategies {
		t.Run(string(st), func(t *testing.T) {
			p := newTestPipeline(Options{})
			hints := synth.Hints{Strategy: st, Anchor: &existing[0]}
			res, err := p.Materialize(context.Background(), threeActions, snap, hints)
			if err != nil {
				t.Fatal(err)
			}
			if len(res.Groups) != 3 {
				t.Fatalf("got %d groups, want 3", len(res.Groups))
			}
			kinds := []string{"CODE", "NOTE", "TERMINAL"}
			for i, g := range res.Groups {
				if g.Kind != kinds[i] {
					t.Errorf("group %d kind = %s, want %s", i, g.Kind, kinds[i])
				}
			}
			checkDisjoint(t, res.Groups, existing)
		})
	}
}

func TestMaterializeDoesNotMutateSnapshot(t *testing.T) {
	existing := make([]canvas.Geometry, 1, 8)
	existing[0] = canvas.Rect(0, 0, 10, 10)
	snap := canvas.Snapshot{Existing: existing, Viewport: testViewport}

	p := newTestPipeline(Options{})
	if _, err := p.Materialize(context.Background(), threeActions, snap, synth.Hints{}); err != nil {
		t.Fatal(err)
	}
	if len(snap.Existing) != 1 || existing[:2][1] != (canvas.Geometry{}) {
		t.Error("Materialize wrote into the caller's snapshot")
	}
}

func TestMaterializeGroupInvariants(t *testing.T) {
	p := newTestPipeline(Options{})
	res, err := p.Materialize(context.Background(), threeActions, canvas.Snapshot{Viewport: testViewport}, synth.Hints{})
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]bool{}
	for _, g := range res.Groups {
		for _, m := range g.Members {
			b := m.Common()
			if b.GroupID != g.ID {
				t.Errorf("member %s has group %s, want %s", b.ID, b.GroupID, g.ID)
			}
			if seen[b.ID] {
				t.Errorf("duplicate element id %s", b.ID)
			}
			seen[b.ID] = true
		}
		c := g.Members[0].Common().Geometry
		if c.Width <= 0 || c.Height <= 0 {
			t.Errorf("group %s container is %vx%v", g.Kind, c.Width, c.Height)
		}
	}
	if res.Stats.ActionCount != 3 || res.Stats.ElementCount != len(seen) {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if res.CleanedMessage != "Intro\n\nOutro" {
		t.Errorf("CleanedMessage = %q", res.CleanedMessage)
	}
}

func TestMaterializeDropsUnknownKinds(t *testing.T) {
	p := newTestPipeline(Options{})
	text := "a [ACTION:VIDEO]cat.mp4[/ACTION] b [ACTION:NOTE]kept[/ACTION]"
	res, err := p.Materialize(context.Background(), text, canvas.Snapshot{Viewport: testViewport}, synth.Hints{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Groups) != 1 || res.Groups[0].Kind != string(action.KindNote) {
		t.Fatalf("groups = %+v", res.Groups)
	}
	if len(res.Dropped) != 1 || res.Dropped[0].Reason != action.DropUnknownKind {
		t.Errorf("Dropped = %+v", res.Dropped)
	}
	if strings.Contains(res.CleanedMessage, "VIDEO") {
		t.Errorf("unknown marker left in message: %q", res.CleanedMessage)
	}
}

func TestMaterializeTranscript(t *testing.T) {
	p := newTestPipeline(Options{Transcript: true})
	res, err := p.Materialize(context.Background(), threeActions, canvas.Snapshot{Viewport: testViewport}, synth.Hints{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Groups) != 4 {
		t.Fatalf("got %d groups, want 4", len(res.Groups))
	}
	if last := res.Groups[3]; last.Kind != synth.KindChat {
		t.Errorf("last group kind = %s, want %s", last.Kind, synth.KindChat)
	}
	checkDisjoint(t, res.Groups, nil)

	// Nothing left after stripping markers: no bubble.
	res, err = p.Materialize(context.Background(), "[ACTION:NOTE]x[/ACTION]", canvas.Snapshot{Viewport: testViewport}, synth.Hints{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Groups) != 1 {
		t.Errorf("got %d groups, want 1", len(res.Groups))
	}
}

func TestMaterializeInvalidHints(t *testing.T) {
	tests := []struct {
		name  string
		hints synth.Hints
		want  errors.Code
	}{
		{"strategy", synth.Hints{Strategy: "spiral"}, errors.ErrCodeInvalidStrategy},
		{"note color", synth.Hints{NoteColor: "magenta"}, errors.ErrCodeInvalidColor},
		{"anchor", synth.Hints{Anchor: &canvas.Geometry{Width: -1}}, errors.ErrCodeInvalidInput},
	}
	p := newTestPipeline(Options{})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Materialize(context.Background(), threeActions, canvas.Snapshot{Viewport: testViewport}, tt.hints)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %s", err, tt.want)
			}
		})
	}
}

func TestMaterializeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := newTestPipeline(Options{})
	if _, err := p.Materialize(ctx, threeActions, canvas.Snapshot{Viewport: testViewport}, synth.Hints{}); err == nil {
		t.Error("expected error for canceled context")
	}
}

// =============================================================================
// Runner
// =============================================================================

type recordingProvider struct {
	mu    sync.Mutex
	calls []provider.Context
	reply *provider.Reply
	err   error
}

func (p *recordingProvider) SendMessage(ctx context.Context, text string, c provider.Context) (*provider.Reply, error) {
	p.mu.Lock()
	p.calls = append(p.calls, c)
	p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	return p.reply, nil
}

func TestRunnerTurn(t *testing.T) {
	prov := &recordingProvider{reply: &provider.Reply{
		Message: threeActions,
		Actions: []json.RawMessage{json.RawMessage(`{"type":"image"}`)},
	}}
	r := NewRunner(prov, newTestPipeline(Options{}), nil)
	sess := session.New("s1", 0, 0)

	res, err := r.Turn(context.Background(), sess, "show me", canvas.Snapshot{Viewport: testViewport})
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Groups) != 3 {
		t.Errorf("got %d groups, want 3 (native actions are not materialized)", len(res.Groups))
	}
	turns := sess.History.Window()
	if len(turns) != 2 || turns[0].Role != history.RoleUser || turns[1].Role != history.RoleAssistant {
		t.Errorf("history = %+v", turns)
	}
	if len(prov.calls) != 1 || len(prov.calls[0].History) != 0 {
		t.Errorf("first turn context = %+v, want no prior turns", prov.calls)
	}
}

func TestRunnerHistoryWindow(t *testing.T) {
	prov := &recordingProvider{reply: &provider.Reply{Message: "ok"}}
	r := NewRunner(prov, nil, nil)
	sess := session.New("s1", 0, 0)

	for i := range 8 {
		if _, err := r.Turn(context.Background(), sess, strings.Repeat("q", i+1), canvas.Snapshot{}); err != nil {
			t.Fatal(err)
		}
	}
	last := prov.calls[len(prov.calls)-1]
	if len(last.History) != history.DefaultLimit {
		t.Errorf("context has %d turns, want %d", len(last.History), history.DefaultLimit)
	}
	newest := last.History[len(last.History)-1]
	if newest.Role != history.RoleAssistant || newest.Content != "ok" {
		t.Errorf("newest context turn = %+v, want the previous reply", newest)
	}
	if prev := last.History[len(last.History)-2].Content; prev != "qqqqqqq" {
		t.Errorf("previous user turn = %q", prev)
	}
	for _, turn := range last.History {
		if turn.Content == "qqqqqqqq" {
			t.Error("current message is repeated in the history context")
		}
	}
}

func TestRunnerProviderFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want errors.Code
	}{
		{"plain error", context.Canceled, errors.ErrCodeUpstream},
		{"coded error", errors.New(errors.ErrCodeTimeout, "slow"), errors.ErrCodeTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prov := &recordingProvider{err: tt.err}
			r := NewRunner(prov, nil, nil)
			sess := session.New("", 0, 0)
			board := canvas.NewBoard(testViewport)

			res, err := r.TurnOn(context.Background(), sess, "draw", board)
			if res != nil {
				t.Errorf("result = %+v, want nil", res)
			}
			if got := errors.GetCode(err); got != tt.want {
				t.Errorf("code = %s, want %s", got, tt.want)
			}
			if board.Len() != 0 {
				t.Errorf("board has %d elements after failure", board.Len())
			}
			if turns := sess.History.Window(); len(turns) != 1 || turns[0].Role != history.RoleUser {
				t.Errorf("history = %+v, want only the user turn", turns)
			}
			if len(prov.calls) != 1 {
				t.Errorf("provider called %d times, want 1", len(prov.calls))
			}
		})
	}
}

func TestRunnerTimeout(t *testing.T) {
	prov := provider.Func(func(ctx context.Context, _ string, _ provider.Context) (*provider.Reply, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := NewRunner(prov, nil, nil)
	r.Timeout = 10 * time.Millisecond

	_, err := r.Turn(context.Background(), session.New("", 0, 0), "hello", canvas.Snapshot{})
	if !errors.Is(err, errors.ErrCodeTimeout) {
		t.Errorf("error = %v, want timeout", err)
	}
}

func TestRunnerRejectsEmptyMessage(t *testing.T) {
	prov := &recordingProvider{reply: &provider.Reply{}}
	r := NewRunner(prov, nil, nil)
	sess := session.New("", 0, 0)
	if _, err := r.Turn(context.Background(), sess, "  ", canvas.Snapshot{}); !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v", err)
	}
	if len(prov.calls) != 0 || sess.History.Len() != 0 {
		t.Error("empty message reached the provider")
	}
}

func TestRunnerTurnOnConcurrent(t *testing.T) {
	prov := provider.Static("[ACTION:NOTE]a[/ACTION][ACTION:TERMINAL]ls[/ACTION]")
	r := NewRunner(prov, newTestPipeline(Options{Transcript: true}), nil)
	board := canvas.NewBoard(testViewport)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var all []canvas.Group
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := r.TurnOn(context.Background(), session.New("", 0, 0), "go", board)
			if err != nil {
				t.Error(err)
				return
			}
			mu.Lock()
			all = append(all, res.Groups...)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Each turn: user bubble, note, terminal.
	if len(all) != 12 {
		t.Fatalf("got %d groups, want 12", len(all))
	}
	checkDisjoint(t, all, nil)

	members := 0
	for _, g := range all {
		members += len(g.Members)
	}
	if board.Len() != members {
		t.Errorf("board has %d elements, want %d", board.Len(), members)
	}
}
