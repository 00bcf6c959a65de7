package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/matzehuels/canvasflow/pkg/canvas"
	"github.com/matzehuels/canvasflow/pkg/errors"
	"github.com/matzehuels/canvasflow/pkg/pipeline"
	"github.com/matzehuels/canvasflow/pkg/placement"
	"github.com/matzehuels/canvasflow/pkg/provider"
	"github.com/matzehuels/canvasflow/pkg/session"
	"github.com/matzehuels/canvasflow/pkg/synth"
)

const reply = "Here you go.\n" +
	"[ACTION:CODE]```go\nfmt.Println(1)\n```[/ACTION]\n" +
	"[ACTION:NOTE]check this[/ACTION]"

func newTestServer(t *testing.T, p provider.Provider, store session.Store) *httptest.Server {
	t.Helper()
	pipe := pipeline.New(synth.New(placement.New()), pipeline.Options{})
	var runner *pipeline.Runner
	if p != nil {
		runner = pipeline.NewRunner(p, pipe, nil)
	}
	s := New(Options{
		Runner:   runner,
		Sessions: store,
		Viewport: canvas.Viewport{Zoom: 1, Width: 1280, Height: 800},
	})
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)
	return ts
}

func post(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	resp, err := http.Post(url, "application/json", &buf)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

type groupsBody struct {
	CleanedMessage string `json:"cleaned_message"`
	Groups         []struct {
		ID      string `json:"group_id"`
		Kind    string `json:"kind"`
		Members []struct {
			Type     string          `json:"type"`
			GroupID  string          `json:"group_id"`
			Geometry canvas.Geometry `json:"geometry"`
		} `json:"members"`
	} `json:"groups"`
}

type errBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(resp.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[healthResponse](t, resp)
	if body.Status != "ok" || body.Build.Version == "" {
		t.Errorf("health = %+v", body)
	}
}

func TestParse(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	resp := post(t, ts.URL+"/v1/parse", map[string]string{"text": reply})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[struct {
		CleanedMessage string `json:"cleaned_message"`
		Actions        []struct {
			Kind string `json:"kind"`
		} `json:"actions"`
	}](t, resp)
	if body.CleanedMessage != "Here you go." {
		t.Errorf("cleaned = %q", body.CleanedMessage)
	}
	if len(body.Actions) != 2 || body.Actions[0].Kind != "CODE" || body.Actions[1].Kind != "NOTE" {
		t.Errorf("actions = %+v", body.Actions)
	}
}

func TestPlace(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	req := map[string]any{
		"existing": []canvas.Geometry{canvas.Rect(350, 250, 100, 100)},
		"viewport": canvas.Viewport{Zoom: 1, Width: 800, Height: 600},
		"request":  placement.Request{Width: 100, Height: 100, AvoidOverlap: true},
	}
	resp := post(t, ts.URL+"/v1/place", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	got := decodeBody[canvas.Point](t, resp)
	if got != (canvas.Point{X: 500, Y: 250}) {
		t.Errorf("point = %+v, want (500, 250)", got)
	}
}

func TestPlaceRejects(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	tests := []struct {
		name string
		body string
		code errors.Code
	}{
		{"bad json", `{"request":`, errors.ErrCodeInvalidInput},
		{"bad strategy", `{"request":{"width":1,"height":1,"strategy":"spiral"}}`, errors.ErrCodeInvalidStrategy},
		{"negative width", `{"request":{"width":-1,"height":1}}`, errors.ErrCodeInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := post(t, ts.URL+"/v1/place", tt.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", resp.StatusCode)
			}
			if got := decodeBody[errBody](t, resp).Error.Code; got != string(tt.code) {
				t.Errorf("code = %s, want %s", got, tt.code)
			}
		})
	}
}

func TestMaterialize(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	req := map[string]any{
		"text": reply,
		"snapshot": canvas.Snapshot{
			Existing: []canvas.Geometry{canvas.Rect(0, 0, 400, 300)},
			Viewport: canvas.Viewport{Zoom: 1, Width: 800, Height: 600},
		},
		"hints": synth.Hints{Strategy: placement.Flow},
	}
	resp := post(t, ts.URL+"/v1/materialize", req)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	body := decodeBody[groupsBody](t, resp)
	if body.CleanedMessage != "Here you go." {
		t.Errorf("cleaned = %q", body.CleanedMessage)
	}
	if len(body.Groups) != 2 {
		t.Fatalf("groups = %d, want 2", len(body.Groups))
	}
	for _, g := range body.Groups {
		if g.ID == "" || len(g.Members) == 0 {
			t.Fatalf("group %+v is incomplete", g)
		}
		for _, m := range g.Members {
			if m.GroupID != g.ID {
				t.Errorf("member group_id = %q, want %q", m.GroupID, g.ID)
			}
		}
	}
}

func TestMaterializeInvalidHints(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	resp := post(t, ts.URL+"/v1/materialize", `{"text":"[ACTION:NOTE]x[/ACTION]","hints":{"note_color":"plaid"}}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if got := decodeBody[errBody](t, resp).Error.Code; got != string(errors.ErrCodeInvalidColor) {
		t.Errorf("code = %s", got)
	}
}

func TestCanvasTurns(t *testing.T) {
	store := session.NewMemoryStore()
	ts := newTestServer(t, provider.Static(reply), store)

	for i := 0; i < 2; i++ {
		resp := post(t, ts.URL+"/v1/canvases/demo/turns", map[string]string{"message": "show me"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("turn %d: status = %d", i, resp.StatusCode)
		}
		if got := len(decodeBody[groupsBody](t, resp).Groups); got != 2 {
			t.Fatalf("turn %d: groups = %d", i, got)
		}
	}

	resp, err := http.Get(ts.URL + "/v1/canvases/demo/elements")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	elems := decodeBody[struct {
		Elements []map[string]any `json:"elements"`
	}](t, resp)
	if len(elems.Elements) == 0 {
		t.Fatal("canvas has no elements after two turns")
	}

	sess, err := store.Get(context.Background(), "demo")
	if err != nil || sess == nil {
		t.Fatalf("session not saved: %v", err)
	}
	if got := sess.History.Len(); got != 4 {
		t.Errorf("history = %d turns, want 4", got)
	}
}

func TestCanvasTurnErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"upstream", errors.New(errors.ErrCodeUpstream, "bad gateway"), http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusBadGateway},
		{"provider timeout", errors.New(errors.ErrCodeTimeout, "slow"), http.StatusGatewayTimeout},
		{"plain", fmt.Errorf("boom"), http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := session.NewMemoryStore()
			p := provider.Func(func(context.Context, string, provider.Context) (*provider.Reply, error) {
				return nil, tt.err
			})
			ts := newTestServer(t, p, store)
			resp := post(t, ts.URL+"/v1/canvases/c1/turns", map[string]string{"message": "hi"})
			if resp.StatusCode != tt.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.status)
			}

			el, err := http.Get(ts.URL + "/v1/canvases/c1/elements")
			if err != nil {
				t.Fatal(err)
			}
			defer el.Body.Close()
			if got := decodeBody[struct {
				Elements []map[string]any `json:"elements"`
			}](t, el); len(got.Elements) != 0 {
				t.Errorf("failed turn left %d elements", len(got.Elements))
			}

			sess, _ := store.Get(context.Background(), "c1")
			if sess == nil || sess.History.Len() != 1 {
				t.Errorf("user turn not kept in history")
			}
		})
	}
}

func TestCanvasValidation(t *testing.T) {
	ts := newTestServer(t, provider.Static(reply), nil)

	resp := post(t, ts.URL+"/v1/canvases/bad%20id/turns", map[string]string{"message": "hi"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad id: status = %d", resp.StatusCode)
	}
	resp = post(t, ts.URL+"/v1/canvases/ok/turns", map[string]string{"message": "   "})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty message: status = %d", resp.StatusCode)
	}
	el, err := http.Get(ts.URL + "/v1/canvases/unknown/elements")
	if err != nil {
		t.Fatal(err)
	}
	defer el.Body.Close()
	if el.StatusCode != http.StatusNotFound {
		t.Errorf("unknown canvas: status = %d", el.StatusCode)
	}
}

func TestTurnsWithoutProvider(t *testing.T) {
	ts := newTestServer(t, nil, nil)
	resp := post(t, ts.URL+"/v1/canvases/x/turns", map[string]string{"message": "hi"})
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", resp.StatusCode)
	}
}

func TestConcurrentTurnsDoNotOverlap(t *testing.T) {
	ts := newTestServer(t, provider.Static(reply), nil)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, err := http.Post(ts.URL+"/v1/canvases/shared/turns", "application/json",
				strings.NewReader(`{"message":"go"}`))
			if err != nil {
				t.Error(err)
				return
			}
			resp.Body.Close()
		}()
	}
	wg.Wait()

	resp, err := http.Get(ts.URL + "/v1/canvases/shared/elements")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body := decodeBody[struct {
		Elements []struct {
			GroupID  string          `json:"group_id"`
			Geometry canvas.Geometry `json:"geometry"`
		} `json:"elements"`
	}](t, resp)

	boxes := map[string][]canvas.Geometry{}
	var order []string
	for _, e := range body.Elements {
		if _, ok := boxes[e.GroupID]; !ok {
			order = append(order, e.GroupID)
		}
		boxes[e.GroupID] = append(boxes[e.GroupID], e.Geometry)
	}
	if len(order) != 10 {
		t.Fatalf("groups = %d, want 10", len(order))
	}
	var placed []canvas.Geometry
	for _, id := range order {
		b := canvas.Bounds(boxes[id]).Geometry()
		if placement.HasOverlap(b, placed, 0) {
			t.Errorf("group %s overlaps another group", id)
		}
		placed = append(placed, b)
	}
}

func TestIdleCanvasesExpire(t *testing.T) {
	pipe := pipeline.New(synth.New(placement.New()), pipeline.Options{})
	s := New(Options{
		Runner:     pipeline.NewRunner(provider.Static(reply), pipe, nil),
		Viewport:   canvas.Viewport{Zoom: 1, Width: 1280, Height: 800},
		SessionTTL: time.Hour,
	})
	var clockMu sync.Mutex
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clockMu.Lock()
		defer clockMu.Unlock()
		return clock
	}
	advance := func(d time.Duration) {
		clockMu.Lock()
		clock = clock.Add(d)
		clockMu.Unlock()
	}
	ts := httptest.NewServer(s.Routes())
	t.Cleanup(ts.Close)

	elementsStatus := func(id string) int {
		t.Helper()
		resp, err := http.Get(ts.URL + "/v1/canvases/" + id + "/elements")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		return resp.StatusCode
	}

	for _, id := range []string{"stale", "busy"} {
		if resp := post(t, ts.URL+"/v1/canvases/"+id+"/turns", map[string]string{"message": "hi"}); resp.StatusCode != http.StatusOK {
			t.Fatalf("turn on %s: status = %d", id, resp.StatusCode)
		}
	}

	advance(45 * time.Minute)
	if resp := post(t, ts.URL+"/v1/canvases/busy/turns", map[string]string{"message": "again"}); resp.StatusCode != http.StatusOK {
		t.Fatalf("second turn: status = %d", resp.StatusCode)
	}

	advance(30 * time.Minute)
	if n := s.evictExpired(); n != 1 {
		t.Errorf("evictExpired() = %d, want 1", n)
	}
	if got := elementsStatus("stale"); got != http.StatusNotFound {
		t.Errorf("stale canvas: status = %d, want 404", got)
	}
	if got := elementsStatus("busy"); got != http.StatusOK {
		t.Errorf("busy canvas: status = %d, want 200", got)
	}

	// A lookup past the TTL drops the board even before a sweep runs.
	advance(2 * time.Hour)
	if got := elementsStatus("busy"); got != http.StatusNotFound {
		t.Errorf("expired canvas: status = %d, want 404", got)
	}
	s.mu.Lock()
	left := len(s.canvases)
	s.mu.Unlock()
	if left != 0 {
		t.Errorf("canvases left = %d, want 0", left)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		code errors.Code
		want int
	}{
		{errors.ErrCodeUpstream, http.StatusBadGateway},
		{errors.ErrCodeTimeout, http.StatusGatewayTimeout},
		{errors.ErrCodeInvalidRole, http.StatusBadRequest},
		{errors.ErrCodeNotFound, http.StatusNotFound},
		{errors.ErrCodeInternal, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(errors.New(tt.code, "x")); got != tt.want {
			t.Errorf("statusFor(%s) = %d, want %d", tt.code, got, tt.want)
		}
	}
}
