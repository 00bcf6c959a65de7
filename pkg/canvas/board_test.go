package canvas

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"testing"
)

func rectElement(id, group string, g Geometry) *Rectangle {
	return &Rectangle{Base: Base{ID: id, GroupID: group, Geometry: g}}
}

func TestBoardAddElementRejectsDuplicates(t *testing.T) {
	b := NewBoard(Viewport{Width: 800, Height: 600, Zoom: 1})
	if err := b.AddElement(rectElement("a", "g", Rect(0, 0, 10, 10))); err != nil {
		t.Fatalf("AddElement: %v", err)
	}
	if err := b.AddElement(rectElement("a", "g", Rect(0, 0, 10, 10))); err == nil {
		t.Error("duplicate id should be rejected")
	}
	if b.Len() != 1 {
		t.Errorf("Len() = %d, want 1", b.Len())
	}
}

func TestBoardSnapshot(t *testing.T) {
	vp := Viewport{Width: 800, Height: 600, Zoom: 1}
	b := NewBoard(vp)
	_ = b.AddElement(rectElement("a", "g", Rect(5, 6, 7, 8)))

	snap := b.Snapshot()
	if len(snap.Existing) != 1 || snap.Existing[0] != Rect(5, 6, 7, 8) {
		t.Errorf("Snapshot().Existing = %+v", snap.Existing)
	}
	if snap.Viewport.Width != vp.Width {
		t.Errorf("Snapshot().Viewport = %+v, want %+v", snap.Viewport, vp)
	}
}

func TestBoardApplySerializes(t *testing.T) {
	b := NewBoard(Viewport{})
	const workers = 16

	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := b.Apply(func(s Snapshot) ([]Group, error) {
				// Each call sees every earlier insertion.
				n := len(s.Existing)
				id := fmt.Sprintf("e%d", i)
				return []Group{{ID: id, Members: []Element{rectElement(id, id, Rect(float64(n), 0, 1, 1))}}}, nil
			})
			if err != nil {
				t.Errorf("Apply: %v", err)
			}
		}()
	}
	wg.Wait()

	seen := make(map[float64]bool)
	for _, g := range b.Elements() {
		if seen[g.X] {
			t.Fatalf("two Apply calls observed the same snapshot size %v", g.X)
		}
		seen[g.X] = true
	}
	if len(seen) != workers {
		t.Errorf("got %d elements, want %d", len(seen), workers)
	}
}

func TestBoardApplyError(t *testing.T) {
	b := NewBoard(Viewport{})
	_, err := b.Apply(func(Snapshot) ([]Group, error) {
		return nil, fmt.Errorf("boom")
	})
	if err == nil {
		t.Fatal("Apply should return fn's error")
	}
	if b.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after failed Apply", b.Len())
	}
}

func TestBoardApplyDuplicateInsertsNothing(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		groups   []Group
	}{
		{
			name: "repeat within batch",
			groups: []Group{
				{ID: "g1", Members: []Element{rectElement("a", "g1", Rect(0, 0, 10, 10)), rectElement("b", "g1", Rect(0, 20, 10, 10))}},
				{ID: "g2", Members: []Element{rectElement("c", "g2", Rect(50, 0, 10, 10)), rectElement("a", "g2", Rect(50, 20, 10, 10))}},
			},
		},
		{
			name:     "collides with board",
			existing: []string{"x"},
			groups: []Group{
				{ID: "g1", Members: []Element{rectElement("a", "g1", Rect(0, 0, 10, 10))}},
				{ID: "g2", Members: []Element{rectElement("x", "g2", Rect(50, 0, 10, 10))}},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBoard(Viewport{})
			for _, id := range tt.existing {
				if err := b.AddElement(rectElement(id, "old", Rect(500, 500, 10, 10))); err != nil {
					t.Fatalf("AddElement: %v", err)
				}
			}
			groups, err := b.Apply(func(Snapshot) ([]Group, error) { return tt.groups, nil })
			if err == nil {
				t.Fatal("Apply should reject duplicate ids")
			}
			if groups != nil {
				t.Errorf("Apply() groups = %v, want nil", groups)
			}
			if b.Len() != len(tt.existing) {
				t.Errorf("Len() = %d, want %d after failed Apply", b.Len(), len(tt.existing))
			}
			// The rejected ids stay free for a later batch.
			if err := b.AddElement(rectElement("a", "g", Rect(0, 0, 10, 10))); err != nil {
				t.Errorf("AddElement(a) after failed Apply: %v", err)
			}
		})
	}
}

func TestElementJSONDiscriminator(t *testing.T) {
	tests := []struct {
		el   Element
		want string
	}{
		{rectElement("r", "g", Rect(0, 0, 1, 1)), `"type":"rectangle"`},
		{&Text{Base: Base{ID: "t"}, Content: "hi"}, `"type":"text"`},
		{&Line{Base: Base{ID: "l"}, Points: []Point{{}, {X: 10}}}, `"type":"line"`},
	}
	for _, tt := range tests {
		t.Run(string(tt.el.Kind()), func(t *testing.T) {
			data, err := json.Marshal(tt.el)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			if !strings.Contains(string(data), tt.want) {
				t.Errorf("Marshal() = %s, want it to contain %s", data, tt.want)
			}
			if !strings.Contains(string(data), `"geometry"`) {
				t.Errorf("Marshal() = %s, missing geometry", data)
			}
		})
	}
}

func TestGroupBounds(t *testing.T) {
	g := Group{ID: "g", Members: []Element{
		rectElement("a", "g", Rect(0, 0, 100, 50)),
		&Text{Base: Base{ID: "b", GroupID: "g", Geometry: Rect(10, 10, 200, 20)}},
	}}
	bb := g.Bounds()
	if bb == nil || bb.Width != 210 || bb.Height != 50 {
		t.Errorf("Bounds() = %+v, want 210x50", bb)
	}
	if (Group{}).Bounds() != nil {
		t.Error("empty group should have nil bounds")
	}
}
