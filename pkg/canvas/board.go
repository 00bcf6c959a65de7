package canvas

import (
	"fmt"
	"sync"
)

// Host is the canvas surface consumed by the content pipeline. The pipeline
// reads Elements and Viewport to build a [Snapshot] and hands finished
// elements to AddElement; it never mutates viewport state.
type Host interface {
	AddElement(e Element) error
	Elements() []Geometry
	Viewport() Viewport
}

// Board is an in-memory [Host]. It is safe for concurrent use.
type Board struct {
	mu       sync.Mutex
	elements []Element
	ids      map[string]struct{}
	viewport Viewport
}

// NewBoard creates an empty board with the given viewport.
func NewBoard(vp Viewport) *Board {
	return &Board{ids: make(map[string]struct{}), viewport: vp}
}

// AddElement inserts e. Duplicate element ids are rejected.
func (b *Board) AddElement(e Element) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addLocked(e)
}

func (b *Board) addLocked(e Element) error {
	id := e.Common().ID
	if _, dup := b.ids[id]; dup {
		return fmt.Errorf("duplicate element id %q", id)
	}
	b.ids[id] = struct{}{}
	b.elements = append(b.elements, e)
	return nil
}

// Elements returns a copy of every element's geometry.
func (b *Board) Elements() []Geometry {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.geometriesLocked()
}

func (b *Board) geometriesLocked() []Geometry {
	out := make([]Geometry, len(b.elements))
	for i, e := range b.elements {
		out[i] = e.Common().Geometry
	}
	return out
}

// Viewport returns the current viewport.
func (b *Board) Viewport() Viewport {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.viewport
}

// SetViewport replaces the viewport. Hosts call this, the pipeline never does.
func (b *Board) SetViewport(vp Viewport) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.viewport = vp
}

// Snapshot captures the current geometry and viewport.
func (b *Board) Snapshot() Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Snapshot{Existing: b.geometriesLocked(), Viewport: b.viewport}
}

// Members returns a copy of the element list.
func (b *Board) Members() []Element {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Element, len(b.elements))
	copy(out, b.elements)
	return out
}

// Len returns the number of elements on the board.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.elements)
}

// Apply captures a snapshot, calls fn with it, and inserts every group fn
// returns, all under the board lock. Concurrent Apply calls on one board are
// serialized, so each sees the groups inserted by the previous one.
//
// Insertion is all or nothing: when any member id is already on the board or
// repeats within the batch, nothing is inserted. fn must not call back into
// the board.
func (b *Board) Apply(fn func(Snapshot) ([]Group, error)) ([]Group, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	snap := Snapshot{Existing: b.geometriesLocked(), Viewport: b.viewport}
	groups, err := fn(snap)
	if err != nil {
		return nil, err
	}
	if err := b.checkLocked(groups); err != nil {
		return nil, err
	}
	for _, g := range groups {
		for _, m := range g.Members {
			b.ids[m.Common().ID] = struct{}{}
			b.elements = append(b.elements, m)
		}
	}
	return groups, nil
}

// checkLocked rejects a batch whose member ids collide with the board or
// with each other.
func (b *Board) checkLocked(groups []Group) error {
	seen := make(map[string]struct{})
	for _, g := range groups {
		for _, m := range g.Members {
			id := m.Common().ID
			if _, dup := b.ids[id]; dup {
				return fmt.Errorf("duplicate element id %q", id)
			}
			if _, dup := seen[id]; dup {
				return fmt.Errorf("duplicate element id %q", id)
			}
			seen[id] = struct{}{}
		}
	}
	return nil
}
