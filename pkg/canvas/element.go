package canvas

import "encoding/json"

// PrimitiveKind names one of the three primitive element shapes.
type PrimitiveKind string

// Primitive kinds.
const (
	KindRectangle PrimitiveKind = "rectangle"
	KindText      PrimitiveKind = "text"
	KindLine      PrimitiveKind = "line"
)

// Fill styles understood by hosts.
const (
	FillSolid = "solid"
	FillNone  = "none"
)

// Style holds the stroke and fill attributes shared by all primitives.
type Style struct {
	StrokeColor     string  `json:"stroke_color"`
	BackgroundColor string  `json:"background_color"`
	FillStyle       string  `json:"fill_style,omitempty"`
	StrokeWidth     float64 `json:"stroke_width,omitempty"`
	Roundness       float64 `json:"roundness,omitempty"` // corner radius, rectangles only
	Opacity         float64 `json:"opacity,omitempty"`   // 0..100, 0 means opaque
}

// Base carries the fields every primitive has. Geometry is mandatory.
type Base struct {
	ID       string   `json:"id"`
	GroupID  string   `json:"group_id"`
	Geometry Geometry `json:"geometry"`
	Style    Style    `json:"style"`
}

// Element is a closed variant over [*Rectangle], [*Text] and [*Line].
type Element interface {
	// Kind reports which primitive the element is.
	Kind() PrimitiveKind
	// Common returns the shared fields.
	Common() *Base

	sealed()
}

// Rectangle is a filled or outlined box.
type Rectangle struct {
	Base
}

// Text is a block of text laid out inside its geometry.
type Text struct {
	Base
	Content       string  `json:"content"`
	FontFamily    string  `json:"font_family"`
	FontSize      float64 `json:"font_size"`
	TextAlign     string  `json:"text_align,omitempty"`
	VerticalAlign string  `json:"vertical_align,omitempty"`
}

// Line is a polyline. Points are relative to the geometry's top-left corner.
type Line struct {
	Base
	Points []Point `json:"points"`
}

func (*Rectangle) Kind() PrimitiveKind { return KindRectangle }
func (*Text) Kind() PrimitiveKind      { return KindText }
func (*Line) Kind() PrimitiveKind      { return KindLine }

func (r *Rectangle) Common() *Base { return &r.Base }
func (t *Text) Common() *Base      { return &t.Base }
func (l *Line) Common() *Base      { return &l.Base }

func (*Rectangle) sealed() {}
func (*Text) sealed()      {}
func (*Line) sealed()      {}

// MarshalJSON adds a "type" discriminator.
func (r *Rectangle) MarshalJSON() ([]byte, error) {
	type plain Rectangle
	return json.Marshal(struct {
		Type PrimitiveKind `json:"type"`
		*plain
	}{KindRectangle, (*plain)(r)})
}

// MarshalJSON adds a "type" discriminator.
func (t *Text) MarshalJSON() ([]byte, error) {
	type plain Text
	return json.Marshal(struct {
		Type PrimitiveKind `json:"type"`
		*plain
	}{KindText, (*plain)(t)})
}

// MarshalJSON adds a "type" discriminator.
func (l *Line) MarshalJSON() ([]byte, error) {
	type plain Line
	return json.Marshal(struct {
		Type PrimitiveKind `json:"type"`
		*plain
	}{KindLine, (*plain)(l)})
}

// Group is the set of primitives that together represent one content block.
// All members share ID as their GroupID.
type Group struct {
	ID      string    `json:"group_id"`
	Kind    string    `json:"kind"`
	Members []Element `json:"members"`
}

// Geometries returns the geometry of every member in order.
func (g Group) Geometries() []Geometry {
	out := make([]Geometry, len(g.Members))
	for i, m := range g.Members {
		out[i] = m.Common().Geometry
	}
	return out
}

// Bounds returns the footprint of the group, or nil for an empty group.
func (g Group) Bounds() *BoundingBox {
	return Bounds(g.Geometries())
}
