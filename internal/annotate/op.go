// Package annotate models the markup that can be drawn over an image: a
// closed set of operation kinds, an immutable per-image history, the builder
// for in-progress operations and the text hit-test.
package annotate

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/example/defectmark/internal/geom"
)

// Kind enumerates the closed set of annotation operations.
type Kind int

const (
	KindStroke Kind = iota
	KindArrow
	KindRect
	KindEllipse
	KindText
)

var kindNames = [...]string{
	KindStroke:  "stroke",
	KindArrow:   "arrow",
	KindRect:    "rect",
	KindEllipse: "ellipse",
	KindText:    "text",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("Kind(%d)", int(k))
	}
	return kindNames[k]
}

// ParseKind accepts a kind name. "pen" and "circle" are accepted as aliases.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "stroke", "pen":
		return KindStroke, nil
	case "arrow":
		return KindArrow, nil
	case "rect", "rectangle":
		return KindRect, nil
	case "ellipse", "circle":
		return KindEllipse, nil
	case "text":
		return KindText, nil
	}
	return 0, fmt.Errorf("unknown annotation kind %q", s)
}

// Op is one committed markup action. The concrete type is always one of
// Stroke, Arrow, Rect, Ellipse or Text; callers switch on the type.
type Op interface {
	OpID() string
	Kind() Kind
	Style() Base
	isOp()
}

// Base carries the fields every operation has. BaseWidth and FontSize are in
// reference-resolution units; see ScaleFactor.
type Base struct {
	ID        string
	Color     color.RGBA
	BaseWidth float64
}

// OpID returns the operation id.
func (b Base) OpID() string { return b.ID }

// Style returns the shared fields.
func (b Base) Style() Base { return b }

// Stroke is a freehand polyline.
type Stroke struct {
	Base
	Points []geom.Point
}

// Arrow is a straight shaft with a filled head at To.
type Arrow struct {
	Base
	From, To geom.Point
}

// Rect is an outlined rectangle anchored at X,Y. W and H may be negative
// when it was dragged up or left of its start point.
type Rect struct {
	Base
	X, Y, W, H float64
}

// Ellipse is an outlined ellipse inscribed in the X,Y,W,H box.
type Ellipse struct {
	Base
	X, Y, W, H float64
}

// Text is a single line label. Y is the vertical middle of the line and X
// its left edge.
type Text struct {
	Base
	Text     string
	X, Y     float64
	FontSize float64
}

func (Stroke) Kind() Kind  { return KindStroke }
func (Arrow) Kind() Kind   { return KindArrow }
func (Rect) Kind() Kind    { return KindRect }
func (Ellipse) Kind() Kind { return KindEllipse }
func (Text) Kind() Kind    { return KindText }

func (Stroke) isOp()  {}
func (Arrow) isOp()   {}
func (Rect) isOp()    {}
func (Ellipse) isOp() {}
func (Text) isOp()    {}

// Position returns the anchor used when dragging the label.
func (t Text) Position() geom.Point { return geom.Pt(t.X, t.Y) }

// MovedTo returns a copy of t anchored at p.
func (t Text) MovedTo(p geom.Point) Text {
	t.X, t.Y = p.X, p.Y
	return t
}

// Box returns the normalised bounding box of the rectangle.
func (r Rect) Box() geom.Rect {
	return geom.RectFromPoints(geom.Pt(r.X, r.Y), geom.Pt(r.X+r.W, r.Y+r.H))
}

// Box returns the normalised bounding box of the ellipse.
func (e Ellipse) Box() geom.Rect {
	return geom.RectFromPoints(geom.Pt(e.X, e.Y), geom.Pt(e.X+e.W, e.Y+e.H))
}

// clone returns a copy of op that shares no mutable memory with it.
func clone(op Op) Op {
	if s, ok := op.(Stroke); ok {
		pts := make([]geom.Point, len(s.Points))
		copy(pts, s.Points)
		s.Points = pts
		return s
	}
	return op
}
