package annotate

import (
	"errors"
	"fmt"
	"image/color"
	"strings"

	"github.com/example/defectmark/internal/geom"
)

// Tool selects what a pointer drag draws.
type Tool int

const (
	ToolPen Tool = iota
	ToolArrow
	ToolRect
	ToolEllipse
	ToolText
)

var toolNames = [...]string{"pen", "arrow", "rect", "ellipse", "text"}

func (t Tool) String() string {
	if t < 0 || int(t) >= len(toolNames) {
		return fmt.Sprintf("Tool(%d)", int(t))
	}
	return toolNames[t]
}

// ParseTool accepts a tool name; "circle" is an alias for ellipse.
func ParseTool(s string) (Tool, error) {
	k, err := ParseKind(s)
	if err != nil {
		return 0, fmt.Errorf("unknown tool %q", s)
	}
	return Tool(k), nil
}

var (
	// ErrTextTool is returned when Begin is asked to start a label; labels
	// are entered through a modal and created with NewText.
	ErrTextTool = errors.New("text is entered through the text prompt")
	// ErrEmptyText rejects labels with no visible characters.
	ErrEmptyText = errors.New("text is empty")
)

// Style is the pen state new ops take their look from.
type Style struct {
	Color    color.RGBA
	Width    float64
	FontSize float64
}

// DefaultStyle returns red, width 3 and the default label size.
func DefaultStyle() Style {
	return Style{Color: color.RGBA{0xef, 0x44, 0x44, 0xff}, Width: 3, FontSize: DefaultFontSize}
}

// Builder holds the single in-progress op between pointer down and up.
type Builder struct {
	ids   Generator
	start geom.Point
	op    Op
}

// NewBuilder returns a Builder that stamps ops with ids from gen.
func NewBuilder(gen Generator) *Builder {
	if gen == nil {
		gen = UUIDv7()
	}
	return &Builder{ids: gen}
}

// Begin starts a new transient op for tool at start, replacing any op that
// was in progress.
func (b *Builder) Begin(tool Tool, style Style, start geom.Point) error {
	base := Base{ID: b.ids(), Color: style.Color, BaseWidth: style.Width}
	b.start = start
	switch tool {
	case ToolPen:
		b.op = Stroke{Base: base, Points: []geom.Point{start}}
	case ToolArrow:
		b.op = Arrow{Base: base, From: start, To: start}
	case ToolRect:
		b.op = Rect{Base: base, X: start.X, Y: start.Y}
	case ToolEllipse:
		b.op = Ellipse{Base: base, X: start.X, Y: start.Y}
	case ToolText:
		b.op = nil
		return ErrTextTool
	default:
		b.op = nil
		return fmt.Errorf("unknown tool %v", tool)
	}
	return nil
}

// Extend feeds the next pointer position into the in-progress op. Strokes
// grow by one point; shapes resize from their fixed start point.
func (b *Builder) Extend(p geom.Point) {
	switch op := b.op.(type) {
	case Stroke:
		op.Points = append(op.Points, p)
		b.op = op
	case Arrow:
		op.To = p
		b.op = op
	case Rect:
		op.W, op.H = p.X-b.start.X, p.Y-b.start.Y
		b.op = op
	case Ellipse:
		op.W, op.H = p.X-b.start.X, p.Y-b.start.Y
		b.op = op
	}
}

// Pending returns the in-progress op, if any.
func (b *Builder) Pending() (Op, bool) {
	return b.op, b.op != nil
}

// Active reports whether an op is in progress.
func (b *Builder) Active() bool { return b.op != nil }

// Commit appends the in-progress op to h and clears the slot. With nothing
// in progress it returns h unchanged and false.
func (b *Builder) Commit(h History) (History, bool) {
	if b.op == nil {
		return h, false
	}
	op := b.op
	b.op = nil
	return h.Append(op), true
}

// Cancel discards the in-progress op.
func (b *Builder) Cancel() { b.op = nil }

// NewText builds a label op at p from a confirmed text prompt.
func (b *Builder) NewText(style Style, text string, p geom.Point) (Text, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Text{}, ErrEmptyText
	}
	size := style.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	return Text{
		Base:     Base{ID: b.ids(), Color: style.Color, BaseWidth: style.Width},
		Text:     text,
		X:        p.X,
		Y:        p.Y,
		FontSize: size,
	}, nil
}
