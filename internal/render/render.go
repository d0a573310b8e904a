// Package render turns an image and its annotation history into pixels.
//
// Redraw produces the on-screen canvas for a snapshot of the editor and
// Flatten produces the saved image. Both go through the same op painter so
// that what is saved is exactly what was shown.
package render

import (
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/geom"
	"github.com/example/defectmark/internal/viewport"
)

// Style holds the colours of editor chrome drawn into the canvas.
type Style struct {
	// Backdrop fills buffer pixels the source does not cover.
	Backdrop color.Color
	// Checker, when set, replaces Backdrop with a checkerboard of
	// CheckerLight and CheckerDark squares.
	Checker                   bool
	CheckerLight, CheckerDark color.Color
	// Selection outlines the selected label.
	Selection color.Color
	// Hover outlines the hovered label.
	Hover color.Color
}

// DefaultStyle returns a transparent backdrop with blue outlines.
func DefaultStyle() Style {
	return Style{
		Backdrop:  color.Transparent,
		Selection: color.RGBA{0x3b, 0x82, 0xf6, 0xff},
		Hover:     color.RGBA{0x3b, 0x82, 0xf6, 0xff},
	}
}

// Snapshot is everything a redraw depends on. It is a value: the editor
// builds a new one for every change and the renderer never mutates it.
type Snapshot struct {
	Source   image.Image
	History  annotate.History
	Pending  annotate.Op
	View     viewport.State
	Selected string
	Hovered  string
	Style    Style
}

const (
	// OutlineWidth is the reference width of selection outlines.
	OutlineWidth = 2.0
	// DashLength and DashGap shape the hover outline.
	DashLength = 6.0
	DashGap    = 4.0
)

// Redraw renders s into a new buffer sized to the source's native
// resolution.
func Redraw(s Snapshot) *image.RGBA {
	if s.Source == nil {
		return image.NewRGBA(image.Rect(0, 0, 0, 0))
	}
	b := s.Source.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	RedrawInto(dst, s)
	return dst
}

// RedrawInto clears dst and renders s into it. dst is expected to have the
// source's size; a host may reuse it between frames.
func RedrawInto(dst *image.RGBA, s Snapshot) {
	st := s.Style
	if st.Checker {
		light, dark := st.CheckerLight, st.CheckerDark
		if light == nil || dark == nil {
			light, dark = checkerLight, checkerDark
		}
		drawCheckerboard(dst, dst.Bounds(), 8, light, dark)
	} else {
		bg := st.Backdrop
		if bg == nil {
			bg = color.Transparent
		}
		draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	}
	if s.Source == nil {
		return
	}
	view := s.View
	if view.Zoom == 0 {
		view = viewport.New()
	}
	drawSource(dst, s.Source, view)

	p := painter{
		dst:   dst,
		view:  view,
		scale: annotate.ScaleFactor(s.Source.Bounds().Dx()),
		style: st,
	}
	for i := 0; i < s.History.Len(); i++ {
		op := s.History.At(i)
		p.outline(op, s.Selected, s.Hovered)
		p.draw(op)
	}
	if s.Pending != nil {
		p.draw(s.Pending)
	}
}

// Flatten composites h over src at native resolution. It is the saved form
// of a Redraw with an identity view and nothing selected.
func Flatten(src image.Image, h annotate.History) *image.RGBA {
	return Redraw(Snapshot{Source: src, History: h, View: viewport.New(), Style: Style{Backdrop: color.Transparent}})
}

func drawSource(dst *image.RGBA, src image.Image, view viewport.State) {
	sb := src.Bounds()
	if view.Zoom == 1 && view.Pan.X == math.Trunc(view.Pan.X) && view.Pan.Y == math.Trunc(view.Pan.Y) {
		off := image.Pt(int(view.Pan.X), int(view.Pan.Y))
		draw.Draw(dst, sb.Sub(sb.Min).Add(off), src, sb.Min, draw.Over)
		return
	}
	z := view.Zoom
	// Aff3 maps source pixels to destination pixels.
	m := f64.Aff3{
		z, 0, view.Pan.X - float64(sb.Min.X)*z,
		0, z, view.Pan.Y - float64(sb.Min.Y)*z,
	}
	xdraw.BiLinear.Transform(dst, m, src, sb, xdraw.Over, nil)
}

// painter draws ops in canvas space onto a buffer under a view.
type painter struct {
	dst   *image.RGBA
	view  viewport.State
	scale float64
	style Style
}

func (p painter) pt(q geom.Point) geom.Point { return p.view.ToBuffer(q) }

func (p painter) pts(qs []geom.Point) []geom.Point {
	out := make([]geom.Point, len(qs))
	for i, q := range qs {
		out[i] = p.pt(q)
	}
	return out
}

// width converts a canvas-space width to buffer pixels.
func (p painter) width(w float64) float64 { return w * p.view.Zoom }

func (p painter) draw(op annotate.Op) {
	lw := annotate.RenderWidth(op, p.scale)
	c := op.Style().Color
	switch o := op.(type) {
	case annotate.Stroke:
		strokeLine(p.dst, p.pts(o.Points), p.width(lw), false, c)
	case annotate.Arrow:
		p.arrow(o, lw)
	case annotate.Rect:
		strokeLine(p.dst, p.pts(rectPoints(o.Box())), p.width(lw), true, c)
	case annotate.Ellipse:
		strokeLine(p.dst, p.pts(ellipsePoints(o.Box())), p.width(lw), true, c)
	case annotate.Text:
		size := annotate.RenderFontSize(o, p.scale) * p.view.Zoom
		if err := drawLabel(p.dst, o.Text, p.pt(o.Position()), size, c); err != nil {
			slog.Warn("label not drawn", "id", o.ID, "size", size, "err", err)
		}
	default:
		panic("render: unknown annotation op")
	}
}

// arrow draws the shaft and a filled head whose wings sit ArrowWingAngle
// either side of the shaft.
func (p painter) arrow(a annotate.Arrow, lw float64) {
	c := a.Color
	head := annotate.ArrowHeadLength(lw, p.scale)
	angle := math.Atan2(a.To.Y-a.From.Y, a.To.X-a.From.X)
	wing := func(da float64) geom.Point {
		return geom.Pt(a.To.X-head*math.Cos(angle+da), a.To.Y-head*math.Sin(angle+da))
	}
	tri := []geom.Point{a.To, wing(-annotate.ArrowWingAngle), wing(annotate.ArrowWingAngle)}
	w := p.width(lw)
	polys := strokePolys(p.pts([]geom.Point{a.From, a.To}), w, false)
	polys = append(polys, strokePolys(p.pts(tri), w, true)...)
	polys = append(polys, polygon(p.pts(tri)))
	fill(p.dst, polys, c)
}

// outline draws the selection or hover box of a label before its glyphs.
func (p painter) outline(op annotate.Op, selected, hovered string) {
	t, ok := op.(annotate.Text)
	if !ok {
		return
	}
	isSel := selected != "" && t.ID == selected
	isHov := hovered != "" && t.ID == hovered
	if !isSel && !isHov {
		return
	}
	box, err := annotate.TextHitBox(t, p.scale)
	if err != nil {
		return
	}
	w := p.width(OutlineWidth * p.scale)
	corners := p.pts(rectPoints(box))
	if isSel {
		strokeLine(p.dst, corners, w, true, p.style.Selection)
		return
	}
	dash := p.width(DashLength * p.scale)
	gap := p.width(DashGap * p.scale)
	for _, run := range dashes(corners, dash, gap) {
		strokeLine(p.dst, run, w, false, p.style.Hover)
	}
}
