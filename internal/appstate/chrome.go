package appstate

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/colorutil"
	"github.com/example/defectmark/internal/editor"
	"github.com/example/defectmark/internal/theme"
)

var messageFace font.Face

func init() {
	f, err := opentype.Parse(goregular.TTF)
	if err != nil {
		log.Fatalf("parse font: %v", err)
	}
	messageFace, err = opentype.NewFace(f, &opentype.FaceOptions{Size: 20, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		log.Fatalf("font face: %v", err)
	}
}

// ButtonState describes the visual state of a button.
type ButtonState int

const (
	StateDefault ButtonState = iota
	StateHover
	StatePressed
)

// Button is an interactive element of the window chrome. Clicking it runs
// the named action, the same one its keyboard shortcut runs.
type Button interface {
	Draw(dst *image.RGBA, th *theme.Theme, state ButtonState)
	Rect() image.Rectangle
	Action() string
	// Pressed reports whether the button shows a selected mode, such as the
	// current tool.
	Pressed() bool
}

// LabelButton is a plain text button.
type LabelButton struct {
	label  string
	action string
	rect   image.Rectangle
	active bool
	flat   bool
}

func (b *LabelButton) Draw(dst *image.RGBA, th *theme.Theme, state ButtonState) {
	bg := th.ButtonBackground
	if b.flat {
		bg = th.ToolbarBackground
	}
	switch state {
	case StateHover:
		bg = th.ButtonBackgroundHover
	case StatePressed:
		bg = th.ButtonBackgroundPress
	}
	fillRect(dst, b.rect, bg)
	if !b.flat {
		strokeRect(dst, b.rect, th.ButtonBorder)
	}
	drawLabel(dst, b.label, image.Pt(b.rect.Min.X+4, b.rect.Min.Y+(b.rect.Dy()+10)/2), th.ButtonText)
}

func (b *LabelButton) Rect() image.Rectangle { return b.rect }
func (b *LabelButton) Action() string        { return b.action }
func (b *LabelButton) Pressed() bool         { return b.active }

// SwatchButton picks a palette colour.
type SwatchButton struct {
	color  color.RGBA
	action string
	rect   image.Rectangle
	active bool
}

func (b *SwatchButton) Draw(dst *image.RGBA, th *theme.Theme, state ButtonState) {
	fillRect(dst, b.rect, b.color)
	switch {
	case state == StatePressed:
		strokeRect(dst, b.rect, th.Foreground)
		strokeRect(dst, b.rect.Inset(1), th.ToolbarBackground)
	case state == StateHover:
		draw.Draw(dst, b.rect, image.NewUniform(color.RGBA{255, 255, 255, 80}), image.Point{}, draw.Over)
		strokeRect(dst, b.rect, th.ButtonBorder)
	default:
		strokeRect(dst, b.rect, th.ButtonBorder)
	}
}

func (b *SwatchButton) Rect() image.Rectangle { return b.rect }
func (b *SwatchButton) Action() string        { return b.action }
func (b *SwatchButton) Pressed() bool         { return b.active }

// WidthButton picks a stroke width and previews it as a line.
type WidthButton struct {
	width  float64
	color  color.RGBA
	action string
	rect   image.Rectangle
	active bool
}

func (b *WidthButton) Draw(dst *image.RGBA, th *theme.Theme, state ButtonState) {
	bg := th.ToolbarBackground
	switch state {
	case StateHover:
		bg = th.ButtonBackgroundHover
	case StatePressed:
		bg = th.ButtonBackgroundPress
	}
	fillRect(dst, b.rect, bg)
	drawLabel(dst, fmt.Sprintf("%g", b.width), image.Pt(b.rect.Min.X+4, b.rect.Min.Y+12), th.ButtonText)
	thick := max(1, int(b.width+0.5))
	mid := b.rect.Min.Y + b.rect.Dy()/2
	line := image.Rect(b.rect.Min.X+28, mid-thick/2, b.rect.Max.X-4, mid-thick/2+thick).Intersect(b.rect)
	fillRect(dst, line, b.color)
}

func (b *WidthButton) Rect() image.Rectangle { return b.rect }
func (b *WidthButton) Action() string        { return b.action }
func (b *WidthButton) Pressed() bool         { return b.active }

// chromeState is the part of the editor the toolbar reflects.
type chromeState struct {
	State   editor.State
	Tool    annotate.Tool
	PanMode bool
	Style   annotate.Style
	Prompt  bool
	Confirm bool
}

var toolButtons = []struct {
	label  string
	action string
	tool   annotate.Tool
}{
	{"P:Pen", actPen, annotate.ToolPen},
	{"A:Arrow", actArrow, annotate.ToolArrow},
	{"R:Rect", actRect, annotate.ToolRect},
	{"E:Ellipse", actEllipse, annotate.ToolEllipse},
	{"T:Text", actText, annotate.ToolText},
}

// buildButtons lays out every clickable element for the current mode.
func buildButtons(f frameLayout, cs chromeState) []Button {
	var out []Button
	x, y := f.Toolbar.Min.X+4, f.Toolbar.Min.Y+4
	w := f.Toolbar.Dx() - 8
	add := func(label, action string, active bool) {
		out = append(out, &LabelButton{label: label, action: action, rect: image.Rect(x, y, x+w, y+buttonHeight), active: active})
		y += buttonHeight + 2
	}

	switch cs.State {
	case editor.StateInitial:
		cx := f.Area.Min.X + f.Area.Dx()/2
		cy := f.Area.Min.Y + f.Area.Dy()/2
		choices := []struct{ label, action string }{
			{"C: Take photo", actCamera},
			{"Ctrl+V: Paste image", actPaste},
		}
		for i, c := range choices {
			r := image.Rect(cx-90, cy+i*40, cx+90, cy+i*40+32)
			out = append(out, &LabelButton{label: c.label, action: c.action, rect: r})
		}
	case editor.StateCamera:
		add("Capture", actCapture, false)
		add("Switch", actSwitch, false)
		add("Done", actDone, false)
	case editor.StateRemovingBackground:
		add("Cancel", actCancelBG, false)
	case editor.StateEditor:
		for _, tb := range toolButtons {
			add(tb.label, tb.action, !cs.PanMode && cs.Tool == tb.tool)
		}
		add("H:Pan", actPan, cs.PanMode)

		y += 4
		cols := max(1, w/(swatchSize+4))
		for i, nc := range colorutil.Palette() {
			sx := x + (i%cols)*(swatchSize+4)
			sy := y + (i/cols)*(swatchSize+4)
			out = append(out, &SwatchButton{
				color:  nc.Color,
				action: fmt.Sprintf("%s%d", actColor, i),
				rect:   image.Rect(sx, sy, sx+swatchSize, sy+swatchSize),
				active: nc.Color == cs.Style.Color,
			})
		}
		rows := (len(colorutil.Palette()) + cols - 1) / cols
		y += rows*(swatchSize+4) + 4

		if cs.Tool == annotate.ToolText && !cs.PanMode {
			sizes := annotate.FontSizePresets()
			cur := annotate.NearestPreset(sizes, cs.Style.FontSize)
			for i, s := range sizes {
				add(fmt.Sprintf("%gpx", s), fmt.Sprintf("%s%d", actFont, i), i == cur)
			}
		} else {
			widths := annotate.WidthPresets()
			cur := annotate.NearestPreset(widths, cs.Style.Width)
			for i, wv := range widths {
				out = append(out, &WidthButton{
					width:  wv,
					color:  cs.Style.Color,
					action: fmt.Sprintf("%s%d", actWidth, i),
					rect:   image.Rect(x, y, x+w, y+16),
					active: i == cur,
				})
				y += 16
			}
		}
		y += 4
		add("Undo", actUndo, false)
		add("Delete", actDelete, false)
		add("Clear", actClear, false)
		add("Remove BG", actRemoveBG, false)
		add("Camera", actCamera, false)
		add("Save", actSave, false)
	}

	sx := f.Status.Min.X + 4
	for _, b := range hints(statusBindings(cs)) {
		label := fmt.Sprintf("%s:%s", b.keys[0], b.hint)
		lw := textWidth(label) + 8
		r := image.Rect(sx, f.Status.Min.Y+2, sx+lw, f.Status.Max.Y-2)
		out = append(out, &LabelButton{label: label, action: b.action, rect: r, flat: true})
		sx += lw + 4
	}
	return out
}

func statusBindings(cs chromeState) []binding {
	switch {
	case cs.Confirm:
		return confirmBindings
	case cs.Prompt:
		return promptBindings
	}
	return bindings[cs.State]
}

// buttonAt returns the index of the button under p, or -1.
func buttonAt(buttons []Button, p image.Point) int {
	for i, b := range buttons {
		if p.In(b.Rect()) {
			return i
		}
	}
	return -1
}

func fillRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	draw.Draw(dst, r, image.NewUniform(c), image.Point{}, draw.Src)
}

func strokeRect(dst *image.RGBA, r image.Rectangle, c color.Color) {
	if r.Empty() {
		return
	}
	u := image.NewUniform(c)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+1), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Max.Y-1, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Min.X, r.Min.Y, r.Min.X+1, r.Max.Y), u, image.Point{}, draw.Src)
	draw.Draw(dst, image.Rect(r.Max.X-1, r.Min.Y, r.Max.X, r.Max.Y), u, image.Point{}, draw.Src)
}

// drawLabel draws chrome text with its baseline at p.
func drawLabel(dst *image.RGBA, s string, p image.Point, c color.Color) {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(c), Face: basicfont.Face7x13, Dot: fixed.P(p.X, p.Y)}
	d.DrawString(s)
}

func textWidth(s string) int {
	d := &font.Drawer{Face: basicfont.Face7x13}
	return d.MeasureString(s).Ceil()
}

// drawMessage draws s in a bordered box centred on c.
func drawMessage(dst *image.RGBA, s string, c image.Point, fg, border color.Color) image.Rectangle {
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(fg), Face: messageFace}
	w := d.MeasureString(s).Ceil()
	ascent := messageFace.Metrics().Ascent.Ceil()
	descent := messageFace.Metrics().Descent.Ceil()
	px := c.X - w/2
	py := c.Y - (ascent+descent)/2 + ascent
	rect := image.Rect(px-8, py-ascent-8, px+w+8, py+descent+8)
	draw.Draw(dst, rect, image.NewUniform(color.RGBA{255, 255, 255, 230}), image.Point{}, draw.Over)
	strokeRect(dst, rect, border)
	strokeRect(dst, rect.Inset(1), border)
	d.Dot = fixed.P(px, py)
	d.DrawString(s)
	return rect
}
