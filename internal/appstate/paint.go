package appstate

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"log"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"golang.org/x/exp/shiny/screen"

	"github.com/example/defectmark/internal/bgremove"
	"github.com/example/defectmark/internal/editor"
	"github.com/example/defectmark/internal/geom"
	"github.com/example/defectmark/internal/render"
	"github.com/example/defectmark/internal/session"
	"github.com/example/defectmark/internal/theme"
)

// frameDropThreshold specifies how many consecutive frames can be canceled
// before a draw is allowed to complete to keep the UI responsive.
const frameDropThreshold = 10

// paintState is everything one frame shows. The event loop builds it and
// the paint goroutine draws it.
type paintState struct {
	width, height int
	layout        frameLayout
	chrome        chromeState
	buttons       []Button
	hover         int
	theme         *theme.Theme

	snap     render.Snapshot
	images   []editor.Image
	active   int
	capacity int
	zoom     float64
	notice   string

	removing bool
	progress bgremove.Progress

	prompt     geom.Point
	promptOpen bool
	promptText string
	confirm    string

	// preview returns the live camera frame while the camera is open.
	preview func() (*image.RGBA, error)
}

// painter owns the buffers reused between frames. It is used by one
// goroutine at a time.
type painter struct {
	canvas *image.RGBA
	thumbs map[*image.RGBA]*image.RGBA
}

func newPainter() *painter {
	return &painter{thumbs: make(map[*image.RGBA]*image.RGBA)}
}

// compose draws st into dst. It returns false when ctx was cancelled
// part way through.
func (p *painter) compose(ctx context.Context, dst *image.RGBA, st paintState) bool {
	th := st.theme
	f := st.layout
	fillRect(dst, dst.Bounds(), th.Background)

	switch st.chrome.State {
	case editor.StateInitial:
		drawMessage(dst, "Add up to "+plural(st.capacity-len(st.images), "image"), image.Pt(f.Area.Min.X+f.Area.Dx()/2, f.Area.Min.Y+f.Area.Dy()/2-48), th.Foreground, th.ButtonBorder)
	case editor.StateUploading:
		drawMessage(dst, "Loading images...", areaCentre(f), th.Foreground, th.ButtonBorder)
	case editor.StateCamera:
		p.drawPreview(dst, st)
	default:
		p.drawCanvas(dst, st)
	}
	if ctx.Err() != nil {
		return false
	}

	fillRect(dst, f.Strip, th.ToolbarBackground)
	p.drawStrip(dst, st)
	fillRect(dst, f.Toolbar, th.ToolbarBackground)
	fillRect(dst, f.Status, th.ToolbarBackground)
	for i, b := range st.buttons {
		state := StateDefault
		if b.Pressed() {
			state = StatePressed
		} else if i == st.hover {
			state = StateHover
		}
		b.Draw(dst, th, state)
	}
	status := st.chrome.State.String()
	if st.chrome.State == editor.StateEditor {
		status = fmt.Sprintf("%.0f%%", st.zoom*100)
	}
	drawLabel(dst, status, image.Pt(f.Status.Max.X-textWidth(status)-8, f.Status.Min.Y+16), th.Foreground)
	if ctx.Err() != nil {
		return false
	}

	if st.removing {
		drawProgress(dst, f, th, st.progress)
	}
	if st.promptOpen {
		drawPrompt(dst, st)
	}
	if st.notice != "" {
		drawMessage(dst, st.notice, image.Pt(f.Area.Min.X+f.Area.Dx()/2, f.Area.Min.Y+40), th.Notice, th.Notice)
	}
	if st.confirm != "" {
		draw.Draw(dst, dst.Bounds(), image.NewUniform(color.RGBA{0, 0, 0, 96}), image.Point{}, draw.Over)
		r := drawMessage(dst, st.confirm, areaCentre(f), th.Foreground, th.ButtonBorder)
		drawLabel(dst, "Y: yes   N: no", image.Pt(r.Min.X+8, r.Max.Y+16), th.ButtonText)
	}
	return ctx.Err() == nil
}

func areaCentre(f frameLayout) image.Point {
	return image.Pt(f.Area.Min.X+f.Area.Dx()/2, f.Area.Min.Y+f.Area.Dy()/2)
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func (p *painter) drawCanvas(dst *image.RGBA, st paintState) {
	src := st.snap.Source
	if src == nil || st.layout.Canvas.Empty() {
		return
	}
	size := src.Bounds().Size()
	if p.canvas == nil || p.canvas.Bounds().Size() != size {
		p.canvas = image.NewRGBA(image.Rectangle{Max: size})
	}
	render.RedrawInto(p.canvas, st.snap)
	xdraw.ApproxBiLinear.Scale(dst, st.layout.Canvas, p.canvas, p.canvas.Bounds(), draw.Over, nil)
	strokeRect(dst, st.layout.Canvas.Inset(-1), st.theme.ThumbBorder)
}

func (p *painter) drawPreview(dst *image.RGBA, st paintState) {
	if st.preview == nil {
		return
	}
	frame, err := st.preview()
	if err != nil {
		drawMessage(dst, "Starting camera...", areaCentre(st.layout), st.theme.Foreground, st.theme.ButtonBorder)
		return
	}
	f := computeLayout(st.width, st.height, frame.Bounds().Size())
	xdraw.ApproxBiLinear.Scale(dst, f.Canvas, frame, frame.Bounds(), draw.Src, nil)
	label := fmt.Sprintf("%d of %d", len(st.images), st.capacity)
	drawLabel(dst, label, image.Pt(f.Canvas.Min.X+4, f.Canvas.Max.Y-6), st.theme.Foreground)
}

func (p *painter) drawStrip(dst *image.RGBA, st paintState) {
	th := st.theme
	f := st.layout
	live := make(map[*image.RGBA]bool, len(st.images))
	for i, img := range st.images {
		r := f.thumbRect(i)
		fillRect(dst, r, th.ThumbBackground)
		thumb, ok := p.thumbs[img.Source]
		if !ok {
			thumb = session.Thumbnail(img.Source, thumbSide)
			p.thumbs[img.Source] = thumb
		}
		live[img.Source] = true
		tb := thumb.Bounds()
		at := image.Pt(r.Min.X+(thumbSide-tb.Dx())/2, r.Min.Y+(thumbSide-tb.Dy())/2)
		draw.Draw(dst, tb.Add(at.Sub(tb.Min)), thumb, tb.Min, draw.Over)
		if i == st.active {
			strokeRect(dst, r, th.ThumbActive)
			strokeRect(dst, r.Inset(1), th.ThumbActive)
		} else {
			strokeRect(dst, r, th.ThumbBorder)
		}
	}
	for src := range p.thumbs {
		if !live[src] {
			delete(p.thumbs, src)
		}
	}
	count := fmt.Sprintf("%d/%d", len(st.images), st.capacity)
	end := f.thumbRect(len(st.images))
	drawLabel(dst, count, image.Pt(end.Min.X+4, end.Min.Y+thumbSide/2+4), th.Foreground)
}

func drawProgress(dst *image.RGBA, f frameLayout, th *theme.Theme, pr bgremove.Progress) {
	c := areaCentre(f)
	track := image.Rect(c.X-150, c.Y-6, c.X+150, c.Y+6)
	fillRect(dst, image.Rect(c.X-158, c.Y-30, c.X+158, c.Y+14), th.ToolbarBackground)
	fillRect(dst, track, th.ProgressTrack)
	done := track
	done.Max.X = track.Min.X + track.Dx()*pr.Percent/100
	fillRect(dst, done, th.ProgressBar)
	drawLabel(dst, fmt.Sprintf("%s %d%%", pr.Phase, pr.Percent), image.Pt(track.Min.X, track.Min.Y-10), th.Foreground)
}

// drawPrompt shows the text being typed at the point the label will go.
func drawPrompt(dst *image.RGBA, st paintState) {
	vl := st.layout.viewport(st.snap.Source.Bounds().Size())
	at := st.snap.View.FromCanvasSpace(vl, st.prompt).Image()
	col := st.theme.Foreground
	if st.chrome.Style.Color.A != 0 {
		col = st.chrome.Style.Color
	}
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(col), Face: messageFace}
	text := st.promptText + "|"
	w := d.MeasureString(text).Ceil()
	ascent := messageFace.Metrics().Ascent.Ceil()
	box := image.Rect(at.X-4, at.Y-ascent/2-4, at.X+w+4, at.Y+ascent/2+8)
	draw.Draw(dst, box, image.NewUniform(color.RGBA{255, 255, 255, 200}), image.Point{}, draw.Over)
	strokeRect(dst, box, st.theme.Selection)
	d.Dot = fixed.P(at.X, at.Y+ascent/2)
	d.DrawString(text)
}

// drawFrame renders st into a fresh buffer and publishes it, unless ctx is
// cancelled first.
func (p *painter) drawFrame(ctx context.Context, s screen.Screen, w screen.Window, st paintState) {
	b, err := s.NewBuffer(image.Point{st.width, st.height})
	if err != nil {
		log.Printf("new buffer: %v", err)
		return
	}
	defer b.Release()
	if !p.compose(ctx, b.RGBA(), st) {
		return
	}
	w.Upload(image.Point{}, b, b.Bounds())
	w.Publish()
}
