package appstate

import (
	"image"

	"github.com/example/defectmark/internal/geom"
	"github.com/example/defectmark/internal/viewport"
)

const (
	toolbarWidth = 88
	stripHeight  = 64
	statusHeight = 24
	thumbSide    = 56
	thumbGap     = 4
	buttonHeight = 22
	swatchSize   = 16
	// canvasMargin keeps the canvas off the chrome edges.
	canvasMargin = 8
)

// frameLayout splits the window into the thumbnail strip along the top,
// the toolbar down the left, the status bar along the bottom and the
// canvas area in between.
type frameLayout struct {
	Window  image.Rectangle
	Strip   image.Rectangle
	Toolbar image.Rectangle
	Status  image.Rectangle
	Area    image.Rectangle
	// Canvas is where the image is shown: the source fitted into Area
	// without upscaling and centred.
	Canvas image.Rectangle
}

func computeLayout(width, height int, src image.Point) frameLayout {
	f := frameLayout{Window: image.Rect(0, 0, width, height)}
	f.Strip = image.Rect(0, 0, width, min(stripHeight, height))
	f.Status = image.Rect(0, max(f.Strip.Max.Y, height-statusHeight), width, height)
	f.Toolbar = image.Rect(0, f.Strip.Max.Y, min(toolbarWidth, width), f.Status.Min.Y)
	f.Area = image.Rect(f.Toolbar.Max.X, f.Strip.Max.Y, width, f.Status.Min.Y)

	avail := f.Area.Inset(canvasMargin)
	if avail.Empty() || src.X <= 0 || src.Y <= 0 {
		return f
	}
	fit := viewport.Fit(geom.Size{W: float64(src.X), H: float64(src.Y)}, geom.SizeOf(avail))
	w, h := max(1, int(fit.W)), max(1, int(fit.H))
	x := avail.Min.X + (avail.Dx()-w)/2
	y := avail.Min.Y + (avail.Dy()-h)/2
	f.Canvas = image.Rect(x, y, x+w, y+h)
	return f
}

// viewport describes the canvas to the editor's coordinate mapping.
func (f frameLayout) viewport(src image.Point) viewport.Layout {
	return viewport.Layout{
		Origin:  geom.Pt(float64(f.Canvas.Min.X), float64(f.Canvas.Min.Y)),
		Display: geom.SizeOf(f.Canvas),
		Buffer:  geom.Size{W: float64(src.X), H: float64(src.Y)},
		Window:  geom.SizeOf(f.Window),
	}
}

func (f frameLayout) thumbRect(i int) image.Rectangle {
	x := f.Strip.Min.X + thumbGap + i*(thumbSide+thumbGap)
	y := f.Strip.Min.Y + (f.Strip.Dy()-thumbSide)/2
	return image.Rect(x, y, x+thumbSide, y+thumbSide)
}

// thumbAt returns the index of the thumbnail under p, or -1.
func (f frameLayout) thumbAt(p image.Point, n int) int {
	for i := 0; i < n; i++ {
		if p.In(f.thumbRect(i)) {
			return i
		}
	}
	return -1
}
