package render

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/geom"
	"github.com/example/defectmark/internal/viewport"
)

var (
	red   = color.RGBA{0xff, 0, 0, 0xff}
	white = color.RGBA{0xff, 0xff, 0xff, 0xff}
	blue  = color.RGBA{0, 0, 0xff, 0xff}
)

func solid(w, h int, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func base(id string, w float64) annotate.Base {
	return annotate.Base{ID: id, Color: red, BaseWidth: w}
}

func sample() annotate.History {
	return annotate.NewHistory(
		annotate.Stroke{Base: base("s", 4), Points: []geom.Point{{X: 10, Y: 10}, {X: 150, Y: 40}, {X: 180, Y: 160}}},
		annotate.Arrow{Base: base("a", 3), From: geom.Pt(20, 180), To: geom.Pt(120, 100)},
		annotate.Rect{Base: base("r", 2), X: 60, Y: 60, W: -40, H: 50},
		annotate.Ellipse{Base: base("e", 2), X: 100, Y: 120, W: 60, H: 40},
		annotate.Text{Base: base("t", 3), Text: "Defect", X: 30, Y: 30, FontSize: 18},
	)
}

func TestFlattenIdempotent(t *testing.T) {
	src := solid(200, 200, white)
	a := Flatten(src, sample())
	b := Flatten(src, sample())
	if !bytes.Equal(a.Pix, b.Pix) {
		t.Fatal("flattening twice produced different pixels")
	}
}

func TestFlattenMatchesIdentityRedraw(t *testing.T) {
	src := solid(200, 200, white)
	flat := Flatten(src, sample())
	shown := Redraw(Snapshot{Source: src, History: sample(), View: viewport.New(), Style: DefaultStyle()})
	if !bytes.Equal(flat.Pix, shown.Pix) {
		t.Fatal("preview and flattened output diverge")
	}
}

func TestFlattenEmptyHistoryCopiesSource(t *testing.T) {
	src := solid(50, 40, blue)
	src.Set(3, 4, red)
	got := Flatten(src, annotate.History{})
	if !bytes.Equal(got.Pix, src.Pix) {
		t.Fatal("flatten of empty history is not the source")
	}
	if got == src {
		t.Fatal("flatten must not return the source buffer")
	}
}

func TestFlattenDoesNotMutateSource(t *testing.T) {
	src := solid(100, 100, white)
	before := append([]uint8(nil), src.Pix...)
	Flatten(src, sample())
	if !bytes.Equal(before, src.Pix) {
		t.Fatal("source raster was modified")
	}
}

func TestRedrawAppliesZoomAndPan(t *testing.T) {
	src := solid(200, 200, white)
	h := annotate.NewHistory(annotate.Stroke{Base: base("s", 4), Points: []geom.Point{{X: 10, Y: 10}}})
	view := viewport.State{Zoom: 2, Pan: geom.Pt(30, 5)}
	got := Redraw(Snapshot{Source: src, History: h, View: view, Style: DefaultStyle()})
	if c := got.RGBAAt(50, 25); c != red {
		t.Fatalf("dot expected at (50,25), got %v", c)
	}
	if c := got.RGBAAt(10, 10); c == red {
		t.Fatal("dot drawn at unzoomed position")
	}
	if c := got.RGBAAt(15, 2); c.A != 0 {
		t.Fatalf("panned-away area should show the backdrop, got %v", c)
	}
}

func TestPendingOpIsDrawn(t *testing.T) {
	src := solid(100, 100, white)
	pending := annotate.Rect{Base: base("p", 4), X: 10, Y: 10, W: 50, H: 50}
	got := Redraw(Snapshot{Source: src, Pending: pending, View: viewport.New(), Style: DefaultStyle()})
	if c := got.RGBAAt(10, 35); c != red {
		t.Fatalf("pending rect edge not drawn: %v", c)
	}
	if c := got.RGBAAt(35, 35); c != white {
		t.Fatalf("rect interior should be untouched: %v", c)
	}
}

func lineThickness(img *image.RGBA, x int) int {
	n := 0
	for y := img.Bounds().Min.Y; y < img.Bounds().Max.Y; y++ {
		if c := img.RGBAAt(x, y); c.R > 0x80 && c.G < 0x80 {
			n++
		}
	}
	return n
}

func TestStrokeWidthScalesWithImageWidth(t *testing.T) {
	line := func(w int) annotate.History {
		y := float64(w) / 8
		return annotate.NewHistory(annotate.Stroke{Base: base("s", 4), Points: []geom.Point{{X: 0, Y: y}, {X: float64(w), Y: y}}})
	}
	small := Flatten(solid(1000, 250, white), line(1000))
	large := Flatten(solid(2000, 500, white), line(2000))
	ts, tl := lineThickness(small, 500), lineThickness(large, 1000)
	if ts != 4 || tl != 8 {
		t.Fatalf("thickness at 1000px = %d, at 2000px = %d; want 4 and 8", ts, tl)
	}
}

func TestArrowHeadIsFilled(t *testing.T) {
	src := solid(200, 200, white)
	h := annotate.NewHistory(annotate.Arrow{Base: base("a", 3), From: geom.Pt(10, 100), To: geom.Pt(150, 100)})
	got := Flatten(src, h)
	// 10px back from the tip and 4px off the shaft is inside the head only.
	if c := got.RGBAAt(140, 104); c != red {
		t.Fatalf("head not filled: %v", c)
	}
	if c := got.RGBAAt(60, 106); c != white {
		t.Fatalf("shaft too wide: %v", c)
	}
}

func TestSelectionOutlines(t *testing.T) {
	src := solid(300, 120, white)
	label := annotate.Text{Base: base("t", 3), Text: "Defect", X: 50, Y: 60}
	h := annotate.NewHistory(label)
	box, err := annotate.TextHitBox(label, 1)
	if err != nil {
		t.Fatal(err)
	}
	top := int(box.Min.Y)
	st := DefaultStyle()

	sel := Redraw(Snapshot{Source: src, History: h, View: viewport.New(), Selected: "t", Style: st})
	hov := Redraw(Snapshot{Source: src, History: h, View: viewport.New(), Hovered: "t", Style: st})
	plain := Redraw(Snapshot{Source: src, History: h, View: viewport.New(), Style: st})

	var selOn, hovOn, hovOff, plainOn int
	for x := int(box.Min.X) + 2; x < int(box.Max.X)-2; x++ {
		if sel.RGBAAt(x, top) == st.Selection {
			selOn++
		}
		if hov.RGBAAt(x, top) == st.Hover {
			hovOn++
		} else {
			hovOff++
		}
		if plain.RGBAAt(x, top) != white {
			plainOn++
		}
	}
	if selOn == 0 || hovOn == 0 {
		t.Fatalf("outline missing: selected %d hovered %d", selOn, hovOn)
	}
	if hovOff == 0 || hovOn >= selOn {
		t.Fatalf("hover outline should be dashed: on %d off %d solid %d", hovOn, hovOff, selOn)
	}
	if plainOn != 0 {
		t.Fatalf("unselected label drew an outline")
	}
}

func TestRedrawLogsUndrawableLabel(t *testing.T) {
	var logs bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logs, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	h := annotate.NewHistory(
		annotate.Text{Base: base("bad", 3), Text: "Defect", X: 10, Y: 10, FontSize: math.Inf(1)},
		annotate.Rect{Base: base("r", 2), X: 20, Y: 20, W: 40, H: 40},
	)
	out := Flatten(solid(100, 100, white), h)
	if got := out.RGBAAt(20, 40); got.R < 200 || got.G > 100 {
		t.Fatalf("ops after the bad label were not drawn: %v", got)
	}
	if !strings.Contains(logs.String(), "label not drawn") || !strings.Contains(logs.String(), "id=bad") {
		t.Fatalf("expected a warning for the label, got %q", logs.String())
	}
}
