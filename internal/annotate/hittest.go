package annotate

import "github.com/example/defectmark/internal/geom"

// TextBounds returns the unpadded box of t drawn at scale: its left edge at
// X and its vertical middle at Y.
func TextBounds(t Text, scale float64) (geom.Rect, error) {
	m, err := MeasureText(t.Text, RenderFontSize(t, scale))
	if err != nil {
		return geom.Rect{}, err
	}
	return geom.Rect{
		Min: geom.Pt(t.X, t.Y-m.Height/2),
		Max: geom.Pt(t.X+m.Width, t.Y+m.Height/2),
	}, nil
}

// TextHitBox returns the box that selects t, which is also the box the
// selection outline is drawn around.
func TextHitBox(t Text, scale float64) (geom.Rect, error) {
	r, err := TextBounds(t, scale)
	if err != nil {
		return geom.Rect{}, err
	}
	return r.Outset(TextPadding * scale), nil
}

// FindOpAt returns the topmost text op whose hit box contains p. Only labels
// are hit-testable; shapes are never picked.
func FindOpAt(h History, p geom.Point, scale float64) (Text, bool) {
	for i := h.Len() - 1; i >= 0; i-- {
		t, ok := h.At(i).(Text)
		if !ok {
			continue
		}
		box, err := TextHitBox(t, scale)
		if err != nil {
			continue
		}
		if box.Contains(p) {
			return t, true
		}
	}
	return Text{}, false
}
