package annotate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/defectmark/internal/geom"
)

func TestFindOpAtTextBox(t *testing.T) {
	label := Text{Base: Base{ID: "label", BaseWidth: 3}, Text: "Defect", X: 100, Y: 200, FontSize: DefaultFontSize}
	h := NewHistory(stroke("s", geom.Pt(100, 200), geom.Pt(300, 200)), label)

	for _, scale := range []float64{1, 1.5, 2, 4.3} {
		m, err := MeasureText(label.Text, RenderFontSize(label, scale))
		require.NoError(t, err)
		pad := TextPadding * scale
		minX, maxX := label.X-pad, label.X+m.Width+pad
		minY, maxY := label.Y-m.Height/2-pad, label.Y+m.Height/2+pad
		const e = 0.01

		inside := []geom.Point{
			geom.Pt(minX+e, minY+e),
			geom.Pt(maxX-e, maxY-e),
			geom.Pt((minX+maxX)/2, label.Y),
			geom.Pt(minX+e, maxY-e),
		}
		for _, p := range inside {
			got, ok := FindOpAt(h, p, scale)
			require.Truef(t, ok, "scale %v: %v should hit", scale, p)
			require.Equal(t, "label", got.ID)
		}
		outside := []geom.Point{
			geom.Pt(minX-e, label.Y),
			geom.Pt(maxX+e, label.Y),
			geom.Pt(label.X, minY-e),
			geom.Pt(label.X, maxY+e),
		}
		for _, p := range outside {
			_, ok := FindOpAt(h, p, scale)
			require.Falsef(t, ok, "scale %v: %v should miss", scale, p)
		}
	}
}

func TestFindOpAtPrefersTopmost(t *testing.T) {
	under := Text{Base: Base{ID: "under"}, Text: "AAAA", X: 10, Y: 10}
	over := Text{Base: Base{ID: "over"}, Text: "BBBB", X: 12, Y: 12}
	got, ok := FindOpAt(NewHistory(under, over), geom.Pt(20, 12), 1)
	require.True(t, ok)
	require.Equal(t, "over", got.ID)
}

func TestFindOpAtIgnoresShapes(t *testing.T) {
	h := NewHistory(Rect{Base: Base{ID: "r"}, X: 0, Y: 0, W: 100, H: 100})
	_, ok := FindOpAt(h, geom.Pt(50, 50), 1)
	require.False(t, ok)
}
