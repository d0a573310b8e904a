package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/geom"
)

// drawLabel draws text with its left edge at p.X and its vertical middle at
// p.Y, both in buffer pixels, using the label face at size.
func drawLabel(dst *image.RGBA, text string, p geom.Point, size float64, col color.Color) error {
	return annotate.WithFace(size, func(face font.Face) error {
		m := face.Metrics()
		// Middle of the ascent+descent box sits on p.Y.
		baseline := fixed.Int26_6(p.Y*64) + (m.Ascent-m.Descent)/2
		d := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(col),
			Face: face,
			Dot:  fixed.Point26_6{X: fixed.Int26_6(p.X * 64), Y: baseline},
		}
		d.DrawString(text)
		return nil
	})
}
