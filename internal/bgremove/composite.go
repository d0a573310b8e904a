package bgremove

import (
	"image"
	"image/color"
	"image/draw"
)

// Composite fills a new raster with bg and draws cut over it.
func Composite(cut image.Image, bg color.RGBA) *image.RGBA {
	b := cut.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)
	draw.Draw(dst, dst.Bounds(), cut, b.Min, draw.Over)
	return dst
}
