package render

import (
	"image"
	"image/color"
	"image/draw"
)

var (
	checkerLight = color.RGBA{0xdd, 0xdd, 0xdd, 0xff}
	checkerDark  = color.RGBA{0xaa, 0xaa, 0xaa, 0xff}
)

// drawCheckerboard fills rect with size-pixel squares, the usual backdrop
// for images with transparency.
func drawCheckerboard(dst *image.RGBA, rect image.Rectangle, size int, light, dark color.Color) {
	if size <= 0 {
		size = 8
	}
	lu, du := image.NewUniform(light), image.NewUniform(dark)
	for y := rect.Min.Y; y < rect.Max.Y; y += size {
		for x := rect.Min.X; x < rect.Max.X; x += size {
			src := lu
			if ((x/size)+(y/size))%2 != 0 {
				src = du
			}
			cell := image.Rect(x, y, x+size, y+size).Intersect(rect)
			draw.Draw(dst, cell, src, image.Point{}, draw.Src)
		}
	}
}

// Checkerboard fills dst with the checkerboard backdrop.
func Checkerboard(dst *image.RGBA) {
	drawCheckerboard(dst, dst.Bounds(), 8, checkerLight, checkerDark)
}
