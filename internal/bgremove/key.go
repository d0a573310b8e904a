package bgremove

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"slices"
)

// KeyRemover removes a flat backdrop by flood filling inward from the image
// border over pixels close to the dominant border colour. It needs no model
// and suits photographs taken against a plain wall or sheet.
type KeyRemover struct {
	// Tolerance is the largest per channel distance still counted as
	// background.
	Tolerance uint8
	// Feather blurs the mask edge by this many pixels.
	Feather int
}

// DefaultKeyRemover returns a KeyRemover tuned for plain backdrops.
func DefaultKeyRemover() KeyRemover {
	return KeyRemover{Tolerance: 40, Feather: 1}
}

const progressRows = 32

// Cutout implements Remover.
func (k KeyRemover) Cutout(ctx context.Context, src image.Image, progress ProgressFunc) (image.Image, error) {
	if progress == nil {
		progress = func(string, int64, int64) {}
	}
	rgba := toRGBA(src)
	w, h := rgba.Rect.Dx(), rgba.Rect.Dy()

	progress(KeyInference, 0, 1)
	bg := borderColor(rgba)
	progress(KeyInference, 1, 1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mask, err := k.flood(ctx, rgba, bg, progress)
	if err != nil {
		return nil, err
	}
	mask = blurGray(mask, k.Feather)

	out := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		if y%progressRows == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			progress(KeyOutput, int64(y), int64(h))
		}
		for x := 0; x < w; x++ {
			c := rgba.RGBAAt(x, y)
			a := uint32(mask.Pix[y*mask.Stride+x]) * uint32(c.A) / 0xff
			out.SetNRGBA(x, y, unpremultiply(c, uint8(a)))
		}
	}
	progress(KeyOutput, int64(h), int64(h))
	return out, nil
}

// flood marks every pixel reachable from the border through background
// coloured pixels. The returned mask is 0 for background and 0xff elsewhere.
func (k KeyRemover) flood(ctx context.Context, img *image.RGBA, bg color.RGBA, progress ProgressFunc) (*image.Gray, error) {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	total := int64(w * h)
	mask := image.NewGray(image.Rect(0, 0, w, h))
	for i := range mask.Pix {
		mask.Pix[i] = 0xff
	}
	near := func(x, y int) bool {
		return distance(img.RGBAAt(x, y), bg) <= k.Tolerance
	}
	queue := make([]image.Point, 0, 2*(w+h))
	push := func(x, y int) {
		i := y*mask.Stride + x
		if mask.Pix[i] == 0 || !near(x, y) {
			return
		}
		mask.Pix[i] = 0
		queue = append(queue, image.Pt(x, y))
	}
	for x := 0; x < w; x++ {
		push(x, 0)
		push(x, h-1)
	}
	for y := 0; y < h; y++ {
		push(0, y)
		push(w-1, y)
	}
	var done int64
	for len(queue) > 0 {
		p := queue[len(queue)-1]
		queue = queue[:len(queue)-1]
		done++
		if done%int64(progressRows*max(w, 1)) == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			progress(KeyMask, done, total)
		}
		if p.X > 0 {
			push(p.X-1, p.Y)
		}
		if p.X < w-1 {
			push(p.X+1, p.Y)
		}
		if p.Y > 0 {
			push(p.X, p.Y-1)
		}
		if p.Y < h-1 {
			push(p.X, p.Y+1)
		}
	}
	progress(KeyMask, total, total)
	return mask, nil
}

func toRGBA(src image.Image) *image.RGBA {
	b := src.Bounds()
	if r, ok := src.(*image.RGBA); ok && b.Min == (image.Point{}) {
		return r
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// borderColor is the per channel median of the outermost pixels.
func borderColor(img *image.RGBA) color.RGBA {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	var rs, gs, bs []uint8
	add := func(x, y int) {
		c := img.RGBAAt(x, y)
		rs = append(rs, c.R)
		gs = append(gs, c.G)
		bs = append(bs, c.B)
	}
	for x := 0; x < w; x++ {
		add(x, 0)
		add(x, h-1)
	}
	for y := 1; y < h-1; y++ {
		add(0, y)
		add(w-1, y)
	}
	median := func(v []uint8) uint8 {
		slices.Sort(v)
		return v[len(v)/2]
	}
	return color.RGBA{R: median(rs), G: median(gs), B: median(bs), A: 0xff}
}

func distance(a, b color.RGBA) uint8 {
	d := func(x, y uint8) uint8 {
		if x > y {
			return x - y
		}
		return y - x
	}
	return max(d(a.R, b.R), d(a.G, b.G), d(a.B, b.B))
}

func unpremultiply(c color.RGBA, a uint8) color.NRGBA {
	if c.A == 0 || a == 0 {
		return color.NRGBA{}
	}
	un := func(v uint8) uint8 { return uint8(uint32(v) * 0xff / uint32(c.A)) }
	return color.NRGBA{R: un(c.R), G: un(c.G), B: un(c.B), A: a}
}

// blurGray is a separable box blur using running sums.
func blurGray(src *image.Gray, radius int) *image.Gray {
	if radius <= 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := image.NewGray(b)
	dst := image.NewGray(b)

	prefix := make([]int, max(w, h)+1)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride:]
		for x := 0; x < w; x++ {
			prefix[x+1] = prefix[x] + int(row[x])
		}
		for x := 0; x < w; x++ {
			x0, x1 := max(0, x-radius), min(w-1, x+radius)
			tmp.Pix[y*tmp.Stride+x] = uint8((prefix[x1+1] - prefix[x0]) / (x1 - x0 + 1))
		}
	}
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			prefix[y+1] = prefix[y] + int(tmp.Pix[y*tmp.Stride+x])
		}
		for y := 0; y < h; y++ {
			y0, y1 := max(0, y-radius), min(h-1, y+radius)
			dst.Pix[y*dst.Stride+x] = uint8((prefix[y1+1] - prefix[y0]) / (y1 - y0 + 1))
		}
	}
	return dst
}
