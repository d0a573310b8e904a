package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/vector"

	"github.com/example/defectmark/internal/geom"
)

// polygon is a closed outline in buffer pixels.
type polygon []geom.Point

func (p polygon) area() float64 {
	var a float64
	for i := range p {
		j := (i + 1) % len(p)
		a += p[i].X*p[j].Y - p[j].X*p[i].Y
	}
	return a / 2
}

// fill rasterises the union of polys onto dst. The rasteriser accumulates
// signed coverage, so every polygon is emitted with the same winding to keep
// overlaps from cancelling out.
func fill(dst *image.RGBA, polys []polygon, col color.Color) {
	var bounds geom.Rect
	first := true
	for _, p := range polys {
		for _, pt := range p {
			if first {
				bounds = geom.Rect{Min: pt, Max: pt}
				first = false
				continue
			}
			bounds.Min.X = math.Min(bounds.Min.X, pt.X)
			bounds.Min.Y = math.Min(bounds.Min.Y, pt.Y)
			bounds.Max.X = math.Max(bounds.Max.X, pt.X)
			bounds.Max.Y = math.Max(bounds.Max.Y, pt.Y)
		}
	}
	if first {
		return
	}
	r := bounds.Image().Intersect(dst.Bounds())
	if r.Empty() {
		return
	}
	z := vector.NewRasterizer(r.Dx(), r.Dy())
	z.DrawOp = draw.Over
	ox, oy := float32(r.Min.X), float32(r.Min.Y)
	for _, p := range polys {
		if len(p) < 3 {
			continue
		}
		pts := p
		if p.area() < 0 {
			pts = reversed(p)
		}
		z.MoveTo(float32(pts[0].X)-ox, float32(pts[0].Y)-oy)
		for _, pt := range pts[1:] {
			z.LineTo(float32(pt.X)-ox, float32(pt.Y)-oy)
		}
		z.ClosePath()
	}
	z.Draw(dst, r, image.NewUniform(col), image.Point{})
}

func reversed(p polygon) polygon {
	out := make(polygon, len(p))
	for i, pt := range p {
		out[len(p)-1-i] = pt
	}
	return out
}

// circleSegments picks enough vertices for a smooth outline of radius r.
func circleSegments(r float64) int {
	n := int(math.Ceil(2 * math.Pi * r / 2))
	return min(max(n, 12), 180)
}

func disc(c geom.Point, r float64) polygon {
	n := circleSegments(r)
	p := make(polygon, n)
	for i := range p {
		a := 2 * math.Pi * float64(i) / float64(n)
		p[i] = geom.Pt(c.X+r*math.Cos(a), c.Y+r*math.Sin(a))
	}
	return p
}

// segment returns the rectangle covering a line of width w from a to b.
func segment(a, b geom.Point, w float64) polygon {
	d := b.Sub(a)
	l := math.Hypot(d.X, d.Y)
	if l == 0 {
		return nil
	}
	n := geom.Pt(-d.Y/l*w/2, d.X/l*w/2)
	return polygon{a.Add(n), b.Add(n), b.Sub(n), a.Sub(n)}
}

// strokePolys outlines a polyline of width w with round caps and joins.
func strokePolys(pts []geom.Point, w float64, closed bool) []polygon {
	if len(pts) == 0 || w <= 0 {
		return nil
	}
	polys := make([]polygon, 0, 2*len(pts)+1)
	for _, p := range pts {
		polys = append(polys, disc(p, w/2))
	}
	for i := 1; i < len(pts); i++ {
		if s := segment(pts[i-1], pts[i], w); s != nil {
			polys = append(polys, s)
		}
	}
	if closed && len(pts) > 2 {
		if s := segment(pts[len(pts)-1], pts[0], w); s != nil {
			polys = append(polys, s)
		}
	}
	return polys
}

// strokeLine draws a polyline of width w.
func strokeLine(dst *image.RGBA, pts []geom.Point, w float64, closed bool, col color.Color) {
	fill(dst, strokePolys(pts, w, closed), col)
}

// ellipsePoints samples the outline of the ellipse inscribed in box.
func ellipsePoints(box geom.Rect) []geom.Point {
	c := geom.Pt((box.Min.X+box.Max.X)/2, (box.Min.Y+box.Max.Y)/2)
	rx, ry := box.Dx()/2, box.Dy()/2
	n := circleSegments(math.Max(rx, ry))
	pts := make([]geom.Point, n)
	for i := range pts {
		a := 2 * math.Pi * float64(i) / float64(n)
		pts[i] = geom.Pt(c.X+rx*math.Cos(a), c.Y+ry*math.Sin(a))
	}
	return pts
}

func rectPoints(box geom.Rect) []geom.Point {
	return []geom.Point{box.Min, geom.Pt(box.Max.X, box.Min.Y), box.Max, geom.Pt(box.Min.X, box.Max.Y)}
}

// dashes splits the closed outline pts into alternating on and off runs of
// dash and gap length and returns the on runs.
func dashes(pts []geom.Point, dash, gap float64) [][]geom.Point {
	if dash <= 0 || len(pts) < 2 {
		return [][]geom.Point{pts}
	}
	var (
		out    [][]geom.Point
		cur    []geom.Point
		on     = true
		remain = dash
	)
	cur = append(cur, pts[0])
	for i := 0; i < len(pts); i++ {
		a, b := pts[i], pts[(i+1)%len(pts)]
		segLen := a.Dist(b)
		pos := 0.0
		for segLen-pos > remain {
			pos += remain
			p := a.Add(b.Sub(a).Mul(pos / segLen))
			if on {
				out = append(out, append(cur, p))
				cur = nil
				remain = gap
			} else {
				cur = []geom.Point{p}
				remain = dash
			}
			on = !on
		}
		remain -= segLen - pos
		if on {
			cur = append(cur, b)
		}
	}
	if on && len(cur) > 1 {
		out = append(out, cur)
	}
	return out
}
