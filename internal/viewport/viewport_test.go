package viewport

import (
	"math"
	"testing"

	"github.com/example/defectmark/internal/geom"
)

func near(a, b geom.Point) bool {
	const eps = 1e-9
	return math.Abs(a.X-b.X) < eps*math.Max(1, math.Abs(a.X)) && math.Abs(a.Y-b.Y) < eps*math.Max(1, math.Abs(a.Y))
}

func TestCanvasSpaceRoundTrip(t *testing.T) {
	layouts := []Layout{
		{Origin: geom.Pt(0, 0), Display: geom.Size{W: 4000, H: 3000}, Buffer: geom.Size{W: 4000, H: 3000}},
		{Origin: geom.Pt(12, 60), Display: geom.Size{W: 800, H: 600}, Buffer: geom.Size{W: 4000, H: 3000}},
		{Origin: geom.Pt(-5.5, 3.25), Display: geom.Size{W: 375, H: 812}, Buffer: geom.Size{W: 900, H: 1949}},
	}
	pans := []geom.Point{{}, {X: 120, Y: -40}, {X: -333.3, Y: 999.9}}
	points := []geom.Point{{}, {X: 1, Y: 1}, {X: 1234.5, Y: 678.25}, {X: -50, Y: 4000}}
	for _, l := range layouts {
		for z := MinZoom; z <= MaxZoom+1e-9; z += 0.25 {
			for _, pan := range pans {
				s := State{Zoom: z, Pan: pan}
				for _, p := range points {
					got := s.ToCanvasSpace(l, s.FromCanvasSpace(l, p))
					if !near(got, p) {
						t.Fatalf("zoom %v pan %v layout %+v: round trip %v -> %v", z, pan, l, p, got)
					}
				}
			}
		}
	}
}

func TestToCanvasSpaceFormula(t *testing.T) {
	l := Layout{Origin: geom.Pt(10, 20), Display: geom.Size{W: 500, H: 250}, Buffer: geom.Size{W: 1000, H: 500}}
	s := State{Zoom: 2, Pan: geom.Pt(100, 50)}
	// ((110-10)*2 - 100)/2 = 50, ((70-20)*2 - 50)/2 = 25
	got := s.ToCanvasSpace(l, geom.Pt(110, 70))
	if got != geom.Pt(50, 25) {
		t.Fatalf("ToCanvasSpace = %v, want (50,25)", got)
	}
	if b := s.ToBuffer(got); b != geom.Pt(200, 100) {
		t.Fatalf("ToBuffer = %v, want (200,100)", b)
	}
}

func TestZoomClamp(t *testing.T) {
	s := New()
	for i := 0; i < 50; i++ {
		s = s.StepIn()
	}
	if s.Zoom != MaxZoom {
		t.Fatalf("zoom in clamps to %v, got %v", MaxZoom, s.Zoom)
	}
	for i := 0; i < 50; i++ {
		s = s.StepOut()
	}
	if s.Zoom != MinZoom {
		t.Fatalf("zoom out clamps to %v, got %v", MinZoom, s.Zoom)
	}
	if got := New().Wheel(-100).Zoom; math.Abs(got-1.1) > 1e-9 {
		t.Fatalf("wheel up zoom = %v, want 1.1", got)
	}
	if got := New().Wheel(1e6).Zoom; got != MinZoom {
		t.Fatalf("wheel clamp = %v", got)
	}
}

func TestPinch(t *testing.T) {
	var p Pinch
	s := New()
	p.Begin(geom.Pt(0, 0), geom.Pt(100, 0))
	s = p.Update(s, geom.Pt(0, 0), geom.Pt(140, 0))
	if math.Abs(s.Zoom-1.2) > 1e-9 {
		t.Fatalf("pinch out zoom = %v, want 1.2", s.Zoom)
	}
	s = p.Update(s, geom.Pt(0, 0), geom.Pt(1000, 0))
	if s.Zoom != MaxZoom {
		t.Fatalf("pinch clamp = %v", s.Zoom)
	}
	p.End()
	if p.Active() {
		t.Fatal("pinch still active after End")
	}
}

func TestFit(t *testing.T) {
	got := Fit(geom.Size{W: 4000, H: 3000}, geom.Size{W: 800, H: 800})
	if got != (geom.Size{W: 800, H: 600}) {
		t.Fatalf("Fit = %+v", got)
	}
	got = Fit(geom.Size{W: 200, H: 100}, geom.Size{W: 800, H: 800})
	if got != (geom.Size{W: 200, H: 100}) {
		t.Fatalf("Fit upscaled small buffer: %+v", got)
	}
}

func TestTrackerNotifies(t *testing.T) {
	tr := NewTracker(Layout{})
	var seen []Layout
	cancel := tr.Subscribe(func(l Layout) { seen = append(seen, l) })
	l := Layout{Display: geom.Size{W: 10, H: 10}}
	tr.Update(l)
	tr.Update(l)
	cancel()
	tr.Update(Layout{})
	if len(seen) != 1 || seen[0] != l {
		t.Fatalf("notifications = %+v", seen)
	}
	if ClassFor(400) != ClassMobile || ClassFor(900) != ClassTablet || ClassFor(1400) != ClassDesktop {
		t.Fatal("ClassFor thresholds")
	}
}

func TestLayoutClassPrefersWindow(t *testing.T) {
	l := Layout{Display: geom.Size{W: 600, H: 400}}
	if l.Class() != ClassMobile || l.Class().Hover() {
		t.Fatalf("display class = %v", l.Class())
	}
	l.Window = geom.Size{W: 1920, H: 1080}
	if l.Class() != ClassDesktop || !l.Class().Hover() {
		t.Fatalf("window class = %v", l.Class())
	}
}
