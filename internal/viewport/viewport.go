// Package viewport maps pointer positions on the displayed canvas to native
// image pixels and back, and owns the zoom and pan rules.
//
// The canvas buffer always has the image's native size. It is shown scaled
// to Layout.Display on screen, and the image is drawn into the buffer
// translated by Pan and scaled by Zoom. Input mapping is the exact inverse of
// that render transform.
package viewport

import (
	"math"

	"github.com/example/defectmark/internal/geom"
)

const (
	MinZoom = 0.5
	MaxZoom = 3.0
	// ZoomStep is the change applied by the zoom in and out controls.
	ZoomStep = 0.2
	// WheelSensitivity converts wheel delta units into zoom.
	WheelSensitivity = 0.001
	// PinchSensitivity converts the change in finger distance into zoom.
	PinchSensitivity = 0.005
)

// Layout places the canvas on screen.
type Layout struct {
	// Origin is the screen position of the canvas element's top-left corner.
	Origin geom.Point
	// Display is the on-screen size of the canvas element.
	Display geom.Size
	// Buffer is the size of the canvas pixel buffer.
	Buffer geom.Size
	// Window is the size of the host window, used to classify the device.
	// When zero the display size stands in for it.
	Window geom.Size
}

// Class returns the device class for the layout.
func (l Layout) Class() Class {
	if l.Window.W > 0 {
		return ClassFor(l.Window.W)
	}
	return ClassFor(l.Display.W)
}

// Ratio returns buffer pixels per display pixel on each axis.
func (l Layout) Ratio() (rx, ry float64) {
	if l.Display.Empty() {
		return 1, 1
	}
	return l.Buffer.W / l.Display.W, l.Buffer.H / l.Display.H
}

// Contains reports whether a screen point lies on the displayed canvas.
func (l Layout) Contains(screen geom.Point) bool {
	d := screen.Sub(l.Origin)
	return d.X >= 0 && d.Y >= 0 && d.X < l.Display.W && d.Y < l.Display.H
}

// State is the zoom and pan of one editing session.
type State struct {
	Zoom float64
	Pan  geom.Point
}

// New returns the identity view.
func New() State {
	return State{Zoom: 1}
}

// ClampZoom limits z to [MinZoom, MaxZoom].
func ClampZoom(z float64) float64 {
	if math.IsNaN(z) {
		return 1
	}
	return math.Min(MaxZoom, math.Max(MinZoom, z))
}

func (s State) zoom() float64 {
	if s.Zoom == 0 {
		return 1
	}
	return s.Zoom
}

// ToCanvasSpace maps a screen point into native image pixels:
// ((screen - origin) * buffer/display - pan) / zoom.
func (s State) ToCanvasSpace(l Layout, screen geom.Point) geom.Point {
	rx, ry := l.Ratio()
	z := s.zoom()
	return geom.Point{
		X: ((screen.X-l.Origin.X)*rx - s.Pan.X) / z,
		Y: ((screen.Y-l.Origin.Y)*ry - s.Pan.Y) / z,
	}
}

// FromCanvasSpace maps a native image point to the screen. It is the inverse
// of ToCanvasSpace.
func (s State) FromCanvasSpace(l Layout, p geom.Point) geom.Point {
	rx, ry := l.Ratio()
	z := s.zoom()
	return geom.Point{
		X: (p.X*z+s.Pan.X)/rx + l.Origin.X,
		Y: (p.Y*z+s.Pan.Y)/ry + l.Origin.Y,
	}
}

// ToBuffer maps a native image point into canvas buffer pixels, which is the
// transform the renderer applies.
func (s State) ToBuffer(p geom.Point) geom.Point {
	z := s.zoom()
	return geom.Point{X: p.X*z + s.Pan.X, Y: p.Y*z + s.Pan.Y}
}

// WithZoom returns s with the zoom set to the clamped z.
func (s State) WithZoom(z float64) State {
	s.Zoom = ClampZoom(z)
	return s
}

// StepIn zooms in by ZoomStep.
func (s State) StepIn() State { return s.StepBy(ZoomStep) }

// StepOut zooms out by ZoomStep.
func (s State) StepOut() State { return s.StepBy(-ZoomStep) }

// StepBy changes the zoom by step, clamped.
func (s State) StepBy(step float64) State { return s.WithZoom(s.zoom() + step) }

// Wheel applies a scroll delta. Scrolling up (negative delta) zooms in.
func (s State) Wheel(deltaY float64) State {
	return s.WithZoom(s.zoom() - deltaY*WheelSensitivity)
}

// PanBy moves the view by d buffer pixels.
func (s State) PanBy(d geom.Point) State {
	s.Pan = s.Pan.Add(d)
	return s
}

// PanByScreen moves the view by a screen-space drag delta.
func (s State) PanByScreen(l Layout, d geom.Point) State {
	rx, ry := l.Ratio()
	return s.PanBy(geom.Pt(d.X*rx, d.Y*ry))
}

// Reset returns the identity view.
func (s State) Reset() State { return New() }

// Fit returns the display size for a buffer shown inside avail, keeping the
// aspect ratio and never scaling above 1.
func Fit(buffer, avail geom.Size) geom.Size {
	if buffer.Empty() || avail.Empty() {
		return geom.Size{}
	}
	k := math.Min(1, math.Min(avail.W/buffer.W, avail.H/buffer.H))
	return geom.Size{W: buffer.W * k, H: buffer.H * k}
}
