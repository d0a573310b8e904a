package viewport

import "github.com/example/defectmark/internal/geom"

// Pinch tracks a two finger gesture between touch events.
type Pinch struct {
	last   float64
	active bool
}

// Begin records the starting distance between two touches.
func (p *Pinch) Begin(a, b geom.Point) {
	p.last = a.Dist(b)
	p.active = true
}

// Active reports whether a pinch is in progress.
func (p *Pinch) Active() bool { return p.active }

// Update zooms s by the change in distance since the last event.
func (p *Pinch) Update(s State, a, b geom.Point) State {
	d := a.Dist(b)
	if !p.active {
		p.Begin(a, b)
		return s
	}
	delta := d - p.last
	p.last = d
	return s.WithZoom(s.zoom() + delta*PinchSensitivity)
}

// End finishes the gesture.
func (p *Pinch) End() {
	p.active = false
	p.last = 0
}
