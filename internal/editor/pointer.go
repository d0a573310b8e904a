package editor

import (
	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/geom"
)

// PointerKind is the input device behind a pointer event.
type PointerKind int

const (
	Mouse PointerKind = iota
	Pen
	Touch
)

// Button is the pressed mouse button.
type Button int

const (
	ButtonPrimary Button = iota
	ButtonMiddle
	ButtonSecondary
)

// Pointer is one pointer event in screen coordinates.
type Pointer struct {
	Kind   PointerKind
	Button Button
	Screen geom.Point
}

// TouchSlop is how far, in screen pixels, a touch may wander before a
// pending long press turns into an ordinary drag.
const TouchSlop = 10.0

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureDraw
	gesturePan
	gestureDrag
	gestureLongPress
)

type gesture struct {
	kind    gestureKind
	imageID string
	// start is the canvas point of the press; screen the last screen point.
	start  geom.Point
	origin geom.Point
	screen geom.Point

	text    annotate.Text
	offset  geom.Point
	history annotate.History

	timer Timer
	token uint64
}

// PointerDown starts a gesture. A press on a label selects it and arms a
// drag, immediately for mouse and pen and after a long press for touch. A
// press elsewhere starts the active tool, or opens the text prompt for the
// text tool.
func (e *Editor) PointerDown(p Pointer) error {
	return e.update(func() error {
		if err := e.require(StateEditor); err != nil {
			return err
		}
		if e.prompt != nil || e.pinch.Active() {
			return nil
		}
		en, ok := e.sess.Active()
		if !ok {
			return nil
		}
		e.cancelGesture()
		c := e.view.ToCanvasSpace(e.observer.Layout(), p.Screen)
		g := gesture{imageID: en.ID, start: c, origin: p.Screen, screen: p.Screen}

		if p.Button == ButtonMiddle || (e.panMode && p.Button == ButtonPrimary) {
			g.kind = gesturePan
			e.gesture = g
			return nil
		}
		if hit, ok := annotate.FindOpAt(en.History, c, en.Scale()); ok {
			g.text = hit
			g.offset = c.Sub(hit.Position())
			g.history = en.History
			if p.Kind == Touch {
				e.seq++
				g.kind = gestureLongPress
				g.token = e.seq
				token := e.seq
				g.timer = e.clock.AfterFunc(e.longPress, func() { e.armDrag(token) })
			} else {
				g.kind = gestureDrag
				e.selected = hit.ID
			}
			e.gesture = g
			return nil
		}
		e.selected = ""
		if e.tool == annotate.ToolText {
			e.prompt = &c
			return nil
		}
		if err := e.builder.Begin(e.tool, e.style, c); err != nil {
			return err
		}
		g.kind = gestureDraw
		e.gesture = g
		return nil
	})
}

func (e *Editor) armDrag(token uint64) {
	_ = e.update(func() error {
		if e.gesture.kind != gestureLongPress || e.gesture.token != token {
			return nil
		}
		e.gesture.kind = gestureDrag
		e.gesture.timer = nil
		e.selected = e.gesture.text.ID
		return nil
	})
}

// PointerMove feeds a move into the current gesture. With no gesture a
// mouse on a desktop layout updates the hovered label.
func (e *Editor) PointerMove(p Pointer) error {
	return e.update(func() error {
		if e.state != StateEditor || e.prompt != nil {
			return nil
		}
		l := e.observer.Layout()
		c := e.view.ToCanvasSpace(l, p.Screen)
		g := &e.gesture
		switch g.kind {
		case gestureDraw:
			e.builder.Extend(c)
		case gesturePan:
			e.view = e.view.PanByScreen(l, p.Screen.Sub(g.screen))
		case gestureDrag:
			g.text = g.text.MovedTo(c.Sub(g.offset))
			g.history, _ = g.history.Replace(g.text)
		case gestureLongPress:
			if p.Screen.Dist(g.origin) <= TouchSlop {
				break
			}
			g.timer.Stop()
			g.timer = nil
			switch {
			case e.panMode:
				g.kind = gesturePan
				e.view = e.view.PanByScreen(l, p.Screen.Sub(g.screen))
			case e.tool == annotate.ToolText:
				g.kind = gestureNone
			default:
				if err := e.builder.Begin(e.tool, e.style, g.start); err != nil {
					return err
				}
				e.builder.Extend(c)
				g.kind = gestureDraw
			}
		case gestureNone:
			if p.Kind != Mouse || !l.Class().Hover() {
				break
			}
			e.hovered = ""
			if en, ok := e.sess.Active(); ok {
				if hit, ok := annotate.FindOpAt(en.History, c, en.Scale()); ok {
					e.hovered = hit.ID
				}
			}
		}
		g.screen = p.Screen
		return nil
	})
}

// PointerUp ends the gesture. A drawn op is committed and a dragged label's
// new position is written back to the image before the next redraw.
func (e *Editor) PointerUp(p Pointer) error {
	return e.update(func() error {
		if e.state != StateEditor {
			return nil
		}
		if e.gesture.kind == gestureLongPress {
			// Released before the long press fired: a tap selects.
			e.selected = e.gesture.text.ID
		}
		e.finishGesture()
		return nil
	})
}

// PointerCancel abandons the gesture without committing anything.
func (e *Editor) PointerCancel() {
	_ = e.update(func() error {
		e.cancelGesture()
		return nil
	})
}

// finishGesture commits whatever the gesture produced. Callers hold the lock.
func (e *Editor) finishGesture() {
	g := e.gesture
	e.gesture = gesture{}
	if g.timer != nil {
		g.timer.Stop()
	}
	switch g.kind {
	case gestureDraw:
		en, _, ok := e.sess.Lookup(g.imageID)
		if !ok {
			e.builder.Cancel()
			return
		}
		if h, ok := e.builder.Commit(en.History); ok {
			e.setHistory(en.ID, h)
		}
	case gestureDrag:
		e.setHistory(g.imageID, g.history)
	}
}

// cancelGesture drops the gesture and any pending op. Callers hold the lock.
func (e *Editor) cancelGesture() {
	if e.gesture.timer != nil {
		e.gesture.timer.Stop()
	}
	e.gesture = gesture{}
	e.builder.Cancel()
}

func (e *Editor) setHistory(id string, h annotate.History) {
	if err := e.sess.SetHistory(id, h); err != nil {
		e.log.Warn("set history", "image", id, "err", err)
	}
}

// Pinch zooms with two touches at screen points a and b. Any single pointer
// gesture in progress is abandoned.
func (e *Editor) Pinch(a, b geom.Point) {
	_ = e.update(func() error {
		if e.state != StateEditor {
			return nil
		}
		if !e.pinch.Active() {
			e.cancelGesture()
			e.pinch.Begin(a, b)
			return nil
		}
		e.view = e.pinch.Update(e.view, a, b)
		return nil
	})
}

// PinchEnd finishes a pinch.
func (e *Editor) PinchEnd() {
	_ = e.update(func() error {
		e.pinch.End()
		return nil
	})
}

// Wheel zooms by a scroll delta.
func (e *Editor) Wheel(deltaY float64) {
	e.zoom(func() { e.view = e.view.Wheel(deltaY) })
}

// ZoomIn steps the zoom up.
func (e *Editor) ZoomIn() { e.zoom(func() { e.view = e.view.StepBy(e.zoomStep) }) }

// ZoomOut steps the zoom down.
func (e *Editor) ZoomOut() { e.zoom(func() { e.view = e.view.StepBy(-e.zoomStep) }) }

// ResetZoom returns to zoom 1 with no pan.
func (e *Editor) ResetZoom() { e.zoom(func() { e.view = e.view.Reset() }) }

// PanBy moves the view by a screen space delta.
func (e *Editor) PanBy(d geom.Point) {
	e.zoom(func() { e.view = e.view.PanByScreen(e.observer.Layout(), d) })
}

func (e *Editor) zoom(fn func()) {
	_ = e.update(func() error {
		if e.state == StateEditor {
			fn()
		}
		return nil
	})
}
