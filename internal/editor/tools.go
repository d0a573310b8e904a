package editor

import (
	"fmt"
	"image/color"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/geom"
)

// Tool returns the active drawing tool.
func (e *Editor) Tool() annotate.Tool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tool
}

// SetTool changes the drawing tool. An op in progress is discarded.
func (e *Editor) SetTool(t annotate.Tool) {
	_ = e.update(func() error {
		e.cancelGesture()
		e.tool = t
		return nil
	})
}

// PanMode reports whether primary drags pan instead of drawing.
func (e *Editor) PanMode() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.panMode
}

// SetPanMode switches primary drags between panning and drawing.
func (e *Editor) SetPanMode(on bool) {
	_ = e.update(func() error {
		e.cancelGesture()
		e.panMode = on
		return nil
	})
}

// Style returns the pen new ops are drawn with.
func (e *Editor) Style() annotate.Style {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.style
}

// SetColor changes the pen colour for new ops.
func (e *Editor) SetColor(c color.RGBA) {
	_ = e.update(func() error {
		e.style.Color = c
		return nil
	})
}

// SetWidth changes the reference line width for new ops.
func (e *Editor) SetWidth(w float64) error {
	if w <= 0 {
		return fmt.Errorf("line width must be positive, got %v", w)
	}
	return e.update(func() error {
		e.style.Width = w
		return nil
	})
}

// SetFontSize changes the reference font size for new labels.
func (e *Editor) SetFontSize(size float64) error {
	if size <= 0 {
		return fmt.Errorf("font size must be positive, got %v", size)
	}
	return e.update(func() error {
		e.style.FontSize = size
		return nil
	})
}

// Prompt returns where the open text prompt will place its label.
func (e *Editor) Prompt() (geom.Point, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.prompt == nil {
		return geom.Point{}, false
	}
	return *e.prompt, true
}

// OpenText opens the text prompt for a label at canvas point p.
func (e *Editor) OpenText(p geom.Point) error {
	return e.update(func() error {
		if err := e.require(StateEditor); err != nil {
			return err
		}
		e.cancelGesture()
		e.prompt = &p
		return nil
	})
}

// ConfirmText closes the prompt and adds the label. Blank text closes the
// prompt without adding anything and returns annotate.ErrEmptyText.
func (e *Editor) ConfirmText(text string) (annotate.Text, error) {
	var op annotate.Text
	err := e.update(func() error {
		if e.prompt == nil {
			return fmt.Errorf("%w: no text prompt open", ErrNotReady)
		}
		at := *e.prompt
		e.prompt = nil
		en, ok := e.sess.Active()
		if !ok {
			return fmt.Errorf("%w: no image", ErrNotReady)
		}
		t, err := e.builder.NewText(e.style, text, at)
		if err != nil {
			return err
		}
		e.setHistory(en.ID, en.History.Append(t))
		op = t
		return nil
	})
	return op, err
}

// CancelText closes the prompt.
func (e *Editor) CancelText() {
	_ = e.update(func() error {
		e.prompt = nil
		return nil
	})
}

// Undo removes the most recent op of the active image. It reports whether
// anything was removed.
func (e *Editor) Undo() bool {
	var undone bool
	_ = e.update(func() error {
		if e.state != StateEditor {
			return nil
		}
		e.cancelGesture()
		en, ok := e.sess.Active()
		if !ok {
			return nil
		}
		h, op, ok := en.History.Undo()
		if !ok {
			return nil
		}
		if op.OpID() == e.selected {
			e.selected = ""
		}
		if op.OpID() == e.hovered {
			e.hovered = ""
		}
		e.setHistory(en.ID, h)
		undone = true
		return nil
	})
	return undone
}

// Clear empties the active image's history after confirmation.
func (e *Editor) Clear() error {
	e.mu.Lock()
	if err := e.require(StateEditor); err != nil {
		e.mu.Unlock()
		return err
	}
	en, ok := e.sess.Active()
	if !ok || en.History.Empty() {
		e.mu.Unlock()
		return nil
	}
	id := en.ID
	e.mu.Unlock()

	if !e.confirmed("Clear all edits?") {
		return ErrNotConfirmed
	}
	return e.update(func() error {
		e.cancelGesture()
		e.selected, e.hovered = "", ""
		e.setHistory(id, annotate.History{})
		return nil
	})
}

// DeleteSelected removes the selected label.
func (e *Editor) DeleteSelected() error {
	return e.update(func() error {
		if err := e.require(StateEditor); err != nil {
			return err
		}
		en, ok := e.sess.Active()
		if !ok || e.selected == "" {
			return ErrNoSelection
		}
		h, ok := en.History.Remove(e.selected)
		if !ok {
			e.selected = ""
			return ErrNoSelection
		}
		e.cancelGesture()
		e.setHistory(en.ID, h)
		e.selected, e.hovered = "", ""
		return nil
	})
}

// SelectImage makes image i active and resets the view.
func (e *Editor) SelectImage(i int) error {
	return e.update(func() error {
		if err := e.require(StateEditor); err != nil {
			return err
		}
		if i == e.sess.ActiveIndex() {
			return nil
		}
		if err := e.sess.SetActive(i); err != nil {
			return err
		}
		e.resetView()
		return nil
	})
}

// RemoveImage drops image i and releases its preview. Removing the last
// image returns to the chooser.
func (e *Editor) RemoveImage(i int) error {
	return e.update(func() error {
		if err := e.require(StateEditor); err != nil {
			return err
		}
		before := e.sess.ActiveIndex()
		active, _ := e.sess.Active()
		if err := e.sess.Remove(i); err != nil {
			return err
		}
		if now, ok := e.sess.Active(); !ok || now != active || e.sess.ActiveIndex() != before {
			e.resetView()
		}
		e.afterAdd()
		return nil
	})
}
