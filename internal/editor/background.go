package editor

import (
	"context"
	"fmt"
	"image/color"

	"github.com/example/defectmark/internal/bgremove"
)

// Background returns the default background removal colour.
func (e *Editor) Background() color.RGBA {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.background
}

// RemoveBackground replaces the active image's background with bg. The
// image's annotations refer to the old raster and are discarded on success,
// so the user is asked first when there are any. The removal finishes in
// the background; progress and the outcome are reported through OnChange and
// Removal.
func (e *Editor) RemoveBackground(ctx context.Context, bg color.RGBA) error {
	e.mu.Lock()
	if err := e.require(StateEditor); err != nil {
		e.mu.Unlock()
		return err
	}
	if e.bg == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %w", bgremove.ErrRemovalFailed, ErrNoRemover)
	}
	en, ok := e.sess.Active()
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("%w: no image", ErrNotReady)
	}
	hasEdits := !en.History.Empty()
	e.mu.Unlock()

	if hasEdits && !e.confirmed("Removing the background discards the annotations on this image. Continue?") {
		return ErrNotConfirmed
	}

	e.mu.Lock()
	if err := e.to(StateRemovingBackground); err != nil {
		e.mu.Unlock()
		return err
	}
	e.cancelGesture()
	e.seq++
	token := e.seq
	e.removal = &removal{imageID: en.ID, token: token}
	e.background = bg
	svc := e.bg
	e.mu.Unlock()
	e.changed()

	req := bgremove.Request{ImageID: en.ID, Source: en.Source, Background: bg}
	err := svc.Start(ctx, req,
		func(p bgremove.Progress) { e.removalProgress(token, p) },
		func(r bgremove.Result) { e.removalDone(token, r) },
	)
	if err != nil {
		_ = e.update(func() error {
			if e.removal != nil && e.removal.token == token {
				e.removal = nil
				_ = e.to(StateEditor)
			}
			return nil
		})
		return err
	}
	return nil
}

func (e *Editor) removalProgress(token uint64, p bgremove.Progress) {
	_ = e.update(func() error {
		if e.removal == nil || e.removal.token != token {
			return nil
		}
		e.removal.progress = p
		return nil
	})
}

func (e *Editor) removalDone(token uint64, r bgremove.Result) {
	_ = e.update(func() error {
		if e.removal == nil || e.removal.token != token {
			return nil
		}
		e.removal = nil
		if err := e.to(StateEditor); err != nil {
			return err
		}
		if r.Err != nil {
			e.lastRemovalErr = r.Err
			e.notice = "Background removal failed. Pick a colour to try again."
			return nil
		}
		e.lastRemovalErr = nil
		active, _ := e.sess.Active()
		if err := e.sess.ReplaceSource(r.ImageID, r.Raster); err != nil {
			e.log.Warn("apply background removal", "image", r.ImageID, "err", err)
			return nil
		}
		if active != nil && active.ID == r.ImageID {
			e.resetView()
		}
		e.notice = ""
		return nil
	})
}

// Removal reports the progress of the running background removal.
func (e *Editor) Removal() (bgremove.Progress, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removal == nil {
		return bgremove.Progress{}, false
	}
	return e.removal.progress, true
}

// RemovalError returns the failure of the last background removal, cleared
// by the next success.
func (e *Editor) RemovalError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastRemovalErr
}

// CancelBackgroundRemoval stops the running removal and ignores anything
// it reports afterwards.
func (e *Editor) CancelBackgroundRemoval() bool {
	var id string
	_ = e.update(func() error {
		if e.removal == nil {
			return nil
		}
		id = e.removal.imageID
		e.removal = nil
		return e.to(StateEditor)
	})
	if id == "" {
		return false
	}
	e.bg.Cancel(id)
	return true
}
