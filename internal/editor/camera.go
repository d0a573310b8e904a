package editor

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/example/defectmark/internal/capture"
	"github.com/example/defectmark/internal/session"
)

// Start applies the auto-start mode. Camera mode opens the rear camera;
// upload mode leaves file selection to the host.
func (e *Editor) Start(ctx context.Context) error {
	if e.autostart == ModeCamera && e.State() == StateInitial {
		return e.StartCamera(ctx, capture.Environment)
	}
	return nil
}

// StartCamera opens the camera facing f. When no camera can be opened the
// editor returns to where it came from and the error matches
// capture.ErrCameraUnavailable.
func (e *Editor) StartCamera(ctx context.Context, f capture.Facing) error {
	e.mu.Lock()
	if e.cam == nil {
		e.mu.Unlock()
		return fmt.Errorf("%w: %w", capture.ErrCameraUnavailable, ErrNoCamera)
	}
	if e.sess.Full() {
		e.notice = capacityNotice(e.sess.Cap())
		e.mu.Unlock()
		e.changed()
		return session.ErrCapacityExceeded
	}
	if err := e.to(StateCamera); err != nil {
		e.mu.Unlock()
		return err
	}
	e.cancelGesture()
	cam := e.cam
	e.mu.Unlock()
	e.changed()

	err := cam.Start(ctx, f)

	return e.update(func() error {
		if e.state != StateCamera {
			_ = cam.Close()
			return fmt.Errorf("%w: editor is %s", ErrNotReady, e.state)
		}
		if err != nil {
			e.log.Warn("camera unavailable", "facing", f, "err", err)
			e.notice = "Camera unavailable. Check permissions or upload a photo instead."
			e.afterAdd()
			return err
		}
		e.notice = ""
		return nil
	})
}

// CaptureFrame adds the current camera frame as a new image. Once the
// session is full the camera is closed and the editor moves on. A full
// session leaves everything unchanged and returns ErrCapacityExceeded.
func (e *Editor) CaptureFrame() (Image, error) {
	var out Image
	err := e.update(func() error {
		if err := e.require(StateCamera); err != nil {
			return err
		}
		if e.sess.Full() {
			e.notice = capacityNotice(e.sess.Cap())
			return session.ErrCapacityExceeded
		}
		img, err := e.cam.Capture()
		if err != nil {
			return err
		}
		en, err := e.sess.Append(img)
		if err != nil {
			return err
		}
		out = Image{ID: en.ID, Source: en.Source, History: en.History, Preview: en.Preview}
		e.log.Info("frame captured", "image", en.ID, "size", img.Bounds().Size())
		if e.sess.Full() {
			e.closeCamera()
			e.afterAdd()
		}
		return nil
	})
	return out, err
}

// SwitchCamera flips to the opposite camera. On failure the previous camera
// keeps running and the error matches capture.ErrCameraSwitchFailed.
func (e *Editor) SwitchCamera(ctx context.Context) error {
	e.mu.Lock()
	if err := e.require(StateCamera); err != nil {
		e.mu.Unlock()
		return err
	}
	cam := e.cam
	e.mu.Unlock()

	err := cam.Switch(ctx)
	return e.update(func() error {
		if err != nil {
			e.log.Warn("camera switch", "err", err)
			e.notice = "Could not switch camera. Your device might be busy."
		}
		return err
	})
}

// CameraPreview returns the current camera frame without adding it to the
// session. The editor lock is not held while the device produces the frame.
func (e *Editor) CameraPreview() (*image.RGBA, error) {
	e.mu.Lock()
	if err := e.require(StateCamera); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	cam := e.cam
	e.mu.Unlock()
	return cam.Capture()
}

// Facing returns the camera in use.
func (e *Editor) Facing() capture.Facing {
	if e.cam == nil {
		return capture.Environment
	}
	return e.cam.Facing()
}

// FinishCamera closes the camera and moves to the editor, or back to the
// chooser when nothing was captured.
func (e *Editor) FinishCamera() error {
	return e.update(func() error {
		if err := e.require(StateCamera); err != nil {
			return err
		}
		e.closeCamera()
		e.afterAdd()
		return nil
	})
}

func (e *Editor) closeCamera() {
	if err := e.cam.Close(); err != nil {
		e.log.Warn("camera close", "err", err)
	}
}

func capacityNotice(limit int) string {
	return fmt.Sprintf("Maximum %d images reached.", limit)
}

func droppedNotice(dropped, limit int) string {
	return fmt.Sprintf("%d image(s) not added: maximum %d images reached.", dropped, limit)
}

// AddImage appends an image taken from somewhere other than the camera or a
// file, such as the clipboard.
func (e *Editor) AddImage(img image.Image) (Image, error) {
	var out Image
	err := e.update(func() error {
		if err := e.require(StateInitial, StateEditor); err != nil {
			return err
		}
		en, err := e.sess.Append(img)
		if err != nil {
			if errors.Is(err, session.ErrCapacityExceeded) {
				e.notice = capacityNotice(e.sess.Cap())
			}
			return err
		}
		out = Image{ID: en.ID, Source: en.Source, History: en.History, Preview: en.Preview}
		e.afterAdd()
		return nil
	})
	return out, err
}
