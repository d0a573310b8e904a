// Package capture acquires images for an editing session: live frames from
// a camera device and decoded uploads.
package capture

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"
	"sync"
	"time"
)

// Facing selects the physical camera.
type Facing int

const (
	// Environment is the rear camera.
	Environment Facing = iota
	// User is the front camera.
	User
)

func (f Facing) String() string {
	if f == User {
		return "user"
	}
	return "environment"
}

// Opposite returns the other camera.
func (f Facing) Opposite() Facing {
	if f == User {
		return Environment
	}
	return User
}

// ParseFacing accepts user/front or environment/back/rear.
func ParseFacing(s string) (Facing, error) {
	switch s {
	case "user", "front":
		return User, nil
	case "environment", "back", "rear", "":
		return Environment, nil
	}
	return 0, fmt.Errorf("unknown camera facing %q", s)
}

var (
	// MinResolution is the lowest resolution the preferred request accepts.
	MinResolution = image.Pt(1280, 720)
	// IdealResolution is the resolution the preferred request asks for.
	IdealResolution = image.Pt(4096, 2160)
)

// Constraints describe a stream request.
type Constraints struct {
	Facing Facing
	// Exact rejects devices that cannot provide Facing. Otherwise Facing is
	// a preference.
	Exact bool
	// Min and Ideal are resolutions; zero means no requirement.
	Min, Ideal image.Point
	// Any accepts whichever camera the device offers first.
	Any bool
}

// Preferred is the first request made when a camera starts.
func Preferred(f Facing) Constraints {
	return Constraints{Facing: f, Min: MinResolution, Ideal: IdealResolution}
}

// Loose is the fallback request: any camera at any resolution.
func Loose(f Facing) Constraints {
	return Constraints{Facing: f, Any: true}
}

// Device opens exclusive video streams.
type Device interface {
	Open(ctx context.Context, c Constraints) (Stream, error)
}

// Stream is an open camera. Only the Controller that opened it uses it.
type Stream interface {
	// Frame returns the current frame at full resolution.
	Frame() (image.Image, error)
	// Facing reports the camera actually delivering frames.
	Facing() Facing
	// Stop releases the device.
	Stop() error
}

var (
	// ErrCameraUnavailable means no stream could be opened at all.
	ErrCameraUnavailable = errors.New("camera unavailable")
	// ErrCameraSwitchFailed means the opposite camera could not be opened;
	// the previous camera is restored when possible.
	ErrCameraSwitchFailed = errors.New("camera switch failed")
	// ErrBusy rejects a request while a switch is in progress.
	ErrBusy = errors.New("camera busy")
	// ErrNotStarted is returned when no stream is open.
	ErrNotStarted = errors.New("camera not started")
	// ErrNoDevice is returned by devices that are not available in this build.
	ErrNoDevice = errors.New("no camera device")
)

// DefaultSettleDelay is the pause between releasing one camera and opening
// the other, which some hardware needs to release its lock.
const DefaultSettleDelay = 200 * time.Millisecond

// Controller owns the camera stream for an editing session.
type Controller struct {
	dev    Device
	log    *slog.Logger
	settle time.Duration
	sleep  func(context.Context, time.Duration) error

	mu        sync.Mutex
	stream    Stream
	facing    Facing
	switching bool
	closed    bool
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithSettleDelay overrides DefaultSettleDelay.
func WithSettleDelay(d time.Duration) ControllerOption {
	return func(c *Controller) { c.settle = d }
}

// WithSleeper replaces the settle wait, mainly for tests.
func WithSleeper(fn func(context.Context, time.Duration) error) ControllerOption {
	return func(c *Controller) { c.sleep = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) { c.log = l }
}

// NewController returns a Controller for dev. Nothing is opened until Start.
func NewController(dev Device, opts ...ControllerOption) *Controller {
	c := &Controller{
		dev:    dev,
		log:    slog.Default(),
		settle: DefaultSettleDelay,
		sleep:  sleepCtx,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// open tries the preferred request and then the loose one.
func (c *Controller) open(ctx context.Context, f Facing) (Stream, error) {
	s, err := c.dev.Open(ctx, Preferred(f))
	if err == nil {
		return s, nil
	}
	c.log.Info("camera: preferred constraints failed, retrying loose", "facing", f, "err", err)
	s, looseErr := c.dev.Open(ctx, Loose(f))
	if looseErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrCameraUnavailable, errors.Join(err, looseErr))
	}
	return s, nil
}

// Start opens the camera for f, replacing any open stream.
func (c *Controller) Start(ctx context.Context, f Facing) error {
	c.mu.Lock()
	if c.switching {
		c.mu.Unlock()
		return ErrBusy
	}
	old := c.stream
	c.stream = nil
	c.closed = false
	c.mu.Unlock()
	c.stop(old)

	s, err := c.open(ctx, f)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.stop(s)
		return ErrNotStarted
	}
	c.stream = s
	c.facing = s.Facing()
	c.log.Info("camera started", "facing", c.facing)
	return nil
}

// Switch moves to the opposite camera. The current stream is released, the
// settle delay observed, then the opposite camera is requested exactly and
// then loosely. When both fail the previous camera is reopened and
// ErrCameraSwitchFailed returned.
func (c *Controller) Switch(ctx context.Context) error {
	c.mu.Lock()
	if c.switching {
		c.mu.Unlock()
		return ErrBusy
	}
	if c.stream == nil {
		c.mu.Unlock()
		return ErrNotStarted
	}
	prev := c.facing
	old := c.stream
	c.stream = nil
	c.switching = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.switching = false
		c.mu.Unlock()
	}()

	c.stop(old)
	next := prev.Opposite()
	var s Stream
	err := c.sleep(ctx, c.settle)
	if err == nil {
		exact := Preferred(next)
		exact.Exact = true
		s, err = c.dev.Open(ctx, exact)
		if err != nil {
			c.log.Info("camera: exact facing failed, retrying loose", "facing", next, "err", err)
			loose := Constraints{Facing: next}
			var looseErr error
			s, looseErr = c.dev.Open(ctx, loose)
			if looseErr != nil {
				err = errors.Join(err, looseErr)
			} else {
				err = nil
			}
		}
	}
	if err == nil {
		return c.adopt(s)
	}

	c.log.Warn("camera switch failed, restoring previous camera", "from", prev, "to", next, "err", err)
	restored, rerr := c.open(context.WithoutCancel(ctx), prev)
	if rerr != nil {
		c.log.Error("camera restore failed", "facing", prev, "err", rerr)
	} else if aerr := c.adopt(restored); aerr != nil {
		c.log.Error("camera restore failed", "facing", prev, "err", aerr)
	}
	return fmt.Errorf("%w: %w", ErrCameraSwitchFailed, err)
}

func (c *Controller) adopt(s Stream) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.stop(s)
		return ErrNotStarted
	}
	c.stream = s
	c.facing = s.Facing()
	return nil
}

// Capture snapshots the current frame into a new full resolution raster.
func (c *Controller) Capture() (*image.RGBA, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.switching {
		return nil, ErrBusy
	}
	if c.stream == nil {
		return nil, ErrNotStarted
	}
	frame, err := c.stream.Frame()
	if err != nil {
		return nil, fmt.Errorf("capture frame: %w", err)
	}
	b := frame.Bounds()
	if b.Empty() {
		return nil, fmt.Errorf("capture frame: empty frame")
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), frame, b.Min, draw.Src)
	return dst, nil
}

// Facing returns the active camera.
func (c *Controller) Facing() Facing {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facing
}

// Running reports whether a stream is open.
func (c *Controller) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stream != nil
}

// Switching reports whether a switch is in progress.
func (c *Controller) Switching() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.switching
}

// Close stops the stream. A switch in flight drops the stream it opens.
func (c *Controller) Close() error {
	c.mu.Lock()
	s := c.stream
	c.stream = nil
	c.closed = true
	c.mu.Unlock()
	if s == nil {
		return nil
	}
	return s.Stop()
}

func (c *Controller) stop(s Stream) {
	if s == nil {
		return
	}
	if err := s.Stop(); err != nil {
		c.log.Warn("camera stop", "err", err)
	}
}
