package capture

import (
	"context"
	"fmt"
	"image"
)

// screenshotFn is swapped out by tests.
var screenshotFn = portalScreenshot

// ScreenDevice is a Device that treats the desktop as a rear camera, for
// stations where defects are inspected on screen. Each Open takes one
// desktop screenshot and the stream serves that frame until it is stopped;
// switching cameras or restarting the camera takes a fresh one.
type ScreenDevice struct {
	// Interactive lets the user pick the area through the portal dialog.
	Interactive bool
}

// Open takes the screenshot the stream will serve. Only the environment
// facing exists unless c accepts any camera.
func (d ScreenDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !c.Any && c.Facing != Environment {
		return nil, fmt.Errorf("screen source has no %s camera: %w", c.Facing, ErrNoDevice)
	}
	img, err := screenshotFn(d.Interactive)
	if err != nil {
		return nil, fmt.Errorf("capture screen: %w", err)
	}
	return &screenStream{frame: img, facing: Environment}, nil
}

type screenStream struct {
	frame  *image.RGBA
	facing Facing
}

func (s *screenStream) Frame() (image.Image, error) { return s.frame, nil }

func (s *screenStream) Facing() Facing { return s.facing }

func (s *screenStream) Stop() error { return nil }
