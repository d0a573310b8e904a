//go:build gocv
// +build gocv

package capture

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// WebcamDevice opens cameras through OpenCV. Facing is mapped to a device
// index: the rear camera is usually index 0 and the front camera index 1.
type WebcamDevice struct {
	Index map[Facing]int
}

// NewWebcamDevice returns a WebcamDevice with the usual index mapping.
func NewWebcamDevice() *WebcamDevice {
	return &WebcamDevice{Index: map[Facing]int{Environment: 0, User: 1}}
}

func (d *WebcamDevice) candidates(c Constraints) []Facing {
	if c.Exact {
		return []Facing{c.Facing}
	}
	return []Facing{c.Facing, c.Facing.Opposite()}
}

// Open tries the cameras allowed by c in preference order.
func (d *WebcamDevice) Open(ctx context.Context, c Constraints) (Stream, error) {
	var lastErr error
	for _, f := range d.candidates(c) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		idx, ok := d.Index[f]
		if !ok {
			lastErr = fmt.Errorf("no %s camera configured: %w", f, ErrNoDevice)
			continue
		}
		s, err := openWebcam(idx, f, c)
		if err != nil {
			lastErr = err
			continue
		}
		return s, nil
	}
	if lastErr == nil {
		lastErr = ErrNoDevice
	}
	return nil, lastErr
}

func openWebcam(idx int, f Facing, c Constraints) (*webcamStream, error) {
	vc, err := gocv.OpenVideoCapture(idx)
	if err != nil {
		return nil, fmt.Errorf("open camera %d: %w", idx, err)
	}
	if !vc.IsOpened() {
		_ = vc.Close()
		return nil, fmt.Errorf("open camera %d: %w", idx, ErrNoDevice)
	}
	if c.Ideal != (image.Point{}) {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(c.Ideal.X))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(c.Ideal.Y))
	}
	w := int(vc.Get(gocv.VideoCaptureFrameWidth))
	h := int(vc.Get(gocv.VideoCaptureFrameHeight))
	if c.Min != (image.Point{}) && (w < c.Min.X || h < c.Min.Y) {
		_ = vc.Close()
		return nil, fmt.Errorf("camera %d delivers %dx%d, below %dx%d", idx, w, h, c.Min.X, c.Min.Y)
	}
	return &webcamStream{vc: vc, mat: gocv.NewMat(), facing: f}, nil
}

type webcamStream struct {
	mu     sync.Mutex
	vc     *gocv.VideoCapture
	mat    gocv.Mat
	facing Facing
}

func (s *webcamStream) Frame() (image.Image, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vc == nil {
		return nil, ErrNotStarted
	}
	if ok := s.vc.Read(&s.mat); !ok || s.mat.Empty() {
		return nil, fmt.Errorf("camera returned no frame")
	}
	return s.mat.ToImage()
}

func (s *webcamStream) Facing() Facing { return s.facing }

func (s *webcamStream) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.vc == nil {
		return nil
	}
	_ = s.mat.Close()
	err := s.vc.Close()
	s.vc = nil
	return err
}
