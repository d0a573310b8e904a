//go:build !gocv
// +build !gocv

package capture

import (
	"context"
	"fmt"
)

// WebcamDevice is unavailable without the gocv build tag.
type WebcamDevice struct {
	Index map[Facing]int
}

// NewWebcamDevice returns a device whose Open always fails.
func NewWebcamDevice() *WebcamDevice {
	return &WebcamDevice{Index: map[Facing]int{Environment: 0, User: 1}}
}

// Open reports that camera support was not compiled in.
func (d *WebcamDevice) Open(_ context.Context, _ Constraints) (Stream, error) {
	return nil, fmt.Errorf("gocv build tag is not enabled: %w", ErrNoDevice)
}
