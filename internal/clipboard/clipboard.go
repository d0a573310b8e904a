// Package clipboard moves images between the editor and the system
// clipboard: pasted images join the session like uploads and flattened
// images can be copied out.
package clipboard

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/png"
)

var (
	// ErrUnsupported is returned where the build has no clipboard backend.
	ErrUnsupported = errors.New("clipboard image operations are not supported on this platform")
	// ErrEmpty means the clipboard holds no image.
	ErrEmpty = errors.New("clipboard does not contain image data")

	errNoDisplay = errors.New("clipboard initialization requires DISPLAY or WAYLAND_DISPLAY")
)

func encode(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("copy image: empty image")
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("copy image: %w", err)
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("paste image: %w", err)
	}
	if img.Bounds().Empty() {
		return nil, ErrEmpty
	}
	return img, nil
}
