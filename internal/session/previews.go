package session

import (
	"fmt"
	"image"
	"image/png"
	"os"
	"sync"

	xdraw "golang.org/x/image/draw"
)

// Preview is a handle to a thumbnail owned by a PreviewStore.
type Preview struct {
	Path string
	Size image.Point
}

// IsZero reports whether p refers to nothing.
func (p Preview) IsZero() bool { return p.Path == "" }

// PreviewStore creates and releases thumbnails for session entries. Every
// Preview it returns must be passed to Release exactly once.
type PreviewStore interface {
	Create(id string, img image.Image) (Preview, error)
	Release(p Preview) error
}

// NoPreviews is a PreviewStore that never creates anything.
type NoPreviews struct{}

func (NoPreviews) Create(string, image.Image) (Preview, error) { return Preview{}, nil }
func (NoPreviews) Release(Preview) error                       { return nil }

// DefaultThumbSide bounds the longest edge of a thumbnail.
const DefaultThumbSide = 256

// TempPreviews writes PNG thumbnails to temporary files.
type TempPreviews struct {
	dir  string
	side int

	mu   sync.Mutex
	live map[string]struct{}
}

// NewTempPreviews stores thumbnails in dir ("" for the OS temp dir) with the
// longest edge at most side pixels.
func NewTempPreviews(dir string, side int) *TempPreviews {
	if side <= 0 {
		side = DefaultThumbSide
	}
	return &TempPreviews{dir: dir, side: side, live: make(map[string]struct{})}
}

// Create writes a thumbnail of img.
func (t *TempPreviews) Create(id string, img image.Image) (Preview, error) {
	thumb := Thumbnail(img, t.side)
	f, err := os.CreateTemp(t.dir, "defectmark-preview-*.png")
	if err != nil {
		return Preview{}, err
	}
	path := f.Name()
	if err := png.Encode(f, thumb); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return Preview{}, fmt.Errorf("encode preview %s: %w", id, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return Preview{}, err
	}
	t.mu.Lock()
	t.live[path] = struct{}{}
	t.mu.Unlock()
	return Preview{Path: path, Size: thumb.Bounds().Size()}, nil
}

// Release deletes the thumbnail file.
func (t *TempPreviews) Release(p Preview) error {
	t.mu.Lock()
	_, ok := t.live[p.Path]
	delete(t.live, p.Path)
	t.mu.Unlock()
	if !ok {
		return fmt.Errorf("release preview %s: not owned by this store", p.Path)
	}
	if err := os.Remove(p.Path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Live returns the number of thumbnails not yet released.
func (t *TempPreviews) Live() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.live)
}

// Thumbnail scales img so its longest edge is at most side pixels.
func Thumbnail(img image.Image, side int) *image.RGBA {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if longest := max(w, h); longest > side {
		w = max(1, w*side/longest)
		h = max(1, h*side/longest)
	}
	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), img, b, xdraw.Src, nil)
	return dst
}
