package capture

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// MaxPixels bounds the size of a decoded upload.
const MaxPixels = 120_000_000

// ErrDecode marks a file that could not be turned into a raster.
var ErrDecode = errors.New("decode failure")

// DecodeError reports which file failed to decode.
type DecodeError struct {
	Name string
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v", e.Name, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is makes every DecodeError match ErrDecode.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }

// File is one upload candidate.
type File struct {
	Name string
	Open func() (io.ReadCloser, error)
}

// PathFile returns a File reading from path.
func PathFile(path string) File {
	return File{
		Name: filepath.Base(path),
		Open: func() (io.ReadCloser, error) { return os.Open(path) },
	}
}

// BytesFile returns a File over an in-memory encoded image.
func BytesFile(name string, data []byte) File {
	return File{
		Name: name,
		Open: func() (io.ReadCloser, error) { return io.NopCloser(bytes.NewReader(data)), nil },
	}
}

// Decode reads any registered format (PNG, JPEG, GIF, WebP, BMP, TIFF) into
// a zero-origin RGBA raster.
func Decode(r io.Reader) (*image.RGBA, error) {
	var buf bytes.Buffer
	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &buf))
	if err != nil {
		return nil, err
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("empty image %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return nil, fmt.Errorf("image %dx%d exceeds %d pixels", cfg.Width, cfg.Height, MaxPixels)
	}
	img, _, err := image.Decode(io.MultiReader(&buf, r))
	if err != nil {
		return nil, err
	}
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba, nil
	}
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst, nil
}

// DecodeFile opens and decodes f.
func DecodeFile(f File) (*image.RGBA, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, &DecodeError{Name: f.Name, Err: err}
	}
	defer rc.Close()
	img, err := Decode(rc)
	if err != nil {
		return nil, &DecodeError{Name: f.Name, Err: err}
	}
	return img, nil
}

// Upload is the outcome of decoding a batch of files.
type Upload struct {
	Images []*image.RGBA
	Names  []string
	// Failed holds one *DecodeError per skipped file.
	Failed []error
	// Dropped counts files beyond the remaining capacity, never opened.
	Dropped int
}

// DecodeFiles decodes at most limit of files in order. Files past the limit
// are counted as dropped; files that fail are skipped and reported.
func DecodeFiles(ctx context.Context, files []File, limit int) (Upload, error) {
	var up Upload
	if limit < 0 {
		limit = 0
	}
	if len(files) > limit {
		up.Dropped = len(files) - limit
		files = files[:limit]
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return up, err
		}
		img, err := DecodeFile(f)
		if err != nil {
			up.Failed = append(up.Failed, err)
			continue
		}
		up.Images = append(up.Images, img)
		up.Names = append(up.Names, f.Name)
	}
	return up, nil
}
