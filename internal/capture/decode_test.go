package capture

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

func encoded(t *testing.T, enc func(*bytes.Buffer, image.Image) error) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 5, 4))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	img.Set(1, 1, color.RGBA{10, 20, 30, 255})
	var buf bytes.Buffer
	require.NoError(t, enc(&buf, img))
	return buf.Bytes()
}

func pngFile(t *testing.T, name string) File {
	return BytesFile(name, encoded(t, func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) }))
}

func TestDecodeFormats(t *testing.T) {
	formats := map[string]func(*bytes.Buffer, image.Image) error{
		"png":  func(b *bytes.Buffer, img image.Image) error { return png.Encode(b, img) },
		"bmp":  func(b *bytes.Buffer, img image.Image) error { return bmp.Encode(b, img) },
		"tiff": func(b *bytes.Buffer, img image.Image) error { return tiff.Encode(b, img, nil) },
	}
	for name, enc := range formats {
		img, err := Decode(bytes.NewReader(encoded(t, enc)))
		require.NoError(t, err, name)
		require.Equal(t, image.Rect(0, 0, 5, 4), img.Bounds(), name)
		require.Equal(t, color.RGBA{10, 20, 30, 255}, img.RGBAAt(1, 1), name)
	}
}

func TestDecodeFilesSkipsCorruptAndDropsOverflow(t *testing.T) {
	files := []File{
		pngFile(t, "a.png"),
		BytesFile("broken.jpg", []byte("not an image")),
		pngFile(t, "c.png"),
		pngFile(t, "d.png"),
		pngFile(t, "e.png"),
	}
	up, err := DecodeFiles(context.Background(), files, 4)
	require.NoError(t, err)
	require.Equal(t, 1, up.Dropped)
	require.Equal(t, []string{"a.png", "c.png", "d.png"}, up.Names)
	require.Len(t, up.Images, 3)
	require.Len(t, up.Failed, 1)
	require.ErrorIs(t, up.Failed[0], ErrDecode)
	var de *DecodeError
	require.True(t, errors.As(up.Failed[0], &de))
	require.Equal(t, "broken.jpg", de.Name)
}

func TestDecodeFilesCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := DecodeFiles(ctx, []File{pngFile(t, "a.png")}, 5)
	require.ErrorIs(t, err, context.Canceled)
}

func TestDecodeFileOpenError(t *testing.T) {
	_, err := DecodeFile(PathFile("/definitely/missing.png"))
	require.ErrorIs(t, err, ErrDecode)
	require.ErrorContains(t, err, "missing.png")
}
