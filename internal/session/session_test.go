package session

import (
	"image"
	"image/color"
	"os"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/geom"
)

func raster(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{1, 2, 3, 255})
	return img
}

func rasters(n int) []image.Image {
	out := make([]image.Image, n)
	for i := range out {
		out[i] = raster(8, 8)
	}
	return out
}

func TestAppendAllRespectsCap(t *testing.T) {
	for _, tc := range []struct{ cap, attempted, want, dropped int }{
		{7, 3, 3, 0},
		{7, 7, 7, 0},
		{7, 10, 7, 3},
		{10, 25, 10, 15},
	} {
		s := New(tc.cap, WithIDs(annotate.Sequence("img")))
		added, dropped := s.AppendAll(rasters(tc.attempted))
		require.Len(t, added, tc.want)
		require.Equal(t, tc.want, s.Len())
		require.Equal(t, tc.dropped, dropped)
		require.LessOrEqual(t, s.Len(), s.Cap())
	}
}

func TestAppendWhenFull(t *testing.T) {
	s := New(1)
	_, err := s.Append(raster(4, 4))
	require.NoError(t, err)
	_, err = s.Append(raster(4, 4))
	require.ErrorIs(t, err, ErrCapacityExceeded)
	require.Equal(t, 1, s.Len())
}

func TestSourceIsCopied(t *testing.T) {
	s := New(2)
	src := raster(4, 4)
	e, err := s.Append(src)
	require.NoError(t, err)
	src.Set(0, 0, color.RGBA{9, 9, 9, 255})
	require.Equal(t, color.RGBA{1, 2, 3, 255}, e.Source.RGBAAt(0, 0))
}

func TestActiveIndex(t *testing.T) {
	s := New(7, WithIDs(annotate.Sequence("img")))
	s.AppendAll(rasters(3))
	require.Equal(t, 0, s.ActiveIndex())

	require.NoError(t, s.SetActive(2))
	require.Error(t, s.SetActive(3))

	require.NoError(t, s.Remove(2))
	require.Equal(t, 1, s.ActiveIndex())
	require.NoError(t, s.Remove(0))
	require.Equal(t, 0, s.ActiveIndex())
	e, ok := s.Active()
	require.True(t, ok)
	require.Equal(t, "img-2", e.ID)
}

func TestReplaceSourceClearsHistory(t *testing.T) {
	s := New(2)
	e, _ := s.Append(raster(4, 4))
	h := annotate.NewHistory(annotate.Stroke{Base: annotate.Base{ID: "s"}, Points: []geom.Point{{X: 1, Y: 1}}})
	require.NoError(t, s.SetHistory(e.ID, h))
	e.Flattened = raster(4, 4)

	require.NoError(t, s.ReplaceSource(e.ID, raster(6, 6)))
	require.True(t, e.History.Empty())
	require.Nil(t, e.Flattened)
	require.Equal(t, 6, e.Width())
	require.ErrorIs(t, s.ReplaceSource("missing", raster(1, 1)), ErrNoImage)
}

func TestPreviewsReleased(t *testing.T) {
	store := NewTempPreviews(t.TempDir(), 16)
	s := New(5, WithPreviews(store))
	s.AppendAll(rasters(4))
	require.Equal(t, 4, store.Live())

	first, _ := s.At(0)
	path := first.Preview.Path
	require.FileExists(t, path)

	require.NoError(t, s.Remove(0))
	require.Equal(t, 3, store.Live())
	_, err := os.Stat(path)
	require.True(t, os.IsNotExist(err))

	e, _ := s.At(0)
	require.NoError(t, s.ReplaceSource(e.ID, raster(32, 16)))
	require.Equal(t, 3, store.Live())
	require.Equal(t, image.Pt(16, 8), e.Preview.Size)

	s.Close()
	require.Equal(t, 0, store.Live())
	require.Equal(t, 0, s.Len())
	_, err = s.Append(raster(1, 1))
	require.ErrorIs(t, err, ErrClosed)
}

func TestThumbnail(t *testing.T) {
	got := Thumbnail(raster(1000, 250), 100)
	require.Equal(t, image.Rect(0, 0, 100, 25), got.Bounds())
	small := Thumbnail(raster(10, 20), 100)
	require.Equal(t, image.Rect(0, 0, 10, 20), small.Bounds())
}
