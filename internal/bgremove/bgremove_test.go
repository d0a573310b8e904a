package bgremove

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

type recorder struct {
	mu       sync.Mutex
	progress []Progress
	done     chan Result
}

func newRecorder() *recorder { return &recorder{done: make(chan Result, 1)} }

func (r *recorder) onProgress(p Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, p)
}

func (r *recorder) onDone(res Result) { r.done <- res }

func (r *recorder) wait(t *testing.T) Result {
	t.Helper()
	select {
	case res := <-r.done:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("removal did not finish")
	}
	return Result{}
}

func TestServiceCompositesOverBackground(t *testing.T) {
	src := solid(4, 4, color.RGBA{R: 200, A: 255})
	cut := image.NewNRGBA(src.Bounds())
	cut.SetNRGBA(1, 1, color.NRGBA{R: 200, A: 255})
	remover := RemoverFunc(func(ctx context.Context, _ image.Image, p ProgressFunc) (image.Image, error) {
		p(KeyInference, 50, 100)
		p(KeyInference, 10, 100)
		p(KeyMask, 1, 1)
		p(KeyOutput, 1, 2)
		return cut, nil
	})
	s := NewService(remover)
	rec := newRecorder()
	white := color.RGBA{255, 255, 255, 255}
	require.NoError(t, s.Start(context.Background(), Request{ImageID: "a", Source: src, Background: white}, rec.onProgress, rec.onDone))
	res := rec.wait(t)
	require.NoError(t, res.Err)
	require.Equal(t, "a", res.ImageID)
	require.Equal(t, white, res.Raster.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{R: 200, A: 255}, res.Raster.RGBAAt(1, 1))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.NotEmpty(t, rec.progress)
	for i := 1; i < len(rec.progress); i++ {
		require.GreaterOrEqual(t, rec.progress[i].Percent, rec.progress[i-1].Percent)
	}
	last := rec.progress[len(rec.progress)-1]
	require.Equal(t, Progress{Percent: 100, Phase: PhaseDone}, last)
	require.Contains(t, rec.progress, Progress{Percent: 90, Phase: PhaseApplying})
	require.False(t, s.Pending("a"))
}

func TestServiceRejectsSecondRemoval(t *testing.T) {
	release := make(chan struct{})
	remover := RemoverFunc(func(ctx context.Context, src image.Image, _ ProgressFunc) (image.Image, error) {
		select {
		case <-release:
			return src, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	s := NewService(remover)
	src := solid(2, 2, color.RGBA{A: 255})
	rec := newRecorder()
	require.NoError(t, s.Start(context.Background(), Request{ImageID: "a", Source: src}, nil, rec.onDone))
	require.ErrorIs(t, s.Start(context.Background(), Request{ImageID: "a", Source: src}, nil, nil), ErrInFlight)
	require.True(t, s.Pending("a"))

	other := newRecorder()
	require.NoError(t, s.Start(context.Background(), Request{ImageID: "b", Source: src}, nil, other.onDone))
	close(release)
	require.NoError(t, rec.wait(t).Err)
	require.NoError(t, other.wait(t).Err)
}

func TestServiceCancelSuppressesCallbacks(t *testing.T) {
	started := make(chan struct{})
	remover := RemoverFunc(func(ctx context.Context, _ image.Image, _ ProgressFunc) (image.Image, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	s := NewService(remover)
	rec := newRecorder()
	require.NoError(t, s.Start(context.Background(), Request{ImageID: "a", Source: solid(2, 2, color.RGBA{A: 255})}, nil, rec.onDone))
	<-started
	require.True(t, s.Cancel("a"))
	require.False(t, s.Pending("a"))
	require.False(t, s.Cancel("a"))
	select {
	case res := <-rec.done:
		t.Fatalf("unexpected result after cancel: %+v", res)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestServiceFailures(t *testing.T) {
	boom := errors.New("model exploded")
	cases := []struct {
		name    string
		remover Remover
	}{
		{"model error", RemoverFunc(func(context.Context, image.Image, ProgressFunc) (image.Image, error) { return nil, boom })},
		{"wrong size", RemoverFunc(func(context.Context, image.Image, ProgressFunc) (image.Image, error) {
			return image.NewNRGBA(image.Rect(0, 0, 1, 1)), nil
		})},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewService(tc.remover)
			rec := newRecorder()
			require.NoError(t, s.Start(context.Background(), Request{ImageID: "a", Source: solid(3, 3, color.RGBA{A: 255})}, nil, rec.onDone))
			res := rec.wait(t)
			require.ErrorIs(t, res.Err, ErrRemovalFailed)
			require.Nil(t, res.Raster)
		})
	}
}

func TestServiceRejectsEmptySource(t *testing.T) {
	s := NewService(DefaultKeyRemover())
	require.ErrorIs(t, s.Start(context.Background(), Request{ImageID: "a"}, nil, nil), ErrRemovalFailed)
}

func TestModelProgressBands(t *testing.T) {
	require.Equal(t, Progress{Percent: 0, Phase: PhaseAnalyzing}, modelProgress(KeyInference, 0, 10))
	require.Equal(t, Progress{Percent: 60, Phase: PhaseAnalyzing}, modelProgress(KeyInference, 10, 10))
	require.Equal(t, Progress{Percent: 75, Phase: PhaseEdges}, modelProgress(KeyMask, 5, 5))
	require.Equal(t, Progress{Percent: 89, Phase: PhaseRemoving}, modelProgress(KeyOutput, 9, 1))
	require.Equal(t, PhaseWorking, modelProgress("fetch:model", 1, 2).Phase)
	require.Equal(t, PhaseWorking, PhaseLabel("unknown"))
}

func TestMonotonicClamps(t *testing.T) {
	var m monotonic
	p, ok := m.next(Progress{Percent: -5})
	require.True(t, ok)
	require.Equal(t, 0, p.Percent)
	_, ok = m.next(Progress{Percent: 40})
	require.True(t, ok)
	_, ok = m.next(Progress{Percent: 30})
	require.False(t, ok)
	p, ok = m.next(Progress{Percent: 140})
	require.True(t, ok)
	require.Equal(t, 100, p.Percent)
}

func TestKeyRemoverCutsPlainBackdrop(t *testing.T) {
	img := solid(20, 20, color.RGBA{250, 250, 250, 255})
	draw.Draw(img, image.Rect(7, 7, 13, 13), image.NewUniform(color.RGBA{200, 0, 0, 255}), image.Point{}, draw.Src)
	var keys []string
	out, err := DefaultKeyRemover().Cutout(context.Background(), img, func(key string, _, _ int64) {
		keys = append(keys, key)
	})
	require.NoError(t, err)
	require.Equal(t, img.Bounds(), out.Bounds())
	nrgba := out.(*image.NRGBA)
	require.Zero(t, nrgba.NRGBAAt(0, 0).A)
	require.Zero(t, nrgba.NRGBAAt(19, 3).A)
	require.Equal(t, color.NRGBA{200, 0, 0, 255}, nrgba.NRGBAAt(10, 10))
	require.Contains(t, keys, KeyInference)
	require.Contains(t, keys, KeyMask)
	require.Contains(t, keys, KeyOutput)

	composited := Composite(out, color.RGBA{0, 0, 255, 255})
	require.Equal(t, color.RGBA{0, 0, 255, 255}, composited.RGBAAt(0, 0))
	require.Equal(t, color.RGBA{200, 0, 0, 255}, composited.RGBAAt(10, 10))
}

func TestKeyRemoverKeepsEnclosedBackdropColour(t *testing.T) {
	img := solid(15, 15, color.RGBA{255, 255, 255, 255})
	draw.Draw(img, image.Rect(3, 3, 12, 12), image.NewUniform(color.RGBA{0, 0, 0, 255}), image.Point{}, draw.Src)
	draw.Draw(img, image.Rect(6, 6, 9, 9), image.NewUniform(color.RGBA{255, 255, 255, 255}), image.Point{}, draw.Src)
	out, err := KeyRemover{Tolerance: 10}.Cutout(context.Background(), img, nil)
	require.NoError(t, err)
	nrgba := out.(*image.NRGBA)
	require.Zero(t, nrgba.NRGBAAt(1, 1).A)
	require.Equal(t, uint8(255), nrgba.NRGBAAt(7, 7).A)
}

func TestKeyRemoverHonoursCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := DefaultKeyRemover().Cutout(ctx, solid(8, 8, color.RGBA{A: 255}), nil)
	require.ErrorIs(t, err, context.Canceled)
}

func TestBlurGraySmoothsEdge(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 5, 1))
	g.Pix[2] = 255
	out := blurGray(g, 1)
	require.Equal(t, []uint8{0, 85, 85, 85, 0}, out.Pix)
	require.Same(t, g, blurGray(g, 0))
}

func TestParseProgressLine(t *testing.T) {
	key, cur, total, ok := parseProgressLine("compute:mask 3 7")
	require.True(t, ok)
	require.Equal(t, "compute:mask", key)
	require.EqualValues(t, 3, cur)
	require.EqualValues(t, 7, total)
	_, _, _, ok = parseProgressLine("loading weights from disk")
	require.False(t, ok)

	var seen []string
	diag := scanProgress(strings.NewReader("compute:inference 1 2\nwarning: slow\n"), func(k string, _, _ int64) { seen = append(seen, k) })
	require.Equal(t, []string{KeyInference}, seen)
	require.Equal(t, "warning: slow", diag)
}

func TestScanProgressDrainsOverlongOutput(t *testing.T) {
	long := strings.Repeat("x", 128*1024)
	r := strings.NewReader("compute:inference 1 2\n" + long + "\ncompute:mask 1 1\ntrailing noise\n")
	var seen []string
	diag := scanProgress(r, func(k string, _, _ int64) { seen = append(seen, k) })
	require.Zero(t, r.Len(), "stderr must be read to the end")
	require.Equal(t, []string{KeyInference}, seen)
	require.Contains(t, diag, "token too long")
}

func TestParseExecRemover(t *testing.T) {
	r, err := ParseExecRemover("rembg i - -")
	require.NoError(t, err)
	require.Equal(t, ExecRemover{Path: "rembg", Args: []string{"i", "-", "-"}}, r)
	_, err = ParseExecRemover("  ")
	require.Error(t, err)
}
