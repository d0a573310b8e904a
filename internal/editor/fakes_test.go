package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/example/defectmark/internal/capture"
	"github.com/example/defectmark/internal/geom"
	"github.com/example/defectmark/internal/viewport"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

func pngFile(t *testing.T, name string, img image.Image) capture.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return capture.BytesFile(name, buf.Bytes())
}

// identity shows a w×h canvas 1:1 at the screen origin inside a window of
// the given width.
func identity(w, h, window float64) *viewport.Tracker {
	return viewport.NewTracker(viewport.Layout{
		Display: geom.Size{W: w, H: h},
		Buffer:  geom.Size{W: w, H: h},
		Window:  geom.Size{W: window, H: 900},
	})
}

func mouse(x, y float64) Pointer { return Pointer{Kind: Mouse, Screen: geom.Pt(x, y)} }
func touch(x, y float64) Pointer { return Pointer{Kind: Touch, Screen: geom.Pt(x, y)} }

type fakeTimer struct {
	fn      func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	was := !t.stopped
	t.stopped = true
	return was
}

type fakeClock struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (c *fakeClock) AfterFunc(_ time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{fn: f}
	c.timers = append(c.timers, t)
	return t
}

// fire runs every timer that was not stopped.
func (c *fakeClock) fire() {
	c.mu.Lock()
	timers := c.timers
	c.timers = nil
	c.mu.Unlock()
	for _, t := range timers {
		if !t.stopped {
			t.stopped = true
			t.fn()
		}
	}
}

type fakeStream struct {
	facing  capture.Facing
	frame   image.Image
	stopped bool
}

func (s *fakeStream) Frame() (image.Image, error) { return s.frame, nil }
func (s *fakeStream) Facing() capture.Facing      { return s.facing }
func (s *fakeStream) Stop() error {
	s.stopped = true
	return nil
}

type fakeDevice struct {
	mu      sync.Mutex
	fail    bool
	streams []*fakeStream
}

func (d *fakeDevice) Open(_ context.Context, c capture.Constraints) (capture.Stream, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.fail {
		return nil, errors.New("permission denied")
	}
	s := &fakeStream{facing: c.Facing, frame: solid(64, 48, color.RGBA{0, 128, 0, 255})}
	d.streams = append(d.streams, s)
	return s, nil
}

func (d *fakeDevice) last() *fakeStream {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.streams[len(d.streams)-1]
}

func noSleep(context.Context, time.Duration) error { return nil }

// blockingStream holds Frame until release is closed.
type blockingStream struct {
	entered chan struct{}
	release chan struct{}
}

func (s *blockingStream) Frame() (image.Image, error) {
	s.entered <- struct{}{}
	<-s.release
	return solid(8, 8, color.RGBA{0, 0, 255, 255}), nil
}
func (s *blockingStream) Facing() capture.Facing { return capture.Environment }
func (s *blockingStream) Stop() error            { return nil }

type blockingDevice struct{ stream *blockingStream }

func (d blockingDevice) Open(context.Context, capture.Constraints) (capture.Stream, error) {
	return d.stream, nil
}
