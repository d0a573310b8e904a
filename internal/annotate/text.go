package annotate

import (
	"fmt"
	"math"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

// DefaultFontSize is the reference label size.
const DefaultFontSize = 24.0

var (
	boldOnce sync.Once
	boldFont *opentype.Font
	boldErr  error

	// faces is keyed by size in 1/64 px. Continuous zoom asks for a new
	// size on most frames, so only the recent ones are kept.
	faces = mustFaceCache(maxCachedFaces)
)

const maxCachedFaces = 32

func mustFaceCache(n int) *lru.Cache[int, *lockedFace] {
	c, err := lru.New[int, *lockedFace](n)
	if err != nil {
		panic(err)
	}
	return c
}

// opentype faces keep a scratch buffer, so each cached face is serialised.
type lockedFace struct {
	mu   sync.Mutex
	face font.Face
}

func loadBold() (*opentype.Font, error) {
	boldOnce.Do(func() {
		boldFont, boldErr = opentype.Parse(gobold.TTF)
	})
	return boldFont, boldErr
}

func faceForSize(size float64) (*lockedFace, error) {
	if size <= 0 || math.IsNaN(size) || math.IsInf(size, 0) {
		return nil, fmt.Errorf("invalid font size %v", size)
	}
	key := int(math.Round(size * 64))
	if lf, ok := faces.Get(key); ok {
		return lf, nil
	}
	f, err := loadBold()
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: float64(key) / 64, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	lf := &lockedFace{face: face}
	if prev, ok, _ := faces.PeekOrAdd(key, lf); ok {
		return prev, nil
	}
	return lf, nil
}

// WithFace runs fn with exclusive use of the label face at size pixels.
func WithFace(size float64, fn func(font.Face) error) error {
	lf, err := faceForSize(size)
	if err != nil {
		return err
	}
	lf.mu.Lock()
	defer lf.mu.Unlock()
	return fn(lf.face)
}

// Metrics describes a measured line of text in pixels.
type Metrics struct {
	Width   float64
	Height  float64
	Ascent  float64
	Descent float64
}

// MeasureText measures text set in the label face at size pixels. Height is
// ascent plus descent, independent of the glyphs used, so a label's box does
// not jump while it is typed.
func MeasureText(text string, size float64) (Metrics, error) {
	var m Metrics
	err := WithFace(size, func(face font.Face) error {
		adv := font.MeasureString(face, text)
		fm := face.Metrics()
		m = Metrics{
			Width:   fixedToFloat(adv),
			Ascent:  fixedToFloat(fm.Ascent),
			Descent: fixedToFloat(fm.Descent),
		}
		m.Height = m.Ascent + m.Descent
		return nil
	})
	return m, err
}

func fixedToFloat(v fixed.Int26_6) float64 {
	return float64(v) / 64
}
