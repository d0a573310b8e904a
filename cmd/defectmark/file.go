package main

import (
	"errors"
	"fmt"
	"image"
	"image/png"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/capture"
	"github.com/example/defectmark/internal/editor"
)

const (
	sourceSuffix  = ".source.png"
	historySuffix = ".history.yaml"
)

// savedPaths names the three files written for one saved image.
type savedPaths struct {
	Flattened string
	Source    string
	History   string
}

func pathsFor(dir, base string) savedPaths {
	stem := filepath.Join(dir, base)
	return savedPaths{Flattened: stem + ".png", Source: stem + sourceSuffix, History: stem + historySuffix}
}

// companionPaths returns the source and history files that belong to a
// flattened image written by writeResults.
func companionPaths(flattened string) savedPaths {
	stem := strings.TrimSuffix(flattened, filepath.Ext(flattened))
	return savedPaths{Flattened: flattened, Source: stem + sourceSuffix, History: stem + historySuffix}
}

func loadImage(path string) (*image.RGBA, error) {
	img, err := capture.DecodeFile(capture.PathFile(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}
	return img, nil
}

func writePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	return f.Close()
}

func loadHistory(path string) (annotate.Sidecar, error) {
	f, err := os.Open(path)
	if err != nil {
		return annotate.Sidecar{}, err
	}
	defer f.Close()
	sc, err := annotate.DecodeHistory(f)
	if err != nil {
		return annotate.Sidecar{}, fmt.Errorf("%s: %w", path, err)
	}
	return sc, nil
}

func writeHistory(path string, sc annotate.Sidecar) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := annotate.EncodeHistory(f, sc); err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

// checkSize reports a history recorded against a differently sized raster.
func checkSize(sc annotate.Sidecar, img image.Image) error {
	size := img.Bounds().Size()
	if sc.Width == 0 && sc.Height == 0 {
		return nil
	}
	if sc.Width != size.X || sc.Height != size.Y {
		return fmt.Errorf("history was recorded on a %dx%d image but the source is %dx%d", sc.Width, sc.Height, size.X, size.Y)
	}
	return nil
}

// openExisting loads a previously saved image for re-editing. ok is false
// when path has no source and history next to it.
func openExisting(path string) (editor.Existing, bool, error) {
	p := companionPaths(path)
	sc, err := loadHistory(p.History)
	if errors.Is(err, fs.ErrNotExist) {
		return editor.Existing{}, false, nil
	}
	if err != nil {
		return editor.Existing{}, false, err
	}
	src, err := loadImage(p.Source)
	if err != nil {
		return editor.Existing{}, false, err
	}
	if err := checkSize(sc, src); err != nil {
		return editor.Existing{}, false, fmt.Errorf("%s: %w", path, err)
	}
	return editor.Existing{Image: src, History: sc.History}, true, nil
}

// writeResults writes every saved image into dir and returns the flattened
// paths in session order.
func writeResults(dir, prefix string, results []editor.Result) ([]string, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create save directory: %w", err)
	}
	var written []string
	for i, res := range results {
		p := pathsFor(dir, fmt.Sprintf("%s-%d", prefix, i+1))
		if err := writePNG(p.Flattened, res.Flattened); err != nil {
			return written, err
		}
		if err := writePNG(p.Source, res.Source); err != nil {
			return written, err
		}
		size := res.Source.Bounds().Size()
		if err := writeHistory(p.History, annotate.Sidecar{Width: size.X, Height: size.Y, History: res.History}); err != nil {
			return written, err
		}
		written = append(written, p.Flattened)
	}
	return written, nil
}
