package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/example/defectmark/internal/render"
)

// flattenCmd replays a saved history onto its source.
type flattenCmd struct {
	image   string
	history string
	output  string
	*root
	fs *flag.FlagSet
}

func (f *flattenCmd) FlagSet() *flag.FlagSet {
	return f.fs
}

func (f *flattenCmd) Template() string {
	return "flatten.txt"
}

func parseFlattenCmd(args []string, r *root) (*flattenCmd, error) {
	fs := flag.NewFlagSet("flatten", flag.ExitOnError)
	f := &flattenCmd{root: r, fs: fs}
	fs.Usage = usageFunc(f)
	fs.StringVar(&f.image, "image", "", "source image the history was drawn on")
	fs.StringVar(&f.history, "history", "", "history file (defaults to the image's .history.yaml)")
	fs.StringVar(&f.output, "output", "flattened.png", "output file path")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if f.image == "" || fs.NArg() != 0 {
		return nil, &UsageError{of: f}
	}
	if f.history == "" {
		stem := strings.TrimSuffix(f.image, sourceSuffix)
		if stem == f.image {
			return nil, fmt.Errorf("-history is required unless -image is a saved %s file", sourceSuffix)
		}
		f.history = stem + historySuffix
	}
	return f, nil
}

func (f *flattenCmd) Run() error {
	src, err := loadImage(f.image)
	if err != nil {
		return err
	}
	sc, err := loadHistory(f.history)
	if err != nil {
		return fmt.Errorf("failed to read history: %w", err)
	}
	if err := checkSize(sc, src); err != nil {
		return err
	}
	if err := writePNG(f.output, render.Flatten(src, sc.History)); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "flattened %d annotation(s) into %s\n", sc.History.Len(), f.output)
	return nil
}
