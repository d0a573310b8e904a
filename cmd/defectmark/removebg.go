package main

import (
	"context"
	"flag"
	"fmt"
	"image/color"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/example/defectmark/internal/bgremove"
	"github.com/example/defectmark/internal/colorutil"
)

// removeBGCmd runs a background removal without a window.
type removeBGCmd struct {
	image     string
	output    string
	colorSpec string
	command   string
	color     color.RGBA
	progress  io.Writer
	*root
	fs *flag.FlagSet
}

func (c *removeBGCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *removeBGCmd) Template() string {
	return "removebg.txt"
}

func parseRemoveBGCmd(args []string, r *root) (*removeBGCmd, error) {
	fs := flag.NewFlagSet("removebg", flag.ExitOnError)
	cfg := r.editorConfig()
	c := &removeBGCmd{root: r, fs: fs, progress: os.Stderr}
	fs.Usage = usageFunc(c)
	fs.StringVar(&c.image, "image", "", "input image file")
	fs.StringVar(&c.output, "output", "", "output file path (defaults to <image>-nobg.png)")
	fs.StringVar(&c.colorSpec, "color", colorutil.Hex(cfg.Background), "background colour name or hex value")
	fs.StringVar(&c.command, "remover", cfg.Remover, "external remover command line")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if c.image == "" || fs.NArg() != 0 {
		return nil, &UsageError{of: c}
	}
	col, err := colorutil.Parse(c.colorSpec)
	if err != nil {
		return nil, err
	}
	c.color = col
	if c.output == "" {
		c.output = strings.TrimSuffix(c.image, filepath.Ext(c.image)) + "-nobg.png"
	}
	return c, nil
}

func (c *removeBGCmd) Run() error {
	src, err := loadImage(c.image)
	if err != nil {
		return err
	}
	cfg := c.editorConfig()
	cfg.Remover = c.command
	rm, err := remover(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	done := make(chan bgremove.Result, 1)
	svc := bgremove.NewService(rm)
	onProgress := func(p bgremove.Progress) {
		fmt.Fprintf(c.progress, "\r%3d%% %-32s", p.Percent, p.Phase)
	}
	req := bgremove.Request{ImageID: c.image, Source: src, Background: c.color}
	if err := svc.Start(ctx, req, onProgress, func(res bgremove.Result) { done <- res }); err != nil {
		return err
	}

	var res bgremove.Result
	select {
	case res = <-done:
	case <-ctx.Done():
		svc.Cancel(req.ImageID)
		fmt.Fprintln(c.progress)
		return bgremove.ErrCancelled
	}
	fmt.Fprintln(c.progress)
	if res.Err != nil {
		c.notifier.Background(res.Err)
		return res.Err
	}
	if err := writePNG(c.output, res.Raster); err != nil {
		return err
	}
	c.notifier.Background(nil)
	fmt.Fprintln(os.Stdout, c.output)
	return nil
}
