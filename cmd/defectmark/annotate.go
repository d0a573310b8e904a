package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/colorutil"
	"github.com/example/defectmark/internal/geom"
	"github.com/example/defectmark/internal/render"
)

// opList collects repeated -op flags.
type opList []string

func (o *opList) String() string { return strings.Join(*o, " ") }

func (o *opList) Set(v string) error {
	*o = append(*o, v)
	return nil
}

// annotateCmd draws ops given on the command line.
type annotateCmd struct {
	image       string
	output      string
	history     string
	saveHistory bool
	colorSpec   string
	width       float64
	fontSize    float64
	ops         opList
	style       annotate.Style
	*root
	fs *flag.FlagSet
}

func (a *annotateCmd) FlagSet() *flag.FlagSet {
	return a.fs
}

func (a *annotateCmd) Template() string {
	return "annotate.txt"
}

func parseAnnotateCmd(args []string, r *root) (*annotateCmd, error) {
	fs := flag.NewFlagSet("annotate", flag.ExitOnError)
	cfg := r.editorConfig()
	a := &annotateCmd{root: r, fs: fs}
	fs.Usage = usageFunc(a)
	fs.StringVar(&a.image, "image", "", "input image file")
	fs.StringVar(&a.output, "output", "annotated.png", "output file path")
	fs.StringVar(&a.history, "history", "", "existing history to append to")
	fs.BoolVar(&a.saveHistory, "save-history", false, "also write the source and history next to the output")
	fs.StringVar(&a.colorSpec, "color", colorutil.Hex(cfg.Color), "colour name or hex value")
	fs.Float64Var(&a.width, "width", cfg.Width, "stroke width in reference pixels")
	fs.Float64Var(&a.fontSize, "font-size", cfg.FontSize, "label size in reference pixels")
	fs.Var(&a.ops, "op", "annotation to add, may be repeated")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if a.image == "" || fs.NArg() != 0 {
		return nil, &UsageError{of: a}
	}
	if len(a.ops) == 0 && a.history == "" {
		return nil, fmt.Errorf("at least one -op is required")
	}
	col, err := colorutil.Parse(a.colorSpec)
	if err != nil {
		return nil, err
	}
	if a.width <= 0 || a.fontSize <= 0 {
		return nil, fmt.Errorf("-width and -font-size must be positive")
	}
	a.style = annotate.Style{Color: col, Width: a.width, FontSize: a.fontSize}
	return a, nil
}

func parseCoords(s string) ([]geom.Point, error) {
	fields := strings.Split(s, ",")
	if len(fields)%2 != 0 {
		return nil, fmt.Errorf("coordinates must come in x,y pairs")
	}
	pts := make([]geom.Point, 0, len(fields)/2)
	for i := 0; i < len(fields); i += 2 {
		x, err := strconv.ParseFloat(strings.TrimSpace(fields[i]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", fields[i])
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(fields[i+1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid coordinate %q", fields[i+1])
		}
		pts = append(pts, geom.Pt(x, y))
	}
	return pts, nil
}

// applyOp parses one op such as "arrow:10,10,200,200" and appends it to h.
func applyOp(b *annotate.Builder, h annotate.History, style annotate.Style, spec string) (annotate.History, error) {
	name, rest, ok := strings.Cut(spec, ":")
	if !ok {
		return h, fmt.Errorf("op %q: expected <kind>:<args>", spec)
	}
	tool, err := annotate.ParseTool(name)
	if err != nil {
		return h, fmt.Errorf("op %q: %w", spec, err)
	}
	if tool == annotate.ToolText {
		parts := strings.SplitN(rest, ",", 3)
		if len(parts) != 3 {
			return h, fmt.Errorf("op %q: text requires x,y,label", spec)
		}
		pts, err := parseCoords(parts[0] + "," + parts[1])
		if err != nil {
			return h, fmt.Errorf("op %q: %w", spec, err)
		}
		t, err := b.NewText(style, parts[2], pts[0])
		if err != nil {
			return h, fmt.Errorf("op %q: %w", spec, err)
		}
		return h.Append(t), nil
	}
	pts, err := parseCoords(rest)
	if err != nil {
		return h, fmt.Errorf("op %q: %w", spec, err)
	}
	switch {
	case len(pts) < 2:
		return h, fmt.Errorf("op %q: %s requires at least two points", spec, tool)
	case tool != annotate.ToolPen && len(pts) != 2:
		return h, fmt.Errorf("op %q: %s takes exactly two points", spec, tool)
	}
	if err := b.Begin(tool, style, pts[0]); err != nil {
		return h, err
	}
	for _, p := range pts[1:] {
		b.Extend(p)
	}
	h, _ = b.Commit(h)
	return h, nil
}

func (a *annotateCmd) Run() error {
	src, err := loadImage(a.image)
	if err != nil {
		return err
	}
	h := annotate.NewHistory()
	if a.history != "" {
		sc, err := loadHistory(a.history)
		if err != nil {
			return fmt.Errorf("failed to read history: %w", err)
		}
		if err := checkSize(sc, src); err != nil {
			return err
		}
		h = sc.History
	}
	b := annotate.NewBuilder(annotate.UUIDv7())
	var errs []error
	for _, spec := range a.ops {
		next, err := applyOp(b, h, a.style, spec)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		h = next
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	if err := writePNG(a.output, render.Flatten(src, h)); err != nil {
		return err
	}
	if a.saveHistory {
		p := companionPaths(a.output)
		if err := writePNG(p.Source, src); err != nil {
			return err
		}
		size := src.Bounds().Size()
		if err := writeHistory(p.History, annotate.Sidecar{Width: size.X, Height: size.Y, History: h}); err != nil {
			return err
		}
	}
	fmt.Fprintln(os.Stdout, a.output)
	return nil
}
