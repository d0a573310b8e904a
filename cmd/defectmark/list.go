package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/colorutil"
)

type colorsCmd struct {
	*root
	fs *flag.FlagSet
}

func parseColorsCmd(args []string, r *root) (*colorsCmd, error) {
	fs := flag.NewFlagSet("colors", flag.ExitOnError)
	cmd := &colorsCmd{root: r, fs: fs}
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

func (c *colorsCmd) Run() error {
	palette := colorutil.Palette()
	if len(palette) == 0 {
		fmt.Fprintln(os.Stdout, "no colors available")
		return nil
	}
	fmt.Fprintln(os.Stdout, "available palette colors (* marks the configured color):")
	current := c.editorConfig().Color
	for idx, entry := range palette {
		marker := " "
		if entry.Color == current {
			marker = "*"
		}
		hex := colorutil.Hex(entry.Color)
		block := fmt.Sprintf("\x1b[48;2;%d;%d;%dm  \x1b[0m", entry.Color.R, entry.Color.G, entry.Color.B)
		fmt.Fprintf(os.Stdout, "%s %2d: %-12s %s %s\n", marker, idx+1, entry.Name, hex, block)
	}
	return nil
}

func (c *colorsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *colorsCmd) Template() string {
	return "colors.txt"
}

type widthsCmd struct {
	*root
	fs *flag.FlagSet
}

func parseWidthsCmd(args []string, r *root) (*widthsCmd, error) {
	fs := flag.NewFlagSet("widths", flag.ExitOnError)
	cmd := &widthsCmd{root: r, fs: fs}
	fs.Usage = usageFunc(cmd)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 0 {
		return nil, &UsageError{of: cmd}
	}
	return cmd, nil
}

func (c *widthsCmd) Run() error {
	cfg := c.editorConfig()
	printPresets("stroke widths", annotate.WidthPresets(), cfg.Width)
	printPresets("label sizes", annotate.FontSizePresets(), cfg.FontSize)
	return nil
}

func printPresets(title string, presets []float64, current float64) {
	fmt.Fprintf(os.Stdout, "available %s (* marks the closest to the configured value):\n", title)
	nearest := annotate.NearestPreset(presets, current)
	for idx, v := range presets {
		marker := " "
		if idx == nearest {
			marker = "*"
		}
		fmt.Fprintf(os.Stdout, "%s %3gpx\n", marker, v)
	}
}

func (c *widthsCmd) FlagSet() *flag.FlagSet {
	return c.fs
}

func (c *widthsCmd) Template() string {
	return "widths.txt"
}
