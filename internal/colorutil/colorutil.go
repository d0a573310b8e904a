// Package colorutil parses and formats the colours used by annotations,
// themes and the background-removal adapter.
package colorutil

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"

	"golang.org/x/image/colornames"
)

// NamedColor pairs a palette colour with its display name.
type NamedColor struct {
	Name  string
	Color color.RGBA
}

var palette = []NamedColor{
	{Name: "red", Color: color.RGBA{0xef, 0x44, 0x44, 0xff}},
	{Name: "green", Color: color.RGBA{0x22, 0xc5, 0x5e, 0xff}},
	{Name: "blue", Color: color.RGBA{0x3b, 0x82, 0xf6, 0xff}},
	{Name: "yellow", Color: color.RGBA{0xea, 0xb3, 0x08, 0xff}},
	{Name: "white", Color: color.RGBA{0xff, 0xff, 0xff, 0xff}},
	{Name: "black", Color: color.RGBA{0x00, 0x00, 0x00, 0xff}},
}

// Palette returns the preset annotation colours in display order.
func Palette() []NamedColor {
	out := make([]NamedColor, len(palette))
	copy(out, palette)
	return out
}

// DefaultAnnotation is the colour new annotations start with.
func DefaultAnnotation() color.RGBA {
	return palette[0].Color
}

// Parse accepts a palette name, an SVG colour name, or a #RGB, #RRGGBB or
// #RRGGBBAA hex string.
func Parse(s string) (color.RGBA, error) {
	spec := strings.ToLower(strings.TrimSpace(s))
	if spec == "" {
		return color.RGBA{}, fmt.Errorf("color cannot be empty")
	}
	for _, entry := range palette {
		if entry.Name == spec {
			return entry.Color, nil
		}
	}
	if c, ok := colornames.Map[spec]; ok {
		return c, nil
	}
	if !strings.HasPrefix(spec, "#") {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	hex := spec[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 && len(hex) != 8 {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	val, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid color %q", s)
	}
	if len(hex) == 6 {
		return color.RGBA{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}, nil
	}
	return color.RGBA{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
}

// MustParse is Parse for compile time constants.
func MustParse(s string) color.RGBA {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex formats c as #RRGGBB, or #RRGGBBAA when it is not opaque.
func Hex(c color.Color) string {
	rgba, ok := c.(color.RGBA)
	if !ok {
		r, g, b, a := c.RGBA()
		rgba = color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), uint8(a >> 8)}
	}
	if rgba.A == 255 {
		return fmt.Sprintf("#%02X%02X%02X", rgba.R, rgba.G, rgba.B)
	}
	return fmt.Sprintf("#%02X%02X%02X%02X", rgba.R, rgba.G, rgba.B, rgba.A)
}
