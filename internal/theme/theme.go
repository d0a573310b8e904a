package theme

import (
	"image/color"

	"github.com/example/defectmark/internal/render"
)

// Theme defines the color palette for the editor window.
type Theme struct {
	Name string

	// General
	Background color.RGBA // Window background behind the canvas
	Foreground color.RGBA // Main text color

	// Toolbar and thumbnail strip
	ToolbarBackground color.RGBA
	ThumbBackground   color.RGBA
	ThumbActive       color.RGBA // Border of the image being edited
	ThumbBorder       color.RGBA

	// Tool Buttons
	ButtonBackground      color.RGBA
	ButtonBackgroundHover color.RGBA
	ButtonBackgroundPress color.RGBA
	ButtonText            color.RGBA
	ButtonBorder          color.RGBA

	// Canvas
	CheckerLight color.RGBA
	CheckerDark  color.RGBA
	Selection    color.RGBA // Solid outline around the selected label
	Hover        color.RGBA // Dashed outline around the hovered label

	// Status
	ProgressBar   color.RGBA
	ProgressTrack color.RGBA
	Notice        color.RGBA
}

// Default returns the hardcoded default light theme (fallback).
func Default() *Theme {
	return &Theme{
		Name:                  "Default",
		Background:            color.RGBA{220, 220, 220, 255},
		Foreground:            color.RGBA{0, 0, 0, 255},
		ToolbarBackground:     color.RGBA{220, 220, 220, 255},
		ThumbBackground:       color.RGBA{200, 200, 200, 255},
		ThumbActive:           color.RGBA{0x3b, 0x82, 0xf6, 255},
		ThumbBorder:           color.RGBA{160, 160, 160, 255},
		ButtonBackground:      color.RGBA{200, 200, 200, 255},
		ButtonBackgroundHover: color.RGBA{180, 180, 180, 255},
		ButtonBackgroundPress: color.RGBA{150, 150, 150, 255},
		ButtonText:            color.RGBA{0, 0, 0, 255},
		ButtonBorder:          color.RGBA{0, 0, 0, 255},
		CheckerLight:          color.RGBA{220, 220, 220, 255},
		CheckerDark:           color.RGBA{192, 192, 192, 255},
		Selection:             color.RGBA{0x3b, 0x82, 0xf6, 255},
		Hover:                 color.RGBA{0x3b, 0x82, 0xf6, 255},
		ProgressBar:           color.RGBA{0x22, 0xc5, 0x5e, 255},
		ProgressTrack:         color.RGBA{120, 120, 120, 255},
		Notice:                color.RGBA{0xb9, 0x1c, 0x1c, 255},
	}
}

// RenderStyle returns the canvas colours the render pipeline uses.
func (t *Theme) RenderStyle() render.Style {
	return render.Style{
		Backdrop:     t.Background,
		CheckerLight: t.CheckerLight,
		CheckerDark:  t.CheckerDark,
		Selection:    t.Selection,
		Hover:        t.Hover,
	}
}
