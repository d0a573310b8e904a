package annotate

import "math"

var (
	widthPresets    = []float64{1, 2, 3, 5, 8, 12}
	fontSizePresets = []float64{16, 20, 24, 32, 48}
)

// WidthPresets lists the stroke widths offered by the toolbar and CLI.
func WidthPresets() []float64 { return append([]float64(nil), widthPresets...) }

// FontSizePresets lists the label sizes offered by the toolbar.
func FontSizePresets() []float64 { return append([]float64(nil), fontSizePresets...) }

// NearestPreset returns the index of the preset closest to v.
func NearestPreset(presets []float64, v float64) int {
	best := 0
	for i, p := range presets {
		if math.Abs(p-v) < math.Abs(presets[best]-v) {
			best = i
		}
	}
	return best
}
