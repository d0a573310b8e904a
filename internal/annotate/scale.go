package annotate

import "math"

// ReferenceWidth is the canonical image width that stored widths and font
// sizes are expressed against.
const ReferenceWidth = 1000.0

const (
	// TextPadding is the reference padding around a label's hit box and
	// selection outline.
	TextPadding = 6.0
	// ArrowHeadMin is the reference minimum arrow head length.
	ArrowHeadMin = 15.0
	// ArrowHeadRatio relates the head length to the scaled line width.
	ArrowHeadRatio = 3.0
	// ArrowWingAngle is the angle of each head wing from the shaft.
	ArrowWingAngle = math.Pi / 6
)

// ScaleFactor returns max(1, imageWidth/1000).
func ScaleFactor(imageWidth int) float64 {
	return math.Max(1, float64(imageWidth)/ReferenceWidth)
}

// RenderWidth returns the line width op is drawn with at scale.
func RenderWidth(op Op, scale float64) float64 {
	return op.Style().BaseWidth * scale
}

// RenderFontSize returns the pixel size a label is drawn with at scale.
func RenderFontSize(t Text, scale float64) float64 {
	size := t.FontSize
	if size <= 0 {
		size = DefaultFontSize
	}
	return size * scale
}

// ArrowHeadLength returns the head length for an arrow drawn with the
// already scaled lineWidth.
func ArrowHeadLength(lineWidth, scale float64) float64 {
	return math.Max(ArrowHeadMin*scale, lineWidth*ArrowHeadRatio)
}
