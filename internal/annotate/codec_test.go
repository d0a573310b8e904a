package annotate

import (
	"bytes"
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/defectmark/internal/geom"
)

func TestHistorySidecarRoundTrip(t *testing.T) {
	red := color.RGBA{0xef, 0x44, 0x44, 0xff}
	h := NewHistory(
		Stroke{Base: Base{ID: "1", Color: red, BaseWidth: 3}, Points: []geom.Point{{X: 1, Y: 2}, {X: 3.5, Y: 4}}},
		Arrow{Base: Base{ID: "2", Color: red, BaseWidth: 5}, From: geom.Pt(0, 0), To: geom.Pt(10, 10)},
		Rect{Base: Base{ID: "3", Color: red, BaseWidth: 2}, X: 5, Y: 5, W: -4, H: 8},
		Ellipse{Base: Base{ID: "4", Color: red, BaseWidth: 2}, X: 1, Y: 1, W: 4, H: 4},
		Text{Base: Base{ID: "5", Color: color.RGBA{0, 0, 0, 0x80}, BaseWidth: 3}, Text: "Defect", X: 7, Y: 8, FontSize: 20},
	)
	var buf bytes.Buffer
	require.NoError(t, EncodeHistory(&buf, Sidecar{Width: 640, Height: 480, History: h}))

	got, err := DecodeHistory(&buf)
	require.NoError(t, err)
	require.Equal(t, 640, got.Width)
	require.Equal(t, 480, got.Height)
	require.Equal(t, h.Ops(), got.History.Ops())
}

func TestDecodeHistoryRejectsBadOps(t *testing.T) {
	tests := map[string]string{
		"version": "version: 9\nops: []\n",
		"kind":    "version: 1\nops:\n  - {id: a, kind: lasso, color: red, width: 1}\n",
		"arrow":   "version: 1\nops:\n  - {id: a, kind: arrow, color: red, width: 1}\n",
		"id":      "version: 1\nops:\n  - {kind: rect, color: red, width: 1, box: [0, 0, 1, 1]}\n",
	}
	for name, doc := range tests {
		_, err := DecodeHistory(strings.NewReader(doc))
		require.Error(t, err, name)
	}
}
