package annotate

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
)

func TestFaceCacheStaysBoundedWhileZooming(t *testing.T) {
	zoom := 0.5
	for i := 0; i < 300; i++ {
		size := DefaultFontSize * zoom
		require.NoError(t, WithFace(size, func(f font.Face) error {
			require.NotNil(t, f)
			return nil
		}))
		zoom += 0.0083
	}
	require.LessOrEqual(t, faces.Len(), maxCachedFaces)

	// Evicted sizes are rebuilt on demand.
	m, err := MeasureText("Defect", DefaultFontSize*0.5)
	require.NoError(t, err)
	require.Greater(t, m.Width, 0.0)
}

func TestWithFaceRejectsInvalidSize(t *testing.T) {
	require.Error(t, WithFace(0, func(font.Face) error { return nil }))
}
