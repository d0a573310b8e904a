package annotate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/defectmark/internal/geom"
)

func TestBuilderShapesResizeFromStart(t *testing.T) {
	b := NewBuilder(Sequence("op"))
	require.NoError(t, b.Begin(ToolRect, DefaultStyle(), geom.Pt(50, 50)))
	b.Extend(geom.Pt(80, 90))
	b.Extend(geom.Pt(20, 10))
	op, ok := b.Pending()
	require.True(t, ok)
	r := op.(Rect)
	require.Equal(t, Rect{Base: r.Base, X: 50, Y: 50, W: -30, H: -40}, r)
	require.Equal(t, geom.Rect{Min: geom.Pt(20, 10), Max: geom.Pt(50, 50)}, r.Box())

	require.NoError(t, b.Begin(ToolArrow, DefaultStyle(), geom.Pt(1, 2)))
	b.Extend(geom.Pt(3, 4))
	op, _ = b.Pending()
	require.Equal(t, geom.Pt(1, 2), op.(Arrow).From)
	require.Equal(t, geom.Pt(3, 4), op.(Arrow).To)
}

func TestBuilderPenAppendsPoints(t *testing.T) {
	b := NewBuilder(Sequence("op"))
	require.NoError(t, b.Begin(ToolPen, DefaultStyle(), geom.Pt(0, 0)))
	snapshot, _ := b.Pending()
	b.Extend(geom.Pt(1, 1))
	b.Extend(geom.Pt(2, 2))
	op, _ := b.Pending()
	require.Len(t, op.(Stroke).Points, 3)
	require.Len(t, snapshot.(Stroke).Points, 1)
}

func TestBuilderCommitAndCancel(t *testing.T) {
	b := NewBuilder(Sequence("op"))
	h, ok := b.Commit(History{})
	require.False(t, ok)
	require.Equal(t, 0, h.Len())

	require.NoError(t, b.Begin(ToolEllipse, DefaultStyle(), geom.Pt(0, 0)))
	b.Cancel()
	require.False(t, b.Active())

	require.NoError(t, b.Begin(ToolEllipse, DefaultStyle(), geom.Pt(0, 0)))
	b.Extend(geom.Pt(10, 10))
	h, ok = b.Commit(h)
	require.True(t, ok)
	require.Equal(t, 1, h.Len())
	require.Equal(t, KindEllipse, h.At(0).Kind())
	require.False(t, b.Active())
}

func TestBuilderText(t *testing.T) {
	b := NewBuilder(Sequence("op"))
	require.ErrorIs(t, b.Begin(ToolText, DefaultStyle(), geom.Pt(0, 0)), ErrTextTool)

	_, err := b.NewText(DefaultStyle(), "   ", geom.Pt(0, 0))
	require.ErrorIs(t, err, ErrEmptyText)

	label, err := b.NewText(DefaultStyle(), " Defect ", geom.Pt(5, 6))
	require.NoError(t, err)
	require.Equal(t, "Defect", label.Text)
	require.Equal(t, geom.Pt(5, 6), label.Position())
	require.Equal(t, DefaultFontSize, label.FontSize)
}

func TestParseTool(t *testing.T) {
	for name, want := range map[string]Tool{"pen": ToolPen, "circle": ToolEllipse, "Rect": ToolRect, "text": ToolText, "arrow": ToolArrow} {
		got, err := ParseTool(name)
		require.NoError(t, err)
		require.Equal(t, want, got, name)
	}
	_, err := ParseTool("lasso")
	require.Error(t, err)
}
