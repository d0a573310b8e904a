package annotate

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/example/defectmark/internal/geom"
)

func stroke(id string, pts ...geom.Point) Stroke {
	return Stroke{Base: Base{ID: id, BaseWidth: 3}, Points: pts}
}

func TestUndoRemovesMostRecentCommit(t *testing.T) {
	b := NewBuilder(Sequence("op"))
	var h History
	for n := 1; n <= 5; n++ {
		require.NoError(t, b.Begin(ToolPen, DefaultStyle(), geom.Pt(0, 0)))
		b.Extend(geom.Pt(float64(n), float64(n)))
		var ok bool
		h, ok = b.Commit(h)
		require.True(t, ok)

		last, _ := h.Last()
		before := h.Len()
		after, removed, ok := h.Undo()
		require.True(t, ok)
		require.Equal(t, before-1, after.Len())
		require.Equal(t, last.OpID(), removed.OpID())
		require.Equal(t, before, h.Len(), "undo must not touch the receiver")
	}
}

func TestUndoEmptyIsNoop(t *testing.T) {
	var h History
	after, op, ok := h.Undo()
	require.False(t, ok)
	require.Nil(t, op)
	require.Equal(t, 0, after.Len())
}

func TestAppendDoesNotAliasSnapshots(t *testing.T) {
	base := NewHistory(stroke("a", geom.Pt(0, 0)), stroke("b", geom.Pt(1, 1)))
	trimmed, _, _ := base.Undo()
	left := trimmed.Append(stroke("c", geom.Pt(2, 2)))
	right := trimmed.Append(stroke("d", geom.Pt(3, 3)))

	require.Equal(t, "b", base.At(1).OpID())
	require.Equal(t, "c", left.At(1).OpID())
	require.Equal(t, "d", right.At(1).OpID())
}

func TestReplaceAndRemove(t *testing.T) {
	label := Text{Base: Base{ID: "t"}, Text: "Defect", X: 10, Y: 10}
	h := NewHistory(stroke("s", geom.Pt(0, 0)), label)

	moved, ok := h.Replace(label.MovedTo(geom.Pt(50, 60)))
	require.True(t, ok)
	got, _ := moved.Find("t")
	require.Equal(t, 50.0, got.(Text).X)
	orig, _ := h.Find("t")
	require.Equal(t, 10.0, orig.(Text).X)

	_, ok = h.Replace(Text{Base: Base{ID: "missing"}})
	require.False(t, ok)

	removed, ok := h.Remove("s")
	require.True(t, ok)
	require.Equal(t, 1, removed.Len())
	require.Equal(t, 2, h.Len())
}

func TestNewHistoryCopiesStrokePoints(t *testing.T) {
	pts := []geom.Point{{X: 1, Y: 1}}
	h := NewHistory(stroke("s", pts...))
	pts[0] = geom.Pt(9, 9)
	require.Equal(t, geom.Pt(1, 1), h.At(0).(Stroke).Points[0])
}

func TestClear(t *testing.T) {
	h := NewHistory(stroke("a", geom.Pt(0, 0)))
	require.True(t, h.Clear().Empty())
	require.Equal(t, 1, h.Len())
}
