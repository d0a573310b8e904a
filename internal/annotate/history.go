package annotate

import "slices"

// History is an ordered, structurally immutable list of committed ops. Every
// mutating method returns a new History and leaves the receiver untouched,
// so a History can be handed to the renderer or saved without copying.
type History struct {
	ops []Op
}

// NewHistory returns a History holding copies of ops.
func NewHistory(ops ...Op) History {
	if len(ops) == 0 {
		return History{}
	}
	out := make([]Op, len(ops))
	for i, op := range ops {
		out[i] = clone(op)
	}
	return History{ops: out}
}

// Len returns the number of ops.
func (h History) Len() int { return len(h.ops) }

// Empty reports whether the history has no ops.
func (h History) Empty() bool { return len(h.ops) == 0 }

// At returns the i'th op, oldest first.
func (h History) At(i int) Op { return h.ops[i] }

// Ops returns a copy of the op list, oldest first.
func (h History) Ops() []Op { return slices.Clone(h.ops) }

// Last returns the most recently committed op.
func (h History) Last() (Op, bool) {
	if len(h.ops) == 0 {
		return nil, false
	}
	return h.ops[len(h.ops)-1], true
}

// Append returns h with op added on top.
func (h History) Append(op Op) History {
	return History{ops: append(slices.Clip(h.ops), clone(op))}
}

// Undo returns h without its last op along with the removed op. Undo of an
// empty history returns h unchanged and false.
func (h History) Undo() (History, Op, bool) {
	if len(h.ops) == 0 {
		return h, nil, false
	}
	last := h.ops[len(h.ops)-1]
	return History{ops: slices.Clip(h.ops[:len(h.ops)-1])}, last, true
}

// Clear returns an empty history.
func (h History) Clear() History { return History{} }

// Index returns the position of the op with id, or -1.
func (h History) Index(id string) int {
	return slices.IndexFunc(h.ops, func(op Op) bool { return op.OpID() == id })
}

// Find returns the op with id.
func (h History) Find(id string) (Op, bool) {
	if i := h.Index(id); i >= 0 {
		return h.ops[i], true
	}
	return nil, false
}

// Replace returns h with the op sharing op's id swapped for op. It reports
// false when no such op exists.
func (h History) Replace(op Op) (History, bool) {
	i := h.Index(op.OpID())
	if i < 0 {
		return h, false
	}
	out := slices.Clone(h.ops)
	out[i] = clone(op)
	return History{ops: out}, true
}

// Remove returns h without the op with id.
func (h History) Remove(id string) (History, bool) {
	i := h.Index(id)
	if i < 0 {
		return h, false
	}
	out := make([]Op, 0, len(h.ops)-1)
	out = append(out, h.ops[:i]...)
	out = append(out, h.ops[i+1:]...)
	return History{ops: out}, true
}
