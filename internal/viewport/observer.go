package viewport

import "sync"

// Class is the coarse device class derived from the viewport width.
type Class int

const (
	ClassMobile Class = iota
	ClassTablet
	ClassDesktop
)

func (c Class) String() string {
	switch c {
	case ClassMobile:
		return "mobile"
	case ClassTablet:
		return "tablet"
	}
	return "desktop"
}

// ClassFor classifies a viewport width in screen pixels.
func ClassFor(width float64) Class {
	switch {
	case width < 768:
		return ClassMobile
	case width < 1024:
		return ClassTablet
	}
	return ClassDesktop
}

// Hover reports whether the class has a hovering pointer.
func (c Class) Hover() bool { return c == ClassDesktop }

// Observer reports the current canvas layout and notifies on changes. Hosts
// inject one so the editor never polls a window.
type Observer interface {
	Layout() Layout
	Subscribe(fn func(Layout)) (cancel func())
}

// Tracker is an Observer the host updates from its resize events.
type Tracker struct {
	mu     sync.Mutex
	layout Layout
	subs   map[int]func(Layout)
	next   int
}

// NewTracker returns a Tracker starting at l.
func NewTracker(l Layout) *Tracker {
	return &Tracker{layout: l, subs: make(map[int]func(Layout))}
}

// Layout returns the latest layout.
func (t *Tracker) Layout() Layout {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.layout
}

// Subscribe registers fn to run after every Update.
func (t *Tracker) Subscribe(fn func(Layout)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.next
	t.next++
	t.subs[id] = fn
	return func() {
		t.mu.Lock()
		delete(t.subs, id)
		t.mu.Unlock()
	}
}

// Update stores l and notifies subscribers when it changed.
func (t *Tracker) Update(l Layout) {
	t.mu.Lock()
	if l == t.layout {
		t.mu.Unlock()
		return
	}
	t.layout = l
	fns := make([]func(Layout), 0, len(t.subs))
	for _, fn := range t.subs {
		fns = append(fns, fn)
	}
	t.mu.Unlock()
	for _, fn := range fns {
		fn(l)
	}
}
