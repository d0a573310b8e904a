package appstate

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"testing"

	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/colorutil"
	"github.com/example/defectmark/internal/editor"
)

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// newTestLoop opens imgs in an editor wired to a window-less loop.
func newTestLoop(t *testing.T, imgs ...image.Image) (*loop, *editor.Editor) {
	t.Helper()
	a := New()
	existing := make([]editor.Existing, len(imgs))
	for i, img := range imgs {
		existing[i] = editor.Existing{Image: img}
	}
	ed := editor.New(
		editor.WithExisting(existing...),
		editor.WithObserver(a.Tracker()),
		editor.WithConfirmer(a),
		editor.OnChange(a.NotifyImageChanged),
	)
	l := newLoop(context.Background(), a, ed, func(any) {})
	return l, ed
}

func press(x, y float32) mouse.Event {
	return mouse.Event{X: x, Y: y, Button: mouse.ButtonLeft, Direction: mouse.DirPress}
}

func move(x, y float32) mouse.Event {
	return mouse.Event{X: x, Y: y, Direction: mouse.DirNone}
}

func release(x, y float32) mouse.Event {
	return mouse.Event{X: x, Y: y, Button: mouse.ButtonLeft, Direction: mouse.DirRelease}
}

func keyPress(r rune, code key.Code, mods key.Modifiers) key.Event {
	return key.Event{Rune: r, Code: code, Modifiers: mods, Direction: key.DirPress}
}

func centre(r image.Rectangle) (float32, float32) {
	return float32(r.Min.X + r.Dx()/2), float32(r.Min.Y + r.Dy()/2)
}

func findButton(t *testing.T, l *loop, action string) Button {
	t.Helper()
	for _, b := range l.buttons {
		if b.Action() == action {
			return b
		}
	}
	t.Fatalf("no button for %q", action)
	return nil
}

func TestComputeLayout(t *testing.T) {
	f := computeLayout(1280, 800, image.Pt(400, 300))
	if want := image.Rect(484, 270, 884, 570); f.Canvas != want {
		t.Fatalf("small source canvas = %v, want %v", f.Canvas, want)
	}
	f = computeLayout(1280, 800, image.Pt(4000, 3000))
	if want := image.Rect(220, 72, 1148, 768); f.Canvas != want {
		t.Fatalf("large source canvas = %v, want %v", f.Canvas, want)
	}
	vl := f.viewport(image.Pt(4000, 3000))
	if vl.Buffer.W != 4000 || vl.Display.W != 928 || vl.Window.W != 1280 {
		t.Fatalf("viewport layout = %+v", vl)
	}
	if f := computeLayout(1280, 800, image.Point{}); !f.Canvas.Empty() {
		t.Fatalf("no source should leave no canvas, got %v", f.Canvas)
	}
	if got := f.thumbAt(image.Pt(thumbGap+thumbSide+thumbGap+1, stripHeight/2), 2); got != 1 {
		t.Fatalf("thumbAt = %d, want 1", got)
	}
}

func TestKeyAction(t *testing.T) {
	tests := []struct {
		name    string
		state   editor.State
		prompt  bool
		confirm bool
		ev      key.Event
		want    string
	}{
		{"pen", editor.StateEditor, false, false, keyPress('p', 0, 0), actPen},
		{"upper case", editor.StateEditor, false, false, keyPress('A', 0, key.ModShift), actArrow},
		{"undo", editor.StateEditor, false, false, keyPress('z', 0, key.ModControl), actUndo},
		{"shifted plus", editor.StateEditor, false, false, keyPress('+', 0, key.ModShift), actZoomIn},
		{"previous image", editor.StateEditor, false, false, keyPress(0, key.CodeTab, key.ModShift), actPrev},
		{"palette digit", editor.StateEditor, false, false, keyPress('3', 0, 0), "color:2"},
		{"copy before camera", editor.StateEditor, false, false, keyPress('c', 0, key.ModControl), actCopy},
		{"chooser camera", editor.StateInitial, false, false, keyPress('c', 0, 0), actCamera},
		{"capture", editor.StateCamera, false, false, keyPress(' ', 0, 0), actCapture},
		{"cancel removal", editor.StateRemovingBackground, false, false, keyPress(0, key.CodeEscape, 0), actCancelBG},
		{"prompt swallows tools", editor.StateEditor, true, false, keyPress('p', 0, 0), ""},
		{"prompt enter", editor.StateEditor, true, false, keyPress(0, key.CodeReturnEnter, 0), actTextDone},
		{"confirm yes", editor.StateEditor, true, true, keyPress('y', 0, 0), actYes},
		{"confirm ignores digits", editor.StateEditor, false, true, keyPress('1', 0, 0), ""},
	}
	for _, tc := range tests {
		got, _ := keyAction(tc.state, tc.prompt, tc.confirm, tc.ev)
		if got != tc.want {
			t.Errorf("%s: action = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestShortcutString(t *testing.T) {
	if got := (KeyShortcut{Rune: 'z', Modifiers: key.ModControl}).String(); got != "Ctrl+Z" {
		t.Errorf("String = %q", got)
	}
	if got := (KeyShortcut{Code: key.CodeEscape}).String(); got != "Esc" {
		t.Errorf("String = %q", got)
	}
}

func TestMouseDrawsOnCanvas(t *testing.T) {
	l, ed := newTestLoop(t, solid(400, 300, color.RGBA{200, 200, 200, 255}))
	if l.handle(press(500, 300)) {
		t.Fatal("press ended the session")
	}
	l.handle(move(560, 340))
	l.handle(move(620, 400))
	l.handle(release(620, 400))
	h := ed.Images()[0].History
	if h.Len() != 1 {
		t.Fatalf("history length = %d, want 1", h.Len())
	}
	stroke, ok := h.At(0).(annotate.Stroke)
	if !ok {
		t.Fatalf("op = %T, want Stroke", h.At(0))
	}
	// Canvas origin is (484,270) at a 1:1 display ratio.
	if first := stroke.Points[0]; first.X != 16 || first.Y != 30 {
		t.Fatalf("first point = %v, want (16,30)", first)
	}
}

func TestToolbarButtons(t *testing.T) {
	l, ed := newTestLoop(t, solid(400, 300, color.RGBA{200, 200, 200, 255}))
	l.handle(press(centre(findButton(t, l, actArrow).Rect())))
	if ed.Tool() != annotate.ToolArrow {
		t.Fatalf("tool = %v, want arrow", ed.Tool())
	}
	if !findButton(t, l, actArrow).Pressed() {
		t.Fatal("arrow button not shown as pressed")
	}
	l.handle(press(centre(findButton(t, l, "color:2").Rect())))
	if got := ed.Style().Color; got != colorutil.Palette()[2].Color {
		t.Fatalf("color = %v", got)
	}
	l.handle(press(centre(findButton(t, l, actPan).Rect())))
	if !ed.PanMode() {
		t.Fatal("pan button did not enable pan mode")
	}
	l.handle(press(centre(findButton(t, l, actPen).Rect())))
	if ed.PanMode() || ed.Tool() != annotate.ToolPen {
		t.Fatal("choosing a tool should leave pan mode")
	}
}

func TestWidthPresetsStep(t *testing.T) {
	l, ed := newTestLoop(t, solid(40, 30, color.RGBA{A: 255}))
	l.handle(keyPress(']', 0, 0))
	if got := ed.Style().Width; got != 5 {
		t.Fatalf("width after ] = %v, want 5", got)
	}
	l.handle(keyPress('[', 0, 0))
	l.handle(keyPress('[', 0, 0))
	if got := ed.Style().Width; got != 2 {
		t.Fatalf("width after [[ = %v, want 2", got)
	}
}

func TestTextPrompt(t *testing.T) {
	l, ed := newTestLoop(t, solid(400, 300, color.RGBA{200, 200, 200, 255}))
	l.handle(keyPress('t', 0, 0))
	l.handle(press(600, 400))
	l.handle(release(600, 400))
	if !l.promptOpen {
		t.Fatal("text prompt did not open")
	}
	for _, r := range "OKx" {
		l.handle(keyPress(r, 0, 0))
	}
	l.handle(keyPress(0, key.CodeDeleteBackspace, 0))
	if l.promptText != "OK" {
		t.Fatalf("prompt text = %q", l.promptText)
	}
	l.handle(keyPress(0, key.CodeReturnEnter, 0))
	h := ed.Images()[0].History
	if h.Len() != 1 {
		t.Fatalf("history length = %d", h.Len())
	}
	if txt, ok := h.At(0).(annotate.Text); !ok || txt.Text != "OK" {
		t.Fatalf("label = %#v", h.At(0))
	}
	if l.promptOpen {
		t.Fatal("prompt still open")
	}
}

func TestConfirmBridge(t *testing.T) {
	l, ed := newTestLoop(t, solid(400, 300, color.RGBA{200, 200, 200, 255}))
	l.handle(press(500, 300))
	l.handle(move(600, 400))
	l.handle(release(600, 400))

	events := make(chan any, 1)
	l.a.setPost(func(ev any) { events <- ev })
	result := make(chan error, 1)
	go func() { result <- ed.Clear() }()
	l.handle(<-events)
	if l.confirm == nil || l.confirm.prompt == "" {
		t.Fatal("confirmation not shown")
	}
	// Clicks are ignored while the question is open.
	l.handle(press(500, 300))
	l.handle(keyPress('y', 0, 0))
	if err := <-result; err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if n := ed.Images()[0].History.Len(); n != 0 {
		t.Fatalf("history length after clear = %d", n)
	}
}

func TestConfirmWithoutWindow(t *testing.T) {
	if New().Confirm("Clear all edits?") {
		t.Fatal("Confirm answered yes with no window")
	}
}

func TestSaveEndsSession(t *testing.T) {
	l, ed := newTestLoop(t, solid(40, 30, color.RGBA{A: 255}))
	if !l.handle(keyPress('s', 0, key.ModControl)) {
		t.Fatal("save did not end the loop")
	}
	if ed.State() != editor.StateSaved {
		t.Fatalf("state = %v", ed.State())
	}
}

func TestWindowCloseCancels(t *testing.T) {
	l, ed := newTestLoop(t, solid(40, 30, color.RGBA{A: 255}))
	if !l.handle(lifecycle.Event{To: lifecycle.StageDead}) {
		t.Fatal("close did not end the loop")
	}
	if ed.State() != editor.StateCancelled {
		t.Fatalf("state = %v", ed.State())
	}
}

func TestWheelAndThumbnails(t *testing.T) {
	l, ed := newTestLoop(t, solid(40, 30, color.RGBA{R: 255, A: 255}), solid(40, 30, color.RGBA{B: 255, A: 255}))
	l.handle(mouse.Event{X: 500, Y: 300, Button: mouse.ButtonWheelUp, Direction: mouse.DirStep})
	if z := ed.View().Zoom; z <= 1 {
		t.Fatalf("zoom after wheel up = %v", z)
	}
	l.handle(press(centre(l.layout.thumbRect(1))))
	if ed.ActiveIndex() != 1 {
		t.Fatalf("active = %d, want 1", ed.ActiveIndex())
	}
	if z := ed.View().Zoom; z != 1 {
		t.Fatalf("selecting an image should reset zoom, got %v", z)
	}
}

func TestComposeFrame(t *testing.T) {
	red := color.RGBA{255, 0, 0, 255}
	l, _ := newTestLoop(t, solid(400, 300, red))
	st := l.paintState()
	dst := image.NewRGBA(image.Rect(0, 0, st.width, st.height))
	if !newPainter().compose(context.Background(), dst, st) {
		t.Fatal("compose reported cancellation")
	}
	if got := dst.RGBAAt(centre32(l.layout.Canvas)); got != red {
		t.Fatalf("canvas centre = %v, want %v", got, red)
	}
	if got := dst.RGBAAt(1, l.layout.Toolbar.Max.Y-2); got != st.theme.ToolbarBackground {
		t.Fatalf("toolbar = %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if newPainter().compose(ctx, dst, st) {
		t.Fatal("compose ignored cancellation")
	}
}

func centre32(r image.Rectangle) (int, int) {
	return r.Min.X + r.Dx()/2, r.Min.Y + r.Dy()/2
}

func TestSplitIndexed(t *testing.T) {
	if p, n, ok := splitIndexed("width:4"); !ok || p != actWidth || n != 4 {
		t.Fatalf("splitIndexed = %q %d %v", p, n, ok)
	}
	if _, _, ok := splitIndexed("color:-1"); ok {
		t.Fatal("negative index accepted")
	}
	if _, _, ok := splitIndexed("undo"); ok {
		t.Fatal("plain action accepted")
	}
}
