// Package appstate hosts the editor in a desktop window. It turns shiny
// window events into editor calls and paints the editor state together
// with the toolbar, thumbnail strip and status bar.
package appstate

import (
	"context"
	"errors"
	"image"
	"log"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"golang.org/x/exp/shiny/driver"
	"golang.org/x/exp/shiny/screen"
	"golang.org/x/mobile/event/key"
	"golang.org/x/mobile/event/lifecycle"
	"golang.org/x/mobile/event/mouse"
	"golang.org/x/mobile/event/paint"
	"golang.org/x/mobile/event/size"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/capture"
	"github.com/example/defectmark/internal/clipboard"
	"github.com/example/defectmark/internal/colorutil"
	"github.com/example/defectmark/internal/editor"
	"github.com/example/defectmark/internal/geom"
	"github.com/example/defectmark/internal/notify"
	"github.com/example/defectmark/internal/render"
	"github.com/example/defectmark/internal/theme"
	"github.com/example/defectmark/internal/viewport"
)

const (
	defaultWidth  = 1280
	defaultHeight = 800
	// wheelDelta is the scroll distance reported for one wheel notch.
	wheelDelta = 100
	// previewInterval paces camera preview repaints.
	previewInterval = 100 * time.Millisecond
)

// AppState holds the window configuration for one editing session.
type AppState struct {
	Theme  *theme.Theme
	Width  int
	Height int

	tracker  *viewport.Tracker
	notifier *notify.Notifier
	updateCh chan struct{}

	postMu sync.Mutex
	post   func(any)

	onClose   func()
	closeOnce sync.Once
	closed    chan struct{}
}

// Option modifies an AppState during creation.
type Option func(*AppState)

// WithTheme sets the window colours.
func WithTheme(t *theme.Theme) Option { return func(a *AppState) { a.Theme = t } }

// WithSize sets the initial window size.
func WithSize(w, h int) Option { return func(a *AppState) { a.Width, a.Height = w, h } }

// WithNotifier sends desktop notifications for captures and finished
// background removals.
func WithNotifier(n *notify.Notifier) Option { return func(a *AppState) { a.notifier = n } }

// WithOnClose registers a callback invoked when the window closes.
func WithOnClose(fn func()) Option { return func(a *AppState) { a.onClose = fn } }

// New creates an AppState with the provided options.
func New(opts ...Option) *AppState {
	a := &AppState{
		Theme:    theme.Default(),
		Width:    defaultWidth,
		Height:   defaultHeight,
		tracker:  viewport.NewTracker(viewport.Layout{}),
		updateCh: make(chan struct{}, 1),
		closed:   make(chan struct{}),
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Tracker is the layout observer to hand to the editor.
func (a *AppState) Tracker() *viewport.Tracker { return a.tracker }

// NotifyImageChanged requests a repaint. Pass it to the editor as its
// change callback.
func (a *AppState) NotifyImageChanged() {
	select {
	case a.updateCh <- struct{}{}:
	default:
	}
}

type confirmRequest struct {
	prompt string
	reply  chan bool
}

// Confirm shows prompt in the window and waits for a yes or no. It answers
// no when the window is not open. It must not be called from the event
// loop, so actions that can ask run on their own goroutine.
func (a *AppState) Confirm(prompt string) bool {
	a.postMu.Lock()
	post := a.post
	a.postMu.Unlock()
	if post == nil {
		return false
	}
	req := confirmRequest{prompt: prompt, reply: make(chan bool, 1)}
	post(req)
	select {
	case ok := <-req.reply:
		return ok
	case <-a.closed:
		return false
	}
}

func (a *AppState) setPost(fn func(any)) {
	a.postMu.Lock()
	a.post = fn
	a.postMu.Unlock()
}

func (a *AppState) notifyClose() {
	a.closeOnce.Do(func() {
		a.setPost(nil)
		close(a.closed)
		if a.onClose != nil {
			a.onClose()
		}
	})
}

// Run executes the UI loop for ed using shiny's driver.
func (a *AppState) Run(ed *editor.Editor) {
	driver.Main(func(s screen.Screen) { a.Main(s, ed) })
}

// Main runs the window until the session is saved, cancelled or the window
// is closed.
func (a *AppState) Main(s screen.Screen, ed *editor.Editor) {
	w, err := s.NewWindow(&screen.NewWindowOptions{Width: a.Width, Height: a.Height, Title: "Defectmark"})
	if err != nil {
		log.Fatalf("new window: %v", err)
	}
	defer w.Release()
	defer a.notifyClose()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		tick := time.NewTicker(previewInterval)
		defer tick.Stop()
		for {
			select {
			case <-a.updateCh:
				w.Send(paint.Event{})
			case <-tick.C:
				if ed.State() == editor.StateCamera {
					w.Send(paint.Event{})
				}
			case <-done:
				return
			}
		}
	}()
	a.setPost(func(ev any) { w.Send(ev) })

	var paintMu sync.Mutex
	var paintCancel context.CancelFunc
	var dropCount int
	paintCh := make(chan paintState, 1)
	defer close(paintCh)
	p := newPainter()
	go func() {
		for st := range paintCh {
			pctx, pcancel := context.WithCancel(ctx)
			paintMu.Lock()
			paintCancel = pcancel
			paintMu.Unlock()
			p.drawFrame(pctx, s, w, st)
			paintMu.Lock()
			paintCancel = nil
			if pctx.Err() == nil {
				dropCount = 0
			}
			paintMu.Unlock()
			pcancel()
		}
	}()

	l := newLoop(ctx, a, ed, w.Send)
	l.present = func(st paintState) {
		paintMu.Lock()
		if paintCancel != nil && dropCount < frameDropThreshold {
			paintCancel()
			dropCount++
		}
		paintMu.Unlock()
		select {
		case paintCh <- st:
		default:
			select {
			case <-paintCh:
			default:
			}
			paintCh <- st
		}
	}
	if err := ed.Start(ctx); err != nil {
		log.Printf("start: %v", err)
	}
	for {
		if l.handle(w.NextEvent()) {
			paintMu.Lock()
			if paintCancel != nil {
				paintCancel()
			}
			paintMu.Unlock()
			return
		}
	}
}

// loop is the event loop state. Only the window goroutine touches it.
type loop struct {
	a       *AppState
	ed      *editor.Editor
	ctx     context.Context
	send    func(any)
	present func(paintState)

	width, height int
	layout        frameLayout
	buttons       []Button
	hover         int

	// dragging is set while a canvas press is routed to the editor, so
	// moves and the release follow it off the canvas.
	dragging   bool
	promptText string
	promptOpen bool
	confirm    *confirmRequest
	lastState  editor.State
}

func newLoop(ctx context.Context, a *AppState, ed *editor.Editor, send func(any)) *loop {
	l := &loop{a: a, ed: ed, ctx: ctx, send: send, width: a.Width, height: a.Height, hover: -1, lastState: ed.State()}
	l.refresh()
	return l
}

func (l *loop) repaint() { l.send(paint.Event{}) }

// handle processes one window event and reports whether the loop is done.
func (l *loop) handle(e any) bool {
	switch e := e.(type) {
	case confirmRequest:
		if l.confirm != nil {
			l.confirm.reply <- false
		}
		l.confirm = &e
		l.refresh()
		l.repaint()
	case lifecycle.Event:
		if e.To == lifecycle.StageDead {
			l.closeSession()
			return true
		}
	case size.Event:
		l.width, l.height = e.WidthPx, e.HeightPx
		l.refresh()
		l.repaint()
	case paint.Event:
		l.refresh()
		if l.present != nil {
			l.present(l.paintState())
		}
	case mouse.Event:
		done := l.mouse(e)
		l.refresh()
		l.repaint()
		return done
	case key.Event:
		if e.Direction == key.DirRelease {
			return false
		}
		done := l.key(e)
		l.refresh()
		l.repaint()
		return done
	case error:
		log.Print(e)
	}
	return false
}

// refresh recomputes the layout from the editor and publishes it to the
// tracker the editor maps pointers through.
func (l *loop) refresh() {
	var src image.Point
	if snap := l.ed.Snapshot(); snap.Source != nil {
		src = snap.Source.Bounds().Size()
	}
	l.layout = computeLayout(l.width, l.height, src)
	if !l.layout.Canvas.Empty() {
		l.a.tracker.Update(l.layout.viewport(src))
	}

	_, open := l.ed.Prompt()
	if open && !l.promptOpen {
		l.promptText = ""
	}
	l.promptOpen = open

	st := l.ed.State()
	if l.lastState == editor.StateRemovingBackground && st == editor.StateEditor {
		l.a.notifier.Background(l.ed.RemovalError())
	}
	l.lastState = st
	l.buttons = buildButtons(l.layout, l.chrome())
	if l.hover >= len(l.buttons) {
		l.hover = -1
	}
}

func (l *loop) chrome() chromeState {
	return chromeState{
		State:   l.ed.State(),
		Tool:    l.ed.Tool(),
		PanMode: l.ed.PanMode(),
		Style:   l.ed.Style(),
		Prompt:  l.promptOpen,
		Confirm: l.confirm != nil,
	}
}

func (l *loop) paintState() paintState {
	st := paintState{
		width:    l.width,
		height:   l.height,
		layout:   l.layout,
		chrome:   l.chrome(),
		buttons:  l.buttons,
		hover:    l.hover,
		theme:    l.a.Theme,
		snap:     l.ed.Snapshot(),
		images:   l.ed.Images(),
		active:   l.ed.ActiveIndex(),
		capacity: l.ed.Len() + l.ed.Remaining(),
		zoom:     l.ed.View().Zoom,
		notice:   l.ed.Notice(),
	}
	st.progress, st.removing = l.ed.Removal()
	st.prompt, st.promptOpen = l.ed.Prompt()
	st.promptText = l.promptText
	if l.confirm != nil {
		st.confirm = l.confirm.prompt
	}
	if st.chrome.State == editor.StateCamera {
		st.preview = l.ed.CameraPreview
	}
	return st
}

func mouseButton(b mouse.Button) editor.Button {
	switch b {
	case mouse.ButtonMiddle:
		return editor.ButtonMiddle
	case mouse.ButtonRight:
		return editor.ButtonSecondary
	}
	return editor.ButtonPrimary
}

// mouse handles a mouse event and reports whether the session ended.
func (l *loop) mouse(e mouse.Event) bool {
	if l.confirm != nil {
		return false
	}
	p := image.Pt(int(e.X), int(e.Y))
	ptr := editor.Pointer{Kind: editor.Mouse, Button: mouseButton(e.Button), Screen: geom.Pt(float64(e.X), float64(e.Y))}

	switch e.Button {
	case mouse.ButtonWheelUp, mouse.ButtonWheelDown:
		if e.Direction == mouse.DirRelease {
			return false
		}
		delta := float64(wheelDelta)
		if e.Button == mouse.ButtonWheelUp {
			delta = -delta
		}
		l.ed.Wheel(delta)
		return false
	case mouse.ButtonWheelLeft, mouse.ButtonWheelRight:
		return false
	}

	if l.dragging {
		switch e.Direction {
		case mouse.DirRelease:
			l.dragging = false
			l.logErr("pointer up", l.ed.PointerUp(ptr))
		case mouse.DirNone:
			l.logErr("pointer move", l.ed.PointerMove(ptr))
		}
		return false
	}

	switch e.Direction {
	case mouse.DirPress:
		if l.ed.Notice() != "" {
			l.ed.DismissNotice()
			return false
		}
		if i := l.layout.thumbAt(p, l.ed.Len()); i >= 0 && l.ed.State() == editor.StateEditor {
			l.logErr("select image", l.ed.SelectImage(i))
			return false
		}
		if i := buttonAt(l.buttons, p); i >= 0 {
			return l.do(l.buttons[i].Action())
		}
		if p.In(l.layout.Canvas) && l.ed.State() == editor.StateEditor {
			if _, open := l.ed.Prompt(); open {
				l.ed.CancelText()
			}
			if err := l.ed.PointerDown(ptr); err != nil {
				l.logErr("pointer down", err)
				return false
			}
			l.dragging = true
		}
	case mouse.DirNone:
		l.hover = buttonAt(l.buttons, p)
		if p.In(l.layout.Canvas) {
			_ = l.ed.PointerMove(ptr)
		}
	}
	return false
}

// key handles a key press and reports whether the session ended.
func (l *loop) key(e key.Event) bool {
	action, ok := keyAction(l.ed.State(), l.promptOpen, l.confirm != nil, e)
	if !ok {
		if l.promptOpen && l.confirm == nil {
			l.typeRune(e)
		}
		return false
	}
	return l.do(action)
}

func (l *loop) typeRune(e key.Event) {
	switch {
	case e.Code == key.CodeDeleteBackspace:
		if r := []rune(l.promptText); len(r) > 0 {
			l.promptText = string(r[:len(r)-1])
		}
	case e.Rune > 0 && unicode.IsPrint(e.Rune) && e.Modifiers&key.ModControl == 0:
		l.promptText += string(e.Rune)
	}
}

// do runs a named action and reports whether the session ended.
func (l *loop) do(action string) bool {
	ed := l.ed
	switch action {
	case actPen, actArrow, actRect, actEllipse, actText:
		t, _ := annotate.ParseTool(action)
		ed.SetPanMode(false)
		ed.SetTool(t)
	case actPan:
		ed.SetPanMode(!ed.PanMode())
	case actUndo:
		ed.Undo()
	case actDelete:
		if err := ed.DeleteSelected(); !errors.Is(err, editor.ErrNoSelection) {
			l.logErr(action, err)
		}
	case actClear:
		l.async(action, ed.Clear)
	case actZoomIn:
		ed.ZoomIn()
	case actZoomOut:
		ed.ZoomOut()
	case actZoomReset:
		ed.ResetZoom()
	case actNext, actPrev:
		if n := ed.Len(); n > 0 {
			step := 1
			if action == actPrev {
				step = n - 1
			}
			l.logErr(action, ed.SelectImage((ed.ActiveIndex()+step)%n))
		}
	case actRemoveImage:
		l.logErr(action, ed.RemoveImage(ed.ActiveIndex()))
	case actRemoveBG:
		l.async(action, func() error { return ed.RemoveBackground(l.ctx, ed.Background()) })
	case actCancelBG:
		ed.CancelBackgroundRemoval()
	case actThinner, actThicker:
		l.stepPreset(action == actThicker)
	case actPaste:
		img, err := clipboard.ReadImage()
		if err != nil {
			l.logErr(action, err)
			return false
		}
		_, err = ed.AddImage(img)
		l.logErr(action, err)
	case actCopy:
		snap := ed.Snapshot()
		if snap.Source == nil {
			return false
		}
		if err := clipboard.WriteImage(render.Flatten(snap.Source, snap.History)); err != nil {
			l.logErr(action, err)
			return false
		}
		log.Print("image copied to clipboard")
	case actCamera:
		l.async(action, func() error { return ed.StartCamera(l.ctx, capture.Environment) })
	case actCapture:
		img, err := ed.CaptureFrame()
		if err != nil {
			l.logErr(action, err)
			return false
		}
		l.a.notifier.Capture("image "+strconv.Itoa(ed.Len()), img.Source)
	case actSwitch:
		l.async(action, func() error { return ed.SwitchCamera(l.ctx) })
	case actDone:
		l.logErr(action, ed.FinishCamera())
	case actSave:
		if _, err := ed.SaveAll(); err != nil {
			l.logErr(action, err)
			return false
		}
		return true
	case actQuit:
		ed.Cancel()
		return true
	case actEscape:
		ed.PointerCancel()
	case actTextDone:
		_, err := ed.ConfirmText(l.promptText)
		if errors.Is(err, annotate.ErrEmptyText) {
			return false
		}
		l.logErr(action, err)
	case actTextCancel:
		ed.CancelText()
	case actYes, actNo:
		if l.confirm != nil {
			l.confirm.reply <- action == actYes
			l.confirm = nil
		}
	default:
		l.preset(action)
	}
	l.refresh()
	return false
}

// preset handles the indexed actions: palette colours, widths and label
// sizes.
func (l *loop) preset(action string) {
	prefix, idx, ok := splitIndexed(action)
	if !ok {
		log.Printf("unknown action %q", action)
		return
	}
	switch prefix {
	case actColor:
		if pal := colorutil.Palette(); idx < len(pal) {
			l.ed.SetColor(pal[idx].Color)
		}
	case actWidth:
		if ws := annotate.WidthPresets(); idx < len(ws) {
			l.logErr(action, l.ed.SetWidth(ws[idx]))
		}
	case actFont:
		if fs := annotate.FontSizePresets(); idx < len(fs) {
			l.logErr(action, l.ed.SetFontSize(fs[idx]))
		}
	}
}

func splitIndexed(action string) (string, int, bool) {
	i := strings.IndexByte(action, ':')
	if i < 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(action[i+1:])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return action[:i+1], n, true
}

// stepPreset moves the width, or the label size for the text tool, to the
// neighbouring preset.
func (l *loop) stepPreset(up bool) {
	st := l.ed.Style()
	presets, cur, set := annotate.WidthPresets(), st.Width, l.ed.SetWidth
	if l.ed.Tool() == annotate.ToolText {
		presets, cur, set = annotate.FontSizePresets(), st.FontSize, l.ed.SetFontSize
	}
	i := annotate.NearestPreset(presets, cur)
	if up {
		i = min(len(presets)-1, i+1)
	} else {
		i = max(0, i-1)
	}
	l.logErr("preset", set(presets[i]))
}

// async runs an action that can block on a confirmation or device off the
// event loop.
func (l *loop) async(name string, fn func() error) {
	go func() {
		l.logErr(name, fn())
		l.a.NotifyImageChanged()
	}()
}

func (l *loop) logErr(action string, err error) {
	if err != nil {
		log.Printf("%s: %v", action, err)
	}
}

// closeSession cancels the session unless it already ended, and answers
// any open confirmation.
func (l *loop) closeSession() {
	if l.confirm != nil {
		l.confirm.reply <- false
		l.confirm = nil
	}
	if !l.ed.State().Terminal() {
		l.ed.Cancel()
	}
}
