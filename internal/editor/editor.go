// Package editor is the annotation editor's state machine. It owns the image
// session, the camera, the in-progress op and the pointer gestures, and turns
// host input events into session changes and render snapshots.
//
// Every method is safe to call from any goroutine. Blocking work (opening a
// camera, decoding files) runs without holding the editor lock while the
// state machine sits in a busy state, so conflicting input is rejected
// rather than queued.
package editor

import (
	"errors"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"time"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/bgremove"
	"github.com/example/defectmark/internal/capture"
	"github.com/example/defectmark/internal/geom"
	"github.com/example/defectmark/internal/render"
	"github.com/example/defectmark/internal/session"
	"github.com/example/defectmark/internal/viewport"
)

var (
	// ErrNotReady rejects input the current state does not accept.
	ErrNotReady = errors.New("editor not ready")
	// ErrNotConfirmed is returned when the user declined a destructive step.
	ErrNotConfirmed = errors.New("not confirmed")
	// ErrNoSelection is returned when an op is required but none is selected.
	ErrNoSelection = errors.New("nothing selected")
	// ErrNoCamera is returned when the editor was built without a camera.
	ErrNoCamera = errors.New("no camera configured")
	// ErrNoRemover is returned when the editor was built without a remover.
	ErrNoRemover = errors.New("no background remover configured")
)

// DefaultLongPress arms a touch drag on a label.
const DefaultLongPress = 500 * time.Millisecond

// Mode skips the initial chooser.
type Mode int

const (
	ModeChooser Mode = iota
	ModeCamera
	ModeUpload
)

// ParseMode accepts "", "chooser", "camera" and "upload".
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", "chooser":
		return ModeChooser, nil
	case "camera":
		return ModeCamera, nil
	case "upload":
		return ModeUpload, nil
	}
	return ModeChooser, errors.New("unknown start mode " + s)
}

// Existing is a previously saved image opened for re-editing.
type Existing struct {
	Image   image.Image
	History annotate.History
}

// Result is one saved image.
type Result struct {
	ID        string
	Source    *image.RGBA
	Flattened *image.RGBA
	History   annotate.History
}

// Confirmer asks the user a yes or no question.
type Confirmer interface {
	Confirm(prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string) bool { return f(prompt) }

// Clock schedules the long-press timer.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc.
type Timer interface {
	Stop() bool
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// Editor is one editing session from open to save or cancel.
type Editor struct {
	mu sync.Mutex
	fsm

	sess     *session.Session
	cam      *capture.Controller
	bg       *bgremove.Service
	builder  *annotate.Builder
	observer viewport.Observer
	unsub    func()

	style      annotate.Style
	tool       annotate.Tool
	panMode    bool
	background color.RGBA
	renderSty  render.Style

	view     viewport.State
	zoomStep float64
	selected string
	hovered  string
	gesture  gesture
	pinch    viewport.Pinch
	prompt   *geom.Point
	removal  *removal
	seq      uint64
	notice   string

	lastRemovalErr error

	autostart Mode
	confirm   Confirmer
	clock     Clock
	longPress time.Duration
	log       *slog.Logger

	onSave   func([]Result)
	onCancel func()
	onChange func()
}

type removal struct {
	imageID  string
	token    uint64
	progress bgremove.Progress
}

type config struct {
	capacity  int
	existing  []Existing
	previews  session.PreviewStore
	ids       annotate.Generator
	device    capture.Device
	camOpts   []capture.ControllerOption
	remover   bgremove.Remover
	bgOpts    []bgremove.Option
	editorOps []func(*Editor)
}

// Option configures an Editor.
type Option func(*config)

func editorOpt(fn func(*Editor)) Option {
	return func(c *config) { c.editorOps = append(c.editorOps, fn) }
}

// WithCapacity sets the maximum number of images.
func WithCapacity(n int) Option { return func(c *config) { c.capacity = n } }

// WithExisting opens the editor on previously saved images.
func WithExisting(imgs ...Existing) Option {
	return func(c *config) { c.existing = append(c.existing, imgs...) }
}

// WithPreviews sets where session thumbnails are written.
func WithPreviews(p session.PreviewStore) Option { return func(c *config) { c.previews = p } }

// WithIDs sets the generator for image and op ids.
func WithIDs(gen annotate.Generator) Option { return func(c *config) { c.ids = gen } }

// WithCamera enables capture from dev.
func WithCamera(dev capture.Device, opts ...capture.ControllerOption) Option {
	return func(c *config) {
		c.device = dev
		c.camOpts = opts
	}
}

// WithRemover enables background removal.
func WithRemover(r bgremove.Remover, opts ...bgremove.Option) Option {
	return func(c *config) {
		c.remover = r
		c.bgOpts = opts
	}
}

// WithAutoStart skips the chooser.
func WithAutoStart(m Mode) Option { return editorOpt(func(e *Editor) { e.autostart = m }) }

// WithConfirmer sets who answers destructive prompts. Without one every
// prompt is answered yes.
func WithConfirmer(cf Confirmer) Option { return editorOpt(func(e *Editor) { e.confirm = cf }) }

// WithClock replaces the wall clock used for long presses.
func WithClock(cl Clock) Option { return editorOpt(func(e *Editor) { e.clock = cl }) }

// WithLongPress overrides DefaultLongPress.
func WithLongPress(d time.Duration) Option { return editorOpt(func(e *Editor) { e.longPress = d }) }

// WithObserver sets the source of canvas layout.
func WithObserver(o viewport.Observer) Option { return editorOpt(func(e *Editor) { e.observer = o }) }

// WithZoomStep sets the change applied by ZoomIn and ZoomOut.
func WithZoomStep(step float64) Option {
	return editorOpt(func(e *Editor) {
		if step > 0 {
			e.zoomStep = step
		}
	})
}

// WithStyle sets the initial pen.
func WithStyle(s annotate.Style) Option { return editorOpt(func(e *Editor) { e.style = s }) }

// WithBackground sets the default background removal colour.
func WithBackground(c color.RGBA) Option { return editorOpt(func(e *Editor) { e.background = c }) }

// WithRenderStyle sets backdrop and outline colours.
func WithRenderStyle(s render.Style) Option { return editorOpt(func(e *Editor) { e.renderSty = s }) }

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option { return editorOpt(func(e *Editor) { e.log = l }) }

// OnSave receives the saved images.
func OnSave(fn func([]Result)) Option { return editorOpt(func(e *Editor) { e.onSave = fn }) }

// OnCancel runs when the editor is cancelled.
func OnCancel(fn func()) Option { return editorOpt(func(e *Editor) { e.onCancel = fn }) }

// OnChange runs after every change that affects what is shown.
func OnChange(fn func()) Option { return editorOpt(func(e *Editor) { e.onChange = fn }) }

// New builds an editor. With existing images it opens straight into the
// editor state; otherwise it starts at the chooser.
func New(opts ...Option) *Editor {
	cfg := config{capacity: session.DefaultCapacity, ids: annotate.UUIDv7()}
	for _, opt := range opts {
		opt(&cfg)
	}
	e := &Editor{
		style:      annotate.DefaultStyle(),
		tool:       annotate.ToolPen,
		background: color.RGBA{0xff, 0xff, 0xff, 0xff},
		renderSty:  render.DefaultStyle(),
		view:       viewport.New(),
		zoomStep:   viewport.ZoomStep,
		clock:      realClock{},
		longPress:  DefaultLongPress,
		log:        slog.Default(),
	}
	for _, fn := range cfg.editorOps {
		fn(e)
	}
	sessOpts := []session.Option{session.WithIDs(cfg.ids), session.WithLogger(e.log)}
	if cfg.previews != nil {
		sessOpts = append(sessOpts, session.WithPreviews(cfg.previews))
	}
	e.sess = session.New(cfg.capacity, sessOpts...)
	e.builder = annotate.NewBuilder(cfg.ids)
	if cfg.device != nil {
		e.cam = capture.NewController(cfg.device, append([]capture.ControllerOption{capture.WithLogger(e.log)}, cfg.camOpts...)...)
	}
	if cfg.remover != nil {
		e.bg = bgremove.NewService(cfg.remover, append([]bgremove.Option{bgremove.WithLogger(e.log)}, cfg.bgOpts...)...)
	}
	if e.observer == nil {
		e.observer = viewport.NewTracker(viewport.Layout{})
	}
	e.unsub = e.observer.Subscribe(e.layoutChanged)

	for i, ex := range cfg.existing {
		if _, err := e.sess.Seed(ex.Image, ex.History); err != nil {
			e.log.Warn("existing image not opened", "index", i, "err", err)
		}
	}
	if e.sess.Len() > 0 {
		e.state = StateEditor
	}
	return e
}

// update runs fn under the lock and then notifies the host.
func (e *Editor) update(fn func() error) error {
	e.mu.Lock()
	err := fn()
	e.mu.Unlock()
	e.changed()
	return err
}

func (e *Editor) changed() {
	if e.onChange != nil {
		e.onChange()
	}
}

func (e *Editor) layoutChanged(l viewport.Layout) {
	e.mu.Lock()
	if !l.Class().Hover() {
		e.hovered = ""
	}
	e.mu.Unlock()
	e.changed()
}

// State returns the current state.
func (e *Editor) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// AutoStart returns the mode the host should open with.
func (e *Editor) AutoStart() Mode { return e.autostart }

// Notice returns the last user facing message, or "".
func (e *Editor) Notice() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.notice
}

// DismissNotice clears the message.
func (e *Editor) DismissNotice() {
	_ = e.update(func() error {
		e.notice = ""
		return nil
	})
}

// Len returns the number of images in the session.
func (e *Editor) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Len()
}

// Remaining returns how many more images can be added.
func (e *Editor) Remaining() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Remaining()
}

// ActiveIndex returns the index of the image being edited.
func (e *Editor) ActiveIndex() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.ActiveIndex()
}

// Image is a read only view of one session entry.
type Image struct {
	ID      string
	Source  *image.RGBA
	History annotate.History
	Preview session.Preview
}

// Images lists the session in order.
func (e *Editor) Images() []Image {
	e.mu.Lock()
	defer e.mu.Unlock()
	entries := e.sess.Entries()
	out := make([]Image, len(entries))
	for i, en := range entries {
		out[i] = Image{ID: en.ID, Source: en.Source, History: en.History, Preview: en.Preview}
	}
	return out
}

// View returns the zoom and pan.
func (e *Editor) View() viewport.State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view
}

// Selected returns the id of the selected label, or "".
func (e *Editor) Selected() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selected
}

// Hovered returns the id of the hovered label, or "".
func (e *Editor) Hovered() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hovered
}

// Snapshot captures everything needed to redraw the active image. The
// returned value shares immutable data with the editor and is safe to render
// on another goroutine.
func (e *Editor) Snapshot() render.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := render.Snapshot{View: e.view, Selected: e.selected, Hovered: e.hovered, Style: e.renderSty}
	en, ok := e.sess.Active()
	if !ok {
		return snap
	}
	snap.Source = en.Source
	snap.History = en.History
	if e.gesture.kind == gestureDrag && e.gesture.imageID == en.ID {
		snap.History = e.gesture.history
	}
	if op, ok := e.builder.Pending(); ok {
		snap.Pending = op
	}
	return snap
}

// Redraw renders the active image.
func (e *Editor) Redraw() *image.RGBA {
	return render.Redraw(e.Snapshot())
}

// SaveAll flattens every image in order, hands the results to the save
// callback and ends the session.
func (e *Editor) SaveAll() ([]Result, error) {
	e.mu.Lock()
	if err := e.to(StateSaving); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	e.finishGesture()
	entries := e.sess.Entries()
	results := make([]Result, len(entries))
	for i, en := range entries {
		if en.Flattened == nil {
			en.Flattened = render.Flatten(en.Source, en.History)
		}
		results[i] = Result{ID: en.ID, Source: en.Source, Flattened: en.Flattened, History: en.History}
	}
	_ = e.to(StateSaved)
	e.release()
	e.log.Info("editor saved", "images", len(results))
	e.mu.Unlock()

	if e.onSave != nil {
		e.onSave(results)
	}
	e.changed()
	return results, nil
}

// Cancel discards the session, stops the camera and any background removal
// and runs the cancel callback. Cancelling a finished editor does nothing.
func (e *Editor) Cancel() {
	e.mu.Lock()
	if e.state.Terminal() {
		e.mu.Unlock()
		return
	}
	e.state = StateCancelled
	e.cancelGesture()
	e.release()
	e.log.Info("editor cancelled")
	e.mu.Unlock()

	if e.onCancel != nil {
		e.onCancel()
	}
	e.changed()
}

// release frees the camera, pending removals, previews and the layout
// subscription. Callers hold the lock.
func (e *Editor) release() {
	if e.cam != nil {
		if err := e.cam.Close(); err != nil {
			e.log.Warn("camera close", "err", err)
		}
	}
	if e.bg != nil {
		e.bg.CancelAll()
	}
	e.removal = nil
	e.prompt = nil
	e.sess.Close()
	if e.unsub != nil {
		e.unsub()
		e.unsub = nil
	}
}

func (e *Editor) confirmed(prompt string) bool {
	if e.confirm == nil {
		return true
	}
	return e.confirm.Confirm(prompt)
}

// resetView returns to zoom 1 and clears per image selection state.
func (e *Editor) resetView() {
	e.cancelGesture()
	e.view = viewport.New()
	e.selected = ""
	e.hovered = ""
	e.prompt = nil
}

// afterAdd settles the state once images were added or the add ended.
func (e *Editor) afterAdd() {
	next := StateInitial
	if e.sess.Len() > 0 {
		next = StateEditor
	}
	if e.state != next {
		if err := e.to(next); err != nil {
			e.log.Error("editor state", "err", err)
		}
	}
}
