// Package session holds the ordered, capped set of images being edited and
// each image's own annotation history.
//
// A Session is not safe for concurrent use; the editor serialises access.
package session

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"log/slog"

	"github.com/example/defectmark/internal/annotate"
)

const (
	// DefaultCapacity is the cap used by single report sections.
	DefaultCapacity = 7
	// LargeCapacity is the cap used by multi photo sections.
	LargeCapacity = 10
)

var (
	// ErrCapacityExceeded is returned when an image is added to a full session.
	ErrCapacityExceeded = errors.New("session is full")
	// ErrNoImage is returned for an unknown id or index.
	ErrNoImage = errors.New("no such image")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("session closed")
)

// Entry is one photo and its edits. Source is never written to after the
// entry is created; every change produces a new Source or History value.
type Entry struct {
	ID        string
	Source    *image.RGBA
	History   annotate.History
	Flattened *image.RGBA
	Preview   Preview
}

// Width returns the native width of the source.
func (e *Entry) Width() int { return e.Source.Bounds().Dx() }

// Scale returns the resolution scale factor for the entry.
func (e *Entry) Scale() float64 { return annotate.ScaleFactor(e.Width()) }

// Session is an ordered list of at most Cap entries.
type Session struct {
	capacity int
	entries  []*Entry
	active   int
	previews PreviewStore
	ids      annotate.Generator
	log      *slog.Logger
	closed   bool
}

// Option configures a Session.
type Option func(*Session)

// WithPreviews sets the store that thumbnails are written to.
func WithPreviews(p PreviewStore) Option {
	return func(s *Session) { s.previews = p }
}

// WithIDs sets the entry id generator.
func WithIDs(gen annotate.Generator) Option {
	return func(s *Session) { s.ids = gen }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Session) { s.log = l }
}

// New returns an empty session holding at most capacity images. A capacity
// below one uses DefaultCapacity.
func New(capacity int, opts ...Option) *Session {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	s := &Session{
		capacity: capacity,
		previews: NoPreviews{},
		ids:      annotate.UUIDv7(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Cap returns the maximum number of images.
func (s *Session) Cap() int { return s.capacity }

// Len returns the number of images.
func (s *Session) Len() int { return len(s.entries) }

// Remaining returns how many more images fit.
func (s *Session) Remaining() int { return max(0, s.capacity-len(s.entries)) }

// Full reports whether no more images fit.
func (s *Session) Full() bool { return s.Remaining() == 0 }

// Append adds img with an empty history.
func (s *Session) Append(img image.Image) (*Entry, error) {
	return s.Seed(img, annotate.History{})
}

// Seed adds img with an existing history, used when re-opening saved work.
func (s *Session) Seed(img image.Image, h annotate.History) (*Entry, error) {
	if s.closed {
		return nil, ErrClosed
	}
	if img == nil {
		return nil, fmt.Errorf("append image: nil raster")
	}
	if s.Full() {
		return nil, ErrCapacityExceeded
	}
	e := &Entry{ID: s.ids(), Source: cloneRGBA(img), History: h}
	e.Preview = s.preview(e)
	s.entries = append(s.entries, e)
	if len(s.entries) == 1 {
		s.active = 0
	}
	return e, nil
}

// AppendAll adds as many of imgs as fit and reports how many were dropped.
func (s *Session) AppendAll(imgs []image.Image) (added []*Entry, dropped int) {
	for i, img := range imgs {
		e, err := s.Append(img)
		if errors.Is(err, ErrCapacityExceeded) || errors.Is(err, ErrClosed) {
			dropped = len(imgs) - i
			break
		}
		if err != nil {
			s.log.Warn("skip image", "index", i, "err", err)
			continue
		}
		added = append(added, e)
	}
	if dropped > 0 {
		s.log.Warn("session capacity reached", "cap", s.capacity, "dropped", dropped)
	}
	return added, dropped
}

// Entries returns the entries in order.
func (s *Session) Entries() []*Entry {
	out := make([]*Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

// At returns the i'th entry.
func (s *Session) At(i int) (*Entry, bool) {
	if i < 0 || i >= len(s.entries) {
		return nil, false
	}
	return s.entries[i], true
}

// Lookup returns the entry with id and its index.
func (s *Session) Lookup(id string) (*Entry, int, bool) {
	for i, e := range s.entries {
		if e.ID == id {
			return e, i, true
		}
	}
	return nil, -1, false
}

// ActiveIndex returns the index of the image being edited.
func (s *Session) ActiveIndex() int { return s.active }

// Active returns the image being edited.
func (s *Session) Active() (*Entry, bool) { return s.At(s.active) }

// SetActive selects the image at i.
func (s *Session) SetActive(i int) error {
	if i < 0 || i >= len(s.entries) {
		return fmt.Errorf("select image %d: %w", i, ErrNoImage)
	}
	s.active = i
	return nil
}

// SetHistory replaces the history of the entry with id. The cached flattened
// raster is dropped because it no longer matches.
func (s *Session) SetHistory(id string, h annotate.History) error {
	e, _, ok := s.Lookup(id)
	if !ok {
		return fmt.Errorf("set history %s: %w", id, ErrNoImage)
	}
	e.History = h
	e.Flattened = nil
	return nil
}

// ReplaceSource swaps the raster of the entry with id and discards its
// history, whose coordinates referred to the old raster.
func (s *Session) ReplaceSource(id string, img image.Image) error {
	e, _, ok := s.Lookup(id)
	if !ok {
		return fmt.Errorf("replace source %s: %w", id, ErrNoImage)
	}
	if img == nil {
		return fmt.Errorf("replace source %s: nil raster", id)
	}
	s.release(e)
	e.Source = cloneRGBA(img)
	e.History = annotate.History{}
	e.Flattened = nil
	e.Preview = s.preview(e)
	return nil
}

// Remove drops the entry at i and releases its preview.
func (s *Session) Remove(i int) error {
	e, ok := s.At(i)
	if !ok {
		return fmt.Errorf("remove image %d: %w", i, ErrNoImage)
	}
	s.release(e)
	s.entries = append(s.entries[:i:i], s.entries[i+1:]...)
	if s.active >= len(s.entries) {
		s.active = max(0, len(s.entries)-1)
	} else if s.active > i {
		s.active--
	}
	return nil
}

// Close releases every preview and empties the session.
func (s *Session) Close() {
	for _, e := range s.entries {
		s.release(e)
	}
	s.entries = nil
	s.active = 0
	s.closed = true
}

func (s *Session) preview(e *Entry) Preview {
	p, err := s.previews.Create(e.ID, e.Source)
	if err != nil {
		s.log.Warn("create preview", "image", e.ID, "err", err)
		return Preview{}
	}
	return p
}

func (s *Session) release(e *Entry) {
	if e.Preview.IsZero() {
		return
	}
	if err := s.previews.Release(e.Preview); err != nil {
		s.log.Warn("release preview", "image", e.ID, "err", err)
	}
	e.Preview = Preview{}
}

// cloneRGBA copies img into a new zero-origin RGBA buffer.
func cloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
