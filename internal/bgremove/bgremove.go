// Package bgremove is the boundary to the background-removal model. A
// Remover cuts the subject out of a raster; the Service runs one removal per
// image at a time, reports monotonic progress and composites the cut-out over
// the requested background colour.
package bgremove

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"sync/atomic"
)

// ProgressFunc receives raw model progress: a phase key and a position
// within that phase.
type ProgressFunc func(key string, current, total int64)

// Remover cuts the foreground out of src, returning an image of the same size
// whose background pixels are transparent.
type Remover interface {
	Cutout(ctx context.Context, src image.Image, progress ProgressFunc) (image.Image, error)
}

// RemoverFunc adapts a function to Remover.
type RemoverFunc func(ctx context.Context, src image.Image, progress ProgressFunc) (image.Image, error)

// Cutout calls f.
func (f RemoverFunc) Cutout(ctx context.Context, src image.Image, progress ProgressFunc) (image.Image, error) {
	return f(ctx, src, progress)
}

var (
	// ErrInFlight rejects a second removal for an image that has one pending.
	ErrInFlight = errors.New("background removal already in progress")
	// ErrRemovalFailed wraps every failure of the model or compositing.
	ErrRemovalFailed = errors.New("background removal failed")
	// ErrCancelled is reported when a removal was cancelled.
	ErrCancelled = errors.New("background removal cancelled")
)

// Request asks for the background of Source to be replaced by Background.
type Request struct {
	ImageID    string
	Source     image.Image
	Background color.RGBA
}

// Result is the terminal outcome of a removal. Exactly one of Raster and Err
// is set.
type Result struct {
	ImageID string
	Raster  *image.RGBA
	Err     error
}

// Service runs removals.
type Service struct {
	remover Remover
	log     *slog.Logger

	mu       sync.Mutex
	inflight map[string]*job
	seq      uint64
}

type job struct {
	id        uint64
	cancel    context.CancelFunc
	cancelled atomic.Bool
	progress  *monotonic
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

// NewService returns a Service backed by r.
func NewService(r Remover, opts ...Option) *Service {
	s := &Service{remover: r, log: slog.Default(), inflight: make(map[string]*job)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start runs req in the background. onProgress receives monotonic updates and
// onDone receives the single terminal result; both run on the worker
// goroutine. After Cancel returns no further callbacks are started.
func (s *Service) Start(ctx context.Context, req Request, onProgress func(Progress), onDone func(Result)) error {
	if req.Source == nil || req.Source.Bounds().Empty() {
		return fmt.Errorf("%w: empty source", ErrRemovalFailed)
	}
	s.mu.Lock()
	if _, busy := s.inflight[req.ImageID]; busy {
		s.mu.Unlock()
		return ErrInFlight
	}
	s.seq++
	jctx, cancel := context.WithCancel(ctx)
	j := &job{id: s.seq, cancel: cancel, progress: &monotonic{}}
	s.inflight[req.ImageID] = j
	s.mu.Unlock()

	emit := func(p Progress) {
		if onProgress == nil || j.cancelled.Load() {
			return
		}
		if p, ok := j.progress.next(p); ok {
			onProgress(p)
		}
	}

	go func() {
		defer cancel()
		emit(Progress{Percent: 0, Phase: PhaseStarting})
		raster, err := s.run(jctx, req, emit)
		s.finish(req.ImageID, j)
		if j.cancelled.Load() {
			s.log.Info("background removal cancelled", "image", req.ImageID)
			return
		}
		if err != nil {
			s.log.Warn("background removal failed", "image", req.ImageID, "err", err)
			if onDone != nil {
				onDone(Result{ImageID: req.ImageID, Err: err})
			}
			return
		}
		emit(Progress{Percent: 100, Phase: PhaseDone})
		s.log.Info("background removal finished", "image", req.ImageID)
		if onDone != nil {
			onDone(Result{ImageID: req.ImageID, Raster: raster})
		}
	}()
	return nil
}

func (s *Service) run(ctx context.Context, req Request, emit func(Progress)) (*image.RGBA, error) {
	cut, err := s.remover.Cutout(ctx, req.Source, func(key string, current, total int64) {
		emit(modelProgress(key, current, total))
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("%w: %w", ErrCancelled, ctx.Err())
		}
		return nil, fmt.Errorf("%w: %w", ErrRemovalFailed, err)
	}
	if cut == nil || cut.Bounds().Size() != req.Source.Bounds().Size() {
		return nil, fmt.Errorf("%w: model returned a raster of the wrong size", ErrRemovalFailed)
	}
	emit(Progress{Percent: 90, Phase: PhaseApplying})
	return Composite(cut, req.Background), nil
}

func (s *Service) finish(imageID string, j *job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if cur, ok := s.inflight[imageID]; ok && cur == j {
		delete(s.inflight, imageID)
	}
}

// Cancel stops the removal for imageID and suppresses its callbacks. It
// reports whether one was pending.
func (s *Service) Cancel(imageID string) bool {
	s.mu.Lock()
	j, ok := s.inflight[imageID]
	if ok {
		delete(s.inflight, imageID)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	j.cancelled.Store(true)
	j.cancel()
	return true
}

// CancelAll stops every pending removal.
func (s *Service) CancelAll() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.inflight))
	for id := range s.inflight {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.Cancel(id)
	}
}

// Pending reports whether a removal for imageID is running.
func (s *Service) Pending(imageID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[imageID]
	return ok
}
