package editor

import (
	"context"
	"fmt"
	"image"

	"github.com/example/defectmark/internal/capture"
)

// UploadReport summarises one upload.
type UploadReport struct {
	Added []Image
	// Dropped counts files beyond the session capacity.
	Dropped int
	// Failed holds one error per file that could not be decoded.
	Failed []error
}

// UploadFiles decodes files and adds them in order. Files past the remaining
// capacity are dropped and counted; files that fail to decode are skipped.
// The editor sits in the uploading state while decoding.
func (e *Editor) UploadFiles(ctx context.Context, files []capture.File) (UploadReport, error) {
	var rep UploadReport
	e.mu.Lock()
	if err := e.to(StateUploading); err != nil {
		e.mu.Unlock()
		return rep, err
	}
	e.cancelGesture()
	limit := e.sess.Remaining()
	capacity := e.sess.Cap()
	e.mu.Unlock()
	e.changed()

	up, decodeErr := capture.DecodeFiles(ctx, files, limit)

	err := e.update(func() error {
		if e.state != StateUploading {
			return fmt.Errorf("%w: editor is %s", ErrNotReady, e.state)
		}
		added, dropped := e.sess.AppendAll(imagesOf(up))
		for _, en := range added {
			rep.Added = append(rep.Added, Image{ID: en.ID, Source: en.Source, History: en.History, Preview: en.Preview})
		}
		rep.Dropped = up.Dropped + dropped
		rep.Failed = up.Failed
		for _, ferr := range up.Failed {
			e.log.Warn("upload skipped", "err", ferr)
		}
		switch {
		case rep.Dropped > 0:
			e.log.Info("upload truncated", "dropped", rep.Dropped, "cap", capacity)
			e.notice = droppedNotice(rep.Dropped, capacity)
		case len(rep.Failed) > 0:
			e.notice = fmt.Sprintf("%d file(s) could not be read.", len(rep.Failed))
		default:
			e.notice = ""
		}
		e.afterAdd()
		return decodeErr
	})
	return rep, err
}

func imagesOf(up capture.Upload) []image.Image {
	out := make([]image.Image, len(up.Images))
	for i, img := range up.Images {
		out[i] = img
	}
	return out
}
