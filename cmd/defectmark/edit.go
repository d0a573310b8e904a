package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/example/defectmark/internal/annotate"
	"github.com/example/defectmark/internal/appstate"
	"github.com/example/defectmark/internal/bgremove"
	"github.com/example/defectmark/internal/capture"
	"github.com/example/defectmark/internal/config"
	"github.com/example/defectmark/internal/editor"
	"github.com/example/defectmark/internal/session"
)

// editCmd opens the editor window.
type editCmd struct {
	camera  bool
	upload  bool
	screen  bool
	max     int
	saveDir string
	prefix  string
	files   []string
	*root
	fs *flag.FlagSet
}

func (e *editCmd) FlagSet() *flag.FlagSet {
	return e.fs
}

func (e *editCmd) Template() string {
	return "edit.txt"
}

func parseEditCmd(args []string, r *root) (*editCmd, error) {
	fs := flag.NewFlagSet("edit", flag.ExitOnError)
	cfg := r.editorConfig()
	e := &editCmd{root: r, fs: fs}
	fs.Usage = usageFunc(e)
	fs.BoolVar(&e.camera, "camera", false, "open the camera instead of the chooser")
	fs.BoolVar(&e.upload, "upload", false, "start from the files given as arguments")
	fs.BoolVar(&e.screen, "screen", false, "use desktop screenshots as the camera")
	fs.IntVar(&e.max, "max", cfg.MaxImages, "maximum number of images in the session")
	fs.StringVar(&e.saveDir, "save-dir", r.saveDir(), "directory saved images are written to")
	fs.StringVar(&e.prefix, "prefix", "", "file name prefix for saved images (default defect-<time>)")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	e.files = fs.Args()
	switch {
	case e.camera && e.upload:
		return nil, fmt.Errorf("-camera and -upload cannot be used together")
	case e.upload && len(e.files) == 0:
		return nil, &UsageError{of: e}
	case e.max < 1:
		return nil, fmt.Errorf("-max must be at least 1")
	}
	return e, nil
}

func (e *editCmd) mode() editor.Mode {
	switch {
	case e.camera:
		return editor.ModeCamera
	case e.upload:
		return editor.ModeUpload
	}
	return editor.ModeChooser
}

func (e *editCmd) device() capture.Device {
	if e.screen {
		return capture.ScreenDevice{Interactive: true}
	}
	return capture.NewWebcamDevice()
}

// remover picks the external command from the config, or the colour key
// remover when none is set.
func remover(cfg config.Editor) (bgremove.Remover, error) {
	if cfg.Remover == "" {
		return bgremove.DefaultKeyRemover(), nil
	}
	rm, err := bgremove.ParseExecRemover(cfg.Remover)
	if err != nil {
		return nil, fmt.Errorf("remover: %w", err)
	}
	return rm, nil
}

// splitFiles separates images saved by an earlier session, which reopen
// with their history, from plain images that are uploaded.
func splitFiles(paths []string) (existing []editor.Existing, uploads []capture.File, err error) {
	for _, p := range paths {
		ex, ok, err := openExisting(p)
		if err != nil {
			return nil, nil, err
		}
		if ok {
			existing = append(existing, ex)
			continue
		}
		uploads = append(uploads, capture.PathFile(p))
	}
	return existing, uploads, nil
}

func (e *editCmd) Run() error {
	cfg := e.editorConfig()
	rm, err := remover(cfg)
	if err != nil {
		return err
	}
	existing, uploads, err := splitFiles(e.files)
	if err != nil {
		return err
	}
	prefix := e.prefix
	if prefix == "" {
		prefix = "defect-" + time.Now().Format("20060102-150405")
	}

	app := appstate.New(appstate.WithTheme(e.theme()), appstate.WithNotifier(e.notifier))
	var saveErr error
	ed := editor.New(
		editor.WithCapacity(e.max),
		editor.WithExisting(existing...),
		editor.WithPreviews(session.NewTempPreviews("", session.DefaultThumbSide)),
		editor.WithCamera(e.device(), capture.WithSettleDelay(cfg.SwitchSettle)),
		editor.WithRemover(rm),
		editor.WithAutoStart(e.mode()),
		editor.WithConfirmer(app),
		editor.WithObserver(app.Tracker()),
		editor.WithLongPress(cfg.LongPress),
		editor.WithZoomStep(cfg.ZoomStep),
		editor.WithStyle(annotate.Style{Color: cfg.Color, Width: cfg.Width, FontSize: cfg.FontSize}),
		editor.WithBackground(cfg.Background),
		editor.WithRenderStyle(e.theme().RenderStyle()),
		editor.OnChange(app.NotifyImageChanged),
		editor.OnSave(func(results []editor.Result) {
			written, err := writeResults(e.saveDir, prefix, results)
			for _, p := range written {
				fmt.Fprintln(os.Stdout, p)
			}
			if err != nil {
				saveErr = err
				return
			}
			if len(written) > 0 {
				e.notifier.Save(written[0])
			}
		}),
		editor.OnCancel(func() { log.Printf("session cancelled") }),
	)

	if len(uploads) > 0 {
		rep, err := ed.UploadFiles(context.Background(), uploads)
		if err != nil {
			return fmt.Errorf("failed to open images: %w", err)
		}
		for _, ferr := range rep.Failed {
			fmt.Fprintf(os.Stderr, "warning: %v\n", ferr)
		}
		if rep.Dropped > 0 {
			fmt.Fprintf(os.Stderr, "warning: %d image(s) beyond the limit of %d were not opened\n", rep.Dropped, e.max)
		}
	}

	app.Run(ed)
	if saveErr != nil {
		return fmt.Errorf("failed to save: %w", saveErr)
	}
	return nil
}
