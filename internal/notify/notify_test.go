package notify

import (
	"errors"
	"image"
	"os"
	"strings"
	"testing"

	"github.com/example/defectmark/internal/platform"
)

type sent struct {
	title, body string
	opts        platform.Options
}

func recorder(out *[]sent) SendFunc {
	return func(title, body string, opts platform.Options) error {
		*out = append(*out, sent{title, body, opts})
		return nil
	}
}

func TestDisabledEventsAreSilent(t *testing.T) {
	var got []sent
	n := New(DefaultPreferences()).WithSender(recorder(&got))
	n.Save("x.png")
	n.Background(nil)
	n.Capture("frame", nil)
	if len(got) != 0 {
		t.Fatalf("sent %+v", got)
	}
	var nilNotifier *Notifier
	nilNotifier.Save("x.png")
}

func TestBackgroundOutcome(t *testing.T) {
	var got []sent
	n := New(DefaultPreferences()).WithSender(recorder(&got))
	n.Enable(EventBackground, true)
	n.Background(nil)
	n.Background(errors.New("model missing"))
	if len(got) != 2 {
		t.Fatalf("sent %d notifications", len(got))
	}
	if got[0].body != "Background removal complete" || got[0].opts.Urgent {
		t.Errorf("success = %+v", got[0])
	}
	if !strings.Contains(got[1].body, "model missing") || !got[1].opts.Urgent {
		t.Errorf("failure = %+v", got[1])
	}
}

func TestCaptureAttachesPreview(t *testing.T) {
	var iconExisted bool
	n := New(DefaultPreferences()).WithSender(func(title, body string, opts platform.Options) error {
		_, err := os.Stat(opts.IconPath)
		iconExisted = err == nil
		return nil
	})
	n.Enable(EventCapture, true)
	n.Capture("image 1", image.NewRGBA(image.Rect(0, 0, 600, 300)))
	if !iconExisted {
		t.Fatal("preview icon missing while notifying")
	}
}

func TestLoadPreferences(t *testing.T) {
	env := map[string]string{
		"DEFECTMARK_NOTIFY_TITLE":     "QA",
		"DEFECTMARK_NOTIFY_SAVE_TEXT": "Stored %s",
	}
	prefs := LoadPreferences(func(k string) string { return env[k] })
	if prefs.Title != "QA" {
		t.Errorf("Title = %q", prefs.Title)
	}
	if prefs.Events[EventSave].Template != "Stored %s" {
		t.Errorf("save template = %q", prefs.Events[EventSave].Template)
	}
	if prefs.Events[EventCapture].Template != "Captured %s" {
		t.Errorf("capture template = %q", prefs.Events[EventCapture].Template)
	}
}

func TestShrink(t *testing.T) {
	small := shrink(image.NewRGBA(image.Rect(0, 0, 600, 300)), 256)
	if got := small.Bounds().Size(); got != image.Pt(256, 128) {
		t.Fatalf("size = %v", got)
	}
}
