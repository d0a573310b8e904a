package config

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
	"time"

	"github.com/example/defectmark/internal/colorutil"
	"github.com/example/defectmark/internal/theme"
)

// Notify holds notification settings.
type Notify struct {
	Capture    bool
	Save       bool
	Background bool
}

// Editor holds the editor defaults.
type Editor struct {
	MaxImages    int
	Color        color.RGBA
	Width        float64
	FontSize     float64
	ZoomStep     float64
	LongPress    time.Duration
	SwitchSettle time.Duration
	Background   color.RGBA
	// Remover is an external command line used for background removal. When
	// empty the built in colour key remover is used.
	Remover string
}

// Config holds the application configuration.
type Config struct {
	Theme   string
	SaveDir string
	Editor  Editor
	Notify  Notify
	Themes  map[string]*theme.Theme
}

// DefaultEditor returns the editor defaults.
func DefaultEditor() Editor {
	return Editor{
		MaxImages:    7,
		Color:        colorutil.DefaultAnnotation(),
		Width:        3,
		FontSize:     24,
		ZoomStep:     0.2,
		LongPress:    500 * time.Millisecond,
		SwitchSettle: 200 * time.Millisecond,
		Background:   color.RGBA{255, 255, 255, 255},
	}
}

// New creates a new Config with defaults.
func New() *Config {
	return &Config{
		Theme:  "", // Default to empty to allow fallback to Env/Default
		Editor: DefaultEditor(),
		Notify: Notify{
			Capture:    false,
			Save:       false,
			Background: false,
		},
		Themes: make(map[string]*theme.Theme),
	}
}

// ResolveTheme returns the configured theme, looking at themes defined in
// the file before asking l.
func (c *Config) ResolveTheme(l *theme.Loader) (*theme.Theme, error) {
	if t, ok := c.Themes[c.Theme]; ok {
		return t, nil
	}
	return l.Load(c.Theme)
}

// String implements fmt.Stringer and returns the configuration in RC format.
func (c *Config) String() string {
	var sb strings.Builder

	// Root section
	if c.Theme != "" {
		fmt.Fprintf(&sb, "theme = %s\n", c.Theme)
	}
	if c.SaveDir != "" {
		fmt.Fprintf(&sb, "save_dir = %s\n", c.SaveDir)
	}
	sb.WriteString("\n")

	e := c.Editor
	sb.WriteString("[editor]\n")
	fmt.Fprintf(&sb, "max-images = %d\n", e.MaxImages)
	fmt.Fprintf(&sb, "color = %s\n", colorutil.Hex(e.Color))
	fmt.Fprintf(&sb, "width = %g\n", e.Width)
	fmt.Fprintf(&sb, "font-size = %g\n", e.FontSize)
	fmt.Fprintf(&sb, "zoom-step = %g\n", e.ZoomStep)
	fmt.Fprintf(&sb, "long-press = %s\n", e.LongPress)
	fmt.Fprintf(&sb, "switch-settle = %s\n", e.SwitchSettle)
	fmt.Fprintf(&sb, "background = %s\n", colorutil.Hex(e.Background))
	if e.Remover != "" {
		fmt.Fprintf(&sb, "remover = %q\n", e.Remover)
	}
	sb.WriteString("\n")

	// Notify section
	sb.WriteString("[notify]\n")
	fmt.Fprintf(&sb, "capture = %v\n", c.Notify.Capture)
	fmt.Fprintf(&sb, "save = %v\n", c.Notify.Save)
	fmt.Fprintf(&sb, "background = %v\n", c.Notify.Background)
	sb.WriteString("\n")

	// Themes sections
	// Sort keys for deterministic output
	var themeNames []string
	for name := range c.Themes {
		themeNames = append(themeNames, name)
	}
	sort.Strings(themeNames)

	for _, name := range themeNames {
		t := c.Themes[name]
		fmt.Fprintf(&sb, "[theme.%s]\n", name)
		fmt.Fprintf(&sb, "Name: %s\n", t.Name)
		for _, f := range t.Fields() {
			fmt.Fprintf(&sb, "%s: %s\n", f.Key, colorutil.Hex(f.Value))
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
