package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/example/defectmark/internal/config"
	"github.com/example/defectmark/internal/notify"
	"github.com/example/defectmark/internal/theme"
)

var (
	version            = "dev"
	commit             = ""
	date               = ""
	configPathOverride = ""
)

type runnable interface{ Run() error }

type root struct {
	fs               *flag.FlagSet
	program          string
	notifier         *notify.Notifier
	config           *config.Config
	captureAlerts    bool
	saveAlerts       bool
	backgroundAlerts bool
	themeName        string
	activeTheme      *theme.Theme
}

func (r *root) Program() string {
	return r.program
}

func (r *root) subcommand(name string) *root {
	program := strings.TrimSpace(strings.Join([]string{r.program, name}, " "))
	return &root{
		program:          program,
		notifier:         r.notifier,
		config:           r.config,
		captureAlerts:    r.captureAlerts,
		saveAlerts:       r.saveAlerts,
		backgroundAlerts: r.backgroundAlerts,
		themeName:        r.themeName,
		activeTheme:      r.activeTheme,
	}
}

func (r *root) FlagSet() *flag.FlagSet {
	return r.fs
}

// editorConfig returns the [editor] settings, falling back to the defaults
// when no configuration was loaded.
func (r *root) editorConfig() config.Editor {
	if r == nil || r.config == nil {
		return config.DefaultEditor()
	}
	return r.config.Editor
}

func (r *root) saveDir() string {
	if r == nil || r.config == nil {
		return ""
	}
	return r.config.SaveDir
}

func (r *root) theme() *theme.Theme {
	if r == nil || r.activeTheme == nil {
		return theme.Default()
	}
	return r.activeTheme
}

func newRoot() *root {
	prefs := notify.LoadPreferences(nil)
	loader := config.NewLoader(version, configPathOverride)
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to load config: %v\n", err)
		cfg = config.New()
	}

	r := &root{
		fs:       flag.NewFlagSet("defectmark", flag.ExitOnError),
		program:  "defectmark",
		notifier: notify.New(prefs),
		config:   cfg,
	}
	r.fs.BoolVar(&r.captureAlerts, "notify-capture", cfg.Notify.Capture, "show a desktop notification after a camera frame is captured")
	r.fs.BoolVar(&r.saveAlerts, "notify-save", cfg.Notify.Save, "show a desktop notification after the session is saved")
	r.fs.BoolVar(&r.backgroundAlerts, "notify-background", cfg.Notify.Background, "show a desktop notification when a background removal ends")

	// The theme flag defaults to "" so resolveTheme can fall back to the
	// environment and then the config file.
	r.fs.StringVar(&r.themeName, "theme", "", "color theme to use ("+strings.Join(theme.Names(), ", ")+")")
	r.fs.Usage = usageFunc(r)
	return r
}

// resolveTheme applies CLI > env > config > default.
func (r *root) resolveTheme() *theme.Theme {
	name := r.themeName
	if name == "" {
		name = os.Getenv(config.EnvTheme)
	}
	if name == "" && r.config != nil {
		name = r.config.Theme
	}
	if r.config != nil {
		if t, ok := r.config.Themes[name]; ok {
			return t
		}
	}
	t, err := theme.NewLoader().Load(name)
	if err != nil {
		if name != "" && name != "default" {
			fmt.Fprintf(os.Stderr, "warning: failed to load theme '%s': %v. using default.\n", name, err)
		}
		return theme.Default()
	}
	return t
}

func (r *root) Run(args []string) error {
	if err := r.fs.Parse(args); err != nil {
		return err
	}
	if r.fs.NArg() < 1 {
		return &UsageError{of: r}
	}
	if r.notifier != nil {
		r.notifier.Enable(notify.EventCapture, r.captureAlerts)
		r.notifier.Enable(notify.EventSave, r.saveAlerts)
		r.notifier.Enable(notify.EventBackground, r.backgroundAlerts)
	}
	r.activeTheme = r.resolveTheme()

	cmdName := r.fs.Arg(0)
	subArgs := r.fs.Args()[1:]

	var (
		cmd runnable
		err error
	)
	switch cmdName {
	case "edit":
		cmd, err = parseEditCmd(subArgs, r.subcommand(cmdName))
	case "flatten":
		cmd, err = parseFlattenCmd(subArgs, r.subcommand(cmdName))
	case "removebg":
		cmd, err = parseRemoveBGCmd(subArgs, r.subcommand(cmdName))
	case "annotate":
		cmd, err = parseAnnotateCmd(subArgs, r.subcommand(cmdName))
	case "colors":
		cmd, err = parseColorsCmd(subArgs, r.subcommand(cmdName))
	case "widths":
		cmd, err = parseWidthsCmd(subArgs, r.subcommand(cmdName))
	case "config":
		cmd, err = parseConfigCmd(subArgs, r.subcommand(cmdName))
	case "version":
		cmd = &versionCmd{root: r}
	default:
		err = &UsageError{of: r}
	}
	if err != nil {
		return err
	}
	return cmd.Run()
}

func main() {
	r := newRoot()
	if err := r.Run(os.Args[1:]); err != nil {
		var uerr *UsageError
		if errors.As(err, &uerr) {
			fmt.Fprintln(os.Stderr, uerr.Error())
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
