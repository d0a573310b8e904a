package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/example/defectmark/internal/colorutil"
)

// Environment variables that override the configuration file.
const (
	EnvMaxImages  = "DEFECTMARK_MAX_IMAGES"
	EnvColor      = "DEFECTMARK_COLOR"
	EnvBackground = "DEFECTMARK_BACKGROUND"
	EnvRemover    = "DEFECTMARK_REMOVER"
	EnvTheme      = "DEFECTMARK_THEME"
	EnvSaveDir    = "DEFECTMARK_SAVE_DIR"
)

// Loader handles loading the configuration.
type Loader struct {
	Version      string // Build version, used to determine dev mode
	OverridePath string // Set at compile time if needed
	// EnvFiles are dotenv files read before the environment is applied.
	// Missing files are skipped.
	EnvFiles []string
	// Getenv reads the environment; nil means os.Getenv.
	Getenv func(string) string
}

// NewLoader creates a new Loader.
func NewLoader(version string, overridePath string) *Loader {
	return &Loader{
		Version:      version,
		OverridePath: overridePath,
		EnvFiles:     []string{".env"},
	}
}

// Load reads the configuration file, if any, and applies environment
// overrides on top of it.
func (l *Loader) Load() (*Config, error) {
	cfg, err := l.loadFile()
	if err != nil {
		return nil, err
	}
	if err := l.loadEnvFiles(); err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg, l.getenv()); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (l *Loader) loadFile() (*Config, error) {
	path := l.GetConfigPath()
	if path == "" {
		return New(), nil // No config file found, return defaults
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// loadEnvFiles exports the dotenv files into the process environment
// without replacing variables that are already set.
func (l *Loader) loadEnvFiles() error {
	for _, name := range l.EnvFiles {
		if _, err := os.Stat(name); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(name); err != nil {
			return fmt.Errorf("load %s: %w", name, err)
		}
	}
	return nil
}

func (l *Loader) getenv() func(string) string {
	if l.Getenv != nil {
		return l.Getenv
	}
	return os.Getenv
}

// ApplyEnv overrides cfg with the DEFECTMARK_* variables read through
// getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	if v := getenv(EnvMaxImages); v != "" {
		n, err := positiveInt(EnvMaxImages, v)
		if err != nil {
			return err
		}
		cfg.Editor.MaxImages = n
	}
	if v := getenv(EnvColor); v != "" {
		c, err := colorutil.Parse(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvColor, err)
		}
		cfg.Editor.Color = c
	}
	if v := getenv(EnvBackground); v != "" {
		c, err := colorutil.Parse(v)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvBackground, err)
		}
		cfg.Editor.Background = c
	}
	if v := getenv(EnvRemover); v != "" {
		cfg.Editor.Remover = v
	}
	if v := getenv(EnvTheme); v != "" {
		cfg.Theme = v
	}
	if v := getenv(EnvSaveDir); v != "" {
		cfg.SaveDir = v
	}
	return nil
}

// GetConfigPath returns the path to the configuration file, or empty string if not found.
func (l *Loader) GetConfigPath() string {
	// 1. Variable override path
	if l.OverridePath != "" {
		if _, err := os.Stat(l.OverridePath); err == nil {
			return l.OverridePath
		}
	}

	// 2. Local run directory (dev mode)
	if l.Version == "dev" {
		wd, _ := os.Getwd()
		localPath := filepath.Join(wd, ".defectmarkrc")
		if _, err := os.Stat(localPath); err == nil {
			return localPath
		}
	}

	// 3. XDG Config Path
	if xdgPath := DefaultPath(); xdgPath != "" {
		if _, err := os.Stat(xdgPath); err == nil {
			return xdgPath
		}
	}

	return ""
}

// DefaultPath is where a new configuration file is saved.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "defectmark", "config.rc")
}

// Save writes cfg to the file it was loaded from, or to DefaultPath, and
// returns the path written.
func (l *Loader) Save(cfg *Config) (string, error) {
	path := l.GetConfigPath()
	if path == "" {
		path = DefaultPath()
	}
	if path == "" {
		return "", fmt.Errorf("no configuration directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(cfg.String()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return path, nil
}
