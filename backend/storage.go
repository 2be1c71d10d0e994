package backend

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// Settings is the persisted client configuration (threads.yaml)
type Settings struct {
	BaseURL       string `yaml:"base_url"`
	LogFile       string `yaml:"log_file"`
	LogLevel      string `yaml:"log_level"`
	ChromeProfile string `yaml:"chrome_profile"`
	ShowHelp      bool   `yaml:"show_help"`
	Mouse         bool   `yaml:"mouse"`
}

const settingsFile = "threads.yaml"

// ConfigDir is where settings, logs and the Chrome profile live by default
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".threads"
	}
	return filepath.Join(home, ".threads")
}

// SettingsPath returns the settings file inside dir
func SettingsPath(dir string) string {
	return filepath.Join(dir, settingsFile)
}

func DefaultSettings(dir string) Settings {
	return Settings{
		LogFile:       filepath.Join(dir, "threads.log"),
		LogLevel:      "info",
		ChromeProfile: filepath.Join(dir, "chrome-data"),
		ShowHelp:      true,
		Mouse:         true,
	}
}

// LoadSettings reads the settings file at path. A missing file is created with
// the defaults; fields absent from an existing file keep their defaults.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings(filepath.Dir(path))

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		if err := SaveSettings(path, s); err != nil {
			return s, err
		}
		return s, nil
	}
	if err != nil {
		return s, fmt.Errorf("failed to read settings: %w", err)
	}

	if err := yaml.Unmarshal(data, &s); err != nil {
		return DefaultSettings(filepath.Dir(path)), fmt.Errorf("failed to parse settings: %w", err)
	}
	return s, nil
}

// SaveSettings writes s to path, creating its directory
func SaveSettings(path string, s Settings) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("could not create config directory: %w", err)
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	header := []byte("# threads terminal client config\n\n")
	if err := os.WriteFile(path, append(header, data...), 0644); err != nil {
		return fmt.Errorf("failed to write settings: %w", err)
	}
	return nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger opens the diagnostic log. The terminal is owned by the UI, so
// logs always go to a file; an empty path discards them.
func NewLogger(path, level string) (zerolog.Logger, io.Closer, error) {
	if path == "" {
		return zerolog.Nop(), nopCloser{}, nil
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("could not create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return zerolog.Nop(), nil, fmt.Errorf("could not open log file: %w", err)
	}
	l := zerolog.New(f).Level(lvl).With().Timestamp().Logger()
	return l, f, nil
}
