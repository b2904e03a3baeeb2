// Package prefs persists the overlay's runtime state: window position, visibility and poll cadence.
//
// The state file is a small JSON document. A missing, empty or corrupt file is never an error:
// [Load] falls back to [Default] so startup always proceeds.
package prefs

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/shared"
)

const (
	DefaultPollIntervalSecs = 5
	appDir                  = "lyricsify"
	stateFile               = "config.json"
)

// AppConfig is the persisted overlay state.
type AppConfig struct {
	WindowPosition   [2]float64 `json:"window_position"`
	OverlayVisible   bool       `json:"overlay_visible"`
	PollIntervalSecs uint       `json:"poll_interval_secs"`
}

// Default returns the state used on first launch.
func Default() AppConfig {
	return AppConfig{
		WindowPosition:   [2]float64{100, 100},
		OverlayVisible:   true,
		PollIntervalSecs: DefaultPollIntervalSecs,
	}
}

// PollInterval returns the poll cadence, substituting the default for zero.
func (c AppConfig) PollInterval() time.Duration {
	if c.PollIntervalSecs == 0 {
		return DefaultPollIntervalSecs * time.Second
	}
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// DefaultPath returns <user config dir>/lyricsify/config.json.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("%w: no user config directory: %v", shared.ErrMissingConfig, err)
	}
	return filepath.Join(dir, appDir, stateFile), nil
}

// Parse decodes a state document. Fields absent from data keep their defaults.
func Parse(data []byte) (AppConfig, error) {
	cfg := Default()
	if len(data) == 0 {
		return cfg, fmt.Errorf("%w: empty state file", shared.ErrInvalidConfig)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("%w: %v", shared.ErrInvalidConfig, err)
	}
	if cfg.PollIntervalSecs == 0 {
		cfg.PollIntervalSecs = DefaultPollIntervalSecs
	}
	return cfg, nil
}

// Load reads the state file at path. It never fails: problems are logged and defaults returned.
func Load(path string, logger *log.Logger) AppConfig {
	if logger == nil {
		logger = log.Default()
	}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Debug("no state file, using defaults", "path", path)
		return Default()
	}
	if err != nil {
		logger.Warn("unreadable state file, using defaults", "path", path, "error", err)
		return Default()
	}

	cfg, err := Parse(data)
	if err != nil {
		logger.Warn("invalid state file, using defaults", "path", path, "error", err)
		return Default()
	}
	return cfg
}

// Save writes cfg to path atomically (temp file + rename), creating parent directories.
func Save(path string, cfg AppConfig) error {
	data, err := shared.MarshalJSON(cfg, true)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".config-*.json")
	if err != nil {
		return fmt.Errorf("failed to create temp state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to replace state file: %w", err)
	}
	return nil
}

// Store binds Load and Save to one path. Save calls are serialized.
type Store struct {
	path   string
	logger *log.Logger
	mu     sync.Mutex
}

// NewStore creates a store for path.
func NewStore(path string, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.Default()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the state file location.
func (s *Store) Path() string { return s.path }

// Load reads the state, falling back to defaults.
func (s *Store) Load() AppConfig { return Load(s.path, s.logger) }

// Save writes the state.
func (s *Store) Save(cfg AppConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := Save(s.path, cfg); err != nil {
		return err
	}
	s.logger.Debug("state saved", "path", s.path, "visible", cfg.OverlayVisible, "position", cfg.WindowPosition)
	return nil
}
