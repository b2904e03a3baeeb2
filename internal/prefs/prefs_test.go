package prefs

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/shared"
	tu "github.com/desertthunder/lyricsify/internal/testing"
)

func TestAppConfig(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		cfg := Default()
		if cfg.WindowPosition != [2]float64{100, 100} || !cfg.OverlayVisible || cfg.PollIntervalSecs != 5 {
			t.Errorf("unexpected defaults %+v", cfg)
		}
		if cfg.PollInterval() != 5*time.Second {
			t.Errorf("expected 5s, got %v", cfg.PollInterval())
		}
		if (AppConfig{}).PollInterval() != 5*time.Second {
			t.Error("zero interval should fall back to 5s")
		}
	})

	t.Run("Parse", func(t *testing.T) {
		cfg, err := Parse([]byte(`{"window_position":[10.5,20],"overlay_visible":false,"poll_interval_secs":9}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.WindowPosition != [2]float64{10.5, 20} || cfg.OverlayVisible || cfg.PollIntervalSecs != 9 {
			t.Errorf("unexpected config %+v", cfg)
		}
	})

	t.Run("Parse Partial Keeps Defaults", func(t *testing.T) {
		cfg, err := Parse([]byte(`{"overlay_visible":false}`))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.WindowPosition != [2]float64{100, 100} || cfg.PollIntervalSecs != 5 {
			t.Errorf("missing fields should keep defaults, got %+v", cfg)
		}
	})

	t.Run("Parse Errors", func(t *testing.T) {
		for _, data := range []string{"", "{", `{"poll_interval_secs":-1}`, "[]"} {
			cfg, err := Parse([]byte(data))
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("%q: expected ErrInvalidConfig, got %v", data, err)
			}
			if cfg != Default() {
				t.Errorf("%q: expected defaults, got %+v", data, cfg)
			}
		}
	})
}

func TestLoadSave(t *testing.T) {
	t.Run("Missing File", func(t *testing.T) {
		cfg := Load(filepath.Join(t.TempDir(), "config.json"), nil)
		if cfg != Default() {
			t.Errorf("expected defaults, got %+v", cfg)
		}
	})

	t.Run("Empty Or Corrupt File", func(t *testing.T) {
		for _, content := range []string{"", "not json at all", `{"window_position": "left"}`} {
			path := filepath.Join(t.TempDir(), "config.json")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatalf("failed to write: %v", err)
			}

			var buf bytes.Buffer
			cfg := Load(path, shared.NewLogger(&buf))
			if cfg != Default() {
				t.Errorf("%q: expected defaults, got %+v", content, cfg)
			}
			if !strings.Contains(buf.String(), "invalid state file") {
				t.Errorf("%q: expected a warning, got %q", content, buf.String())
			}
		}
	})

	t.Run("Save Then Load", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "config.json")
		want := AppConfig{WindowPosition: [2]float64{300, 40}, OverlayVisible: false, PollIntervalSecs: 3}

		if err := Save(path, want); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		tu.AssertFileExists(t, path)

		if got := Load(path, nil); got != want {
			t.Errorf("expected %+v, got %+v", want, got)
		}

		content := tu.MustReadFile(t, path)
		for _, key := range []string{`"window_position"`, `"overlay_visible"`, `"poll_interval_secs"`} {
			if !strings.Contains(content, key) {
				t.Errorf("state file should contain %s: %s", key, content)
			}
		}

		entries, _ := os.ReadDir(filepath.Dir(path))
		if len(entries) != 1 {
			t.Errorf("temp files should not be left behind, found %d entries", len(entries))
		}
	})

	t.Run("Store", func(t *testing.T) {
		store := NewStore(filepath.Join(t.TempDir(), "config.json"), log.New(&bytes.Buffer{}))

		if store.Load() != Default() {
			t.Error("fresh store should load defaults")
		}

		cfg := Default()
		cfg.OverlayVisible = false
		if err := store.Save(cfg); err != nil {
			t.Fatalf("failed to save: %v", err)
		}
		if store.Load().OverlayVisible {
			t.Error("saved visibility should round trip")
		}
	})

	t.Run("DefaultPath", func(t *testing.T) {
		t.Setenv("XDG_CONFIG_HOME", t.TempDir())
		path, err := DefaultPath()
		if err != nil {
			t.Skipf("no user config dir: %v", err)
		}
		if !strings.HasSuffix(path, filepath.Join("lyricsify", "config.json")) {
			t.Errorf("unexpected path %s", path)
		}
	})
}
