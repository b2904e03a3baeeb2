package ui

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/tasks"
)

// LogSurface is a [tasks.Surface] for headless runs: lyrics are printed to out and state
// changes are logged. While hidden, lyrics are logged but not printed.
type LogSurface struct {
	out    io.Writer
	logger *log.Logger

	mu        sync.Mutex
	visible   bool
	indicator tasks.Indicator
}

var _ tasks.Surface = (*LogSurface)(nil)

func NewLogSurface(out io.Writer, logger *log.Logger) *LogSurface {
	if logger == nil {
		logger = log.Default()
	}
	return &LogSurface{out: out, logger: logger, visible: true}
}

func (s *LogSurface) Show() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = true
	s.logger.Info("overlay shown")
}

func (s *LogSurface) Hide() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.visible = false
	s.logger.Info("overlay hidden")
}

func (s *LogSurface) SetTrack(track models.Track) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Info("now playing", "track", track.Display(), "id", track.ID)
	if s.visible {
		fmt.Fprintf(s.out, "\n♪ %s\n", track.Display())
	}
}

func (s *LogSurface) SetLyrics(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logger.Debug("lyrics updated", "bytes", len(text))
	if s.visible {
		fmt.Fprintf(s.out, "\n%s\n", text)
	}
}

// SetIndicator logs only changes so repeated publishes stay quiet.
func (s *LogSurface) SetIndicator(ind tasks.Indicator) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ind == s.indicator {
		return
	}
	s.indicator = ind

	switch {
	case !ind.Authenticated:
		s.logger.Warn("indicator", "authenticated", false, "message", ind.Message)
	case ind.Message != "":
		s.logger.Info("indicator", "message", ind.Message)
	default:
		s.logger.Debug("indicator", "authenticated", ind.Authenticated, "visible", ind.Visible)
	}
}
