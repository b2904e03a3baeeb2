// package services defines the provider interfaces the background tasks depend on
//
// Spotify (playback), lyrics.ovh and LRCLIB (lyrics)
package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/shared"
)

// PlaybackProvider reports what the user is currently listening to.
type PlaybackProvider interface {
	// CurrentlyPlaying returns the playing track, or nil when playback is paused,
	// nothing is playing, or the item is not a music track (podcast episode, ad).
	CurrentlyPlaying(ctx context.Context) (*models.Track, error)
}

// LyricsProvider looks up lyrics by artist and title.
type LyricsProvider interface {
	// Lookup returns the lyrics text. A definitive absence is reported as [shared.ErrLyricsNotFound];
	// any other error is a transport or provider failure.
	Lookup(ctx context.Context, artist, title string) (string, error)

	// Name returns the provider name (e.g., "lyrics.ovh")
	Name() string
}

// NewLyricsProvider builds the provider selected by cfg.Provider.
func NewLyricsProvider(cfg shared.LyricsConfig, logger *log.Logger) (LyricsProvider, error) {
	client := &http.Client{Timeout: cfg.Timeout()}

	switch strings.ToLower(cfg.Provider) {
	case "", "lyricsovh", "lyrics.ovh":
		return NewLyricsOvhService(cfg.BaseURL, client, logger), nil
	case "lrclib":
		base := cfg.BaseURL
		if base == "" || strings.Contains(base, "lyrics.ovh") {
			base = lrclibBaseURL
		}
		return NewLRCLibService(base, client, logger), nil
	default:
		return nil, fmt.Errorf("%w: unknown lyrics provider %q", shared.ErrInvalidConfig, cfg.Provider)
	}
}

// statusError maps a non-success HTTP status to the shared error taxonomy.
func statusError(provider string, code int) error {
	switch {
	case code == http.StatusUnauthorized:
		return fmt.Errorf("%w: %s returned status %d", shared.ErrTokenExpired, provider, code)
	case code == http.StatusForbidden:
		return fmt.Errorf("%w: %s returned status %d", shared.ErrAuthFailed, provider, code)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s returned status %d", shared.ErrServiceUnavailable, provider, code)
	default:
		return fmt.Errorf("%w: %s returned status %d", shared.ErrAPIRequest, provider, code)
	}
}

func orDefault(logger *log.Logger) *log.Logger {
	if logger == nil {
		return log.Default()
	}
	return logger
}
