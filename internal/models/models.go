package models

import (
	"fmt"
	"strings"
	"time"
)

// Track identifies the currently playing item.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []string `json:"artists"`
	DurationMS int      `json:"duration_ms"`
}

// Same reports whether t and other refer to the same playable item.
// A nil track only equals another nil track.
func (t *Track) Same(other *Track) bool {
	if t == nil || other == nil {
		return t == other
	}
	return t.ID == other.ID
}

// PrimaryArtist returns the first credited artist, or "" when none are listed.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0]
}

// ArtistLine joins all credited artists with commas.
func (t Track) ArtistLine() string {
	return strings.Join(t.Artists, ", ")
}

// Display returns "Artist – Title", or just the title when no artist is known.
func (t Track) Display() string {
	if artist := t.ArtistLine(); artist != "" {
		return fmt.Sprintf("%s – %s", artist, t.Name)
	}
	return t.Name
}

// Duration returns the track length.
func (t Track) Duration() time.Duration {
	return time.Duration(t.DurationMS) * time.Millisecond
}

// PlayedTrack is a row in the play history.
type PlayedTrack struct {
	ID       string    `json:"id"`
	Track    Track     `json:"track"`
	PlayedAt time.Time `json:"played_at"`
}

// Lyrics is a lookup result for a track. Text is nil when the provider has none.
type Lyrics struct {
	Track    Track   `json:"track"`
	Text     *string `json:"lyrics"`
	Provider string  `json:"provider,omitempty"`
}

// Found reports whether lyrics text is present.
func (l Lyrics) Found() bool { return l.Text != nil }
