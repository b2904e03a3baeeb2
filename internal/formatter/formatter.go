// package formatter renders lyrics and play history as plain text, Markdown, JSON or CSV
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/shared"
)

// Format selects an output rendering.
type Format string

const (
	Text     Format = "txt"
	Markdown Format = "markdown"
	JSON     Format = "json"
	CSV      Format = "csv"
)

// NoLyrics is printed in place of a body when the provider has none.
const NoLyrics = "Lyrics not available for this track"

// ParseFormat maps a user-supplied name to a [Format].
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "txt", "text", "plain":
		return Text, nil
	case "md", "markdown":
		return Markdown, nil
	case "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q (txt, markdown, json, csv)", shared.ErrInvalidArgument, name)
	}
}

// FormatLyrics renders lyrics for track. CSV is not supported for a single lyrics body.
func FormatLyrics(lyrics models.Lyrics, format Format) ([]byte, error) {
	switch format {
	case Text, "":
		return LyricsToText(lyrics), nil
	case Markdown:
		return LyricsToMarkdown(lyrics), nil
	case JSON:
		return shared.MarshalJSON(lyrics, true)
	default:
		return nil, fmt.Errorf("%w: format %s is not available for lyrics", shared.ErrInvalidArgument, format)
	}
}

// LyricsToText renders "Artist – Title", a blank line and the body.
func LyricsToText(lyrics models.Lyrics) []byte {
	var buf bytes.Buffer
	buf.WriteString(lyrics.Track.Display() + "\n\n")
	buf.WriteString(body(lyrics) + "\n")
	return buf.Bytes()
}

// LyricsToMarkdown renders a heading with artist and duration followed by the body as a quote block.
func LyricsToMarkdown(lyrics models.Lyrics) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", lyrics.Track.Name)
	if artists := lyrics.Track.ArtistLine(); artists != "" {
		fmt.Fprintf(&buf, "**Artist**: %s\n", artists)
	}
	if lyrics.Track.DurationMS > 0 {
		fmt.Fprintf(&buf, "**Duration**: %s\n", FormatDuration(lyrics.Track.Duration()))
	}
	if lyrics.Provider != "" {
		fmt.Fprintf(&buf, "**Source**: %s\n", lyrics.Provider)
	}
	buf.WriteString("\n")

	if !lyrics.Found() {
		fmt.Fprintf(&buf, "_%s_\n", NoLyrics)
		return buf.Bytes()
	}

	for _, line := range strings.Split(*lyrics.Text, "\n") {
		if line == "" {
			buf.WriteString(">\n")
			continue
		}
		fmt.Fprintf(&buf, "> %s\n", line)
	}
	return buf.Bytes()
}

// FormatHistory renders play history entries, newest first as given.
func FormatHistory(entries []models.PlayedTrack, format Format) ([]byte, error) {
	switch format {
	case Text, "":
		return HistoryToText(entries), nil
	case Markdown:
		return HistoryToMarkdown(entries), nil
	case JSON:
		return shared.MarshalJSON(entries, true)
	case CSV:
		return HistoryToCSV(entries)
	default:
		return nil, fmt.Errorf("%w: unknown format %s", shared.ErrInvalidArgument, format)
	}
}

func HistoryToText(entries []models.PlayedTrack) []byte {
	var buf bytes.Buffer
	for i, e := range entries {
		fmt.Fprintf(&buf, "%d. %s  [%s]\n", i+1, e.Track.Display(), e.PlayedAt.Local().Format(time.DateTime))
	}
	return buf.Bytes()
}

func HistoryToMarkdown(entries []models.PlayedTrack) []byte {
	var buf bytes.Buffer
	buf.WriteString("# Recently played\n\n")
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(entries))
	for i, e := range entries {
		fmt.Fprintf(&buf, "%d. %s - %s [%s] _%s_\n", i+1, e.Track.ArtistLine(), e.Track.Name,
			FormatDuration(e.Track.Duration()), e.PlayedAt.UTC().Format(time.RFC3339))
	}
	return buf.Bytes()
}

// HistoryToCSV writes columns: Played At, Track ID, Title, Artists, Duration.
func HistoryToCSV(entries []models.PlayedTrack) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Played At", "Track ID", "Title", "Artists", "Duration"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}
	for _, e := range entries {
		record := []string{
			e.PlayedAt.UTC().Format(time.RFC3339),
			e.Track.ID,
			e.Track.Name,
			e.Track.ArtistLine(),
			FormatDuration(e.Track.Duration()),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// FormatDuration renders d as m:ss, or h:mm:ss past an hour.
func FormatDuration(d time.Duration) string {
	total := int(d.Round(time.Second) / time.Second)
	h, m, s := total/3600, (total%3600)/60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// WriteFile writes data to path, creating parent directories.
func WriteFile(path string, data []byte) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func body(lyrics models.Lyrics) string {
	if !lyrics.Found() {
		return NoLyrics
	}
	return strings.TrimRight(*lyrics.Text, "\n")
}
