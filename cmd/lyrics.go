package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/desertthunder/lyricsify/internal/formatter"
	"github.com/desertthunder/lyricsify/internal/models"
	"github.com/desertthunder/lyricsify/internal/services"
	"github.com/desertthunder/lyricsify/internal/shared"
	"github.com/urfave/cli/v3"
)

// LyricsGet looks up lyrics by artist and title through the cache and archive.
func (r *Runner) LyricsGet(ctx context.Context, cmd *cli.Command) error {
	artist := strings.TrimSpace(cmd.String("artist"))
	title := strings.TrimSpace(cmd.String("title"))
	if artist == "" || title == "" {
		return fmt.Errorf("%w: --artist and --title are required", shared.ErrMissingArgument)
	}

	track := models.Track{
		ID:      queryTrackID(artist, title),
		Name:    title,
		Artists: []string{artist},
	}
	return r.printLyrics(ctx, cmd, track)
}

// LyricsNow looks up lyrics for whatever Spotify is playing.
func (r *Runner) LyricsNow(ctx context.Context, cmd *cli.Command) error {
	playback := r.playback
	if playback == nil {
		svc, _, authenticated, err := r.session(ctx)
		if err != nil {
			return err
		}
		if !authenticated {
			return fmt.Errorf("%w: run 'lyricsify auth login'", shared.ErrNotAuthenticated)
		}
		playback = svc
	}

	track, err := playback.CurrentlyPlaying(ctx)
	if err != nil {
		return err
	}
	if track == nil {
		return r.writePlain("Nothing is playing\n")
	}

	return r.printLyrics(ctx, cmd, *track)
}

func (r *Runner) printLyrics(ctx context.Context, cmd *cli.Command, track models.Track) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	fetcher, err := r.fetcher(ctx)
	if err != nil {
		return err
	}

	text, err := fetcher.GetLyrics(ctx, track)
	if err != nil {
		return err
	}

	lyrics := models.Lyrics{Track: track, Text: text, Provider: providerName(r.lyrics)}
	data, err := formatter.FormatLyrics(lyrics, format)
	if err != nil {
		return err
	}

	return r.writeOutput(cmd.String("output"), data)
}

// queryTrackID keys manual lookups in the archive so they never collide with Spotify IDs.
func queryTrackID(artist, title string) string {
	return "query:" + strings.ToLower(artist) + "|" + strings.ToLower(title)
}

func providerName(p services.LyricsProvider) string {
	if p == nil {
		return ""
	}
	return p.Name()
}
