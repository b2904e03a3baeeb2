package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/lyricsify/internal/formatter"
	"github.com/desertthunder/lyricsify/internal/repositories"
	"github.com/desertthunder/lyricsify/internal/shared"
	"github.com/urfave/cli/v3"
)

// History prints the most recently displayed tracks, newest first.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	limit := int(cmd.Int("limit"))
	if limit <= 0 {
		return fmt.Errorf("%w: --limit must be positive", shared.ErrInvalidArgument)
	}

	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}

	db, err := r.database()
	if err != nil {
		return err
	}

	entries, err := repositories.NewHistoryRepository(db).Recent(ctx, limit)
	if err != nil {
		return err
	}

	data, err := formatter.FormatHistory(entries, format)
	if err != nil {
		return err
	}
	return r.writeOutput("", data)
}
