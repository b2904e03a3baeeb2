package main

import (
	"context"

	"github.com/desertthunder/lyricsify/internal/repositories"
	"github.com/urfave/cli/v3"
)

// ArchiveStats is the payload of `cache stats`.
type ArchiveStats struct {
	SQLite  int  `json:"sqlite"`
	Redis   *int `json:"redis,omitempty"`
	History int  `json:"history"`
}

// CacheStats reports how many lyrics are archived and how many plays are recorded.
func (r *Runner) CacheStats(ctx context.Context, cmd *cli.Command) error {
	chain, err := r.archive(ctx)
	if err != nil {
		return err
	}

	var stats ArchiveStats
	for _, store := range chain {
		n, err := store.Count(ctx)
		if err != nil {
			return err
		}
		switch store.(type) {
		case *repositories.RedisLyricsArchive:
			stats.Redis = &n
		default:
			stats.SQLite = n
		}
	}

	if stats.History, err = repositories.NewHistoryRepository(r.db).Count(ctx); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(stats, true)
	}

	r.writePlainHeader("Lyrics archive")
	r.writePlain("SQLite entries: %d\n", stats.SQLite)
	if stats.Redis != nil {
		r.writePlain("Redis entries:  %d\n", *stats.Redis)
	}
	r.writePlain("Plays recorded: %d\n", stats.History)
	return nil
}

// CacheClear deletes every archived lyrics entry. Play history is kept.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	chain, err := r.archive(ctx)
	if err != nil {
		return err
	}

	removed, err := chain.Clear(ctx)
	if err != nil {
		return err
	}

	r.logger.Info("cleared lyrics archive", "removed", removed)
	return r.writePlain("✓ Removed %d archived lyrics\n", removed)
}
