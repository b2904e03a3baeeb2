package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/prefs"
	"github.com/desertthunder/lyricsify/internal/repositories"
	"github.com/desertthunder/lyricsify/internal/server"
	"github.com/desertthunder/lyricsify/internal/services"
	"github.com/desertthunder/lyricsify/internal/shared"
	"github.com/desertthunder/lyricsify/internal/tasks"
	"github.com/desertthunder/lyricsify/internal/ui"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

// Run wires the poller, fetcher and coordinator to the overlay and blocks until quit.
//
// Anything that prevents the overlay from starting is returned wrapped in [shared.ErrFatalInit].
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	headless := cmd.Bool("headless")
	logger := r.logger
	if !headless {
		logger = r.overlayLogger()
	}

	statePath, err := r.statePath(cmd.String("state"))
	if err != nil {
		return err
	}
	store := prefs.NewStore(statePath, shared.WithLogger(logger, "component", "prefs"))
	appCfg := store.Load()

	svc, tokens, authenticated, err := r.session(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFatalInit, err)
	}

	var playback services.PlaybackProvider = svc
	if r.playback != nil {
		playback = r.playback
	}

	fetcher, err := r.fetcher(ctx)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrFatalInit, err)
	}

	history := repositories.NewHistoryRepository(r.db)
	poller := tasks.NewPoller(tasks.PollerOpts{
		Provider: playback,
		Interval: appCfg.PollInterval(),
		Logger:   shared.WithLogger(logger, "component", "poller"),
	})

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	pollCtx, cancelPoll := context.WithCancel(gctx)
	defer cancelPoll()

	var coord *tasks.Coordinator
	var overlay *ui.Overlay
	var surface tasks.Surface
	loginOut := r.output

	if headless {
		surface = ui.NewLogSurface(r.output, shared.WithLogger(logger, "component", "surface"))
	} else {
		post := func(sig tasks.Signal) bool { return coord.Post(sig) }
		overlay = ui.NewOverlay(post, appCfg.WindowPosition, tea.WithAltScreen())
		surface = overlay
		loginOut = io.Discard
	}

	coord = tasks.NewCoordinator(tasks.CoordinatorOpts{
		Surface: surface,
		Lyrics:  fetcher,
		Poller:  poller,
		Authenticate: func(ctx context.Context) error {
			return r.login(ctx, svc, tokens, loginOut, logger)
		},
		History:       history,
		Store:         store,
		Config:        appCfg,
		Authenticated: authenticated,
		OnQuit: func() {
			cancelPoll()
			if overlay != nil {
				overlay.Quit()
			}
		},
		Logger: shared.WithLogger(logger, "component", "coordinator"),
	})

	logger.Info("starting", "state", store.Path(), "authenticated", authenticated, "headless", headless)

	g.Go(func() error { return poller.Run(pollCtx, coord.Emit) })
	g.Go(func() error { return coord.Run(gctx) })
	if overlay != nil {
		g.Go(func() error {
			err := overlay.Run()
			coord.Post(tasks.QuitSignal())
			if err != nil {
				return fmt.Errorf("%w: %v", shared.ErrFatalInit, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	stats := fetcher.Stats()
	logger.Info("stopped",
		"lookups", stats.Lookups, "cache_hits", stats.Cache.Hits, "archive_hits", stats.ArchiveHits)
	return nil
}

// login runs the browser authorization flow and stores the resulting token.
func (r *Runner) login(
	ctx context.Context, svc *services.SpotifyService, tokens *repositories.TokenRepository, out io.Writer, logger *log.Logger,
) error {
	flow := server.NewLoginFlow(server.LoginFlowOpts{
		Auth:   svc,
		Addr:   r.config.Server.Addr(),
		Out:    out,
		Logger: shared.WithLogger(logger, "component", "login"),
	})

	token, err := flow.Run(ctx)
	if err != nil {
		return err
	}

	if err := tokens.Put(ctx, token); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// statePath picks the overlay state file: --state, then [app] state_path, then the user config dir.
func (r *Runner) statePath(flag string) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if r.config.App.StatePath != "" {
		return r.config.App.StatePath, nil
	}

	path, err := prefs.DefaultPath()
	if err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrFatalInit, err)
	}
	return path, nil
}

// overlayLogger moves logging to [app] log_file while the overlay owns the terminal.
func (r *Runner) overlayLogger() *log.Logger {
	path := r.config.App.LogFile
	if path == "" {
		return r.logger
	}

	fileLogger, err := shared.NewFileLogger(path)
	if err != nil {
		r.logger.Warn("failed to open log file, logging to stderr", "path", path, "error", err)
		return r.logger
	}

	fileLogger.SetLevel(r.logger.GetLevel())
	return fileLogger
}
