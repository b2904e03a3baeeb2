package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lyricsify/internal/cache"
	"github.com/desertthunder/lyricsify/internal/formatter"
	"github.com/desertthunder/lyricsify/internal/repositories"
	"github.com/desertthunder/lyricsify/internal/services"
	"github.com/desertthunder/lyricsify/internal/shared"
	"github.com/desertthunder/lyricsify/internal/tasks"
	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
//
// Databases, service clients and archives are opened on first use and released by [Runner.Close].
type Runner struct {
	config     *shared.Config
	httpClient *http.Client
	logger     *log.Logger
	output     io.Writer

	playback services.PlaybackProvider
	lyrics   services.LyricsProvider

	db      *sql.DB
	closers []func()
}

// RunnerOpts contains configuration options for creating a Runner.
//
// Playback and Lyrics replace the providers built from config; tests use them to avoid the network.
type RunnerOpts struct {
	Config     *shared.Config
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
	Playback   services.PlaybackProvider
	Lyrics     services.LyricsProvider
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		httpClient: opts.HTTPClient,
		logger:     opts.Logger,
		output:     opts.Output,
		playback:   opts.Playback,
		lyrics:     opts.Lyrics,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, runCommand, authCommand, lyricsCommand, historyCommand, cacheCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// Before loads the config named by --config and applies the log level.
// A config passed through [RunnerOpts] is kept as is.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if r.config == nil {
		config, err := shared.ResolveConfig(cmd.String("config"))
		if err != nil {
			return ctx, err
		}
		r.config = config
	}

	level := r.config.App.LogLevel
	if override := cmd.String("log-level"); override != "" {
		level = override
	}
	shared.SetLogLevel(r.logger, shared.ParseLogLevel(level))

	return ctx, nil
}

// Close releases everything opened on behalf of commands, newest first. Safe to call more than once.
func (r *Runner) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
	r.closers = nil
	r.db = nil
}

func (r *Runner) onClose(fn func()) {
	r.closers = append(r.closers, fn)
}

// database opens the SQLite database once and runs pending migrations.
func (r *Runner) database() (*sql.DB, error) {
	if r.db != nil {
		return r.db, nil
	}

	db, err := shared.OpenDatabase(r.config.Database)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrFatalInit, err)
	}

	r.db = db
	r.onClose(func() {
		if err := db.Close(); err != nil {
			r.logger.Warn("failed to close database", "error", err)
		}
	})
	return db, nil
}

// spotify builds the Spotify client and wires token refreshes into the token store.
func (r *Runner) spotify(tokens *repositories.TokenRepository) (*services.SpotifyService, error) {
	creds := r.config.Credentials.Spotify
	if !creds.Configured() {
		return nil, fmt.Errorf("%w: set [credentials.spotify] or SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET",
			shared.ErrMissingCredentials)
	}

	svc, err := services.NewSpotifyService(creds.Map())
	if err != nil {
		return nil, err
	}

	svc.SetLogger(shared.WithLogger(r.logger, "service", "spotify"))
	if r.httpClient != nil {
		svc.SetHTTPClient(r.httpClient)
	}
	svc.OnTokenRefresh(func(token *oauth2.Token) {
		if err := tokens.Put(context.Background(), token); err != nil {
			r.logger.Warn("failed to store refreshed token", "error", err)
			return
		}
		r.logger.Debug("stored refreshed token", "expiry", token.Expiry)
	})

	return svc, nil
}

// restoreSession installs the stored token and makes sure it is usable.
//
// It reports false when there is no token or Spotify rejected it. A network failure keeps the
// token installed so the poller can retry.
func (r *Runner) restoreSession(ctx context.Context, svc *services.SpotifyService, tokens *repositories.TokenRepository) bool {
	token, err := tokens.Get(ctx)
	if err != nil {
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			r.logger.Warn("failed to read stored token", "error", err)
		}
		r.logger.Info("no stored spotify session")
		return false
	}

	svc.SetToken(token)
	if err := svc.Validate(ctx); err != nil {
		if shared.IsAuthError(err) {
			r.logger.Warn("stored spotify session is no longer valid", "error", err)
			svc.SetToken(nil)
			return false
		}
		r.logger.Warn("could not validate spotify session", "error", err)
	}

	return true
}

// session opens the token store and the Spotify client and restores any stored token.
func (r *Runner) session(ctx context.Context) (*services.SpotifyService, *repositories.TokenRepository, bool, error) {
	db, err := r.database()
	if err != nil {
		return nil, nil, false, err
	}

	tokens := repositories.NewTokenRepository(db)
	svc, err := r.spotify(tokens)
	if err != nil {
		return nil, nil, false, err
	}

	return svc, tokens, r.restoreSession(ctx, svc, tokens), nil
}

func (r *Runner) lyricsProvider() (services.LyricsProvider, error) {
	if r.lyrics != nil {
		return r.lyrics, nil
	}

	provider, err := services.NewLyricsProvider(r.config.Lyrics, shared.WithLogger(r.logger, "service", "lyrics"))
	if err != nil {
		return nil, err
	}
	r.lyrics = provider
	return provider, nil
}

// archive returns the durable lyrics stores: SQLite always, Redis when configured and reachable.
func (r *Runner) archive(ctx context.Context) (repositories.ArchiveChain, error) {
	db, err := r.database()
	if err != nil {
		return nil, err
	}

	chain := repositories.ArchiveChain{repositories.NewLyricsArchiveRepository(db)}

	redisCfg := r.config.Cache.Redis
	if !redisCfg.Enabled() {
		return chain, nil
	}

	logger := shared.WithLogger(r.logger, "store", "redis")
	client, closeFn, err := repositories.NewRedisClient(ctx, redisCfg, logger)
	if err != nil {
		r.logger.Warn("redis archive unavailable, continuing without it", "addr", redisCfg.Addr, "error", err)
		return chain, nil
	}
	r.onClose(closeFn)

	return append(chain, repositories.NewRedisLyricsArchive(client, redisCfg.TTL(), logger)), nil
}

// fetcher assembles the lyrics fetcher from config.
func (r *Runner) fetcher(ctx context.Context) (*tasks.Fetcher, error) {
	provider, err := r.lyricsProvider()
	if err != nil {
		return nil, err
	}

	archive, err := r.archive(ctx)
	if err != nil {
		return nil, err
	}

	var limiter *rate.Limiter
	if rl := r.config.Lyrics.RateLimit; rl > 0 {
		limiter = rate.NewLimiter(rate.Limit(rl), 1)
	}

	return tasks.NewFetcher(tasks.FetcherOpts{
		Provider: provider,
		Cache:    cache.New(r.config.Lyrics.CacheCapacity),
		Archive:  archive,
		Limiter:  limiter,
		Timeout:  r.config.Lyrics.Timeout(),
		Logger:   shared.WithLogger(r.logger, "component", "fetcher"),
	}), nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}

// writeOutput sends data to path when set, otherwise to the runner's output.
func (r *Runner) writeOutput(path string, data []byte) error {
	if path == "" {
		if _, err := r.output.Write(data); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return nil
	}
	if err := formatter.WriteFile(path, data); err != nil {
		return err
	}
	r.logger.Info("wrote output", "path", path)
	return nil
}
