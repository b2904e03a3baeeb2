package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/lyricsify/internal/repositories"
	"github.com/desertthunder/lyricsify/internal/shared"
	"github.com/urfave/cli/v3"
)

// AuthLogin runs the browser authorization flow and stores the token.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	svc, tokens, authenticated, err := r.session(ctx)
	if err != nil {
		return err
	}
	if authenticated {
		r.logger.Info("replacing existing spotify session")
	}

	if err := r.login(ctx, svc, tokens, r.output, r.logger); err != nil {
		return err
	}

	r.logger.Info("authentication successful")
	return r.writePlain("✓ Spotify connected\n")
}

// AuthLogout removes the stored token.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	if err := repositories.NewTokenRepository(db).Clear(ctx); err != nil {
		return err
	}

	return r.writePlain("✓ Spotify token removed\n")
}

// AuthStatus reports whether a token is stored and, with --verify, whether Spotify still accepts it.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	db, err := r.database()
	if err != nil {
		return err
	}

	tokens := repositories.NewTokenRepository(db)
	token, err := tokens.Get(ctx)
	if errors.Is(err, shared.ErrNotAuthenticated) {
		return r.writePlain("✗ Not authenticated\nRun 'lyricsify auth login' to connect Spotify\n")
	}
	if err != nil {
		return err
	}

	r.writePlainHeader("Spotify session")
	r.writePlain("Refresh token: %v\n", token.RefreshToken != "")
	if token.Expiry.IsZero() {
		r.writePlain("Expires:       never\n")
	} else {
		r.writePlain("Expires:       %s (%s)\n", token.Expiry.Local().Format(time.RFC1123), expiresIn(token.Expiry))
	}

	if !cmd.Bool("verify") {
		return nil
	}

	svc, err := r.spotify(tokens)
	if err != nil {
		return err
	}
	if !r.restoreSession(ctx, svc, tokens) {
		return fmt.Errorf("%w: run 'lyricsify auth login'", shared.ErrNotAuthenticated)
	}
	if _, err := svc.CurrentlyPlaying(ctx); err != nil {
		return fmt.Errorf("spotify rejected the session: %w", err)
	}

	return r.writePlain("✓ Token accepted by Spotify\n")
}

func expiresIn(expiry time.Time) string {
	d := time.Until(expiry).Round(time.Second)
	if d <= 0 {
		return "expired, refreshes on next use"
	}
	return "in " + d.String()
}
