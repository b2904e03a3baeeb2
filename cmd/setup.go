package main

import (
	"context"
	"fmt"
	"os"

	"github.com/desertthunder/lyricsify/internal/shared"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded template when missing, then initializes the
// database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	if _, err := os.Stat(configPath); err != nil {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
		} else {
			r.writePlain("✓ Created %s\n", configPath)
			config, err := shared.ResolveConfig(configPath)
			if err != nil {
				return err
			}
			r.config = config
		}
	}

	r.logger.Info("initializing database", "path", r.config.Database.Path)
	if _, err := r.database(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	r.writePlain("✓ Database ready: %s\n", r.config.Database.Path)
	if !r.config.Credentials.Spotify.Configured() {
		r.writePlain("\nNext steps:\n")
		r.writePlain("1. Add your Spotify client_id and client_secret to %s\n", configPath)
		r.writePlain("2. Run 'lyricsify auth login'\n")
	}
	return nil
}
