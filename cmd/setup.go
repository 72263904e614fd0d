package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/cadence/internal/services"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultAuthTimeout = 3 * time.Minute

// loadOrCreateConfig reads the config at path, creating it from the embedded template when missing.
func (r *Runner) loadOrCreateConfig(path string) *shared.Config {
	if _, err := os.Stat(path); err != nil {
		r.logger.Info("config file not found, creating from template", "path", path)
		if err := shared.CreateConfigFile(path); err != nil {
			r.logger.Warn("failed to create config file, using defaults", "error", err)
			return shared.DefaultConfig()
		}
		r.logger.Info("config file created", "path", path)
	}

	config, err := shared.LoadConfig(path)
	if err != nil {
		r.logger.Warn("failed to load config, using defaults", "error", err)
		return shared.DefaultConfig()
	}
	return config
}

// Setup creates the config file if needed, initializes the database and runs migrations.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))

	r.logger.Info("initializing database", "path", config.Database.Path)

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	defer db.Close()

	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	r.logger.Info("running database migrations")
	if err := shared.RunMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	versions, err := shared.AppliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read migration state: %w", err)
	}

	r.writePlain("%s Database ready: %s (migrations %v)\n", r.palette.OK("✓"), config.Database.Path, versions)
	if config.Credentials.Spotify.RefreshToken == "" {
		r.writePlain("%s\n", r.palette.Help("Next: add Spotify credentials to config.toml, then run `cadence auth`"))
	}
	return nil
}

// SetupRollback reverts the most recently applied migration.
func (r *Runner) SetupRollback(ctx context.Context, cmd *cli.Command) error {
	config := r.loadOrCreateConfig(cmd.String("config"))

	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	if err := shared.RollbackMigration(db); err != nil {
		return fmt.Errorf("failed to roll back migration: %w", err)
	}

	versions, err := shared.AppliedVersions(db)
	if err != nil {
		return fmt.Errorf("failed to read migration state: %w", err)
	}

	return r.writePlain("%s Rolled back, applied migrations: %v\n", r.palette.OK("✓"), versions)
}

// Auth runs the Spotify authorization code flow and stores the refresh token in the config file.
func (r *Runner) Auth(ctx context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	config := r.loadOrCreateConfig(path)
	creds := config.Credentials.Spotify

	if creds.ClientID == "" || creds.ClientSecret == "" {
		return fmt.Errorf("%w: set credentials.spotify.client_id and client_secret in %s", shared.ErrMissingCredentials, path)
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()

	oauthConf := services.PlayerOAuthConfig(creds.ClientID, creds.ClientSecret, creds.RedirectURI)
	open := func(authURL string) {
		if !cmd.Bool("no-browser") {
			r.writePlain("→ Opening browser for Spotify authorization...\n")
			err := r.openBrowser(authURL)
			if err == nil {
				r.writePlain("%s\n", r.palette.Help("Waiting for the browser callback..."))
				return
			}
			r.logger.Warn("failed to open browser automatically", "error", err)
			r.writePlainln("%s Could not open browser automatically.", r.palette.Warn("⚠"))
		}
		r.writePlain("Open this URL to authorize playback control:\n\n  %s\n\n", authURL)
		r.writePlain("%s\n", r.palette.Help("Waiting for the browser callback..."))
	}

	token, err := r.authorize(ctx, oauthConf, open, r.logger)
	if err != nil {
		return err
	}
	if token.RefreshToken == "" {
		return fmt.Errorf("%w: no refresh token returned", shared.ErrAuthFailed)
	}

	config.Credentials.Spotify.RefreshToken = token.RefreshToken
	if err := shared.SaveConfig(path, config); err != nil {
		return err
	}

	r.logger.Info("refresh token saved", "path", path)
	return r.writePlain("%s Playback authorized, refresh token saved to %s\n", r.palette.OK("✓"), path)
}
