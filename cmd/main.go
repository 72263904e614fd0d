package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"

	"github.com/desertthunder/cadence/internal/repositories"
	"github.com/desertthunder/cadence/internal/services"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/urfave/cli/v3"
)

const defaultConfigPath = "config.toml"

func main() {
	logger := shared.NewLogger(nil)
	ctx := context.Background()

	configPath := defaultConfigPath
	if p := os.Getenv("CADENCE_CONFIG"); p != "" {
		configPath = p
	}

	config := shared.DefaultConfig()
	if _, err := os.Stat(configPath); err == nil {
		if loadedConfig, err := shared.LoadConfig(configPath); err == nil {
			config = loadedConfig
		} else {
			logger.Warn("failed to load config, using defaults", "path", configPath, "error", err)
		}
	}
	shared.SetLogLevel(logger, shared.ParseLogLevel(config.Log.Level))

	opts := RunnerOpts{
		Config:     config,
		ConfigPath: configPath,
		Logger:     logger,
	}
	wireServices(ctx, &opts, &http.Client{Timeout: config.Tempo.Timeout()})

	if db, err := openSessionLog(config); err != nil {
		logger.Warn("session log unavailable", "path", config.Database.Path, "error", err)
	} else {
		defer db.Close()
		opts.Sessions = repositories.NewSessionLog(db)
	}

	runner := NewRunner(opts)

	app := &cli.Command{
		Name:     "cadence",
		Usage:    "Play tracks matching a target tempo",
		Version:  "0.1.0",
		Flags:    runner.globalFlags(),
		Before:   runner.before,
		Commands: runner.register(),
	}

	if err := app.Run(ctx, os.Args); err != nil {
		switch {
		case errors.Is(err, context.Canceled):
			os.Exit(0)
		case errors.Is(err, shared.ErrMissingCredentials):
			logger.Error("missing credentials, check config.toml or run `cadence auth`", "error", err)
			os.Exit(2)
		default:
			logger.Fatalf("application error: %v", err)
		}
	}
}

// wireServices builds the Spotify and tempo clients. Services whose credentials are missing stay nil
// and the commands that need them report it.
func wireServices(ctx context.Context, opts *RunnerOpts, base *http.Client) {
	config, logger := opts.Config, opts.Logger
	spotifyConf := config.Credentials.Spotify
	tempoConf := config.Tempo

	httpClient := services.NewRetryClient(base, logger)
	mb := services.NewMusicBrainz(tempoConf.MusicBrainzURL, tempoConf.UserAgent, tempoConf.MusicBrainzInterval(), httpClient)
	opts.Lookup = services.NewTempoClient(services.TempoClientOptions{
		Primary:   services.NewSoundStat(tempoConf.SoundStatURL, tempoConf.SoundStatAPIKey, httpClient),
		Interval:  tempoConf.Interval(),
		Searcher:  mb,
		Recording: recordingSources(tempoConf, mb, httpClient),
		Logger:    logger,
	})

	if client, err := services.NewSpotifyClient(ctx, spotifyConf.ClientID, spotifyConf.ClientSecret, logger); err != nil {
		logger.Debug("spotify catalog unavailable", "error", err)
	} else {
		opts.Catalog = services.NewSpotifyCatalog(client, services.CatalogOptions{
			Batches:   config.Catalog.Batches,
			BatchSize: config.Catalog.BatchSize,
			MaxOffset: config.Catalog.MaxOffset,
			Market:    spotifyConf.Market,
		}, logger)
	}

	userClient, err := services.NewUserClient(ctx, spotifyConf.ClientID, spotifyConf.ClientSecret, spotifyConf.RefreshToken, logger)
	if err != nil {
		logger.Debug("spotify player unavailable", "error", err)
		return
	}
	player := services.NewSpotifyPlayer(userClient, spotifyConf.DeviceID, logger)
	opts.Player = player
	opts.Fallback = services.NewGenreStation(userClient, player, spotifyConf.Market, logger)
}

// recordingSources lists the recording-keyed tempo sources consulted after the primary provider.
// MusicBrainz is shared with the recording search so both use one rate limiter.
func recordingSources(conf shared.TempoConfig, mb *services.MusicBrainz, client *http.Client) []services.RecordingTempo {
	sources := []services.RecordingTempo{mb}
	if conf.AcousticBrainzURL != "" {
		sources = append(sources, services.NewAcousticBrainz(conf.AcousticBrainzURL, conf.UserAgent, client))
	}
	return sources
}

// openSessionLog opens the configured database and applies pending migrations.
func openSessionLog(config *shared.Config) (*sql.DB, error) {
	db, err := shared.NewDatabase(config.Database.Path)
	if err != nil {
		return nil, err
	}
	shared.ConfigureDatabase(db, config.Database.MaxOpenConns, config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
