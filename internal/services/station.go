package services

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/zmb3/spotify/v2"
)

// ContextPlayer starts playback of a context URI such as a playlist.
type ContextPlayer interface {
	PlayContext(ctx context.Context, uri string) error
}

// GenreStation plays a broad genre playlist when tempo matching cannot produce a track.
type GenreStation struct {
	client *spotify.Client
	player ContextPlayer
	market string
	logger *log.Logger
}

// NewGenreStation creates a fallback station that searches playlists with client and plays them on player.
func NewGenreStation(client *spotify.Client, player ContextPlayer, market string, logger *log.Logger) *GenreStation {
	return &GenreStation{
		client: client,
		player: player,
		market: market,
		logger: shared.ComponentLogger(logger, "station"),
	}
}

// StationURI resolves the playlist URI used for a genre.
func (s *GenreStation) StationURI(ctx context.Context, genre string) (string, error) {
	query := fmt.Sprintf("%s workout", CatalogGenre(genre))

	opts := []spotify.RequestOption{spotify.Limit(5)}
	if s.market != "" {
		opts = append(opts, spotify.Market(s.market))
	}

	res, err := s.client.Search(ctx, query, spotify.SearchTypePlaylist, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: playlist search %q: %v", shared.ErrAPIRequest, query, err)
	}
	if res == nil || res.Playlists == nil {
		return "", fmt.Errorf("%w: %s", shared.ErrStationNotFound, query)
	}

	for _, p := range res.Playlists.Playlists {
		if p.URI != "" {
			return string(p.URI), nil
		}
	}
	return "", fmt.Errorf("%w: %s", shared.ErrStationNotFound, query)
}

// PlayGenre resolves and plays the genre station.
func (s *GenreStation) PlayGenre(ctx context.Context, genre string) error {
	uri, err := s.StationURI(ctx, genre)
	if err != nil {
		return err
	}

	if err := s.player.PlayContext(ctx, uri); err != nil {
		return err
	}

	s.logger.Info("playing genre station", "genre", genre, "uri", uri)
	return nil
}
