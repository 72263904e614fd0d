package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
)

const trackURIPrefix = "spotify:track:"

// PlayerOAuthConfig returns the authorization code config for playback control.
func PlayerOAuthConfig(clientID, clientSecret, redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  spotifyauth.AuthURL,
			TokenURL: spotifyauth.TokenURL,
		},
		Scopes: []string{
			spotifyauth.ScopeUserReadPlaybackState,
			spotifyauth.ScopeUserModifyPlaybackState,
		},
	}
}

// NewUserClient builds a user-authorized Spotify client from a stored refresh token.
//
// The [oauth2.Client] exchanges the refresh token for an access token on first use and refreshes it when it expires.
func NewUserClient(ctx context.Context, clientID, clientSecret, refreshToken string, logger *log.Logger) (*spotify.Client, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: spotify refresh_token is required for playback", shared.ErrMissingCredentials)
	}
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	conf := PlayerOAuthConfig(clientID, clientSecret, "")
	httpClient := conf.Client(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return spotify.New(NewRetryClient(httpClient, logger)), nil
}

// SpotifyPlayer drives a Spotify Connect device.
type SpotifyPlayer struct {
	client   *spotify.Client
	deviceID string
	logger   *log.Logger
}

// NewSpotifyPlayer creates a player; an empty deviceID targets the user's active device.
func NewSpotifyPlayer(client *spotify.Client, deviceID string, logger *log.Logger) *SpotifyPlayer {
	return &SpotifyPlayer{
		client:   client,
		deviceID: deviceID,
		logger:   shared.ComponentLogger(logger, "player"),
	}
}

func (p *SpotifyPlayer) options() *spotify.PlayOptions {
	opts := &spotify.PlayOptions{}
	if p.deviceID != "" {
		id := spotify.ID(p.deviceID)
		opts.DeviceID = &id
	}
	return opts
}

// Play starts playback of a single track URI.
func (p *SpotifyPlayer) Play(ctx context.Context, uri string) error {
	opts := p.options()
	opts.URIs = []spotify.URI{spotify.URI(uri)}
	if err := p.client.PlayOpt(ctx, opts); err != nil {
		return fmt.Errorf("%w: play %s: %v", shared.ErrPlayerCommand, uri, err)
	}
	p.logger.Debug("play", "uri", uri)
	return nil
}

// PlayContext starts playback of an album or playlist context URI.
func (p *SpotifyPlayer) PlayContext(ctx context.Context, uri string) error {
	opts := p.options()
	contextURI := spotify.URI(uri)
	opts.PlaybackContext = &contextURI
	if err := p.client.PlayOpt(ctx, opts); err != nil {
		return fmt.Errorf("%w: play context %s: %v", shared.ErrPlayerCommand, uri, err)
	}
	p.logger.Debug("play context", "uri", uri)
	return nil
}

// Queue appends a track URI to the device's play queue.
func (p *SpotifyPlayer) Queue(ctx context.Context, uri string) error {
	id, ok := strings.CutPrefix(uri, trackURIPrefix)
	if !ok || id == "" {
		return fmt.Errorf("%w: cannot queue %q", shared.ErrInvalidArgument, uri)
	}
	if err := p.client.QueueSongOpt(ctx, spotify.ID(id), p.options()); err != nil {
		return fmt.Errorf("%w: queue %s: %v", shared.ErrPlayerCommand, uri, err)
	}
	return nil
}

// Pause pauses playback.
func (p *SpotifyPlayer) Pause(ctx context.Context) error {
	if err := p.client.PauseOpt(ctx, p.options()); err != nil {
		return fmt.Errorf("%w: pause: %v", shared.ErrPlayerCommand, err)
	}
	return nil
}

// Resume resumes playback of the current context.
func (p *SpotifyPlayer) Resume(ctx context.Context) error {
	if err := p.client.PlayOpt(ctx, p.options()); err != nil {
		return fmt.Errorf("%w: resume: %v", shared.ErrPlayerCommand, err)
	}
	return nil
}

// SeekTo moves the playhead of the current track.
func (p *SpotifyPlayer) SeekTo(ctx context.Context, positionMs int) error {
	if positionMs < 0 {
		return fmt.Errorf("%w: negative seek position %d", shared.ErrInvalidArgument, positionMs)
	}
	if err := p.client.SeekOpt(ctx, positionMs, p.options()); err != nil {
		return fmt.Errorf("%w: seek: %v", shared.ErrPlayerCommand, err)
	}
	return nil
}

// State returns the current playback snapshot; a nil track means nothing is loaded.
func (p *SpotifyPlayer) State(ctx context.Context) (*models.PlayerState, error) {
	state, err := p.client.PlayerState(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: state: %v", shared.ErrPlayerCommand, err)
	}
	if state == nil {
		return &models.PlayerState{IsPaused: true}, nil
	}

	snapshot := &models.PlayerState{
		IsPaused:   !state.Playing,
		PositionMs: int(state.Progress),
	}
	if state.Item != nil {
		t := trackFromSpotify(state.Item)
		snapshot.Track = &t
		snapshot.DurationMs = int(state.Item.Duration)
	}
	return snapshot, nil
}

// Close releases the player. The Spotify client holds no persistent connection.
func (p *SpotifyPlayer) Close() error {
	p.logger.Debug("player released")
	return nil
}
