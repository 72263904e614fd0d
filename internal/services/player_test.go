package services

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/desertthunder/cadence/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  map[string]string
	Body   map[string]any
}

type playerServer struct {
	mu       sync.Mutex
	requests []recordedRequest
	status   int
	state    string
}

func (s *playerServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{Method: r.Method, Path: r.URL.Path, Query: map[string]string{}}
	for k := range r.URL.Query() {
		rec.Query[k] = r.URL.Query().Get(k)
	}
	if body, _ := io.ReadAll(r.Body); len(body) > 0 {
		_ = json.Unmarshal(body, &rec.Body)
	}

	s.mu.Lock()
	s.requests = append(s.requests, rec)
	status, state := s.status, s.state
	s.mu.Unlock()

	if r.Method == http.MethodGet && r.URL.Path == "/me/player" {
		if state == "" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		_, _ = w.Write([]byte(state))
		return
	}

	if status != 0 {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"status":404,"message":"Device not found"}}`))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *playerServer) last() recordedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func newTestPlayer(t *testing.T, deviceID string) (*SpotifyPlayer, *playerServer) {
	t.Helper()
	srv := &playerServer{}
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	client := spotify.New(http.DefaultClient, spotify.WithBaseURL(ts.URL+"/"))
	return NewSpotifyPlayer(client, deviceID, nil), srv
}

func TestSpotifyPlayer(t *testing.T) {
	ctx := context.Background()

	t.Run("Play sends the track uri to the device", func(t *testing.T) {
		p, srv := newTestPlayer(t, "device-1")

		require.NoError(t, p.Play(ctx, "spotify:track:abc"))

		req := srv.last()
		assert.Equal(t, http.MethodPut, req.Method)
		assert.Equal(t, "/me/player/play", req.Path)
		assert.Equal(t, "device-1", req.Query["device_id"])
		assert.Equal(t, []any{"spotify:track:abc"}, req.Body["uris"])
	})

	t.Run("PlayContext sends the context uri", func(t *testing.T) {
		p, srv := newTestPlayer(t, "")

		require.NoError(t, p.PlayContext(ctx, "spotify:playlist:xyz"))

		req := srv.last()
		assert.Equal(t, "/me/player/play", req.Path)
		assert.Equal(t, "spotify:playlist:xyz", req.Body["context_uri"])
		assert.NotContains(t, req.Query, "device_id")
	})

	t.Run("Queue posts the track uri", func(t *testing.T) {
		p, srv := newTestPlayer(t, "")

		require.NoError(t, p.Queue(ctx, "spotify:track:abc"))

		req := srv.last()
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Equal(t, "/me/player/queue", req.Path)
		assert.Equal(t, "spotify:track:abc", req.Query["uri"])
	})

	t.Run("Queue rejects non-track uris", func(t *testing.T) {
		p, _ := newTestPlayer(t, "")
		assert.ErrorIs(t, p.Queue(ctx, "spotify:playlist:xyz"), shared.ErrInvalidArgument)
	})

	t.Run("Pause, Resume and SeekTo", func(t *testing.T) {
		p, srv := newTestPlayer(t, "")

		require.NoError(t, p.Pause(ctx))
		assert.Equal(t, "/me/player/pause", srv.last().Path)

		require.NoError(t, p.Resume(ctx))
		assert.Equal(t, "/me/player/play", srv.last().Path)

		require.NoError(t, p.SeekTo(ctx, 30000))
		assert.Equal(t, "/me/player/seek", srv.last().Path)
		assert.Equal(t, "30000", srv.last().Query["position_ms"])

		assert.ErrorIs(t, p.SeekTo(ctx, -1), shared.ErrInvalidArgument)
	})

	t.Run("command failures wrap ErrPlayerCommand", func(t *testing.T) {
		p, srv := newTestPlayer(t, "gone")
		srv.status = http.StatusNotFound

		err := p.Play(ctx, "spotify:track:abc")
		assert.ErrorIs(t, err, shared.ErrPlayerCommand)
	})

	t.Run("State maps the playback snapshot", func(t *testing.T) {
		p, srv := newTestPlayer(t, "")
		srv.state = `{
			"is_playing": false,
			"progress_ms": 199000,
			"item": {
				"id": "abc", "name": "Song", "uri": "spotify:track:abc", "duration_ms": 200000,
				"artists": [{"name": "Artist"}], "album": {"name": "Album", "album_type": "album"}
			}
		}`

		state, err := p.State(ctx)
		require.NoError(t, err)
		require.True(t, state.HasTrack())
		assert.True(t, state.IsPaused)
		assert.Equal(t, 199000, state.PositionMs)
		assert.Equal(t, 200000, state.DurationMs)
		assert.Equal(t, "abc", state.Track.ID)
		assert.Equal(t, "Artist", state.Track.ArtistName)
	})

	t.Run("State without an active device", func(t *testing.T) {
		p, _ := newTestPlayer(t, "")

		state, err := p.State(ctx)
		require.NoError(t, err)
		assert.False(t, state.HasTrack())
	})
}

func TestPlayerAuthorization(t *testing.T) {
	t.Run("oauth config requests playback scopes", func(t *testing.T) {
		conf := PlayerOAuthConfig("id", "secret", "http://127.0.0.1:3000/callback")
		assert.Equal(t, "http://127.0.0.1:3000/callback", conf.RedirectURL)
		assert.Contains(t, conf.Scopes, "user-modify-playback-state")
		assert.Contains(t, conf.Scopes, "user-read-playback-state")
	})

	t.Run("user client requires a refresh token", func(t *testing.T) {
		_, err := NewUserClient(context.Background(), "id", "secret", "", nil)
		assert.ErrorIs(t, err, shared.ErrMissingCredentials)

		_, err = NewUserClient(context.Background(), "", "", "refresh", nil)
		assert.ErrorIs(t, err, shared.ErrMissingCredentials)
	})

	t.Run("user client builds with credentials", func(t *testing.T) {
		client, err := NewUserClient(context.Background(), "id", "secret", "refresh", nil)
		require.NoError(t, err)
		assert.NotNil(t, client)
	})
}
