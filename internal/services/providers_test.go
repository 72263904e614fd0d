package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSoundStat(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get("x-api-key"))
		switch r.URL.Path {
		case "/track/abc":
			_, _ = w.Write([]byte(`{"id":"abc","name":"Song","features":{"tempo":127.6}}`))
		case "/track/zero":
			_, _ = w.Write([]byte(`{"id":"zero","features":{"tempo":0}}`))
		case "/track/broken":
			w.WriteHeader(http.StatusBadGateway)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	provider := NewSoundStat(ts.URL+"/", "secret", ts.Client())

	t.Run("rounds the tempo", func(t *testing.T) {
		bpm, err := provider.BPM(context.Background(), models.Track{ID: "abc"})
		require.NoError(t, err)
		assert.Equal(t, 128, bpm)
	})

	t.Run("unknown track has no data", func(t *testing.T) {
		bpm, err := provider.BPM(context.Background(), models.Track{ID: "missing"})
		require.NoError(t, err)
		assert.Zero(t, bpm)
	})

	t.Run("zero tempo has no data", func(t *testing.T) {
		bpm, err := provider.BPM(context.Background(), models.Track{ID: "zero"})
		require.NoError(t, err)
		assert.Zero(t, bpm)
	})

	t.Run("server errors are returned", func(t *testing.T) {
		_, err := provider.BPM(context.Background(), models.Track{ID: "broken"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, shared.ErrAPIRequest))
	})

	t.Run("empty id is rejected", func(t *testing.T) {
		_, err := provider.BPM(context.Background(), models.Track{})
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
	})
}

func newMusicBrainzServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "cadence-test/1.0", r.Header.Get("User-Agent"))
		assert.Equal(t, "json", r.URL.Query().Get("fmt"))

		switch {
		case r.URL.Path == "/recording":
			q := r.URL.Query().Get("query")
			assert.Contains(t, q, `recording:"Lose Yourself"`)
			assert.Contains(t, q, `artist:"Eminem"`)
			_, _ = w.Write([]byte(`{"recordings":[
				{"id":"wrong","score":100,"title":"Lose Control","artist-credit":[{"name":"Missy Elliott"}]},
				{"id":"mb-1","score":98,"title":"Lose Yourself","artist-credit":[{"name":"Eminem"}]}
			]}`))
		case r.URL.Path == "/recording/mb-1":
			assert.Equal(t, "tags", r.URL.Query().Get("inc"))
			_, _ = w.Write([]byte(`{"id":"mb-1","tags":[{"name":"hip hop","count":3},{"name":"171 bpm","count":1}]}`))
		case r.URL.Path == "/recording/no-tags":
			_, _ = w.Write([]byte(`{"id":"no-tags","tags":[{"name":"classic","count":1}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestMusicBrainz(t *testing.T) {
	ts := newMusicBrainzServer(t)
	mb := NewMusicBrainz(ts.URL, "cadence-test/1.0", time.Millisecond, ts.Client())

	t.Run("search picks the closest recording", func(t *testing.T) {
		mbid, err := mb.SearchRecording(context.Background(), models.Track{Title: "Lose Yourself", ArtistName: "Eminem"})
		require.NoError(t, err)
		assert.Equal(t, "mb-1", mbid)
	})

	t.Run("tags yield a tempo", func(t *testing.T) {
		bpm, err := mb.RecordingBPM(context.Background(), "mb-1")
		require.NoError(t, err)
		assert.Equal(t, 171, bpm)
	})

	t.Run("recording without tempo tags", func(t *testing.T) {
		bpm, err := mb.RecordingBPM(context.Background(), "no-tags")
		require.NoError(t, err)
		assert.Zero(t, bpm)
	})

	t.Run("unknown recording", func(t *testing.T) {
		bpm, err := mb.RecordingBPM(context.Background(), "gone")
		require.NoError(t, err)
		assert.Zero(t, bpm)
	})

	t.Run("empty track is rejected", func(t *testing.T) {
		_, err := mb.SearchRecording(context.Background(), models.Track{})
		assert.ErrorIs(t, err, shared.ErrInvalidArgument)
	})
}

func TestBestRecording(t *testing.T) {
	candidates := []MBRecording{
		{ID: "a", Score: 100, Title: "Something Else", ArtistCredit: []mbArtistCredit{{Name: "Nobody"}}},
		{ID: "b", Score: 90, Title: "Stronger (Remastered)", ArtistCredit: []mbArtistCredit{{Name: "Kanye West"}}},
	}

	best := BestRecording(candidates, "Stronger", "Kanye West")
	require.NotNil(t, best)
	assert.Equal(t, "b", best.ID)

	assert.Nil(t, BestRecording(candidates, "Completely Different Title", "Unknown"))
	assert.Equal(t, "a", BestRecording(candidates, "", "Kanye West").ID)
	assert.Nil(t, BestRecording(nil, "Stronger", "Kanye West"))
}

func TestParseTagBPM(t *testing.T) {
	tests := []struct {
		name string
		tags []string
		want int
		ok   bool
	}{
		{"bpm suffix", []string{"rock", "128 bpm"}, 128, true},
		{"bpm prefix", []string{"BPM: 95"}, 95, true},
		{"joined", []string{"174bpm"}, 174, true},
		{"bpm tag preferred over bare number", []string{"90", "bpm 120"}, 120, true},
		{"bare number", []string{"dance", "124"}, 124, true},
		{"out of range bpm tag", []string{"20 bpm", "300 bpm"}, 0, false},
		{"out of range bare number", []string{"999"}, 0, false},
		{"year is not a tempo", []string{"1999"}, 0, false},
		{"four digit bpm run", []string{"1280 bpm"}, 0, false},
		{"no numbers", []string{"chill", "summer"}, 0, false},
		{"empty", nil, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseTagBPM(tt.tags)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAcousticBrainz(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/mb-1/low-level"):
			_, _ = w.Write([]byte(`{"rhythm":{"bpm":143.7,"beats_count":400}}`))
		case strings.HasSuffix(r.URL.Path, "/empty/low-level"):
			_, _ = w.Write([]byte(`{"rhythm":{}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer ts.Close()

	assert.Nil(t, NewAcousticBrainz("", "", nil), "empty base url disables the provider")

	ab := NewAcousticBrainz(ts.URL, "cadence-test/1.0", ts.Client())

	bpm, err := ab.RecordingBPM(context.Background(), "mb-1")
	require.NoError(t, err)
	assert.Equal(t, 144, bpm)

	bpm, err = ab.RecordingBPM(context.Background(), "empty")
	require.NoError(t, err)
	assert.Zero(t, bpm)

	bpm, err = ab.RecordingBPM(context.Background(), "unknown")
	require.NoError(t, err)
	assert.Zero(t, bpm)
}
