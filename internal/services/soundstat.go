package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

const soundStatBaseURL = "https://soundstat.info/api/v1"

type soundStatFeatures struct {
	Tempo float64 `json:"tempo"`
}

// SoundStatTrack is the subset of a SoundStat track response used for tempo.
type SoundStatTrack struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Tempo    float64           `json:"tempo"`
	Features soundStatFeatures `json:"features"`
}

// BPM returns the rounded tempo, preferring the features block.
func (t SoundStatTrack) BPM() int {
	tempo := t.Features.Tempo
	if tempo <= 0 {
		tempo = t.Tempo
	}
	if tempo <= 0 {
		return 0
	}
	return int(math.Round(tempo))
}

// SoundStat looks up tempo by Spotify track id.
type SoundStat struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewSoundStat creates a SoundStat provider. An empty baseURL uses the public API.
func NewSoundStat(baseURL, apiKey string, client *http.Client) *SoundStat {
	if baseURL == "" {
		baseURL = soundStatBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &SoundStat{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: client,
	}
}

func (s *SoundStat) Name() string { return "soundstat" }

func (s *SoundStat) Source() models.TempoSource { return models.SourceSoundStat }

// BPM fetches the track's tempo. Unknown tracks yield (0, nil).
func (s *SoundStat) BPM(ctx context.Context, track models.Track) (int, error) {
	if track.ID == "" {
		return 0, fmt.Errorf("%w: track id is empty", shared.ErrInvalidArgument)
	}

	headers := map[string]string{}
	if s.apiKey != "" {
		headers["x-api-key"] = s.apiKey
	}

	var result SoundStatTrack
	endpoint := fmt.Sprintf("%s/track/%s", s.baseURL, url.PathEscape(track.ID))
	if err := getJSON(ctx, s.httpClient, endpoint, headers, &result); err != nil {
		if errors.Is(err, shared.ErrTrackNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("soundstat: %w", err)
	}

	return result.BPM(), nil
}
