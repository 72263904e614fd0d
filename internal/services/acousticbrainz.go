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

type abRhythm struct {
	BPM float64 `json:"bpm"`
}

type abLowLevel struct {
	Rhythm abRhythm `json:"rhythm"`
}

// AcousticBrainz reads the low-level rhythm descriptor for a MusicBrainz recording.
type AcousticBrainz struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// NewAcousticBrainz creates the provider. It returns nil when baseURL is empty, disabling the lookup.
func NewAcousticBrainz(baseURL, userAgent string, client *http.Client) *AcousticBrainz {
	if baseURL == "" {
		return nil
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &AcousticBrainz{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: client,
	}
}

func (a *AcousticBrainz) Name() string { return "acousticbrainz" }

func (a *AcousticBrainz) Source() models.TempoSource { return models.SourceAcousticBrainz }

// RecordingBPM returns the rounded rhythm.bpm value. Recordings without data yield (0, nil).
func (a *AcousticBrainz) RecordingBPM(ctx context.Context, mbid string) (int, error) {
	if mbid == "" {
		return 0, fmt.Errorf("%w: recording id is empty", shared.ErrInvalidArgument)
	}

	headers := map[string]string{}
	if a.userAgent != "" {
		headers["User-Agent"] = a.userAgent
	}

	var resp abLowLevel
	endpoint := fmt.Sprintf("%s/%s/low-level", a.baseURL, url.PathEscape(mbid))
	if err := getJSON(ctx, a.httpClient, endpoint, headers, &resp); err != nil {
		if errors.Is(err, shared.ErrTrackNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("acousticbrainz: %w", err)
	}

	if resp.Rhythm.BPM <= 0 {
		return 0, nil
	}
	return int(math.Round(resp.Rhythm.BPM)), nil
}
