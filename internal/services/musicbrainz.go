package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
	"golang.org/x/time/rate"
)

const (
	musicBrainzBaseURL   = "https://musicbrainz.org/ws/2"
	musicBrainzUserAgent = "cadence/0.1.0 ( https://github.com/desertthunder/cadence )"
	recordingSearchLimit = 5
	minRecordingScore    = 0.7

	// MinTagBPM and MaxTagBPM bound plausible tempos parsed from free-text tags.
	MinTagBPM = 40
	MaxTagBPM = 250
)

var tagDigits = regexp.MustCompile(`(?:^|\D)(\d{2,3})(?:\D|$)`)

type mbArtistCredit struct {
	Name string `json:"name"`
}

// MBRecording is a MusicBrainz recording search hit.
type MBRecording struct {
	ID           string           `json:"id"`
	Score        int              `json:"score"`
	Title        string           `json:"title"`
	ArtistCredit []mbArtistCredit `json:"artist-credit"`
}

// Artist joins the credited artist names.
func (r MBRecording) Artist() string {
	names := make([]string, 0, len(r.ArtistCredit))
	for _, c := range r.ArtistCredit {
		names = append(names, c.Name)
	}
	return strings.Join(names, " ")
}

type mbSearchResponse struct {
	Recordings []MBRecording `json:"recordings"`
}

// MBTag is a folksonomy tag on a recording.
type MBTag struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

type mbRecordingResponse struct {
	ID   string  `json:"id"`
	Tags []MBTag `json:"tags"`
}

// MusicBrainz resolves recordings by artist and title and reads tempo from recording tags.
//
// Every request waits on the limiter; MusicBrainz asks anonymous clients for at most one request per second.
type MusicBrainz struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewMusicBrainz creates a MusicBrainz client spacing requests by interval.
func NewMusicBrainz(baseURL, userAgent string, interval time.Duration, client *http.Client) *MusicBrainz {
	if baseURL == "" {
		baseURL = musicBrainzBaseURL
	}
	if userAgent == "" {
		userAgent = musicBrainzUserAgent
	}
	if interval <= 0 {
		interval = time.Second
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &MusicBrainz{
		baseURL:    strings.TrimRight(baseURL, "/"),
		userAgent:  userAgent,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Every(interval), 1),
	}
}

func (m *MusicBrainz) Name() string { return "musicbrainz" }

func (m *MusicBrainz) Source() models.TempoSource { return models.SourceMusicBrainz }

func (m *MusicBrainz) get(ctx context.Context, endpoint string, result any) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	return getJSON(WithRequestLimiter(ctx, m.limiter), m.httpClient, endpoint, map[string]string{"User-Agent": m.userAgent}, result)
}

// SearchRecording finds the MusicBrainz recording id that best matches the track's artist and title.
// An empty id with a nil error means no candidate was close enough.
func (m *MusicBrainz) SearchRecording(ctx context.Context, track models.Track) (string, error) {
	title := strings.TrimSpace(track.Title)
	artist := strings.TrimSpace(track.ArtistName)
	if title == "" && artist == "" {
		return "", fmt.Errorf("%w: track has no title or artist", shared.ErrInvalidArgument)
	}

	var clauses []string
	if title != "" {
		clauses = append(clauses, fmt.Sprintf(`recording:"%s"`, luceneEscape(title)))
	}
	if artist != "" {
		clauses = append(clauses, fmt.Sprintf(`artist:"%s"`, luceneEscape(artist)))
	}

	params := url.Values{}
	params.Set("query", strings.Join(clauses, " AND "))
	params.Set("fmt", "json")
	params.Set("limit", strconv.Itoa(recordingSearchLimit))

	var resp mbSearchResponse
	if err := m.get(ctx, m.baseURL+"/recording?"+params.Encode(), &resp); err != nil {
		return "", fmt.Errorf("musicbrainz search: %w", err)
	}

	best := BestRecording(resp.Recordings, title, artist)
	if best == nil {
		return "", nil
	}
	return best.ID, nil
}

// RecordingBPM reads a tempo from the recording's tags. A recording without a tempo tag yields (0, nil).
func (m *MusicBrainz) RecordingBPM(ctx context.Context, mbid string) (int, error) {
	if mbid == "" {
		return 0, fmt.Errorf("%w: recording id is empty", shared.ErrInvalidArgument)
	}

	params := url.Values{}
	params.Set("inc", "tags")
	params.Set("fmt", "json")

	var resp mbRecordingResponse
	endpoint := fmt.Sprintf("%s/recording/%s?%s", m.baseURL, url.PathEscape(mbid), params.Encode())
	if err := m.get(ctx, endpoint, &resp); err != nil {
		if errors.Is(err, shared.ErrTrackNotFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("musicbrainz recording: %w", err)
	}

	names := make([]string, 0, len(resp.Tags))
	for _, t := range resp.Tags {
		names = append(names, t.Name)
	}
	bpm, _ := ParseTagBPM(names)
	return bpm, nil
}

// BestRecording scores candidates by normalized title and artist similarity.
//
// Without a title to compare, the first candidate (highest MusicBrainz score) is used.
func BestRecording(candidates []MBRecording, title, artist string) *MBRecording {
	if len(candidates) == 0 {
		return nil
	}
	if strings.TrimSpace(title) == "" {
		return &candidates[0]
	}

	wantTitle := shared.NormalizeSearchInput(title)
	wantArtist := shared.NormalizeSearchInput(artist)

	var best *MBRecording
	bestScore := 0.0
	for i := range candidates {
		c := &candidates[i]
		score := shared.Similarity(wantTitle, shared.NormalizeSearchInput(c.Title))
		if wantArtist != "" {
			artistScore := shared.Similarity(wantArtist, shared.NormalizeSearchInput(c.Artist()))
			score = 0.6*score + 0.4*artistScore
		}
		if score > bestScore {
			best, bestScore = c, score
		}
	}

	if bestScore < minRecordingScore {
		return nil
	}
	return best
}

// ParseTagBPM extracts a tempo from free-text tags.
//
// Tags mentioning "bpm" are tried first, then tags that are a bare 2–3 digit number.
// Values outside [MinTagBPM, MaxTagBPM] are ignored.
func ParseTagBPM(tags []string) (int, bool) {
	for _, tag := range tags {
		if !strings.Contains(strings.ToLower(tag), "bpm") {
			continue
		}
		if bpm, ok := tagNumber(tag); ok {
			return bpm, true
		}
	}

	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if len(tag) < 2 || len(tag) > 3 || !isDigits(tag) {
			continue
		}
		if bpm, ok := tagNumber(tag); ok {
			return bpm, true
		}
	}

	return 0, false
}

func tagNumber(tag string) (int, bool) {
	m := tagDigits.FindStringSubmatch(tag)
	if m == nil {
		return 0, false
	}
	bpm, err := strconv.Atoi(m[1])
	if err != nil || bpm < MinTagBPM || bpm > MaxTagBPM {
		return 0, false
	}
	return bpm, true
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func luceneEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}
