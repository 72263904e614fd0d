package services

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
	"golang.org/x/time/rate"
)

// DefaultTempoInterval is the minimum spacing between primary provider calls.
const DefaultTempoInterval = time.Second

// RecordingSearcher maps a track onto a MusicBrainz recording id.
type RecordingSearcher interface {
	SearchRecording(ctx context.Context, track models.Track) (string, error)
}

// RecordingTempo reads a tempo keyed by a recording id.
type RecordingTempo interface {
	Name() string
	Source() models.TempoSource
	RecordingBPM(ctx context.Context, mbid string) (int, error)
}

// TempoClientOptions wires the provider chain.
//
// Recording sources are consulted in order once Searcher resolves a recording id.
type TempoClientOptions struct {
	Primary   TempoProvider
	Interval  time.Duration
	Searcher  RecordingSearcher
	Recording []RecordingTempo
	Logger    *log.Logger
}

// TempoClient looks up a track's tempo through a rate-limited primary provider with recording-keyed fallbacks.
//
// It is safe for concurrent use; the primary limiter is shared by every caller.
type TempoClient struct {
	primary   TempoProvider
	limiter   *rate.Limiter
	searcher  RecordingSearcher
	recording []RecordingTempo
	logger    *log.Logger
}

// NewTempoClient creates a tempo client from opts.
func NewTempoClient(opts TempoClientOptions) *TempoClient {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultTempoInterval
	}
	return &TempoClient{
		primary:   opts.Primary,
		limiter:   rate.NewLimiter(rate.Every(interval), 1),
		searcher:  opts.Searcher,
		recording: opts.Recording,
		logger:    shared.ComponentLogger(opts.Logger, "tempo"),
	}
}

// LookupBPM returns the track's tempo or an absent result. It never returns an error:
// provider failures are logged and treated as missing data, and non-positive tempos are discarded.
func (c *TempoClient) LookupBPM(ctx context.Context, track models.Track) models.TempoLookupResult {
	none := models.NewTempoResult(track.ID, 0, models.SourceNone)

	if c.primary != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			c.logger.Debug("tempo lookup cancelled", "track", track.ID, "error", err)
			return none
		}

		bpm, err := c.primary.BPM(WithRequestLimiter(ctx, c.limiter), track)
		switch {
		case err != nil:
			c.logger.Warn("primary tempo lookup failed", "provider", c.primary.Name(), "track", track.ID, "error", err)
		case bpm > 0:
			return models.NewTempoResult(track.ID, bpm, c.primary.Source())
		default:
			c.logger.Debug("primary provider has no tempo", "provider", c.primary.Name(), "track", track.ID)
		}
	}

	if ctx.Err() != nil || c.searcher == nil {
		return none
	}

	mbid, err := c.searcher.SearchRecording(ctx, track)
	if err != nil {
		c.logger.Warn("recording search failed", "track", track.ID, "title", track.Title, "error", err)
		return none
	}
	if mbid == "" {
		c.logger.Debug("no recording candidate", "track", track.ID, "title", track.Title, "artist", track.ArtistName)
		return none
	}

	for _, src := range c.recording {
		if ctx.Err() != nil {
			return none
		}

		bpm, err := src.RecordingBPM(ctx, mbid)
		if err != nil {
			c.logger.Warn("recording tempo lookup failed", "provider", src.Name(), "mbid", mbid, "error", err)
			continue
		}
		if bpm > 0 {
			return models.NewTempoResult(track.ID, bpm, src.Source())
		}
	}

	return none
}
