// Spotify Web API catalog search
//
// Response types come from github.com/zmb3/spotify/v2; see https://developer.spotify.com/documentation/web-api/reference/search
package services

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/sync/errgroup"
)

const (
	minBatches       = 3
	maxBatchSize     = 50
	defaultMaxOffset = 500
	earliestYear     = 1990
	minWindowYears   = 5
	maxWindowYears   = 15
)

// NewSpotifyClient builds an app-authorized Spotify client using the client credentials grant.
//
// Tokens are fetched lazily on the first request and refreshed by the [oauth2] transport.
func NewSpotifyClient(ctx context.Context, clientID, clientSecret string, logger *log.Logger) (*spotify.Client, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("%w: spotify client_id and client_secret are required", shared.ErrMissingCredentials)
	}

	conf := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	return spotify.New(NewRetryClient(conf.Client(ctx), logger)), nil
}

// CatalogOptions tunes how a candidate pool is sampled.
type CatalogOptions struct {
	Batches   int        // Number of search requests, at least 3
	BatchSize int        // Results per request, at most 50
	MaxOffset int        // Upper bound of the random search offset
	Market    string     // Optional ISO 3166-1 market code
	Rand      *rand.Rand // Source for offsets, windows and the final shuffle
	Now       func() time.Time
}

func (o CatalogOptions) withDefaults() CatalogOptions {
	if o.Batches < minBatches {
		o.Batches = minBatches
	}
	if o.BatchSize <= 0 || o.BatchSize > maxBatchSize {
		o.BatchSize = maxBatchSize
	}
	if o.MaxOffset < 0 {
		o.MaxOffset = 0
	} else if o.MaxOffset == 0 {
		o.MaxOffset = defaultMaxOffset
	}
	if o.Rand == nil {
		o.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}

// SpotifyCatalog assembles candidate pools from Spotify track search.
type SpotifyCatalog struct {
	client *spotify.Client
	opts   CatalogOptions
	logger *log.Logger
	mu     sync.Mutex // guards opts.Rand
}

// NewSpotifyCatalog creates a catalog backed by an authorized client.
func NewSpotifyCatalog(client *spotify.Client, opts CatalogOptions, logger *log.Logger) *SpotifyCatalog {
	return &SpotifyCatalog{
		client: client,
		opts:   opts.withDefaults(),
		logger: shared.ComponentLogger(logger, "catalog"),
	}
}

// searchBatch is one randomized page request.
type searchBatch struct {
	Query  string
	Offset int
}

// FetchCandidatePool searches the catalog for tracks in the given genre.
//
// Batches run concurrently; a failed batch is logged and skipped. The pool is deduplicated by track id
// in first-seen order, filtered for misclassified results and shuffled. Upstream failures yield an empty
// pool rather than an error.
func (c *SpotifyCatalog) FetchCandidatePool(ctx context.Context, genre string, targetBpm, toleranceBpm int) []models.Track {
	catalogGenre := CatalogGenre(genre)
	batches := c.plan(catalogGenre)

	c.logger.Debug("fetching candidate pool",
		"genre", genre, "catalog_genre", catalogGenre, "target_bpm", targetBpm, "tolerance", toleranceBpm,
		"batches", len(batches))

	results := make([][]models.Track, len(batches))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(len(batches))
	for i, b := range batches {
		g.Go(func() error {
			tracks, err := c.search(gctx, b)
			if err != nil {
				c.logger.Warn("catalog batch failed", "query", b.Query, "offset", b.Offset, "error", err)
				return nil
			}
			results[i] = tracks
			return nil
		})
	}
	_ = g.Wait()

	var all []models.Track
	for _, r := range results {
		all = append(all, r...)
	}

	pool := FilterMisclassified(Dedupe(all), catalogGenre)
	c.shuffle(pool)

	c.logger.Info("candidate pool ready", "genre", catalogGenre, "fetched", len(all), "pool", len(pool))
	return pool
}

// plan builds the randomized batch queries for one pool fetch.
func (c *SpotifyCatalog) plan(catalogGenre string) []searchBatch {
	c.mu.Lock()
	defer c.mu.Unlock()

	nowYear := c.opts.Now().Year()
	batches := make([]searchBatch, c.opts.Batches)
	for i := range batches {
		from := earliestYear
		if nowYear > earliestYear {
			from += c.opts.Rand.Intn(nowYear - earliestYear + 1)
		}
		to := min(from+minWindowYears+c.opts.Rand.Intn(maxWindowYears-minWindowYears+1), nowYear)
		if to < from {
			to = from
		}

		batches[i] = searchBatch{
			Query:  fmt.Sprintf("genre:%q year:%d-%d", catalogGenre, from, to),
			Offset: c.opts.Rand.Intn(c.opts.MaxOffset + 1),
		}
	}
	return batches
}

func (c *SpotifyCatalog) search(ctx context.Context, b searchBatch) ([]models.Track, error) {
	opts := []spotify.RequestOption{spotify.Limit(c.opts.BatchSize), spotify.Offset(b.Offset)}
	if c.opts.Market != "" {
		opts = append(opts, spotify.Market(c.opts.Market))
	}

	res, err := c.client.Search(ctx, b.Query, spotify.SearchTypeTrack, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: search %q: %v", shared.ErrAPIRequest, b.Query, err)
	}
	if res == nil || res.Tracks == nil {
		return nil, nil
	}

	tracks := make([]models.Track, 0, len(res.Tracks.Tracks))
	for i := range res.Tracks.Tracks {
		tracks = append(tracks, trackFromSpotify(&res.Tracks.Tracks[i]))
	}
	return tracks, nil
}

func (c *SpotifyCatalog) shuffle(tracks []models.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.opts.Rand.Shuffle(len(tracks), func(i, j int) {
		tracks[i], tracks[j] = tracks[j], tracks[i]
	})
}

func trackFromSpotify(ft *spotify.FullTrack) models.Track {
	artists := make([]string, 0, len(ft.Artists))
	for _, a := range ft.Artists {
		artists = append(artists, a.Name)
	}
	albumArtists := make([]string, 0, len(ft.Album.Artists))
	for _, a := range ft.Album.Artists {
		albumArtists = append(albumArtists, a.Name)
	}

	track := models.Track{
		ID:           string(ft.ID),
		Title:        ft.Name,
		Artists:      artists,
		AlbumName:    ft.Album.Name,
		AlbumType:    ft.Album.AlbumType,
		AlbumArtists: albumArtists,
		PlayableURI:  string(ft.URI),
	}
	if len(artists) > 0 {
		track.ArtistName = artists[0]
	}
	if len(ft.Album.Images) > 0 {
		track.AlbumArtURL = ft.Album.Images[0].URL
	}
	if track.PlayableURI == "" && track.ID != "" {
		track.PlayableURI = "spotify:track:" + track.ID
	}
	return track
}
