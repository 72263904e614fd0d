package tasks

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

// Catalog supplies candidate tracks. An empty pool means no data, never an error.
type Catalog interface {
	FetchCandidatePool(ctx context.Context, genre string, targetBpm, toleranceBpm int) []models.Track
}

// Player is the external playback device.
type Player interface {
	Play(ctx context.Context, uri string) error
	Queue(ctx context.Context, uri string) error
	Pause(ctx context.Context) error
	Resume(ctx context.Context) error
	SeekTo(ctx context.Context, positionMs int) error
	State(ctx context.Context) (*models.PlayerState, error)
	Close() error
}

// Fallback plays untimed music for a genre when tempo matching cannot.
type Fallback interface {
	PlayGenre(ctx context.Context, genre string) error
}

// Recorder persists the session log. It is optional.
type Recorder interface {
	CreateSession(s *models.Session) error
	UpdateSession(s *models.Session) error
	RecordPlay(p models.Play) error
}

// QueueFactory builds the per-session match queue.
type QueueFactory func(lookup TempoLookup, cache *TempoCache, criteria models.MatchCriteria, logger *log.Logger) *MatchQueue

// CoordinatorOpts contains the coordinator's collaborators. Catalog, Lookup and Player are required.
type CoordinatorOpts struct {
	Catalog  Catalog
	Lookup   TempoLookup
	Player   Player
	Fallback Fallback
	Cache    *TempoCache
	Recorder Recorder
	Logger   *log.Logger
	Progress chan<- ProgressUpdate
	NewQueue QueueFactory
}

// SessionResult describes how a session started.
type SessionResult struct {
	Session  *models.Session
	Outcome  models.SessionOutcome
	First    *models.Track // First played track; nil on fallback
	FirstBPM int
	PoolSize int
	Scanned  int // Tracks looked up by the bootstrap scan
	Seeded   int // Tracks handed to the match queue
}

// Coordinator sequences session startup and track transitions.
//
// It is the only component that commands the player and the only one that triggers the genre fallback.
type Coordinator struct {
	catalog  Catalog
	lookup   TempoLookup
	player   Player
	fallback Fallback
	cache    *TempoCache
	recorder Recorder
	logger   *log.Logger
	progress chan<- ProgressUpdate
	newQueue QueueFactory

	mu      sync.Mutex
	queue   *MatchQueue
	session *models.Session
	played  int
}

// NewCoordinator creates a coordinator.
func NewCoordinator(opts CoordinatorOpts) *Coordinator {
	cache := opts.Cache
	if cache == nil {
		cache = NewTempoCache()
	}
	newQueue := opts.NewQueue
	if newQueue == nil {
		newQueue = NewMatchQueue
	}
	return &Coordinator{
		catalog:  opts.Catalog,
		lookup:   opts.Lookup,
		player:   opts.Player,
		fallback: opts.Fallback,
		cache:    cache,
		recorder: opts.Recorder,
		logger:   shared.ComponentLogger(opts.Logger, "coordinator"),
		progress: opts.Progress,
		newQueue: newQueue,
	}
}

// Cache returns the shared tempo cache.
func (c *Coordinator) Cache() *TempoCache {
	return c.cache
}

// Queue returns the active match queue, or nil when the session fell back or has ended.
func (c *Coordinator) Queue() *MatchQueue {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue
}

// Session returns the current session, or nil before the first start.
func (c *Coordinator) Session() *models.Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

// StartSession tears down the previous session, fetches a candidate pool, blocks on a sequential scan for the
// first in-range track, plays it and hands the unscanned rest of the pool to a new match queue.
//
// An empty pool or a scan without matches falls back to the genre station. An error is returned only for an
// invalid tempo window, a cancelled context or a failed fallback.
func (c *Coordinator) StartSession(ctx context.Context, genre string, targetBpm, toleranceBpm int) (*SessionResult, error) {
	criteria := models.NewMatchCriteria(targetBpm, toleranceBpm)
	if err := criteria.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidArgument, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()
	c.cache.Clear()

	session := models.NewSession(genre, criteria)
	c.session = session
	c.played = 0
	c.createSession(session)

	logger := shared.WithLogger(c.logger, "session", session.ID(), "genre", genre, "criteria", criteria)

	sendProgress(c.progress, fetchPoolUpdate(genre, criteria))
	pool := c.catalog.FetchCandidatePool(ctx, genre, criteria.TargetBPM, criteria.ToleranceBPM)
	sendProgress(c.progress, poolFetchedUpdate(pool))

	result := &SessionResult{Session: session, PoolSize: len(pool)}

	if len(pool) == 0 {
		logger.Info("empty candidate pool")
		return c.fallbackLocked(ctx, result, genre, "empty pool")
	}

	first, bpm, scanned := c.scan(ctx, pool, criteria)
	result.Scanned = scanned
	session.SetPoolStats(len(pool), scanned)

	if err := ctx.Err(); err != nil {
		session.SetOutcome(models.OutcomeFailed)
		c.finishSession(session)
		return result, err
	}

	if first == nil {
		logger.Info("no track in the pool matched", "scanned", scanned)
		return c.fallbackLocked(ctx, result, genre, "no match")
	}

	if err := c.player.Play(ctx, first.PlayableURI); err != nil {
		logger.Error("failed to start playback", "track", first.ID, "error", err)
		return c.fallbackLocked(ctx, result, genre, "player rejected first track")
	}
	c.recordPlay(session, *first, &bpm, models.OriginBootstrap)
	sendProgress(c.progress, startPlaybackUpdate(*first, bpm))

	remaining := pool[scanned:]
	queue := c.newQueue(c.lookup, c.cache, criteria, c.logger)
	queue.OnMatch = func(t models.Track, bpm int) {
		sendProgress(c.progress, queueMatchUpdate(queue.Size(), t, bpm))
	}
	if len(remaining) > 0 {
		queue.Start(remaining)
	}
	c.queue = queue

	session.SetOutcome(models.OutcomeMatched)
	session.SetFirstTrackID(first.ID)
	c.updateSession(session)

	result.Outcome = models.OutcomeMatched
	result.First = first
	result.FirstBPM = bpm
	result.Seeded = len(remaining)

	logger.Info("session started", "first", first.ID, "bpm", bpm, "scanned", scanned, "seeded", len(remaining))
	return result, nil
}

// scan looks tracks up in pool order until one falls inside criteria.
// It returns the match, its tempo and how many tracks were looked up.
func (c *Coordinator) scan(ctx context.Context, pool []models.Track, criteria models.MatchCriteria) (*models.Track, int, int) {
	for i, track := range pool {
		if ctx.Err() != nil {
			return nil, 0, i
		}

		res := c.lookup.LookupBPM(ctx, track)
		c.cache.Record(res)
		sendProgress(c.progress, scanUpdate(i+1, len(pool), track, res))

		if res.Found() && criteria.Contains(res.Value()) {
			matched := track
			return &matched, res.Value(), i + 1
		}
	}
	return nil, 0, len(pool)
}

func (c *Coordinator) fallbackLocked(ctx context.Context, result *SessionResult, genre, reason string) (*SessionResult, error) {
	session := result.Session
	result.Outcome = models.OutcomeFallback
	sendProgress(c.progress, fallbackUpdate(genre, reason))

	if c.fallback == nil {
		session.SetOutcome(models.OutcomeFailed)
		c.updateSession(session)
		result.Outcome = models.OutcomeFailed
		return result, fmt.Errorf("%w: %s and no fallback configured", shared.ErrNoMatch, reason)
	}

	if err := c.fallback.PlayGenre(ctx, genre); err != nil {
		session.SetOutcome(models.OutcomeFailed)
		c.updateSession(session)
		result.Outcome = models.OutcomeFailed
		c.logger.Error("genre fallback failed", "genre", genre, "reason", reason, "error", err)
		return result, fmt.Errorf("genre fallback after %s: %w", reason, err)
	}

	session.SetOutcome(models.OutcomeFallback)
	c.updateSession(session)
	c.recordPlay(session, models.Track{ID: "genre:" + genre, Title: genre + " station"}, nil, models.OriginFallback)
	c.logger.Info("playing genre fallback", "genre", genre, "reason", reason)
	return result, nil
}

// OnTrackEnded plays the next matched track. An empty queue leaves playback untouched.
// Player failures are logged and never returned.
func (c *Coordinator) OnTrackEnded(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.queue == nil {
		c.logger.Debug("track ended without an active queue")
		return
	}

	next, ok := c.queue.DequeueNext()
	if !ok {
		c.logger.Info("track ended with an empty match queue", "pending", c.queue.Pending())
		return
	}

	if err := c.player.Play(ctx, next.PlayableURI); err != nil {
		c.logger.Error("failed to play next track", "track", next.ID, "error", err)
		return
	}

	bpm, _ := c.cache.Get(next.ID)
	c.recordPlay(c.session, next, bpm, models.OriginQueue)
	sendProgress(c.progress, advanceUpdate(next, c.queue.Size()))
	c.logger.Info("advanced to next match", "track", next.ID, "title", next.Title)
}

// EndSession stops the match queue and releases the player.
func (c *Coordinator) EndSession(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.teardownLocked()
	c.cache.Clear()
	sendProgress(c.progress, endSessionUpdate(c.played))

	if err := c.player.Close(); err != nil {
		c.logger.Warn("failed to release player", "error", err)
		return fmt.Errorf("%w: release: %v", shared.ErrPlayerCommand, err)
	}
	return nil
}

// Listen forwards track-ended events to [Coordinator.OnTrackEnded] until ctx is done or events closes.
func (c *Coordinator) Listen(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type == EventTrackEnded {
				c.OnTrackEnded(ctx)
			}
		}
	}
}

// teardownLocked stops the previous queue, drops its stale matches and closes the session record.
func (c *Coordinator) teardownLocked() {
	if c.queue != nil {
		c.queue.Stop()
		c.queue.ClearMatched()
		c.queue = nil
	}
	if c.session != nil && c.session.EndedAt() == nil {
		if c.session.Outcome() == models.OutcomePending {
			c.session.SetOutcome(models.OutcomeFailed)
		}
		c.finishSession(c.session)
	}
}

func (c *Coordinator) finishSession(s *models.Session) {
	s.End(time.Now())
	c.updateSession(s)
}

func (c *Coordinator) createSession(s *models.Session) {
	if c.recorder == nil {
		return
	}
	if err := c.recorder.CreateSession(s); err != nil {
		c.logger.Warn("failed to record session", "error", err)
	}
}

func (c *Coordinator) updateSession(s *models.Session) {
	s.SetUpdatedAt(time.Now())
	if c.recorder == nil || s.ID() == "" {
		return
	}
	if err := c.recorder.UpdateSession(s); err != nil {
		c.logger.Warn("failed to update session", "session", s.ID(), "error", err)
	}
}

func (c *Coordinator) recordPlay(s *models.Session, t models.Track, bpm *int, origin models.PlayOrigin) {
	c.played++
	if c.recorder == nil || s == nil || s.ID() == "" {
		return
	}

	play := models.Play{
		SessionID: s.ID(),
		TrackID:   t.ID,
		Title:     t.Title,
		Artist:    t.ArtistName,
		BPM:       bpm,
		Origin:    origin,
		PlayedAt:  time.Now(),
	}
	if err := c.recorder.RecordPlay(play); err != nil && !errors.Is(err, shared.ErrSessionClosed) {
		c.logger.Warn("failed to record play", "session", s.ID(), "error", err)
	}
}
