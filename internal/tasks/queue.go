package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

// TempoLookup resolves a track's tempo. Implementations never fail: missing data is an absent result.
type TempoLookup interface {
	LookupBPM(ctx context.Context, track models.Track) models.TempoLookupResult
}

// QueueState is the lifecycle state of a [MatchQueue].
type QueueState int

const (
	StateIdle QueueState = iota
	StateRunning
	StateStopped
)

func (s QueueState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return fmt.Sprintf("QueueState(%d)", int(s))
	}
}

// MatchQueue drains a backlog of candidate tracks through a [TempoLookup] in the background
// and collects the tracks whose tempo falls inside its criteria.
//
// A track is in at most one of the backlog and the matched queue, and once it leaves the backlog it is never
// admitted again. At most one drain loop runs at a time; Start and Stop cancel the current loop and wait for it
// to exit before returning.
type MatchQueue struct {
	lookup   TempoLookup
	cache    *TempoCache
	criteria models.MatchCriteria
	logger   *log.Logger

	// OnMatch, when set, is called from the drain loop outside the queue lock after each match.
	// It must not call Start, AddTracks or Stop.
	OnMatch func(track models.Track, bpm int)

	lifecycle sync.Mutex // serializes Start, AddTracks and Stop

	mu         sync.Mutex
	pending    []models.Track
	pendingIDs map[string]struct{}
	taken      map[string]struct{} // ids popped from pending: in flight, looked up, matched or dequeued
	matched    []models.Track
	state      QueueState
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewMatchQueue creates an idle queue. A nil cache gets a private one.
func NewMatchQueue(lookup TempoLookup, cache *TempoCache, criteria models.MatchCriteria, logger *log.Logger) *MatchQueue {
	if cache == nil {
		cache = NewTempoCache()
	}
	return &MatchQueue{
		lookup:     lookup,
		cache:      cache,
		criteria:   criteria,
		logger:     shared.ComponentLogger(logger, "queue"),
		pendingIDs: make(map[string]struct{}),
		taken:      make(map[string]struct{}),
		state:      StateIdle,
	}
}

// Criteria returns the tempo window the queue matches against.
func (q *MatchQueue) Criteria() models.MatchCriteria {
	return q.criteria
}

// Start replaces the backlog with tracks and starts a fresh drain loop, cancelling any running one first.
// An empty backlog is rejected. The caller's slice is copied, never retained.
func (q *MatchQueue) Start(tracks []models.Track) {
	if len(tracks) == 0 {
		q.logger.Warn("ignoring start with an empty backlog")
		return
	}

	q.lifecycle.Lock()
	defer q.lifecycle.Unlock()

	q.mu.Lock()
	done := q.cancelLocked()
	q.clearPendingLocked()
	q.mu.Unlock()
	wait(done)

	q.mu.Lock()
	defer q.mu.Unlock()

	added := q.enqueueLocked(tracks)
	if added == 0 {
		q.logger.Debug("start backlog had no new tracks", "offered", len(tracks))
		if q.state == StateRunning {
			q.state = StateIdle
		}
		return
	}
	q.launchLocked()
	q.logger.Debug("queue started", "backlog", added, "criteria", q.criteria)
}

// AddTracks appends tracks to the backlog, starting a drain loop if none is running.
// Tracks already pending, in flight, matched or dequeued are skipped.
func (q *MatchQueue) AddTracks(tracks []models.Track) {
	if len(tracks) == 0 {
		return
	}

	q.lifecycle.Lock()
	defer q.lifecycle.Unlock()

	q.mu.Lock()
	added := q.enqueueLocked(tracks)
	if added == 0 || q.state == StateRunning {
		q.mu.Unlock()
		return
	}
	done := q.done
	q.mu.Unlock()

	// The previous loop has already given up the queue; wait for its goroutine before launching another.
	wait(done)

	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) > 0 {
		q.launchLocked()
		q.logger.Debug("queue restarted by new tracks", "added", added)
	}
}

// DequeueNext pops the oldest matched track.
func (q *MatchQueue) DequeueNext() (models.Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.matched) == 0 {
		return models.Track{}, false
	}
	next := q.matched[0]
	q.matched[0] = models.Track{}
	q.matched = q.matched[1:]
	return next, true
}

// Stop cancels the drain loop, waits for it to exit and clears the backlog. Matched tracks are kept.
// Stopping a queue that is not running is a no-op.
func (q *MatchQueue) Stop() {
	q.lifecycle.Lock()
	defer q.lifecycle.Unlock()

	q.mu.Lock()
	if q.state != StateRunning {
		q.mu.Unlock()
		return
	}
	q.state = StateStopped
	q.clearPendingLocked()
	done := q.cancelLocked()
	q.mu.Unlock()

	wait(done)
	q.logger.Debug("queue stopped", "matched", q.Size())
}

// ClearMatched empties the matched queue only.
func (q *MatchQueue) ClearMatched() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.matched = nil
}

// Size returns the number of matched tracks waiting to be played.
func (q *MatchQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.matched)
}

// Pending returns the backlog length.
func (q *MatchQueue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// State returns the lifecycle state.
func (q *MatchQueue) State() QueueState {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.state
}

// Matched returns a copy of the matched queue in playback order.
func (q *MatchQueue) Matched() []models.Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.Track(nil), q.matched...)
}

// Wait blocks until the current drain loop, if any, has exited.
func (q *MatchQueue) Wait() {
	q.mu.Lock()
	done := q.done
	q.mu.Unlock()
	wait(done)
}

func (q *MatchQueue) enqueueLocked(tracks []models.Track) int {
	added := 0
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		if _, ok := q.pendingIDs[t.ID]; ok {
			continue
		}
		if _, ok := q.taken[t.ID]; ok {
			continue
		}
		q.pendingIDs[t.ID] = struct{}{}
		q.pending = append(q.pending, t)
		added++
	}
	return added
}

func (q *MatchQueue) clearPendingLocked() {
	q.pending = nil
	clear(q.pendingIDs)
}

// cancelLocked cancels the current run and returns its done channel.
func (q *MatchQueue) cancelLocked() chan struct{} {
	if q.cancel != nil {
		q.cancel()
		q.cancel = nil
	}
	return q.done
}

func (q *MatchQueue) launchLocked() {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	q.cancel = cancel
	q.done = done
	q.state = StateRunning
	go q.run(ctx, cancel, done)
}

// run is the drain loop. Cancellation is checked under the lock before every pop and before every
// cache write or append, so no state changes once Stop or Start has cancelled the run.
func (q *MatchQueue) run(ctx context.Context, cancel context.CancelFunc, done chan struct{}) {
	defer close(done)
	defer cancel()

	for {
		q.mu.Lock()
		if ctx.Err() != nil {
			q.mu.Unlock()
			return
		}
		if len(q.pending) == 0 {
			if q.done == done {
				q.state = StateIdle
				q.cancel = nil
			}
			q.mu.Unlock()
			q.logger.Debug("backlog drained", "matched", q.Size())
			return
		}

		track := q.pending[0]
		q.pending[0] = models.Track{}
		q.pending = q.pending[1:]
		delete(q.pendingIDs, track.ID)
		q.taken[track.ID] = struct{}{}
		q.mu.Unlock()

		res, cached := q.resolve(ctx, track)

		q.mu.Lock()
		if ctx.Err() != nil {
			delete(q.taken, track.ID)
			q.mu.Unlock()
			return
		}
		if !cached {
			q.cache.Record(res)
		}
		inRange := res.Found() && q.criteria.Contains(res.Value())
		if inRange {
			q.matched = append(q.matched, track)
		}
		size := len(q.matched)
		q.mu.Unlock()

		if inRange {
			q.logger.Info("matched track", "track", track.ID, "title", track.Title, "bpm", res.Value(), "queued", size)
			if q.OnMatch != nil {
				q.OnMatch(track, res.Value())
			}
		}
	}
}

// resolve consults the cache before the lookup. A panicking lookup counts as no data.
func (q *MatchQueue) resolve(ctx context.Context, track models.Track) (res models.TempoLookupResult, cached bool) {
	if bpm, ok := q.cache.Get(track.ID); ok {
		if bpm == nil {
			return models.NewTempoResult(track.ID, 0, models.SourceNone), true
		}
		return models.NewTempoResult(track.ID, *bpm, models.SourceNone), true
	}

	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("tempo lookup panicked", "track", track.ID, "panic", r)
			res = models.NewTempoResult(track.ID, 0, models.SourceNone)
			cached = false
		}
	}()

	return q.lookup.LookupBPM(ctx, track), false
}

func wait(done chan struct{}) {
	if done != nil {
		<-done
	}
}
