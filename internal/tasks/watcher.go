package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

// EventType represents the type of playback event.
type EventType int

const (
	EventTrackChanged EventType = iota
	EventTrackEnded
	EventPaused
	EventResumed
)

func (t EventType) String() string {
	switch t {
	case EventTrackChanged:
		return "track_changed"
	case EventTrackEnded:
		return "track_ended"
	case EventPaused:
		return "paused"
	case EventResumed:
		return "resumed"
	default:
		return "unknown"
	}
}

const (
	// endedThresholdMs is how close to the end a paused position must be to count as finished.
	endedThresholdMs = 1500
	// completedRatio marks a track that was replaced or cleared as finished rather than skipped.
	completedRatio = 0.95
)

// Event represents a player state change.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Previous  *models.PlayerState
	Current   *models.PlayerState
}

// StateSource is anything that can report the player's current state.
type StateSource interface {
	State(ctx context.Context) (*models.PlayerState, error)
}

// Watcher polls a [StateSource] and turns state changes into [Event]s.
//
// [EventTrackEnded] fires at most once per track.
type Watcher struct {
	source   StateSource
	interval time.Duration
	logger   *log.Logger
	events   chan Event
	done     chan struct{}
	stopOnce sync.Once

	ended string // id of the track an ended event was already emitted for
}

// NewWatcher creates a watcher. A zero interval polls once a second.
func NewWatcher(source StateSource, interval time.Duration, logger *log.Logger) *Watcher {
	if interval <= 0 {
		interval = time.Second
	}
	return &Watcher{
		source:   source,
		interval: interval,
		logger:   shared.ComponentLogger(logger, "watcher"),
		events:   make(chan Event, 16),
		done:     make(chan struct{}),
	}
}

// Events returns the event channel. It is closed when Run returns.
func (w *Watcher) Events() <-chan Event {
	return w.events
}

// Run polls until ctx is done or Stop is called.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	defer close(w.events)

	prev, err := w.source.State(ctx)
	if err != nil {
		w.logger.Debug("initial player state unavailable", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			return nil
		case <-ticker.C:
			curr, err := w.source.State(ctx)
			if err != nil {
				w.logger.Debug("player state poll failed", "error", err)
				continue
			}

			for _, e := range w.diff(prev, curr, time.Now()) {
				select {
				case w.events <- e:
				default:
					w.logger.Warn("dropping player event", "type", e.Type)
				}
			}
			prev = curr
		}
	}
}

// Stop ends Run. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// diff compares consecutive states. A nil state means nothing is loaded.
func (w *Watcher) diff(prev, curr *models.PlayerState, now time.Time) []Event {
	var events []Event
	emit := func(t EventType) {
		events = append(events, Event{Type: t, Timestamp: now, Previous: prev, Current: curr})
	}

	if trackChanged(prev, curr) {
		if prev.HasTrack() && wasCompleted(prev) && prev.Track.ID != w.ended {
			w.ended = prev.Track.ID
			emit(EventTrackEnded)
		}
		if curr.HasTrack() {
			if curr.Track.ID != w.ended {
				w.ended = ""
			}
			emit(EventTrackChanged)
		}
	}

	if prev.HasTrack() && curr.HasTrack() {
		switch {
		case !prev.IsPaused && curr.IsPaused:
			emit(EventPaused)
		case prev.IsPaused && !curr.IsPaused:
			emit(EventResumed)
		}
	}

	if finished(curr) && curr.Track.ID != w.ended {
		w.ended = curr.Track.ID
		emit(EventTrackEnded)
	}

	return events
}

func trackChanged(prev, curr *models.PlayerState) bool {
	if !prev.HasTrack() && !curr.HasTrack() {
		return false
	}
	if !prev.HasTrack() || !curr.HasTrack() {
		return true
	}
	return prev.Track.ID != curr.Track.ID
}

// finished reports a paused player sitting at the end of its track.
func finished(s *models.PlayerState) bool {
	if !s.HasTrack() || !s.IsPaused || s.DurationMs <= 0 {
		return false
	}
	return s.PositionMs >= s.DurationMs-endedThresholdMs
}

func wasCompleted(s *models.PlayerState) bool {
	if s.DurationMs <= 0 {
		return false
	}
	return float64(s.PositionMs) >= float64(s.DurationMs)*completedRatio
}
