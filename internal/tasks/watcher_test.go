package tasks

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func playing(id string, pos, dur int) *models.PlayerState {
	tr := track(id)
	return &models.PlayerState{Track: &tr, PositionMs: pos, DurationMs: dur}
}

func paused(id string, pos, dur int) *models.PlayerState {
	s := playing(id, pos, dur)
	s.IsPaused = true
	return s
}

func eventTypes(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}

func TestWatcherDiff(t *testing.T) {
	tests := []struct {
		name   string
		states []*models.PlayerState
		want   []EventType
	}{
		{
			name:   "first track loaded",
			states: []*models.PlayerState{nil, playing("a", 0, 200_000)},
			want:   []EventType{EventTrackChanged},
		},
		{
			name:   "paused mid track",
			states: []*models.PlayerState{playing("a", 50_000, 200_000), paused("a", 51_000, 200_000)},
			want:   []EventType{EventPaused},
		},
		{
			name:   "resumed",
			states: []*models.PlayerState{paused("a", 51_000, 200_000), playing("a", 52_000, 200_000)},
			want:   []EventType{EventResumed},
		},
		{
			name:   "paused at the end",
			states: []*models.PlayerState{playing("a", 198_000, 200_000), paused("a", 200_000, 200_000)},
			want:   []EventType{EventPaused, EventTrackEnded},
		},
		{
			name: "ended fires once while parked at the end",
			states: []*models.PlayerState{
				playing("a", 198_000, 200_000),
				paused("a", 199_500, 200_000),
				paused("a", 199_500, 200_000),
			},
			want: []EventType{EventPaused, EventTrackEnded},
		},
		{
			name: "next track after an ended event",
			states: []*models.PlayerState{
				paused("a", 200_000, 200_000),
				paused("a", 200_000, 200_000),
				playing("b", 0, 180_000),
			},
			want: []EventType{EventTrackEnded, EventTrackChanged, EventResumed},
		},
		{
			name:   "player auto-advanced near the end",
			states: []*models.PlayerState{playing("a", 195_000, 200_000), playing("b", 500, 180_000)},
			want:   []EventType{EventTrackEnded, EventTrackChanged},
		},
		{
			name:   "skip is not an end",
			states: []*models.PlayerState{playing("a", 30_000, 200_000), playing("b", 0, 180_000)},
			want:   []EventType{EventTrackChanged},
		},
		{
			name:   "cleared after finishing",
			states: []*models.PlayerState{playing("a", 199_000, 200_000), nil},
			want:   []EventType{EventTrackEnded},
		},
		{
			name:   "unknown duration never ends",
			states: []*models.PlayerState{playing("a", 0, 0), paused("a", 0, 0)},
			want:   []EventType{EventPaused},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWatcher(nil, 0, nil)
			var got []Event
			for i := 1; i < len(tt.states); i++ {
				got = append(got, w.diff(tt.states[i-1], tt.states[i], time.Now())...)
			}
			assert.Equal(t, tt.want, eventTypes(got))
		})
	}
}

type scriptedSource struct {
	mu     sync.Mutex
	states []*models.PlayerState
	i      int
}

func (s *scriptedSource) State(ctx context.Context) (*models.PlayerState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[min(s.i, len(s.states)-1)]
	s.i++
	return st, nil
}

func TestWatcherRun(t *testing.T) {
	src := &scriptedSource{states: []*models.PlayerState{
		playing("a", 10_000, 200_000),
		playing("a", 190_000, 200_000),
		paused("a", 199_800, 200_000),
	}}
	w := NewWatcher(src, 5*time.Millisecond, nil)

	errc := make(chan error, 1)
	go func() { errc <- w.Run(context.Background()) }()

	var got []EventType
	timeout := time.After(2 * time.Second)
	for ended := false; !ended; {
		select {
		case e := <-w.Events():
			got = append(got, e.Type)
			ended = e.Type == EventTrackEnded
		case <-timeout:
			t.Fatal("no track ended event")
		}
	}

	time.Sleep(25 * time.Millisecond)
	w.Stop()
	w.Stop()

	for e := range w.Events() {
		got = append(got, e.Type)
	}
	require.NoError(t, <-errc)
	assert.Equal(t, []EventType{EventPaused, EventTrackEnded}, got)
}

func TestWatcherRunCancelled(t *testing.T) {
	w := NewWatcher(&scriptedSource{states: []*models.PlayerState{nil}}, time.Millisecond, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, w.Run(ctx), context.Canceled)
	_, open := <-w.Events()
	assert.False(t, open)
}
