package tasks

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubLookup returns canned tempos. When block is set, every call waits for it to close or for ctx to end.
type stubLookup struct {
	mu        sync.Mutex
	bpms      map[string]int
	calls     []string
	active    int
	maxActive int
	panicOn   string
	block     chan struct{}
	started   chan string
	hook      func(id string)
}

func newStubLookup(bpms map[string]int) *stubLookup {
	return &stubLookup{bpms: bpms}
}

func (s *stubLookup) LookupBPM(ctx context.Context, track models.Track) models.TempoLookupResult {
	s.mu.Lock()
	s.calls = append(s.calls, track.ID)
	s.active++
	s.maxActive = max(s.maxActive, s.active)
	bpm := s.bpms[track.ID]
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.active--
		s.mu.Unlock()
	}()

	if s.started != nil {
		s.started <- track.ID
	}
	if s.hook != nil {
		s.hook(track.ID)
	}
	if track.ID == s.panicOn {
		panic("provider exploded")
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return models.NewTempoResult(track.ID, 0, models.SourceNone)
		}
	}
	return models.NewTempoResult(track.ID, bpm, models.SourceSoundStat)
}

func (s *stubLookup) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubLookup) MaxActive() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.maxActive
}

func track(id string) models.Track {
	return models.Track{ID: id, Title: "Title " + id, ArtistName: "Artist", PlayableURI: "spotify:track:" + id}
}

func tracks(ids ...string) []models.Track {
	out := make([]models.Track, len(ids))
	for i, id := range ids {
		out[i] = track(id)
	}
	return out
}

func criteria140() models.MatchCriteria {
	return models.NewMatchCriteria(140, 10)
}

func TestMatchQueue(t *testing.T) {
	t.Run("matches only in-range tracks in discovery order", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"t1": 120, "t2": 145, "t3": 100, "t4": 138, "t5": 200, "t6": 130})
		cache := NewTempoCache()
		q := NewMatchQueue(lookup, cache, criteria140(), nil)

		var hooked []string
		q.OnMatch = func(tr models.Track, bpm int) {
			assert.True(t, q.Criteria().Contains(bpm))
			hooked = append(hooked, tr.ID)
		}

		q.Start(tracks("t1", "t2", "t3", "t4", "t5", "t6"))
		q.Wait()

		assert.Equal(t, StateIdle, q.State())
		assert.Equal(t, []string{"t2", "t4", "t6"}, models.TrackIDs(q.Matched()))
		assert.Equal(t, []string{"t2", "t4", "t6"}, hooked)
		assert.Equal(t, 6, cache.Len())

		for _, id := range q.Matched() {
			bpm, ok := cache.Get(id.ID)
			require.True(t, ok)
			require.NotNil(t, bpm)
			assert.True(t, criteria140().Contains(*bpm), "%s cached %d", id.ID, *bpm)
		}
	})

	t.Run("dequeue is FIFO and empty dequeue returns false", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"a": 140, "b": 141, "c": 139})
		q := NewMatchQueue(lookup, nil, criteria140(), nil)

		q.Start(tracks("a", "b", "c"))
		q.Wait()
		require.Equal(t, 3, q.Size())

		for _, want := range []string{"a", "b", "c"} {
			got, ok := q.DequeueNext()
			require.True(t, ok)
			assert.Equal(t, want, got.ID)
		}

		_, ok := q.DequeueNext()
		assert.False(t, ok)
		assert.Equal(t, 0, q.Size())
	})

	t.Run("backlog and matched queue never share a track", func(t *testing.T) {
		bpms := map[string]int{}
		ids := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
		for i, id := range ids {
			bpms[id] = 130 + i*3
		}
		lookup := newStubLookup(bpms)
		q := NewMatchQueue(lookup, nil, criteria140(), nil)

		var violations atomic.Int32
		lookup.hook = func(id string) {
			q.mu.Lock()
			defer q.mu.Unlock()

			inPending := make(map[string]bool, len(q.pending))
			for _, p := range q.pending {
				inPending[p.ID] = true
			}
			if inPending[id] {
				violations.Add(1)
			}
			for _, m := range q.matched {
				if inPending[m.ID] || m.ID == id {
					violations.Add(1)
				}
			}
		}

		q.Start(tracks(ids...))
		q.AddTracks(tracks("a", "b", "i"))
		q.Wait()

		assert.Zero(t, violations.Load())
		assert.Len(t, lookup.Calls(), 9, "each track is looked up once")
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		q := NewMatchQueue(newStubLookup(nil), nil, criteria140(), nil)

		assert.NotPanics(t, q.Stop)
		assert.Equal(t, StateIdle, q.State())

		q.Start(tracks("a"))
		q.Wait()
		assert.NotPanics(t, q.Stop)
		assert.NotPanics(t, q.Stop)
	})

	t.Run("stop cancels the running loop and keeps matches", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"a": 140, "b": 140, "c": 140})
		lookup.block = make(chan struct{})
		lookup.started = make(chan string, 8)
		cache := NewTempoCache()
		cache.Record(models.NewTempoResult("a", 140, models.SourceSoundStat))
		q := NewMatchQueue(lookup, cache, criteria140(), nil)

		q.Start(tracks("a", "b", "c"))
		assert.Equal(t, "b", <-lookup.started, "a is served from the cache")

		q.Stop()

		assert.Equal(t, StateStopped, q.State())
		assert.Equal(t, 0, q.Pending())
		assert.Equal(t, []string{"a"}, models.TrackIDs(q.Matched()))
		_, cached := cache.Get("b")
		assert.False(t, cached, "result arriving after cancel is discarded")
		assert.Equal(t, []string{"b"}, lookup.Calls())
	})

	t.Run("start replaces a running loop", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"a": 140, "b": 140, "c": 145})
		lookup.block = make(chan struct{})
		lookup.started = make(chan string, 8)
		q := NewMatchQueue(lookup, nil, criteria140(), nil)

		q.Start(tracks("a", "b"))
		<-lookup.started

		q.Start(tracks("c"))
		close(lookup.block)
		q.Wait()

		assert.Equal(t, []string{"a", "c"}, lookup.Calls())
		assert.Equal(t, []string{"c"}, models.TrackIDs(q.Matched()))
		assert.Equal(t, 1, lookup.MaxActive())
	})

	t.Run("empty start is rejected", func(t *testing.T) {
		q := NewMatchQueue(newStubLookup(nil), nil, criteria140(), nil)
		q.Start(nil)
		assert.Equal(t, StateIdle, q.State())
	})

	t.Run("does not mutate the caller's slice", func(t *testing.T) {
		in := tracks("a", "b")
		q := NewMatchQueue(newStubLookup(map[string]int{"a": 140}), nil, criteria140(), nil)
		q.Start(in)
		q.Wait()
		assert.Equal(t, tracks("a", "b"), in)
	})

	t.Run("restarts after stop", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"a": 140, "b": 140})
		lookup.block = make(chan struct{})
		q := NewMatchQueue(lookup, nil, criteria140(), nil)

		q.Start(tracks("a"))
		q.Stop()
		require.Equal(t, StateStopped, q.State())

		close(lookup.block)
		q.Start(tracks("b"))
		q.Wait()

		assert.Equal(t, StateIdle, q.State())
		assert.Contains(t, models.TrackIDs(q.Matched()), "b")
	})

	t.Run("panicking lookup is a non-match", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"a": 140, "b": 140})
		lookup.panicOn = "a"
		cache := NewTempoCache()
		q := NewMatchQueue(lookup, cache, criteria140(), nil)

		q.Start(tracks("a", "b"))
		q.Wait()

		assert.Equal(t, []string{"b"}, models.TrackIDs(q.Matched()))
		bpm, ok := cache.Get("a")
		assert.True(t, ok)
		assert.Nil(t, bpm)
	})

	t.Run("dequeued tracks are never re-admitted", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"a": 140})
		q := NewMatchQueue(lookup, nil, criteria140(), nil)

		q.Start(tracks("a"))
		q.Wait()
		_, ok := q.DequeueNext()
		require.True(t, ok)

		q.AddTracks(tracks("a"))
		q.Wait()

		assert.Equal(t, 0, q.Size())
		assert.Equal(t, []string{"a"}, lookup.Calls())
	})

	t.Run("clear matched leaves the backlog", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"a": 140, "b": 140})
		lookup.block = make(chan struct{})
		lookup.started = make(chan string, 8)
		q := NewMatchQueue(lookup, nil, criteria140(), nil)
		q.matched = tracks("x")

		q.Start(tracks("a", "b"))
		<-lookup.started
		q.ClearMatched()

		assert.Equal(t, 0, q.Size())
		assert.Equal(t, 1, q.Pending())

		close(lookup.block)
		q.Wait()
		assert.Equal(t, []string{"a", "b"}, models.TrackIDs(q.Matched()))
	})
}

func TestMatchQueueAddTracks(t *testing.T) {
	t.Run("starts draining without an explicit start", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"a": 145, "b": 90})
		lookup.block = make(chan struct{})
		q := NewMatchQueue(lookup, nil, criteria140(), nil)

		q.AddTracks(tracks("a", "b"))
		assert.Equal(t, StateRunning, q.State())

		close(lookup.block)
		q.Wait()

		assert.Equal(t, StateIdle, q.State())
		assert.Equal(t, []string{"a"}, models.TrackIDs(q.Matched()))
	})

	t.Run("restarts an idle queue after it drained", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"a": 140, "b": 141})
		q := NewMatchQueue(lookup, nil, criteria140(), nil)

		q.Start(tracks("a"))
		q.Wait()
		require.Equal(t, StateIdle, q.State())

		q.AddTracks(tracks("b"))
		q.Wait()

		assert.Equal(t, []string{"a", "b"}, models.TrackIDs(q.Matched()))
	})

	t.Run("appends to a running backlog", func(t *testing.T) {
		lookup := newStubLookup(map[string]int{"a": 140, "b": 140, "c": 140})
		lookup.block = make(chan struct{})
		lookup.started = make(chan string, 8)
		q := NewMatchQueue(lookup, nil, criteria140(), nil)

		q.Start(tracks("a"))
		<-lookup.started
		q.AddTracks(tracks("b", "c", "b"))
		assert.Equal(t, 2, q.Pending())

		close(lookup.block)
		q.Wait()

		assert.Equal(t, []string{"a", "b", "c"}, models.TrackIDs(q.Matched()))
		assert.Equal(t, 1, lookup.MaxActive())
	})
}

func TestMatchQueueConcurrentDequeue(t *testing.T) {
	const n = 200

	bpms := make(map[string]int, n)
	ids := make([]string, n)
	for i := range n {
		ids[i] = "track-" + strconv.Itoa(i)
		bpms[ids[i]] = 140
	}

	q := NewMatchQueue(newStubLookup(bpms), nil, criteria140(), nil)
	q.Start(tracks(ids...))

	var (
		mu      sync.Mutex
		seen    = make(map[string]int)
		drained atomic.Bool
		wg      sync.WaitGroup
	)
	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				tr, ok := q.DequeueNext()
				if ok {
					mu.Lock()
					seen[tr.ID]++
					mu.Unlock()
					continue
				}
				if drained.Load() && q.Size() == 0 {
					return
				}
				time.Sleep(time.Millisecond)
			}
		}()
	}

	q.Wait()
	drained.Store(true)
	wg.Wait()

	assert.Len(t, seen, n)
	for id, count := range seen {
		assert.Equal(t, 1, count, "%s dequeued more than once", id)
	}
}
