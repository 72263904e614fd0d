package tasks

import (
	"sync"

	"github.com/desertthunder/cadence/internal/models"
)

// TempoCache maps track ids to the tempo found for them during a session.
//
// Entries are write-once: the first lookup result for a track wins and later writes are ignored.
// A nil entry records that the track was looked up and no tempo was found.
type TempoCache struct {
	mu      sync.RWMutex
	entries map[string]*int
}

// NewTempoCache creates an empty cache.
func NewTempoCache() *TempoCache {
	return &TempoCache{entries: make(map[string]*int)}
}

// Get returns the cached tempo and whether the track has been looked up.
func (c *TempoCache) Get(trackID string) (*int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	bpm, ok := c.entries[trackID]
	if !ok || bpm == nil {
		return nil, ok
	}
	v := *bpm
	return &v, true
}

// Record stores a lookup result. It returns false when the track already has an entry.
func (c *TempoCache) Record(res models.TempoLookupResult) bool {
	if res.TrackID == "" {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.entries[res.TrackID]; exists {
		return false
	}

	if res.BPM == nil {
		c.entries[res.TrackID] = nil
		return true
	}
	v := *res.BPM
	c.entries[res.TrackID] = &v
	return true
}

// Len returns the number of looked-up tracks.
func (c *TempoCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops every entry. Called at session boundaries.
func (c *TempoCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.entries)
}

// Snapshot returns a copy of the cache contents.
func (c *TempoCache) Snapshot() map[string]*int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make(map[string]*int, len(c.entries))
	for id, bpm := range c.entries {
		if bpm == nil {
			out[id] = nil
			continue
		}
		v := *bpm
		out[id] = &v
	}
	return out
}
