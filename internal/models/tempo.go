package models

import "fmt"

// DefaultToleranceBPM is the tolerance used when none is configured.
const DefaultToleranceBPM = 10

// TempoSource identifies the provider that produced a tempo value.
type TempoSource int

const (
	SourceNone           TempoSource = iota
	SourceSoundStat                  // primary, keyed by catalog id
	SourceMusicBrainz                // secondary, recording tags
	SourceAcousticBrainz             // secondary tail, low-level descriptors
)

func (s TempoSource) String() string {
	switch s {
	case SourceSoundStat:
		return "soundstat"
	case SourceMusicBrainz:
		return "musicbrainz"
	case SourceAcousticBrainz:
		return "acousticbrainz"
	default:
		return "none"
	}
}

// TempoLookupResult is the outcome of a single BPM lookup.
//
// A nil BPM means no provider returned usable data.
type TempoLookupResult struct {
	TrackID string
	BPM     *int
	Source  TempoSource
}

// Found reports whether the lookup produced a tempo.
func (r TempoLookupResult) Found() bool {
	return r.BPM != nil
}

// Value returns the tempo or 0 when absent.
func (r TempoLookupResult) Value() int {
	if r.BPM == nil {
		return 0
	}
	return *r.BPM
}

// NewTempoResult builds a result, treating non-positive tempos as absent.
func NewTempoResult(trackID string, bpm int, source TempoSource) TempoLookupResult {
	if bpm <= 0 {
		return TempoLookupResult{TrackID: trackID, Source: SourceNone}
	}
	return TempoLookupResult{TrackID: trackID, BPM: &bpm, Source: source}
}

// MatchCriteria is the inclusive tempo window a track must fall in.
type MatchCriteria struct {
	TargetBPM    int
	ToleranceBPM int
}

// NewMatchCriteria creates criteria from target and tolerance as given. A zero tolerance matches the target exactly.
func NewMatchCriteria(target, tolerance int) MatchCriteria {
	return MatchCriteria{TargetBPM: target, ToleranceBPM: tolerance}
}

// Validate rejects a non-positive target and a negative tolerance.
func (c MatchCriteria) Validate() error {
	if c.TargetBPM <= 0 {
		return fmt.Errorf("target bpm must be positive, got %d", c.TargetBPM)
	}
	if c.ToleranceBPM < 0 {
		return fmt.Errorf("tolerance must not be negative, got %d", c.ToleranceBPM)
	}
	return nil
}

func (c MatchCriteria) Min() int { return c.TargetBPM - c.ToleranceBPM }
func (c MatchCriteria) Max() int { return c.TargetBPM + c.ToleranceBPM }

// Contains reports whether bpm falls in [Min, Max].
func (c MatchCriteria) Contains(bpm int) bool {
	return bpm >= c.Min() && bpm <= c.Max()
}

func (c MatchCriteria) String() string {
	return fmt.Sprintf("%d±%d bpm", c.TargetBPM, c.ToleranceBPM)
}
