package tasks

import (
	"fmt"

	"github.com/desertthunder/cadence/internal/models"
)

// ProgressUpdate represents a progress event during a playback session.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Session phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Session phase enumeration
type Phase int

const (
	FetchPool Phase = iota
	ScanTempo
	StartPlayback
	PlayFallback
	QueueMatch
	Advance
	EndSession
)

func (p Phase) String() string {
	switch p {
	case FetchPool:
		return "fetch_pool"
	case ScanTempo:
		return "scan_tempo"
	case StartPlayback:
		return "start_playback"
	case PlayFallback:
		return "fallback"
	case QueueMatch:
		return "queue_match"
	case Advance:
		return "advance"
	case EndSession:
		return "end_session"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}

	select {
	case progress <- update:
	default:
	}
}

func fetchPoolUpdate(genre string, criteria models.MatchCriteria) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPool,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Fetching %s candidates for %s...", genre, criteria),
	}
}

func poolFetchedUpdate(pool []models.Track) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPool,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found %d candidate tracks", len(pool)),
		Data:    len(pool),
	}
}

func scanUpdate(step, total int, tr models.Track, res models.TempoLookupResult) ProgressUpdate {
	bpm := "?"
	if res.Found() {
		bpm = fmt.Sprintf("%d", res.Value())
	}
	return ProgressUpdate{
		Phase:   ScanTempo,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s - %s (%s bpm)", step, total, tr.ArtistName, tr.Title, bpm),
		Data:    res,
	}
}

func startPlaybackUpdate(tr models.Track, bpm int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   StartPlayback,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Playing %s - %s (%d bpm)", tr.ArtistName, tr.Title, bpm),
		Data:    tr,
	}
}

func fallbackUpdate(genre, reason string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   PlayFallback,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("No tempo match (%s), playing %s station", reason, genre),
	}
}

func queueMatchUpdate(size int, tr models.Track, bpm int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   QueueMatch,
		Step:    size,
		Total:   size,
		Message: fmt.Sprintf("Queued %s - %s (%d bpm)", tr.ArtistName, tr.Title, bpm),
		Data:    tr,
	}
}

func advanceUpdate(tr models.Track, remaining int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Advance,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Up next: %s - %s (%d left in queue)", tr.ArtistName, tr.Title, remaining),
		Data:    tr,
	}
}

func endSessionUpdate(played int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   EndSession,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Session ended after %d tracks", played),
		Data:    played,
	}
}
