// Package tasks runs a tempo-matched playback session.
//
// # Session Startup
//
// [Coordinator.StartSession] sequences one "start workout" action:
//
//  1. Stops the previous session's [MatchQueue] and clears the [TempoCache]
//  2. Fetches a candidate pool from the [Catalog]
//  3. Scans the pool in order, blocking until the first track inside the tempo window
//  4. Plays that track and seeds a new [MatchQueue] with the tracks the scan never reached
//
// An empty pool or a scan without matches plays the genre station through the [Fallback] port instead.
//
// # Background Matching
//
// [MatchQueue] owns a pending backlog and a matched queue. One goroutine per run drains the backlog through a
// [TempoLookup], writes every result to the shared cache, and appends in-range tracks to the matched queue.
// Start and Stop cancel the current run and wait for it, so two drain loops never overlap.
//
// # Track Transitions
//
// [Watcher] polls the player and emits [EventTrackEnded] once per finished track.
// [Coordinator.Listen] forwards those events to [Coordinator.OnTrackEnded], which plays the next matched track or
// leaves playback alone when the queue is empty.
//
// # Progress Reporting
//
// Operations send [ProgressUpdate] values on an optional channel using select with default, so a slow reader
// never stalls the session.
package tasks
