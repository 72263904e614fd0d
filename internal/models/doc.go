// Package models defines domain entities and persistence interfaces for the cadence tempo-matching pipeline.
//
// The package contains two categories of types:
//
// 1. Value types passed between pipeline components
//   - [Track] : Immutable catalog track with a playable URI
//   - [TempoLookupResult] : Outcome of a single BPM lookup and the provider that produced it
//   - [MatchCriteria] : Target tempo and inclusive tolerance window for one session
//   - [PlayerState] : Snapshot of the external player used to derive track-ended events
//
// 2. Persistent entities written to the session log
//   - [Session] : One "start workout" run of the pipeline and its outcome
//   - [Play] : A single play command issued during a session
//
// Persistent entities implement the Model interface providing ID generation, timestamps, validation, and soft delete support.
// The Repository[T] interface defines standard CRUD operations for database access.
package models
