// Package repositories implements SQLite persistence for the session log.
//
// Every "start workout" action becomes a session row; every play command the coordinator issues becomes a play row.
// Sessions support soft deletes via deleted_at timestamps and exclude deleted records from queries by default.
//
// Key Implementations:
//   - [SessionRepository] : Session persistence with genre and outcome filters
//   - [PlayRepository] : Append-only play history, cascaded with its session
//   - [SessionLog] : Recorder adapter used by the playback coordinator
//
// Sequence numbers provide stable, human-readable ordering (session #42) independent of UUIDs and creation timestamps.
// The [NextSequence] function atomically increments per-table sequence counters in dedicated sequence tables.
package repositories
