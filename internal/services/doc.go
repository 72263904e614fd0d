// Package services implements the external clients of the tempo pipeline.
//
// # Catalog
//
// [SpotifyCatalog] samples candidate tracks with randomized Spotify search batches fetched concurrently,
// then deduplicates, filters likely misclassified results ([Misclassified]) and shuffles the pool.
// Upstream failures produce an empty pool, never an error.
//
// # Tempo
//
// [TempoClient] chains providers:
//   - [SoundStat], keyed by catalog track id and paced by a shared [rate.Limiter]
//   - [MusicBrainz], which resolves a recording by artist and title and parses tempo from its tags ([ParseTagBPM])
//   - [AcousticBrainz], which reads rhythm.bpm for the same recording when tags have nothing
//
// Provider errors are logged and folded into an absent result.
//
// # Playback
//
// [SpotifyPlayer] issues Spotify Connect commands with a user token refreshed by [oauth2].
// [GenreStation] plays a "<genre> workout" playlist as the untimed fallback.
//
// # Error Handling
//
// HTTP status codes map to shared errors:
//   - [shared.ErrTrackNotFound] : 404
//   - [shared.ErrRateLimited] : 429 after retries
//   - [shared.ErrNotAuthenticated] : 401 and 403
//   - [shared.ErrAPIRequest] : other failures
//
// Requests that hit 429 or 5xx are retried by [RetryTransport] with exponential backoff honoring Retry-After.
package services
