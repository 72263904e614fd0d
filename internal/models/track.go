package models

// Track represents a catalog track that can be handed to the player.
//
// Tracks are produced by the catalog client and never mutated afterwards.
type Track struct {
	ID           string   // Opaque catalog identifier, unique
	Title        string   // Track title
	ArtistName   string   // Primary (first) artist
	Artists      []string // All credited artists
	AlbumName    string   // Album title, used by the misclassification filter
	AlbumType    string   // album, single, compilation
	AlbumArtists []string // Artists credited on the album
	PlayableURI  string   // Handle the player understands (spotify:track:...)
	AlbumArtURL  string   // Optional
}

// TrackIDs returns the IDs of the given tracks in order.
func TrackIDs(tracks []Track) []string {
	ids := make([]string, len(tracks))
	for i, t := range tracks {
		ids[i] = t.ID
	}
	return ids
}

// PlayerState is a snapshot of the external player.
type PlayerState struct {
	Track      *Track
	IsPaused   bool
	PositionMs int
	DurationMs int
}

// HasTrack returns true if there is a loaded track.
func (s *PlayerState) HasTrack() bool {
	return s != nil && s.Track != nil
}
