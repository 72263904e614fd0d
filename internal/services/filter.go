package services

import (
	"slices"
	"strings"

	"github.com/desertthunder/cadence/internal/models"
	"github.com/desertthunder/cadence/internal/shared"
)

var (
	mixPhrases = []string{
		"dj mix", "megamix", "continuous mix", "mixed by", "nonstop", "non stop", "mashup",
	}
	electronicPhrases = []string{
		"remix", "edm", "club mix", "extended mix", "bass boosted", "nightcore",
	}
)

const variousArtists = "various artists"

// Misclassified reports whether a catalog result is likely noise for the requested genre:
// compilations, various-artist releases, DJ mixes, or electronic edits in a non-electronic search.
func Misclassified(track models.Track, catalogGenre string) bool {
	if strings.EqualFold(track.AlbumType, "compilation") {
		return true
	}

	if strings.EqualFold(strings.TrimSpace(track.ArtistName), variousArtists) {
		return true
	}
	for _, a := range slices.Concat(track.Artists, track.AlbumArtists) {
		if strings.EqualFold(strings.TrimSpace(a), variousArtists) {
			return true
		}
	}

	text := track.Title + " " + track.AlbumName
	if shared.ContainsAny(text, mixPhrases) {
		return true
	}

	if !IsElectronic(catalogGenre) && shared.ContainsAny(text, electronicPhrases) {
		return true
	}

	return false
}

// FilterMisclassified drops tracks flagged by [Misclassified], preserving order.
func FilterMisclassified(tracks []models.Track, catalogGenre string) []models.Track {
	kept := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if Misclassified(t, catalogGenre) {
			continue
		}
		kept = append(kept, t)
	}
	return kept
}

// Dedupe drops repeated track ids, keeping the first occurrence.
func Dedupe(tracks []models.Track) []models.Track {
	seen := make(map[string]struct{}, len(tracks))
	out := make([]models.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID == "" {
			continue
		}
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		out = append(out, t)
	}
	return out
}
