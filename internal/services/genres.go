package services

import (
	"maps"
	"slices"
	"strings"
)

// DefaultGenre is searched when the requested genre has no catalog mapping.
const DefaultGenre = "pop"

var catalogGenres = map[string]string{
	"pop":        "pop",
	"rock":       "rock",
	"hiphop":     "hip-hop",
	"hip-hop":    "hip-hop",
	"hip hop":    "hip-hop",
	"rap":        "hip-hop",
	"rnb":        "r-n-b",
	"r&b":        "r-n-b",
	"edm":        "edm",
	"electronic": "electronic",
	"dance":      "dance",
	"house":      "house",
	"techno":     "techno",
	"dnb":        "drum-and-bass",
	"metal":      "metal",
	"punk":       "punk",
	"indie":      "indie",
	"country":    "country",
	"latin":      "latin",
	"reggaeton":  "reggaeton",
	"kpop":       "k-pop",
	"k-pop":      "k-pop",
	"jazz":       "jazz",
	"funk":       "funk",
	"soul":       "soul",
	"classical":  "classical",
}

var electronicGenres = map[string]struct{}{
	"edm":           {},
	"electronic":    {},
	"dance":         {},
	"house":         {},
	"techno":        {},
	"drum-and-bass": {},
}

// CatalogGenre maps an app genre onto the catalog's genre seed, falling back to [DefaultGenre].
func CatalogGenre(genre string) string {
	key := strings.ToLower(strings.TrimSpace(genre))
	if g, ok := catalogGenres[key]; ok {
		return g
	}
	return DefaultGenre
}

// IsElectronic reports whether a catalog genre belongs to the electronic family.
func IsElectronic(catalogGenre string) bool {
	_, ok := electronicGenres[catalogGenre]
	return ok
}

// Genres lists the accepted app genre names in sorted order.
func Genres() []string {
	return slices.Sorted(maps.Keys(catalogGenres))
}
