package discovery

import (
	"sort"
	"strings"
)

// genreIDs is the closed vocabulary of genre names usable in by-genre
// queries, mapped to the upstream service's internal identifiers.
var genreIDs = map[string]int{
	"action":       1,
	"comedy":       4,
	"mystery":      7,
	"drama":        8,
	"fantasy":      10,
	"horror":       14,
	"romance":      22,
	"supernatural": 37,
	"thriller":     41,
}

// GenreID resolves a genre name case-insensitively. Unknown names are a
// caller error, not an upstream one.
func GenreID(name string) (int, bool) {
	id, ok := genreIDs[strings.ToLower(strings.TrimSpace(name))]
	return id, ok
}

// GenreNames returns the vocabulary in sorted order.
func GenreNames() []string {
	names := make([]string, 0, len(genreIDs))
	for name := range genreIDs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
