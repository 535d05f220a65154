package discovery

import (
	"time"

	"anidex/models"
)

// displayableTypes are the content types eligible for display.
var displayableTypes = map[string]struct{}{
	"TV":    {},
	"Movie": {},
	"ONA":   {},
	"OVA":   {},
}

// minStartYear is the oldest air year the catalog surfaces.
const minStartYear = 2010

// Eligible decides whether a raw record qualifies for display: a
// displayable content type, an air year in [2010, current year], at
// least minMembers popularity, and a score at or above minScore.
// Records with no air date or no score are never eligible.
func Eligible(a *models.Anime, minMembers int, minScore float64, now time.Time) bool {
	if _, ok := displayableTypes[a.Type]; !ok {
		return false
	}
	year := a.StartYear()
	if year < minStartYear || year > now.Year() {
		return false
	}
	if a.Members < minMembers {
		return false
	}
	if a.Score == nil || *a.Score < minScore {
		return false
	}
	return true
}
