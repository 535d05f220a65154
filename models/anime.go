// Package models defines the upstream catalog wire types and the
// display-ready projection consumed by the UI.
package models

import "time"

// Genre is one genre tag attached to a catalog record.
type Genre struct {
	MalID int    `json:"mal_id"`
	Name  string `json:"name"`
}

// Images holds the image URL variants the catalog serves per record.
type Images struct {
	JPG struct {
		ImageURL      string `json:"image_url"`
		LargeImageURL string `json:"large_image_url"`
	} `json:"jpg"`
}

// Aired is the air-date range of a record. Either bound may be absent.
type Aired struct {
	From *time.Time `json:"from"`
	To   *time.Time `json:"to"`
}

// Anime is one raw catalog record as returned by the upstream service.
// Optional fields are pointers so an absent score stays distinguishable
// from a legitimate zero.
type Anime struct {
	MalID        int      `json:"mal_id"`
	Title        string   `json:"title"`
	TitleEnglish string   `json:"title_english"`
	Images       Images   `json:"images"`
	Aired        Aired    `json:"aired"`
	Genres       []Genre  `json:"genres"`
	Score        *float64 `json:"score"`
	Members      int      `json:"members"`
	Type         string   `json:"type"`
	Synopsis     string   `json:"synopsis"`
}

// StartYear returns the calendar year the record started airing,
// or YearUnknown when the air date is absent.
func (a *Anime) StartYear() int {
	if a.Aired.From == nil {
		return YearUnknown
	}
	return a.Aired.From.Year()
}

// HasGenre reports whether the record carries the given genre identifier.
func (a *Anime) HasGenre(id int) bool {
	for _, g := range a.Genres {
		if g.MalID == id {
			return true
		}
	}
	return false
}

// Page is the envelope the upstream wraps every listing response in.
type Page struct {
	Data       []Anime    `json:"data"`
	Pagination Pagination `json:"pagination"`
}

// Pagination carries the upstream paging hints. The strategies never
// page past the first response, but the fields are kept for logging.
type Pagination struct {
	LastVisiblePage int  `json:"last_visible_page"`
	HasNextPage     bool `json:"has_next_page"`
}

// YearUnknown is the sentinel release year for records with no air date.
const YearUnknown = 0

// NoSynopsis is the placeholder used when a record has no synopsis.
const NoSynopsis = "No synopsis available"

// DisplayAnime is the display-ready projection of a catalog record.
// It carries no behavior; it is rebuilt on every query response.
type DisplayAnime struct {
	MalID    int      `json:"mal_id"`
	Title    string   `json:"title"`
	Image    string   `json:"image"`
	Year     int      `json:"year"`
	Genres   []string `json:"genres"`
	Synopsis string   `json:"synopsis"`
	Score    *float64 `json:"score"`
	Members  int      `json:"members"`
	Type     string   `json:"type"`
	Aired    Aired    `json:"aired"`
}
