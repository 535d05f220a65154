package discovery

import (
	"testing"
	"time"

	"anidex/models"
)

func TestTransformPrefersEnglishTitleAndLargeImage(t *testing.T) {
	a := models.Anime{
		MalID:        5114,
		Title:        "Hagane no Renkinjutsushi",
		TitleEnglish: "Fullmetal Alchemist: Brotherhood",
		Aired:        airedFrom(2010),
		Genres: []models.Genre{
			{MalID: 1, Name: "Action"},
			{MalID: 8, Name: "Drama"},
		},
		Score:    score(9.1),
		Members:  3500000,
		Type:     "TV",
		Synopsis: "Two brothers search for a Philosopher's Stone.",
	}
	a.Images.JPG.ImageURL = "small.jpg"
	a.Images.JPG.LargeImageURL = "large.jpg"

	got := Transform(&a)
	if got.Title != "Fullmetal Alchemist: Brotherhood" {
		t.Fatalf("title = %q, want the English localization", got.Title)
	}
	if got.Image != "large.jpg" {
		t.Fatalf("image = %q, want the large variant", got.Image)
	}
	if got.Year != 2010 {
		t.Fatalf("year = %d, want 2010", got.Year)
	}
	if len(got.Genres) != 2 || got.Genres[0] != "Action" || got.Genres[1] != "Drama" {
		t.Fatalf("genres = %v, want ordered names", got.Genres)
	}
	if got.Score == nil || *got.Score != 9.1 {
		t.Fatalf("score = %v, want 9.1", got.Score)
	}
}

func TestTransformFallbacks(t *testing.T) {
	a := models.Anime{
		MalID: 99,
		Title: "Obscure Title",
		Type:  "OVA",
	}
	a.Images.JPG.ImageURL = "only.jpg"

	got := Transform(&a)
	if got.Title != "Obscure Title" {
		t.Fatalf("title = %q, want primary title fallback", got.Title)
	}
	if got.Image != "only.jpg" {
		t.Fatalf("image = %q, want the standard variant fallback", got.Image)
	}
	if got.Year != models.YearUnknown {
		t.Fatalf("year = %d, want the unknown sentinel", got.Year)
	}
	if got.Synopsis != models.NoSynopsis {
		t.Fatalf("synopsis = %q, want placeholder", got.Synopsis)
	}
	if got.Score != nil {
		t.Fatalf("score = %v, want nil", got.Score)
	}
	if len(got.Genres) != 0 {
		t.Fatalf("genres = %v, want empty", got.Genres)
	}
}

func TestTransformIsTotalOverZeroRecord(t *testing.T) {
	var a models.Anime
	got := Transform(&a)
	if got.Year != models.YearUnknown || got.Synopsis != models.NoSynopsis {
		t.Fatalf("zero record should get fallbacks, got %+v", got)
	}
}

func TestTransformKeepsAired(t *testing.T) {
	from := time.Date(2021, time.January, 10, 0, 0, 0, 0, time.UTC)
	a := models.Anime{Aired: models.Aired{From: &from}}
	got := Transform(&a)
	if got.Aired.From == nil || !got.Aired.From.Equal(from) {
		t.Fatalf("aired.from = %v, want %v", got.Aired.From, from)
	}
}
