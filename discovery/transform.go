package discovery

import "anidex/models"

// Transform maps a raw catalog record into its display projection. It
// is a total function: absent optional fields get fallbacks, never a
// panic, and it performs no filtering.
func Transform(a *models.Anime) models.DisplayAnime {
	title := a.Title
	if a.TitleEnglish != "" {
		title = a.TitleEnglish
	}

	image := a.Images.JPG.LargeImageURL
	if image == "" {
		image = a.Images.JPG.ImageURL
	}

	year := models.YearUnknown
	if a.Aired.From != nil {
		year = a.Aired.From.Year()
	}

	genres := make([]string, 0, len(a.Genres))
	for _, g := range a.Genres {
		genres = append(genres, g.Name)
	}

	synopsis := a.Synopsis
	if synopsis == "" {
		synopsis = models.NoSynopsis
	}

	return models.DisplayAnime{
		MalID:    a.MalID,
		Title:    title,
		Image:    image,
		Year:     year,
		Genres:   genres,
		Synopsis: synopsis,
		Score:    a.Score,
		Members:  a.Members,
		Type:     a.Type,
		Aired:    a.Aired,
	}
}
